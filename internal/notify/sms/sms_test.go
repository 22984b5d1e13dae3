package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendSMS_PostsToGateway(t *testing.T) {
	t.Parallel()

	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := New(srv.URL, "pulsewatch")
	err := s.SendSMS(context.Background(), "+15551230000", "HIGH health alert: HR 130, SpO2 92%, BP 150/95. Please acknowledge.")
	if err != nil {
		t.Fatalf("SendSMS: %v", err)
	}

	want := map[string]string{
		"from": "pulsewatch",
		"to":   "+15551230000",
		"body": "HIGH health alert: HR 130, SpO2 92%, BP 150/95. Please acknowledge.",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("payload[%q] = %q, want %q", k, got[k], v)
		}
	}
}

func TestSendSMS_NoOpWithoutURL(t *testing.T) {
	t.Parallel()

	s := New("", "pulsewatch")
	if err := s.SendSMS(context.Background(), "+15551230000", "body"); err != nil {
		t.Fatalf("SendSMS with empty URL should be no-op, got: %v", err)
	}
}

func TestSendSMS_NonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	s := New(srv.URL, "pulsewatch")
	err := s.SendSMS(context.Background(), "+15551230000", "body")
	if err == nil {
		t.Fatal("expected error on non-OK status")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error = %q, want to contain status code 429", err.Error())
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("error = %q, want to contain gateway response body", err.Error())
	}
}

func TestSendSMS_ContextCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(srv.URL, "pulsewatch")
	if err := s.SendSMS(ctx, "+15551230000", "body"); err == nil {
		t.Fatal("expected error with cancelled context")
	}
}
