package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/linnemanlabs/pulsewatch/internal/alert"
)

func dial(t *testing.T, h *Hub, subjectID string) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.HandleWS(w, r, subjectID)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// Wait for the server side to register the subscription.
	deadline := time.Now().Add(2 * time.Second)
	for h.Count(subjectID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	return msg
}

func TestHub_PublishNewAlert(t *testing.T) {
	t.Parallel()

	h := New(nil)
	conn := dial(t, h, "subj-1")

	al := &alert.Alert{
		ID:        "al-1",
		SubjectID: "subj-1",
		Tier:      alert.TierHigh,
		CreatedAt: time.Now(),
	}
	h.PublishNewAlert(context.Background(), al)

	msg := readMessage(t, conn)
	if msg.Event != "new_alert" {
		t.Errorf("event = %q, want new_alert", msg.Event)
	}
	if msg.AlertID != "al-1" || msg.SubjectID != "subj-1" {
		t.Errorf("ids = (%q, %q), want (al-1, subj-1)", msg.AlertID, msg.SubjectID)
	}
	if msg.Alert == nil || msg.Alert.Tier != alert.TierHigh {
		t.Errorf("alert payload = %+v, want tier %s", msg.Alert, alert.TierHigh)
	}
}

func TestHub_PublishAcknowledged(t *testing.T) {
	t.Parallel()

	h := New(nil)
	conn := dial(t, h, "subj-1")

	h.PublishAcknowledged(context.Background(), "subj-1", "al-2")

	msg := readMessage(t, conn)
	if msg.Event != "alert_acknowledged" {
		t.Errorf("event = %q, want alert_acknowledged", msg.Event)
	}
	if msg.AlertID != "al-2" {
		t.Errorf("alert id = %q, want al-2", msg.AlertID)
	}
	if msg.Alert != nil {
		t.Errorf("acknowledged event carries a full alert payload: %+v", msg.Alert)
	}
}

func TestHub_SubjectIsolation(t *testing.T) {
	t.Parallel()

	h := New(nil)
	connA := dial(t, h, "subj-a")
	connB := dial(t, h, "subj-b")

	h.PublishAcknowledged(context.Background(), "subj-a", "al-1")

	msg := readMessage(t, connA)
	if msg.SubjectID != "subj-a" {
		t.Errorf("subject = %q, want subj-a", msg.SubjectID)
	}

	// subj-b's subscriber must see nothing.
	connB.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, data, err := connB.ReadMessage(); err == nil {
		t.Errorf("unrelated subscriber received %q", data)
	}
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	t.Parallel()

	h := New(nil)
	// Must not panic or block.
	h.PublishAcknowledged(context.Background(), "nobody-home", "al-1")
	if h.Count("nobody-home") != 0 {
		t.Errorf("Count = %d, want 0", h.Count("nobody-home"))
	}
}

func TestHub_RunClosesClientsOnCancel(t *testing.T) {
	t.Parallel()

	h := New(nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	conn := dial(t, h, "subj-1")
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// The server closes the connection; the client read should fail soon.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("read succeeded after hub shutdown")
	}
}

func TestHub_ConcurrentPublishAndDisconnect(t *testing.T) {
	t.Parallel()

	h := New(nil)
	const subjectID = "subj-race"

	// Registered directly: the race is between publish and unregister, the
	// pumps play no part in it.
	clients := make([]*client, 100)
	for i := range clients {
		clients[i] = &client{
			send: make(chan []byte, sendBufSize),
			done: make(chan struct{}),
		}
		h.register(subjectID, clients[i])
	}

	al := &alert.Alert{ID: "al-race", SubjectID: subjectID, Tier: alert.TierHigh}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			h.PublishNewAlert(context.Background(), al)
		}
	}()
	for _, c := range clients {
		wg.Add(1)
		go func(c *client) {
			defer wg.Done()
			h.unregister(subjectID, c)
		}(c)
	}
	wg.Wait()

	if got := h.Count(subjectID); got != 0 {
		t.Errorf("Count = %d after all disconnects, want 0", got)
	}
	// Publishing to a fully drained subject must also stay quiet.
	h.PublishNewAlert(context.Background(), al)
}

func TestHub_UnregisterIdempotent(t *testing.T) {
	t.Parallel()

	h := New(nil)
	c := &client{
		send: make(chan []byte, sendBufSize),
		done: make(chan struct{}),
	}
	h.register("subj-1", c)
	h.unregister("subj-1", c)
	h.unregister("subj-1", c)

	select {
	case <-c.done:
	default:
		t.Error("done not closed after unregister")
	}
}
