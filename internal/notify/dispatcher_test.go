package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/pulsewatch/internal/alert"
	"github.com/linnemanlabs/pulsewatch/internal/directory"
	dirmem "github.com/linnemanlabs/pulsewatch/internal/directory/memstore"
)

type sentEmail struct {
	To, Subject, Body string
}

type sentSMS struct {
	To, Body string
}

type mockEmail struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (m *mockEmail) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentEmail{To: to, Subject: subject, Body: body})
	return nil
}

type mockSMS struct {
	mu   sync.Mutex
	sent []sentSMS
	err  error
}

func (m *mockSMS) SendSMS(_ context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentSMS{To: to, Body: body})
	return nil
}

func testAlert(tier alert.Tier) *alert.Alert {
	return &alert.Alert{
		ID:        "a-1",
		SubjectID: "subj-1",
		Tier:      tier,
		Contact: alert.SubjectContact{
			Name:  "Ada",
			Email: "ada@example.com",
			Phone: "+15550001111",
		},
		Reading: alert.VitalReading{
			HeartRate:   110,
			OxygenSat:   88.5,
			SystolicBP:  150,
			DiastolicBP: 95,
		},
		Assessment: alert.RiskAssessment{
			OverallRisk: string(tier),
			Conditions:  []string{"Severe Hypoxemia"},
		},
		CreatedAt: time.Now(),
	}
}

func countByStatus(outcomes []Outcome, status Status) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

func findOutcome(outcomes []Outcome, ch Channel, recipient string) (Outcome, bool) {
	for _, o := range outcomes {
		if o.Channel == ch && o.Recipient == recipient {
			return o, true
		}
	}
	return Outcome{}, false
}

func TestNotify_TierChannelPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		tier      alert.Tier
		wantEmail bool
		wantSMS   bool
	}{
		{"critical uses both channels", alert.TierCritical, true, true},
		{"high uses both channels", alert.TierHigh, true, true},
		{"moderate uses email only", alert.TierModerate, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			em, sm := &mockEmail{}, &mockSMS{}
			d := NewDispatcher(em, sm, dirmem.New(), nil)

			outcomes := d.Notify(context.Background(), testAlert(tt.tier), directory.DefaultSettings("subj-1"))

			if got := len(em.sent) == 1; got != tt.wantEmail {
				t.Errorf("email sent = %v, want %v", got, tt.wantEmail)
			}
			if got := len(sm.sent) == 1; got != tt.wantSMS {
				t.Errorf("sms sent = %v, want %v", got, tt.wantSMS)
			}
			if failed := countByStatus(outcomes, StatusFailed); failed != 0 {
				t.Errorf("failed outcomes = %d, want 0", failed)
			}
		})
	}
}

func TestNotify_ChannelFailureIsolated(t *testing.T) {
	t.Parallel()

	em := &mockEmail{err: errors.New("relay down")}
	sm := &mockSMS{}
	d := NewDispatcher(em, sm, dirmem.New(), nil)

	outcomes := d.Notify(context.Background(), testAlert(alert.TierCritical), directory.DefaultSettings("subj-1"))

	if len(sm.sent) != 1 {
		t.Fatalf("sms sent = %d, want 1 despite email failure", len(sm.sent))
	}
	eo, ok := findOutcome(outcomes, ChannelEmail, "Ada")
	if !ok {
		t.Fatal("missing email outcome")
	}
	if eo.Status != StatusFailed {
		t.Errorf("email status = %q, want failed", eo.Status)
	}
	so, _ := findOutcome(outcomes, ChannelSMS, "Ada")
	if so.Status != StatusSent {
		t.Errorf("sms status = %q, want sent", so.Status)
	}
}

func TestNotify_DisabledChannelsSkipped(t *testing.T) {
	t.Parallel()

	em, sm := &mockEmail{}, &mockSMS{}
	d := NewDispatcher(em, sm, dirmem.New(), nil)

	settings := directory.DefaultSettings("subj-1")
	settings.SMSEnabled = false

	outcomes := d.Notify(context.Background(), testAlert(alert.TierCritical), settings)

	if len(sm.sent) != 0 {
		t.Errorf("sms sent = %d, want 0 when disabled", len(sm.sent))
	}
	so, _ := findOutcome(outcomes, ChannelSMS, "Ada")
	if so.Status != StatusSkipped || so.Reason != "channel disabled" {
		t.Errorf("sms outcome = %+v, want skipped/channel disabled", so)
	}
}

func TestNotify_MissingAddressSkipped(t *testing.T) {
	t.Parallel()

	em, sm := &mockEmail{}, &mockSMS{}
	d := NewDispatcher(em, sm, dirmem.New(), nil)

	al := testAlert(alert.TierCritical)
	al.Contact.Phone = ""

	outcomes := d.Notify(context.Background(), al, directory.DefaultSettings("subj-1"))

	if len(em.sent) != 1 {
		t.Errorf("email sent = %d, want 1", len(em.sent))
	}
	so, _ := findOutcome(outcomes, ChannelSMS, "Ada")
	if so.Status != StatusSkipped || so.Reason != "no address" {
		t.Errorf("sms outcome = %+v, want skipped/no address", so)
	}
}

func TestNotify_QuietHoursSuppressModerate(t *testing.T) {
	t.Parallel()

	em, sm := &mockEmail{}, &mockSMS{}
	d := NewDispatcher(em, sm, dirmem.New(), nil)

	settings := directory.DefaultSettings("subj-1")
	// A window covering the whole day so the test is time-independent.
	settings.QuietHours = &directory.QuietHours{Start: "00:00", End: "23:59"}

	outcomes := d.Notify(context.Background(), testAlert(alert.TierModerate), settings)
	if len(em.sent) != 0 {
		t.Errorf("email sent = %d, want 0 during quiet hours", len(em.sent))
	}
	eo, _ := findOutcome(outcomes, ChannelEmail, "Ada")
	if eo.Status != StatusSkipped || eo.Reason != "quiet hours" {
		t.Errorf("email outcome = %+v, want skipped/quiet hours", eo)
	}

	// Quiet hours never gate higher tiers.
	_ = d.Notify(context.Background(), testAlert(alert.TierCritical), settings)
	if len(em.sent) != 1 || len(sm.sent) != 1 {
		t.Errorf("critical during quiet hours sent email=%d sms=%d, want 1/1", len(em.sent), len(sm.sent))
	}
}

func TestNotifyEscalated_IgnoresQuietHoursAndMarksUrgency(t *testing.T) {
	t.Parallel()

	em, sm := &mockEmail{}, &mockSMS{}
	d := NewDispatcher(em, sm, dirmem.New(), nil)

	settings := directory.DefaultSettings("subj-1")
	settings.QuietHours = &directory.QuietHours{Start: "00:00", End: "23:59"}

	outcomes := d.NotifyEscalated(context.Background(), testAlert(alert.TierCritical), settings)

	if countByStatus(outcomes, StatusSent) != 2 {
		t.Fatalf("sent = %d, want 2", countByStatus(outcomes, StatusSent))
	}
	if !strings.HasPrefix(em.sent[0].Subject, "ESCALATED") {
		t.Errorf("subject = %q, want ESCALATED prefix", em.sent[0].Subject)
	}
	if !strings.HasPrefix(sm.sent[0].Body, "ESCALATED") {
		t.Errorf("sms body = %q, want ESCALATED prefix", sm.sent[0].Body)
	}
}

func TestNotifyEmergencyContacts_PriorityOrderBothChannels(t *testing.T) {
	t.Parallel()

	em, sm := &mockEmail{}, &mockSMS{}
	dir := dirmem.New()
	ctx := context.Background()
	_ = dir.AddContact(ctx, directory.EmergencyContact{
		ID: "c-2", SubjectID: "subj-1", Name: "Backup", Priority: 2,
		Email: "backup@example.com", Phone: "+15550002222",
	})
	_ = dir.AddContact(ctx, directory.EmergencyContact{
		ID: "c-1", SubjectID: "subj-1", Name: "Primary", Priority: 1,
		Email: "primary@example.com",
	})

	d := NewDispatcher(em, sm, dir, nil)

	outcomes, err := d.NotifyEmergencyContacts(ctx, testAlert(alert.TierCritical), false)
	if err != nil {
		t.Fatalf("NotifyEmergencyContacts: %v", err)
	}

	// Two contacts, two channels each.
	if len(outcomes) != 4 {
		t.Fatalf("outcomes = %d, want 4", len(outcomes))
	}
	// Primary has no phone: email sent, sms skipped.
	po, _ := findOutcome(outcomes, ChannelSMS, "Primary")
	if po.Status != StatusSkipped {
		t.Errorf("Primary sms = %q, want skipped", po.Status)
	}
	if countByStatus(outcomes, StatusSent) != 3 {
		t.Errorf("sent = %d, want 3", countByStatus(outcomes, StatusSent))
	}
	// Attempts are raised in priority order.
	if outcomes[0].Recipient != "Primary" {
		t.Errorf("first recipient = %q, want Primary", outcomes[0].Recipient)
	}
}

func TestNotifyEmergencyContacts_NoContacts(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(&mockEmail{}, &mockSMS{}, dirmem.New(), nil)

	outcomes, err := d.NotifyEmergencyContacts(context.Background(), testAlert(alert.TierCritical), true)
	if err != nil {
		t.Fatalf("NotifyEmergencyContacts: %v", err)
	}
	if len(outcomes) != 0 {
		t.Errorf("outcomes = %d, want 0", len(outcomes))
	}
}

func TestNotifyEmergencyContacts_Wording(t *testing.T) {
	t.Parallel()

	em, sm := &mockEmail{}, &mockSMS{}
	dir := dirmem.New()
	ctx := context.Background()
	_ = dir.AddContact(ctx, directory.EmergencyContact{
		ID: "c-1", SubjectID: "subj-1", Name: "Primary", Priority: 1,
		Email: "primary@example.com", Phone: "+15550001111",
	})

	d := NewDispatcher(em, sm, dir, nil)

	// Initial CRITICAL fan-out: no response window has elapsed yet, so the
	// wording must not claim the alert went unacknowledged.
	if _, err := d.NotifyEmergencyContacts(ctx, testAlert(alert.TierCritical), false); err != nil {
		t.Fatalf("initial: %v", err)
	}
	if strings.Contains(em.sent[0].Subject, "unacknowledged") {
		t.Errorf("initial subject = %q, must not mention unacknowledged", em.sent[0].Subject)
	}
	if strings.Contains(sm.sent[0].Body, "unacknowledged") {
		t.Errorf("initial sms = %q, must not mention unacknowledged", sm.sent[0].Body)
	}

	if _, err := d.NotifyEmergencyContacts(ctx, testAlert(alert.TierCritical), true); err != nil {
		t.Fatalf("escalated: %v", err)
	}
	if !strings.Contains(em.sent[1].Subject, "unacknowledged") {
		t.Errorf("escalated subject = %q, want unacknowledged wording", em.sent[1].Subject)
	}
	if !strings.Contains(em.sent[1].Body, "response window") {
		t.Errorf("escalated body = %q, want response window wording", em.sent[1].Body)
	}
	if !strings.Contains(sm.sent[1].Body, "unacknowledged") {
		t.Errorf("escalated sms = %q, want unacknowledged wording", sm.sent[1].Body)
	}
}

func TestNewDispatcher_NilDeps(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for nil senders")
		}
	}()
	NewDispatcher(nil, nil, dirmem.New(), nil)
}
