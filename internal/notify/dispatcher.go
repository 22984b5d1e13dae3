package notify

import (
	"context"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/pulsewatch/internal/alert"
	"github.com/linnemanlabs/pulsewatch/internal/directory"
)

// Channel identifies a notification transport.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Status is the result of one notification attempt.
type Status string

const (
	// StatusSent means the transport accepted the message.
	StatusSent Status = "sent"

	// StatusFailed means the transport returned an error. Failures are
	// recorded, not retried.
	StatusFailed Status = "failed"

	// StatusSkipped means the attempt was not made: no address for the
	// channel, channel disabled, or quiet hours.
	StatusSkipped Status = "skipped"
)

// Outcome is the per-channel, per-recipient result of a fan-out.
type Outcome struct {
	Channel   Channel `json:"channel"`
	Recipient string  `json:"recipient"`
	Address   string  `json:"address,omitempty"`
	Status    Status  `json:"status"`
	Reason    string  `json:"reason,omitempty"`
}

// EmailSender is the email transport contract.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender is the SMS transport contract.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Dispatcher fans notifications out across channels and recipients.
type Dispatcher struct {
	email     EmailSender
	sms       SMSSender
	directory directory.Store
	logger    log.Logger
}

// NewDispatcher creates a dispatcher. The directory store resolves emergency
// contacts during escalation.
func NewDispatcher(email EmailSender, sms SMSSender, dir directory.Store, logger log.Logger) *Dispatcher {
	if email == nil || sms == nil {
		panic(xerrors.New("email and sms senders are required"))
	}
	if dir == nil {
		panic(xerrors.New("directory store is required"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Dispatcher{
		email:     email,
		sms:       sms,
		directory: dir,
		logger:    logger,
	}
}

// Notify sends the initial fan-out for a freshly classified alert, gated by
// the tier policy and the subject's settings. Blocks until every attempt has
// resolved; individual failures are isolated.
func (d *Dispatcher) Notify(ctx context.Context, al *alert.Alert, settings directory.Settings) []Outcome {
	return d.notifySubject(ctx, al, settings, false)
}

// NotifyEscalated sends the renewed, more urgent pass to the subject after an
// unacknowledged timeout. Escalation ignores quiet hours.
func (d *Dispatcher) NotifyEscalated(ctx context.Context, al *alert.Alert, settings directory.Settings) []Outcome {
	return d.notifySubject(ctx, al, settings, true)
}

func (d *Dispatcher) notifySubject(ctx context.Context, al *alert.Alert, settings directory.Settings, escalated bool) []Outcome {
	quiet := !escalated &&
		al.Tier == alert.TierModerate &&
		settings.QuietHours != nil &&
		settings.QuietHours.Contains(time.Now())

	subject := buildSubjectLine(al, escalated)
	body := buildEmailBody(al, escalated)
	short := buildSMSBody(al, escalated)

	var attempts []attempt
	if emailTier(al.Tier) {
		attempts = append(attempts, attempt{
			channel:   ChannelEmail,
			recipient: al.Contact.Name,
			address:   al.Contact.Email,
			enabled:   settings.EmailEnabled,
			quiet:     quiet,
			send: func(ctx context.Context, address string) error {
				return d.email.SendEmail(ctx, address, subject, body)
			},
		})
	}
	if smsTier(al.Tier) {
		attempts = append(attempts, attempt{
			channel:   ChannelSMS,
			recipient: al.Contact.Name,
			address:   al.Contact.Phone,
			enabled:   settings.SMSEnabled,
			quiet:     quiet,
			send: func(ctx context.Context, address string) error {
				return d.sms.SendSMS(ctx, address, short)
			},
		})
	}

	return d.fanOut(ctx, al, attempts)
}

// NotifyEmergencyContacts notifies the subject's emergency contacts in
// priority order, attempting both channels per contact. escalated selects
// the unacknowledged-timeout wording over the immediate-alert one. A
// directory failure returns the error; per-channel send failures do not.
func (d *Dispatcher) NotifyEmergencyContacts(ctx context.Context, al *alert.Alert, escalated bool) ([]Outcome, error) {
	contacts, err := d.directory.Contacts(ctx, al.SubjectID)
	if err != nil {
		return nil, err
	}

	subject := buildContactSubjectLine(al, escalated)
	body := buildContactEmailBody(al, escalated)
	short := buildContactSMSBody(al, escalated)

	var attempts []attempt
	for _, c := range contacts {
		attempts = append(attempts,
			attempt{
				channel:   ChannelEmail,
				recipient: c.Name,
				address:   c.Email,
				enabled:   true,
				send: func(ctx context.Context, address string) error {
					return d.email.SendEmail(ctx, address, subject, body)
				},
			},
			attempt{
				channel:   ChannelSMS,
				recipient: c.Name,
				address:   c.Phone,
				enabled:   true,
				send: func(ctx context.Context, address string) error {
					return d.sms.SendSMS(ctx, address, short)
				},
			},
		)
	}

	return d.fanOut(ctx, al, attempts), nil
}

// attempt is one channel+recipient unit of a fan-out.
type attempt struct {
	channel   Channel
	recipient string
	address   string
	enabled   bool
	quiet     bool
	send      func(ctx context.Context, address string) error
}

// fanOut runs every attempt concurrently and gathers all outcomes. No
// attempt's failure cancels a sibling.
func (d *Dispatcher) fanOut(ctx context.Context, al *alert.Alert, attempts []attempt) []Outcome {
	outcomes := make([]Outcome, len(attempts))

	var wg sync.WaitGroup
	for i, at := range attempts {
		wg.Add(1)
		go func(i int, at attempt) {
			defer wg.Done()
			outcomes[i] = d.run(ctx, al, at)
		}(i, at)
	}
	wg.Wait()

	return outcomes
}

func (d *Dispatcher) run(ctx context.Context, al *alert.Alert, at attempt) Outcome {
	out := Outcome{
		Channel:   at.channel,
		Recipient: at.recipient,
		Address:   at.address,
	}

	switch {
	case !at.enabled:
		out.Status = StatusSkipped
		out.Reason = "channel disabled"
		return out
	case at.quiet:
		out.Status = StatusSkipped
		out.Reason = "quiet hours"
		return out
	case at.address == "":
		out.Status = StatusSkipped
		out.Reason = "no address"
		return out
	}

	if err := at.send(ctx, at.address); err != nil {
		// At-most-once: log, record, move on.
		d.logger.Error(ctx, err, "notification failed",
			"alert_id", al.ID,
			"subject_id", al.SubjectID,
			"channel", string(at.channel),
			"recipient", at.recipient,
		)
		out.Status = StatusFailed
		out.Reason = err.Error()
		return out
	}

	out.Status = StatusSent
	return out
}

func emailTier(t alert.Tier) bool {
	switch t {
	case alert.TierModerate, alert.TierHigh, alert.TierCritical:
		return true
	case alert.TierNone:
		return false
	}
	return false
}

func smsTier(t alert.Tier) bool {
	switch t {
	case alert.TierHigh, alert.TierCritical:
		return true
	case alert.TierModerate, alert.TierNone:
		return false
	}
	return false
}
