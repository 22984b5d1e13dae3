package alert

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateID is returned by Create when the alert ID already exists in
// the store. IDs are generated by the engine, so a duplicate indicates an
// invariant violation rather than bad input.
var ErrDuplicateID = errors.New("alert: duplicate alert id")

// Store is the authoritative registry of alert records. Mutations are atomic
// with respect to concurrent readers and to each other; no component caches
// alert state outside the store.
type Store interface {
	// Create adds a new alert. Fails with ErrDuplicateID if the ID exists.
	Create(ctx context.Context, al *Alert) error

	// Get retrieves an alert by ID. Returns a copy.
	Get(ctx context.Context, id string) (*Alert, bool, error)

	// Acknowledge marks the alert acknowledged if it exists and belongs to
	// subjectID. ok is false when the alert is missing or owned by another
	// subject. Re-acknowledging succeeds without moving AcknowledgedAt.
	Acknowledge(ctx context.Context, id, subjectID string, at time.Time) (al *Alert, ok bool, err error)

	// Escalate marks the alert escalated, but only if it is still pending:
	// not acknowledged and not already escalated. escalated reports whether
	// this call performed the transition; ok is false when the alert is
	// missing. The check and the mutation are a single atomic step, which is
	// what makes a near-simultaneous acknowledge safe.
	Escalate(ctx context.Context, id string, at time.Time) (al *Alert, ok, escalated bool, err error)

	// ListBySubject returns the subject's alerts, newest first.
	ListBySubject(ctx context.Context, subjectID string) ([]*Alert, error)

	// Sweep removes alerts created before cutoff and returns their IDs so
	// the caller can cancel any timers still armed for them.
	Sweep(ctx context.Context, cutoff time.Time) ([]string, error)
}
