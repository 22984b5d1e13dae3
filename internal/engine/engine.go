package engine

import (
	"context"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/pulsewatch/internal/alert"
	"github.com/linnemanlabs/pulsewatch/internal/directory"
	"github.com/linnemanlabs/pulsewatch/internal/notify"
)

// Dispatcher is the notification fan-out contract the engine needs.
type Dispatcher interface {
	Notify(ctx context.Context, al *alert.Alert, settings directory.Settings) []notify.Outcome
	NotifyEscalated(ctx context.Context, al *alert.Alert, settings directory.Settings) []notify.Outcome
	NotifyEmergencyContacts(ctx context.Context, al *alert.Alert, escalated bool) ([]notify.Outcome, error)
}

// Publisher receives lifecycle events for presentation-layer fan-out. The
// engine's obligation ends at publishing; delivery is the sink's concern.
type Publisher interface {
	PublishNewAlert(ctx context.Context, al *alert.Alert)
	PublishAcknowledged(ctx context.Context, subjectID, alertID string)
}

// Engine orchestrates the alert lifecycle: classify, record, notify, arm the
// response timeout, and escalate when nobody acknowledges in time.
type Engine struct {
	store      alert.Store
	directory  directory.Store
	classifier *alert.Classifier
	dispatcher Dispatcher
	publisher  Publisher
	scheduler  *Scheduler
	logger     log.Logger
	metrics    *Metrics
}

// NewEngine creates the alert engine. publisher and metrics may be nil.
func NewEngine(
	store alert.Store,
	dir directory.Store,
	classifier *alert.Classifier,
	dispatcher Dispatcher,
	publisher Publisher,
	logger log.Logger,
	metrics *Metrics,
) *Engine {
	if store == nil || dir == nil || classifier == nil || dispatcher == nil {
		panic(xerrors.New("store, directory, classifier, and dispatcher are required"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	e := &Engine{
		store:      store,
		directory:  dir,
		classifier: classifier,
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
		metrics:    metrics,
	}
	e.scheduler = NewScheduler(e.escalate)
	return e
}

// ProcessAssessment runs one assessment through the full lifecycle entry.
// Tier NONE returns (nil, nil): no record, no notification, no timer.
// Notification failures never fail the call; only classification and the
// store write can.
func (e *Engine) ProcessAssessment(
	ctx context.Context,
	subjectID string,
	reading alert.VitalReading,
	assessment alert.RiskAssessment,
	contact alert.SubjectContact,
) (*alert.Alert, error) {
	tier := e.classifier.Classify(assessment)
	e.metrics.observeAssessment(tier)
	if tier == alert.TierNone {
		return nil, nil
	}

	al := &alert.Alert{
		ID:         ulid.Make().String(),
		SubjectID:  subjectID,
		Tier:       tier,
		Reading:    reading,
		Assessment: assessment,
		Contact:    contact,
		CreatedAt:  time.Now(),
	}

	if err := e.store.Create(ctx, al); err != nil {
		return nil, err
	}
	e.metrics.observeAlert(tier)

	if e.publisher != nil {
		e.publisher.PublishNewAlert(ctx, al)
	}

	settings := e.settingsFor(ctx, subjectID)

	L := e.logger.With("alert_id", al.ID, "subject_id", subjectID, "tier", string(tier))

	outcomes := e.dispatcher.Notify(ctx, al, settings)
	e.metrics.observeOutcomes(outcomes)

	if tier == alert.TierCritical && settings.EmergencyContactsEnabled {
		contactOutcomes, err := e.dispatcher.NotifyEmergencyContacts(ctx, al, false)
		if err != nil {
			L.Error(ctx, err, "emergency contact lookup failed")
		}
		e.metrics.observeOutcomes(contactOutcomes)
		outcomes = append(outcomes, contactOutcomes...)
	}

	timeout := responseTimeout(tier, settings)
	e.scheduler.Arm(al.ID, timeout)
	e.metrics.setActiveTimeouts(e.scheduler.Active())

	L.Info(ctx, "alert created",
		"timeout", timeout.String(),
		"notifications", len(outcomes),
	)

	return al, nil
}

// Acknowledge marks the alert acknowledged and disarms its timeout. Returns
// false when the alert does not exist or belongs to another subject; that is
// a boolean failure for the caller, not an error.
func (e *Engine) Acknowledge(ctx context.Context, alertID, subjectID string) (bool, error) {
	al, ok, err := e.store.Acknowledge(ctx, alertID, subjectID, time.Now())
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	e.scheduler.Disarm(alertID)
	e.metrics.setActiveTimeouts(e.scheduler.Active())
	e.metrics.observeAckLatency(al.AcknowledgedAt.Sub(al.CreatedAt).Seconds())

	if e.publisher != nil {
		e.publisher.PublishAcknowledged(ctx, subjectID, alertID)
	}

	e.logger.Info(ctx, "alert acknowledged",
		"alert_id", alertID,
		"subject_id", subjectID,
		"escalated", al.Escalated,
	)
	return true, nil
}

// Alert retrieves one alert by ID.
func (e *Engine) Alert(ctx context.Context, id string) (*alert.Alert, bool, error) {
	return e.store.Get(ctx, id)
}

// SubjectAlerts lists a subject's alerts, newest first.
func (e *Engine) SubjectAlerts(ctx context.Context, subjectID string) ([]*alert.Alert, error) {
	return e.store.ListBySubject(ctx, subjectID)
}

// Cleanup sweeps alert records older than maxAge and cancels any timers still
// armed for them. Returns the number of records removed.
func (e *Engine) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	removed, err := e.store.Sweep(ctx, time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	for _, id := range removed {
		e.scheduler.Disarm(id)
	}
	e.metrics.setActiveTimeouts(e.scheduler.Active())
	e.metrics.observeSwept(len(removed))

	if len(removed) > 0 {
		e.logger.Info(ctx, "swept expired alerts", "removed", len(removed), "max_age", maxAge.String())
	}
	return len(removed), nil
}

// RunCleanup drives Cleanup on a fixed cadence until ctx is cancelled.
func (e *Engine) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := e.Cleanup(ctx, maxAge); err != nil {
				e.logger.Error(ctx, err, "cleanup sweep failed")
			}
		}
	}
}

// Shutdown cancels all armed timers.
func (e *Engine) Shutdown() {
	e.scheduler.Shutdown()
	e.metrics.setActiveTimeouts(0)
}

// escalate is the scheduler's fire handler: the response timeout expired.
// It re-checks acknowledgment against the store at fire time, which is what
// resolves the acknowledge-vs-expiry race.
func (e *Engine) escalate(alertID string) {
	ctx := log.WithContext(context.Background(), e.logger)

	al, ok, escalated, err := e.store.Escalate(ctx, alertID, time.Now())
	if err != nil {
		e.logger.Error(ctx, err, "escalation store update failed", "alert_id", alertID)
		return
	}
	if !ok {
		// Swept between expiry and handler entry; nothing to escalate.
		e.logger.Warn(ctx, "timeout fired for removed alert", "alert_id", alertID)
		return
	}
	if !escalated {
		// Acknowledged (or already escalated) before the handler won the
		// race. The fired transition is a no-op.
		return
	}

	e.metrics.observeEscalation(al.Tier)
	e.metrics.setActiveTimeouts(e.scheduler.Active())

	L := e.logger.With("alert_id", al.ID, "subject_id", al.SubjectID, "tier", string(al.Tier))
	L.Info(ctx, "alert escalated")

	if al.Tier != alert.TierCritical {
		return
	}

	settings := e.settingsFor(ctx, al.SubjectID)

	if settings.EmergencyContactsEnabled {
		outcomes, err := e.dispatcher.NotifyEmergencyContacts(ctx, al, true)
		if err != nil {
			L.Error(ctx, err, "emergency contact lookup failed during escalation")
		}
		e.metrics.observeOutcomes(outcomes)
	}

	// Renewed, more urgent pass to the subject, independent of how the
	// initial fan-out went.
	outcomes := e.dispatcher.NotifyEscalated(ctx, al, settings)
	e.metrics.observeOutcomes(outcomes)
}

// settingsFor loads the subject's preferences, degrading to defaults when the
// directory is unavailable. Absent settings are not an error by contract.
func (e *Engine) settingsFor(ctx context.Context, subjectID string) directory.Settings {
	settings, err := e.directory.Settings(ctx, subjectID)
	if err != nil {
		e.logger.Error(ctx, err, "settings lookup failed, using defaults", "subject_id", subjectID)
		return directory.DefaultSettings(subjectID)
	}
	return settings
}

// responseTimeout resolves the acknowledgment window: the subject's override
// when set, the tier default otherwise.
func responseTimeout(tier alert.Tier, settings directory.Settings) time.Duration {
	if settings.ResponseTimeoutSeconds > 0 {
		return time.Duration(settings.ResponseTimeoutSeconds) * time.Second
	}
	return tier.DefaultResponseTimeout()
}
