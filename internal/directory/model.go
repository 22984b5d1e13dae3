package directory

import (
	"fmt"
	"time"
)

// EmergencyContact is a secondary contact notified when an alert escalates.
// Contacts are owned exclusively by their subject's list; deletion is
// immediate and unconditional.
type EmergencyContact struct {
	ID           string    `json:"id"`
	SubjectID    string    `json:"subject_id"`
	Name         string    `json:"name"`
	Relationship string    `json:"relationship,omitempty"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Priority     int       `json:"priority"` // lower = contacted first
	AddedAt      time.Time `json:"added_at"`
}

// QuietHours is a wall-clock window (subject-local) during which moderate
// alerts do not send notifications. Start and End are "HH:MM"; a window may
// wrap past midnight (e.g. 22:00-07:00).
type QuietHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Contains reports whether t's wall-clock time falls inside the window.
func (q QuietHours) Contains(t time.Time) bool {
	start, err := parseWallClock(q.Start)
	if err != nil {
		return false
	}
	end, err := parseWallClock(q.End)
	if err != nil {
		return false
	}

	minute := t.Hour()*60 + t.Minute()
	if start <= end {
		return minute >= start && minute < end
	}
	// Window wraps past midnight.
	return minute >= start || minute < end
}

// Validate checks both bounds parse as HH:MM.
func (q QuietHours) Validate() error {
	if _, err := parseWallClock(q.Start); err != nil {
		return fmt.Errorf("quiet hours start: %w", err)
	}
	if _, err := parseWallClock(q.End); err != nil {
		return fmt.Errorf("quiet hours end: %w", err)
	}
	return nil
}

func parseWallClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid wall-clock time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Settings are a subject's notification preferences. Absence of settings is
// never an error; DefaultSettings applies.
type Settings struct {
	SubjectID                string      `json:"subject_id"`
	EmailEnabled             bool        `json:"email_enabled"`
	SMSEnabled               bool        `json:"sms_enabled"`
	EmergencyContactsEnabled bool        `json:"emergency_contacts_enabled"`
	ResponseTimeoutSeconds   int         `json:"response_timeout_seconds,omitempty"` // 0 = tier default
	QuietHours               *QuietHours `json:"quiet_hours,omitempty"`
	UpdatedAt                time.Time   `json:"updated_at,omitempty"`
}

// DefaultSettings returns the preferences used when a subject has none
// stored: every channel enabled, tier-default timeouts, no quiet hours.
func DefaultSettings(subjectID string) Settings {
	return Settings{
		SubjectID:                subjectID,
		EmailEnabled:             true,
		SMSEnabled:               true,
		EmergencyContactsEnabled: true,
	}
}

// Validate checks settings for correctness.
func (s Settings) Validate() error {
	if s.ResponseTimeoutSeconds < 0 {
		return fmt.Errorf("response timeout must not be negative, got %d", s.ResponseTimeoutSeconds)
	}
	if s.QuietHours != nil {
		return s.QuietHours.Validate()
	}
	return nil
}
