package alert

import "time"

// Tier is the alert severity classification.
type Tier string

const (
	// TierNone means the assessment does not warrant an alert.
	TierNone Tier = "none"

	// TierModerate alerts the subject by email only.
	TierModerate Tier = "moderate"

	// TierHigh alerts the subject on every channel.
	TierHigh Tier = "high"

	// TierCritical alerts the subject on every channel and notifies
	// emergency contacts immediately.
	TierCritical Tier = "critical"
)

// rank orders tiers by urgency so upgrade rules can compare them.
func (t Tier) rank() int {
	switch t {
	case TierCritical:
		return 3
	case TierHigh:
		return 2
	case TierModerate:
		return 1
	case TierNone:
		return 0
	}
	return 0
}

// AtLeast reports whether t is at least as urgent as other.
func (t Tier) AtLeast(other Tier) bool {
	return t.rank() >= other.rank()
}

// DefaultResponseTimeout is how long the subject has to acknowledge an alert
// of this tier before escalation, absent a per-subject override.
func (t Tier) DefaultResponseTimeout() time.Duration {
	switch t {
	case TierCritical:
		return 30 * time.Second
	case TierHigh:
		return 120 * time.Second
	case TierModerate:
		return 300 * time.Second
	case TierNone:
		return 0
	}
	return 0
}

// VitalReading is one set of physiological measurements for a subject.
type VitalReading struct {
	HeartRate       int       `json:"heart_rate"`
	OxygenSat       float64   `json:"oxygen_saturation"`
	SystolicBP      int       `json:"systolic_bp"`
	DiastolicBP     int       `json:"diastolic_bp"`
	TemperatureC    float64   `json:"temperature_c"`
	RespiratoryRate int       `json:"respiratory_rate"`
	RecordedAt      time.Time `json:"recorded_at"`
}

// RiskAssessment is the risk assessor's verdict on a reading. The engine only
// consumes this shape; how it is produced is the assessor's concern.
type RiskAssessment struct {
	OverallRisk     string    `json:"overall_risk"`
	Conditions      []string  `json:"conditions"`
	Score           float64   `json:"score"`
	Recommendations []string  `json:"recommendations,omitempty"`
	AssessedAt      time.Time `json:"assessed_at"`
}

// SubjectContact is how the monitored subject can be reached. Either address
// may be empty; the dispatcher skips channels with no address.
type SubjectContact struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Alert is one alert record, created per triggering assessment.
//
// The reading, assessment, and contact fields are snapshots taken at trigger
// time and are never re-fetched; the alert must reflect what was true when it
// fired. Acknowledged and Escalated are independent monotonic booleans: an
// escalated alert can still be acknowledged afterwards.
type Alert struct {
	ID             string         `json:"id"`
	SubjectID      string         `json:"subject_id"`
	Tier           Tier           `json:"tier"`
	Reading        VitalReading   `json:"reading"`
	Assessment     RiskAssessment `json:"assessment"`
	Contact        SubjectContact `json:"contact"`
	CreatedAt      time.Time      `json:"created_at"`
	Acknowledged   bool           `json:"acknowledged"`
	AcknowledgedAt time.Time      `json:"acknowledged_at,omitempty"`
	Escalated      bool           `json:"escalated"`
	EscalatedAt    time.Time      `json:"escalated_at,omitempty"`
}
