// Package engine is the business boundary for the alert lifecycle. It
// orchestrates classification, the alert store, notification fan-out, and the
// escalation scheduler behind ProcessAssessment, Acknowledge, and Cleanup.
package engine
