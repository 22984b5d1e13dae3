// Package alert defines the alert domain model: severity tiers, the alert
// record with its immutable trigger snapshots, the severity classifier, and
// the Store interface for the alert registry.
package alert
