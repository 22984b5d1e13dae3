package notify

import (
	"fmt"
	"strings"

	"github.com/linnemanlabs/pulsewatch/internal/alert"
)

// Messages are built from the alert's snapshots taken at trigger time, never
// from re-fetched state.

func buildSubjectLine(al *alert.Alert, escalated bool) string {
	if escalated {
		return fmt.Sprintf("ESCALATED health alert for %s", al.Contact.Name)
	}
	return fmt.Sprintf("%s health alert for %s", strings.ToUpper(string(al.Tier)), al.Contact.Name)
}

func buildEmailBody(al *alert.Alert, escalated bool) string {
	var b strings.Builder

	if escalated {
		fmt.Fprintf(&b, "This alert has not been acknowledged and has been escalated.\n\n")
	}
	fmt.Fprintf(&b, "Alert %s (%s) raised at %s.\n\n", al.ID, strings.ToUpper(string(al.Tier)), al.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"))

	fmt.Fprintf(&b, "Readings:\n")
	fmt.Fprintf(&b, "  Heart rate:       %d bpm\n", al.Reading.HeartRate)
	fmt.Fprintf(&b, "  Oxygen:           %.1f%%\n", al.Reading.OxygenSat)
	fmt.Fprintf(&b, "  Blood pressure:   %d/%d mmHg\n", al.Reading.SystolicBP, al.Reading.DiastolicBP)
	fmt.Fprintf(&b, "  Temperature:      %.1f C\n", al.Reading.TemperatureC)
	fmt.Fprintf(&b, "  Respiratory rate: %d /min\n", al.Reading.RespiratoryRate)

	if len(al.Assessment.Conditions) > 0 {
		fmt.Fprintf(&b, "\nConditions: %s\n", strings.Join(al.Assessment.Conditions, ", "))
	}
	for _, rec := range al.Assessment.Recommendations {
		fmt.Fprintf(&b, "- %s\n", rec)
	}

	b.WriteString("\nPlease acknowledge this alert.\n")
	return b.String()
}

func buildSMSBody(al *alert.Alert, escalated bool) string {
	prefix := strings.ToUpper(string(al.Tier))
	if escalated {
		prefix = "ESCALATED"
	}
	msg := fmt.Sprintf("%s health alert: HR %d, SpO2 %.0f%%, BP %d/%d. Please acknowledge.",
		prefix, al.Reading.HeartRate, al.Reading.OxygenSat, al.Reading.SystolicBP, al.Reading.DiastolicBP)
	return msg
}

func buildContactSubjectLine(al *alert.Alert, escalated bool) string {
	if escalated {
		return fmt.Sprintf("Emergency: unacknowledged %s alert for %s", strings.ToUpper(string(al.Tier)), al.Contact.Name)
	}
	return fmt.Sprintf("Emergency: %s alert for %s", strings.ToUpper(string(al.Tier)), al.Contact.Name)
}

func buildContactEmailBody(al *alert.Alert, escalated bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are listed as an emergency contact for %s.\n\n", al.Contact.Name)
	if escalated {
		fmt.Fprintf(&b, "A %s alert raised at %s has not been acknowledged within its response window.\n\n",
			strings.ToUpper(string(al.Tier)), al.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"))
	} else {
		fmt.Fprintf(&b, "A %s alert was raised for them at %s.\n\n",
			strings.ToUpper(string(al.Tier)), al.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"))
	}
	if len(al.Assessment.Conditions) > 0 {
		fmt.Fprintf(&b, "Conditions: %s\n", strings.Join(al.Assessment.Conditions, ", "))
	}
	fmt.Fprintf(&b, "Readings: HR %d bpm, SpO2 %.1f%%, BP %d/%d mmHg, temp %.1f C.\n\n",
		al.Reading.HeartRate, al.Reading.OxygenSat, al.Reading.SystolicBP, al.Reading.DiastolicBP, al.Reading.TemperatureC)
	b.WriteString("Please check on them as soon as possible.\n")
	return b.String()
}

func buildContactSMSBody(al *alert.Alert, escalated bool) string {
	if escalated {
		return fmt.Sprintf("Emergency: %s has an unacknowledged %s health alert. Please check on them.",
			al.Contact.Name, strings.ToUpper(string(al.Tier)))
	}
	return fmt.Sprintf("Emergency: %s has a %s health alert. Please check on them.",
		al.Contact.Name, strings.ToUpper(string(al.Tier)))
}
