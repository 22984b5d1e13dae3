package cfg

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

// Config adds service-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	EmailGatewayURL       string
	EmailFrom             string
	SMSGatewayURL         string
	SMSSender             string
	DatabaseURL           string
	KafkaBrokers          string
	KafkaTopic            string
	KafkaGroupID          string
	RetentionHours        int
	CleanupMinutes        int
	VocabularyFile        string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.EmailGatewayURL, "email-gateway-url", "", "email gateway URL for alert notifications (empty = disabled)")
	fs.StringVar(&c.EmailFrom, "email-from", "alerts@pulsewatch.local", "sender address for alert emails")
	fs.StringVar(&c.SMSGatewayURL, "sms-gateway-url", "", "SMS gateway URL for alert notifications (empty = disabled)")
	fs.StringVar(&c.SMSSender, "sms-sender", "pulsewatch", "sender id for alert SMS messages")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL for contact and settings storage (empty = in-memory store)")
	fs.StringVar(&c.KafkaBrokers, "kafka-brokers", "", "comma-separated Kafka broker list for assessment ingest (empty = disabled)")
	fs.StringVar(&c.KafkaTopic, "kafka-topic", "assessments", "Kafka topic to consume assessments from")
	fs.StringVar(&c.KafkaGroupID, "kafka-group-id", "pulsewatch", "Kafka consumer group id")
	fs.IntVar(&c.RetentionHours, "retention-hours", 24, "hours to retain resolved and stale alerts (1..168)")
	fs.IntVar(&c.CleanupMinutes, "cleanup-minutes", 60, "minutes between retention sweeps (1..1440)")
	fs.StringVar(&c.VocabularyFile, "vocabulary-file", "", "YAML file overriding the condition vocabulary (empty = built-in defaults)")
}

// Brokers returns the Kafka broker list split for consumption, nil when
// ingest is disabled.
func (c *Config) Brokers() []string {
	if c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.EmailGatewayURL != "" && c.EmailFrom == "" {
		errs = append(errs, errors.New("EMAIL_FROM is required when EMAIL_GATEWAY_URL is set"))
	}
	if c.SMSGatewayURL != "" && c.SMSSender == "" {
		errs = append(errs, errors.New("SMS_SENDER is required when SMS_GATEWAY_URL is set"))
	}

	if c.KafkaBrokers != "" {
		if c.KafkaTopic == "" {
			errs = append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
		}
		if c.KafkaGroupID == "" {
			errs = append(errs, errors.New("KAFKA_GROUP_ID is required when KAFKA_BROKERS is set"))
		}
	}

	if c.RetentionHours <= 0 || c.RetentionHours > 168 {
		errs = append(errs, fmt.Errorf("invalid RETENTION_HOURS %d (must be 1..168)", c.RetentionHours))
	}
	if c.CleanupMinutes <= 0 || c.CleanupMinutes > 1440 {
		errs = append(errs, fmt.Errorf("invalid CLEANUP_MINUTES %d (must be 1..1440)", c.CleanupMinutes))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
