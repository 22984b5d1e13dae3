// Package ingest consumes risk assessments from a Kafka topic and feeds
// them into the alert engine. It is an optional inbound path next to the
// HTTP API; deployments without a broker simply never construct a Consumer.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/pulsewatch/internal/alert"
)

// Processor is the engine-side contract the consumer drives.
type Processor interface {
	ProcessAssessment(
		ctx context.Context,
		subjectID string,
		reading alert.VitalReading,
		assessment alert.RiskAssessment,
		contact alert.SubjectContact,
	) (*alert.Alert, error)
}

// envelope is the wire shape of one assessment message.
type envelope struct {
	SubjectID  string               `json:"subject_id"`
	Reading    alert.VitalReading   `json:"reading"`
	Assessment alert.RiskAssessment `json:"assessment"`
	Contact    alert.SubjectContact `json:"contact"`
}

type fetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads assessment envelopes from Kafka and runs each through the
// processor. Malformed and failed messages are logged and committed rather
// than retried, matching the at-most-once posture of the notification path.
type Consumer struct {
	reader    fetcher
	processor Processor
	logger    log.Logger

	// Fetch retry bounds; zero values fall back to the package defaults.
	backoffMin time.Duration
	backoffMax time.Duration
}

// NewConsumer creates a Kafka consumer for the given brokers, topic, and
// consumer group. logger may be nil.
func NewConsumer(brokers []string, topic, groupID string, processor Processor, logger log.Logger) *Consumer {
	if len(brokers) == 0 || topic == "" {
		panic(xerrors.New("brokers and topic are required"))
	}
	if processor == nil {
		panic(xerrors.New("processor is required"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       1 << 20,
		MaxWait:        time.Second,
		CommitInterval: 0, // explicit commits only
	})
	return &Consumer{
		reader:    reader,
		processor: processor,
		logger:    logger.With("component", "ingest"),
	}
}

const (
	fetchBackoffMin = time.Second
	fetchBackoffMax = 30 * time.Second
)

// Run consumes until ctx is cancelled, then closes the reader. Transient
// fetch errors are retried with capped exponential backoff; a closed reader
// ends the run.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close() //nolint:errcheck

	minBackoff, maxBackoff := c.backoffMin, c.backoffMax
	if minBackoff <= 0 {
		minBackoff = fetchBackoffMin
	}
	if maxBackoff <= 0 {
		maxBackoff = fetchBackoffMax
	}

	backoff := minBackoff
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return err
			}
			c.logger.Error(ctx, err, "fetch failed, backing off",
				"backoff", backoff.String(),
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = minBackoff

		c.handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Error(ctx, err, "offset commit failed",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	var env envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		c.logger.Warn(ctx, "skipping malformed assessment message",
			"offset", msg.Offset,
			"partition", msg.Partition,
			"error", err.Error(),
		)
		return
	}
	if env.SubjectID == "" {
		c.logger.Warn(ctx, "skipping assessment message without subject id",
			"offset", msg.Offset,
			"partition", msg.Partition,
		)
		return
	}

	al, err := c.processor.ProcessAssessment(ctx, env.SubjectID, env.Reading, env.Assessment, env.Contact)
	if err != nil {
		c.logger.Error(ctx, err, "assessment processing failed",
			"subject_id", env.SubjectID,
			"offset", msg.Offset,
		)
		return
	}
	if al != nil {
		c.logger.Info(ctx, "alert created from ingested assessment",
			"subject_id", env.SubjectID,
			"alert_id", al.ID,
			"tier", string(al.Tier),
		)
	}
}
