// Package pgstore provides a PostgreSQL implementation of directory.Store.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/pulsewatch/internal/directory"
)

var tracer = otel.Tracer("github.com/linnemanlabs/pulsewatch/internal/directory/pgstore")

//go:embed schema.sql
var schema string

// Store persists emergency contacts and alert settings in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Contacts returns the subject's contacts in priority order.
func (s *Store) Contacts(ctx context.Context, subjectID string) ([]directory.EmergencyContact, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Contacts", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT id, subject_id, name, relationship, email, phone, priority, added_at
		FROM emergency_contacts WHERE subject_id = $1 ORDER BY priority, added_at`
	rows, err := s.pool.Query(ctx, query, subjectID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	var out []directory.EmergencyContact
	for rows.Next() {
		var c directory.EmergencyContact
		if err := rows.Scan(&c.ID, &c.SubjectID, &c.Name, &c.Relationship, &c.Email, &c.Phone, &c.Priority, &c.AddedAt); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return out, nil
}

// AddContact inserts a contact.
func (s *Store) AddContact(ctx context.Context, c directory.EmergencyContact) error {
	ctx, span := tracer.Start(ctx, "pgstore.AddContact", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	query := `INSERT INTO emergency_contacts
		(id, subject_id, name, relationship, email, phone, priority, added_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := s.pool.Exec(ctx, query,
		c.ID, c.SubjectID, c.Name, c.Relationship, c.Email, c.Phone, c.Priority, c.AddedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

// RemoveContact deletes the contact under the given subject.
func (s *Store) RemoveContact(ctx context.Context, subjectID, contactID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.RemoveContact", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "DELETE"),
	))
	defer span.End()

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM emergency_contacts WHERE id = $1 AND subject_id = $2`,
		contactID, subjectID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("delete contact: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Settings returns the subject's preferences, defaulting when none exist.
func (s *Store) Settings(ctx context.Context, subjectID string) (directory.Settings, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Settings", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT subject_id, email_enabled, sms_enabled, emergency_contacts_enabled,
		response_timeout_seconds, quiet_hours_start, quiet_hours_end, updated_at
		FROM alert_settings WHERE subject_id = $1`

	var (
		st         directory.Settings
		quietStart *string
		quietEnd   *string
	)
	err := s.pool.QueryRow(ctx, query, subjectID).Scan(
		&st.SubjectID, &st.EmailEnabled, &st.SMSEnabled, &st.EmergencyContactsEnabled,
		&st.ResponseTimeoutSeconds, &quietStart, &quietEnd, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return directory.DefaultSettings(subjectID), nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return directory.Settings{}, fmt.Errorf("query settings: %w", err)
	}

	if quietStart != nil && quietEnd != nil {
		st.QuietHours = &directory.QuietHours{Start: *quietStart, End: *quietEnd}
	}
	return st, nil
}

// PutSettings upserts the subject's preferences.
func (s *Store) PutSettings(ctx context.Context, st directory.Settings) error {
	ctx, span := tracer.Start(ctx, "pgstore.PutSettings", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	var quietStart, quietEnd *string
	if st.QuietHours != nil {
		quietStart = &st.QuietHours.Start
		quietEnd = &st.QuietHours.End
	}

	query := `INSERT INTO alert_settings (
		subject_id, email_enabled, sms_enabled, emergency_contacts_enabled,
		response_timeout_seconds, quiet_hours_start, quiet_hours_end, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	ON CONFLICT (subject_id) DO UPDATE SET
		email_enabled              = EXCLUDED.email_enabled,
		sms_enabled                = EXCLUDED.sms_enabled,
		emergency_contacts_enabled = EXCLUDED.emergency_contacts_enabled,
		response_timeout_seconds   = EXCLUDED.response_timeout_seconds,
		quiet_hours_start          = EXCLUDED.quiet_hours_start,
		quiet_hours_end            = EXCLUDED.quiet_hours_end,
		updated_at                 = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		st.SubjectID, st.EmailEnabled, st.SMSEnabled, st.EmergencyContactsEnabled,
		st.ResponseTimeoutSeconds, quietStart, quietEnd, st.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
