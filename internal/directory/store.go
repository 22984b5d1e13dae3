package directory

import "context"

// Store is the persistence interface for contacts and settings.
type Store interface {
	// Contacts returns the subject's emergency contacts in priority order
	// (lowest priority value first).
	Contacts(ctx context.Context, subjectID string) ([]EmergencyContact, error)

	// AddContact appends a contact to the subject's list.
	AddContact(ctx context.Context, c EmergencyContact) error

	// RemoveContact deletes the contact. ok is false if the contact does not
	// exist under that subject.
	RemoveContact(ctx context.Context, subjectID, contactID string) (bool, error)

	// Settings returns the subject's preferences, or DefaultSettings when
	// none are stored.
	Settings(ctx context.Context, subjectID string) (Settings, error)

	// PutSettings stores the subject's preferences, replacing any previous.
	PutSettings(ctx context.Context, s Settings) error
}
