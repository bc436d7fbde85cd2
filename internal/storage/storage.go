package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDuplicateNoteID    = errors.New("note with same ID exists")
	ErrNotFoundNote       = errors.New("note not found")
	ErrNotFoundSettings   = errors.New("settings not found")
	ErrDuplicateSettings  = errors.New("settings for owner exist")
	ErrNotFoundUser       = errors.New("user not found")
	ErrDuplicateUser      = errors.New("user with same email exists")
	ErrIncorrectNoteTime  = errors.New("incorrect note time")
	ErrIncorrectNoteKind  = errors.New("incorrect note kind")
	ErrOwnerIsNotProvided = errors.New("owner is not provided")
)

// Storage persists notes, settings and users. Every note and settings
// operation is scoped by the owner ID.
type Storage interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error

	AddNote(ctx context.Context, n *Note) error
	GetNote(ctx context.Context, ownerID, id string) (Note, error)
	UpdateNote(ctx context.Context, ownerID, id string, patch NotePatch) (Note, error)
	RemoveNote(ctx context.Context, ownerID, id string) error
	// ListNotes returns owner notes ordered by time, newest first.
	ListNotes(ctx context.Context, ownerID string) ([]Note, error)
	// GetNotesInRange returns owner notes with time in [start, end), oldest first.
	GetNotesInRange(ctx context.Context, ownerID string, start, end time.Time) ([]Note, error)

	FindSettings(ctx context.Context, ownerID string) (Settings, error)
	AddSettings(ctx context.Context, s *Settings) error
	UpdateSettings(ctx context.Context, ownerID string, patch SettingsPatch) (Settings, error)
	// ListPushSubscribers returns settings documents with a push token.
	ListPushSubscribers(ctx context.Context) ([]Settings, error)

	AddUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
}

// CheckNote validates a note before it is stored and normalizes its kind and time.
func CheckNote(n *Note) error {
	if n.OwnerID == "" {
		return ErrOwnerIsNotProvided
	}
	if n.Time.IsZero() {
		return ErrIncorrectNoteTime
	}
	if !n.Kind.Valid() {
		return ErrIncorrectNoteKind
	}
	n.Kind = n.Kind.OrGeneral()
	n.Time = n.Time.UTC()
	return nil
}
