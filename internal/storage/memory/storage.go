package memorystorage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lomoval/notecal/internal/storage"
)

type Storage struct {
	mu       sync.RWMutex
	notes    map[string]storage.Note
	settings map[string]storage.Settings // by owner ID
	users    map[string]storage.User
}

func New() *Storage {
	return &Storage{
		notes:    make(map[string]storage.Note),
		settings: make(map[string]storage.Settings),
		users:    make(map[string]storage.User),
	}
}

func (s *Storage) Connect(_ context.Context) error {
	return nil
}

func (s *Storage) Close(_ context.Context) error {
	return nil
}

func (s *Storage) AddNote(_ context.Context, n *storage.Note) error {
	if err := storage.CheckNote(n); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[n.ID]; ok {
		return fmt.Errorf("duplicate ID %q: %w", n.ID, storage.ErrDuplicateNoteID)
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	s.notes[n.ID] = *n
	return nil
}

func (s *Storage) GetNote(_ context.Context, ownerID, id string) (storage.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	if !ok || n.OwnerID != ownerID {
		return storage.Note{}, fmt.Errorf("failed to get note with id %q: %w", id, storage.ErrNotFoundNote)
	}
	return n, nil
}

func (s *Storage) UpdateNote(
	_ context.Context,
	ownerID, id string,
	patch storage.NotePatch,
) (storage.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok || n.OwnerID != ownerID {
		return storage.Note{}, fmt.Errorf("failed to update note with id %q: %w", id, storage.ErrNotFoundNote)
	}
	patch.Apply(&n)
	if err := storage.CheckNote(&n); err != nil {
		return storage.Note{}, err
	}
	s.notes[id] = n
	return n, nil
}

func (s *Storage) RemoveNote(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok || n.OwnerID != ownerID {
		return fmt.Errorf("failed to remove note with id %q: %w", id, storage.ErrNotFoundNote)
	}
	delete(s.notes, id)
	return nil
}

func (s *Storage) ListNotes(_ context.Context, ownerID string) ([]storage.Note, error) {
	notes := s.selectNotes(func(n storage.Note) bool { return n.OwnerID == ownerID })
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].Time.After(notes[j].Time) })
	return notes, nil
}

// Select in range [start:end).
func (s *Storage) GetNotesInRange(
	_ context.Context,
	ownerID string,
	start, end time.Time,
) ([]storage.Note, error) {
	notes := s.selectNotes(func(n storage.Note) bool {
		return n.OwnerID == ownerID && !n.Time.Before(start) && n.Time.Before(end)
	})
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].Time.Before(notes[j].Time) })
	return notes, nil
}

func (s *Storage) FindSettings(_ context.Context, ownerID string) (storage.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.settings[ownerID]
	if !ok {
		return storage.Settings{}, fmt.Errorf("owner %q: %w", ownerID, storage.ErrNotFoundSettings)
	}
	return st, nil
}

func (s *Storage) AddSettings(_ context.Context, st *storage.Settings) error {
	if st.OwnerID == "" {
		return storage.ErrOwnerIsNotProvided
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.settings[st.OwnerID]; ok {
		return fmt.Errorf("owner %q: %w", st.OwnerID, storage.ErrDuplicateSettings)
	}
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	st.UpdatedAt = time.Now().UTC()
	s.settings[st.OwnerID] = *st
	return nil
}

func (s *Storage) UpdateSettings(
	_ context.Context,
	ownerID string,
	patch storage.SettingsPatch,
) (storage.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.settings[ownerID]
	if !ok {
		return storage.Settings{}, fmt.Errorf("owner %q: %w", ownerID, storage.ErrNotFoundSettings)
	}
	patch.Apply(&st)
	st.UpdatedAt = time.Now().UTC()
	s.settings[ownerID] = st
	return st, nil
}

func (s *Storage) ListPushSubscribers(_ context.Context) ([]storage.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]storage.Settings, 0)
	for _, st := range s.settings {
		if st.PushToken != "" {
			res = append(res, st)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].OwnerID < res[j].OwnerID })
	return res, nil
}

func (s *Storage) AddUser(_ context.Context, u *storage.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return fmt.Errorf("email %q: %w", u.Email, storage.ErrDuplicateUser)
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC()
	s.users[u.ID] = *u
	return nil
}

func (s *Storage) GetUser(_ context.Context, id string) (storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return storage.User{}, fmt.Errorf("user %q: %w", id, storage.ErrNotFoundUser)
	}
	return u, nil
}

func (s *Storage) FindUserByEmail(_ context.Context, email string) (storage.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return storage.User{}, fmt.Errorf("email %q: %w", email, storage.ErrNotFoundUser)
}

func (s *Storage) selectNotes(match func(storage.Note) bool) []storage.Note {
	notes := make([]storage.Note, 0)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.notes {
		if match(n) {
			notes = append(notes, n)
		}
	}
	return notes
}
