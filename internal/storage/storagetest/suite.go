// Package storagetest holds behaviour tests shared by every storage implementation.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/lomoval/notecal/internal/storage"
	"github.com/stretchr/testify/require"
)

type Factory func(t *testing.T) storage.Storage

func Run(t *testing.T, newStorage Factory) {
	t.Helper()
	ctx := context.Background()
	initDate := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	t.Run("add note", func(t *testing.T) {
		s := newStorage(t)
		n := storage.Note{OwnerID: "owner", Time: initDate.Add(9 * time.Hour), Text: "check in"}

		require.NoError(t, s.AddNote(ctx, &n))
		require.NotEmpty(t, n.ID)
		require.Equal(t, storage.KindGeneral, n.Kind)

		got, err := s.GetNote(ctx, "owner", n.ID)
		require.NoError(t, err)
		compareNotes(t, n, got)
	})

	t.Run("note of other owner is hidden", func(t *testing.T) {
		s := newStorage(t)
		n := storage.Note{OwnerID: "owner", Time: initDate, Text: "private"}
		require.NoError(t, s.AddNote(ctx, &n))

		_, err := s.GetNote(ctx, "stranger", n.ID)
		require.ErrorIs(t, err, storage.ErrNotFoundNote)
		require.ErrorIs(t, s.RemoveNote(ctx, "stranger", n.ID), storage.ErrNotFoundNote)
	})

	t.Run("update note", func(t *testing.T) {
		s := newStorage(t)
		n := storage.Note{OwnerID: "owner", Time: initDate.Add(time.Hour), Text: "draft"}
		require.NoError(t, s.AddNote(ctx, &n))

		text := "final"
		kind := storage.KindLunchOut
		image := "img-1"
		updated, err := s.UpdateNote(ctx, "owner", n.ID, storage.NotePatch{Text: &text, Kind: &kind, ImageID: &image})
		require.NoError(t, err)
		require.Equal(t, "final", updated.Text)
		require.Equal(t, storage.KindLunchOut, updated.Kind)
		require.Equal(t, "img-1", updated.ImageID)

		got, err := s.GetNote(ctx, "owner", n.ID)
		require.NoError(t, err)
		compareNotes(t, updated, got)
	})

	t.Run("remove note", func(t *testing.T) {
		s := newStorage(t)
		n := storage.Note{OwnerID: "owner", Time: initDate, Text: "gone"}
		require.NoError(t, s.AddNote(ctx, &n))

		require.NoError(t, s.RemoveNote(ctx, "owner", n.ID))
		_, err := s.GetNote(ctx, "owner", n.ID)
		require.ErrorIs(t, err, storage.ErrNotFoundNote)
	})

	t.Run("list notes newest first", func(t *testing.T) {
		s := newStorage(t)
		for i := 0; i < 5; i++ {
			n := storage.Note{OwnerID: "owner", Time: initDate.Add(time.Duration(i) * time.Hour), Text: "n"}
			require.NoError(t, s.AddNote(ctx, &n))
		}
		other := storage.Note{OwnerID: "other", Time: initDate, Text: "n"}
		require.NoError(t, s.AddNote(ctx, &other))

		list, err := s.ListNotes(ctx, "owner")
		require.NoError(t, err)
		require.Len(t, list, 5)
		for i := 1; i < len(list); i++ {
			require.True(t, list[i-1].Time.After(list[i].Time))
		}
	})

	t.Run("notes in range", func(t *testing.T) {
		s := newStorage(t)
		for i := 0; i < 60; i++ {
			n := storage.Note{OwnerID: "owner", Time: initDate.AddDate(0, 0, i).Add(10 * time.Hour), Text: "n"}
			require.NoError(t, s.AddNote(ctx, &n))
		}

		list, err := s.GetNotesInRange(ctx, "owner", initDate, initDate.AddDate(0, 0, 1))
		require.NoError(t, err)
		require.Len(t, list, 1)

		list, err = s.GetNotesInRange(ctx, "owner", initDate, initDate.AddDate(0, 0, 7))
		require.NoError(t, err)
		require.Len(t, list, 7)
		require.True(t, list[0].Time.Before(list[6].Time))
	})

	t.Run("settings", func(t *testing.T) {
		s := newStorage(t)
		_, err := s.FindSettings(ctx, "owner")
		require.ErrorIs(t, err, storage.ErrNotFoundSettings)

		st := storage.Settings{OwnerID: "owner", Timezone: "America/Mexico_City"}
		require.NoError(t, s.AddSettings(ctx, &st))
		require.NotEmpty(t, st.ID)
		require.ErrorIs(t, s.AddSettings(ctx, &storage.Settings{OwnerID: "owner"}), storage.ErrDuplicateSettings)

		token := "push-token"
		wd := `{"start":"09:00"}`
		updated, err := s.UpdateSettings(ctx, "owner", storage.SettingsPatch{PushToken: &token, WorkingDay: &wd})
		require.NoError(t, err)
		require.Equal(t, "push-token", updated.PushToken)
		require.Equal(t, "America/Mexico_City", updated.Timezone)

		got, err := s.FindSettings(ctx, "owner")
		require.NoError(t, err)
		require.Equal(t, wd, got.WorkingDay)

		subscribers, err := s.ListPushSubscribers(ctx)
		require.NoError(t, err)
		require.Len(t, subscribers, 1)
		require.Equal(t, "owner", subscribers[0].OwnerID)
	})

	t.Run("users", func(t *testing.T) {
		s := newStorage(t)
		u := storage.User{Email: " Ana@Example.com ", Name: "Ana", PasswordHash: "hash"}
		require.NoError(t, s.AddUser(ctx, &u))
		require.NotEmpty(t, u.ID)
		require.ErrorIs(t, s.AddUser(ctx, &storage.User{Email: "ana@example.com", PasswordHash: "x"}), storage.ErrDuplicateUser)

		got, err := s.FindUserByEmail(ctx, "ANA@example.com")
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)

		got, err = s.GetUser(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "Ana", got.Name)

		_, err = s.FindUserByEmail(ctx, "bob@example.com")
		require.ErrorIs(t, err, storage.ErrNotFoundUser)
	})
}

// RunNegative checks validation errors shared by all implementations.
func RunNegative(t *testing.T, newStorage Factory) {
	t.Helper()
	ctx := context.Background()

	t.Run("add note with same id", func(t *testing.T) {
		s := newStorage(t)
		n := storage.Note{OwnerID: "owner", Time: time.Now(), Text: "n"}
		require.NoError(t, s.AddNote(ctx, &n))
		require.ErrorIs(t, s.AddNote(ctx, &n), storage.ErrDuplicateNoteID)
	})

	t.Run("update not exist note", func(t *testing.T) {
		s := newStorage(t)
		_, err := s.UpdateNote(ctx, "owner", "___not_exists___", storage.NotePatch{})
		require.ErrorIs(t, err, storage.ErrNotFoundNote)
	})

	t.Run("note without time", func(t *testing.T) {
		s := newStorage(t)
		require.ErrorIs(t, s.AddNote(ctx, &storage.Note{OwnerID: "owner"}), storage.ErrIncorrectNoteTime)
	})

	t.Run("note with unknown kind", func(t *testing.T) {
		s := newStorage(t)
		n := storage.Note{OwnerID: "owner", Time: time.Now(), Kind: "coffee-break"}
		require.ErrorIs(t, s.AddNote(ctx, &n), storage.ErrIncorrectNoteKind)
	})

	t.Run("note without owner", func(t *testing.T) {
		s := newStorage(t)
		require.ErrorIs(t, s.AddNote(ctx, &storage.Note{Time: time.Now()}), storage.ErrOwnerIsNotProvided)
	})
}

func compareNotes(t *testing.T, expected, actual storage.Note) {
	t.Helper()
	require.Equal(t, expected.ID, actual.ID)
	require.Equal(t, expected.OwnerID, actual.OwnerID)
	require.Equal(t, expected.Text, actual.Text)
	require.Equal(t, expected.Kind, actual.Kind)
	require.Equal(t, expected.ImageID, actual.ImageID)
	require.Equal(t, expected.VideoID, actual.VideoID)
	require.True(t, expected.Time.Equal(actual.Time), "%s != %s", expected.Time, actual.Time)
}
