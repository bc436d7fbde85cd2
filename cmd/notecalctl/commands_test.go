package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/lomoval/notecal/internal/app"
	"github.com/lomoval/notecal/internal/storage"
	memorystorage "github.com/lomoval/notecal/internal/storage/memory"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func run(t *testing.T, a *app.App, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(func(string) (*app.App, func(), error) {
		return a, func() {}, nil
	})
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	a, err := app.New(memorystorage.New(), nil, nil, nil, app.Config{})
	require.NoError(t, err)

	out, err := run(t, a, "user", "add", "--name", "Ana", "--email", "ana@example.com", "--password", "long-password")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "user ana@example.com created with id "))

	_, err = run(t, a, "user", "add", "--email", "bad", "--password", "x")
	require.Error(t, err)

	u, err := a.Storage.FindUserByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	at := time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC) // 12:00 in Mexico City
	_, err = a.CreateNote(context.Background(), u.ID, app.NoteInput{Text: "lunch", Kind: storage.KindLunchOut, Time: &at})
	require.NoError(t, err)

	t.Run("json report", func(t *testing.T) {
		out, err := run(t, a, "report", "--user", "ana@example.com", "--date", "2024-03-05", "--format", "json")
		require.NoError(t, err)
		var r app.DayReport
		require.NoError(t, json.Unmarshal([]byte(out), &r))
		require.Len(t, r.Entries, 1)
		require.Equal(t, "On Time", string(r.Entries[0].Label))
	})

	t.Run("yaml report by id", func(t *testing.T) {
		out, err := run(t, a, "report", "--user", u.ID, "--date", "2024-03-05")
		require.NoError(t, err)
		var r map[string]interface{}
		require.NoError(t, yaml.Unmarshal([]byte(out), &r))
		require.Equal(t, "2024-03-05", r["date"])
		schedule, ok := r["schedule"].(map[string]interface{})
		require.True(t, ok)
		require.Equal(t, "08:00", schedule["shiftStart"])
	})

	t.Run("errors", func(t *testing.T) {
		_, err := run(t, a, "report", "--user", "nobody@example.com", "--date", "2024-03-05")
		require.Error(t, err)
		_, err = run(t, a, "report", "--user", u.ID, "--date", "yesterday")
		require.Error(t, err)
		_, err = run(t, a, "report", "--user", u.ID, "--date", "2024-03-05", "--format", "xml")
		require.Error(t, err)
		_, err = run(t, a, "report", "--date", "2024-03-05")
		require.Error(t, err)
	})

	t.Run("export", func(t *testing.T) {
		out, err := run(t, a, "export", "--user", "ana@example.com")
		require.NoError(t, err)
		require.Contains(t, out, "BEGIN:VEVENT")
		require.Contains(t, out, "SUMMARY:Lunch out")
	})
}
