package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/lomoval/notecal/internal/attendance"
	"github.com/lomoval/notecal/internal/auth"
	"github.com/lomoval/notecal/internal/blob"
	"github.com/lomoval/notecal/internal/blob/local"
	"github.com/lomoval/notecal/internal/push"
	"github.com/lomoval/notecal/internal/storage"
	memorystorage "github.com/lomoval/notecal/internal/storage/memory"
	"github.com/lomoval/notecal/internal/theme"
	"github.com/lomoval/notecal/internal/validator"
	"github.com/stretchr/testify/require"
)

var mexico = mustLoad("America/Mexico_City")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	blobs, err := local.New(local.Config{Dir: t.TempDir(), BaseURL: "/api/files", MaxSize: 1024})
	require.NoError(t, err)
	tokens, err := auth.NewTokens(auth.Config{Secret: "test-secret", TokenTTL: time.Hour})
	require.NoError(t, err)

	a, err := New(memorystorage.New(), blobs, tokens, theme.NewMemoryStore(), Config{})
	require.NoError(t, err)
	a.now = func() time.Time { return time.Date(2024, 3, 5, 9, 0, 0, 0, mexico) }
	return a
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	u, err := a.Register(ctx, RegisterInput{Name: " Ana ", Email: "Ana@Example.com", Password: "long-password"})
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", u.Email)
	require.Equal(t, "Ana", u.Name)

	s, err := a.Storage.FindSettings(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, attendance.DefaultZone, s.Timezone)

	_, err = a.Register(ctx, RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "long-password"})
	require.True(t, errors.Is(err, storage.ErrDuplicateUser))

	_, err = a.Register(ctx, RegisterInput{Name: "", Email: "nope", Password: "short"})
	require.True(t, errors.Is(err, validator.ErrInvalid))

	session, err := a.Login(ctx, "ANA@example.com ", "long-password")
	require.NoError(t, err)
	require.Equal(t, u.ID, session.User.ID)

	id, err := a.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	require.Equal(t, u.ID, id)

	_, err = a.Login(ctx, "ana@example.com", "wrong-password")
	require.True(t, errors.Is(err, auth.ErrInvalidCredentials))
	_, err = a.Login(ctx, "nobody@example.com", "long-password")
	require.True(t, errors.Is(err, auth.ErrInvalidCredentials))

	_, err = a.Authenticate(ctx, "")
	require.True(t, errors.Is(err, auth.ErrNoUser))
	_, err = a.Authenticate(ctx, "broken")
	require.True(t, errors.Is(err, auth.ErrNoUser))
}

func TestSettingsGetOrCreate(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	first, err := a.Settings(ctx, "u1")
	require.NoError(t, err)
	second, err := a.Settings(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	_, err = a.SetTimezone(ctx, "u1", "Mars/Base")
	require.True(t, errors.Is(err, ErrUnknownTimezone))
	s, err := a.SetTimezone(ctx, "u1", "Europe/Madrid")
	require.NoError(t, err)
	require.Equal(t, "Europe/Madrid", s.Timezone)

	_, err = a.SetPushToken(ctx, "u1", " ")
	require.True(t, errors.Is(err, push.ErrNoToken))
	s, err = a.SetPushToken(ctx, "u1", "device")
	require.NoError(t, err)
	require.Equal(t, "device", s.PushToken)
}

func TestWorkingDayDrivesSchedule(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	schedule, err := a.Schedule(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, attendance.DefaultSchedule(), schedule)

	_, err = a.SetWorkingDay(ctx, "u1", attendance.WorkingDay{Start: "7:00"})
	require.True(t, errors.Is(err, validator.ErrInvalid))

	_, err = a.SetWorkingDay(ctx, "u1", attendance.WorkingDay{Start: "09:00", MaxLunchMinutes: 30})
	require.NoError(t, err)

	schedule, err = a.Schedule(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, attendance.TimeOfDay{Hour: 9}, schedule.ShiftStart)
	require.Equal(t, 30, schedule.MaxLunchMinutes)
	require.Equal(t, attendance.DefaultShiftEnd, schedule.ShiftEnd)

	// Overrides are applied after working hours.
	_, err = a.SetOverrides(ctx, "u1", theme.Light, theme.Overrides{attendance.VarShiftStart: "10:00"})
	require.NoError(t, err)
	schedule, err = a.Schedule(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, attendance.TimeOfDay{Hour: 10}, schedule.ShiftStart)
}

func TestNotesAndDayReport(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	at := func(h, m int) *time.Time {
		v := time.Date(2024, 3, 5, h, m, 0, 0, mexico)
		return &v
	}
	dayBefore := at(7, 55).Add(-24 * time.Hour)
	for _, in := range []NoteInput{
		{Kind: storage.KindShiftStart, Time: at(8, 5)},
		{Kind: storage.KindLunchOut, Time: at(13, 0)},
		{Kind: storage.KindLunchReturn, Time: at(14, 30)},
		{Text: "call the client", Time: at(15, 0)},
		{Kind: storage.KindShiftEnd, Time: at(17, 30)},
		{Kind: storage.KindShiftStart, Time: &dayBefore},
	} {
		_, err := a.CreateNote(ctx, "u1", in)
		require.NoError(t, err)
	}
	_, err := a.CreateNote(ctx, "u2", NoteInput{Kind: storage.KindShiftStart, Time: at(8, 0)})
	require.NoError(t, err)

	notes, err := a.ListNotes(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, notes, 6)
	require.True(t, notes[0].Time.After(notes[1].Time))

	day, err := a.ParseDay("2024-03-05")
	require.NoError(t, err)
	report, err := a.DayReport(ctx, "u1", day)
	require.NoError(t, err)
	require.Equal(t, "2024-03-05", report.Date)
	require.Equal(t, attendance.DefaultZone, report.Timezone)

	labels := make([]attendance.Label, 0, len(report.Entries))
	for _, e := range report.Entries {
		labels = append(labels, e.Label)
	}
	require.Equal(t, []attendance.Label{
		attendance.LabelLate,
		attendance.LabelOnTime,
		attendance.LabelOvertime,
		"",
		attendance.LabelEarlyDeparture,
	}, labels)

	_, err = a.ParseDay("05/03/2024")
	require.True(t, errors.Is(err, validator.ErrInvalid))
}

func TestCreateNoteDefaults(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	n, err := a.CreateNote(ctx, "u1", NoteInput{Text: "draft"})
	require.NoError(t, err)
	require.Equal(t, storage.KindGeneral, n.Kind)
	require.True(t, a.now().Equal(n.Time))

	_, err = a.CreateNote(ctx, "u1", NoteInput{Kind: "coffee"})
	require.True(t, errors.Is(err, storage.ErrIncorrectNoteKind))

	_, err = a.CreateNote(ctx, "u1", NoteInput{Text: strings.Repeat("x", 4001)})
	require.True(t, errors.Is(err, validator.ErrInvalid))

	text := "edited"
	kind := storage.KindLunchOut
	updated, err := a.UpdateNote(ctx, "u1", n.ID, NoteUpdate{Text: &text, Kind: &kind})
	require.NoError(t, err)
	require.Equal(t, "edited", updated.Text)
	require.Equal(t, storage.KindLunchOut, updated.Kind)

	bad := storage.Kind("coffee")
	_, err = a.UpdateNote(ctx, "u1", n.ID, NoteUpdate{Kind: &bad})
	require.True(t, errors.Is(err, storage.ErrIncorrectNoteKind))

	_, err = a.UpdateNote(ctx, "u2", n.ID, NoteUpdate{Text: &text})
	require.True(t, errors.Is(err, storage.ErrNotFoundNote))

	require.NoError(t, a.RemoveNote(ctx, "u1", n.ID))
	_, err = a.GetNote(ctx, "u1", n.ID)
	require.True(t, errors.Is(err, storage.ErrNotFoundNote))
}

func TestAttachMedia(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	n, err := a.CreateNote(ctx, "u1", NoteInput{Text: "with photo"})
	require.NoError(t, err)

	upload := func(contentType, content string) Upload {
		return Upload{Name: "file", ContentType: contentType, Size: int64(len(content)), Content: strings.NewReader(content)}
	}

	withImage, err := a.AttachMedia(ctx, "u1", n.ID, MediaImage, upload("image/jpeg", "jpeg"))
	require.NoError(t, err)
	require.NotEmpty(t, withImage.ImageID)
	require.Equal(t, "with photo", withImage.Text)

	withVideo, err := a.AttachMedia(ctx, "u1", n.ID, MediaVideo, upload("video/mp4", "mp4"))
	require.NoError(t, err)
	require.Equal(t, withImage.ImageID, withVideo.ImageID)
	require.NotEmpty(t, withVideo.VideoID)

	links, err := a.MediaLinks(ctx, "u1", n.ID)
	require.NoError(t, err)
	require.Equal(t, "/api/files/"+withVideo.ImageID+"/preview?width=600", links.ImagePreview)
	require.Equal(t, "/api/files/"+withVideo.ImageID+"/view", links.ImageView)
	require.Equal(t, "/api/files/"+withVideo.VideoID+"/view", links.VideoView)

	_, err = a.AttachMedia(ctx, "u1", n.ID, MediaImage, upload("video/mp4", "mp4"))
	require.True(t, errors.Is(err, blob.ErrUnsupportedType))
	_, err = a.AttachMedia(ctx, "u1", n.ID, "audio", upload("audio/ogg", "ogg"))
	require.True(t, errors.Is(err, ErrMediaKind))
	_, err = a.AttachMedia(ctx, "u2", n.ID, MediaImage, upload("image/png", "png"))
	require.True(t, errors.Is(err, storage.ErrNotFoundNote))

	// Failed upload keeps the note as it was.
	_, err = a.AttachMedia(ctx, "u1", n.ID, MediaImage, upload("image/png", strings.Repeat("x", 2048)))
	require.True(t, errors.Is(err, blob.ErrTooLarge))
	kept, err := a.GetNote(ctx, "u1", n.ID)
	require.NoError(t, err)
	require.Equal(t, withVideo, kept)
}

func TestThemeFlow(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	view, err := a.Theme(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, theme.Light, view.Mode)
	require.Equal(t, "#8b7001", view.ThemeColor)

	_, err = a.SetOverrides(ctx, "u1", theme.Dark, theme.Overrides{theme.VarPrimaryColor: "#00ff00"})
	require.NoError(t, err)
	view, err = a.Theme(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, view.Overrides)

	view, err = a.SetThemeMode(ctx, "u1", theme.Dark)
	require.NoError(t, err)
	require.Equal(t, "#00ff00", view.ThemeColor)

	css, err := a.StylesheetCSS(ctx, "u1")
	require.NoError(t, err)
	require.Contains(t, css, `:root[data-theme="dark"]`)
	require.Contains(t, css, "--primary-color: #00ff00;")

	view, err = a.ResetOverrides(ctx, "u1", theme.Dark)
	require.NoError(t, err)
	require.Equal(t, "#ffd600", view.ThemeColor)

	_, err = a.SetOverrides(ctx, "u1", theme.Dark, theme.Overrides{"color": "red"})
	require.True(t, errors.Is(err, validator.ErrInvalid))
	_, err = a.SetThemeMode(ctx, "u1", "sepia")
	require.True(t, errors.Is(err, theme.ErrUnknownMode))

	view, err = a.ToggleTheme(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, theme.Light, view.Mode)

	other, err := a.Theme(ctx, "u2")
	require.NoError(t, err)
	require.Equal(t, theme.Light, other.Mode)
}

func TestSaveAndLoadRemote(t *testing.T) {
	ctx := context.Background()
	shared := theme.NewMemoryStore()
	a := newTestApp(t)
	a.themes = shared

	_, err := a.SetOverrides(ctx, "u1", theme.Light, theme.Overrides{"--bg": "white"})
	require.NoError(t, err)
	wd := attendance.WorkingDay{Start: "07:30", End: "16:00"}
	s, err := a.SaveRemote(ctx, "u1", &wd)
	require.NoError(t, err)
	require.Equal(t, attendance.WorkingDay{Start: "07:30", End: "16:00"}, attendance.ParseWorkingDay(s.WorkingDay))
	require.Equal(t, theme.Overrides{"--bg": "white"}, theme.DecodeOverrides(s.ThemeOverrides))

	// A fresh device has no local overrides until remote settings are loaded.
	a.themes = theme.NewMemoryStore()
	view, err := a.Theme(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, view.Overrides)
	require.Equal(t, "07:30", view.Properties[attendance.VarShiftStart])

	view, err = a.LoadRemote(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, theme.Overrides{
		"--bg":                   "white",
		attendance.VarShiftStart: "07:30",
		attendance.VarShiftEnd:   "16:00",
	}, view.Overrides)
	require.Equal(t, "white", view.Properties["--bg"])

	view, err = a.Theme(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "white", view.Properties["--bg"])
}

func TestLoadRemoteWorkingDayWinsOverLocalOverride(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	_, err := a.SetOverrides(ctx, "u1", theme.Light, theme.Overrides{attendance.VarShiftStart: "07:00"})
	require.NoError(t, err)
	sc, err := a.Schedule(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "07:00", sc.ShiftStart.String())

	// Another device saves its working hours without any theme overrides.
	other, err := New(a.Storage, nil, a.tokens, theme.NewMemoryStore(), Config{})
	require.NoError(t, err)
	wd := attendance.WorkingDay{Start: "09:00", End: "18:00"}
	_, err = other.SaveRemote(ctx, "u1", &wd)
	require.NoError(t, err)

	view, err := a.LoadRemote(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "09:00", view.Properties[attendance.VarShiftStart])
	require.Equal(t, "09:00", view.Overrides[attendance.VarShiftStart])

	sc, err = a.Schedule(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "09:00", sc.ShiftStart.String())
	require.Equal(t, "18:00", sc.ShiftEnd.String())
}

func TestExportICS(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	start := time.Date(2024, 3, 5, 8, 0, 0, 0, mexico)
	_, err := a.CreateNote(ctx, "u1", NoteInput{Kind: storage.KindShiftStart, Time: &start})
	require.NoError(t, err)
	later := start.Add(2 * time.Hour)
	_, err = a.CreateNote(ctx, "u1", NoteInput{Text: "Meeting with **team**\nsecond line", Time: &later})
	require.NoError(t, err)

	out, err := a.ExportICS(ctx, "u1")
	require.NoError(t, err)

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)

	summaries := make([]string, 0, 2)
	for _, e := range events {
		summaries = append(summaries, e.GetProperty(ical.ComponentPropertySummary).Value)
	}
	require.ElementsMatch(t, []string{"Shift start", "Meeting with **team**"}, summaries)
	require.Contains(t, out, "<strong>team</strong>")
}

func TestDueReminders(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	_, err := a.SetPushToken(ctx, "u1", "token-1")
	require.NoError(t, err)
	_, err = a.SetWorkingDay(ctx, "u1", attendance.WorkingDay{Start: "09:00"})
	require.NoError(t, err)
	_, err = a.SetPushToken(ctx, "u2", "token-2")
	require.NoError(t, err)
	_, err = a.Settings(ctx, "u3")
	require.NoError(t, err)

	now := time.Date(2024, 3, 5, 8, 45, 30, 0, mexico)
	messages, err := a.DueReminders(ctx, now, 15*time.Minute)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "u1", messages[0].OwnerID)
	require.Equal(t, "token-1", messages[0].Token)
	require.Equal(t, push.Tag, messages[0].Tag)
	require.Equal(t, "Shift start", messages[0].Title)

	messages, err = a.DueReminders(ctx, time.Date(2024, 3, 5, 18, 0, 0, 0, mexico), 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	for _, m := range messages {
		require.Equal(t, "Shift end", m.Title)
	}

	_, err = a.SetPushToken(ctx, "u4", "token-4")
	require.NoError(t, err)
	_, err = a.SetTimezone(ctx, "u4", "Europe/Madrid")
	require.NoError(t, err)

	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	messages, err = a.DueReminders(ctx, time.Date(2024, 3, 5, 8, 0, 0, 0, madrid), 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "u4", messages[0].OwnerID)
	require.Equal(t, "Shift start", messages[0].Title)
}
