package internalhttp

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/lomoval/notecal/internal/app"
	"github.com/lomoval/notecal/internal/attendance"
	"github.com/lomoval/notecal/internal/auth"
	"github.com/lomoval/notecal/internal/blob/local"
	"github.com/lomoval/notecal/internal/logger"
	"github.com/lomoval/notecal/internal/storage"
	memorystorage "github.com/lomoval/notecal/internal/storage/memory"
	"github.com/lomoval/notecal/internal/theme"
	"github.com/stretchr/testify/require"
)

type client struct {
	t     *testing.T
	url   string
	token string
}

func newTestServer(t *testing.T) *client {
	t.Helper()
	logger.PrepareLogger(logger.Config{Level: "ERROR"})

	blobs, err := local.New(local.Config{Dir: t.TempDir(), BaseURL: "/api/files", MaxSize: 1024})
	require.NoError(t, err)
	tokens, err := auth.NewTokens(auth.Config{Secret: "test-secret", TokenTTL: time.Hour})
	require.NoError(t, err)
	a, err := app.New(memorystorage.New(), blobs, tokens, theme.NewMemoryStore(), app.Config{})
	require.NoError(t, err)

	handler, err := NewServer(Config{}, a).Handler(nil)
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &client{t: t, url: srv.URL}
}

func (c *client) do(method, path, contentType string, body io.Reader) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(method, c.url+path, body)
	require.NoError(c.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (c *client) json(method, path string, in interface{}, out interface{}) int {
	c.t.Helper()
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		require.NoError(c.t, err)
		body = bytes.NewReader(b)
	}
	resp := c.do(method, path, "application/json", body)
	if out != nil {
		// Decoding merges into maps, so every response starts from a zero value.
		target := reflect.ValueOf(out).Elem()
		target.Set(reflect.Zero(target.Type()))
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (c *client) login() storage.User {
	c.t.Helper()
	var u storage.User
	status := c.json(http.MethodPost, "/api/users/register",
		app.RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "long-password"}, &u)
	require.Equal(c.t, http.StatusCreated, status)

	var session app.Session
	status = c.json(http.MethodPost, "/api/users/login",
		loginRequest{Email: "ana@example.com", Password: "long-password"}, &session)
	require.Equal(c.t, http.StatusOK, status)
	require.NotEmpty(c.t, session.Token)
	c.token = session.Token
	return u
}

func (c *client) upload(path, contentType string, content []byte) *http.Response {
	c.t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="media.bin"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(c.t, err)
	_, err = part.Write(content)
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())
	return c.do(http.MethodPost, path, mw.FormDataContentType(), buf)
}

func TestHealth(t *testing.T) {
	c := newTestServer(t)
	var out map[string]string
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/healthz", nil, &out))
	require.Equal(t, "ok", out["status"])
}

func TestUnauthenticated(t *testing.T) {
	c := newTestServer(t)
	for _, path := range []string{"/api/notes", "/api/theme", "/theme.css", "/api/notes.ics"} {
		t.Run(path, func(t *testing.T) {
			var out errorResponse
			require.Equal(t, http.StatusUnauthorized, c.json(http.MethodGet, path, nil, &out))
			require.Contains(t, out.Error, auth.ErrNoUser.Error())
		})
	}

	c.token = "broken"
	require.Equal(t, http.StatusUnauthorized, c.json(http.MethodGet, "/api/notes", nil, nil))
}

func TestRegisterErrors(t *testing.T) {
	c := newTestServer(t)
	c.login()

	var out errorResponse
	status := c.json(http.MethodPost, "/api/users/register",
		app.RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "long-password"}, &out)
	require.Equal(t, http.StatusConflict, status)

	status = c.json(http.MethodPost, "/api/users/register",
		app.RegisterInput{Name: "", Email: "nope", Password: "x"}, &out)
	require.Equal(t, http.StatusBadRequest, status)

	status = c.json(http.MethodPost, "/api/users/login",
		loginRequest{Email: "ana@example.com", Password: "wrong-password"}, &out)
	require.Equal(t, http.StatusUnauthorized, status)

	resp := c.do(http.MethodPost, "/api/users/login", "application/json", strings.NewReader("{"))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNotes(t *testing.T) {
	c := newTestServer(t)
	u := c.login()

	var me storage.User
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/me", nil, &me))
	require.Equal(t, u.ID, me.ID)

	start := time.Date(2024, 3, 5, 13, 55, 0, 0, time.UTC) // 07:55 in Mexico City
	var created storage.Note
	status := c.json(http.MethodPost, "/api/notes",
		app.NoteInput{Text: "arrived", Kind: storage.KindShiftStart, Time: &start}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, created.ID)
	require.Equal(t, u.ID, created.OwnerID)

	var got storage.Note
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/notes/"+created.ID, nil, &got))
	require.Equal(t, "arrived", got.Text)

	text := "arrived early"
	var updated storage.Note
	status = c.json(http.MethodPatch, "/api/notes/"+created.ID, app.NoteUpdate{Text: &text}, &updated)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, text, updated.Text)
	require.Equal(t, storage.KindShiftStart, updated.Kind)

	var list []storage.Note
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/notes", nil, &list))
	require.Len(t, list, 1)

	var day []storage.Note
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/days/2024-03-05/notes", nil, &day))
	require.Len(t, day, 1)
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/days/2024-03-04/notes", nil, &day))
	require.Len(t, day, 0)

	var report app.DayReport
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/days/2024-03-05/report", nil, &report))
	require.Equal(t, "2024-03-05", report.Date)
	require.Len(t, report.Entries, 1)
	require.Equal(t, attendance.LabelOnTime, report.Entries[0].Label)
	require.Equal(t, "Shift start", report.Entries[0].Title)

	var out errorResponse
	require.Equal(t, http.StatusBadRequest, c.json(http.MethodGet, "/api/days/05-03-2024/report", nil, &out))

	bad := storage.Kind("nap")
	require.Equal(t, http.StatusBadRequest, c.json(http.MethodPatch, "/api/notes/"+created.ID, app.NoteUpdate{Kind: &bad}, &out))

	resp := c.do(http.MethodDelete, "/api/notes/"+created.ID, "", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, http.StatusNotFound, c.json(http.MethodGet, "/api/notes/"+created.ID, nil, &out))
}

func TestMedia(t *testing.T) {
	c := newTestServer(t)
	c.login()

	var n storage.Note
	require.Equal(t, http.StatusCreated, c.json(http.MethodPost, "/api/notes", app.NoteInput{Text: "photo"}, &n))

	resp := c.upload("/api/notes/"+n.ID+"/image", "image/png", []byte("png bytes"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var withImage storage.Note
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&withImage))
	require.NotEmpty(t, withImage.ImageID)

	var links app.MediaLinks
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/notes/"+n.ID+"/media", nil, &links))
	require.Equal(t, "/api/files/"+withImage.ImageID+"/preview?width=600", links.ImagePreview)
	require.Equal(t, "/api/files/"+withImage.ImageID+"/view", links.ImageView)
	require.Empty(t, links.VideoView)

	token := c.token
	c.token = ""
	file := c.do(http.MethodGet, links.ImageView, "", nil)
	require.Equal(t, http.StatusOK, file.StatusCode)
	require.Equal(t, "image/png", file.Header.Get("Content-Type"))
	content, err := io.ReadAll(file.Body)
	require.NoError(t, err)
	require.Equal(t, "png bytes", string(content))
	require.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/files/missing/view", "", nil).StatusCode)
	c.token = token

	tests := []struct {
		name        string
		path        string
		contentType string
		size        int
		status      int
	}{
		{name: "wrong type", path: "/api/notes/" + n.ID + "/video", contentType: "image/png", size: 10, status: http.StatusBadRequest},
		{name: "too large", path: "/api/notes/" + n.ID + "/image", contentType: "image/png", size: 4096, status: http.StatusRequestEntityTooLarge},
		{name: "unknown note", path: "/api/notes/missing/image", contentType: "image/png", size: 10, status: http.StatusNotFound},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			resp := c.upload(tc.path, tc.contentType, bytes.Repeat([]byte{'x'}, tc.size))
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestSettingsAndTheme(t *testing.T) {
	c := newTestServer(t)
	c.login()

	var st storage.Settings
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/settings", nil, &st))
	require.Equal(t, attendance.DefaultZone, st.Timezone)

	var out errorResponse
	require.Equal(t, http.StatusBadRequest, c.json(http.MethodPut, "/api/settings/timezone", timezoneRequest{Timezone: "Mars/Base"}, &out))
	require.Equal(t, http.StatusBadRequest, c.json(http.MethodPut, "/api/settings/push-token", pushTokenRequest{}, &out))
	require.Equal(t, http.StatusOK, c.json(http.MethodPut, "/api/settings/push-token", pushTokenRequest{Token: "device"}, &st))
	require.Equal(t, "device", st.PushToken)

	wd := attendance.WorkingDay{Start: "09:00", End: "17:00"}
	require.Equal(t, http.StatusOK, c.json(http.MethodPut, "/api/settings/working-day", wd, &st))
	var sc attendance.Schedule
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/schedule", nil, &sc))
	require.Equal(t, "09:00", sc.ShiftStart.String())
	require.Equal(t, "17:00", sc.ShiftEnd.String())

	var view app.ThemeView
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/theme", nil, &view))
	require.Equal(t, theme.Light, view.Mode)

	ov := theme.Overrides{theme.VarPrimaryColor: "#000000"}
	require.Equal(t, http.StatusOK, c.json(http.MethodPut, "/api/theme/overrides/dark", ov, &view))
	require.Equal(t, theme.Light, view.Mode)
	require.Empty(t, view.Overrides)

	require.Equal(t, http.StatusOK, c.json(http.MethodPut, "/api/theme", themeRequest{Mode: "dark"}, &view))
	require.Equal(t, theme.Dark, view.Mode)
	require.Equal(t, "#000000", view.ThemeColor)

	var stored theme.Overrides
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/theme/overrides/dark", nil, &stored))
	require.Equal(t, ov, stored)
	require.Equal(t, http.StatusBadRequest, c.json(http.MethodGet, "/api/theme/overrides/sepia", nil, &out))
	require.Equal(t, http.StatusBadRequest, c.json(http.MethodPut, "/api/theme", themeRequest{Mode: "sepia"}, &out))

	token := c.token
	c.token = ""
	css := c.do(http.MethodGet, "/theme.css?access_token="+token, "", nil)
	require.Equal(t, http.StatusOK, css.StatusCode)
	body, err := io.ReadAll(css.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `:root[data-theme="dark"]`)
	require.Contains(t, string(body), "--primary-color: #000000;")
	require.Contains(t, string(body), "--shift-start: 09:00;")
	c.token = token

	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/settings/remote/save", nil, &st))
	require.Equal(t, http.StatusOK, c.json(http.MethodDelete, "/api/theme/overrides/dark", nil, &view))
	require.Empty(t, view.Overrides)
	require.Equal(t, theme.DefaultThemeColor(theme.Dark), view.ThemeColor)

	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/settings/remote/load", nil, &view))
	require.Equal(t, "#000000", view.ThemeColor)
	require.Equal(t, "#000000", view.Overrides[theme.VarPrimaryColor])
	require.Equal(t, "09:00", view.Overrides[attendance.VarShiftStart])

	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/theme/toggle", nil, &view))
	require.Equal(t, theme.Light, view.Mode)
}

func TestExportICS(t *testing.T) {
	c := newTestServer(t)
	c.login()

	at := time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC)
	require.Equal(t, http.StatusCreated, c.json(http.MethodPost, "/api/notes",
		app.NoteInput{Text: "**done**", Kind: storage.KindShiftEnd, Time: &at}, nil))

	resp := c.do(http.MethodGet, "/api/notes.ics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/calendar"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "BEGIN:VCALENDAR")
	require.Contains(t, string(body), "SUMMARY:Shift end")
}
