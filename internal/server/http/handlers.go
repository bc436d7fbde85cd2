package internalhttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/lomoval/notecal/internal/app"
	"github.com/lomoval/notecal/internal/attendance"
	"github.com/lomoval/notecal/internal/blob"
	"github.com/lomoval/notecal/internal/theme"
	log "github.com/sirupsen/logrus"
)

const multipartMemory = 8 << 20

type route struct {
	method  string
	pattern string
	handler runtime.HandlerFunc
}

func (s *Server) routes() []route {
	return []route{
		{http.MethodGet, "/healthz", s.health},
		{http.MethodPost, "/api/users/register", s.register},
		{http.MethodPost, "/api/users/login", s.login},
		{http.MethodGet, "/api/files/{id}/preview", s.serveFile},
		{http.MethodGet, "/api/files/{id}/view", s.serveFile},

		{http.MethodGet, "/api/me", s.authenticated(s.me)},
		{http.MethodGet, "/api/notes", s.authenticated(s.listNotes)},
		{http.MethodPost, "/api/notes", s.authenticated(s.createNote)},
		{http.MethodGet, "/api/notes.ics", s.authenticated(s.exportICS)},
		{http.MethodGet, "/api/notes/{id}", s.authenticated(s.getNote)},
		{http.MethodPatch, "/api/notes/{id}", s.authenticated(s.updateNote)},
		{http.MethodDelete, "/api/notes/{id}", s.authenticated(s.removeNote)},
		{http.MethodGet, "/api/notes/{id}/media", s.authenticated(s.mediaLinks)},
		{http.MethodPost, "/api/notes/{id}/image", s.authenticated(s.attach(app.MediaImage))},
		{http.MethodPost, "/api/notes/{id}/video", s.authenticated(s.attach(app.MediaVideo))},
		{http.MethodGet, "/api/days/{date}/notes", s.authenticated(s.notesOfDay)},
		{http.MethodGet, "/api/days/{date}/report", s.authenticated(s.dayReport)},

		{http.MethodGet, "/api/settings", s.authenticated(s.settings)},
		{http.MethodPut, "/api/settings/working-day", s.authenticated(s.setWorkingDay)},
		{http.MethodPut, "/api/settings/timezone", s.authenticated(s.setTimezone)},
		{http.MethodPut, "/api/settings/push-token", s.authenticated(s.setPushToken)},
		{http.MethodPost, "/api/settings/remote/save", s.authenticated(s.saveRemote)},
		{http.MethodPost, "/api/settings/remote/load", s.authenticated(s.loadRemote)},
		{http.MethodGet, "/api/schedule", s.authenticated(s.schedule)},

		{http.MethodGet, "/api/theme", s.authenticated(s.theme)},
		{http.MethodPut, "/api/theme", s.authenticated(s.setTheme)},
		{http.MethodPost, "/api/theme/toggle", s.authenticated(s.toggleTheme)},
		{http.MethodGet, "/api/theme/overrides/{mode}", s.authenticated(s.overrides)},
		{http.MethodPut, "/api/theme/overrides/{mode}", s.authenticated(s.setOverrides)},
		{http.MethodDelete, "/api/theme/overrides/{mode}", s.authenticated(s.resetOverrides)},
		{http.MethodGet, "/theme.css", s.authenticated(s.stylesheet)},
	}
}

func (s *Server) registerRoutes(mux *runtime.ServeMux) error {
	for _, r := range s.routes() {
		if err := mux.HandlePath(r.method, r.pattern, r.handler); err != nil {
			return fmt.Errorf("%s %s: %w", r.method, r.pattern, err)
		}
	}
	return nil
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json: %s", errBadRequest, err)
	}
	return nil
}

func parseMode(value string) (theme.Mode, error) {
	mode := theme.Mode(value)
	if !mode.Valid() {
		return "", fmt.Errorf("%w: %q", theme.ErrUnknownMode, value)
	}
	return mode, nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var in app.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	u, err := s.app.Register(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var in loginRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	session, err := s.app.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request, _ map[string]string, owner string) {
	u, err := s.app.User(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request, _ map[string]string, owner string) {
	notes, err := s.app.ListNotes(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) createNote(w http.ResponseWriter, r *http.Request, _ map[string]string, owner string) {
	var in app.NoteInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	n, err := s.app.CreateNote(r.Context(), owner, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (s *Server) getNote(w http.ResponseWriter, r *http.Request, params map[string]string, owner string) {
	n, err := s.app.GetNote(r.Context(), owner, params["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) updateNote(w http.ResponseWriter, r *http.Request, params map[string]string, owner string) {
	var in app.NoteUpdate
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	n, err := s.app.UpdateNote(r.Context(), owner, params["id"], in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) removeNote(w http.ResponseWriter, r *http.Request, params map[string]string, owner string) {
	if err := s.app.RemoveNote(r.Context(), owner, params["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) notesOfDay(w http.ResponseWriter, r *http.Request, params map[string]string, owner string) {
	day, err := s.app.ParseDay(params["date"])
	if err != nil {
		writeError(w, err)
		return
	}
	notes, err := s.app.NotesOfDay(r.Context(), owner, day)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) dayReport(w http.ResponseWriter, r *http.Request, params map[string]string, owner string) {
	day, err := s.app.ParseDay(params["date"])
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := s.app.DayReport(r.Context(), owner, day)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) exportICS(w http.ResponseWriter, r *http.Request, _ map[string]string, owner string) {
	cal, err := s.app.ExportICS(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="notes.ics"`)
	if _, err := io.WriteString(w, cal); err != nil {
		log.Errorf("failed to write calendar: %v", err)
	}
}

func (s *Server) attach(kind string) ownerHandler {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string, owner string) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			writeError(w, fmt.Errorf("%w: %s", errBadRequest, err))
			return
		}
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				log.Warnf("failed to remove multipart files: %v", err)
			}
		}()

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, fmt.Errorf("%w: file field: %s", errBadRequest, err))
			return
		}
		defer file.Close()

		n, err := s.app.AttachMedia(r.Context(), owner, params["id"], kind, app.Upload{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Content:     file,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, n)
	}
}

func (s *Server) mediaLinks(w http.ResponseWriter, r *http.Request, params map[string]string, owner string) {
	links, err := s.app.MediaLinks(r.Context(), owner, params["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

// serveFile streams blobs of stores that keep content locally. Ids are
// random uuids, so links work without a token like presigned URLs do.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, params map[string]string) {
	opener, ok := s.app.Blobs().(blob.Opener)
	if !ok {
		writeError(w, blob.ErrNotFound)
		return
	}
	rc, obj, err := opener.Open(r.Context(), params["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, obj.Name, time.Time{}, rs)
		return
	}
	if obj.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	if _, err := io.Copy(w, rc); err != nil {
		log.WithField("id", obj.ID).Errorf("failed to send blob: %v", err)
	}
}

func (s *Server) settings(w http.ResponseWriter, r *http.Request, _ map[string]string, owner string) {
	st, err := s.app.Settings(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) setWorkingDay(w http.ResponseWriter, r *http.Request, _ map[string]string, owner string) {
	var wd attendance.WorkingDay
	if err := decodeJSON(r, &wd); err != nil {
		writeError(w, err)
		return
	}
	st, err := s.app.SetWorkingDay(r.Context(), owner, wd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type timezoneRequest struct {
	Timezone string `json:"timezone"`
}

func (s *Server) setTimezone(w http.ResponseWriter, r *http.Request, _ map[string]string, owner string) {
	var in timezoneRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	st, err := s.app.SetTimezone(r.Context(), owner, in.Timezone)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type pushTokenRequest struct {
	Token string `json:"token"`
}

func (s *Server) setPushToken(w http.ResponseWriter, r *http.Request, _ map[string]string, owner string) {
	var in pushTokenRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	st, err := s.app.SetPushToken(r.Context(), owner, in.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type saveRemoteRequest struct {
	WorkingDay *attendance.WorkingDay `json:"workingDay,omitempty"`
}

// saveRemote accepts an empty body to save only the theme overrides.
func (s *Server) saveRemote(w http.ResponseWriter, r *http.Request, _ map[string]string, owner string) {
	var in saveRemoteRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, fmt.Errorf("%w: invalid json: %s", errBadRequest, err))
		return
	}
	st, err := s.app.SaveRemote(r.Context(), owner, in.WorkingDay)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) loadRemote(w http.ResponseWriter, r *http.Request, _ map[string]string, owner string) {
	view, err := s.app.LoadRemote(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) schedule(w http.ResponseWriter, r *http.Request, _ map[string]string, owner string) {
	sc, err := s.app.Schedule(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) theme(w http.ResponseWriter, r *http.Request, _ map[string]string, owner string) {
	view, err := s.app.Theme(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type themeRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) setTheme(w http.ResponseWriter, r *http.Request, _ map[string]string, owner string) {
	var in themeRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	mode, err := parseMode(in.Mode)
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := s.app.SetThemeMode(r.Context(), owner, mode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) toggleTheme(w http.ResponseWriter, r *http.Request, _ map[string]string, owner string) {
	view, err := s.app.ToggleTheme(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) overrides(w http.ResponseWriter, r *http.Request, params map[string]string, owner string) {
	mode, err := parseMode(params["mode"])
	if err != nil {
		writeError(w, err)
		return
	}
	ov, err := s.app.ModeOverrides(r.Context(), owner, mode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (s *Server) setOverrides(w http.ResponseWriter, r *http.Request, params map[string]string, owner string) {
	mode, err := parseMode(params["mode"])
	if err != nil {
		writeError(w, err)
		return
	}
	var ov theme.Overrides
	if err := decodeJSON(r, &ov); err != nil {
		writeError(w, err)
		return
	}
	view, err := s.app.SetOverrides(r.Context(), owner, mode, ov)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) resetOverrides(w http.ResponseWriter, r *http.Request, params map[string]string, owner string) {
	mode, err := parseMode(params["mode"])
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := s.app.ResetOverrides(r.Context(), owner, mode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) stylesheet(w http.ResponseWriter, r *http.Request, _ map[string]string, owner string) {
	css, err := s.app.StylesheetCSS(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	if _, err := io.WriteString(w, css); err != nil {
		log.Errorf("failed to write stylesheet: %v", err)
	}
}
