package internalhttp

import (
	"net/http"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/lomoval/notecal/internal/auth"
	log "github.com/sirupsen/logrus"
)

const tokenQueryParam = "access_token"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		ip, err := getIP(r)
		if err != nil {
			log.Errorf("failed to get client IP: %v", err)
		}
		log.WithField("ip", ip).WithField("method", r.Method).WithField("path", r.URL.Path).
			WithField("status", rec.status).WithField("HTTP version", r.Proto).
			WithField("user-agent", r.Header.Get("user-agent")).
			WithField("latency", time.Since(start)).
			Info("http request processed")
	})
}

// ownerHandler is a route handler that runs for an authenticated user.
type ownerHandler func(w http.ResponseWriter, r *http.Request, params map[string]string, owner string)

// authenticated resolves the bearer token (header, or query parameter for plain
// browser links) and rejects the request with 401 when there is no user.
func (s *Server) authenticated(h ownerHandler) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		token := auth.BearerToken(r.Header.Get("Authorization"))
		if token == "" && r.Method == http.MethodGet {
			token = r.URL.Query().Get(tokenQueryParam)
		}
		owner, err := s.app.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, err)
			return
		}
		h(w, r.WithContext(auth.WithUser(r.Context(), owner)), params, owner)
	}
}
