package internalhttp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/lomoval/notecal/internal/app"
	log "github.com/sirupsen/logrus"
)

const defaultMaxUploadSize = 64 << 20

type Config struct {
	Host string
	Port int
	// MaxUploadSize limits multipart request bodies, in bytes.
	MaxUploadSize int64
}

type Server struct {
	srv       *http.Server
	addr      string
	app       *app.App
	maxUpload int64
}

func NewServer(config Config, app *app.App) *Server {
	addr := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	maxUpload := config.MaxUploadSize
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadSize
	}
	return &Server{
		addr:      addr,
		app:       app,
		maxUpload: maxUpload,
		srv:       &http.Server{Addr: addr, ReadHeaderTimeout: 10 * time.Second},
	}
}

// Handler registers the API on mux (a new one when nil) and wraps it with request logging.
func (s *Server) Handler(mux *runtime.ServeMux) (http.Handler, error) {
	if mux == nil {
		mux = runtime.NewServeMux()
	}
	if err := s.registerRoutes(mux); err != nil {
		return nil, err
	}
	return loggingMiddleware(mux), nil
}

func (s *Server) Start(_ context.Context, mux *runtime.ServeMux) error {
	handler, err := s.Handler(mux)
	if err != nil {
		return fmt.Errorf("failed to register routes: %w", err)
	}
	s.srv.Handler = handler

	log.Printf("starting http server on %s", s.addr)
	err = s.srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func getIP(req *http.Request) (string, error) {
	ip, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return "", fmt.Errorf("userip: %q is not IP:port", req.RemoteAddr)
	}

	if parsed := net.ParseIP(ip); parsed == nil {
		return "", fmt.Errorf("userip: %q is not IP:port", req.RemoteAddr)
	}
	return ip, nil
}
