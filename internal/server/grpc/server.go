package internalgrpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"

	"github.com/lomoval/notecal/internal/app"
	"github.com/lomoval/notecal/internal/auth"
	"github.com/lomoval/notecal/internal/storage"
	"github.com/lomoval/notecal/internal/validator"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	errInternalServerError = "internal server error"
	errDateIsNotProvided   = "date is not provided"
)

type Config struct {
	Host string
	Port int
}

type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	app        *app.App
	addr       string
}

func NewServer(config Config, app *app.App) *Server {
	s := &Server{
		app:    app,
		addr:   net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
		health: health.NewServer(),
	}
	s.grpcServer = grpc.NewServer(grpc.ChainUnaryInterceptor(loggingHandler, s.authHandler))
	s.grpcServer.RegisterService(&notesServiceDesc, s)
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus(NotesService, healthpb.HealthCheckResponse_SERVING)
	return s
}

func (s *Server) Start(_ context.Context) error {
	lsn, err := net.Listen("tcp", s.addr)
	if err != nil {
		log.Errorf("failed to listen grpc endpoint: %v", err)
		return err
	}

	log.Printf("starting grpc server on %s", s.addr)
	return s.Serve(lsn)
}

func (s *Server) Serve(lsn net.Listener) error {
	return s.grpcServer.Serve(lsn)
}

func (s *Server) Stop(_ context.Context) error {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
	return nil
}

func (s *Server) DayReport(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	owner, err := auth.UserFromContext(ctx)
	if err != nil {
		return nil, statusError(err)
	}
	date, ok := r.GetFields()["date"]
	if !ok || date.GetStringValue() == "" {
		return nil, status.Errorf(codes.InvalidArgument, errDateIsNotProvided)
	}
	day, err := s.app.ParseDay(date.GetStringValue())
	if err != nil {
		return nil, statusError(err)
	}
	report, err := s.app.DayReport(ctx, owner, day)
	if err != nil {
		return nil, statusError(err)
	}
	return toStruct(report)
}

func (s *Server) Schedule(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	owner, err := auth.UserFromContext(ctx)
	if err != nil {
		return nil, statusError(err)
	}
	schedule, err := s.app.Schedule(ctx, owner)
	if err != nil {
		return nil, statusError(err)
	}
	return toStruct(schedule)
}

// toStruct converts v through its JSON form, so payloads match the HTTP API.
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Errorf("failed to encode response: %v", err)
		return nil, status.Errorf(codes.Internal, errInternalServerError)
	}
	fields := map[string]interface{}{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		log.Errorf("failed to encode response: %v", err)
		return nil, status.Errorf(codes.Internal, errInternalServerError)
	}
	res, err := structpb.NewStruct(fields)
	if err != nil {
		log.Errorf("failed to encode response: %v", err)
		return nil, status.Errorf(codes.Internal, errInternalServerError)
	}
	return res, nil
}

func statusError(err error) error {
	switch {
	case errors.Is(err, auth.ErrNoUser), errors.Is(err, auth.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, validator.ErrInvalid):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, storage.ErrNotFoundSettings), errors.Is(err, storage.ErrNotFoundUser):
		return status.Error(codes.NotFound, err.Error())
	default:
		log.Errorf("grpc call failed: %v", err)
		return status.Errorf(codes.Internal, errInternalServerError)
	}
}
