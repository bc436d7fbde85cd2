package internalgrpc

import (
	"context"
	"strings"
	"time"

	"github.com/lomoval/notecal/internal/auth"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func loggingHandler(
	ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler,
) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	addr := ""
	if p, ok := peer.FromContext(ctx); ok {
		addr = p.Addr.String()
	}
	log.WithField("peer", addr).WithField("method", info.FullMethod).
		WithField("code", status.Code(err).String()).
		WithField("latency", time.Since(start)).
		Info("grpc request processed")
	return resp, err
}

// authHandler puts the user of the "authorization" bearer token into the
// context of every call except health checks.
func (s *Server) authHandler(
	ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler,
) (interface{}, error) {
	if strings.HasPrefix(info.FullMethod, "/grpc.health.v1.Health/") {
		return handler(ctx, req)
	}
	token := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get("authorization"); len(values) > 0 {
			token = auth.BearerToken(values[0])
		}
	}
	owner, err := s.app.Authenticate(ctx, token)
	if err != nil {
		return nil, statusError(err)
	}
	return handler(auth.WithUser(ctx, owner), req)
}
