package grpc

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	identityv1 "srik/pkg/identity/v1"
)

// ErrServiceTokenUnset is returned when the identity gRPC listener would start
// without SERVICE_AUTH_TOKEN.
var ErrServiceTokenUnset = errors.New("identity grpc: SERVICE_AUTH_TOKEN is empty")

// NewServiceAuthUnaryInterceptor admits portal backends that present the
// shared SERVICE_AUTH_TOKEN. Rejections are logged with the called method.
func NewServiceAuthUnaryInterceptor(expectedToken string, logger *zap.Logger) (grpc.UnaryServerInterceptor, error) {
	if expectedToken == "" {
		return nil, ErrServiceTokenUnset
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	expected := []byte(expectedToken)
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		token := incomingServiceToken(ctx)
		if token == "" {
			logger.Warn("grpc call without service token", zap.String("method", info.FullMethod))
			return nil, status.Error(codes.Unauthenticated, "missing_service_token")
		}
		if subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
			logger.Warn("grpc call with wrong service token", zap.String("method", info.FullMethod))
			return nil, status.Error(codes.PermissionDenied, "invalid_service_token")
		}
		return handler(ctx, req)
	}, nil
}

func incomingServiceToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(identityv1.ServiceTokenKey); len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}
