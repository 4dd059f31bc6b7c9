package grpc

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	identityv1 "srik/pkg/identity/v1"
	"srik/services/identity/internal/auth"
	"srik/services/identity/internal/metrics"
)

// IdentityServer verifies SSO tokens for the other portals.
type IdentityServer struct {
	sso    auth.SSOConfig
	logger *zap.Logger
}

var _ identityv1.IdentityServiceServer = (*IdentityServer)(nil)

func NewIdentityServer(sso auth.SSOConfig, logger *zap.Logger) *IdentityServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityServer{sso: sso, logger: logger}
}

// VerifySSOToken returns the token payload as {"user": {...}, "iss", "aud", "exp", "iat"}.
func (s *IdentityServer) VerifySSOToken(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	if in.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "No token provided")
	}
	claims, err := auth.ParseSSOToken(s.sso, in.GetValue())
	if err != nil {
		metrics.SSOTokens.WithLabelValues("verify", "invalid").Inc()
		s.logger.Debug("sso token rejected", zap.Error(err))
		return nil, status.Error(codes.Unauthenticated, "Invalid token")
	}
	metrics.SSOTokens.WithLabelValues("verify", "ok").Inc()

	payload := map[string]any{
		"user": map[string]any{
			"id":    claims.User.ID,
			"email": claims.User.Email,
			"name":  claims.User.Name,
			"role":  claims.User.Role,
		},
		"iss": claims.Issuer,
	}
	if len(claims.Audience) > 0 {
		payload["aud"] = claims.Audience[0]
	}
	if claims.ExpiresAt != nil {
		payload["exp"] = float64(claims.ExpiresAt.Unix())
	}
	if claims.IssuedAt != nil {
		payload["iat"] = float64(claims.IssuedAt.Unix())
	}
	out, err := structpb.NewStruct(payload)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode failed")
	}
	return out, nil
}
