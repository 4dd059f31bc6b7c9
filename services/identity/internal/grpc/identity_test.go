package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	identityv1 "srik/pkg/identity/v1"
	"srik/services/identity/internal/auth"
)

var testSSO = auth.SSOConfig{
	Secret:   "sso-secret",
	Issuer:   "srik-identity",
	Audience: "srik-portals",
	TTL:      time.Hour,
}

func startServer(t *testing.T, serviceToken string) identityv1.IdentityServiceClient {
	t.Helper()
	interceptor, err := NewServiceAuthUnaryInterceptor(serviceToken, nil)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(interceptor))
	identityv1.RegisterIdentityServiceServer(srv, NewIdentityServer(testSSO, nil))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return identityv1.NewIdentityServiceClient(conn)
}

func withServiceToken(token string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), identityv1.ServiceTokenKey, token)
}

func TestInterceptorRequiresToken(t *testing.T) {
	_, err := NewServiceAuthUnaryInterceptor("", nil)
	assert.ErrorIs(t, err, ErrServiceTokenUnset)
}

func TestVerifySSOTokenServiceAuth(t *testing.T) {
	client := startServer(t, "svc")

	_, err := client.VerifySSOToken(context.Background(), wrapperspb.String("x"))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = client.VerifySSOToken(withServiceToken("wrong"), wrapperspb.String("x"))
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestVerifySSOToken(t *testing.T) {
	client := startServer(t, "svc")
	ctx := withServiceToken("svc")

	_, err := client.VerifySSOToken(ctx, wrapperspb.String(""))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.VerifySSOToken(ctx, wrapperspb.String("garbage"))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	wrongAudience := testSSO
	wrongAudience.Audience = "elsewhere"
	token, err := auth.NewSSOToken(wrongAudience, auth.SSOUser{ID: "u-1"})
	require.NoError(t, err)
	_, err = client.VerifySSOToken(ctx, wrapperspb.String(token))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	token, err = auth.NewSSOToken(testSSO, auth.SSOUser{ID: "u-1", Email: "guru@srialkhairiah.my", Name: "Cikgu", Role: "teacher"})
	require.NoError(t, err)
	resp, err := client.VerifySSOToken(ctx, wrapperspb.String(token))
	require.NoError(t, err)

	payload := resp.AsMap()
	assert.Equal(t, map[string]any{
		"id": "u-1", "email": "guru@srialkhairiah.my", "name": "Cikgu", "role": "teacher",
	}, payload["user"])
	assert.Equal(t, "srik-identity", payload["iss"])
	assert.Equal(t, "srik-portals", payload["aud"])
	assert.Greater(t, payload["exp"], payload["iat"])
}

func TestInterceptorLogsRejectedMethod(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	interceptor, err := NewServiceAuthUnaryInterceptor("svc", zap.New(core))
	require.NoError(t, err)

	info := &grpc.UnaryServerInfo{FullMethod: identityv1.IdentityService_VerifySSOToken_FullMethodName}
	called := false
	handler := func(context.Context, interface{}) (interface{}, error) {
		called = true
		return "ok", nil
	}

	_, err = interceptor(context.Background(), nil, info, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(identityv1.ServiceTokenKey, "wrong"))
	_, err = interceptor(ctx, nil, info, handler)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	assert.False(t, called)

	entries := logs.All()
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, info.FullMethod, entry.ContextMap()["method"])
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs(identityv1.ServiceTokenKey, " svc "))
	resp, err := interceptor(ctx, nil, info, handler)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.True(t, called)
}
