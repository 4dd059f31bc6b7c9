package clients

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	identityv1 "srik/pkg/identity/v1"
	"srik/services/timetable/internal/auth"
)

// ErrInvalidSSOToken is returned when the identity service rejects a token.
var ErrInvalidSSOToken = errors.New("invalid sso token")

type Identity struct {
	conn         *grpc.ClientConn
	client       identityv1.IdentityServiceClient
	serviceToken string
}

func NewIdentity(ctx context.Context, addr, serviceToken string, timeout time.Duration) (*Identity, error) {
	conn, err := dial(ctx, addr, timeout)
	if err != nil {
		return nil, err
	}
	return NewIdentityFromConn(conn, serviceToken), nil
}

func NewIdentityFromConn(conn *grpc.ClientConn, serviceToken string) *Identity {
	return &Identity{
		conn:         conn,
		client:       identityv1.NewIdentityServiceClient(conn),
		serviceToken: serviceToken,
	}
}

// VerifySSOToken asks the identity service to verify token and returns the
// user it was issued for.
func (c *Identity) VerifySSOToken(ctx context.Context, token string) (auth.SSOUser, error) {
	if c.serviceToken != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, identityv1.ServiceTokenKey, c.serviceToken)
	}
	resp, err := c.client.VerifySSOToken(ctx, wrapperspb.String(token))
	if err != nil {
		if status.Code(err) == codes.Unauthenticated || status.Code(err) == codes.InvalidArgument {
			return auth.SSOUser{}, ErrInvalidSSOToken
		}
		return auth.SSOUser{}, err
	}
	user := resp.GetFields()["user"].GetStructValue()
	if user == nil {
		return auth.SSOUser{}, ErrInvalidSSOToken
	}
	fields := user.GetFields()
	out := auth.SSOUser{
		ID:    fields["id"].GetStringValue(),
		Email: fields["email"].GetStringValue(),
		Name:  fields["name"].GetStringValue(),
		Role:  fields["role"].GetStringValue(),
	}
	if out.ID == "" {
		return auth.SSOUser{}, ErrInvalidSSOToken
	}
	return out, nil
}

func (c *Identity) Close() {
	if c == nil || c.conn == nil {
		return
	}
	_ = c.conn.Close()
}

func dial(ctx context.Context, addr string, timeout time.Duration) (*grpc.ClientConn, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return grpc.DialContext(ctx, addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
}
