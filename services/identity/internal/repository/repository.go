package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"srik/services/identity/internal/model"
)

var ErrEmailTaken = errors.New("email already registered")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const userColumns = `
	u.id::text, u.email, u.password_hash, u.name, u.image,
	COALESCE(array_agg(ur.role ORDER BY ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}'),
	u.created_at, u.updated_at`

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Image,
		&user.Roles,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		WHERE u.email = $1
		GROUP BY u.id
	`, email))
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		WHERE u.id = $1
		GROUP BY u.id
	`, userID))
}

// CreateUser inserts the user with one role and a matching profile.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string, name *string, role string) (model.User, error) {
	var user model.User
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO users (email, password_hash, name)
			VALUES ($1, $2, $3)
			RETURNING id::text, created_at, updated_at
		`, email, passwordHash, name)
		if err := row.Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`, user.ID, role); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO profiles (id, full_name, email, role)
			VALUES ($1, $2, $3, $4)
		`, user.ID, name, email, role)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "users_email_key" {
			return model.User{}, ErrEmailTaken
		}
		return model.User{}, err
	}
	user.Email = email
	user.PasswordHash = passwordHash
	user.Name = name
	user.Roles = []string{role}
	return user, nil
}

// EnsureAdmin creates the admin account or, when the email exists, resets its
// password and grants the admin role. It reports whether the user was created.
func (s *Store) EnsureAdmin(ctx context.Context, email, passwordHash, name string) (bool, error) {
	created := false
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var userID string
		err := tx.QueryRow(ctx, `SELECT id::text FROM users WHERE email = $1`, email).Scan(&userID)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			created = true
			if err := tx.QueryRow(ctx, `
				INSERT INTO users (email, password_hash, name)
				VALUES ($1, $2, $3)
				RETURNING id::text
			`, email, passwordHash, name).Scan(&userID); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if _, err := tx.Exec(ctx, `UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`, passwordHash, userID); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO user_roles (user_id, role) VALUES ($1, 'admin')
			ON CONFLICT DO NOTHING
		`, userID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO profiles (id, full_name, email, role)
			VALUES ($1, $2, $3, 'admin')
			ON CONFLICT (id) DO UPDATE SET role = 'admin', updated_at = now()
		`, userID, name, email)
		return err
	})
	return created, err
}

func (s *Store) CreateRefreshSession(ctx context.Context, session model.RefreshSession) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_token_sessions (id, user_id, token_hash, created_at, expires_at, revoked_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, session.ID, session.UserID, session.TokenHash, session.CreatedAt, session.ExpiresAt, session.RevokedAt, session.UserAgent, session.IPAddress)
	return err
}

func (s *Store) GetRefreshSession(ctx context.Context, tokenHash string) (model.RefreshSession, error) {
	var session model.RefreshSession
	row := s.pool.QueryRow(ctx, `
		SELECT id::text, user_id::text, token_hash, created_at, expires_at, revoked_at, user_agent, ip_address
		FROM refresh_token_sessions
		WHERE token_hash = $1
	`, tokenHash)
	err := row.Scan(&session.ID, &session.UserID, &session.TokenHash, &session.CreatedAt, &session.ExpiresAt, &session.RevokedAt, &session.UserAgent, &session.IPAddress)
	return session, err
}

func (s *Store) RevokeRefreshSession(ctx context.Context, sessionID string, revokedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE refresh_token_sessions SET revoked_at = $1 WHERE id = $2`, revokedAt, sessionID)
	return err
}

func (s *Store) RevokeRefreshSessionsByUser(ctx context.Context, userID string, revokedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE refresh_token_sessions
		SET revoked_at = $1
		WHERE user_id = $2 AND revoked_at IS NULL
	`, revokedAt, userID)
	return err
}

// PurgeRefreshSessions deletes sessions that expired or were revoked before
// cutoff.
func (s *Store) PurgeRefreshSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM refresh_token_sessions
		WHERE expires_at < $1 OR revoked_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
