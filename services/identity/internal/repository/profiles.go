package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"srik/services/identity/internal/model"
)

const profileColumns = `id::text, full_name, avatar_url, email, role, created_at, updated_at`

func scanProfile(row pgx.Row) (model.Profile, error) {
	var p model.Profile
	err := row.Scan(&p.ID, &p.FullName, &p.AvatarURL, &p.Email, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) GetProfile(ctx context.Context, userID string) (model.Profile, error) {
	return scanProfile(s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, userID))
}

// UpdateProfile changes the fields that are non-nil.
func (s *Store) UpdateProfile(ctx context.Context, userID string, fullName, avatarURL *string) (model.Profile, error) {
	return scanProfile(s.pool.QueryRow(ctx, `
		UPDATE profiles
		SET full_name = COALESCE($2, full_name),
		    avatar_url = COALESCE($3, avatar_url),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+profileColumns,
		userID, fullName, avatarURL))
}
