package db

import (
	"context"
	"errors"
	"time"

	"github.com/GianAlbi/API-Back-end-project-managemet/internal/config"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/domain/user"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/security"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureAdminUser creates the bootstrap admin account if ADMIN_* env is set
// and no user with that email exists yet. The seeded admin starts verified.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, cfg.AdminEmail).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	now := time.Now().UTC()

	u := user.User{
		ID:              uuid.NewString(),
		Username:        cfg.AdminUsername,
		Email:           cfg.AdminEmail,
		Role:            user.RoleAdmin,
		PasswordHash:    hash,
		IsEmailVerified: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, username, email, role, password_hash, is_email_verified, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		u.ID, u.Username, u.Email, u.Role, u.PasswordHash, u.IsEmailVerified, u.CreatedAt, u.UpdatedAt,
	)

	return err
}
