package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/GianAlbi/API-Back-end-project-managemet/internal/domain/user"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailOrUsernameTaken = errors.New("email or username already taken")
)

const userColumns = `id, username, email, full_name, role, password_hash,
	refresh_token_hash, is_email_verified,
	email_verification_token, email_verification_expiry,
	forgot_password_token, forgot_password_expiry,
	created_at, updated_at`

// UsersRepo owns the authentication-relevant fields of a user row. Paired
// token+expiry columns are only ever written by a single statement so they
// stay set or cleared together.
type UsersRepo struct {
	pool    *pgxpool.Pool
	metrics *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, metrics *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, metrics: metrics}
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) error {
	return r.metrics.ObserveDB("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, username, email, full_name, role, password_hash,
				is_email_verified, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			u.ID, u.Username, u.Email, u.FullName, u.Role, u.PasswordHash,
			u.IsEmailVerified, u.CreatedAt, u.UpdatedAt,
		)

		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailOrUsernameTaken
		}

		return err
	})
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_email",
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_id",
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UsersRepo) GetByEmailOrUsername(ctx context.Context, email, username string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_email_or_username",
		`SELECT `+userColumns+` FROM users WHERE email = $1 OR username = $2`, email, username)
}

// GetByEmailVerificationToken looks a user up by the at-rest digest of a
// verification token. Expiry is checked by the caller against current time.
func (r *UsersRepo) GetByEmailVerificationToken(ctx context.Context, tokenHash string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_verification_token",
		`SELECT `+userColumns+` FROM users WHERE email_verification_token = $1`, tokenHash)
}

func (r *UsersRepo) GetByForgotPasswordToken(ctx context.Context, tokenHash string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_reset_token",
		`SELECT `+userColumns+` FROM users WHERE forgot_password_token = $1`, tokenHash)
}

// UpdateRefreshToken overwrites the single stored refresh-token digest.
// An empty hash clears it (logout). Last write wins on concurrent refreshes.
func (r *UsersRepo) UpdateRefreshToken(ctx context.Context, userID, tokenHash string) error {
	return r.exec(ctx, "users.update_refresh_token",
		`UPDATE users SET refresh_token_hash = $2, updated_at = NOW() WHERE id = $1`,
		userID, tokenHash)
}

func (r *UsersRepo) SetEmailVerificationToken(ctx context.Context, userID, tokenHash string, expiry time.Time) error {
	return r.exec(ctx, "users.set_verification_token",
		`UPDATE users
		 SET email_verification_token = $2, email_verification_expiry = $3, updated_at = NOW()
		 WHERE id = $1`,
		userID, tokenHash, expiry)
}

// MarkEmailVerified flips the verified flag and consumes the token pair in
// one statement.
func (r *UsersRepo) MarkEmailVerified(ctx context.Context, userID string) error {
	return r.exec(ctx, "users.mark_email_verified",
		`UPDATE users
		 SET is_email_verified = TRUE,
		     email_verification_token = NULL, email_verification_expiry = NULL,
		     updated_at = NOW()
		 WHERE id = $1`,
		userID)
}

func (r *UsersRepo) SetForgotPasswordToken(ctx context.Context, userID, tokenHash string, expiry time.Time) error {
	return r.exec(ctx, "users.set_reset_token",
		`UPDATE users
		 SET forgot_password_token = $2, forgot_password_expiry = $3, updated_at = NOW()
		 WHERE id = $1`,
		userID, tokenHash, expiry)
}

// ResetPassword consumes the reset-token pair and installs the new hash in
// one statement.
func (r *UsersRepo) ResetPassword(ctx context.Context, userID, newPasswordHash string) error {
	return r.exec(ctx, "users.reset_password",
		`UPDATE users
		 SET password_hash = $2,
		     forgot_password_token = NULL, forgot_password_expiry = NULL,
		     updated_at = NOW()
		 WHERE id = $1`,
		userID, newPasswordHash)
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, userID, newPasswordHash string) error {
	return r.exec(ctx, "users.update_password",
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
		userID, newPasswordHash)
}

func (r *UsersRepo) getOne(ctx context.Context, op, query string, args ...any) (user.User, error) {
	var u user.User

	err := r.metrics.ObserveDB(op, func() error {
		return r.pool.QueryRow(ctx, query, args...).Scan(
			&u.ID,
			&u.Username,
			&u.Email,
			&u.FullName,
			&u.Role,
			&u.PasswordHash,
			&u.RefreshTokenHash,
			&u.IsEmailVerified,
			&u.EmailVerificationToken,
			&u.EmailVerificationExpiry,
			&u.ForgotPasswordToken,
			&u.ForgotPasswordExpiry,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) exec(ctx context.Context, op, query string, args ...any) error {
	return r.metrics.ObserveDB(op, func() error {
		tag, err := r.pool.Exec(ctx, query, args...)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}

		return nil
	})
}
