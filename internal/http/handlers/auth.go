package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/GianAlbi/API-Back-end-project-managemet/internal/auth"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/config"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/domain/user"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/http/middlewares"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/mail"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/observability"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/repo/postgres"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserStore is the credential-store contract the auth flows mutate through.
type UserStore interface {
	Create(ctx context.Context, u user.User) error
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmailOrUsername(ctx context.Context, email, username string) (user.User, error)
	GetByEmailVerificationToken(ctx context.Context, tokenHash string) (user.User, error)
	GetByForgotPasswordToken(ctx context.Context, tokenHash string) (user.User, error)
	UpdateRefreshToken(ctx context.Context, userID, tokenHash string) error
	SetEmailVerificationToken(ctx context.Context, userID, tokenHash string, expiry time.Time) error
	MarkEmailVerified(ctx context.Context, userID string) error
	SetForgotPasswordToken(ctx context.Context, userID, tokenHash string, expiry time.Time) error
	ResetPassword(ctx context.Context, userID, newPasswordHash string) error
	UpdatePassword(ctx context.Context, userID, newPasswordHash string) error
}

const (
	accessTokenCookie  = middlewares.AccessTokenCookie
	refreshTokenCookie = "refreshToken"
)

type AuthHandler struct {
	users   UserStore
	jwt     *auth.Signer
	mailer  mail.Mailer
	cfg     config.Config
	log     *slog.Logger
	metrics *observability.Prom
}

func NewAuthHandler(users UserStore, jwt *auth.Signer, mailer mail.Mailer, cfg config.Config, log *slog.Logger, metrics *observability.Prom) *AuthHandler {
	return &AuthHandler{
		users:   users,
		jwt:     jwt,
		mailer:  mailer,
		cfg:     cfg,
		log:     log,
		metrics: metrics,
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"fullName"`
	Role     string `json:"role" binding:"omitempty,oneof=admin member"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// Register creates an unverified account and mails a verification link.
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	email := normalize(req.Email)
	username := normalize(req.Username)

	role := req.Role

	if role == "" {
		role = user.RoleMember
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	_, err := h.users.GetByEmailOrUsername(cctx, email, username)

	if err == nil {
		RespondConflict(ctx, "User with email or username already exists")
		return
	}

	if !errors.Is(err, postgres.ErrUserNotFound) {
		RespondInternal(ctx, "Could not create user")
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = h.users.Create(cctx, u)

	if err != nil {
		if errors.Is(err, postgres.ErrEmailOrUsernameTaken) {
			RespondConflict(ctx, "User with email or username already exists")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	if err := h.issueVerificationMail(cctx, u); err != nil {
		// mail is best effort: log and keep the success response
		h.log.ErrorContext(ctx.Request.Context(), "verification mail failed", "user_id", u.ID, "err", err)
	}

	Respond(ctx, http.StatusCreated, gin.H{"user": u},
		"User registered successfully. A verification email has been sent.")
}

// Login checks credentials and issues the token pair. The new refresh token
// becomes the user's only valid one.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, normalize(req.Email))

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			h.countLogin("unknown_user")
			RespondNotFound(ctx, "User does not exist")
			return
		}

		h.countLogin("error")
		RespondInternal(ctx, "Could not log in")
		return
	}

	if err := security.CheckPassword(foundUser.PasswordHash, req.Password); err != nil {
		h.countLogin("bad_credentials")
		RespondUnauthorized(ctx, "Invalid credentials")
		return
	}

	accessToken, refreshToken, err := h.issueTokenPair(cctx, foundUser)

	if err != nil {
		h.countLogin("error")
		RespondInternal(ctx, "Could not log in")
		return
	}

	h.setAuthCookies(ctx, accessToken, refreshToken)
	h.countLogin("success")

	Respond(ctx, http.StatusOK, gin.H{
		"user":         foundUser,
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	}, "User logged in successfully")
}

// Logout clears the stored refresh token and both cookies. Idempotent.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Unauthorized request")
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	if err := h.users.UpdateRefreshToken(cctx, principal.ID, ""); err != nil {
		RespondInternal(ctx, "Could not log out")
		return
	}

	h.clearAuthCookies(ctx)

	Respond(ctx, http.StatusOK, nil, "User logged out")
}

// CurrentUser returns the already-authenticated principal.
func (h *AuthHandler) CurrentUser(ctx *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Unauthorized request")
		return
	}

	Respond(ctx, http.StatusOK, gin.H{"user": principal}, "Current user fetched successfully")
}

// VerifyEmail consumes a verification token from the link.
func (h *AuthHandler) VerifyEmail(ctx *gin.Context) {
	plain := ctx.Param("verificationToken")

	if plain == "" {
		RespondBadRequest(ctx, "Verification token is missing", nil)
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	foundUser, err := h.users.GetByEmailVerificationToken(cctx, security.HashToken(plain))

	if err != nil {
		// unknown and expired tokens answer alike
		RespondBadRequest(ctx, "Token is invalid or expired", nil)
		return
	}

	if foundUser.EmailVerificationToken == nil || foundUser.EmailVerificationExpiry == nil ||
		!security.ValidateToken(plain, *foundUser.EmailVerificationToken, *foundUser.EmailVerificationExpiry, time.Now().UTC()) {
		RespondBadRequest(ctx, "Token is invalid or expired", nil)
		return
	}

	if err := h.users.MarkEmailVerified(cctx, foundUser.ID); err != nil {
		RespondInternal(ctx, "Could not verify email")
		return
	}

	Respond(ctx, http.StatusOK, gin.H{"isEmailVerified": true}, "Email verified successfully")
}

// ResendEmailVerification regenerates the token pair; the overwrite
// invalidates the previous link.
func (h *AuthHandler) ResendEmailVerification(ctx *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Unauthorized request")
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	foundUser, err := h.users.GetByID(cctx, principal.ID)

	if err != nil {
		RespondNotFound(ctx, "User does not exist")
		return
	}

	if foundUser.IsEmailVerified {
		RespondConflict(ctx, "Email is already verified")
		return
	}

	if err := h.issueVerificationMail(cctx, foundUser); err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "verification mail failed", "user_id", foundUser.ID, "err", err)
	}

	Respond(ctx, http.StatusOK, nil, "Mail has been sent to your email id")
}

// RefreshAccessToken rotates the pair. The incoming token must match the one
// stored on the user; a rotated-out token is rejected even if its signature
// still verifies.
func (h *AuthHandler) RefreshAccessToken(ctx *gin.Context) {
	raw := h.incomingRefreshToken(ctx)

	if raw == "" {
		h.countRefresh("invalid")
		RespondUnauthorized(ctx, "Unauthorized request")
		return
	}

	subject, err := h.jwt.VerifyRefreshToken(raw)

	if err != nil {
		h.countRefresh("invalid")
		RespondUnauthorized(ctx, "Invalid refresh token")
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	foundUser, err := h.users.GetByID(cctx, subject)

	if err != nil {
		h.countRefresh("invalid")
		RespondUnauthorized(ctx, "Invalid refresh token")
		return
	}

	if h.jwt.HashRefreshToken(raw) != foundUser.RefreshTokenHash {
		// reuse of a superseded token
		h.countRefresh("reused")
		RespondUnauthorized(ctx, "Refresh token is expired or used")
		return
	}

	accessToken, refreshToken, err := h.issueTokenPair(cctx, foundUser)

	if err != nil {
		h.countRefresh("error")
		RespondInternal(ctx, "Could not refresh access token")
		return
	}

	h.setAuthCookies(ctx, accessToken, refreshToken)
	h.countRefresh("success")

	Respond(ctx, http.StatusOK, gin.H{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	}, "Access token refreshed")
}

// ForgotPassword mails a reset link for a known email.
func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req ForgotPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, normalize(req.Email))

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondNotFound(ctx, "User does not exist")
			return
		}

		RespondInternal(ctx, "Could not process request")
		return
	}

	token, err := security.NewTemporaryToken()

	if err != nil {
		RespondInternal(ctx, "Could not process request")
		return
	}

	if err := h.users.SetForgotPasswordToken(cctx, foundUser.ID, token.Hash, token.ExpiresAt); err != nil {
		RespondInternal(ctx, "Could not process request")
		return
	}

	resetMail := mail.ResetMail{
		Email:    foundUser.Email,
		Username: foundUser.Username,
		ResetURL: h.cfg.ForgotPasswordRedirectURL + "/" + token.Plain,
	}

	if err := h.mailer.SendPasswordReset(cctx, resetMail); err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "password reset mail failed", "user_id", foundUser.ID, "err", err)
	}

	Respond(ctx, http.StatusOK, nil, "Password reset mail has been sent to your email id")
}

// ResetForgotPassword consumes a reset token and installs the new password.
func (h *AuthHandler) ResetForgotPassword(ctx *gin.Context) {
	plain := ctx.Param("resetToken")

	if plain == "" {
		RespondBadRequest(ctx, "Reset token is missing", nil)
		return
	}

	var req ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	foundUser, err := h.users.GetByForgotPasswordToken(cctx, security.HashToken(plain))

	if err != nil {
		RespondError(ctx, StatusTokenExpired, "Token is invalid or expired", nil)
		return
	}

	if foundUser.ForgotPasswordToken == nil || foundUser.ForgotPasswordExpiry == nil ||
		!security.ValidateToken(plain, *foundUser.ForgotPasswordToken, *foundUser.ForgotPasswordExpiry, time.Now().UTC()) {
		RespondError(ctx, StatusTokenExpired, "Token is invalid or expired", nil)
		return
	}

	hash, err := security.HashPassword(req.NewPassword)

	if err != nil {
		RespondInternal(ctx, "Could not reset password")
		return
	}

	if err := h.users.ResetPassword(cctx, foundUser.ID, hash); err != nil {
		RespondInternal(ctx, "Could not reset password")
		return
	}

	Respond(ctx, http.StatusOK, nil, "Password reset successfully")
}

// ChangeCurrentPassword swaps the password after checking the old one.
func (h *AuthHandler) ChangeCurrentPassword(ctx *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Unauthorized request")
		return
	}

	var req ChangePasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if err := security.CheckPassword(principal.PasswordHash, req.OldPassword); err != nil {
		RespondBadRequest(ctx, "Invalid old password", nil)
		return
	}

	hash, err := security.HashPassword(req.NewPassword)

	if err != nil {
		RespondInternal(ctx, "Could not change password")
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	if err := h.users.UpdatePassword(cctx, principal.ID, hash); err != nil {
		RespondInternal(ctx, "Could not change password")
		return
	}

	Respond(ctx, http.StatusOK, nil, "Password changed successfully")
}

// Helper functions

func (h *AuthHandler) issueTokenPair(ctx context.Context, u user.User) (accessToken, refreshToken string, err error) {
	accessToken, err = h.jwt.IssueAccessToken(u.ID, u.Email, u.Username)

	if err != nil {
		return "", "", err
	}

	refreshToken, err = h.jwt.IssueRefreshToken(u.ID)

	if err != nil {
		return "", "", err
	}

	err = h.users.UpdateRefreshToken(ctx, u.ID, h.jwt.HashRefreshToken(refreshToken))

	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func (h *AuthHandler) issueVerificationMail(ctx context.Context, u user.User) error {
	token, err := security.NewTemporaryToken()

	if err != nil {
		return err
	}

	err = h.users.SetEmailVerificationToken(ctx, u.ID, token.Hash, token.ExpiresAt)

	if err != nil {
		return err
	}

	return h.mailer.SendEmailVerification(ctx, mail.VerificationMail{
		Email:     u.Email,
		Username:  u.Username,
		VerifyURL: h.cfg.PublicBaseURL + "/api/v1/auth/verify-email/" + token.Plain,
	})
}

func (h *AuthHandler) incomingRefreshToken(ctx *gin.Context) string {
	if cookie, err := ctx.Cookie(refreshTokenCookie); err == nil && cookie != "" {
		return cookie
	}

	var req RefreshRequest

	if err := ctx.ShouldBindJSON(&req); err == nil {
		return req.RefreshToken
	}

	return ""
}

func (h *AuthHandler) setAuthCookies(ctx *gin.Context, accessToken, refreshToken string) {
	secure := h.cfg.Env == "prod"

	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(accessTokenCookie, accessToken,
		int(h.cfg.AccessTokenTTL.Seconds()), "/", "", secure, true)
	ctx.SetCookie(refreshTokenCookie, refreshToken,
		int(h.cfg.RefreshTokenTTL.Seconds()), "/", "", secure, true)
}

func (h *AuthHandler) clearAuthCookies(ctx *gin.Context) {
	secure := h.cfg.Env == "prod"

	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(accessTokenCookie, "", -1, "/", "", secure, true)
	ctx.SetCookie(refreshTokenCookie, "", -1, "/", "", secure, true)
}

func (h *AuthHandler) countLogin(result string) {
	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues(result).Inc()
	}
}

func (h *AuthHandler) countRefresh(result string) {
	if h.metrics != nil {
		h.metrics.TokenRefreshTotal.WithLabelValues(result).Inc()
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
