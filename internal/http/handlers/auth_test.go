package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GianAlbi/API-Back-end-project-managemet/internal/auth"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/config"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/domain/user"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/http/middlewares"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/mail"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/repo/postgres"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/security"
	"github.com/gin-gonic/gin"
)

// fakeUserStore keeps users in memory and mirrors the repo's error contract.
type fakeUserStore struct {
	users map[string]user.User // by id
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]user.User)}
}

func (s *fakeUserStore) Create(_ context.Context, u user.User) error {
	for _, existing := range s.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return postgres.ErrEmailOrUsernameTaken
		}
	}

	s.users[u.ID] = u
	return nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (user.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, postgres.ErrUserNotFound
}

func (s *fakeUserStore) GetByID(_ context.Context, id string) (user.User, error) {
	u, ok := s.users[id]
	if !ok {
		return user.User{}, postgres.ErrUserNotFound
	}
	return u, nil
}

func (s *fakeUserStore) GetByEmailOrUsername(_ context.Context, email, username string) (user.User, error) {
	for _, u := range s.users {
		if u.Email == email || u.Username == username {
			return u, nil
		}
	}
	return user.User{}, postgres.ErrUserNotFound
}

func (s *fakeUserStore) GetByEmailVerificationToken(_ context.Context, tokenHash string) (user.User, error) {
	for _, u := range s.users {
		if u.EmailVerificationToken != nil && *u.EmailVerificationToken == tokenHash {
			return u, nil
		}
	}
	return user.User{}, postgres.ErrUserNotFound
}

func (s *fakeUserStore) GetByForgotPasswordToken(_ context.Context, tokenHash string) (user.User, error) {
	for _, u := range s.users {
		if u.ForgotPasswordToken != nil && *u.ForgotPasswordToken == tokenHash {
			return u, nil
		}
	}
	return user.User{}, postgres.ErrUserNotFound
}

func (s *fakeUserStore) UpdateRefreshToken(_ context.Context, userID, tokenHash string) error {
	u, ok := s.users[userID]
	if !ok {
		return postgres.ErrUserNotFound
	}

	u.RefreshTokenHash = tokenHash
	s.users[userID] = u
	return nil
}

func (s *fakeUserStore) SetEmailVerificationToken(_ context.Context, userID, tokenHash string, expiry time.Time) error {
	u, ok := s.users[userID]
	if !ok {
		return postgres.ErrUserNotFound
	}

	u.EmailVerificationToken = &tokenHash
	u.EmailVerificationExpiry = &expiry
	s.users[userID] = u
	return nil
}

func (s *fakeUserStore) MarkEmailVerified(_ context.Context, userID string) error {
	u, ok := s.users[userID]
	if !ok {
		return postgres.ErrUserNotFound
	}

	u.IsEmailVerified = true
	u.EmailVerificationToken = nil
	u.EmailVerificationExpiry = nil
	s.users[userID] = u
	return nil
}

func (s *fakeUserStore) SetForgotPasswordToken(_ context.Context, userID, tokenHash string, expiry time.Time) error {
	u, ok := s.users[userID]
	if !ok {
		return postgres.ErrUserNotFound
	}

	u.ForgotPasswordToken = &tokenHash
	u.ForgotPasswordExpiry = &expiry
	s.users[userID] = u
	return nil
}

func (s *fakeUserStore) ResetPassword(_ context.Context, userID, newPasswordHash string) error {
	u, ok := s.users[userID]
	if !ok {
		return postgres.ErrUserNotFound
	}

	u.PasswordHash = newPasswordHash
	u.ForgotPasswordToken = nil
	u.ForgotPasswordExpiry = nil
	s.users[userID] = u
	return nil
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, userID, newPasswordHash string) error {
	u, ok := s.users[userID]
	if !ok {
		return postgres.ErrUserNotFound
	}

	u.PasswordHash = newPasswordHash
	s.users[userID] = u
	return nil
}

// fakeMailer records what the handlers tried to send.
type fakeMailer struct {
	verifications []mail.VerificationMail
	resets        []mail.ResetMail
	err           error
}

func (m *fakeMailer) SendEmailVerification(_ context.Context, v mail.VerificationMail) error {
	if m.err != nil {
		return m.err
	}
	m.verifications = append(m.verifications, v)
	return nil
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, r mail.ResetMail) error {
	if m.err != nil {
		return m.err
	}
	m.resets = append(m.resets, r)
	return nil
}

type authTestEnv struct {
	store  *fakeUserStore
	mailer *fakeMailer
	signer *auth.Signer
	router *gin.Engine

	// when set, authenticated routes resolve this user as the principal
	currentUserID string
}

func newAuthTestEnv(t *testing.T) *authTestEnv {
	t.Helper()

	gin.SetMode(gin.TestMode)

	env := &authTestEnv{
		store:  newFakeUserStore(),
		mailer: &fakeMailer{},
		signer: auth.NewSigner("access-secret", "refresh-secret", 15*time.Minute, time.Hour),
	}

	cfg := config.Config{
		Env:                       "test",
		AccessTokenTTL:            15 * time.Minute,
		RefreshTokenTTL:           time.Hour,
		PublicBaseURL:             "http://localhost:8080",
		ForgotPasswordRedirectURL: "http://localhost:3000/reset-password",
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := NewAuthHandler(env.store, env.signer, env.mailer, cfg, log, nil)

	r := gin.New()

	v1 := r.Group("/api/v1/auth")
	v1.POST("/register", h.Register)
	v1.POST("/login", h.Login)
	v1.GET("/verify-email/:verificationToken", h.VerifyEmail)
	v1.POST("/refresh-token", h.RefreshAccessToken)
	v1.POST("/forgot-password", h.ForgotPassword)
	v1.POST("/reset-password/:resetToken", h.ResetForgotPassword)

	authed := v1.Group("")
	authed.Use(func(c *gin.Context) {
		if env.currentUserID == "" {
			c.Next()
			return
		}
		if u, err := env.store.GetByID(c.Request.Context(), env.currentUserID); err == nil {
			c.Set(middlewares.CtxPrincipal, u)
		}
		c.Next()
	})
	authed.POST("/logout", h.Logout)
	authed.POST("/current-user", h.CurrentUser)
	authed.POST("/change-password", h.ChangeCurrentPassword)
	authed.POST("/resend-email-verification", h.ResendEmailVerification)

	env.router = r

	return env
}

func (e *authTestEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader

	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()

	var env Envelope

	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, w.Body.String())
	}

	return env
}

func (e *authTestEnv) register(t *testing.T, email, username, password string) user.User {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Email:    email,
		Username: username,
		Password: password,
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("register: status = %d, body %s", w.Code, w.Body.String())
	}

	u, err := e.store.GetByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("registered user not in store: %v", err)
	}

	return u
}

// tokenFromURL pulls the plain token out of a mailed link.
func tokenFromURL(t *testing.T, url string) string {
	t.Helper()

	i := strings.LastIndex(url, "/")
	if i < 0 || i == len(url)-1 {
		t.Fatalf("no token in url %q", url)
	}

	return url[i+1:]
}

func TestRegister(t *testing.T) {
	env := newAuthTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Email:    "Sam@Example.com",
		Username: "Sam",
		Password: "supersecret",
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	resp := decodeEnvelope(t, w)

	if !resp.Success || resp.StatusCode != http.StatusCreated {
		t.Errorf("envelope = %+v, want success 201", resp)
	}

	u, err := env.store.GetByEmail(context.Background(), "sam@example.com")

	if err != nil {
		t.Fatalf("user not stored under normalized email: %v", err)
	}

	if u.Username != "sam" {
		t.Errorf("username = %q, want normalized sam", u.Username)
	}

	if u.Role != user.RoleMember {
		t.Errorf("role = %q, want default member", u.Role)
	}

	if u.IsEmailVerified {
		t.Errorf("new account must start unverified")
	}

	if u.PasswordHash == "supersecret" || u.PasswordHash == "" {
		t.Errorf("password stored in the clear or missing")
	}

	if len(env.mailer.verifications) != 1 {
		t.Fatalf("verification mails = %d, want 1", len(env.mailer.verifications))
	}

	sent := env.mailer.verifications[0]

	if sent.Email != "sam@example.com" {
		t.Errorf("mail addressed to %q", sent.Email)
	}

	// the stored hash must be the digest of the mailed token, never the token
	plain := tokenFromURL(t, sent.VerifyURL)

	if u.EmailVerificationToken == nil || *u.EmailVerificationToken != security.HashToken(plain) {
		t.Errorf("stored verification token is not the hash of the mailed one")
	}
}

func TestRegisterConflict(t *testing.T) {
	env := newAuthTestEnv(t)
	env.register(t, "sam@example.com", "sam", "supersecret")

	// same email, different username
	w := env.do(t, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Email:    "sam@example.com",
		Username: "othersam",
		Password: "supersecret",
	})

	if w.Code != http.StatusConflict {
		t.Errorf("duplicate email: status = %d, want 409", w.Code)
	}

	// same username, different email
	w = env.do(t, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Email:    "other@example.com",
		Username: "sam",
		Password: "supersecret",
	})

	if w.Code != http.StatusConflict {
		t.Errorf("duplicate username: status = %d, want 409", w.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newAuthTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Email:    "not-an-email",
		Username: "ab",
		Password: "short",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var resp ErrorEnvelope

	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}

	if len(resp.Errors) == 0 {
		t.Errorf("expected field errors, got none")
	}

	// registration survives a mail outage
	env.mailer.err = context.DeadlineExceeded

	w = env.do(t, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Email:    "sam@example.com",
		Username: "sam",
		Password: "supersecret",
	})

	if w.Code != http.StatusCreated {
		t.Errorf("register with failing mailer: status = %d, want 201", w.Code)
	}
}

func TestLogin(t *testing.T) {
	env := newAuthTestEnv(t)
	u := env.register(t, "sam@example.com", "sam", "supersecret")

	// unknown user
	w := env.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Email:    "nobody@example.com",
		Password: "supersecret",
	})

	if w.Code != http.StatusNotFound {
		t.Errorf("unknown user: status = %d, want 404", w.Code)
	}

	// wrong password
	w = env.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Email:    "sam@example.com",
		Password: "wrongpassword",
	})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: status = %d, want 401", w.Code)
	}

	// success
	w = env.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Email:    "sam@example.com",
		Password: "supersecret",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("login: status = %d, body %s", w.Code, w.Body.String())
	}

	var gotAccess, gotRefresh bool

	for _, c := range w.Result().Cookies() {
		switch c.Name {
		case "accessToken":
			gotAccess = c.Value != "" && c.HttpOnly
		case "refreshToken":
			gotRefresh = c.Value != "" && c.HttpOnly

			// the stored hash must match the issued token
			stored, _ := env.store.GetByID(context.Background(), u.ID)
			if env.signer.HashRefreshToken(c.Value) != stored.RefreshTokenHash {
				t.Errorf("stored refresh hash does not match issued token")
			}
		}
	}

	if !gotAccess || !gotRefresh {
		t.Errorf("cookies: access = %v, refresh = %v, want both http-only", gotAccess, gotRefresh)
	}

	resp := decodeEnvelope(t, w)
	data, ok := resp.Data.(map[string]any)

	if !ok {
		t.Fatalf("login data = %T", resp.Data)
	}

	access, _ := data["accessToken"].(string)
	refresh, _ := data["refreshToken"].(string)

	if access == "" || refresh == "" {
		t.Errorf("token pair missing from response body")
	}

	if userData, ok := data["user"].(map[string]any); ok {
		if _, leaked := userData["passwordHash"]; leaked {
			t.Errorf("password hash leaked in login response")
		}
	}
}

func TestVerifyEmail(t *testing.T) {
	env := newAuthTestEnv(t)
	env.register(t, "sam@example.com", "sam", "supersecret")

	plain := tokenFromURL(t, env.mailer.verifications[0].VerifyURL)

	w := env.do(t, http.MethodGet, "/api/v1/auth/verify-email/"+plain, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("verify: status = %d, body %s", w.Code, w.Body.String())
	}

	u, _ := env.store.GetByEmail(context.Background(), "sam@example.com")

	if !u.IsEmailVerified {
		t.Errorf("user still unverified after verify")
	}

	if u.EmailVerificationToken != nil || u.EmailVerificationExpiry != nil {
		t.Errorf("token pair not cleared after verify")
	}

	// single use: the same link fails the second time
	w = env.do(t, http.MethodGet, "/api/v1/auth/verify-email/"+plain, nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("reused token: status = %d, want 400", w.Code)
	}
}

func TestVerifyEmailBadToken(t *testing.T) {
	env := newAuthTestEnv(t)
	env.register(t, "sam@example.com", "sam", "supersecret")

	w := env.do(t, http.MethodGet, "/api/v1/auth/verify-email/ffffffffffffffffffffffffffffffffffffffff", nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown token: status = %d, want 400", w.Code)
	}

	resp := decodeEnvelope(t, w)

	if resp.Message != "Token is invalid or expired" {
		t.Errorf("message = %q, unknown and expired must read alike", resp.Message)
	}
}

func TestResendEmailVerification(t *testing.T) {
	env := newAuthTestEnv(t)
	u := env.register(t, "sam@example.com", "sam", "supersecret")
	env.currentUserID = u.ID

	firstHash := *env.store.users[u.ID].EmailVerificationToken

	w := env.do(t, http.MethodPost, "/api/v1/auth/resend-email-verification", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("resend: status = %d, body %s", w.Code, w.Body.String())
	}

	if len(env.mailer.verifications) != 2 {
		t.Fatalf("verification mails = %d, want 2", len(env.mailer.verifications))
	}

	// the overwrite invalidates the first link
	if *env.store.users[u.ID].EmailVerificationToken == firstHash {
		t.Errorf("resend did not rotate the stored token")
	}

	// already verified
	_ = env.store.MarkEmailVerified(context.Background(), u.ID)

	w = env.do(t, http.MethodPost, "/api/v1/auth/resend-email-verification", nil)

	if w.Code != http.StatusConflict {
		t.Errorf("verified account: status = %d, want 409", w.Code)
	}
}

func TestRefreshTokenRotation(t *testing.T) {
	env := newAuthTestEnv(t)
	env.register(t, "sam@example.com", "sam", "supersecret")

	w := env.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Email:    "sam@example.com",
		Password: "supersecret",
	})

	resp := decodeEnvelope(t, w)
	firstRefresh := resp.Data.(map[string]any)["refreshToken"].(string)

	// rotate via request body
	w = env.do(t, http.MethodPost, "/api/v1/auth/refresh-token", RefreshRequest{RefreshToken: firstRefresh})

	if w.Code != http.StatusOK {
		t.Fatalf("refresh: status = %d, body %s", w.Code, w.Body.String())
	}

	resp = decodeEnvelope(t, w)
	secondRefresh := resp.Data.(map[string]any)["refreshToken"].(string)

	if secondRefresh == firstRefresh {
		t.Fatalf("refresh did not rotate the token")
	}

	// the superseded token is dead even though its signature still verifies
	w = env.do(t, http.MethodPost, "/api/v1/auth/refresh-token", RefreshRequest{RefreshToken: firstRefresh})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("reused token: status = %d, want 401", w.Code)
	}

	reusedResp := decodeEnvelope(t, w)

	if reusedResp.Message != "Refresh token is expired or used" {
		t.Errorf("reuse message = %q", reusedResp.Message)
	}

	// the current token still works, via cookie this time
	w = env.do(t, http.MethodPost, "/api/v1/auth/refresh-token", nil,
		&http.Cookie{Name: "refreshToken", Value: secondRefresh})

	if w.Code != http.StatusOK {
		t.Errorf("cookie refresh: status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestRefreshTokenRejectsGarbage(t *testing.T) {
	env := newAuthTestEnv(t)

	// no token at all
	w := env.do(t, http.MethodPost, "/api/v1/auth/refresh-token", nil)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing token: status = %d, want 401", w.Code)
	}

	// not a jwt
	w = env.do(t, http.MethodPost, "/api/v1/auth/refresh-token", RefreshRequest{RefreshToken: "garbage"})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: status = %d, want 401", w.Code)
	}

	// valid signature but the subject no longer exists
	orphan, err := env.signer.IssueRefreshToken("gone-user")
	if err != nil {
		t.Fatalf("IssueRefreshToken returned error: %v", err)
	}

	w = env.do(t, http.MethodPost, "/api/v1/auth/refresh-token", RefreshRequest{RefreshToken: orphan})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("orphan token: status = %d, want 401", w.Code)
	}
}

func TestLogout(t *testing.T) {
	env := newAuthTestEnv(t)
	u := env.register(t, "sam@example.com", "sam", "supersecret")

	env.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Email:    "sam@example.com",
		Password: "supersecret",
	})

	env.currentUserID = u.ID

	w := env.do(t, http.MethodPost, "/api/v1/auth/logout", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("logout: status = %d, body %s", w.Code, w.Body.String())
	}

	if env.store.users[u.ID].RefreshTokenHash != "" {
		t.Errorf("refresh hash not cleared on logout")
	}

	for _, c := range w.Result().Cookies() {
		if (c.Name == "accessToken" || c.Name == "refreshToken") && c.MaxAge >= 0 {
			t.Errorf("cookie %s not expired on logout", c.Name)
		}
	}

	// idempotent
	w = env.do(t, http.MethodPost, "/api/v1/auth/logout", nil)

	if w.Code != http.StatusOK {
		t.Errorf("second logout: status = %d, want 200", w.Code)
	}

	// unauthenticated
	env.currentUserID = ""

	w = env.do(t, http.MethodPost, "/api/v1/auth/logout", nil)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("logout without principal: status = %d, want 401", w.Code)
	}
}

func TestCurrentUser(t *testing.T) {
	env := newAuthTestEnv(t)
	u := env.register(t, "sam@example.com", "sam", "supersecret")

	w := env.do(t, http.MethodPost, "/api/v1/auth/current-user", nil)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated: status = %d, want 401", w.Code)
	}

	env.currentUserID = u.ID

	w = env.do(t, http.MethodPost, "/api/v1/auth/current-user", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("current-user: status = %d, body %s", w.Code, w.Body.String())
	}

	resp := decodeEnvelope(t, w)
	data := resp.Data.(map[string]any)
	userData := data["user"].(map[string]any)

	if userData["email"] != "sam@example.com" {
		t.Errorf("email = %v", userData["email"])
	}
}

func TestChangeCurrentPassword(t *testing.T) {
	env := newAuthTestEnv(t)
	u := env.register(t, "sam@example.com", "sam", "supersecret")
	env.currentUserID = u.ID

	// wrong old password
	w := env.do(t, http.MethodPost, "/api/v1/auth/change-password", ChangePasswordRequest{
		OldPassword: "wrongpassword",
		NewPassword: "evenmoresecret",
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("wrong old password: status = %d, want 400", w.Code)
	}

	// success
	w = env.do(t, http.MethodPost, "/api/v1/auth/change-password", ChangePasswordRequest{
		OldPassword: "supersecret",
		NewPassword: "evenmoresecret",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("change-password: status = %d, body %s", w.Code, w.Body.String())
	}

	stored := env.store.users[u.ID]

	if err := security.CheckPassword(stored.PasswordHash, "evenmoresecret"); err != nil {
		t.Errorf("new password does not check out: %v", err)
	}

	if err := security.CheckPassword(stored.PasswordHash, "supersecret"); err == nil {
		t.Errorf("old password still works")
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	env := newAuthTestEnv(t)
	u := env.register(t, "sam@example.com", "sam", "supersecret")

	// unknown email
	w := env.do(t, http.MethodPost, "/api/v1/auth/forgot-password", ForgotPasswordRequest{
		Email: "nobody@example.com",
	})

	if w.Code != http.StatusNotFound {
		t.Errorf("unknown email: status = %d, want 404", w.Code)
	}

	// known email mails a reset link
	w = env.do(t, http.MethodPost, "/api/v1/auth/forgot-password", ForgotPasswordRequest{
		Email: "sam@example.com",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("forgot-password: status = %d, body %s", w.Code, w.Body.String())
	}

	if len(env.mailer.resets) != 1 {
		t.Fatalf("reset mails = %d, want 1", len(env.mailer.resets))
	}

	plain := tokenFromURL(t, env.mailer.resets[0].ResetURL)

	// stored hashed, never plain
	stored := env.store.users[u.ID]

	if stored.ForgotPasswordToken == nil || *stored.ForgotPasswordToken != security.HashToken(plain) {
		t.Errorf("stored reset token is not the hash of the mailed one")
	}

	// consume the token
	w = env.do(t, http.MethodPost, "/api/v1/auth/reset-password/"+plain, ResetPasswordRequest{
		NewPassword: "freshpassword",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("reset-password: status = %d, body %s", w.Code, w.Body.String())
	}

	stored = env.store.users[u.ID]

	if err := security.CheckPassword(stored.PasswordHash, "freshpassword"); err != nil {
		t.Errorf("reset password does not check out: %v", err)
	}

	if stored.ForgotPasswordToken != nil || stored.ForgotPasswordExpiry != nil {
		t.Errorf("reset token pair not cleared after use")
	}

	// single use: the consumed token answers the reserved expired status
	w = env.do(t, http.MethodPost, "/api/v1/auth/reset-password/"+plain, ResetPasswordRequest{
		NewPassword: "anotherpassword",
	})

	if w.Code != StatusTokenExpired {
		t.Errorf("reused reset token: status = %d, want %d", w.Code, StatusTokenExpired)
	}
}

func TestResetPasswordExpiredToken(t *testing.T) {
	env := newAuthTestEnv(t)
	u := env.register(t, "sam@example.com", "sam", "supersecret")

	env.do(t, http.MethodPost, "/api/v1/auth/forgot-password", ForgotPasswordRequest{
		Email: "sam@example.com",
	})

	plain := tokenFromURL(t, env.mailer.resets[0].ResetURL)

	// push the expiry into the past
	past := time.Now().UTC().Add(-time.Minute)
	_ = env.store.SetForgotPasswordToken(context.Background(), u.ID, security.HashToken(plain), past)

	w := env.do(t, http.MethodPost, "/api/v1/auth/reset-password/"+plain, ResetPasswordRequest{
		NewPassword: "freshpassword",
	})

	if w.Code != StatusTokenExpired {
		t.Errorf("expired token: status = %d, want %d", w.Code, StatusTokenExpired)
	}

	// password untouched
	if err := security.CheckPassword(env.store.users[u.ID].PasswordHash, "supersecret"); err != nil {
		t.Errorf("password changed despite expired token")
	}
}
