package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/GianAlbi/API-Back-end-project-managemet/internal/auth"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// AccessTokenCookie is where the login flow parks the access token.
const AccessTokenCookie = "accessToken"

// Keep these interfaces small so tests can fake them easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.AccessClaims, error)
}

type PrincipalResolver interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type AuthMiddleware struct {
	jwt   TokenVerifier
	users PrincipalResolver
}

func NewAuthMiddleware(jwt TokenVerifier, users PrincipalResolver) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, users: users}
}

// RequireAuth authenticates the bearer credential (cookie wins over the
// Authorization header) and attaches the resolved principal to the context.
// Every failure mode answers the same 401.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := m.extractToken(c)

		if raw == "" {
			abortError(c, http.StatusUnauthorized, "Unauthorized request")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)

		if err != nil {
			abortError(c, http.StatusUnauthorized, "Invalid access token")
			return
		}

		// token may outlive its user
		principal, err := m.users.GetByID(c.Request.Context(), claims.Subject)

		if err != nil {
			abortError(c, http.StatusUnauthorized, "Invalid access token")
			return
		}

		c.Set(CtxPrincipal, principal)

		c.Next()
	}
}

func (m *AuthMiddleware) extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie
	}

	header := c.GetHeader("Authorization")

	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}

	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
}

// PrincipalFromContext returns the authenticated user attached by RequireAuth.
func PrincipalFromContext(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(CtxPrincipal)
	if !ok {
		return user.User{}, false
	}
	u, ok := v.(user.User)
	return u, ok
}

// ProjectRoleFromContext returns the role resolved by RequireProjectRole.
func ProjectRoleFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxProjectRole)
	if !ok {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}
