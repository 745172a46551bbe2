package middlewares

import (
	"context"
	"errors"
	"net/http"

	"github.com/GianAlbi/API-Back-end-project-managemet/internal/cache"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/repo/postgres"
	"github.com/gin-gonic/gin"
)

// RoleLookup is the membership contract the guard authorizes against.
type RoleLookup interface {
	GetRole(ctx context.Context, projectID, userID string) (string, error)
}

type ProjectGuard struct {
	members RoleLookup
	cache   *cache.Cache
}

// NewProjectGuard wraps the role lookup with a small TTL cache; pass nil to
// hit the store on every check.
func NewProjectGuard(members RoleLookup, roleCache *cache.Cache) *ProjectGuard {
	return &ProjectGuard{members: members, cache: roleCache}
}

// RequireProjectRole authorizes the authenticated principal for the project
// in the :projectId param. Pure capability check, no mutation.
func (g *ProjectGuard) RequireProjectRole(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFromContext(c)

		if !ok {
			abortError(c, http.StatusUnauthorized, "Unauthorized request")
			return
		}

		projectID := c.Param("projectId")

		if projectID == "" {
			abortError(c, http.StatusBadRequest, "Project id is missing")
			return
		}

		role, err := g.lookupRole(c.Request.Context(), projectID, principal.ID)

		if err != nil {
			if errors.Is(err, postgres.ErrMemberNotFound) {
				abortError(c, http.StatusBadRequest, "Project member not found")
				return
			}

			abortError(c, http.StatusInternalServerError, "Could not verify project membership")
			return
		}

		c.Set(CtxProjectRole, role)

		for _, allowed := range requiredRoles {
			if role == allowed {
				c.Next()
				return
			}
		}

		abortError(c, http.StatusForbidden, "You do not have permission to perform this action")
	}
}

func (g *ProjectGuard) lookupRole(ctx context.Context, projectID, userID string) (string, error) {
	key := projectID + ":" + userID

	if g.cache != nil {
		if v, ok := g.cache.Get(key); ok {
			if role, ok := v.(string); ok {
				return role, nil
			}
		}
	}

	role, err := g.members.GetRole(ctx, projectID, userID)

	if err != nil {
		return "", err
	}

	if g.cache != nil {
		g.cache.Set(key, role)
	}

	return role, nil
}
