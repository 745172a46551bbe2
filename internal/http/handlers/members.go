package handlers

import (
	"net/http"

	"github.com/GianAlbi/API-Back-end-project-managemet/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type MembersHandler struct{}

func NewMembersHandler() *MembersHandler {
	return &MembersHandler{}
}

// MyProjectRole reports the caller's role in the project. The guard chain has
// already authenticated the principal and resolved the membership.
func (h *MembersHandler) MyProjectRole(ctx *gin.Context) {
	role, ok := middlewares.ProjectRoleFromContext(ctx)

	if !ok {
		RespondBadRequest(ctx, "Project member not found", nil)
		return
	}

	Respond(ctx, http.StatusOK, gin.H{
		"projectId": ctx.Param("projectId"),
		"role":      role,
	}, "Project role fetched successfully")
}
