package postgres

import (
	"context"
	"errors"

	"github.com/GianAlbi/API-Back-end-project-managemet/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrMemberNotFound = errors.New("project member not found")

// ProjectMembersRepo exposes the role-lookup contract the access guard
// authorizes against. Membership CRUD lives with the project service.
type ProjectMembersRepo struct {
	pool    *pgxpool.Pool
	metrics *observability.Prom
}

func NewProjectMembersRepo(pool *pgxpool.Pool, metrics *observability.Prom) *ProjectMembersRepo {
	return &ProjectMembersRepo{pool: pool, metrics: metrics}
}

func (r *ProjectMembersRepo) GetRole(ctx context.Context, projectID, userID string) (string, error) {
	var role string

	err := r.metrics.ObserveDB("members.get_role", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT role FROM project_members WHERE project_id = $1 AND user_id = $2`,
			projectID, userID,
		).Scan(&role)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrMemberNotFound
		}

		return "", err
	}

	return role, nil
}
