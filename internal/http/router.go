package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/GianAlbi/API-Back-end-project-managemet/internal/auth"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/cache"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/config"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/domain/member"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/http/handlers"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/http/middlewares"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/mail"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/observability"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/queue/redisclient"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// NewRouter wires repositories, the token signer, the mail queue and all
// middleware into the HTTP surface.
func NewRouter(log *slog.Logger, pool *pgxpool.Pool, rdb *redisclient.Client, cfg config.Config, prom *observability.Prom) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("project-management-api"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(1 << 20))

	if prom != nil {
		r.Use(prom.GinHandleMiddleware())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// health
	pingDB := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}
	pingRedis := func() error {
		if rdb == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return rdb.Ping(ctx)
	}

	health := handlers.NewHealthHandler(pingDB, pingRedis)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	// wire up repositories and collaborators
	usersRepo := postgres.NewUsersRepo(pool, prom)
	membersRepo := postgres.NewProjectMembersRepo(pool, prom)

	signer := auth.NewSigner(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	mailer := mail.NewQueueMailer(rdb, prom)

	authHandler := handlers.NewAuthHandler(usersRepo, signer, mailer, cfg, log, prom)
	membersHandler := handlers.NewMembersHandler()

	authMW := middlewares.NewAuthMiddleware(signer, usersRepo)
	guard := middlewares.NewProjectGuard(membersRepo, cache.New(10*time.Second))

	// unauthenticated endpoints get a per-IP limiter
	limiter := middlewares.NewRateLimiter(20, time.Minute)
	limited := limiter.Middleware(middlewares.KeyByIP)

	v1 := r.Group("/api/v1")

	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/register", limited, authHandler.Register)
		authRoutes.POST("/login", limited, authHandler.Login)
		authRoutes.GET("/verify-email/:verificationToken", limited, authHandler.VerifyEmail)
		authRoutes.POST("/refresh-token", limited, authHandler.RefreshAccessToken)
		authRoutes.POST("/forgot-password", limited, authHandler.ForgotPassword)
		authRoutes.POST("/reset-password/:resetToken", limited, authHandler.ResetForgotPassword)

		authRoutes.POST("/logout", authMW.RequireAuth(), authHandler.Logout)
		authRoutes.POST("/current-user", authMW.RequireAuth(), authHandler.CurrentUser)
		authRoutes.POST("/change-password", authMW.RequireAuth(), authHandler.ChangeCurrentPassword)
		authRoutes.POST("/resend-email-verification", authMW.RequireAuth(), authHandler.ResendEmailVerification)
	}

	projects := v1.Group("/projects", authMW.RequireAuth())
	{
		projects.GET("/:projectId/role",
			guard.RequireProjectRole(member.AllRoles...),
			membersHandler.MyProjectRole,
		)
	}

	return r
}
