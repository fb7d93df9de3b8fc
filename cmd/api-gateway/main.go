package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/openagora/agora-api/api/swagger"
	"github.com/openagora/agora-api/internal/handler"
	internalmiddleware "github.com/openagora/agora-api/internal/middleware"
	"github.com/openagora/agora-api/internal/models"
	"github.com/openagora/agora-api/internal/repository"
	"github.com/openagora/agora-api/internal/service"
	"github.com/openagora/agora-api/pkg/cache"
	"github.com/openagora/agora-api/pkg/config"
	"github.com/openagora/agora-api/pkg/database"
	"github.com/openagora/agora-api/pkg/jobs"
	"github.com/openagora/agora-api/pkg/logger"
	corsmiddleware "github.com/openagora/agora-api/pkg/middleware/cors"
	reqidmiddleware "github.com/openagora/agora-api/pkg/middleware/requestid"
	"github.com/openagora/agora-api/pkg/storage"
)

// @title Agora API
// @version 1.0.0
// @description Unconference platform: session proposals, quadratic voting, and conflict-minimizing schedule generation.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, tally cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	venueRepo := repository.NewVenueRepository(db)
	slotRepo := repository.NewTimeSlotRepository(db)
	ballotRepo := repository.NewBallotRepository(db)
	overlapRepo := repository.NewOverlapRepository(db)
	runRepo := repository.NewScheduleRunRepository(db)
	checkinRepo := repository.NewCheckinRepository(db)
	budgetRepo := repository.NewBudgetRepository(db)

	// Services.
	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	tallyCache := service.NewCacheService(cacheRepo, metricsSvc, cfg.Voting.TallyTTL, logr, redisClient != nil)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "agora-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	eventSvc := service.NewEventService(eventRepo, validate, logr)
	sessionSvc := service.NewSessionService(sessionRepo, eventRepo, venueRepo, slotRepo, validate, logr)
	venueSvc := service.NewVenueService(venueRepo, slotRepo, eventRepo, validate, logr)
	overlapSvc := service.NewOverlapService(ballotRepo, overlapRepo, logr)

	overlapQueue := jobs.NewQueue("voter-overlap", overlapSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Overlap.Workers,
		MaxRetries: cfg.Overlap.MaxRetries,
		RetryDelay: cfg.Overlap.RetryDelay,
		Logger:     logr,
	})

	voteSvc := service.NewVoteService(ballotRepo, sessionRepo, eventRepo, tallyCache, overlapQueue, validate, logr, service.VoteServiceConfig{
		CreditBudget: cfg.Voting.CreditBudget,
		TallyTTL:     cfg.Voting.TallyTTL,
	})
	scheduleSvc := service.NewScheduleService(eventRepo, sessionRepo, venueRepo, slotRepo, overlapRepo, ballotRepo, runRepo, validate, logr, service.ScheduleServiceConfig{
		ProposalTTL:       cfg.Scheduler.ProposalTTL,
		ConflictThreshold: cfg.Scheduler.ConflictThreshold,
		MaxIterations:     cfg.Scheduler.MaxIterations,
		TargetScore:       cfg.Scheduler.TargetScore,
	})
	if exportStore, storageErr := storage.NewLocalStorage(cfg.Export.Dir); storageErr != nil {
		logr.Sugar().Warnw("export archive disabled", "error", storageErr)
	} else {
		signer := storage.NewSignedURLSigner(cfg.Export.URLSecret, cfg.Export.URLTTL)
		scheduleSvc.AttachExportArchive(exportStore, signer)
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if removed, cleanupErr := exportStore.CleanupOlderThan(cfg.Export.Retention); cleanupErr != nil {
						logr.Sugar().Warnw("export cleanup failed", "error", cleanupErr)
					} else if len(removed) > 0 {
						logr.Sugar().Infow("expired exports removed", "count", len(removed))
					}
				}
			}
		}()
	}

	checkinSvc := service.NewCheckinService(checkinRepo, sessionRepo, venueRepo, validate, logr)
	budgetSvc := service.NewBudgetService(budgetRepo, sessionRepo, eventRepo, validate, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	eventHandler := handler.NewEventHandler(eventSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc)
	venueHandler := handler.NewVenueHandler(venueSvc)
	voteHandler := handler.NewVoteHandler(voteSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc, metricsSvc)
	checkinHandler := handler.NewCheckinHandler(checkinSvc)
	budgetHandler := handler.NewBudgetHandler(budgetSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	overlapQueue.Start(ctx)
	defer overlapQueue.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Signed export links are redeemable without a JWT.
	if cfg.Scheduler.Enabled {
		api.GET("/exports/:token", scheduleHandler.Download)
	}

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)
	}

	authed := api.Group("")
	authed.Use(internalmiddleware.JWT(authSvc))
	{
		authed.POST("/auth/logout", authHandler.Logout)
		authed.POST("/auth/change-password", authHandler.ChangePassword)
		authed.GET("/auth/me", authHandler.Me)

		organizer := internalmiddleware.RequireRoles(models.RoleOrganizer)
		curator := internalmiddleware.RequireRoles(models.RoleOrganizer, models.RoleFacilitator)

		users := authed.Group("/users")
		{
			users.GET("", organizer, userHandler.List)
			users.GET("/:id", internalmiddleware.RBAC(string(models.RoleOrganizer), "SELF"), userHandler.Get)
			users.POST("", organizer, userHandler.Create)
			users.PUT("/:id", internalmiddleware.RBAC(string(models.RoleOrganizer), "SELF"), userHandler.Update)
			users.DELETE("/:id", organizer, userHandler.Delete)
		}

		events := authed.Group("/events")
		{
			events.GET("", eventHandler.List)
			events.GET("/:id", eventHandler.Get)
			events.POST("", organizer, eventHandler.Create)
			events.PUT("/:id", organizer, eventHandler.Update)
			events.PATCH("/:id/status", organizer, eventHandler.Status)
		}

		sessions := authed.Group("/sessions")
		{
			sessions.GET("", sessionHandler.List)
			sessions.GET("/:id", sessionHandler.Get)
			sessions.POST("", sessionHandler.Create)
			sessions.PUT("/:id", sessionHandler.Update)
			sessions.PATCH("/:id/status", curator, sessionHandler.Status)
			sessions.POST("/:id/lock", organizer,
				internalmiddleware.Audit(userRepo, models.AuditActionSessionLock, "session"),
				sessionHandler.Lock)
			sessions.DELETE("/:id/lock", organizer, sessionHandler.Unlock)
		}

		venues := authed.Group("/venues")
		{
			venues.GET("", venueHandler.List)
			venues.POST("", organizer, venueHandler.Create)
			venues.PUT("/:id", organizer, venueHandler.Update)
			venues.DELETE("/:id", organizer, venueHandler.Delete)
		}

		slots := authed.Group("/timeslots")
		{
			slots.GET("", venueHandler.ListSlots)
			slots.POST("", organizer, venueHandler.CreateSlot)
			slots.PATCH("/:id/availability", organizer, venueHandler.SetSlotAvailability)
			slots.DELETE("/:id", organizer, venueHandler.DeleteSlot)
		}

		if cfg.Voting.Enabled {
			votes := authed.Group("/votes")
			{
				votes.POST("",
					internalmiddleware.Audit(userRepo, models.AuditActionVoteCast, "ballot"),
					voteHandler.Cast)
				votes.GET("/credits", voteHandler.Credits)
				votes.GET("/tallies", voteHandler.Tallies)
			}
		}

		if cfg.Scheduler.Enabled {
			schedule := authed.Group("/schedule")
			{
				schedule.POST("/generate", organizer,
					internalmiddleware.Audit(userRepo, models.AuditActionScheduleGenerate, "schedule"),
					scheduleHandler.Generate)
				schedule.POST("/apply", organizer,
					internalmiddleware.Audit(userRepo, models.AuditActionScheduleApply, "schedule"),
					scheduleHandler.Apply)
				schedule.GET("/proposals/:id", organizer, scheduleHandler.Proposal)
				schedule.GET("/runs", curator, scheduleHandler.Runs)
				schedule.GET("/runs/:id/export", curator, scheduleHandler.Export)
				schedule.POST("/runs/:id/export-link", curator, scheduleHandler.ExportLink)
			}
		}

		if cfg.Checkin.Enabled {
			checkins := authed.Group("/checkins")
			{
				checkins.POST("",
					internalmiddleware.Audit(userRepo, models.AuditActionCheckin, "checkin"),
					checkinHandler.Checkin)
				checkins.GET("/summary", curator, checkinHandler.Summary)
			}
		}

		if cfg.Budget.Enabled {
			budget := authed.Group("/budget")
			{
				budget.POST("/distribute", organizer, budgetHandler.Distribute)
				budget.GET("/allocations", curator, budgetHandler.List)
			}
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
