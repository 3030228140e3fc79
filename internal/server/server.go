// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	_ "promptdoumi/docs" // swagger docs
	"promptdoumi/internal/cache"
	"promptdoumi/internal/catalog"
	"promptdoumi/internal/config"
	"promptdoumi/internal/database"
	"promptdoumi/internal/featureflags"
	"promptdoumi/internal/identity"
	"promptdoumi/internal/middleware"
	"promptdoumi/internal/models"
	"promptdoumi/internal/notifications"
	"promptdoumi/internal/prompt"
	"promptdoumi/internal/repository"
	"promptdoumi/internal/service"
	"promptdoumi/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	featureFlags   *featureflags.Manager
	catalog        *catalog.Registry
	builderStore   prompt.StateStore
	objectStore    storage.ObjectStore
	galleryRepo    repository.GalleryRepository
	adminRepo      repository.AdminUserRepository
	authBus        *notifications.Bus
	mediaService   *service.MediaService
	galleryService *service.GalleryService
	authService    *service.AuthService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
// redisClient may be nil; every Redis-backed part then runs in-process.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	flags := featureflags.NewManager(cfg.FeatureFlags)

	registry, err := catalog.Load(flags)
	if err != nil {
		return nil, fmt.Errorf("catalog load failed: %w", err)
	}

	objectStore := storage.NewLocalStore(cfg.MediaRoot, cfg.MediaPublicBaseURL)
	galleryRepo := repository.NewGalleryRepository(db, redisClient)
	adminRepo := repository.NewAdminUserRepository(db)
	authBus := notifications.NewBus(notifications.NewBroker(), notifications.NewNotifier(redisClient))

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("prompt-doumi-api"),
		featureFlags:   flags,
		catalog:        registry,
		builderStore:   prompt.NewStateStore(redisClient),
		objectStore:    objectStore,
		galleryRepo:    galleryRepo,
		adminRepo:      adminRepo,
		authBus:        authBus,
	}
	server.mediaService = service.NewMediaService(objectStore, cfg.MediaBucket, cfg.MaxUploadBytes())
	server.galleryService = service.NewGalleryService(galleryRepo, server.mediaService, cfg.MediaPublicBaseURL)
	server.authService = service.NewAuthService(adminRepo, redisClient, flags, authBus, cfg.JWTSecret)

	return server, nil
}

// AuthService exposes the auth collaborator to operator tooling.
func (s *Server) AuthService() *service.AuthService {
	return s.authService
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Client identity must be resolved before the context middleware copies it.
	app.Use(identity.Middleware(s.config.IsProduction()))

	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so error responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Client-ID, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		ExposeHeaders:    "X-Trace-ID",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !s.config.IsProduction()
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Prompt Doumi Metrics Dashboard",
	}))

	api.Get("/swagger/*", swagger.HandlerDefault)

	app.Static(s.mediaPrefix(), s.config.MediaRoot, fiber.Static{
		MaxAge:         3600,
		ModifyResponse: mediaResponseHeaders,
	})

	api.Get("/me", s.GetMe)
	api.Get("/feature-flags", s.GetFeatureFlags)

	// Home
	topics := api.Group("/topics")
	topics.Get("/", s.GetTopics)
	topics.Get("/:id", s.GetTopic)

	// Builder
	api.Get("/builder", s.GetBuilder)
	api.Post("/builder/actions", s.ApplyBuilderAction)
	api.Post("/prompts/compose", s.ComposePrompt)

	// Gallery
	gallery := api.Group("/gallery")
	gallery.Get("/", s.GetGalleryPosts)
	gallery.Post("/", middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "gallery_create"), s.CreateGalleryPost)
	// Specific /:id/:resource routes before generic /:id
	gallery.Get("/:id/edit", s.GetGalleryPostForEdit)
	gallery.Get("/:id", s.GetGalleryPost)
	gallery.Put("/:id", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "gallery_update"), s.UpdateGalleryPost)
	gallery.Delete("/:id", s.DeleteGalleryPost)

	// Admin auth
	auth := api.Group("/auth")
	auth.Post("/signin", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "signin"), s.SignIn)
	auth.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.SignUp)
	auth.Post("/signout", s.SignOut)
	auth.Get("/session", s.GetSession)
	auth.Put("/password", s.AdminRequired(), s.UpdatePassword)

	// WebSocket ticket issuance
	api.Post("/ws/ticket", s.AdminRequired(), s.IssueWSTicket)
	api.Get("/ws/auth", s.WebSocketAuthRequired(), s.WebSocketAuthHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: its
// absence degrades caching but does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// NewApp builds the fiber app with middleware and routes but does not listen.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Prompt Doumi API",
		// Leave room for the multipart envelope around the largest upload.
		BodyLimit: int(s.config.MaxUploadBytes()) + 1024*1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if err := s.authBus.Start(s.shutdownCtx); err != nil {
		log.Printf("auth event subscriber unavailable, events stay local: %v", err)
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Stops the Redis subscriber and releases WebSocket subscriptions.
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
