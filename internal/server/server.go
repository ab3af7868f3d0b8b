// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "orbit/docs" // swagger docs
	"orbit/internal/bootstrap"
	"orbit/internal/config"
	"orbit/internal/media"
	"orbit/internal/middleware"
	"orbit/internal/models"
	"orbit/internal/notifications"
	"orbit/internal/repository"
	"orbit/internal/service"

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

	verifier *middleware.TokenVerifier
	notifier *notifications.Notifier
	hub      *notifications.Hub
	kafka    *notifications.KafkaSink
	events   *notifications.EventBus
	store    media.Store

	userService         *service.UserService
	relationshipService *service.RelationshipService
	visibilityService   *service.VisibilityService
	feedService         *service.FeedService
	postService         *service.PostService
}

// Option customises a Server built by NewServerWithDeps.
type Option func(*Server)

// WithMediaStore sets the store used for multipart post uploads.
func WithMediaStore(store media.Store) Option {
	return func(s *Server) { s.store = store }
}

// WithEventSinks replaces the default event sinks (realtime, and Kafka when
// brokers are configured).
func WithEventSinks(sinks ...notifications.Sink) Option {
	return func(s *Server) { s.events = notifications.NewEventBus(sinks...) }
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{SeedDemo: cfg.SeedDemo})
	if err != nil {
		return nil, err
	}

	var opts []Option
	if cfg.MediaEndpoint != "" {
		store, err := media.NewS3Store(media.Config{
			Endpoint:  cfg.MediaEndpoint,
			AccessKey: cfg.MediaAccessKey,
			SecretKey: cfg.MediaSecretKey,
			UseSSL:    cfg.MediaUseSSL,
			Bucket:    cfg.MediaBucket,
			PublicURL: cfg.MediaPublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("media store: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("media bucket: %w", err)
		}
		opts = append(opts, WithMediaStore(store))
	}

	return NewServerWithDeps(cfg, db, redisClient, opts...)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and optionally
// performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, opts ...Option) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	relRepo := repository.NewRelationshipRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("orbit-api"),
		verifier:       middleware.NewTokenVerifier(cfg, redisClient),
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub(),
	}
	for _, opt := range opts {
		opt(server)
	}
	if server.events == nil {
		server.kafka = notifications.NewKafkaSink(cfg.KafkaBrokerList(), cfg.KafkaTopic)
		sinks := []notifications.Sink{notifications.NewRealtimeSink(server.hub, server.notifier)}
		if server.kafka != nil {
			sinks = append(sinks, server.kafka)
		}
		server.events = notifications.NewEventBus(sinks...)
	}

	server.userService = service.NewUserService(userRepo, relRepo)
	server.relationshipService = service.NewRelationshipService(relRepo, userRepo, server.events,
		service.WithMaxRetries(cfg.RelationshipMaxRetries))
	server.visibilityService = service.NewVisibilityService(feedbackRepo, postRepo, relRepo, server.events)
	server.feedService = service.NewFeedService(postRepo, userRepo, relRepo, server.visibilityService)
	server.postService = service.NewPostService(postRepo, commentRepo, server.store, server.events, cfg.PinLimit)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Propagates request and user IDs into the request context for logging.
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: s.config.AllowedOrigins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
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

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Orbit Backend Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, 3, 10*time.Minute, "register"), s.Register)

	protected := api.Group("", s.AuthRequired())

	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Get("/lookup", s.LookupUser)
	users.Get("/search", s.SearchUsers)
	users.Post("/follow/:id", middleware.RateLimit(s.redis, 30, time.Minute, "follow"), s.FollowUser)
	users.Post("/accept-follow/:id", s.AcceptFollow)
	users.Post("/decline-follow/:id", s.DeclineFollow)
	users.Post("/cancel-follow/:id", s.CancelFollow)
	users.Post("/unfollow/:id", s.UnfollowUser)
	users.Post("/block/:id", s.BlockUser)
	users.Post("/unblock/:id", s.UnblockUser)
	users.Post("/blocked", s.GetBlockedUsers)
	users.Get("/blocked", s.GetBlockedUsers)
	users.Get("/follow-requests", s.GetFollowRequests)
	users.Get("/followers/:id", s.GetFollowers)
	users.Get("/following/:id", s.GetFollowing)
	users.Get("/relationship/:id", s.GetRelationshipStatus)
	// Generic /:id route must be last
	users.Get("/:id", s.GetUserProfile)

	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	// Fixed paths before the generic /:postId routes.
	posts.Get("/all", s.GetFeed)
	posts.Get("/category/:category", s.GetCategoryFeed)
	posts.Get("/user/:userId", s.GetUserFeed)
	posts.Get("/archived", s.GetArchivedPosts)
	posts.Get("/saved", s.GetSavedPosts)
	posts.Get("/reported", s.GetMyReports)
	posts.Get("/not-interested", s.GetNotInterested)
	posts.Post("/report/:postId", middleware.RateLimit(s.redis, 20, time.Hour, "report"), s.ReportPost)
	posts.Delete("/report/:postId", s.UnreportPost)
	posts.Post("/not-interested/:postId", s.MarkNotInterested)
	posts.Delete("/not-interested/:postId", s.RemoveNotInterested)
	posts.Post("/pin/:postId", s.PinPost)
	posts.Post("/unpin/:postId", s.UnpinPost)
	posts.Post("/archive/:postId", s.ArchivePost)
	posts.Post("/unarchive/:postId", s.UnarchivePost)
	posts.Post("/:postId/like", s.LikePost)
	posts.Delete("/:postId/like", s.UnlikePost)
	posts.Post("/:postId/save", s.SavePost)
	posts.Delete("/:postId/save", s.UnsavePost)
	posts.Get("/:postId/comments", s.GetComments)
	posts.Post("/:postId/comments", middleware.RateLimit(s.redis, 15, time.Minute, "create_comment"), s.CreateComment)
	posts.Delete("/:postId/comments/:commentId", s.DeleteComment)
	posts.Get("/:postId", s.GetPost)
	posts.Delete("/:postId", s.DeletePost)

	ws := api.Group("/ws", s.AuthRequired())
	ws.Get("/", s.WebsocketHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: without
// it the API still serves, with caching and cross-instance delivery off.
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

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return middleware.AuthRequired(s.verifier)
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	maxUpload := s.config.MediaMaxUploadMB
	if maxUpload <= 0 {
		maxUpload = 25
	}
	app := fiber.New(fiber.Config{
		AppName:   "Orbit API",
		BodyLimit: maxUpload * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, fe)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
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

	if s.notifier.Enabled() {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring",
					slog.String("hub", s.hub.Name()),
					slog.String("error", err.Error()),
				)
			}
		}()
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down hub", slog.String("error", err.Error()))
	}

	if err := s.kafka.Close(); err != nil {
		middleware.Logger.Error("error closing kafka writer", slog.String("error", err.Error()))
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
