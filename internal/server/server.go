// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"studyhive/internal/calendar"
	"studyhive/internal/config"
	"studyhive/internal/database"
	"studyhive/internal/middleware"
	"studyhive/internal/models"
	"studyhive/internal/notifications"
	"studyhive/internal/repository"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config           *config.Config
	db               *gorm.DB
	redis            *redis.Client
	userRepo         repository.UserRepository
	groupRepo        repository.GroupRepository
	messageRepo      repository.MessageRepository
	scheduleRepo     repository.ScheduleRepository
	announcementRepo repository.AnnouncementRepository
	activityRepo     repository.ActivityRepository
	notifier         *notifications.Notifier
	hub              *notifications.Hub
	calendar         calendar.Service
	app              *fiber.App
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("Redis unavailable, running without it: %v", err)
		} else {
			rdb = client
		}
		cancel()
	}

	srv := NewServerWithDB(cfg, db, rdb)

	cal, err := calendar.NewGoogleService(calendar.Options{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURI:  cfg.GoogleRedirectURI,
		RefreshToken: cfg.GoogleRefreshToken,
		TimeZone:     cfg.CalendarTimeZone,
	})
	if err != nil {
		if !errors.Is(err, calendar.ErrNotConfigured) {
			return nil, err
		}
		log.Println("Google Calendar not configured; schedules stay local-only")
	} else {
		srv.calendar = cal
	}

	return srv, nil
}

// NewServerWithDB creates a server around an existing database handle and an
// optional Redis client. Used directly by tests.
func NewServerWithDB(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *Server {
	srv := &Server{
		config:           cfg,
		db:               db,
		redis:            rdb,
		userRepo:         repository.NewUserRepository(db),
		groupRepo:        repository.NewGroupRepository(db),
		messageRepo:      repository.NewMessageRepository(db),
		scheduleRepo:     repository.NewScheduleRepository(db),
		announcementRepo: repository.NewAnnouncementRepository(db),
		activityRepo:     repository.NewActivityRepository(db),
		hub:              notifications.NewHub(),
	}

	if rdb != nil {
		srv.notifier = notifications.NewNotifier(rdb)
	}

	return srv
}

// SetCalendar injects a calendar service. Used by tests and by NewServer.
func (s *Server) SetCalendar(svc calendar.Service) {
	s.calendar = svc
}

// Hub exposes the real-time hub, mainly for tests.
func (s *Server) Hub() *notifications.Hub {
	return s.hub
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(requestid.New())
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	prometheus := fiberprometheus.New("studyhive")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
		Next: func(c *fiber.Ctx) bool {
			return s.config.Environment == "test"
		},
	}))

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	api.Get("/", s.HealthCheck)

	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, 3, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/google", middleware.RateLimit(s.redis, 10, 5*time.Minute, "google_login"), s.GoogleLogin)

	protected := api.Group("", s.AuthRequired())

	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Get("/admin-list", s.AdminRequired(), s.GetAdminUserList)
	users.Patch("/toggle-admin/:id", s.AdminRequired(), s.ToggleAdminRole)
	users.Delete("/delete/:id", s.AdminRequired(), s.DeleteUser)

	groups := protected.Group("/groups")
	groups.Get("/", s.ListGroups)
	groups.Get("/all", s.AdminRequired(), s.ListAllGroups)
	groups.Post("/", middleware.RateLimit(s.redis, 5, 5*time.Minute, "create_group"), s.CreateGroup)
	groups.Post("/join", s.JoinGroup)
	// Specific /:id/:resource routes before the generic /:id routes
	groups.Get("/:id/members", s.ListGroupMembers)
	groups.Post("/:id/members/:userId/approve", s.ApproveMember)
	groups.Get("/:id/messages", s.GetGroupMessages)
	groups.Post("/:id/messages", middleware.RateLimit(s.redis, 15, time.Minute, "send_message"), s.SendGroupMessage)
	groups.Get("/:id", s.GetGroup)
	groups.Put("/:id", s.UpdateGroup)
	groups.Delete("/:id", s.DeleteGroup)

	cal := protected.Group("/calendar")
	cal.Get("/group/:groupId", s.GetGroupSchedules)
	cal.Post("/group/:groupId", s.CreateGroupSchedule)
	cal.Post("/meet-link", s.GenerateMeetLink)

	announcements := protected.Group("/announcements")
	announcements.Post("/", s.CreateAnnouncement)
	announcements.Get("/group/:groupId", s.GetGroupAnnouncements)

	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/dashboard", s.GetDashboardStats)
	admin.Get("/activities", s.GetRecentActivities)
	admin.Patch("/groups/:id/status", s.SetGroupStatus)

	protected.Post("/upload", s.Upload)
	app.Static("/uploads", s.config.UploadDir)

	ws := api.Group("/ws", s.AuthRequired())
	ws.Get("/", s.WebsocketHandler())
}

// HealthCheck handles health check requests
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "StudyHive API",
		"status":  "healthy",
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns the authentication middleware. It accepts the token
// from the Authorization header or from a `token` query parameter, which the
// websocket endpoint relies on.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		tokenString := ""
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		userID, err := s.parseToken(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		c.Locals("userID", userID)

		return c.Next()
	}
}

// AdminRequired loads the authenticated user and rejects non-admins. Must
// run after AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("userID").(uint)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		if !s.isAdminUser(c.Context(), userID) {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}

		c.Locals("isAdmin", true)
		return c.Next()
	}
}

func (s *Server) parseToken(tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid token claims")
	}

	if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != "studyhive-api" {
		return 0, fmt.Errorf("invalid token issuer")
	}
	if audience, audienceOk := claims["aud"].(string); !audienceOk || audience != "studyhive-client" {
		return 0, fmt.Errorf("invalid token audience")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, fmt.Errorf("invalid subject claim")
	}

	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid user ID in token: %w", err)
	}

	return uint(userID), nil
}

// isAdminUser reports whether the given user id belongs to an active admin.
func (s *Server) isAdminUser(ctx context.Context, userID uint) bool {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false
	}
	return user.IsAdmin && user.Status == models.UserStatusActive
}

// notifyUser emits a user-scoped event, via Redis when available so it
// reaches every process instance, otherwise directly on the local hub.
func (s *Server) notifyUser(ctx context.Context, userID uint, event string, data any) {
	if s.notifier != nil {
		if err := s.notifier.PublishUser(ctx, userID, event, data); err == nil {
			return
		}
	}
	s.hub.Broadcast(notifications.UserRoom(userID), event, data)
}

// Start wires the hub to Redis and starts listening.
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName:   "StudyHive API",
		BodyLimit: 10 * 1024 * 1024, // 10MB limit
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			if s.config.IsProduction() {
				// Hide internals in production
				return models.RespondWithError(c, fiber.StatusInternalServerError,
					&models.AppError{Code: "INTERNAL_ERROR", Message: "Internal server error"})
			}
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})

	s.app = app
	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	if s.hub != nil && s.notifier != nil {
		go func() {
			if err := s.hub.StartWiring(context.Background(), s.notifier); err != nil {
				log.Printf("failed to start notification hub wiring: %v", err)
			}
		}()
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down http server: %v", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			log.Printf("error shutting down hub: %v", err)
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
