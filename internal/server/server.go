package server

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"taskboard-backend/internal/auth"
	"taskboard-backend/internal/config"
	"taskboard-backend/internal/handler"
	"taskboard-backend/internal/presence"
	"taskboard-backend/internal/relay"
	"taskboard-backend/internal/store"
)

// Server wraps the Fiber app and owns the relay hub for its lifetime.
type Server struct {
	app            *fiber.App
	cfg            *config.Config
	db             *gorm.DB
	hub            *relay.Hub
	authHandler    *handler.AuthHandler
	boardHandler   *handler.BoardHandler
	boardWSHandler *handler.BoardWSHandler
	statusHandler  *handler.StatusHandler
	jwtManager     *auth.JWTManager
}

// New builds the server. mirror may be nil when no Redis is configured.
func New(cfg *config.Config, db *gorm.DB, mirror *presence.Manager) *Server {
	app := fiber.New(fiber.Config{
		AppName:         "Taskboard Relay",
		ServerHeader:    "Fiber",
		StrictRouting:   true,
		CaseSensitive:   true,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		Prefork:         false, // incompatible with WebSocket connections
		ReadBufferSize:  16384,
		WriteBufferSize: 16384,
	})

	jwtManager := auth.NewJWTManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)
	googleAuth := auth.NewGoogleAuthenticator(cfg.Auth.GoogleClientID)
	boardStore := store.New(db)
	hub := relay.NewHub(mirror)

	return &Server{
		app:            app,
		cfg:            cfg,
		db:             db,
		hub:            hub,
		authHandler:    handler.NewAuthHandler(db, jwtManager, googleAuth, cfg.Auth.AccessTokenExpiry),
		boardHandler:   handler.NewBoardHandler(boardStore),
		boardWSHandler: handler.NewBoardWSHandler(hub),
		statusHandler:  handler.NewStatusHandler(hub, db, mirror),
		jwtManager:     jwtManager,
	}
}

// Hub exposes the relay hub for monitoring.
func (s *Server) Hub() *relay.Hub {
	return s.hub
}

// SetupMiddleware installs the global middleware stack.
func (s *Server) SetupMiddleware() {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	s.app.Use(cors.New(cors.Config{
		AllowOrigins: s.cfg.CORS.AllowOrigins,
		AllowHeaders: s.cfg.CORS.AllowHeaders,
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
}

// SetupRoutes registers HTTP routes and the WebSocket endpoint.
func (s *Server) SetupRoutes() {
	s.app.Get("/health", s.statusHandler.Health)
	s.app.Get("/api/status", s.statusHandler.Status)

	// Brute-force protection on the login endpoints.
	authLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	})

	authGroup := s.app.Group("/auth")
	authGroup.Post("/google", authLimiter, s.authHandler.GoogleLogin)
	authGroup.Post("/refresh", authLimiter, s.authHandler.RefreshToken)
	authGroup.Get("/me", auth.AuthMiddleware(s.jwtManager), s.authHandler.GetMe)

	api := s.app.Group("/api", auth.AuthMiddleware(s.jwtManager))
	api.Post("/boards", s.boardHandler.CreateBoard)
	api.Get("/boards/:boardId", s.boardHandler.GetBoard)
	api.Post("/boards/:boardId/tasks", s.boardHandler.CreateTask)
	api.Put("/tasks/:taskId", s.boardHandler.UpdateTask)
	api.Delete("/tasks/:taskId", s.boardHandler.DeleteTask)
	api.Post("/tasks/:taskId/move", s.boardHandler.MoveTask)
	api.Put("/columns/:columnId", s.boardHandler.UpdateColumn)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// Board relay endpoint. The identity token rides the handshake as a
	// query parameter; a missing or invalid token yields an anonymous
	// connection rather than a rejection.
	s.app.Get("/ws/board", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		userID := ""
		if token := c.Query("token"); token != "" {
			if claims, err := s.jwtManager.ValidateAccessToken(token); err == nil {
				userID = claims.UID
			}
		}
		c.Locals("userId", userID)

		return c.Next()
	}, websocket.New(s.boardWSHandler.HandleWebSocket, websocket.Config{
		ReadBufferSize:  s.cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: s.cfg.WebSocket.WriteBufferSize,
	}))
}

// Start runs the server with graceful shutdown on SIGINT/SIGTERM.
func (s *Server) Start() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := s.app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Fatalf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("Taskboard Relay starting on %s", s.cfg.Server.Port)
	log.Printf("WebSocket endpoint: ws://localhost%s/ws/board", s.cfg.Server.Port)

	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown stops the server.
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(30 * time.Second)
}
