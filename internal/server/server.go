// Package server assembles the storage, services, handlers and middleware into
// a runnable Fiber application.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinic/internal/config"
	"clinic/internal/database"
	"clinic/internal/handlers"
	"clinic/internal/middleware"
	"clinic/internal/models"
	"clinic/internal/repositories"
	"clinic/internal/services"
	"clinic/internal/validation"
	"clinic/pkg/rabbitmq"
)

const redisDialTimeout = 5 * time.Second

// Server owns the HTTP app and every connection it depends on.
type Server struct {
	cfg   *config.Config
	log   *zap.Logger
	app   *fiber.App
	db    *gorm.DB
	redis *redis.Client
	mq    *rabbitmq.Client
}

// New connects to the configured backends and builds the routes. Connections
// opened before a failure are closed.
func New(cfg *config.Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{cfg: cfg, log: log}

	if err := s.connect(); err != nil {
		_ = s.closeBackends()
		return nil, err
	}

	// --- Initialize Repositories ---
	var (
		appointmentRepo repositories.AppointmentRepository
		userRepo        repositories.UserRepository
		denylist        repositories.TokenDenylist
	)
	if s.db == nil {
		appointmentRepo = repositories.NewMockAppointmentRepository()
		userRepo = repositories.NewMockUserRepository()
	} else {
		appointmentRepo = repositories.NewGORMAppointmentRepository(s.db)
		userRepo = repositories.NewGORMUserRepository(s.db)
	}
	if s.redis != nil {
		denylist = repositories.NewRedisTokenDenylist(s.redis)
	} else {
		denylist = repositories.NewMockTokenDenylist()
	}

	// --- Initialize Services ---
	// A nil *rabbitmq.Client must not be stored in the interface.
	var publisher services.EventPublisher
	if s.mq != nil {
		publisher = s.mq
	}
	appointmentService := services.NewAppointmentService(appointmentRepo, publisher, log.Named("appointments"))
	authService := services.NewAuthService(userRepo, denylist, cfg.Auth, log.Named("auth"))

	// --- Initialize Handlers ---
	validate := validation.New()
	appointmentHandler := handlers.NewAppointmentHandler(appointmentService, validate, log.Named("http"))
	authHandler := handlers.NewAuthHandler(authService, validate, log.Named("http"))

	// --- Initialize Fiber App ---
	s.app = fiber.New(fiber.Config{
		AppName:               "clinic",
		DisableStartupMessage: true,
		Immutable:             true,
		ErrorHandler:          errorHandler(log),
	})
	s.app.Use(requestid.New())
	s.app.Use(middleware.RequestLogger(log.Named("access")))
	s.app.Use(recover.New())

	// --- API Routes ---
	api := s.app.Group("/api")
	auth := middleware.AuthRequired(authService, log.Named("auth"))
	authHandler.RegisterRoutes(api, middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst), auth)
	if cfg.Auth.Required {
		appointmentHandler.RegisterRoutes(api, auth)
	} else {
		appointmentHandler.RegisterRoutes(api)
	}

	// --- Health Check Endpoint ---
	s.app.Get("/health", s.handleHealth)

	return s, nil
}

func (s *Server) connect() error {
	db, err := database.Open(s.cfg.Database, s.log)
	if err != nil {
		return err
	}
	s.db = db

	if s.cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     s.cfg.Redis.Addr,
			Password: s.cfg.Redis.Password,
			DB:       s.cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("failed to connect to Redis at %s: %w", s.cfg.Redis.Addr, err)
		}
		s.redis = client
	}

	if s.cfg.RabbitMQ.URL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: s.cfg.RabbitMQ.URL})
		if err != nil {
			return err
		}
		s.mq = mq
	}
	return nil
}

// App exposes the Fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves HTTP on the configured port until Shutdown is called.
func (s *Server) Listen() error {
	s.log.Info("starting server", zap.String("addr", s.cfg.App.Port), zap.String("env", s.cfg.App.Env))
	return s.app.Listen(s.cfg.App.Port)
}

// Shutdown stops accepting requests, waits for in-flight ones, then closes the
// backends.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("fiber shutdown: %w", err))
	}
	if err := s.closeBackends(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Server) closeBackends() error {
	var errs []error
	if s.mq != nil {
		if err := s.mq.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis client: %w", err))
		}
	}
	if err := database.Close(s.db); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}
	return errors.Join(errs...)
}

// StartEventConsumer logs every appointment event delivered by RabbitMQ. It is a
// no-op when no broker is configured.
func (s *Server) StartEventConsumer() error {
	if s.mq == nil {
		return nil
	}
	log := s.log.Named("events")
	return s.mq.ConsumeAppointmentEvents(func(msg amqp.Delivery) error {
		var event models.AppointmentEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			log.Warn("discarding malformed appointment event", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(err))
			return err
		}
		log.Info("appointment event",
			zap.String("type", string(event.Type)),
			zap.Uint("appointment_id", event.AppointmentID),
			zap.Time("occurred_at", event.OccurredAt),
		)
		return nil
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	status := fiber.Map{
		"status":   "healthy",
		"time":     time.Now().UTC().Format(time.RFC3339),
		"database": "up",
	}
	if err := database.Ping(s.db); err != nil {
		s.log.Warn("health check failed", zap.Error(err))
		status["status"] = "unhealthy"
		status["database"] = "down"
		return c.Status(fiber.StatusServiceUnavailable).JSON(status)
	}
	if s.redis != nil {
		status["redis"] = "up"
		if err := s.redis.Ping(c.UserContext()).Err(); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			status["status"] = "unhealthy"
			status["redis"] = "down"
			return c.Status(fiber.StatusServiceUnavailable).JSON(status)
		}
	}
	return c.JSON(status)
}

// errorHandler renders framework errors and recovered panics as {message}.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			if code < fiber.StatusInternalServerError {
				message = fe.Message
			}
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("unhandled error", zap.String("path", utils.CopyString(c.Path())), zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{
			"message": message,
		})
	}
}
