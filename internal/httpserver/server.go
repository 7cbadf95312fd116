package httpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ncecere/fedramp_marketplace/internal/app"
	"github.com/ncecere/fedramp_marketplace/internal/config"
)

// Server wraps the Fiber app and configuration.
type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *app.Container
}

// New constructs a server with baseline middleware and the catalog routes.
func New(container *app.Container) (*Server, error) {
	if container == nil {
		return nil, fmt.Errorf("dependency container is required")
	}
	cfg := container.Config
	if cfg == nil {
		return nil, fmt.Errorf("container missing config")
	}

	fiberApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ServerHeader:          "fedramp-marketplace",
		BodyLimit:             cfg.Server.BodyLimitMB * 1024 * 1024,
		ReadTimeout:           cfg.Server.ReadTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
	})

	fiberApp.Use(requestid.New())
	fiberApp.Use(logger.New())
	fiberApp.Use(recover.New())

	if container.Observability != nil {
		fiberApp.Use(func(c *fiber.Ctx) error {
			start := time.Now()
			err := c.Next()
			container.Observability.RecordHTTPRequest(c.Method(), routePath(c), c.Response().StatusCode(), time.Since(start))
			return err
		})
	}

	if container.Observability != nil && container.Observability.TracerProvider() != nil {
		tracer := otel.Tracer("fedramp-marketplace/http")
		fiberApp.Use(func(c *fiber.Ctx) error {
			spanCtx, span := tracer.Start(c.UserContext(), c.Method()+" "+c.Path())
			c.SetUserContext(spanCtx)
			err := c.Next()
			span.SetAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.route", routePath(c)),
				attribute.Int("http.status_code", c.Response().StatusCode()),
			)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else if status := c.Response().StatusCode(); status >= 500 {
				span.SetStatus(codes.Error, fmt.Sprintf("status %d", status))
			} else {
				span.SetStatus(codes.Ok, "OK")
			}
			span.End()
			return err
		})
	}

	if handler := container.Observability.PrometheusHandler(); handler != nil {
		fiberApp.Get("/metrics", adaptor.HTTPHandler(handler))
	}

	registerHealthRoutes(fiberApp, container)
	registerCatalogRoutes(fiberApp, container)

	return &Server{
		app:       fiberApp,
		cfg:       cfg,
		container: container,
	}, nil
}

// Listen blocks until context cancellation or a fatal listen error occurs.
func (s *Server) Listen(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(s.cfg.Server.ListenAddr)
	}()

	select {
	case <-ctx.Done():
		timeout := s.cfg.Server.GracefulShutdownDelay
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := s.app.ShutdownWithContext(shutdownCtx)
		if err == nil {
			err = <-errCh
		}
		return err
	case err := <-errCh:
		return err
	}
}

func routePath(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" {
		return r.Path
	}
	return c.Path()
}

func registerHealthRoutes(fiberApp *fiber.App, container *app.Container) {
	fiberApp.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		checks := make(map[string]fiber.Map)
		overall := "ok"

		if snap := container.Snapshot(); snap != nil {
			checks["catalog"] = fiber.Map{
				"status":      "ok",
				"snapshot_id": snap.ID.String(),
				"origin":      snap.Origin,
				"age_seconds": int64(snap.Age(time.Now()).Seconds()),
			}
		} else {
			checks["catalog"] = fiber.Map{"status": "error", "error": "snapshot not loaded"}
			overall = "degraded"
		}

		if container.DBPool != nil {
			checks["postgres"] = timedCheck(func() error { return container.DBPool.Ping(ctx) })
			if checks["postgres"]["status"] != "ok" {
				overall = "degraded"
			}
		}
		if container.Redis != nil {
			checks["redis"] = timedCheck(func() error { return container.Redis.Ping(ctx).Err() })
			if checks["redis"]["status"] != "ok" {
				overall = "degraded"
			}
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": overall,
			"checks": checks,
		})
	})
}

func timedCheck(ping func() error) fiber.Map {
	start := time.Now()
	err := ping()
	check := fiber.Map{
		"status":     "ok",
		"latency_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		check["status"] = "error"
		check["error"] = err.Error()
	}
	return check
}
