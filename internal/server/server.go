// Package server assembles the HTTP application from its feature packages.
package server

import (
	"strings"
	"time"

	"farm-backend/internal/admin"
	"farm-backend/internal/audit"
	"farm-backend/internal/auth"
	"farm-backend/internal/config"
	"farm-backend/internal/crud"
	"farm-backend/internal/dashboard"
	"farm-backend/internal/financial"
	"farm-backend/internal/inventory"
	"farm-backend/internal/invoice"
	"farm-backend/internal/livestock"
	"farm-backend/internal/maintenance"
	"farm-backend/internal/metrics"
	"farm-backend/internal/purchasing"
	"farm-backend/internal/response"
	"farm-backend/internal/task"
	"farm-backend/internal/trade"
	"farm-backend/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Logger *zap.Logger
	// Metrics is optional; nil disables the middleware and /metrics.
	Metrics *metrics.Metrics
}

func New(d Deps) *fiber.App {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cfg := d.Config

	app := fiber.New(fiber.Config{
		AppName:      "farm-backend",
		ErrorHandler: response.ErrorHandler(logger.Named(log, "http")),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins(cfg.CORSOrigins),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	app.Use(requestLogger(logger.Named(log, "access")))
	if d.Metrics != nil {
		app.Use(d.Metrics.Middleware())
		app.Get("/metrics", d.Metrics.Handler())
	}
	app.Use(auth.Resolve(cfg.JWTSecret))

	app.Get("/health", func(c *fiber.Ctx) error {
		return response.OK(c, "OK", fiber.Map{"status": "up"})
	})

	env := crud.Env{
		DB:    d.DB,
		Audit: audit.NewLogger(logger.Named(log, "audit")),
		Log:   log,
	}
	seq := invoice.NewSequencer(cfg.Invoice.InvoicePrefix, cfg.Invoice.PurchasePrefix)

	api := app.Group("/api")

	// Public auth
	auth.NewHandler(d.DB, cfg.JWTSecret, cfg.JWTTTL, logger.Named(log, "auth")).Register(api)

	// Users
	admin.Register(api, env)

	// Farm records
	livestock.Register(api, env)
	financial.Register(api, env)
	trade.Register(api, env)
	invoice.NewHandler(env, seq, cfg.Invoice.TaxRate).Register(api)
	purchasing.NewHandler(env, seq, cfg.Invoice.TaxRate).Register(api)
	inventory.Register(api, env)
	maintenance.NewHandler(env).Register(api)
	task.NewHandler(env).Register(api)

	// Reporting
	dashboard.NewHandler(d.DB).Register(api)
	audit.Register(api, d.DB)

	api.Use(func(c *fiber.Ctx) error {
		return response.NotFound("Route")
	})

	return app
}

func corsOrigins(raw string) string {
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, ",")
}

func requestLogger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = response.Classify(err).Status
		}
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.Any("request_id", c.Locals("requestid")),
		}
		if p := auth.PrincipalFrom(c); p != nil {
			fields = append(fields, zap.Uint("user_id", p.ID))
		}
		if status >= fiber.StatusInternalServerError {
			log.Warn("request", fields...)
		} else {
			log.Info("request", fields...)
		}
		return err
	}
}
