package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"habilitaciones/docs"
	"habilitaciones/internal/admin"
	"habilitaciones/internal/auth"
	"habilitaciones/internal/config"
	"habilitaciones/internal/database"
	"habilitaciones/internal/database/migration"
	handlers "habilitaciones/internal/http/handler"
	"habilitaciones/internal/http/middleware"
	"habilitaciones/internal/intake"
	"habilitaciones/internal/logging"
	"habilitaciones/internal/metrics"
	"habilitaciones/internal/notify"
	"habilitaciones/internal/otel"
	"habilitaciones/internal/repository/postgres"
	"habilitaciones/internal/service"
	"habilitaciones/internal/storage"
	"habilitaciones/internal/uploader"
)

const (
	serviceName       = "habilitaciones"
	draftSweepEvery   = 5 * time.Minute
	shutdownTimeout   = 15 * time.Second
	requestBodyLimit  = 5 * uploader.MaxFileSize
	migrationDeadline = time.Minute
)

// @title Habilitaciones API
// @version 1.0
// @description Commercial pre-registration intake and review.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := cfg.Location()

	var out io.Writer = os.Stdout
	if cfg.GELFAddr != "" {
		gelf, err := logging.NewGELF(cfg.GELFAddr, serviceName)
		if err != nil {
			logging.New(os.Stdout, loc).Error("gelf_dial", err, map[string]any{"addr": cfg.GELFAddr})
		} else {
			defer gelf.Close()
			out = io.MultiWriter(os.Stdout, gelf)
		}
	}
	log := logging.New(out, loc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, tracingEnabled, err := otel.Init(ctx, log)
	if err != nil {
		fatal(log, "tracing_init", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database, log)
	if err != nil {
		fatal(log, "db_connect", err)
	}
	defer db.Close()

	mctx, cancel := context.WithTimeout(ctx, migrationDeadline)
	err = migration.EnsureMigrated(mctx, db, log, cfg.Database.Host)
	cancel()
	if err != nil {
		fatal(log, "db_migration", err)
	}

	objStore, err := storage.NewMinIO(ctx, cfg.MinIO)
	if err != nil {
		fatal(log, "storage_init", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		fatal(log, "metrics_init", err)
	}
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		fatal(log, "metrics_init", err)
	}

	subRepo := postgres.NewSubmissionPostgres(db)
	subSvc := service.NewSubmissionService(subRepo, cfg.PageSize)

	drafts := intake.NewDrafts(time.Duration(cfg.DraftTTLMin) * time.Minute)
	go drafts.Run(ctx, draftSweepEvery)
	uploads := uploader.New(objStore, cfg.PublicBaseURL, log, m)
	intakeSvc := intake.NewService(drafts, uploads, subSvc, notify.New(cfg.SMTP, loc), log, m)

	tokens, err := auth.NewTokens(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.SessionTTLHours)*time.Hour)
	if err != nil {
		fatal(log, "auth_init", err)
	}
	gate := auth.NewGate(auth.NewGoogle(cfg.Auth), tokens, log, m)
	sessions := admin.NewSessions(subSvc, log, m)
	gate.Subscribe(sessions.Handle)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    requestBodyLimit,
	})

	// RequestID first so every later middleware and handler can read it.
	app.Use(middleware.RequestID())
	app.Use(middleware.Tracing(tracingEnabled))
	app.Use(middleware.Logger(log.With("http")))
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	handlers.RegisterRoutes(app, handlers.Dependencies{
		DB:            db,
		Submissions:   subSvc,
		Sessions:      sessions,
		Intake:        intakeSvc,
		Files:         objStore,
		Gate:          gate,
		UIRedirectURL: cfg.Auth.UIRedirectURL,
		Location:      loc,
	})

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(sctx); err != nil {
			log.Error("http_shutdown", err, nil)
		}
	}()

	addr := ":" + cfg.Port
	log.Info("http_listen", map[string]any{"addr": addr})
	if err := app.Listen(addr); err != nil {
		fatal(log, "http_listen", err)
	}
	log.Info("http_stopped", nil)
}

func fatal(log *logging.Logger, event string, err error) {
	log.Error(event, err, nil)
	os.Exit(1)
}
