package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/jimdaga/ki-report/internal/admin"
	"github.com/jimdaga/ki-report/internal/auth"
	"github.com/jimdaga/ki-report/internal/briefings"
	"github.com/jimdaga/ki-report/internal/compose"
	"github.com/jimdaga/ki-report/internal/config"
	"github.com/jimdaga/ki-report/internal/database"
	"github.com/jimdaga/ki-report/internal/events"
	"github.com/jimdaga/ki-report/internal/llm"
	"github.com/jimdaga/ki-report/internal/logging"
	"github.com/jimdaga/ki-report/internal/mail"
	"github.com/jimdaga/ki-report/internal/models"
	"github.com/jimdaga/ki-report/internal/pdf"
	"github.com/jimdaga/ki-report/internal/pipeline"
	"github.com/jimdaga/ki-report/internal/render"
	"github.com/jimdaga/ki-report/internal/reports"
	"github.com/jimdaga/ki-report/internal/sections"
	"github.com/jimdaga/ki-report/internal/server"
	"github.com/jimdaga/ki-report/internal/store"
	"github.com/jimdaga/ki-report/internal/worker"
)

func main() {
	cfg := config.Load()
	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.RunMigrations(db, logger); err != nil {
		return err
	}
	if !cfg.IsProduction() {
		if err := database.SeedDevData(db, logger); err != nil {
			logger.Warn("failed to seed development data", "error", err)
		}
	}
	if cfg.EncryptionKey != "" {
		if err := models.InitEncryption(cfg.EncryptionKey); err != nil {
			return err
		}
	} else {
		logger.Warn("ENCRYPTION_KEY not set, contact emails are stored in plaintext")
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	} else {
		logger.Warn("REDIS_URL not set, using in-process queue and memory stores")
	}
	kv := store.NewStores(rdb, logger)

	var client llm.Client = llm.StubClient{}
	if !cfg.LLMStubMode && cfg.OpenAIAPIKey != "" {
		client = llm.NewOpenAIClient(llm.Options{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.OpenAITemperature,
			MaxTokens:   cfg.OpenAIMaxTokens,
			Timeout:     cfg.OpenAITimeout,
		}, logger)
	} else {
		logger.Warn("LLM stub mode active, sections use canned text")
	}

	analyzer, err := newAnalyzer(cfg, client, logger)
	if err != nil {
		return err
	}

	sender := mail.NewSender(mail.NewTransport(cfg.MailProvider, mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
		Timeout:  30 * time.Second,
	}, cfg.ResendAPIKey, logger), logger)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	authSvc := auth.NewService(db, kv.Auth, sender, tokens, auth.Options{
		CodeTTL:     cfg.LoginCodeTTL,
		MaxAttempts: cfg.LoginCodeMaxAttempt,
		RatePerHour: cfg.LoginCodeRatePerHr,
		HashCost:    bcrypt.DefaultCost,
		IsAdmin:     cfg.IsAdminEmail,
	}, logger)
	sso := auth.InitProviders(cfg, logger)

	hub := reports.NewHub(cfg.CORSOrigins, logger)
	deps := pipeline.Deps{
		DB:       db,
		Analyzer: analyzer,
		PDF:      pdf.New(cfg.PDFServiceURL, cfg.PDFLocalRender, pdf.Options{Timeout: cfg.PDFTimeout, MaxBytes: cfg.PDFMaxBytes}, logger),
		Mail:     sender,
		Admins:   cfg.AdminRecipients(),
		Notifier: hub,
		Logger:   logger,
	}
	if rdb != nil && cfg.LeadEventsStream != "" {
		deps.Events = events.NewPublisher(rdb, cfg.LeadEventsStream)
		// Terminal states arrive through the stream, from this process and
		// from every other worker.
		deps.Notifier = nil
		stopFollow := events.NewFollower(rdb, cfg.LeadEventsStream, logger).Start(hub.NotifyReport)
		defer stopFollow()
	}
	driver := pipeline.NewDriver(deps)

	var queue worker.Queue
	if cfg.RedisURL != "" {
		aq, err := worker.NewAsynqQueue(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer aq.Close()
		queue = aq

		stopWorker, err := worker.Start(cfg.RedisURL, cfg.LocalQueueWorkers, driver, authSvc, logger)
		if err != nil {
			return err
		}
		defer stopWorker()

		stopScheduler, err := worker.StartScheduler(cfg.RedisURL, cfg.CleanupSchedule, logger)
		if err != nil {
			return err
		}
		defer stopScheduler()
	} else {
		lq := worker.NewLocalQueue(driver, cfg.LocalQueueWorkers, cfg.LocalQueueCapacity, logger)
		lq.Start(ctx)
		defer lq.Stop()
		queue = lq
	}

	validator, err := briefings.NewValidator()
	if err != nil {
		return err
	}

	router := server.NewRouter(cfg, db, tokens, server.Handlers{
		Auth:      auth.NewHandlers(authSvc, logger),
		Briefings: briefings.NewHandlers(db, queue, kv.Idempotency, validator, cfg.IdempotencyTTL, logger),
		Reports:   reports.NewHandlers(db, hub, logger),
		Admin:     admin.NewHandlers(db, driver, logger),
		SSO:       sso,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newAnalyzer(cfg *config.Config, client llm.Client, logger *slog.Logger) (*pipeline.Analyzer, error) {
	cat, err := sections.DefaultCatalog()
	if err != nil {
		return nil, err
	}
	reg, err := sections.NewRegistryFromCatalog(cat)
	if err != nil {
		return nil, err
	}
	composer := compose.NewComposer(sections.NewGenerator(client, cat, logger), reg, compose.Options{
		OneLiners:    cfg.EnableOneLiners,
		QualityGates: cfg.EnableQualityGates,
		Hours: compose.HourDefaults{
			QW1:      cfg.DefaultQW1Hours,
			QW2:      cfg.DefaultQW2Hours,
			Fallback: cfg.FallbackQWMonthlyH,
		},
	}, logger)

	tmpl, err := render.Template(cfg.ReportTemplatePath)
	if err != nil {
		return nil, err
	}
	var aiAct string
	if cfg.AIActInfoPath != "" {
		data, err := os.ReadFile(cfg.AIActInfoPath)
		if err != nil {
			logger.Warn("failed to read AI act info, timeline uses built-in dates", "path", cfg.AIActInfoPath, "error", err)
		} else {
			aiAct = string(data)
		}
	}
	return pipeline.NewAnalyzer(composer, pipeline.AnalyzerOptions{
		Template:   tmpl,
		AIActText:  aiAct,
		Ensemble:   cfg.EnableEnsemble,
		HourlyRate: cfg.DefaultStundensatz,
	}, logger)
}
