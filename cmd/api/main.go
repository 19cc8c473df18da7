// @title Event Signup API
// @version 1.0
// @description Event registration backend: events, capacity-checked registrations, reporting and announcements.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
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

	"eventsignup/config"
	_ "eventsignup/docs"
	"eventsignup/internal/adapters/auth"
	"eventsignup/internal/adapters/broker"
	"eventsignup/internal/adapters/email"
	"eventsignup/internal/adapters/ratelimit"
	httpdelivery "eventsignup/internal/delivery/http"
	"eventsignup/internal/delivery/http/controllers"
	"eventsignup/internal/delivery/http/middleware"
	"eventsignup/internal/domain"
	"eventsignup/internal/metrics"
	"eventsignup/internal/repository/memory"
	"eventsignup/internal/repository/postgres"
	"eventsignup/internal/services"
)

type repositories struct {
	accounts      domain.AccountRepository
	events        domain.EventRepository
	registrations domain.RegistrationRepository
	announcements domain.AnnouncementRepository
}

func main() {
	logger := config.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	var (
		repos  repositories
		checks []func(context.Context) error
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store := memory.New()
		repos = repositories{store.Accounts(), store.Events(), store.Registrations(), store.Announcements()}
		logger.Warn("using in-memory store; data is lost on restart")
	default:
		db, err := postgres.Open(ctx, cfg.DBUrl)
		if err != nil {
			logger.Error("failed to connect to database", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if cfg.AutoMigrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				logger.Error("failed to apply schema", "err", err)
				os.Exit(1)
			}
		}
		repos = repositories{
			accounts:      postgres.NewAccountRepository(db),
			events:        postgres.NewEventRepository(db),
			registrations: postgres.NewRegistrationRepository(db),
			announcements: postgres.NewAnnouncementRepository(db),
		}
		checks = append(checks, db.PingContext)
	}

	m := metrics.New()
	jwt := auth.NewJWT(cfg.JWTSecret, cfg.JWTIssuer)

	var publisher domain.RegistrationPublisher
	if cfg.AMQPURL != "" {
		p, err := broker.Dial(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			logger.Error("failed to connect to broker", "err", err)
			os.Exit(1)
		}
		defer p.Close()
		publisher = p
	}

	var limiter middleware.RateLimiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "err", err)
			os.Exit(1)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		l := ratelimit.New(client, cfg.RateLimitPerMinute, time.Minute)
		if err := l.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, rate limiting fails open", "err", err)
		}
		limiter = l
	}

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Mail.Provider,
		FromAddress: cfg.Mail.FromAddress,
		FromName:    cfg.Mail.FromName,
		SES: email.SESConfig{
			Region:             cfg.Mail.SESRegion,
			AccessKeyID:        cfg.Mail.SESAccessKeyID,
			SecretAccessKey:    cfg.Mail.SESSecretAccessKey,
			InsecureSkipVerify: cfg.Mail.InsecureSkipVerify,
		},
	}, logger)
	if err != nil {
		logger.Error("failed to create mailer", "err", err)
		os.Exit(1)
	}
	emailSvc := services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)

	accountSvc := services.NewAccountService(repos.accounts, jwt, services.AccountConfig{
		TokenExpiry:       cfg.JWTExpiry,
		AdminIdentityKeys: cfg.AdminIdentityKeys,
		Timeout:           cfg.ServiceTimeout,
	})
	eventSvc := services.NewEventService(repos.events, cfg.ServiceTimeout, nil)
	registrationSvc := services.NewRegistrationService(repos.events, repos.registrations, publisher, m, logger, services.RegistrationConfig{
		BlockAfterStart:       cfg.RegistrationBlockAfterStart,
		CancelBlockAfterStart: cfg.CancelBlockAfterStart,
		Timeout:               cfg.ServiceTimeout,
	})
	reportSvc := services.NewReportService(repos.events, repos.registrations, emailSvc, m, logger, services.ReportConfig{
		BlockAfterStart: cfg.RegistrationBlockAfterStart,
		Timeout:         cfg.ServiceTimeout,
	})
	announcementSvc := services.NewAnnouncementService(repos.announcements, cfg.ServiceTimeout, nil)

	authenticator := middleware.Authenticator{Verifier: jwt, Logger: logger}
	if cfg.TrustIdentityHeader {
		authenticator.Identities = accountSvc
	}

	router := httpdelivery.NewRouter(httpdelivery.RouterConfig{
		Logger:        logger,
		Auth:          authenticator,
		Limiter:       limiter,
		Metrics:       m,
		CORSOrigins:   cfg.CORSAllowedOrigins,
		Accounts:      controllers.NewAccountController(logger, accountSvc, cfg.TrustIdentityHeader, !cfg.IsProduction()),
		Events:        controllers.NewEventController(logger, eventSvc),
		Registrations: controllers.NewRegistrationController(logger, registrationSvc, reportSvc),
		Reports:       controllers.NewReportController(logger, reportSvc),
		Announcements: controllers.NewAnnouncementController(logger, announcementSvc),
		Ready: func(r *http.Request) error {
			for _, check := range checks {
				if err := check(r.Context()); err != nil {
					return err
				}
			}
			return nil
		},
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "err", err)
		}
	}()

	logger.Info("server listening", "addr", server.Addr, "env", cfg.Environment, "store", cfg.StoreDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "err", err)
		os.Exit(1)
	}
}
