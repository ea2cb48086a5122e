package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/exposingwithjay/cybersentinel-backend/internal/api"
	"github.com/exposingwithjay/cybersentinel-backend/internal/api/middleware"
	"github.com/exposingwithjay/cybersentinel-backend/internal/config"
	"github.com/exposingwithjay/cybersentinel-backend/internal/database"
	"github.com/exposingwithjay/cybersentinel-backend/internal/logger"
	"github.com/exposingwithjay/cybersentinel-backend/internal/mailer"
	"github.com/exposingwithjay/cybersentinel-backend/internal/metrics"
	"github.com/exposingwithjay/cybersentinel-backend/internal/repository"
	"github.com/exposingwithjay/cybersentinel-backend/internal/services"
	"github.com/exposingwithjay/cybersentinel-backend/internal/smtp"
	"github.com/exposingwithjay/cybersentinel-backend/internal/storage"
	"github.com/exposingwithjay/cybersentinel-backend/internal/websocket"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (the default command)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	log.Info("Starting CyberSentinel backend...")
	cfg.LogConfig(log)
	if cfg.APIKey == "" {
		log.Warn("API_KEY not set - admin API is UNSECURED")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := database.Connect(cfg.DatabaseURL, cfg.IsProduction())
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return err
	}

	security := logger.NewSecurityLogger(log)
	m := metrics.NewMetrics()

	// Outbound mail
	sender, sink, err := newSender(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stopSink(log, sink)
	log.Info("mail transport ready", slog.String("transport", sender.Name()))

	// Live feed
	hub := websocket.NewHub(log).WithMetrics(m)
	go hub.Run()
	defer hub.Stop()

	rateLimits := repository.NewRateLimitRepository(db)
	logs := repository.NewContactLogRepository(db)

	intake := services.NewIntakeService(
		rateLimits,
		logs,
		mailer.NewComposer(cfg.OpsMailbox, cfg.NoReplyAddress),
		sender,
		services.IntakeConfig{
			Cooldown:            cfg.Cooldown,
			OperationalLogLimit: cfg.OperationalLogLimit,
			DisplayLogLimit:     cfg.DisplayLogLimit,
			ReleaseOnFailure:    cfg.ReleaseOnFailure,
			MailTimeout:         cfg.MailTimeout,
		},
		services.IntakeOptions{
			Logger:   log,
			Security: security,
			Metrics:  m,
			Notifier: hub,
		},
	)

	retention := services.NewRetentionService(logs, services.RetentionConfig{
		Schedule:            cfg.RetentionSchedule,
		OperationalLogLimit: cfg.OperationalLogLimit,
		DisplayLogLimit:     cfg.DisplayLogLimit,
	}, log, m)
	if err := retention.Start(); err != nil {
		return err
	}

	limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimitRequests), cfg.RateLimitBurst)
	go limiter.RunCleanup(ctx, middleware.DefaultLimiterIdleTTL)

	e := api.NewRouter(&api.RouterConfig{
		DB:             db,
		Intake:         intake,
		Logs:           logs,
		Hub:            hub,
		Logger:         log,
		Security:       security,
		APIKey:         cfg.APIKey,
		AllowedOrigins: cfg.Origins(),
		Production:     cfg.IsProduction(),
		RateLimit:      cfg.RateLimitRequests,
		RateBurst:      cfg.RateLimitBurst,
		Limiter:        limiter,
		TrustProxy:     cfg.TrustProxy,
	})

	addr := ":" + strconv.Itoa(cfg.APIPort)
	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err = <-serverErr:
		log.Error("HTTP server failed", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error("HTTP server shutdown failed", slog.Any("error", shutdownErr))
	}
	retention.Stop()

	log.Info("Server stopped")
	return err
}

// stopSink shuts the capture server down. A nil sink is a no-op.
func stopSink(log *slog.Logger, sink *smtp.Sink) {
	if sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sink.Shutdown(ctx); err != nil {
		log.Error("mail sink shutdown failed", slog.Any("error", err))
	}
}

// newSender builds the configured transport. The sink transport also starts
// the embedded capture server, which the caller must shut down.
func newSender(ctx context.Context, cfg *config.Config, log *slog.Logger) (mailer.Sender, *smtp.Sink, error) {
	switch cfg.MailTransport {
	case config.TransportSMTP:
		return mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			TLSMode:  cfg.SMTPTLS,
			Timeout:  cfg.MailTimeout,
		}), nil, nil

	case config.TransportGmail:
		sender, err := mailer.NewGmailSender(ctx, mailer.GmailConfig{
			ClientID:     cfg.GmailClientID,
			ClientSecret: cfg.GmailClientSecret,
			RefreshToken: cfg.GmailRefreshToken,
		})
		if err != nil {
			return nil, nil, err
		}
		return sender, nil, nil

	case config.TransportSink:
		archive, err := storage.NewLocalArchive(cfg.MailArchivePath)
		if err != nil {
			return nil, nil, err
		}
		backend := smtp.NewBackend(&smtp.BackendConfig{
			Archive: archive,
			Logger:  log,
			OnMessage: func(msg *smtp.CapturedMessage) {
				log.Info("mail captured",
					slog.String("subject", msg.Subject),
					slog.String("archive_path", msg.ArchivePath),
					slog.Int("size", msg.Size))
			},
		})
		sink := smtp.NewSink(backend, &smtp.ServerConfig{
			Addr:          cfg.SinkAddr,
			Domain:        "localhost",
			AllowInsecure: true,
		})
		if err := sink.Start(); err != nil {
			return nil, nil, err
		}

		host, portStr, err := net.SplitHostPort(sink.Addr())
		if err != nil {
			stopSink(log, sink)
			return nil, nil, fmt.Errorf("invalid sink address %q: %w", sink.Addr(), err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			stopSink(log, sink)
			return nil, nil, fmt.Errorf("invalid sink port %q: %w", portStr, err)
		}
		return mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:    host,
			Port:    port,
			TLSMode: mailer.TLSNone,
			Timeout: cfg.MailTimeout,
			Label:   config.TransportSink,
		}), sink, nil
	}

	return nil, nil, fmt.Errorf("unknown mail transport %q", cfg.MailTransport)
}
