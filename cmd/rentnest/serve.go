// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentNest Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/rentnest/rentnest/internal/auth"
	authpg "github.com/rentnest/rentnest/internal/auth/postgres"
	"github.com/rentnest/rentnest/internal/config"
	"github.com/rentnest/rentnest/internal/logging"
	"github.com/rentnest/rentnest/internal/mail"
	"github.com/rentnest/rentnest/internal/media"
	"github.com/rentnest/rentnest/internal/observability"
	"github.com/rentnest/rentnest/internal/store"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the auth service",
		Long: `Start the authentication service: connects to PostgreSQL and object
storage, applies pending migrations, and serves metrics and health
endpoints until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd)
		},
	}
}

func runServe(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("operation", "load configuration").Wrap(err)
	}

	logger := logging.SetDefault(logging.Options{
		Service: "rentnest",
		Version: version,
		Format:  cfg.Log.Format,
	})

	logger.Info("starting auth service", "env", cfg.Env)

	pool, err := store.Connect(ctx, cfg.DB.URL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	defer pool.Close()

	logger.Info("connected to database")

	migrator, err := store.NewMigrator(cfg.DB.URL)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").Wrap(err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close() //nolint:errcheck // migration failure takes precedence
		return oops.Code("MIGRATION_UP_FAILED").Wrap(err)
	}
	if err := migrator.Close(); err != nil {
		logger.Warn("failed to close migrator", "error", err)
	}

	uploader, err := media.New(ctx, media.Options{
		Endpoint:      cfg.S3.Endpoint,
		AccessKey:     cfg.S3.RootUser,
		SecretKey:     cfg.S3.RootPassword,
		Bucket:        cfg.S3.Bucket,
		PublicBaseURL: cfg.S3.PublicBaseURL,
	})
	if err != nil {
		return oops.Code("MEDIA_INIT_FAILED").Wrap(err)
	}

	var mailer auth.ResetSender
	if cfg.SMTP.Host != "" {
		mailer, err = mail.NewSMTPSender(mail.SMTPOptions{
			Host: cfg.SMTP.Host,
			Port: cfg.SMTP.Port,
			From: cfg.SMTP.From,
		})
		if err != nil {
			return oops.Code("MAIL_INIT_FAILED").Wrap(err)
		}
	} else {
		logger.Warn("no SMTP host configured, reset links will be logged")
		mailer = mail.NewLogSender(logger)
	}

	signer, err := auth.NewTokenSigner(auth.SignerConfig{
		AccessSecret:  cfg.Auth.AccessSecret,
		RefreshSecret: cfg.Auth.RefreshSecret,
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
		Issuer:        cfg.Auth.Issuer,
	})
	if err != nil {
		return oops.Code("AUTH_INIT_FAILED").Wrap(err)
	}

	obsServer := observability.NewServer(cfg.Observability.Addr, func() bool {
		pingCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return pool.Ping(pingCtx) == nil
	})

	svc, err := auth.NewService(auth.Deps{
		Tenants:          authpg.NewTenantRepository(pool),
		Hasher:           auth.NewArgon2idHasher(),
		Signer:           signer,
		Uploader:         uploader,
		Mailer:           mailer,
		Logger:           logger,
		Metrics:          auth.NewMetrics(obsServer.Registry()),
		LockoutThreshold: cfg.Auth.LockoutThreshold,
		ResetTokenTTL:    cfg.Auth.ResetTokenTTL,
		ResetBaseURL:     cfg.Auth.ResetBaseURL,
	})
	if err != nil {
		return oops.Code("AUTH_INIT_FAILED").Wrap(err)
	}
	_ = svc // wired to the transport layer in the gateway process

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	obsErrCh, err := obsServer.Start()
	if err != nil {
		return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, obsErrCh, "observability")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Auth service started")
	logger.Info("auth service ready", "metrics_addr", obsServer.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := obsServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels the context when the server reports a late
// failure, triggering graceful shutdown of the whole process. It exits
// when an error arrives, the channel closes, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
