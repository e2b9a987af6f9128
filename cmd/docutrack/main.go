package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docutrack/docutrack/db"
	"github.com/docutrack/docutrack/internal/auth"
	"github.com/docutrack/docutrack/internal/config"
	"github.com/docutrack/docutrack/internal/dashboard"
	"github.com/docutrack/docutrack/internal/handlers"
	"github.com/docutrack/docutrack/internal/log"
	"github.com/docutrack/docutrack/internal/router"
	"github.com/docutrack/docutrack/internal/scheduler"
	"github.com/docutrack/docutrack/internal/services"
	"github.com/docutrack/docutrack/internal/store"
)

const (
	shutdownTimeout = 10 * time.Second
	webhookTimeout  = 10 * time.Second
)

func main() {
	cfg, err := config.Load()

	if err != nil {
		log.Fatal("Invalid configuration", err)
	}

	log.SetLevel(log.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)

	if err != nil {
		log.Fatal("Failed to open store", err, "driver", cfg.StoreDriver)
	}

	loc := cfg.Location()

	signer, err := auth.NewSigner(cfg.JWTSecret, auth.DefaultTokenTTL)

	if err != nil {
		log.Fatal("Failed to configure auth", err)
	}

	mailer := services.NewMailService(cfg.SMTP)
	if !mailer.Enabled() {
		log.Warn("SMTP is not configured, emails will be skipped")
	}

	notifier := services.NewNotifier(st, mailer, services.NewWebhookSender(&http.Client{Timeout: webhookTimeout}), loc)
	actions := dashboard.NewActions(st, notifier, nil)

	reminders := scheduler.NewScheduler(st, notifier, cfg.ReminderCron, loc)
	if err := reminders.Start(); err != nil {
		log.Fatal("Failed to start reminder scheduler", err)
	}

	h := handlers.New(st, actions, signer, handlers.Options{
		CookieDomain:   cfg.CookieDomain,
		AllowedOrigins: cfg.AllowedOrigins,
		Location:       loc,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router.NewRouter(h, cfg.AllowedOrigins),
	}

	go func() {
		log.Info("Server listening", "port", cfg.Port, "driver", cfg.StoreDriver, "timezone", loc.String())

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", err)
	}

	reminders.Stop()

	if err := st.Close(shutdownCtx); err != nil {
		log.Error("Failed to close store", err)
	}
}

// openStore connects the configured store adapter. Change feeds for other
// instances run until ctx ends.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	broker := store.NewBroker()

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		gdb, err := db.ConnectDatabase(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}

		if err := db.MigrateDatabase(gdb); err != nil {
			return nil, err
		}

		var opts []store.GormOption
		if cfg.PGNotify {
			opts = append(opts, store.WithPGNotify())

			listener := store.NewPGListener(cfg.DatabaseURL, broker)
			go func() {
				if err := listener.Run(ctx); err != nil {
					log.Error("Postgres listener stopped", err)
				}
			}()
		}

		log.Info("Connected to postgres")
		return store.NewGormStore(gdb, broker, opts...), nil

	case config.DriverMongo:
		ms, err := store.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, broker)
		if err != nil {
			return nil, err
		}

		go ms.Watch(ctx)

		log.Info("Connected to mongo", "uri", store.MaskURI(cfg.MongoURI), "database", cfg.MongoDatabase)
		return ms, nil

	default:
		log.Warn("Using the in-memory store, data will not survive a restart")
		return store.NewMemoryStore(), nil
	}
}
