package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"partnersync/internal/api"
	"partnersync/internal/crm"
	"partnersync/internal/odoo"
	"partnersync/internal/webhook"
	"partnersync/pkg/config"
	"partnersync/pkg/logging"
	"partnersync/pkg/postgres"
	"partnersync/pkg/rabbitmq"
	"partnersync/pkg/redis"

	_ "partnersync/docs"
)

// @title           Partner Sync Webhook API
// @version         1.0
// @description     Receives signed identity-provider webhooks and mirrors users into Odoo partners.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
func main() {
	cfg := config.Load()
	log := logging.New("webhook-service", cfg.LogLevel)
	log.Info("starting webhook-service", "mode", cfg.SyncMode)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	verifier := webhook.NewVerifier(cfg.WebhookSecret, cfg.WebhookTolerance)

	caller := odoo.NewXMLRPCCaller(cfg.OdooURL, cfg.OdooTimeout)
	session := odoo.NewSession(caller, odoo.Credentials{
		Database: cfg.OdooDatabase,
		Username: cfg.OdooUsername,
		Password: cfg.OdooPassword,
	}, log)
	client := odoo.NewClient(session, odoo.Options{Model: cfg.OdooModel, ExternalIDField: cfg.OdooExternalIDField}, log)

	dispatcher := crm.NewDispatcher(client, log)
	dispatcher.UpsertOnCreate = cfg.UpsertOnCreate

	if cfg.DatabaseURL != "" {
		db, err := postgres.Connect(ctx, cfg.DatabaseURL, postgres.DefaultRetry, log)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := postgres.RunMigrations(ctx, db, "sync", log); err != nil {
			log.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		dispatcher.Recorder = postgres.NewSyncLog(db)
	}

	handler := api.NewWebhookHandler(verifier, dispatcher, log)

	if cfg.RedisAddr != "" {
		rdb, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		handler.Ledger = redis.NewLedger(rdb.Client, cfg.DeliveryTTL)
	}

	if cfg.SyncMode == config.ModeQueue {
		rmqConn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, 30, 2*time.Second, log)
		if err != nil {
			log.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rmqConn.Close()

		publisher, err := rabbitmq.NewPublisher(rmqConn, log)
		if err != nil {
			log.Error("failed to create publisher", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		handler.Publisher = publisher
	} else if _, err := session.Ensure(ctx); err != nil {
		// Not fatal: the session logs in again on the first webhook.
		log.Warn("initial odoo login failed", "error", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           api.NewRouter(handler, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("listening", "port", cfg.APIPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		return
	}
	log.Info("server exited gracefully")
}
