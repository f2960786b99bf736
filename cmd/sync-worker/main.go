package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"partnersync/internal/crm"
	"partnersync/internal/odoo"
	"partnersync/pkg/config"
	"partnersync/pkg/logging"
	"partnersync/pkg/postgres"
	"partnersync/pkg/rabbitmq"
)

func main() {
	cfg := config.Load()
	log := logging.New("sync-worker", cfg.LogLevel)
	log.Info("starting sync-worker")

	if err := cfg.ValidateOdoo(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.RabbitMQURL == "" {
		log.Error("invalid configuration", "error", "RABBITMQ_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	caller := odoo.NewXMLRPCCaller(cfg.OdooURL, cfg.OdooTimeout)
	session := odoo.NewSession(caller, odoo.Credentials{
		Database: cfg.OdooDatabase,
		Username: cfg.OdooUsername,
		Password: cfg.OdooPassword,
	}, log)
	client := odoo.NewClient(session, odoo.Options{Model: cfg.OdooModel, ExternalIDField: cfg.OdooExternalIDField}, log)

	dispatcher := crm.NewDispatcher(client, log)
	dispatcher.UpsertOnCreate = cfg.UpsertOnCreate

	var checker crm.DeliveryChecker
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
		syncLog := postgres.NewSyncLog(db)
		dispatcher.Recorder = syncLog
		checker = syncLog
	}

	rmqConn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, 30, 2*time.Second, log)
	if err != nil {
		log.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rmqConn.Close()

	consumer := crm.NewConsumer(dispatcher, checker, log)
	consumerCfg := rabbitmq.ConsumerConfig{
		QueueName:    "partnersync.user.events",
		DLQName:      "dlq.partnersync.user.events",
		RoutingKeys:  rabbitmq.UserRoutingKeys,
		ConsumerName: "sync-worker",
	}
	if err := rabbitmq.SetupConsumer(ctx, rmqConn, consumerCfg, consumer.HandleMessage, log); err != nil {
		log.Error("failed to setup consumer", "error", err)
		os.Exit(1)
	}

	log.Info("consumer is running, waiting for messages")
	<-ctx.Done()
	log.Info("shutting down")
}
