package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"rentcar/internal/notifications"
	"rentcar/pkg/kafka"
	kafka_config "rentcar/pkg/kafka/config"
	kafka_middleware "rentcar/pkg/kafka/middleware"
	"rentcar/pkg/logger"
	"rentcar/pkg/mailer"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const ServiceName = "rentcar-notifier"

type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Topic    string `env:"NOTIFICATION_TOPIC" envDefault:"rentcar.notifications"`
	DLQ      string `env:"NOTIFICATION_DLQ_TOPIC" envDefault:"rentcar.notifications.dlq"`
	GroupID  string `env:"NOTIFIER_GROUP_ID" envDefault:"rentcar-notifier"`
}

func main() {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	log := logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    logger.JSON,
		AddSource: true,
		Service:   ServiceName,
	})
	if err != nil {
		log.Fatal("Invalid notifier configuration", "error", err)
	}

	mailCfg, err := mailer.LoadConfig()
	if err != nil {
		log.Fatal("Invalid mailer configuration", "error", err)
	}
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		log.Fatal("Invalid Kafka configuration", "error", err)
	}

	renderer, err := notifications.NewRenderer()
	if err != nil {
		log.Fatal("Failed to load notification templates", "error", err)
	}
	handler := notifications.NewHandler(renderer, mailer.New(mailCfg), log)

	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.Topic, cfg.GroupID, cfg.DLQ, handler.Handle, log)
	if err != nil {
		log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(log))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting notifier", "topic", cfg.Topic, "group_id", cfg.GroupID, "smtp_host", mailCfg.Host)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Consumer stopped unexpectedly", "error", err)
	}

	if err := consumer.Close(); err != nil {
		log.Error("Failed to close Kafka consumer", "error", err)
	}
	log.Info("Notifier stopped")
}
