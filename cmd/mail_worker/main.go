package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sittichok/user-service/config"
	"github.com/sittichok/user-service/internal/infrastructure/broker"
	"github.com/sittichok/user-service/internal/mailworker"
	"github.com/sittichok/user-service/pkg/helpers"
	"github.com/sittichok/user-service/pkg/mailer"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-mail-worker", cfg.Env, cfg.LogLevel)
	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; mail worker disabled (no real emails will be sent)")
		return
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		log.Fatal("Mailgun not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rabbit := helpers.NewRabbitConn(cfg.RabbitMQURL)
	defer rabbit.Close()

	dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	ch, err := rabbit.Channel(dialCtx)
	if err != nil {
		cancel()
		log.Fatalf("amqp channel: %v", err)
	}
	// own queue on the shared fanout, so every UserCreated reaches us too
	if err := broker.Declare(dialCtx, ch, cfg.ExchangeName(), cfg.MailQueueName()); err != nil {
		cancel()
		log.Fatalf("declare: %v", err)
	}
	cancel()

	// prefetch for fair dispatch across worker replicas
	if err := ch.Qos(16, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}
	msgs, err := ch.Consume(cfg.MailQueueName(), cfg.AppName+"-mail-worker", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	w := mailworker.New(cfg, mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender), logger)
	done := make(chan struct{})
	go func() {
		w.Run(ctx, msgs)
		close(done)
	}()

	logger.WithField("queue", cfg.MailQueueName()).WithField("exchange", cfg.ExchangeName()).Info("mail worker listening")
	select {
	case <-ctx.Done():
		logger.Info("shutting down...")
	case <-done:
		logger.Warn("consumer stopped")
		stop()
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}
