// Command mailer delivers the notifications queued by the panel server.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ae97/panel/internal/config"
	"github.com/ae97/panel/internal/logger"
	"github.com/ae97/panel/internal/mail"
	"github.com/ae97/panel/internal/queue"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.Init(logger.Config{Level: cfg.Log.Level, Dev: cfg.Log.Dev, File: cfg.Log.File})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	sugar := zl.Sugar()

	var deliver mail.Sender = mail.LogSender{Log: sugar}
	if cfg.Mail.SMTPHost != "" {
		deliver = mail.SMTPSender{Host: cfg.Mail.SMTPHost, Port: cfg.Mail.SMTPPort, Username: cfg.Mail.SMTPUser, Password: cfg.Mail.SMTPPass}
	} else {
		sugar.Warn("smtp.host not set, queued mail will only be logged")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Infow("mailer started", "queue", queue.MailQueueName)
	c := queue.Consumer{URL: cfg.AMQPURL, Deliver: deliver, Log: sugar}
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		sugar.Errorw("mailer stopped", "err", err)
	}
	sugar.Info("goodbye")
}
