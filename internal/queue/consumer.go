package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/ae97/panel/internal/mail"
)

// Consumer drains the mail queue into a real Sender.
type Consumer struct {
	URL     string
	Deliver mail.Sender
	Log     *zap.SugaredLogger
}

// Run connects, consumes and reconnects with backoff until ctx is done.
func (c Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warnw("mail consumer: dial failed", "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warnw("mail consumer: loop ended, reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		c.Log.Warnw("mail consumer: set QoS failed", "err", err)
	}
	if _, err := declare(ch); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(MailQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(ctx, d.Body); err != nil {
				c.Log.Errorw("mail consumer: delivery failed", "err", err)
				_ = d.Nack(false, false) // no requeue, avoids a hot loop on bad mail
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one MailRequested body and delivers it.
func (c Consumer) Handle(ctx context.Context, body []byte) error {
	var ev MailRequested
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Message.To == "" {
		return errors.New("message has no recipient")
	}
	if err := c.Deliver.SendMessage(ctx, ev.Domain, ev.Message); err != nil {
		return err
	}
	c.Log.Infow("mail delivered", "to", ev.Message.To, "subject", ev.Message.Subject, "queued_at", ev.QueuedAt)
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
