package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/ae97/panel/internal/mail"
)

// Publisher is a mail.Sender that enqueues messages instead of delivering
// them.  It dials per publish; notification volume is a handful per signup.
type Publisher struct {
	URL string
	Log *zap.SugaredLogger
}

func (p Publisher) SendMessage(ctx context.Context, domain string, m mail.Message) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		p.Log.Warnw("rabbitmq dial failed", "err", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Log.Warnw("rabbitmq channel open failed", "err", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := declare(ch); err != nil {
		p.Log.Warnw("rabbitmq queue declare failed", "err", err)
		return err
	}

	body, err := json.Marshal(MailRequested{
		Domain:   domain,
		Message:  m,
		QueuedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", MailQueueName, false, false, pub); err != nil {
		p.Log.Warnw("rabbitmq publish failed", "err", err, "to", m.To)
		return err
	}
	return nil
}

func declare(ch *amqp.Channel) (amqp.Queue, error) {
	return ch.QueueDeclare(
		MailQueueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
}
