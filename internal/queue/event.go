// Package queue moves outbound mail through RabbitMQ so the web process never
// blocks on SMTP.
package queue

import "github.com/ae97/panel/internal/mail"

// MailQueueName is the durable queue carrying MailRequested events.
const MailQueueName = "mail.outbound"

// MailRequested is published for every notification the panel sends.
type MailRequested struct {
	Domain   string       `json:"domain"`
	Message  mail.Message `json:"message"`
	QueuedAt string       `json:"queued_at"`
}
