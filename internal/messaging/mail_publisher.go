// Package messaging publishes mail jobs to RabbitMQ and account events to Kafka.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"account-service/internal/interfaces"
	"account-service/internal/models"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Mail job kinds.
const (
	MailKindEmailVerification = "email_verification"
	MailKindChangePassword    = "change_password"
	MailKindPhoneCode         = "phone_code"
)

// MailJob is the message consumed by the mail/SMS sender.
type MailJob struct {
	Kind     string    `json:"kind"`
	To       string    `json:"to"`
	Username string    `json:"username,omitempty"`
	Link     string    `json:"link,omitempty"`
	Code     string    `json:"code,omitempty"`
	QueuedAt time.Time `json:"queuedAt"`
}

var _ interfaces.MailSender = (*rabbitMailPublisher)(nil)

type rabbitMailPublisher struct {
	conn      *amqp091.Connection
	queueName string
	webAppURL string
	logger    *zap.Logger
}

// NewRabbitMailPublisher declares queueName and returns a MailSender publishing to it.
// Links in mails are built on webAppURL.
func NewRabbitMailPublisher(conn *amqp091.Connection, queueName, webAppURL string, logger *zap.Logger) (interfaces.MailSender, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection is nil")
	}
	p := &rabbitMailPublisher{
		conn:      conn,
		queueName: queueName,
		webAppURL: strings.TrimRight(webAppURL, "/"),
		logger:    logger.Named("MailPublisher").With(zap.String("queue", queueName)),
	}
	if err := p.declareQueue(); err != nil {
		return nil, fmt.Errorf("failed to declare queue %s on init: %w", queueName, err)
	}
	p.logger.Info("MailPublisher initialized")
	return p, nil
}

func (p *rabbitMailPublisher) declareQueue() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	return err
}

func (p *rabbitMailPublisher) SendEmailVerification(ctx context.Context, user *models.User, token string) error {
	return p.publish(ctx, MailJob{
		Kind:     MailKindEmailVerification,
		To:       user.Email,
		Username: user.Username,
		Link:     buildLink(p.webAppURL, "/verify", token),
	})
}

func (p *rabbitMailPublisher) SendChangePassword(ctx context.Context, user *models.User, token string) error {
	return p.publish(ctx, MailJob{
		Kind:     MailKindChangePassword,
		To:       user.Email,
		Username: user.Username,
		Link:     buildLink(p.webAppURL, "/change-password", token),
	})
}

func (p *rabbitMailPublisher) SendPhoneCode(ctx context.Context, phone, code string) error {
	return p.publish(ctx, MailJob{Kind: MailKindPhoneCode, To: phone, Code: code})
}

func (p *rabbitMailPublisher) publish(ctx context.Context, job MailJob) error {
	job.QueuedAt = time.Now().UTC()
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal mail job: %w", err)
	}

	ch, err := p.conn.Channel()
	if err != nil {
		p.logger.Error("Failed to open channel for publishing", zap.Error(err))
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	err = ch.PublishWithContext(ctx,
		"",          // default exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    job.QueuedAt,
			Type:         job.Kind,
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish mail job", zap.String("kind", job.Kind), zap.Error(err))
		return fmt.Errorf("failed to publish mail job: %w", err)
	}
	p.logger.Debug("Mail job published", zap.String("kind", job.Kind))
	return nil
}

func buildLink(base, path, token string) string {
	return base + path + "?" + url.Values{"token": {token}}.Encode()
}
