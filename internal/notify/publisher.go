// Package notify implements the notifier fan-out: a thin publisher every
// stage uses to emit progress notifications without
// waiting for end-user transport delivery, and the Notifier stage itself,
// which dispatches by SourceRef to a transport-specific backend.
package notify

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/baechuer/contentpipe/internal/model"
)

// sessionPublisher is the narrow surface Publisher needs from a
// *broker.Session — kept as an interface so stages can be unit tested
// without dialing a broker.
type sessionPublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte, headers amqp.Table) error
	PublishJSON(ctx context.Context, routingKey string, v any, headers amqp.Table) error
}

// Publisher emits NotificationMessage envelopes onto the notify queue. It
// is a broker publish under the hood — the publishing stage never blocks on
// the end-user transport (Telegram, etc.); that happens later, in the
// Notifier stage's own consume loop.
type Publisher struct {
	sess  sessionPublisher
	queue string
}

func NewPublisher(sess sessionPublisher, notifyQueue string) *Publisher {
	return &Publisher{sess: sess, queue: notifyQueue}
}

func (p *Publisher) Info(ctx context.Context, url string, status model.Status, source *model.SourceRef, message string) error {
	return p.publish(ctx, model.NotificationMessage{
		URL: url, Status: status, NotificationType: model.NotificationInfo, Source: source, Message: message,
	})
}

func (p *Publisher) Error(ctx context.Context, url string, status model.Status, source *model.SourceRef, message string) error {
	return p.publish(ctx, model.NotificationMessage{
		URL: url, Status: status, NotificationType: model.NotificationError, Source: source, Message: message,
	})
}

func (p *Publisher) publish(ctx context.Context, msg model.NotificationMessage) error {
	return p.sess.PublishJSON(ctx, p.queue, msg, nil)
}
