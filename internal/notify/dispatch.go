package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/contentpipe/internal/model"
	"github.com/baechuer/contentpipe/internal/stage"
)

// DedupTTL bounds how long a (url, status, notification_type) tuple is
// remembered to suppress a duplicate send on redelivery.
const DedupTTL = 24 * time.Hour

// telegramSender is the narrow surface the dispatch table needs from a
// *TelegramClient, extracted so tests can inject a fake.
type telegramSender interface {
	Send(ctx context.Context, chatID, replyToMessageID int64, text string) (bool, error)
}

// NewNotifierProcess builds the Notifier stage's process function: a
// dispatch table keyed by the present field of SourceRef. Telegram is the
// only populated variant today; everything else falls through to the
// log-only sink.
func NewNotifierProcess(telegram telegramSender, idem IdempotencyStore, lg zerolog.Logger) stage.ProcessFunc {
	return func(ctx context.Context, body []byte) (stage.Result, error) {
		var msg model.NotificationMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return stage.Result{}, fmt.Errorf("notify: decode: %w", err)
		}

		key := dedupKey(msg)
		seen, err := idem.Seen(ctx, key)
		if err != nil {
			lg.Warn().Err(err).Msg("idempotency check failed, proceeding without dedup")
		} else if seen {
			return stage.Terminal(), nil
		}

		if err := dispatch(ctx, telegram, msg, lg); err != nil {
			return stage.Result{}, err
		}

		if err := idem.MarkSent(ctx, key, DedupTTL); err != nil {
			lg.Warn().Err(err).Msg("failed to record notification as sent")
		}
		return stage.Terminal(), nil
	}
}

func dedupKey(msg model.NotificationMessage) string {
	return fmt.Sprintf("notify:%s:%s:%s", msg.URL, msg.Status, msg.NotificationType)
}

// dispatch is the exhaustive-by-construction switch over SourceRef: add a
// case here whenever a new integration channel is introduced.
func dispatch(ctx context.Context, telegram telegramSender, msg model.NotificationMessage, lg zerolog.Logger) error {
	switch {
	case msg.Source != nil && msg.Source.Telegram != nil:
		ref := msg.Source.Telegram
		ok, err := telegram.Send(ctx, ref.ChatID, ref.MessageID, msg.Message)
		if err != nil {
			return err
		}
		if !ok {
			lg.Warn().Str("url", msg.URL).Msg("telegram rejected notification, not retrying")
		}
		return nil
	default:
		lg.Info().Str("url", msg.URL).Str("status", string(msg.Status)).Str("message", msg.Message).Msg("notification")
		return nil
	}
}
