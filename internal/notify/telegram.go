package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TelegramClient POSTs sendMessage requests to the Telegram bot API.
type TelegramClient struct {
	token string
	http  *http.Client
}

func NewTelegramClient(token string) *TelegramClient {
	return &TelegramClient{token: token, http: &http.Client{Timeout: 10 * time.Second}}
}

type telegramSendMessageRequest struct {
	ChatID             int64  `json:"chat_id"`
	ReplyToMessageID   int64  `json:"reply_to_message_id,omitempty"`
	Text               string `json:"text"`
}

// Send posts the message. A non-2xx response is reported via ok=false with
// a nil error: it is logged, not retried. A network-level failure to reach
// Telegram at all is returned as an error
// so the kernel's normal retry-then-DLQ path applies (it is a transient
// dependency failure, distinct from an application-level rejection).
func (c *TelegramClient) Send(ctx context.Context, chatID, replyToMessageID int64, text string) (ok bool, err error) {
	body, err := json.Marshal(telegramSendMessageRequest{ChatID: chatID, ReplyToMessageID: replyToMessageID, Text: text})
	if err != nil {
		return false, fmt.Errorf("telegram: marshal: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("telegram: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("telegram: do: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}
