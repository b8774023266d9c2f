// Package model defines the message payloads that flow across the broker.
// The broker itself holds no schema; every invariant here is enforced by the
// stage that receives the envelope, not by the transport.
package model

// ContentType is a closed set; the classifier and the routing table in
// internal/classifier must handle every value explicitly.
type ContentType string

const (
	ContentTypeWebArticle   ContentType = "web_article"
	ContentTypePublication  ContentType = "publication"
	ContentTypeYouTubeVideo ContentType = "youtube_video"
	ContentTypeBookmark     ContentType = "bookmark"
	ContentTypeUnknown      ContentType = "unknown"
)

// AllContentTypes backs the exhaustiveness test in internal/classifier.
var AllContentTypes = []ContentType{
	ContentTypeWebArticle,
	ContentTypePublication,
	ContentTypeYouTubeVideo,
	ContentTypeBookmark,
	ContentTypeUnknown,
}

// Status is the content state machine: submitted -> classified ->
// {crawled, transcribed} -> summarized -> embedded. Rank gives the strict
// ordering a later stage must never regress.
type Status string

const (
	StatusSubmitted  Status = "submitted"
	StatusClassified Status = "classified"
	StatusCrawled    Status = "crawled"
	StatusTranscribed Status = "transcribed"
	StatusSummarized Status = "summarized"
	StatusEmbedded   Status = "embedded"
)

var statusRank = map[Status]int{
	StatusSubmitted:   0,
	StatusClassified:  1,
	StatusCrawled:     2,
	StatusTranscribed: 2,
	StatusSummarized:  3,
	StatusEmbedded:    4,
}

// Advances reports whether next is a strictly later state than s.
func (s Status) Advances(next Status) bool {
	cur, ok := statusRank[s]
	if !ok {
		return false
	}
	nxt, ok := statusRank[next]
	if !ok {
		return false
	}
	return nxt > cur
}

// SourceRef is a tagged variant over integration channels. It is carried
// verbatim end-to-end so the Notifier can address a reply. Telegram is the
// only populated variant today; the zero value means "no source" and routes
// the Notifier to its log-only sink.
type SourceRef struct {
	Telegram *TelegramRef `json:"telegram,omitempty"`
}

// IsZero reports whether no channel is populated.
func (s SourceRef) IsZero() bool {
	return s.Telegram == nil
}

type TelegramRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int64 `json:"message_id"`
}

// SubmittedContent is created once by the submission gateway and never
// mutated after.
type SubmittedContent struct {
	Content string     `json:"content"`
	Source  *SourceRef `json:"source,omitempty"`
}

// ClassifiedContent is internal to the Classifier; it is discarded after
// merge into Content.
type ClassifiedContent struct {
	ContentType ContentType `json:"content_type"`
	URL         string      `json:"url,omitempty"`
}

// ContentMetadata is the optional nested metadata block the content-store
// insert contract accepts.
type ContentMetadata struct {
	CanonicalURL string   `json:"canonical_url,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
}

// Content is the canonical record that flows through every downstream
// stage. content_id is assigned once by the Classifier and never changes.
type Content struct {
	ContentID    string      `json:"content_id"`
	URL          string      `json:"url"`
	ContentType  ContentType `json:"content_type"`
	Status       Status      `json:"status"`
	Title        string      `json:"title,omitempty"`
	Description  string      `json:"description,omitempty"`
	ImageURL     string      `json:"image_url,omitempty"`
	CanonicalURL string      `json:"canonical_url,omitempty"`
	Keywords     []string    `json:"keywords,omitempty"`
	RawContent   string      `json:"raw_content,omitempty"`
	Summary      string      `json:"summary,omitempty"`
	Source       *SourceRef  `json:"source,omitempty"`
}

// NotificationType is a closed set.
type NotificationType string

const (
	NotificationInfo  NotificationType = "info"
	NotificationError NotificationType = "error"
)

// NotificationMessage is published independently of the main pipeline on
// the dedicated notify queue.
type NotificationMessage struct {
	URL              string           `json:"url"`
	Status           Status           `json:"status"`
	NotificationType NotificationType `json:"notification_type"`
	Source           *SourceRef       `json:"source,omitempty"`
	Message          string           `json:"message"`
}

// Envelope headers, broker-level, never part of the JSON payload.
const (
	HeaderRetryCount = "x-retry-count"
	HeaderErrorReason = "x-error-reason"
)
