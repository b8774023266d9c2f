package summarizer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/baechuer/contentpipe/internal/contentstore"
	"github.com/baechuer/contentpipe/internal/model"
	"github.com/baechuer/contentpipe/internal/stage"
)

// summaryModel is the narrow surface Process needs from a *Summarizer.
type summaryModel interface {
	Summarize(ctx context.Context, content model.Content) string
}

// store is the narrow surface Process needs from contentstore.Client.
type store interface {
	CheckURL(ctx context.Context, url string) (bool, error)
	Insert(ctx context.Context, in contentstore.InsertContent) error
}

// notifier is the narrow surface Process needs from notify.Publisher.
type notifier interface {
	Info(ctx context.Context, url string, status model.Status, source *model.SourceRef, message string) error
}

// dedupKey picks the URL used as the dedup identity: canonical_url when
// set, otherwise normalize(url); YouTube videos keep their url as-is since
// it is already the canonical watch URL assigned by the Transcriber.
func dedupKey(c model.Content, normalize func(string) string) string {
	if c.ContentType == model.ContentTypeYouTubeVideo {
		return c.URL
	}
	if c.CanonicalURL != "" {
		return c.CanonicalURL
	}
	key := normalize(c.URL)
	if key == "" {
		return c.URL
	}
	return key
}

// NewProcess builds the Summarizer stage's process function. normalize is
// urlnorm.CleanURL in production.
func NewProcess(model_ summaryModel, s store, notify notifier, normalize func(string) string, embeddingQueue string, lg zerolog.Logger) stage.ProcessFunc {
	return func(ctx context.Context, body []byte) (stage.Result, error) {
		var content model.Content
		if err := json.Unmarshal(body, &content); err != nil {
			return stage.Result{}, fmt.Errorf("summarizer: decode: %w", err)
		}
		if content.Status != model.StatusCrawled && content.Status != model.StatusTranscribed {
			return stage.Result{}, stage.NewPermanent(fmt.Sprintf("summarizer: expected status %q or %q, got %q", model.StatusCrawled, model.StatusTranscribed, content.Status))
		}

		key := dedupKey(content, normalize)

		exists, err := s.CheckURL(ctx, key)
		if err != nil {
			return stage.Result{}, fmt.Errorf("summarizer: check_url: %w", err)
		}
		if exists {
			if notifyErr := notify.Info(ctx, content.URL, content.Status, content.Source, "URL already exists in the database."); notifyErr != nil {
				lg.Warn().Err(notifyErr).Msg("notify failed for duplicate url")
			}
			return stage.Result{}, stage.NewBenign("summarizer: url already exists")
		}

		content.Summary = model_.Summarize(ctx, content)
		content.Status = model.StatusSummarized

		if err := s.Insert(ctx, contentstore.FromContent(content)); err != nil {
			return stage.Result{}, fmt.Errorf("summarizer: insert: %w", err)
		}

		message := "Content has been summarized successfully.\n" + content.Summary
		if notifyErr := notify.Info(ctx, content.URL, content.Status, content.Source, message); notifyErr != nil {
			lg.Warn().Err(notifyErr).Msg("notify failed after summarize")
		}

		out, err := json.Marshal(content)
		if err != nil {
			return stage.Result{}, fmt.Errorf("summarizer: marshal content: %w", err)
		}
		return stage.Forward(embeddingQueue, out), nil
	}
}
