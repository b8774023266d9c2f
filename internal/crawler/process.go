package crawler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/baechuer/contentpipe/internal/model"
	"github.com/baechuer/contentpipe/internal/stage"
)

// fetcher is the narrow surface Process needs from a *BrowserClient.
type fetcher interface {
	Crawl(ctx context.Context, url string) (string, Metadata, error)
}

// cleaner is the narrow surface Process needs from a *Cleaner.
type cleaner interface {
	Clean(ctx context.Context, markdown string) string
}

// notifier is the narrow surface Process needs from notify.Publisher.
type notifier interface {
	Info(ctx context.Context, url string, status model.Status, source *model.SourceRef, message string) error
}

// NewProcess builds the Crawler stage's process function: fetch, clean,
// and attach the page content and metadata, then forward to the summary
// queue.
func NewProcess(fetch fetcher, clean cleaner, notify notifier, summaryQueue string, lg zerolog.Logger) stage.ProcessFunc {
	return func(ctx context.Context, body []byte) (stage.Result, error) {
		var content model.Content
		if err := json.Unmarshal(body, &content); err != nil {
			return stage.Result{}, fmt.Errorf("crawler: decode: %w", err)
		}
		if content.URL == "" {
			return stage.Result{}, fmt.Errorf("crawler: empty url")
		}
		if content.Status != model.StatusClassified {
			return stage.Result{}, stage.NewPermanent(fmt.Sprintf("crawler: expected status %q, got %q", model.StatusClassified, content.Status))
		}

		raw, meta, err := fetch.Crawl(ctx, content.URL)
		if err != nil {
			return stage.Result{}, fmt.Errorf("crawler: crawl: %w", err)
		}
		if raw == "" {
			if notifyErr := notify.Info(ctx, content.URL, model.StatusClassified, content.Source, "Could not retrieve content from the URL."); notifyErr != nil {
				lg.Warn().Err(notifyErr).Msg("notify failed for empty crawl result")
			}
			return stage.Result{}, stage.NewBenign("crawler: empty page content")
		}

		content.RawContent = clean.Clean(ctx, raw)
		content.Title = meta.Title
		content.Description = meta.Description
		content.ImageURL = meta.ImageURL
		content.CanonicalURL = meta.CanonicalURL
		content.Status = model.StatusCrawled

		out, err := json.Marshal(content)
		if err != nil {
			return stage.Result{}, fmt.Errorf("crawler: marshal content: %w", err)
		}
		return stage.Forward(summaryQueue, out), nil
	}
}
