package embedder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/baechuer/contentpipe/internal/model"
	"github.com/baechuer/contentpipe/internal/stage"
	"github.com/baechuer/contentpipe/internal/vectorstore"
)

// documentAdder is the narrow surface Process needs from
// *vectorstore.Client.
type documentAdder interface {
	AddDocuments(ctx context.Context, collection string, docs []vectorstore.Document) error
}

// notifier is the narrow surface Process needs from notify.Publisher.
type notifier interface {
	Info(ctx context.Context, url string, status model.Status, source *model.SourceRef, message string) error
}

// NewProcess builds the Embedder stage's process function: chunk
// raw_content and summary, persist both into the fixed collection,
// notify, and terminate the pipeline.
func NewProcess(store documentAdder, notify notifier, collection string, lg zerolog.Logger) stage.ProcessFunc {
	return func(ctx context.Context, body []byte) (stage.Result, error) {
		var content model.Content
		if err := json.Unmarshal(body, &content); err != nil {
			return stage.Result{}, fmt.Errorf("embedder: decode: %w", err)
		}
		if content.Status != model.StatusSummarized {
			return stage.Result{}, stage.NewPermanent(fmt.Sprintf("embedder: expected status %q, got %q", model.StatusSummarized, content.Status))
		}
		if content.RawContent == "" {
			return stage.Result{}, fmt.Errorf("embedder: empty raw_content")
		}

		var docs []vectorstore.Document
		for _, chunk := range Chunk(content.RawContent) {
			docs = append(docs, vectorstore.Document{Text: chunk, Source: content.URL, ContentID: content.ContentID})
		}
		if content.Summary != "" {
			for _, chunk := range Chunk(content.Summary) {
				docs = append(docs, vectorstore.Document{Text: chunk, Source: content.URL, ContentID: content.ContentID})
			}
		}

		if err := store.AddDocuments(ctx, collection, docs); err != nil {
			return stage.Result{}, fmt.Errorf("embedder: add_documents: %w", err)
		}
		content.Status = model.StatusEmbedded

		if notifyErr := notify.Info(ctx, content.URL, content.Status, content.Source, "Content has been processed successfully."); notifyErr != nil {
			lg.Warn().Err(notifyErr).Msg("notify failed after embed")
		}

		return stage.Terminal(), nil
	}
}
