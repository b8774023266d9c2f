package classifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/baechuer/contentpipe/internal/model"
	"github.com/baechuer/contentpipe/internal/stage"
)

// classifyModel is the narrow surface Process needs from a *ModelClient.
type classifyModel interface {
	Classify(ctx context.Context, input string) (model.ClassifiedContent, error)
}

// existenceChecker is the narrow surface Process needs from the content
// store client.
type existenceChecker interface {
	CheckURL(ctx context.Context, url string) (bool, error)
}

// notifier is the narrow surface Process needs from notify.Publisher.
type notifier interface {
	Info(ctx context.Context, url string, status model.Status, source *model.SourceRef, message string) error
}

// outputQueue is the closed routing table for ContentType: web_article,
// publication, and bookmark all crawl; youtube_video transcribes; unknown
// and anything else is fatal-benign.
func outputQueue(t model.ContentType) (queue string, ok bool) {
	switch t {
	case model.ContentTypeWebArticle, model.ContentTypePublication, model.ContentTypeBookmark:
		return "CRAWL", true
	case model.ContentTypeYouTubeVideo:
		return "TRANSCRIBE", true
	default:
		return "", false
	}
}

// NewProcess builds the Classifier stage's process function.
// crawlQueue/transcribeQueue are the concrete routing keys bound by the
// pipeline config; normalize is urlnorm.CleanURL in production.
func NewProcess(m classifyModel, store existenceChecker, notify notifier, normalize func(string) string, crawlQueue, transcribeQueue string, lg zerolog.Logger) stage.ProcessFunc {
	return func(ctx context.Context, body []byte) (stage.Result, error) {
		var submitted model.SubmittedContent
		if err := json.Unmarshal(body, &submitted); err != nil {
			return stage.Result{}, fmt.Errorf("classifier: decode: %w", err)
		}
		if submitted.Content == "" || len(submitted.Content) > 10000 {
			return stage.Result{}, fmt.Errorf("classifier: content length out of bounds")
		}

		classified, err := m.Classify(ctx, submitted.Content)
		if err != nil {
			return stage.Result{}, fmt.Errorf("classifier: classify: %w", err)
		}

		if classified.ContentType == model.ContentTypeUnknown || classified.URL == "" {
			if notifyErr := notify.Info(ctx, classified.URL, model.StatusSubmitted, submitted.Source, "Could not classify content."); notifyErr != nil {
				lg.Warn().Err(notifyErr).Msg("notify failed for unclassifiable content")
			}
			return stage.Result{}, stage.NewBenign("classifier: unclassifiable content")
		}

		normalizedURL := normalize(classified.URL)
		exists, err := store.CheckURL(ctx, normalizedURL)
		if err != nil {
			return stage.Result{}, fmt.Errorf("classifier: check_url: %w", err)
		}
		if exists {
			if notifyErr := notify.Info(ctx, normalizedURL, model.StatusClassified, submitted.Source, "URL already exists"); notifyErr != nil {
				lg.Warn().Err(notifyErr).Msg("notify failed for duplicate url")
			}
			return stage.Result{}, stage.NewBenign("classifier: url already exists")
		}

		queueKey, ok := outputQueue(classified.ContentType)
		if !ok {
			if notifyErr := notify.Info(ctx, normalizedURL, model.StatusSubmitted, submitted.Source, "Unsupported content type."); notifyErr != nil {
				lg.Warn().Err(notifyErr).Msg("notify failed for unsupported content type")
			}
			return stage.Result{}, stage.NewBenign("classifier: unsupported content type")
		}

		content := model.Content{
			ContentID:   uuid.NewString(),
			URL:         normalizedURL,
			ContentType: classified.ContentType,
			Status:      model.StatusClassified,
			Source:      submitted.Source,
		}

		var routingKey string
		switch queueKey {
		case "CRAWL":
			routingKey = crawlQueue
		case "TRANSCRIBE":
			routingKey = transcribeQueue
		}

		out, err := json.Marshal(content)
		if err != nil {
			return stage.Result{}, fmt.Errorf("classifier: marshal content: %w", err)
		}
		return stage.Forward(routingKey, out), nil
	}
}
