package transcriber

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/baechuer/contentpipe/internal/model"
	"github.com/baechuer/contentpipe/internal/stage"
)

// transcriptFetcher is the narrow surface Process needs from a
// *TranscriptClient.
type transcriptFetcher interface {
	Transcript(ctx context.Context, videoID string) (string, error)
}

// metadataFetcher is the narrow surface Process needs from a
// *MetadataClient.
type metadataFetcher interface {
	Details(ctx context.Context, videoID string) (VideoDetails, error)
}

// NewProcess builds the Transcriber stage's process function. Both the
// transcript and the metadata call are required; either failure is fatal
// to the message, so there is no partial-success path here.
func NewProcess(transcript transcriptFetcher, metadata metadataFetcher, summaryQueue string, lg zerolog.Logger) stage.ProcessFunc {
	return func(ctx context.Context, body []byte) (stage.Result, error) {
		var content model.Content
		if err := json.Unmarshal(body, &content); err != nil {
			return stage.Result{}, fmt.Errorf("transcriber: decode: %w", err)
		}
		if content.Status != model.StatusClassified {
			return stage.Result{}, stage.NewPermanent(fmt.Sprintf("transcriber: expected status %q, got %q", model.StatusClassified, content.Status))
		}

		videoID, ok := ExtractVideoID(content.URL)
		if !ok {
			return stage.Result{}, fmt.Errorf("transcriber: could not extract video id from %q", content.URL)
		}

		text, err := transcript.Transcript(ctx, videoID)
		if err != nil {
			return stage.Result{}, fmt.Errorf("transcriber: transcript: %w", err)
		}

		details, err := metadata.Details(ctx, videoID)
		if err != nil {
			return stage.Result{}, fmt.Errorf("transcriber: metadata: %w", err)
		}

		content.URL = CanonicalWatchURL(videoID)
		content.RawContent = text
		content.ContentType = model.ContentTypeYouTubeVideo
		content.Title = details.Title
		content.Description = details.Description
		content.ImageURL = details.ImageURL
		content.Status = model.StatusTranscribed

		out, err := json.Marshal(content)
		if err != nil {
			return stage.Result{}, fmt.Errorf("transcriber: marshal content: %w", err)
		}
		return stage.Forward(summaryQueue, out), nil
	}
}
