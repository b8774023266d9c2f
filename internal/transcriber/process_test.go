package transcriber

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/contentpipe/internal/model"
	"github.com/baechuer/contentpipe/internal/stage"
)

type fakeTranscript struct {
	text string
	err  error
}

func (f *fakeTranscript) Transcript(ctx context.Context, videoID string) (string, error) {
	return f.text, f.err
}

type fakeMetadata struct {
	details VideoDetails
	err     error
}

func (f *fakeMetadata) Details(ctx context.Context, videoID string) (VideoDetails, error) {
	return f.details, f.err
}

func TestProcess_TranscribesAndRoutesToSummary(t *testing.T) {
	transcript := &fakeTranscript{text: "hello world"}
	metadata := &fakeMetadata{details: VideoDetails{Title: "title", Description: "desc", ImageURL: "img"}}
	process := NewProcess(transcript, metadata, "summary_queue", zerolog.Nop())

	body, err := json.Marshal(model.Content{ContentID: "1", URL: "https://www.youtube.com/watch?v=abc123XYZ90", Status: model.StatusClassified})
	require.NoError(t, err)

	result, err := process(context.Background(), body)
	require.NoError(t, err)
	require.Equal(t, "summary_queue", result.RoutingKey)

	var out model.Content
	require.NoError(t, json.Unmarshal(result.Payload, &out))
	require.Equal(t, model.StatusTranscribed, out.Status)
	require.Equal(t, "hello world", out.RawContent)
	require.Equal(t, "https://www.youtube.com/watch?v=abc123XYZ90", out.URL)
	require.Equal(t, "title", out.Title)
}

func TestProcess_InvalidURL_Fails(t *testing.T) {
	process := NewProcess(&fakeTranscript{}, &fakeMetadata{}, "summary_queue", zerolog.Nop())

	body, err := json.Marshal(model.Content{ContentID: "1", URL: "https://example.com/not-youtube", Status: model.StatusClassified})
	require.NoError(t, err)

	_, err = process(context.Background(), body)
	require.Error(t, err)
}

func TestProcess_MetadataFailure_Fails(t *testing.T) {
	transcript := &fakeTranscript{text: "hello world"}
	metadata := &fakeMetadata{err: assertError("boom")}
	process := NewProcess(transcript, metadata, "summary_queue", zerolog.Nop())

	body, err := json.Marshal(model.Content{ContentID: "1", URL: "https://www.youtube.com/watch?v=abc123XYZ90", Status: model.StatusClassified})
	require.NoError(t, err)

	_, err = process(context.Background(), body)
	require.Error(t, err)
}

func TestProcess_WrongPredecessorStatus_IsPermanent(t *testing.T) {
	process := NewProcess(&fakeTranscript{text: "hello"}, &fakeMetadata{}, "summary_queue", zerolog.Nop())

	body, err := json.Marshal(model.Content{ContentID: "1", URL: "https://www.youtube.com/watch?v=abc123XYZ90", Status: model.StatusSubmitted})
	require.NoError(t, err)

	_, err = process(context.Background(), body)
	require.Error(t, err)
	require.True(t, stage.IsPermanent(err))
}

type assertError string

func (e assertError) Error() string { return string(e) }
