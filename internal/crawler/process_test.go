package crawler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/contentpipe/internal/model"
	"github.com/baechuer/contentpipe/internal/stage"
)

type fakeFetcher struct {
	raw  string
	meta Metadata
	err  error
}

func (f *fakeFetcher) Crawl(ctx context.Context, url string) (string, Metadata, error) {
	return f.raw, f.meta, f.err
}

type fakeCleaner struct {
	out string
}

func (f *fakeCleaner) Clean(ctx context.Context, markdown string) string { return f.out }

type fakeNotifier struct {
	infos []string
}

func (f *fakeNotifier) Info(ctx context.Context, url string, status model.Status, source *model.SourceRef, message string) error {
	f.infos = append(f.infos, message)
	return nil
}

func contentBody(t *testing.T, c model.Content) []byte {
	t.Helper()
	b, err := json.Marshal(c)
	require.NoError(t, err)
	return b
}

func TestProcess_ForwardsCleanedContent(t *testing.T) {
	fetch := &fakeFetcher{raw: "# raw markdown", meta: Metadata{Title: "t", CanonicalURL: "https://example.com/a"}}
	clean := &fakeCleaner{out: "cleaned"}
	process := NewProcess(fetch, clean, &fakeNotifier{}, "summary_queue", zerolog.Nop())

	result, err := process(context.Background(), contentBody(t, model.Content{ContentID: "1", URL: "https://example.com/a", Status: model.StatusClassified}))
	require.NoError(t, err)
	require.Equal(t, "summary_queue", result.RoutingKey)

	var out model.Content
	require.NoError(t, json.Unmarshal(result.Payload, &out))
	require.Equal(t, model.StatusCrawled, out.Status)
	require.Equal(t, "cleaned", out.RawContent)
	require.Equal(t, "t", out.Title)
}

func TestProcess_EmptyCrawlResult_IsBenign(t *testing.T) {
	fetch := &fakeFetcher{raw: ""}
	notif := &fakeNotifier{}
	process := NewProcess(fetch, &fakeCleaner{}, notif, "summary_queue", zerolog.Nop())

	_, err := process(context.Background(), contentBody(t, model.Content{ContentID: "1", URL: "https://example.com/a", Status: model.StatusClassified}))
	require.Error(t, err)
	require.True(t, stage.IsBenign(err))
	require.Len(t, notif.infos, 1)
}

func TestProcess_WrongPredecessorStatus_IsPermanent(t *testing.T) {
	fetch := &fakeFetcher{raw: "# raw markdown"}
	process := NewProcess(fetch, &fakeCleaner{}, &fakeNotifier{}, "summary_queue", zerolog.Nop())

	_, err := process(context.Background(), contentBody(t, model.Content{ContentID: "1", URL: "https://example.com/a", Status: model.StatusSubmitted}))
	require.Error(t, err)
	require.True(t, stage.IsPermanent(err))
}

func TestUnwrapOutermostCodeFence(t *testing.T) {
	require.Equal(t, "# Title\n\nbody text", unwrapOutermostCodeFence("```\n# Title\n\nbody text\n```"))
	require.Equal(t, "# Title\n\nbody text", unwrapOutermostCodeFence("```markdown\n# Title\n\nbody text\n```"))
	require.Equal(t, "no fence here", unwrapOutermostCodeFence("no fence here"))
	// Not wholly wrapped: a fenced block followed by trailing prose is left
	// untouched rather than having its contents discarded.
	notWrapped := "```\ncode\n```\nafter cleaning"
	require.Equal(t, notWrapped, unwrapOutermostCodeFence(notWrapped))
}
