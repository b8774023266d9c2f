package classifier

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/contentpipe/internal/model"
	"github.com/baechuer/contentpipe/internal/stage"
)

type fakeModel struct {
	out model.ClassifiedContent
	err error
}

func (f *fakeModel) Classify(ctx context.Context, input string) (model.ClassifiedContent, error) {
	return f.out, f.err
}

type fakeStore struct {
	exists bool
	err    error
}

func (f *fakeStore) CheckURL(ctx context.Context, url string) (bool, error) { return f.exists, f.err }

type fakeNotifier struct {
	infos []string
}

func (f *fakeNotifier) Info(ctx context.Context, url string, status model.Status, source *model.SourceRef, message string) error {
	f.infos = append(f.infos, message)
	return nil
}

// testNormalize stands in for urlnorm.CleanURL without touching the
// network.
func testNormalize(u string) string { return strings.ToLower(u) }

func submittedBody(t *testing.T, content string) []byte {
	t.Helper()
	b, err := json.Marshal(model.SubmittedContent{Content: content})
	require.NoError(t, err)
	return b
}

func TestProcess_WebArticle_RoutesToCrawl(t *testing.T) {
	m := &fakeModel{out: model.ClassifiedContent{ContentType: model.ContentTypeWebArticle, URL: "https://Example.com/a"}}
	store := &fakeStore{}
	notif := &fakeNotifier{}
	process := NewProcess(m, store, notif, testNormalize, "crawl_queue", "transcribe_queue", zerolog.Nop())

	result, err := process(context.Background(), submittedBody(t, "https://example.com/a"))
	require.NoError(t, err)
	require.Equal(t, "crawl_queue", result.RoutingKey)

	var content model.Content
	require.NoError(t, json.Unmarshal(result.Payload, &content))
	require.Equal(t, model.StatusClassified, content.Status)
	require.NotEmpty(t, content.ContentID)
	require.Equal(t, "https://example.com/a", content.URL)
}

func TestProcess_YouTube_RoutesToTranscribe(t *testing.T) {
	m := &fakeModel{out: model.ClassifiedContent{ContentType: model.ContentTypeYouTubeVideo, URL: "https://www.youtube.com/watch?v=x"}}
	process := NewProcess(m, &fakeStore{}, &fakeNotifier{}, testNormalize, "crawl_queue", "transcribe_queue", zerolog.Nop())

	result, err := process(context.Background(), submittedBody(t, "https://www.youtube.com/watch?v=x"))
	require.NoError(t, err)
	require.Equal(t, "transcribe_queue", result.RoutingKey)
}

func TestProcess_Unknown_IsBenign(t *testing.T) {
	m := &fakeModel{out: model.ClassifiedContent{ContentType: model.ContentTypeUnknown}}
	notif := &fakeNotifier{}
	process := NewProcess(m, &fakeStore{}, notif, testNormalize, "crawl_queue", "transcribe_queue", zerolog.Nop())

	_, err := process(context.Background(), submittedBody(t, "hello"))
	require.Error(t, err)
	require.True(t, stage.IsBenign(err))
	require.Len(t, notif.infos, 1)
}

func TestProcess_DuplicateURL_IsBenign(t *testing.T) {
	m := &fakeModel{out: model.ClassifiedContent{ContentType: model.ContentTypeWebArticle, URL: "https://example.com/a"}}
	store := &fakeStore{exists: true}
	notif := &fakeNotifier{}
	process := NewProcess(m, store, notif, testNormalize, "crawl_queue", "transcribe_queue", zerolog.Nop())

	_, err := process(context.Background(), submittedBody(t, "https://example.com/a"))
	require.Error(t, err)
	require.True(t, stage.IsBenign(err))
	require.Equal(t, []string{"URL already exists"}, notif.infos)
}

// Every enumerated content type must be handled by the routing table:
// either routed to a queue or explicitly rejected.
func TestOutputQueue_HandlesEveryContentType(t *testing.T) {
	routed := 0
	for _, ct := range model.AllContentTypes {
		if _, ok := outputQueue(ct); ok {
			routed++
		}
	}
	require.Equal(t, 4, routed, "all types except unknown must route somewhere")
	_, ok := outputQueue(model.ContentTypeUnknown)
	require.False(t, ok)
}
