package urlnorm

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// noRedirectClient simulates a dependency that never redirects, so CleanURL
// exercises only the canonicalisation rules under test.
type noRedirectClient struct{}

func (noRedirectClient) Do(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: 200,
		Body:       http.NoBody,
		Request:    req,
	}, nil
}

type erroringClient struct{}

func (erroringClient) Do(req *http.Request) (*http.Response, error) {
	return nil, errFake
}

var errFake = &fakeErr{}

type fakeErr struct{}

func (*fakeErr) Error() string { return "fake network error" }

func TestCleanURL_StripsTrackingParamsAndFragment(t *testing.T) {
	got := cleanURLWith(noRedirectClient{}, "HTTPS://Example.COM/Path/?utm_source=x&utm_medium=y&utm_campaign=z&utm_term=t&utm_content=c&ref=r&keep=1#section")
	require.Equal(t, "https://example.com/Path?keep=1", got)
}

func TestCleanURL_TrailingSlashStripped(t *testing.T) {
	got := cleanURLWith(noRedirectClient{}, "https://example.com/a/b/")
	require.Equal(t, "https://example.com/a/b", got)
}

func TestCleanURL_RootPathKeepsSlash(t *testing.T) {
	got := cleanURLWith(noRedirectClient{}, "https://example.com/")
	require.Equal(t, "https://example.com/", got)
}

func TestCleanURL_Idempotent(t *testing.T) {
	u := "HTTPS://Example.COM/a/?utm_source=x&ref=y#frag"
	once := cleanURLWith(noRedirectClient{}, u)
	twice := cleanURLWith(noRedirectClient{}, once)
	require.Equal(t, once, twice)
}

func TestCleanURL_OnFailureReturnsOriginal(t *testing.T) {
	u := "https://example.com/a?utm_source=x"
	got := cleanURLWith(erroringClient{}, u)
	require.Equal(t, u, got)
}

func TestCleanURL_UnparsableReturnsOriginal(t *testing.T) {
	u := "://not a url"
	got := CleanURL(u)
	require.Equal(t, u, got)
}
