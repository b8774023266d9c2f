// Package crawler implements the Crawler stage: fetch a URL via a
// headless-browser RPC, clean the resulting markdown with a
// primary/secondary LLM, and forward to the summary queue.
package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"
)

// BrowserClient wraps the headless-browser fetch RPC: connect 10s, read
// 60s, bounded overall by the caller's context (the stage's
// processing_timeout).
type BrowserClient struct {
	baseURL string
	http    *http.Client
}

func NewBrowserClient(baseURL string) *BrowserClient {
	return &BrowserClient{
		baseURL: baseURL,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
			},
			Timeout: 60 * time.Second,
		},
	}
}

// Metadata is the page metadata the crawl RPC returns alongside markdown.
type Metadata struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	ImageURL     string `json:"image_url"`
	CanonicalURL string `json:"canonical_url"`
}

type crawlRequest struct {
	URL string `json:"url"`
}

type crawlResponse struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Crawl fetches url and returns raw markdown plus page metadata.
func (c *BrowserClient) Crawl(ctx context.Context, url string) (string, Metadata, error) {
	body, err := json.Marshal(crawlRequest{URL: url})
	if err != nil {
		return "", Metadata{}, fmt.Errorf("crawler: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/crawl", bytes.NewReader(body))
	if err != nil {
		return "", Metadata{}, fmt.Errorf("crawler: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", Metadata{}, fmt.Errorf("crawler: do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", Metadata{}, fmt.Errorf("crawler: crawl service status %d", resp.StatusCode)
	}

	var out crawlResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", Metadata{}, fmt.Errorf("crawler: decode: %w", err)
	}
	return out.Content, out.Metadata, nil
}
