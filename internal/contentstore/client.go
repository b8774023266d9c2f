// Package contentstore wraps the content-store RPC contract: URL
// existence check and insert-on-new upsert.
package contentstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/baechuer/contentpipe/internal/model"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type checkURLRequest struct {
	URL string `json:"url"`
}

type checkURLResponse struct {
	Exists bool `json:"exists"`
}

// CheckURL reports whether url already has a record in the store.
func (c *Client) CheckURL(ctx context.Context, url string) (bool, error) {
	body, err := json.Marshal(checkURLRequest{URL: url})
	if err != nil {
		return false, fmt.Errorf("contentstore: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/contents/check_url", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("contentstore: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("contentstore: do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("contentstore: check_url status %d", resp.StatusCode)
	}

	var out checkURLResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("contentstore: decode: %w", err)
	}
	return out.Exists, nil
}

// InsertContent is the request body the content-store insert endpoint
// accepts — a superset of Content tailored to the insert wire contract.
type InsertContent struct {
	URL         string           `json:"url"`
	ContentType model.ContentType `json:"content_type"`
	Title       string           `json:"title,omitempty"`
	RawContent  string           `json:"raw_content,omitempty"`
	Description string           `json:"description,omitempty"`
	ImageURL    string           `json:"image_url,omitempty"`
	Summary     string           `json:"summary,omitempty"`
	Metadata    *model.ContentMetadata `json:"metadata,omitempty"`
	ContentID   string           `json:"content_id,omitempty"`
}

// FromContent builds an InsertContent from the canonical Content record.
func FromContent(c model.Content) InsertContent {
	var meta *model.ContentMetadata
	if c.CanonicalURL != "" || len(c.Keywords) > 0 {
		meta = &model.ContentMetadata{CanonicalURL: c.CanonicalURL, Keywords: c.Keywords}
	}
	return InsertContent{
		URL:         c.URL,
		ContentType: c.ContentType,
		Title:       c.Title,
		RawContent:  c.RawContent,
		Description: c.Description,
		ImageURL:    c.ImageURL,
		Summary:     c.Summary,
		Metadata:    meta,
		ContentID:   c.ContentID,
	}
}

// Insert upserts a record. The store is treated as insert-on-new,
// skip-on-existing; callers check CheckURL first.
func (c *Client) Insert(ctx context.Context, in InsertContent) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("contentstore: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/contents", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("contentstore: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contentstore: do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("contentstore: insert status %d", resp.StatusCode)
	}
	return nil
}
