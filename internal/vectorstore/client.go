// Package vectorstore wraps the vector-store RPC contract: add_documents
// against a fixed collection, each document carrying {source, content_id}
// metadata.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Document is one chunk plus the metadata every chunk in this system
// carries: the originating URL and the content_id it belongs to.
type Document struct {
	Text      string `json:"text"`
	Source    string `json:"source"`
	ContentID string `json:"content_id"`
}

type addDocumentsRequest struct {
	Collection string     `json:"collection"`
	Documents  []Document `json:"documents"`
}

// AddDocuments persists chunks under collection. The vector store computes
// and stores the embedding vectors server-side from the submitted text; the
// request body carries plain documents with metadata, not float vectors.
func (c *Client) AddDocuments(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	body, err := json.Marshal(addDocumentsRequest{Collection: collection, Documents: docs})
	if err != nil {
		return fmt.Errorf("vectorstore: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/add_documents", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("vectorstore: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("vectorstore: do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("vectorstore: add_documents status %d", resp.StatusCode)
	}
	return nil
}
