// Package classifier implements the Classifier stage: classify submitted
// text/URLs, dedup against the content store, and route to the crawl or
// transcribe queue.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/baechuer/contentpipe/internal/model"
)

// ModelClient wraps the remote classification model: explicit timeout,
// context-aware request, status check, JSON decode. The base URL is passed
// in by the caller (OPENAI_BASE_URL in config, which defaults to the OpenAI
// API); requests go to its /chat/completions path.
type ModelClient struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func NewModelClient(baseURL, apiKey string) *ModelClient {
	return &ModelClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   "gpt-4o-mini",
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

const classifyPrompt = `Classify the given content as web_article, publication, youtube_video, bookmark, or unknown.

- Determine whether the content is text or a URL.
- If it's a URL, identify whether it links to a web article, a YouTube video, a scientific publication, or treat it as a general bookmark if nothing else fits.
- If the URL is ambiguous between web article and bookmark, default to bookmark unless clear evidence suggests otherwise.
- If the content is text with no URL, classify it as unknown.

Respond with a single JSON object: {"content_type": "...", "url": "..."}. Omit url (or use "") when there is none.`

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string                 `json:"model"`
	Messages       []chatMessage          `json:"messages"`
	ResponseFormat map[string]string      `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify asks the model to classify input text, returning the content
// type and, when present, the URL it identified.
func (c *ModelClient) Classify(ctx context.Context, input string) (model.ClassifiedContent, error) {
	reqBody, err := json.Marshal(chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: classifyPrompt},
			{Role: "user", Content: input},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return model.ClassifiedContent{}, fmt.Errorf("classifier: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return model.ClassifiedContent{}, fmt.Errorf("classifier: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return model.ClassifiedContent{}, fmt.Errorf("classifier: do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.ClassifiedContent{}, fmt.Errorf("classifier: model status %d", resp.StatusCode)
	}

	var out chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.ClassifiedContent{}, fmt.Errorf("classifier: decode envelope: %w", err)
	}
	if len(out.Choices) == 0 {
		return model.ClassifiedContent{}, fmt.Errorf("classifier: empty completion")
	}

	var classified model.ClassifiedContent
	if err := json.Unmarshal([]byte(out.Choices[0].Message.Content), &classified); err != nil {
		return model.ClassifiedContent{}, fmt.Errorf("classifier: decode content: %w", err)
	}
	return classified, nil
}
