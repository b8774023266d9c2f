package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// cleanSystemPrompt instructs the model to strip navigation/header/footer
// chrome from crawled markdown while preserving links, images, and the
// original language.
const cleanSystemPrompt = `You clean markdown scraped from a web page. Strip navigation, headers, footers, and any other boilerplate that is not part of the article body. Keep the main content, its original language, and every image and link reference intact. Respond with markdown only, nothing else.`

// Cleaner cleans crawled markdown with a primary model, falling back to a
// secondary model on failure, and finally to the original markdown if both
// fail.
type Cleaner struct {
	primary  *geminiClient
	fallback *openAIClient
}

func NewCleaner(geminiBaseURL, geminiAPIKey, openAIBaseURL, openAIAPIKey string) *Cleaner {
	return &Cleaner{
		primary:  newGeminiClient(geminiBaseURL, geminiAPIKey),
		fallback: newOpenAIClient(openAIBaseURL, openAIAPIKey),
	}
}

func (c *Cleaner) Clean(ctx context.Context, markdown string) string {
	cleaned, err := c.primary.generate(ctx, markdown)
	if err != nil {
		cleaned, err = c.fallback.generate(ctx, markdown)
		if err != nil {
			return markdown
		}
	}
	return unwrapOutermostCodeFence(cleaned)
}

// unwrapOutermostCodeFence strips a single outermost code fence when the
// whole cleaned response is wrapped in one, keeping the inner text intact.
// A model asked to "respond with markdown only" will sometimes still wrap
// the entire answer in a ``` fence; this undoes exactly that, and nothing
// else. It is not the same transform as the summarizer's
// unwrapFirstCodeBlock, which deletes the first fenced block out of a
// larger response; the two are kept as separate helpers on purpose.
var outermostFencePattern = regexp.MustCompile(`(?s)^` + "```" + `[a-zA-Z0-9_+-]*\n?(.*?)\n?` + "```" + `$`)

func unwrapOutermostCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if m := outermostFencePattern.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// geminiClient is a minimal generateContent RPC client.
type geminiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newGeminiClient(baseURL, apiKey string) *geminiClient {
	return &geminiClient{baseURL: baseURL, apiKey: apiKey, http: &http.Client{Timeout: 45 * time.Second}}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction geminiContent   `json:"system_instruction"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *geminiClient) generate(ctx context.Context, input string) (string, error) {
	reqBody, err := json.Marshal(geminiRequest{
		SystemInstruction: geminiContent{Parts: []geminiPart{{Text: cleanSystemPrompt}}},
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: input}}}},
	})
	if err != nil {
		return "", fmt.Errorf("crawler: marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/gemini-1.5-flash-002:generateContent?key=%s", g.baseURL, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("crawler: gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("crawler: gemini do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("crawler: gemini status %d", resp.StatusCode)
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("crawler: gemini decode: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("crawler: gemini empty response")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

// openAIClient is a minimal chat-completions fallback client.
type openAIClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newOpenAIClient(baseURL, apiKey string) *openAIClient {
	return &openAIClient{baseURL: baseURL, apiKey: apiKey, http: &http.Client{Timeout: 45 * time.Second}}
}

type chatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionReq struct {
	Model    string    `json:"model"`
	Messages []chatMsg `json:"messages"`
}

type chatCompletionResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *openAIClient) generate(ctx context.Context, input string) (string, error) {
	reqBody, err := json.Marshal(chatCompletionReq{
		Model: "gpt-4o-mini",
		Messages: []chatMsg{
			{Role: "system", Content: cleanSystemPrompt},
			{Role: "user", Content: input},
		},
	})
	if err != nil {
		return "", fmt.Errorf("crawler: marshal openai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("crawler: openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("crawler: openai do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("crawler: openai status %d", resp.StatusCode)
	}

	var out chatCompletionResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("crawler: openai decode: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("crawler: openai empty completion")
	}
	return out.Choices[0].Message.Content, nil
}
