package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/baechuer/contentpipe/internal/model"
)

// unwrapFirstCodeBlock deletes the first fenced code block found anywhere
// in a model response. Kept separate from the crawler's fence unwrap on
// purpose: the two stages clean different kinds of model output and are
// not meant to share a helper.
var codeBlockPattern = regexp.MustCompile(`(?s)` + "```" + `.*?` + "```")

func unwrapFirstCodeBlock(text string) string {
	loc := codeBlockPattern.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return strings.TrimSpace(text[:loc[0]] + text[loc[1]:])
}

// Summarizer produces a summary with a primary model, falling back to a
// secondary model, and finally to an empty string if both fail; a missing
// summary is not fatal to the message.
type Summarizer struct {
	primary  *geminiSummaryClient
	fallback *openAISummaryClient
}

func NewSummarizer(geminiBaseURL, geminiAPIKey, openAIBaseURL, openAIAPIKey string) *Summarizer {
	return &Summarizer{
		primary:  newGeminiSummaryClient(geminiBaseURL, geminiAPIKey),
		fallback: newOpenAISummaryClient(openAIBaseURL, openAIAPIKey),
	}
}

func (s *Summarizer) Summarize(ctx context.Context, content model.Content) string {
	prompt := systemPrompt(content.ContentType)

	summary, err := s.primary.generate(ctx, prompt, content.RawContent)
	if err != nil {
		summary, err = s.fallback.generate(ctx, prompt, content.RawContent)
		if err != nil {
			return ""
		}
	}
	return unwrapFirstCodeBlock(summary)
}

type geminiSummaryClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newGeminiSummaryClient(baseURL, apiKey string) *geminiSummaryClient {
	return &geminiSummaryClient{baseURL: baseURL, apiKey: apiKey, http: &http.Client{Timeout: 60 * time.Second}}
}

type geminiSummaryPart struct {
	Text string `json:"text"`
}

type geminiSummaryContent struct {
	Role  string              `json:"role,omitempty"`
	Parts []geminiSummaryPart `json:"parts"`
}

type geminiSummaryRequest struct {
	SystemInstruction geminiSummaryContent   `json:"system_instruction"`
	Contents          []geminiSummaryContent `json:"contents"`
}

type geminiSummaryResponse struct {
	Candidates []struct {
		Content geminiSummaryContent `json:"content"`
	} `json:"candidates"`
}

func (g *geminiSummaryClient) generate(ctx context.Context, prompt, input string) (string, error) {
	reqBody, err := json.Marshal(geminiSummaryRequest{
		SystemInstruction: geminiSummaryContent{Parts: []geminiSummaryPart{{Text: prompt}}},
		Contents:          []geminiSummaryContent{{Role: "user", Parts: []geminiSummaryPart{{Text: input}}}},
	})
	if err != nil {
		return "", fmt.Errorf("summarizer: marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/gemini-1.5-flash:generateContent?key=%s", g.baseURL, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("summarizer: gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarizer: gemini do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("summarizer: gemini status %d", resp.StatusCode)
	}

	var out geminiSummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("summarizer: gemini decode: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("summarizer: gemini empty response")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

type openAISummaryClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newOpenAISummaryClient(baseURL, apiKey string) *openAISummaryClient {
	return &openAISummaryClient{baseURL: baseURL, apiKey: apiKey, http: &http.Client{Timeout: 60 * time.Second}}
}

type summaryChatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type summaryChatRequest struct {
	Model    string            `json:"model"`
	Messages []summaryChatMsg  `json:"messages"`
}

type summaryChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *openAISummaryClient) generate(ctx context.Context, prompt, input string) (string, error) {
	reqBody, err := json.Marshal(summaryChatRequest{
		Model: "gpt-4o-mini",
		Messages: []summaryChatMsg{
			{Role: "system", Content: prompt},
			{Role: "user", Content: input},
		},
	})
	if err != nil {
		return "", fmt.Errorf("summarizer: marshal openai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("summarizer: openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarizer: openai do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("summarizer: openai status %d", resp.StatusCode)
	}

	var out summaryChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("summarizer: openai decode: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("summarizer: openai empty completion")
	}
	return out.Choices[0].Message.Content, nil
}
