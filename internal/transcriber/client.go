package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// TranscriptClient fetches the caption track for a YouTube video via the
// timedtext endpoint. The base URL is parameterized so tests can point it
// at a local server.
type TranscriptClient struct {
	baseURL string
	http    *http.Client
}

func NewTranscriptClient(baseURL string) *TranscriptClient {
	return &TranscriptClient{baseURL: baseURL, http: &http.Client{Timeout: 30 * time.Second}}
}

type timedTextEvent struct {
	Segs []struct {
		Utf8 string `json:"utf8"`
	} `json:"segs"`
}

type timedTextDoc struct {
	Events []timedTextEvent `json:"events"`
}

// Transcript returns the full transcript text for videoID in document
// order: the segments of each caption event are concatenated into one line,
// and the non-empty lines are joined with newlines.
func (c *TranscriptClient) Transcript(ctx context.Context, videoID string) (string, error) {
	url := fmt.Sprintf("%s/api/timedtext?lang=en&v=%s&fmt=json3", c.baseURL, videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("transcriber: request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcriber: do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcriber: transcript status %d", resp.StatusCode)
	}

	var doc timedTextDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("transcriber: decode: %w", err)
	}

	var lines []string
	for _, ev := range doc.Events {
		var b strings.Builder
		for _, seg := range ev.Segs {
			b.WriteString(seg.Utf8)
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("transcriber: empty transcript")
	}
	return strings.Join(lines, "\n"), nil
}

// MetadataClient fetches title/description/thumbnail for a video id via
// the YouTube Data API v3 videos.list endpoint.
type MetadataClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewMetadataClient(baseURL, apiKey string) *MetadataClient {
	return &MetadataClient{baseURL: baseURL, apiKey: apiKey, http: &http.Client{Timeout: 15 * time.Second}}
}

// VideoDetails is the subset of video metadata the pipeline carries.
type VideoDetails struct {
	Title       string
	Description string
	ImageURL    string
}

type videosListResponse struct {
	Items []struct {
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Thumbnails  struct {
				Standard struct {
					URL string `json:"url"`
				} `json:"standard"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

func (c *MetadataClient) Details(ctx context.Context, videoID string) (VideoDetails, error) {
	url := fmt.Sprintf("%s/videos?part=snippet&id=%s&key=%s", c.baseURL, videoID, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return VideoDetails{}, fmt.Errorf("transcriber: metadata request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return VideoDetails{}, fmt.Errorf("transcriber: metadata do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return VideoDetails{}, fmt.Errorf("transcriber: metadata status %d", resp.StatusCode)
	}

	var out videosListResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return VideoDetails{}, fmt.Errorf("transcriber: metadata decode: %w", err)
	}
	if len(out.Items) == 0 {
		return VideoDetails{}, fmt.Errorf("transcriber: video not found")
	}

	snippet := out.Items[0].Snippet
	imageURL := snippet.Thumbnails.Standard.URL
	if imageURL == "" {
		imageURL = "No Image Available"
	}
	return VideoDetails{Title: snippet.Title, Description: snippet.Description, ImageURL: imageURL}, nil
}
