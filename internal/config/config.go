// Package config loads one worker process's configuration: optional .env
// load, small getEnv helpers, one struct per process rather than a shared
// global.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting a single stage process needs. Not every field
// is used by every stage (e.g. a classifier process never reads
// YouTubeAPIKey) — one flat struct rather than per-stage config types,
// since every worker binary is built from the same cmd/worker entrypoint
// and selects its stage at runtime.
type Config struct {
	Stage string

	BrokerURL         string
	Exchange          string
	ProcessingTimeout time.Duration
	MaxRetries        int
	ConsumerTag       string

	ClassifyQueue   string
	CrawlQueue      string
	TranscribeQueue string
	SummaryQueue    string
	EmbeddingQueue  string
	NotifyQueue     string
	ErrorQueue      string

	ContentStoreURL string
	VectorStoreURL  string
	CrawlServiceURL string
	EmbedCollection string

	TelegramBotToken string

	OpenAIAPIKey    string
	OpenAIBaseURL   string
	GeminiAPIKey    string
	GeminiBaseURL   string
	YouTubeAPIKey   string
	YouTubeDataURL  string
	TranscriptURL   string

	NotifyDedupRedisURL string

	HealthAddr string
	LogFormat  string
}

// Load reads process configuration from the environment, optionally
// preceded by a .env file (error ignored: a missing .env is not fatal).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Stage: getEnv("STAGE", ""),

		BrokerURL:         strings.TrimSpace(os.Getenv("BROKER_URL")),
		Exchange:          getEnv("EXCHANGE", "contentpipe"),
		ProcessingTimeout: getDuration("PROCESSING_TIMEOUT", 300*time.Second),
		MaxRetries:        getInt("MAX_RETRIES", 5),
		ConsumerTag:       getEnv("CONSUMER_TAG", "contentpipe-worker"),

		ClassifyQueue:   getEnv("CLASSIFY_QUEUE", "classify_queue"),
		CrawlQueue:      getEnv("CRAWL_QUEUE", "crawl_queue"),
		TranscribeQueue: getEnv("TRANSCRIBE_QUEUE", "transcribe_queue"),
		SummaryQueue:    getEnv("SUMMARY_QUEUE", "summary_queue"),
		EmbeddingQueue:  getEnv("EMBEDDING_QUEUE", "embedding_queue"),
		NotifyQueue:     getEnv("NOTIFY_QUEUE", "notify_queue"),
		ErrorQueue:      getEnv("ERROR_QUEUE", "error_queue"),

		ContentStoreURL: strings.TrimRight(getEnv("CONTENT_STORE_URL", ""), "/"),
		VectorStoreURL:  strings.TrimRight(getEnv("VECTOR_STORE_URL", ""), "/"),
		CrawlServiceURL: strings.TrimRight(getEnv("CRAWL_SERVICE_URL", ""), "/"),
		EmbedCollection: getEnv("EMBED_COLLECTION", "contentpipe"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  strings.TrimRight(getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"), "/"),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL:  strings.TrimRight(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"), "/"),
		YouTubeAPIKey:  getEnv("YOUTUBE_API_KEY", ""),
		YouTubeDataURL: strings.TrimRight(getEnv("YOUTUBE_DATA_URL", "https://www.googleapis.com/youtube/v3"), "/"),
		TranscriptURL:  strings.TrimRight(getEnv("TRANSCRIPT_URL", "https://www.youtube.com"), "/"),

		NotifyDedupRedisURL: getEnv("NOTIFY_DEDUP_REDIS_URL", ""),

		HealthAddr: getEnv("HEALTH_ADDR", ":8080"),
		LogFormat:  getEnv("LOG_FORMAT", "console"),
	}

	if cfg.Stage == "" {
		return nil, fmt.Errorf("config: missing required env var STAGE")
	}
	if cfg.BrokerURL == "" {
		return nil, fmt.Errorf("config: missing required env var BROKER_URL")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
