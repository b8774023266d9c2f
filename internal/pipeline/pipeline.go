// Package pipeline is the static registry binding a stage name to the
// stage.Config that implements it: a Go switch over a closed set of named
// builders, not a class hierarchy.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/baechuer/contentpipe/internal/broker"
	"github.com/baechuer/contentpipe/internal/classifier"
	"github.com/baechuer/contentpipe/internal/config"
	"github.com/baechuer/contentpipe/internal/contentstore"
	"github.com/baechuer/contentpipe/internal/crawler"
	"github.com/baechuer/contentpipe/internal/embedder"
	"github.com/baechuer/contentpipe/internal/notify"
	"github.com/baechuer/contentpipe/internal/stage"
	"github.com/baechuer/contentpipe/internal/summarizer"
	"github.com/baechuer/contentpipe/internal/transcriber"
	"github.com/baechuer/contentpipe/internal/urlnorm"
	"github.com/baechuer/contentpipe/internal/vectorstore"
)

// The stage names below are the closed set the process selector accepts.
const (
	StageClassifier  = "classifier"
	StageCrawler     = "crawler"
	StageTranscriber = "transcriber"
	StageSummarizer  = "summarizer"
	StageEmbedding   = "embedding"
	StageNotifier    = "notifier"
)

// Resources bundles the long-lived handles every stage builder may need:
// a dedicated broker session for side-channel notify publishes (separate
// from the kernel's own consume/forward session, since the notify
// publisher must stay usable even mid-reconnect of the main stage), and the
// shared notify.Publisher built on top of it.
type Resources struct {
	NotifySession *broker.Session
	Notify        *notify.Publisher
	Idempotency   notify.IdempotencyStore
}

// NewResources dials the dedicated notify-publish session and builds the
// idempotency store (Redis-backed when NOTIFY_DEDUP_REDIS_URL is set,
// no-op otherwise).
func NewResources(ctx context.Context, cfg *config.Config, lg zerolog.Logger) (*Resources, error) {
	sess, err := broker.Connect(ctx, cfg.BrokerURL, cfg.Exchange, lg)
	if err != nil {
		return nil, fmt.Errorf("pipeline: notify session connect: %w", err)
	}
	if err := sess.DeclareAndBind(cfg.NotifyQueue); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("pipeline: notify queue declare: %w", err)
	}

	var idem notify.IdempotencyStore = notify.NoopStore{}
	if cfg.NotifyDedupRedisURL != "" {
		store, err := notify.NewRedisStore(cfg.NotifyDedupRedisURL)
		if err != nil {
			_ = sess.Close()
			return nil, fmt.Errorf("pipeline: redis idempotency store: %w", err)
		}
		idem = store
	}

	return &Resources{
		NotifySession: sess,
		Notify:        notify.NewPublisher(sess, cfg.NotifyQueue),
		Idempotency:   idem,
	}, nil
}

func (r *Resources) Close() {
	if r.NotifySession != nil {
		_ = r.NotifySession.Close()
	}
}

// Build returns the stage.Config for name, wiring the concrete clients for
// that stage's dependencies from cfg. An unrecognised name is a fatal init
// error.
func Build(name string, cfg *config.Config, res *Resources, lg zerolog.Logger) (stage.Config, error) {
	switch name {
	case StageClassifier:
		return buildClassifier(cfg, res, lg), nil
	case StageCrawler:
		return buildCrawler(cfg, res, lg), nil
	case StageTranscriber:
		return buildTranscriber(cfg, res, lg), nil
	case StageSummarizer:
		return buildSummarizer(cfg, res, lg), nil
	case StageEmbedding:
		return buildEmbedder(cfg, res, lg), nil
	case StageNotifier:
		return buildNotifier(cfg, res, lg), nil
	default:
		return stage.Config{}, fmt.Errorf("pipeline: unknown stage %q", name)
	}
}

func buildClassifier(cfg *config.Config, res *Resources, lg zerolog.Logger) stage.Config {
	model := classifier.NewModelClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey)
	store := contentstore.New(cfg.ContentStoreURL)
	process := classifier.NewProcess(model, store, res.Notify, urlnorm.CleanURL, cfg.CrawlQueue, cfg.TranscribeQueue, lg)

	return stage.Config{
		Name:         StageClassifier,
		InputQueue:   cfg.ClassifyQueue,
		OutputQueues: []string{cfg.CrawlQueue, cfg.TranscribeQueue},
		ErrorQueue:   cfg.ErrorQueue,
		Process:      process,
		ErrorHook:    stage.SwallowBenign,
	}
}

func buildCrawler(cfg *config.Config, res *Resources, lg zerolog.Logger) stage.Config {
	fetch := crawler.NewBrowserClient(cfg.CrawlServiceURL)
	clean := crawler.NewCleaner(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIAPIKey)
	process := crawler.NewProcess(fetch, clean, res.Notify, cfg.SummaryQueue, lg)

	return stage.Config{
		Name:         StageCrawler,
		InputQueue:   cfg.CrawlQueue,
		OutputQueues: []string{cfg.SummaryQueue},
		ErrorQueue:   cfg.ErrorQueue,
		Process:      process,
		ErrorHook:    stage.SwallowBenign,
	}
}

func buildTranscriber(cfg *config.Config, res *Resources, lg zerolog.Logger) stage.Config {
	transcript := transcriber.NewTranscriptClient(cfg.TranscriptURL)
	metadata := transcriber.NewMetadataClient(cfg.YouTubeDataURL, cfg.YouTubeAPIKey)
	process := transcriber.NewProcess(transcript, metadata, cfg.SummaryQueue, lg)

	return stage.Config{
		Name:         StageTranscriber,
		InputQueue:   cfg.TranscribeQueue,
		OutputQueues: []string{cfg.SummaryQueue},
		ErrorQueue:   cfg.ErrorQueue,
		Process:      process,
	}
}

func buildSummarizer(cfg *config.Config, res *Resources, lg zerolog.Logger) stage.Config {
	model := summarizer.NewSummarizer(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIAPIKey)
	store := contentstore.New(cfg.ContentStoreURL)
	process := summarizer.NewProcess(model, store, res.Notify, urlnorm.CleanURL, cfg.EmbeddingQueue, lg)

	return stage.Config{
		Name:         StageSummarizer,
		InputQueue:   cfg.SummaryQueue,
		OutputQueues: []string{cfg.EmbeddingQueue},
		ErrorQueue:   cfg.ErrorQueue,
		Process:      process,
		ErrorHook:    stage.SwallowBenign,
	}
}

func buildEmbedder(cfg *config.Config, res *Resources, lg zerolog.Logger) stage.Config {
	store := vectorstore.New(cfg.VectorStoreURL)
	process := embedder.NewProcess(store, res.Notify, cfg.EmbedCollection, lg)

	return stage.Config{
		Name:         StageEmbedding,
		InputQueue:   cfg.EmbeddingQueue,
		OutputQueues: nil,
		ErrorQueue:   cfg.ErrorQueue,
		Process:      process,
	}
}

func buildNotifier(cfg *config.Config, res *Resources, lg zerolog.Logger) stage.Config {
	telegram := notify.NewTelegramClient(cfg.TelegramBotToken)
	process := notify.NewNotifierProcess(telegram, res.Idempotency, lg)

	return stage.Config{
		Name:         StageNotifier,
		InputQueue:   cfg.NotifyQueue,
		OutputQueues: nil,
		ErrorQueue:   cfg.ErrorQueue,
		Process:      process,
		// No error_hook: notifier failures retry then land in error_queue,
		// never swallowed.
	}
}
