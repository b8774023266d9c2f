package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/baechuer/contentpipe/internal/stage"
)

// Recorder is the minimal metrics surface the kernel reports through. A nil
// Kernel.Recorder is valid; Run substitutes a no-op recorder for it.
type Recorder interface {
	Processed(stageName, outcome string)
	Retried(stageName string)
	DLQ(stageName string)
	ObserveDuration(stageName string, d time.Duration)
	InflightInc(stageName string)
	InflightDec(stageName string)
}

type noopRecorder struct{}

func (noopRecorder) Processed(string, string)          {}
func (noopRecorder) Retried(string)                    {}
func (noopRecorder) DLQ(string)                        {}
func (noopRecorder) ObserveDuration(string, time.Duration) {}
func (noopRecorder) InflightInc(string)                {}
func (noopRecorder) InflightDec(string)                {}

// ProgrammingError marks a routing-key violation: process returned a
// routing key outside the stage's declared OutputQueues. This is fatal and
// skips the retry budget entirely.
type ProgrammingError struct {
	RoutingKey string
}

func (e *ProgrammingError) Error() string {
	return fmt.Sprintf("broker: routing key %q not in stage output_queues", e.RoutingKey)
}

func (e *ProgrammingError) Permanent() bool { return true }

const reasonExceededMaxRetries = "exceeded_max_retries"
const reasonInvalidRoutingKey = "invalid_routing_key"

// publisher is the narrow surface handleDelivery needs from a *Session,
// extracted so unit tests can inject a fake instead of dialing a broker.
type publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte, headers amqp.Table) error
}

// Kernel runs the generic at-least-once worker loop: connect, declare,
// consume, process, retry/DLQ, reconnect, graceful stop.
type Kernel struct {
	BrokerURL         string
	Exchange          string
	ConsumerTag       string
	ProcessingTimeout time.Duration
	MaxRetries        int
	ReconnectDelay    time.Duration
	Recorder          Recorder

	lg zerolog.Logger
}

func NewKernel(brokerURL, exchange, tag string, processingTimeout time.Duration, maxRetries int, lg zerolog.Logger) *Kernel {
	return &Kernel{
		BrokerURL:         brokerURL,
		Exchange:          exchange,
		ConsumerTag:       tag,
		ProcessingTimeout: processingTimeout,
		MaxRetries:        maxRetries,
		ReconnectDelay:    5 * time.Second,
		Recorder:          noopRecorder{},
		lg:                lg,
	}
}

// Run drives cfg until ctx is cancelled (SIGTERM/SIGINT upstream), stopping
// the consumer and closing the connection cleanly on cancellation. On any
// broker error it logs, sleeps ReconnectDelay, and resumes from Connect.
func (k *Kernel) Run(ctx context.Context, cfg stage.Config) error {
	rec := k.Recorder
	if rec == nil {
		rec = noopRecorder{}
	}
	lg := k.lg.With().Str("stage", cfg.Name).Logger()

	for {
		if ctx.Err() != nil {
			return nil
		}

		sess, err := Connect(ctx, k.BrokerURL, k.Exchange, lg)
		if err != nil {
			lg.Error().Err(err).Msg("broker connect failed, retrying")
			if !sleepOrDone(ctx, k.ReconnectDelay) {
				return nil
			}
			continue
		}

		if err := declareTopology(sess, cfg); err != nil {
			lg.Error().Err(err).Msg("topology declare failed, retrying")
			_ = sess.Close()
			if !sleepOrDone(ctx, k.ReconnectDelay) {
				return nil
			}
			continue
		}

		msgs, err := sess.Consume(cfg.InputQueue, k.ConsumerTag)
		if err != nil {
			lg.Error().Err(err).Msg("consume failed, retrying")
			_ = sess.Close()
			if !sleepOrDone(ctx, k.ReconnectDelay) {
				return nil
			}
			continue
		}

		lg.Info().Str("queue", cfg.InputQueue).Msg("worker consuming")
		k.consumeLoop(ctx, sess, cfg, msgs, lg, rec)
		_ = sess.Close()

		if ctx.Err() != nil {
			lg.Info().Msg("worker stopped cleanly")
			return nil
		}
		lg.Warn().Msg("broker connection lost, reconnecting")
		if !sleepOrDone(ctx, k.ReconnectDelay) {
			return nil
		}
	}
}

func declareTopology(sess *Session, cfg stage.Config) error {
	if err := sess.DeclareAndBind(cfg.InputQueue); err != nil {
		return err
	}
	if err := sess.DeclareAndBind(cfg.ErrorQueue); err != nil {
		return err
	}
	for _, q := range cfg.OutputQueues {
		if err := sess.DeclareAndBind(q); err != nil {
			return err
		}
	}
	return nil
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (k *Kernel) consumeLoop(ctx context.Context, sess publisher, cfg stage.Config, msgs <-chan amqp.Delivery, lg zerolog.Logger, rec Recorder) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				return
			}
			k.handleDelivery(ctx, sess, cfg, d, lg, rec)
		}
	}
}

func (k *Kernel) handleDelivery(ctx context.Context, sess publisher, cfg stage.Config, d amqp.Delivery, lg zerolog.Logger, rec Recorder) {
	rec.InflightInc(cfg.Name)
	defer rec.InflightDec(cfg.Name)

	start := time.Now()
	pctx, cancel := context.WithTimeout(ctx, k.ProcessingTimeout)
	result, err := cfg.Process(pctx, d.Body)
	cancel()
	rec.ObserveDuration(cfg.Name, time.Since(start))

	if err == nil && result.RoutingKey != "" && !cfg.AllowsRoutingKey(result.RoutingKey) {
		err = &ProgrammingError{RoutingKey: result.RoutingKey}
	}

	if err == nil {
		k.handleSuccess(ctx, sess, cfg, d, result, lg, rec)
		return
	}
	k.handleFailure(ctx, sess, cfg, d, err, lg, rec)
}

func (k *Kernel) handleSuccess(ctx context.Context, sess publisher, cfg stage.Config, d amqp.Delivery, result stage.Result, lg zerolog.Logger, rec Recorder) {
	// Publish precedes the ack in every path — at-least-once delivery
	// depends on this ordering.
	if result.RoutingKey != "" {
		if err := sess.Publish(ctx, result.RoutingKey, result.Payload, nil); err != nil {
			lg.Error().Err(err).Str("routing_key", result.RoutingKey).Msg("forward publish failed")
			_ = d.Nack(false, true)
			return
		}
	}
	if err := d.Ack(false); err != nil {
		lg.Error().Err(err).Msg("ack failed")
		return
	}
	rec.Processed(cfg.Name, "success")
}

func (k *Kernel) handleFailure(ctx context.Context, sess publisher, cfg stage.Config, d amqp.Delivery, procErr error, lg zerolog.Logger, rec Recorder) {
	if cfg.ErrorHook != nil {
		if cfg.ErrorHook(ctx, procErr, d.Body) {
			if err := d.Ack(false); err != nil {
				lg.Error().Err(err).Msg("ack (swallowed) failed")
				return
			}
			rec.Processed(cfg.Name, "swallowed")
			return
		}
	}

	var progErr *ProgrammingError
	if errors.As(procErr, &progErr) {
		k.routeToError(ctx, sess, cfg, d, procErr, reasonInvalidRoutingKey, retryCount(d.Headers), lg, rec)
		return
	}

	newCount := retryCount(d.Headers) + 1
	if newCount < k.MaxRetries {
		headers := withRetryCount(d.Headers, newCount)
		if err := sess.Publish(ctx, cfg.InputQueue, d.Body, headers); err != nil {
			lg.Error().Err(err).Msg("retry republish failed")
			_ = d.Nack(false, true)
			return
		}
		if err := d.Ack(false); err != nil {
			lg.Error().Err(err).Msg("ack (retried) failed")
			return
		}
		rec.Retried(cfg.Name)
		lg.Warn().Err(procErr).Int("retry_count", newCount).Msg("message retried")
		return
	}

	k.routeToError(ctx, sess, cfg, d, procErr, reasonExceededMaxRetries, newCount, lg, rec)
}

func (k *Kernel) routeToError(ctx context.Context, sess publisher, cfg stage.Config, d amqp.Delivery, procErr error, reason string, count int, lg zerolog.Logger, rec Recorder) {
	headers := withRetryCount(d.Headers, count)
	headers = withErrorReason(headers, reason)
	if err := sess.Publish(ctx, cfg.ErrorQueue, d.Body, headers); err != nil {
		lg.Error().Err(err).Msg("error-queue publish failed")
		_ = d.Nack(false, true)
		return
	}
	if err := d.Ack(false); err != nil {
		lg.Error().Err(err).Msg("ack (dlq) failed")
		return
	}
	rec.DLQ(cfg.Name)
	lg.Error().Err(procErr).Str("reason", reason).Int("retry_count", count).Msg("message routed to error queue")
}
