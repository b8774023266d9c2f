package broker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/contentpipe/internal/model"
	"github.com/baechuer/contentpipe/internal/stage"
)

// fakeAcker lets us build an amqp.Delivery without a live channel.
type fakeAcker struct {
	mu       sync.Mutex
	acked    bool
	nacked   bool
	requeued bool
}

func (a *fakeAcker) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = true
	return nil
}
func (a *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = true
	a.requeued = requeue
	return nil
}
func (a *fakeAcker) Reject(tag uint64, requeue bool) error { return nil }

func newDelivery(headers amqp.Table, acker *fakeAcker) amqp.Delivery {
	return amqp.Delivery{
		Body:         []byte(`{}`),
		Headers:      headers,
		Acknowledger: acker,
	}
}

// fakePublisher records every publish call made through the narrow
// publisher interface.
type fakePublisher struct {
	mu    sync.Mutex
	calls []struct {
		routingKey string
		headers    amqp.Table
	}
	err error
}

func (p *fakePublisher) Publish(ctx context.Context, routingKey string, body []byte, headers amqp.Table) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, struct {
		routingKey string
		headers    amqp.Table
	}{routingKey, headers})
	return p.err
}

func testKernel() *Kernel {
	return NewKernel("amqp://unused", "city.events", "t", time.Second, 3, zerolog.Nop())
}

func alwaysFail(ctx context.Context, body []byte) (stage.Result, error) {
	return stage.Result{}, errors.New("boom")
}

func testCfg(process stage.ProcessFunc, hook stage.ErrorHook) stage.Config {
	return stage.Config{
		Name:         "crawler",
		InputQueue:   "crawl_queue",
		OutputQueues: []string{"summary_queue"},
		ErrorQueue:   "error_queue",
		Process:      process,
		ErrorHook:    hook,
	}
}

// Bounded retries: a process_fn that always fails is redelivered exactly
// MAX_RETRIES times before landing on the error queue with the correct
// x-retry-count and reason.
func TestHandleDelivery_BoundedRetries(t *testing.T) {
	k := testKernel()
	pub := &fakePublisher{}
	cfg := testCfg(alwaysFail, nil)

	headers := amqp.Table{}
	for i := 0; i < k.MaxRetries; i++ {
		acker := &fakeAcker{}
		d := newDelivery(headers, acker)
		k.handleDelivery(context.Background(), pub, cfg, d, zerolog.Nop(), noopRecorder{})
		require.True(t, acker.acked, "envelope must be acked after republish, iteration %d", i)
		require.Len(t, pub.calls, i+1)
		headers = pub.calls[i].headers
	}

	last := pub.calls[len(pub.calls)-1]
	require.Equal(t, "error_queue", last.routingKey)
	require.EqualValues(t, 3, last.headers[model.HeaderRetryCount])
	require.Equal(t, reasonExceededMaxRetries, last.headers[model.HeaderErrorReason])
}

// Graph confinement: a routing key outside output_queues is a programming
// error and lands directly on the error queue, bypassing the retry budget
// entirely.
func TestHandleDelivery_InvalidRoutingKey_GoesStraightToErrorQueue(t *testing.T) {
	k := testKernel()
	pub := &fakePublisher{}
	process := func(ctx context.Context, body []byte) (stage.Result, error) {
		return stage.Forward("not_a_declared_queue", body), nil
	}
	cfg := testCfg(process, nil)

	acker := &fakeAcker{}
	d := newDelivery(amqp.Table{}, acker)
	k.handleDelivery(context.Background(), pub, cfg, d, zerolog.Nop(), noopRecorder{})

	require.True(t, acker.acked)
	require.Len(t, pub.calls, 1)
	require.Equal(t, "error_queue", pub.calls[0].routingKey)
	require.Equal(t, reasonInvalidRoutingKey, pub.calls[0].headers[model.HeaderErrorReason])
}

// A benign error (ErrorHook swallows) acks without ever publishing.
func TestHandleDelivery_ErrorHookSwallows(t *testing.T) {
	k := testKernel()
	pub := &fakePublisher{}
	hook := func(ctx context.Context, err error, body []byte) bool { return true }
	cfg := testCfg(alwaysFail, hook)

	acker := &fakeAcker{}
	d := newDelivery(amqp.Table{}, acker)
	k.handleDelivery(context.Background(), pub, cfg, d, zerolog.Nop(), noopRecorder{})

	require.True(t, acker.acked)
	require.Empty(t, pub.calls)
}

// Success path: publish to the next stage precedes the ack, and a terminal
// result acks with no publish.
func TestHandleDelivery_SuccessForwardsThenAcks(t *testing.T) {
	k := testKernel()
	pub := &fakePublisher{}
	process := func(ctx context.Context, body []byte) (stage.Result, error) {
		return stage.Forward("summary_queue", []byte(`{"ok":true}`)), nil
	}
	cfg := testCfg(process, nil)

	acker := &fakeAcker{}
	d := newDelivery(amqp.Table{}, acker)
	k.handleDelivery(context.Background(), pub, cfg, d, zerolog.Nop(), noopRecorder{})

	require.True(t, acker.acked)
	require.Len(t, pub.calls, 1)
	require.Equal(t, "summary_queue", pub.calls[0].routingKey)
}

func TestHandleDelivery_TerminalSuccess_NoPublish(t *testing.T) {
	k := testKernel()
	pub := &fakePublisher{}
	process := func(ctx context.Context, body []byte) (stage.Result, error) {
		return stage.Terminal(), nil
	}
	cfg := testCfg(process, nil)

	acker := &fakeAcker{}
	d := newDelivery(amqp.Table{}, acker)
	k.handleDelivery(context.Background(), pub, cfg, d, zerolog.Nop(), noopRecorder{})

	require.True(t, acker.acked)
	require.Empty(t, pub.calls)
}

// If the forward publish fails, the envelope must not be acked (it will be
// redelivered) — never silently dropped.
func TestHandleDelivery_ForwardPublishFails_Nacks(t *testing.T) {
	k := testKernel()
	pub := &fakePublisher{err: errors.New("broker down")}
	process := func(ctx context.Context, body []byte) (stage.Result, error) {
		return stage.Forward("summary_queue", body), nil
	}
	cfg := testCfg(process, nil)

	acker := &fakeAcker{}
	d := newDelivery(amqp.Table{}, acker)
	k.handleDelivery(context.Background(), pub, cfg, d, zerolog.Nop(), noopRecorder{})

	require.False(t, acker.acked)
	require.True(t, acker.nacked)
	require.True(t, acker.requeued)
}
