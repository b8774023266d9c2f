//go:build integration

package broker

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/baechuer/contentpipe/internal/stage"
)

// startRabbitMQ boots a real broker for the gated integration suite.
func startRabbitMQ(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "rabbitmq:3.13-management",
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(60 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5672")
	require.NoError(t, err)

	return "amqp://guest:guest@" + host + ":" + port.Port() + "/"
}

// TestKernel_NotifierIsolation checks that a simulated notifier outage
// (process_fn always erroring) does not affect a second, healthy stage
// running against the same broker.
func TestKernel_NotifierIsolation(t *testing.T) {
	url := startRabbitMQ(t)
	lg := zerolog.Nop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	processed := make(chan struct{}, 1)
	healthy := stage.Config{
		Name:         "embedder",
		InputQueue:   "embedding_queue_it",
		OutputQueues: nil,
		ErrorQueue:   "error_queue_it",
		Process: func(ctx context.Context, body []byte) (stage.Result, error) {
			select {
			case processed <- struct{}{}:
			default:
			}
			return stage.Terminal(), nil
		},
	}
	failing := stage.Config{
		Name:         "notifier",
		InputQueue:   "notify_queue_it",
		OutputQueues: nil,
		ErrorQueue:   "error_queue_it",
		Process: func(ctx context.Context, body []byte) (stage.Result, error) {
			return stage.Result{}, context.DeadlineExceeded
		},
	}

	kHealthy := NewKernel(url, "city.events.it", "healthy", 2*time.Second, 3, lg)
	kFailing := NewKernel(url, "city.events.it", "failing", 2*time.Second, 3, lg)

	go func() { _ = kFailing.Run(ctx, failing) }()
	go func() { _ = kHealthy.Run(ctx, healthy) }()

	sess, err := Connect(ctx, url, "city.events.it", lg)
	require.NoError(t, err)
	defer sess.Close()
	require.NoError(t, sess.DeclareAndBind("embedding_queue_it"))
	require.NoError(t, sess.Publish(ctx, "embedding_queue_it", []byte(`{}`), nil))

	select {
	case <-processed:
	case <-time.After(10 * time.Second):
		t.Fatal("healthy stage did not process despite notifier outage")
	}
}
