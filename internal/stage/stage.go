// Package stage defines the contract every pipeline stage implements. There
// is no class hierarchy here: a stage is a Config record carrying its queues
// and process/error-hook functions; the worker kernel is a function
// parameterised by that value. The registry binding a stage name to its
// Config lives in internal/pipeline.
package stage

import "context"

// Result is what Process returns. An empty RoutingKey means the message is
// terminal and will simply be acked. A non-empty RoutingKey must be a member
// of the owning Config's OutputQueues; the kernel treats anything else as a
// programming error and routes it to the error queue.
type Result struct {
	RoutingKey string
	Payload    []byte
}

// Terminal builds a Result that ends processing with no further publish.
func Terminal() Result { return Result{} }

// Forward builds a Result that republishes payload under routingKey.
func Forward(routingKey string, payload []byte) Result {
	return Result{RoutingKey: routingKey, Payload: payload}
}

// ProcessFunc transforms one inbound message body into a routing decision.
// Implementations must be safe to call repeatedly on redelivery: the kernel
// gives no ordering or exactly-once guarantee.
type ProcessFunc func(ctx context.Context, body []byte) (Result, error)

// ErrorHook gets a chance to inspect a process error before the kernel's
// default retry/DLQ path runs. Returning swallow=true acks the envelope
// without retrying or erroring it further (used for benign, known outcomes
// such as "content already exists"). Returning swallow=false falls through
// to the default path.
type ErrorHook func(ctx context.Context, err error, body []byte) (swallow bool)

// Permanent marks an error as fatal to the current envelope: no amount of
// retrying will change the outcome (wrong predecessor status, payload that
// will never validate). It still counts against MAX_RETRIES like any other
// error; only the classification differs. The kernel's own routing-key
// violation (broker.ProgrammingError) is the one exception: it skips the
// retry budget and goes straight to the error queue.
type Permanent interface {
	Permanent() bool
}

// Benign marks an error that an ErrorHook should treat as a successful,
// swallowed outcome (ack + informational notification), e.g. duplicate URL.
type Benign interface {
	Benign() bool
}

// IsPermanent reports whether err identifies itself as non-retriable.
func IsPermanent(err error) bool {
	p, ok := err.(Permanent)
	return ok && p.Permanent()
}

// IsBenign reports whether err identifies itself as a swallow-worthy
// business-benign outcome.
func IsBenign(err error) bool {
	b, ok := err.(Benign)
	return ok && b.Benign()
}

// Config is the static declaration the pipeline config binds to a stage
// name: its queues and the process/error-hook values that implement it.
type Config struct {
	Name         string
	InputQueue   string
	OutputQueues []string
	ErrorQueue   string
	Process      ProcessFunc
	ErrorHook    ErrorHook
}

// AllowsRoutingKey reports whether key is a valid output for this stage
// (terminal empty key is always allowed).
func (c Config) AllowsRoutingKey(key string) bool {
	if key == "" {
		return true
	}
	for _, q := range c.OutputQueues {
		if q == key {
			return true
		}
	}
	return false
}
