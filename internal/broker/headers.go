package broker

import (
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/baechuer/contentpipe/internal/model"
)

// retryCount parses x-retry-count defensively: header values round-trip
// through a transport that may type-coerce, so missing or non-integer
// values are treated as zero rather than propagated as an error.
func retryCount(h amqp.Table) int {
	v, ok := h[model.HeaderRetryCount]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float32:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

// withRetryCount returns a copy of h with x-retry-count set to n.
func withRetryCount(h amqp.Table, n int) amqp.Table {
	out := amqp.Table{}
	for k, v := range h {
		out[k] = v
	}
	out[model.HeaderRetryCount] = int32(n)
	return out
}

// withErrorReason returns a copy of h with x-error-reason set to reason.
func withErrorReason(h amqp.Table, reason string) amqp.Table {
	out := amqp.Table{}
	for k, v := range h {
		out[k] = v
	}
	out[model.HeaderErrorReason] = reason
	return out
}
