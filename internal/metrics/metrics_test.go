package metrics

// These are lightweight sanity checks to ensure the recorder methods can be
// called without panicking.

import (
	"net/http"
	"testing"
	"time"
)

func TestRecorder_ProcessedRetriedDLQ(t *testing.T) {
	r := Recorder{}
	r.Processed("classifier", "success")
	r.Retried("classifier")
	r.DLQ("classifier")
}

func TestRecorder_ObserveDurationAndInflight(t *testing.T) {
	r := Recorder{}
	r.ObserveDuration("crawler", 250*time.Millisecond)
	r.InflightInc("crawler")
	r.InflightDec("crawler")
}

func TestHandler(t *testing.T) {
	h := Handler()
	if h == nil {
		t.Fatal("Handler returned nil")
	}
	if _, ok := h.(http.Handler); !ok {
		t.Fatal("Handler does not implement http.Handler")
	}
}
