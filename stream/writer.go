package stream

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrStreamClosed is returned by Send after a terminal event has been
// written.
var ErrStreamClosed = errors.New("stream already terminated")

// ErrStreamingUnsupported is returned by NewWriter when the response writer
// cannot flush.
var ErrStreamingUnsupported = errors.New("response writer does not support streaming")

// Writer serializes stream events onto an SSE HTTP response. It enforces the
// single-terminal-event invariant: after done or error, further sends fail
// and Close becomes a no-op.
//
// Writer is not safe for concurrent use; one goroutine owns the response.
type Writer struct {
	w          http.ResponseWriter
	flusher    http.Flusher
	terminated bool
}

// NewWriter prepares an SSE response: sets headers and verifies the writer
// can flush.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	return &Writer{w: w, flusher: flusher}, nil
}

// Send writes one event and flushes it to the client.
func (sw *Writer) Send(ev Event) error {
	if sw.terminated {
		return ErrStreamClosed
	}

	if _, err := fmt.Fprintf(sw.w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data); err != nil {
		return err
	}
	sw.flusher.Flush()

	if ev.Type.Terminal() {
		sw.terminated = true
	}

	return nil
}

// Close guarantees the stream is terminated: if no terminal event was sent
// yet, an error event with the generic message is written. Safe to defer.
func (sw *Writer) Close() {
	if sw.terminated {
		return
	}
	_ = sw.Send(Error(""))
}

// Terminated reports whether a terminal event has been written.
func (sw *Writer) Terminated() bool { return sw.terminated }
