// Package sse implements the event frame codec used on the itinerary
// streaming endpoints. Every payload is a single `data:` line followed by
// a blank line; the stream ends with the literal [DONE] sentinel.
package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// FrameType discriminates the payloads sent over a relay stream.
type FrameType string

const (
	// FrameThought is a synthetic planning update shown before real output.
	FrameThought FrameType = "thought"
	// FrameContent carries a fragment of model output.
	FrameContent FrameType = "content"
	// FrameError reports a terminal in-band failure.
	FrameError FrameType = "error"
)

// doneSentinel terminates a successful stream. It is not JSON and must
// never be fed to a JSON parser.
const doneSentinel = "[DONE]"

// Frame is one typed event on the wire.
type Frame struct {
	Type    FrameType `json:"type"`
	Content string    `json:"content"`
}

// Writer serializes frames onto an HTTP response and flushes after every
// write so fragments reach the client as they are produced.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter wraps w. If w implements http.Flusher each frame is flushed
// immediately; otherwise writes are buffered by the transport.
func NewWriter(w io.Writer) *Writer {
	sw := &Writer{w: w}
	if f, ok := w.(http.Flusher); ok {
		sw.flusher = f
	}
	return sw
}

// WriteFrame encodes f as a single SSE event and flushes it.
func (sw *Writer) WriteFrame(f Frame) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return errors.Wrap(err, "marshal frame")
	}
	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", payload); err != nil {
		return errors.Wrap(err, "write frame")
	}
	sw.flush()
	return nil
}

// WriteDone emits the terminal sentinel. Only successful streams end with
// it; error streams close without one.
func (sw *Writer) WriteDone() error {
	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", doneSentinel); err != nil {
		return errors.Wrap(err, "write done sentinel")
	}
	sw.flush()
	return nil
}

func (sw *Writer) flush() {
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
}

// SetStreamHeaders prepares an HTTP response for event streaming. It must
// run before the first frame is written.
func SetStreamHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
}
