package sse

import (
	"bytes"
	"encoding/json"

	"go.uber.org/zap"
)

// Event is one decoded occurrence on a relay stream: either a frame or
// the terminal sentinel.
type Event struct {
	Frame Frame
	Done  bool
}

// Decoder incrementally decodes an event stream from arbitrary byte
// chunks. Network reads can split a frame anywhere, so the decoder only
// acts on newline-terminated lines and buffers the trailing partial line
// until the next chunk completes it.
type Decoder struct {
	buf    []byte
	logger *zap.Logger
}

// NewDecoder returns a decoder. logger may be nil.
func NewDecoder(logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{logger: logger}
}

// Feed appends chunk to the internal buffer and returns every event that
// became complete. Malformed JSON payloads are skipped, not fatal: a
// frame boundary glitch must not kill the stream.
func (d *Decoder) Feed(chunk []byte) []Event {
	d.buf = append(d.buf, chunk...)

	var events []Event
	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx < 0 {
			break
		}
		line := d.buf[:idx]
		d.buf = d.buf[idx+1:]

		ev, ok := d.decodeLine(line)
		if ok {
			events = append(events, ev)
			if ev.Done {
				break
			}
		}
	}
	return events
}

// Pending reports whether an incomplete line is still buffered.
func (d *Decoder) Pending() bool {
	return len(bytes.TrimSpace(d.buf)) > 0
}

func (d *Decoder) decodeLine(line []byte) (Event, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || !bytes.HasPrefix(line, []byte("data: ")) {
		return Event{}, false
	}
	payload := bytes.TrimPrefix(line, []byte("data: "))

	// The sentinel is a bare literal; check before any JSON parsing.
	if string(payload) == doneSentinel {
		return Event{Done: true}, true
	}

	var f Frame
	if err := json.Unmarshal(payload, &f); err != nil {
		d.logger.Warn("skipping malformed stream payload",
			zap.ByteString("payload", payload),
			zap.Error(err))
		return Event{}, false
	}
	return Event{Frame: f}, true
}
