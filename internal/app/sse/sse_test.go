package sse

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterFrameFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)

	require.NoError(t, w.WriteFrame(Frame{Type: FrameThought, Content: "Analyzing your destination..."}))

	assert.Equal(t, "data: {\"type\":\"thought\",\"content\":\"Analyzing your destination...\"}\n\n", rec.Body.String())
	assert.True(t, rec.Flushed)
}

func TestWriterDoneSentinel(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)

	require.NoError(t, w.WriteDone())

	assert.Equal(t, "data: [DONE]\n\n", rec.Body.String())
}

func TestWriterContentWithNewlines(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)

	require.NoError(t, w.WriteFrame(Frame{Type: FrameContent, Content: "## Day 1\n- Morning walk"}))

	// Newlines in the payload must be JSON-escaped so the event stays a
	// single wire line.
	assert.Equal(t, "data: {\"type\":\"content\",\"content\":\"## Day 1\\n- Morning walk\"}\n\n", rec.Body.String())

	d := NewDecoder(nil)
	events := d.Feed(rec.Body.Bytes())
	require.Len(t, events, 1)
	assert.Equal(t, "## Day 1\n- Morning walk", events[0].Frame.Content)
}

func TestSetStreamHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SetStreamHeaders(rec.Header())

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", rec.Header().Get("Connection"))
}

func TestDecoderWholeFrames(t *testing.T) {
	d := NewDecoder(nil)

	events := d.Feed([]byte("data: {\"type\":\"content\",\"content\":\"Lisbon\"}\n\ndata: [DONE]\n\n"))

	require.Len(t, events, 2)
	assert.Equal(t, FrameContent, events[0].Frame.Type)
	assert.Equal(t, "Lisbon", events[0].Frame.Content)
	assert.True(t, events[1].Done)
	assert.False(t, d.Pending())
}

func TestDecoderChunkBoundaries(t *testing.T) {
	// A frame split anywhere, including mid-JSON, must decode once the
	// terminating newline arrives.
	d := NewDecoder(nil)

	events := d.Feed([]byte("data: {\"type\":\"con"))
	assert.Empty(t, events)
	assert.True(t, d.Pending())

	events = d.Feed([]byte("tent\",\"content\":\"Porto\"}\n"))
	require.Len(t, events, 1)
	assert.Equal(t, "Porto", events[0].Frame.Content)
}

func TestDecoderSplitSentinel(t *testing.T) {
	d := NewDecoder(nil)

	assert.Empty(t, d.Feed([]byte("data: [DO")))
	events := d.Feed([]byte("NE]\n\n"))

	require.Len(t, events, 1)
	assert.True(t, events[0].Done)
}

func TestDecoderSkipsMalformedPayload(t *testing.T) {
	d := NewDecoder(nil)

	events := d.Feed([]byte("data: {not json}\ndata: {\"type\":\"content\",\"content\":\"ok\"}\n"))

	require.Len(t, events, 1)
	assert.Equal(t, "ok", events[0].Frame.Content)
}

func TestDecoderIgnoresNonDataLines(t *testing.T) {
	d := NewDecoder(nil)

	events := d.Feed([]byte(": keepalive\nevent: ping\n\ndata: {\"type\":\"thought\",\"content\":\"x\"}\n\n"))

	require.Len(t, events, 1)
	assert.Equal(t, FrameThought, events[0].Frame.Type)
}

func TestDecoderManySmallChunks(t *testing.T) {
	d := NewDecoder(nil)
	wire := "data: {\"type\":\"content\",\"content\":\"a\"}\n\ndata: {\"type\":\"content\",\"content\":\"b\"}\n\ndata: [DONE]\n\n"

	var events []Event
	for _, b := range []byte(wire) {
		events = append(events, d.Feed([]byte{b})...)
	}

	require.Len(t, events, 3)
	assert.Equal(t, "a", events[0].Frame.Content)
	assert.Equal(t, "b", events[1].Frame.Content)
	assert.True(t, events[2].Done)
}
