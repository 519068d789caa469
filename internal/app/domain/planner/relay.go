package planner

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/FACorreiaa/tripflow/internal/app/llm"
	"github.com/FACorreiaa/tripflow/internal/app/sse"
	"github.com/FACorreiaa/tripflow/internal/observability/metrics"
)

// writeAborted marks a stream that died because the client connection
// went away, as opposed to a provider failure. No further frames can be
// delivered once it occurs.
type writeAborted struct {
	err error
}

func (w *writeAborted) Error() string { return "stream write aborted: " + w.err.Error() }
func (w *writeAborted) Unwrap() error { return w.err }

func isWriteAborted(err error) bool {
	var wa *writeAborted
	return errors.As(err, &wa)
}

// StreamRelay forwards provider deltas to a client stream while
// accumulating the full text for persistence.
type StreamRelay struct {
	client llm.Client
	logger *zap.Logger
}

func NewStreamRelay(client llm.Client, logger *zap.Logger) *StreamRelay {
	return &StreamRelay{client: client, logger: logger}
}

// Stream drives one completion. Every delta is appended to the returned
// text before it is written out, so the accumulated text always covers
// everything received from the provider even when a later write fails.
// The returned error is nil on a clean stream, a *writeAborted when the
// client disconnected, or the provider failure otherwise.
func (r *StreamRelay) Stream(ctx context.Context, w *sse.Writer, flow string, messages []llm.Message, params llm.Params) (string, error) {
	m := metrics.Get()
	start := time.Now()

	var full strings.Builder
	err := r.client.StreamChat(ctx, messages, params, func(delta string) error {
		full.WriteString(delta)
		if werr := w.WriteFrame(sse.Frame{Type: sse.FrameContent, Content: delta}); werr != nil {
			return &writeAborted{err: werr}
		}
		m.StreamFragmentsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("flow", flow)))
		return nil
	})

	m.StreamDurationSeconds.Record(context.Background(), time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("flow", flow)))

	return full.String(), err
}

// emitPrelude streams the synthetic planning updates with a pause after
// each one. It stops early when the client disconnects or the request
// context ends; the timer never outlives the call.
func emitPrelude(ctx context.Context, w *sse.Writer, steps []string, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for i, step := range steps {
		if err := w.WriteFrame(sse.Frame{Type: sse.FrameThought, Content: step}); err != nil {
			return &writeAborted{err: err}
		}
		if i > 0 {
			// Reset is safe here: the previous tick was consumed below.
			timer.Reset(delay)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}
