package planner

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/FACorreiaa/tripflow/internal/app/domain/itineraries"
	"github.com/FACorreiaa/tripflow/internal/app/llm"
	"github.com/FACorreiaa/tripflow/internal/app/middleware"
	"github.com/FACorreiaa/tripflow/internal/app/models"
	"github.com/FACorreiaa/tripflow/internal/app/sse"
	"github.com/FACorreiaa/tripflow/internal/observability/metrics"
	"github.com/FACorreiaa/tripflow/internal/pkg/config"
)

const persistTimeout = 10 * time.Second

// User-safe in-band error messages. Provider detail stays in the logs.
const (
	generateErrorMessage = "An error occurred while generating your itinerary."
	chatErrorMessage     = "An error occurred while processing your message."
)

// HandlerImpl serves the two streaming endpoints. The provider client is
// injected so tests run against a scripted stream.
type HandlerImpl struct {
	relay    *StreamRelay
	repo     itineraries.Repository
	relayCfg config.RelayConfig
	logger   *zap.Logger
}

func NewHandlerImpl(client llm.Client, repo itineraries.Repository, relayCfg config.RelayConfig, logger *zap.Logger) *HandlerImpl {
	return &HandlerImpl{
		relay:    NewStreamRelay(client, logger),
		repo:     repo,
		relayCfg: relayCfg,
		logger:   logger,
	}
}

// GenerateItinerary streams a fresh travel plan.
// POST /api/itineraries/generate
//
// Validation failures are plain JSON; once the event stream starts, all
// failures are reported in-band and the response stays 200.
func (h *HandlerImpl) GenerateItinerary(c *gin.Context) {
	var req models.GenerateItineraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	duration, err := tripDuration(req.StartDate, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date range"})
		return
	}

	ctx := c.Request.Context()
	m := metrics.Get()
	m.RelayStreamsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("flow", "generate")))

	l := h.logger.With(zap.String("handler", "GenerateItinerary"), zap.String("destination", req.Destination))

	sse.SetStreamHeaders(c.Writer.Header())
	w := sse.NewWriter(c.Writer)

	if err := emitPrelude(ctx, w, preludeSteps(req, duration), h.relayCfg.PreludeDelay); err != nil {
		l.Warn("Prelude aborted", zap.Error(err))
		return
	}

	full, streamErr := h.relay.Stream(ctx, w, "generate", buildGenerateMessages(req, duration), generateParams)
	if streamErr != nil {
		h.reportStreamFailure(ctx, w, l, "generate", streamErr, generateErrorMessage)
		return
	}

	if err := w.WriteDone(); err != nil {
		l.Warn("Failed to write done sentinel", zap.Error(err))
		return
	}
	l.Info("Itinerary generated", zap.Int("duration_days", duration), zap.Int("content_bytes", len(full)))
}

// ItineraryChat streams an answer about a saved itinerary and records
// both turns of the exchange.
// POST /api/itineraries/:id/chat
func (h *HandlerImpl) ItineraryChat(c *gin.Context) {
	receivedAt := time.Now()

	userID, err := middleware.AuthenticatedUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Itinerary not found"})
		return
	}

	ctx := c.Request.Context()
	l := h.logger.With(zap.String("handler", "ItineraryChat"),
		zap.String("itineraryID", id.String()),
		zap.String("userID", userID.String()))

	itinerary, err := h.repo.GetByIDAndOwner(ctx, id, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Itinerary not found"})
			return
		}
		l.Error("Failed to load itinerary for chat", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process chat message"})
		return
	}

	m := metrics.Get()
	m.RelayStreamsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("flow", "chat")))

	sse.SetStreamHeaders(c.Writer.Header())
	w := sse.NewWriter(c.Writer)

	messages := buildChatMessages(itinerary, req.Message, h.relayCfg.HistoryLimit)
	full, streamErr := h.relay.Stream(ctx, w, "chat", messages, chatParams)

	// Both turns are recorded exactly once per accepted message, even
	// when the stream died partway: the user keeps whatever partial
	// answer made it out.
	h.persistChatTurns(id, userID, l,
		models.ChatMessage{Role: models.ChatRoleUser, Content: req.Message, Timestamp: receivedAt},
		models.ChatMessage{Role: models.ChatRoleAssistant, Content: full, Timestamp: time.Now()},
	)

	if streamErr != nil {
		h.reportStreamFailure(ctx, w, l, "chat", streamErr, chatErrorMessage)
		return
	}

	if err := w.WriteDone(); err != nil {
		l.Warn("Failed to write done sentinel", zap.Error(err))
	}
}

// persistChatTurns runs on its own context: the request context is
// already dead when the client disconnected mid-stream, and losing the
// turns because of that would drop the partial answer too.
func (h *HandlerImpl) persistChatTurns(id, userID uuid.UUID, l *zap.Logger, turns ...models.ChatMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := h.repo.AppendChatTurns(ctx, id, userID, turns...); err != nil {
		// Persistence failures never surface on the stream.
		l.Error("Failed to persist chat turns", zap.Error(err))
		metrics.Get().ChatPersistFailuresTotal.Add(ctx, 1)
	}
}

// reportStreamFailure emits the in-band error frame for provider
// failures. Write aborts get nothing: the connection is gone. The stream
// closes without a done sentinel either way.
func (h *HandlerImpl) reportStreamFailure(ctx context.Context, w *sse.Writer, l *zap.Logger, flow string, streamErr error, userMessage string) {
	if isWriteAborted(streamErr) {
		l.Warn("Client disconnected mid-stream", zap.Error(streamErr))
		return
	}

	metrics.Get().ProviderErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("flow", flow)))
	l.Error("Completion stream failed", zap.Error(streamErr))

	if err := w.WriteFrame(sse.Frame{Type: sse.FrameError, Content: userMessage}); err != nil {
		l.Warn("Failed to write error frame", zap.Error(err))
	}
}
