package itineraries

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FACorreiaa/tripflow/internal/app/middleware"
	"github.com/FACorreiaa/tripflow/internal/app/models"
)

// HandlerImpl serves the itinerary persistence endpoints. These are plain
// JSON routes; streaming lives in the planner domain.
type HandlerImpl struct {
	repo   Repository
	logger *zap.Logger
}

func NewHandlerImpl(repo Repository, logger *zap.Logger) *HandlerImpl {
	return &HandlerImpl{repo: repo, logger: logger}
}

// SaveItinerary stores a generated plan for the authenticated user.
// POST /api/itineraries/save
func (h *HandlerImpl) SaveItinerary(c *gin.Context) {
	userID, err := middleware.AuthenticatedUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.SaveItineraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Title == "" {
		req.Title = req.Destination + " Trip"
	}

	saved, err := h.repo.Insert(c.Request.Context(), &models.Itinerary{
		UserID:          userID,
		Title:           req.Title,
		Destination:     req.Destination,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		Budget:          req.Budget,
		Travelers:       req.Travelers,
		Interests:       req.Interests,
		Accommodation:   req.Accommodation,
		Pace:            req.Pace,
		AdditionalNotes: req.AdditionalNotes,
		Content:         req.Content,
	})
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Title and content are required"})
			return
		}
		h.logger.Error("Failed to save itinerary", zap.String("userID", userID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save itinerary"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Itinerary saved",
		"itineraryId": saved.ID,
	})
}

// GetItinerary returns one itinerary with its chat history.
// GET /api/itineraries/:id
func (h *HandlerImpl) GetItinerary(c *gin.Context) {
	userID, err := middleware.AuthenticatedUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Itinerary not found"})
		return
	}

	itinerary, err := h.repo.GetByIDAndOwner(c.Request.Context(), id, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Itinerary not found"})
			return
		}
		h.logger.Error("Failed to fetch itinerary", zap.String("itineraryID", id.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch itinerary"})
		return
	}

	c.JSON(http.StatusOK, itinerary)
}

// UpdateItinerary is the non-conversational edit path.
// PUT /api/itineraries/:id
func (h *HandlerImpl) UpdateItinerary(c *gin.Context) {
	userID, err := middleware.AuthenticatedUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Itinerary not found"})
		return
	}

	var params models.UpdateItineraryParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.repo.Update(c.Request.Context(), id, userID, params); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Itinerary not found"})
		case errors.Is(err, models.ErrBadRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No updatable fields provided"})
		default:
			h.logger.Error("Failed to update itinerary", zap.String("itineraryID", id.String()), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update itinerary"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Itinerary updated"})
}
