package itineraries

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/tripflow/internal/app/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockRepository struct {
	insertFn  func(ctx context.Context, itinerary *models.Itinerary) (*models.Itinerary, error)
	getFn     func(ctx context.Context, id, userID uuid.UUID) (*models.Itinerary, error)
	updateFn  func(ctx context.Context, id, userID uuid.UUID, params models.UpdateItineraryParams) error
	appendFn  func(ctx context.Context, id, userID uuid.UUID, turns ...models.ChatMessage) error
}

func (m *mockRepository) Insert(ctx context.Context, itinerary *models.Itinerary) (*models.Itinerary, error) {
	return m.insertFn(ctx, itinerary)
}

func (m *mockRepository) GetByIDAndOwner(ctx context.Context, id, userID uuid.UUID) (*models.Itinerary, error) {
	return m.getFn(ctx, id, userID)
}

func (m *mockRepository) Update(ctx context.Context, id, userID uuid.UUID, params models.UpdateItineraryParams) error {
	return m.updateFn(ctx, id, userID, params)
}

func (m *mockRepository) AppendChatTurns(ctx context.Context, id, userID uuid.UUID, turns ...models.ChatMessage) error {
	return m.appendFn(ctx, id, userID, turns...)
}

func newItineraryRouter(repo Repository, userID string) *gin.Engine {
	h := NewHandlerImpl(repo, zap.NewNop())
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	r.POST("/api/itineraries/save", h.SaveItinerary)
	r.GET("/api/itineraries/:id", h.GetItinerary)
	r.PUT("/api/itineraries/:id", h.UpdateItinerary)
	return r
}

func TestSaveItinerary(t *testing.T) {
	userID := uuid.New()
	var gotOwner uuid.UUID
	repo := &mockRepository{
		insertFn: func(ctx context.Context, itinerary *models.Itinerary) (*models.Itinerary, error) {
			gotOwner = itinerary.UserID
			saved := *itinerary
			saved.ID = uuid.New()
			return &saved, nil
		},
	}

	body, _ := json.Marshal(models.SaveItineraryRequest{
		Title:       "Lisbon Trip",
		Destination: "Lisbon",
		Content:     "## Day 1",
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/itineraries/save", bytes.NewReader(body))
	newItineraryRouter(repo, userID.String()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, userID, gotOwner)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["itineraryId"])
	assert.Equal(t, "Itinerary saved", resp["message"])
}

func TestSaveItineraryDefaultTitle(t *testing.T) {
	var gotTitle string
	repo := &mockRepository{
		insertFn: func(ctx context.Context, itinerary *models.Itinerary) (*models.Itinerary, error) {
			gotTitle = itinerary.Title
			saved := *itinerary
			saved.ID = uuid.New()
			return &saved, nil
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/itineraries/save",
		bytes.NewReader([]byte(`{"destination":"Lisbon","content":"## Day 1"}`)))
	newItineraryRouter(repo, uuid.NewString()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Lisbon Trip", gotTitle)
}

func TestSaveItineraryUnauthorized(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/itineraries/save", bytes.NewReader([]byte("{}")))
	newItineraryRouter(&mockRepository{}, "").ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSaveItineraryMissingFields(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/itineraries/save",
		bytes.NewReader([]byte(`{"destination":"Lisbon"}`)))
	newItineraryRouter(&mockRepository{}, uuid.NewString()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetItinerary(t *testing.T) {
	userID := uuid.New()
	id := uuid.New()
	repo := &mockRepository{
		getFn: func(ctx context.Context, gotID, gotUser uuid.UUID) (*models.Itinerary, error) {
			assert.Equal(t, id, gotID)
			assert.Equal(t, userID, gotUser)
			return &models.Itinerary{ID: id, UserID: userID, Title: "Lisbon Trip", ChatHistory: []models.ChatMessage{}}, nil
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/itineraries/"+id.String(), nil)
	newItineraryRouter(repo, userID.String()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Lisbon Trip")
}

func TestGetItineraryMalformedIDIsNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/itineraries/not-a-uuid", nil)
	newItineraryRouter(&mockRepository{}, uuid.NewString()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetItineraryNotFound(t *testing.T) {
	repo := &mockRepository{
		getFn: func(ctx context.Context, id, userID uuid.UUID) (*models.Itinerary, error) {
			return nil, models.ErrNotFound
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/itineraries/"+uuid.NewString(), nil)
	newItineraryRouter(repo, uuid.NewString()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateItinerary(t *testing.T) {
	var gotParams models.UpdateItineraryParams
	repo := &mockRepository{
		updateFn: func(ctx context.Context, id, userID uuid.UUID, params models.UpdateItineraryParams) error {
			gotParams = params
			return nil
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/itineraries/"+uuid.NewString(),
		bytes.NewReader([]byte(`{"content":"## Day 1 (edited)"}`)))
	newItineraryRouter(repo, uuid.NewString()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotParams.Content)
	assert.Equal(t, "## Day 1 (edited)", *gotParams.Content)
	assert.Nil(t, gotParams.ChatHistory)
}

func TestUpdateItineraryNotFound(t *testing.T) {
	repo := &mockRepository{
		updateFn: func(ctx context.Context, id, userID uuid.UUID, params models.UpdateItineraryParams) error {
			return models.ErrNotFound
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/itineraries/"+uuid.NewString(),
		bytes.NewReader([]byte(`{"content":"x"}`)))
	newItineraryRouter(repo, uuid.NewString()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
