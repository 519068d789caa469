package models

import (
	"time"

	"github.com/google/uuid"
)

// Chat roles stored in an itinerary's conversation history.
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is a single turn of the itinerary follow-up conversation,
// persisted inside the itinerary row as jsonb.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Itinerary is a saved travel plan together with its chat history.
type Itinerary struct {
	ID              uuid.UUID     `json:"id"`
	UserID          uuid.UUID     `json:"userId"`
	Title           string        `json:"title"`
	Destination     string        `json:"destination"`
	StartDate       string        `json:"startDate"`
	EndDate         string        `json:"endDate"`
	Budget          string        `json:"budget"`
	Travelers       string        `json:"travelers"`
	Interests       string        `json:"interests"`
	Accommodation   string        `json:"accommodation"`
	Pace            string        `json:"pace"`
	AdditionalNotes string        `json:"additionalNotes"`
	Content         string        `json:"content"`
	ChatHistory     []ChatMessage `json:"chatHistory"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// GenerateItineraryRequest carries the trip parameters for a fresh
// itinerary stream. Dates use the YYYY-MM-DD layout.
type GenerateItineraryRequest struct {
	Destination     string `json:"destination" binding:"required"`
	StartDate       string `json:"startDate" binding:"required"`
	EndDate         string `json:"endDate" binding:"required"`
	Budget          string `json:"budget"`
	Travelers       string `json:"travelers"`
	Interests       string `json:"interests"`
	Accommodation   string `json:"accommodation"`
	Pace            string `json:"pace"`
	AdditionalNotes string `json:"additionalNotes"`
}

// SaveItineraryRequest persists a generated itinerary for the
// authenticated user. Title falls back to "<destination> Trip".
type SaveItineraryRequest struct {
	Title           string `json:"title"`
	Destination     string `json:"destination" binding:"required"`
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate"`
	Budget          string `json:"budget"`
	Travelers       string `json:"travelers"`
	Interests       string `json:"interests"`
	Accommodation   string `json:"accommodation"`
	Pace            string `json:"pace"`
	AdditionalNotes string `json:"additionalNotes"`
	Content         string `json:"content" binding:"required"`
}

// UpdateItineraryParams holds the mutable itinerary fields for the edit
// path. Nil fields are left untouched.
type UpdateItineraryParams struct {
	Title       *string        `json:"title"`
	Content     *string        `json:"content"`
	ChatHistory *[]ChatMessage `json:"chatHistory"`
}

// ChatRequest is a follow-up question about a saved itinerary.
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}
