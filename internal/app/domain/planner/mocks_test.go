package planner

import (
	"context"

	"github.com/google/uuid"

	"github.com/FACorreiaa/tripflow/internal/app/llm"
	"github.com/FACorreiaa/tripflow/internal/app/models"
)

// mockLLMClient scripts a provider stream: it emits deltas in order and
// then returns err.
type mockLLMClient struct {
	deltas      []string
	err         error
	gotMessages []llm.Message
	gotParams   llm.Params
	calls       int
}

func (m *mockLLMClient) StreamChat(ctx context.Context, messages []llm.Message, params llm.Params, emit func(delta string) error) error {
	m.calls++
	m.gotMessages = messages
	m.gotParams = params
	for _, delta := range m.deltas {
		if err := emit(delta); err != nil {
			return err
		}
	}
	return m.err
}

type mockRepo struct {
	itinerary *models.Itinerary
	getErr    error
	appendErr error

	appendCalls int
	gotTurns    []models.ChatMessage
	gotID       uuid.UUID
	gotUserID   uuid.UUID
}

func (m *mockRepo) Insert(ctx context.Context, itinerary *models.Itinerary) (*models.Itinerary, error) {
	return itinerary, nil
}

func (m *mockRepo) GetByIDAndOwner(ctx context.Context, id, userID uuid.UUID) (*models.Itinerary, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.itinerary, nil
}

func (m *mockRepo) Update(ctx context.Context, id, userID uuid.UUID, params models.UpdateItineraryParams) error {
	return nil
}

func (m *mockRepo) AppendChatTurns(ctx context.Context, id, userID uuid.UUID, turns ...models.ChatMessage) error {
	m.appendCalls++
	m.gotID = id
	m.gotUserID = userID
	m.gotTurns = turns
	return m.appendErr
}
