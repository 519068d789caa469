// Package itineraries persists saved travel plans and their chat
// histories.
package itineraries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/tripflow/internal/app/models"
)

// DB is the subset of pgxpool.Pool the repository needs. Kept narrow so
// tests can substitute a mock pool.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Repository = (*RepositoryImpl)(nil)

// Repository defines the contract for itinerary persistence. Every read
// and write is scoped to the owning user.
type Repository interface {
	Insert(ctx context.Context, itinerary *models.Itinerary) (*models.Itinerary, error)
	GetByIDAndOwner(ctx context.Context, id, userID uuid.UUID) (*models.Itinerary, error)
	Update(ctx context.Context, id, userID uuid.UUID, params models.UpdateItineraryParams) error
	AppendChatTurns(ctx context.Context, id, userID uuid.UUID, turns ...models.ChatMessage) error
}

const cacheTTL = 5 * time.Minute

type RepositoryImpl struct {
	logger *zap.Logger
	db     DB
	cache  *gocache.Cache
}

func NewRepositoryImpl(db DB, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		db:     db,
		cache:  gocache.New(cacheTTL, 10*time.Minute),
	}
}

func cacheKey(id, userID uuid.UUID) string {
	return id.String() + ":" + userID.String()
}

// Insert stores a new itinerary and returns it with the generated id and
// timestamps filled in.
func (r *RepositoryImpl) Insert(ctx context.Context, itinerary *models.Itinerary) (*models.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryRepo").Start(ctx, "Insert", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "itineraries"),
		attribute.String("db.user.id", itinerary.UserID.String()),
	))
	defer span.End()

	l := r.logger.With(zap.String("method", "Insert"), zap.String("userID", itinerary.UserID.String()))
	l.Debug("Saving new itinerary")

	if itinerary.Title == "" || itinerary.Content == "" {
		span.SetStatus(codes.Error, "Missing required fields")
		return nil, fmt.Errorf("itinerary title and content are required: %w", models.ErrBadRequest)
	}

	history := itinerary.ChatHistory
	if history == nil {
		history = []models.ChatMessage{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("marshal chat history: %w", err)
	}

	query := `
        INSERT INTO itineraries (user_id, title, destination, start_date, end_date, budget, travelers,
                                 interests, accommodation, pace, additional_notes, content, chat_history)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id, created_at, updated_at`

	saved := *itinerary
	err = r.db.QueryRow(ctx, query,
		itinerary.UserID, itinerary.Title, itinerary.Destination, itinerary.StartDate, itinerary.EndDate,
		itinerary.Budget, itinerary.Travelers, itinerary.Interests, itinerary.Accommodation,
		itinerary.Pace, itinerary.AdditionalNotes, itinerary.Content, historyJSON,
	).Scan(&saved.ID, &saved.CreatedAt, &saved.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			l.Warn("Duplicate itinerary insert", zap.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Duplicate itinerary")
			return nil, fmt.Errorf("itinerary already exists: %w", models.ErrConflict)
		}
		l.Error("Failed to insert itinerary", zap.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("database error saving itinerary: %w", err)
	}
	saved.ChatHistory = history

	l.Info("Itinerary saved successfully", zap.String("itineraryID", saved.ID.String()))
	span.SetAttributes(attribute.String("db.itinerary.id", saved.ID.String()))
	span.SetStatus(codes.Ok, "Itinerary saved")
	return &saved, nil
}

// GetByIDAndOwner fetches one itinerary. A row owned by another user is
// reported as not found, never as forbidden, so ids cannot be probed.
func (r *RepositoryImpl) GetByIDAndOwner(ctx context.Context, id, userID uuid.UUID) (*models.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryRepo").Start(ctx, "GetByIDAndOwner", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "itineraries"),
		attribute.String("db.itinerary.id", id.String()),
	))
	defer span.End()

	l := r.logger.With(zap.String("method", "GetByIDAndOwner"), zap.String("itineraryID", id.String()))

	if cached, found := r.cache.Get(cacheKey(id, userID)); found {
		if itinerary, ok := cached.(models.Itinerary); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			result := itinerary
			return &result, nil
		}
	}

	query := `
        SELECT id, user_id, title, destination, start_date, end_date, budget, travelers,
               interests, accommodation, pace, additional_notes, content, chat_history,
               created_at, updated_at
        FROM itineraries
        WHERE id = $1 AND user_id = $2`

	var itinerary models.Itinerary
	var historyJSON []byte
	err := r.db.QueryRow(ctx, query, id, userID).Scan(
		&itinerary.ID, &itinerary.UserID, &itinerary.Title, &itinerary.Destination,
		&itinerary.StartDate, &itinerary.EndDate, &itinerary.Budget, &itinerary.Travelers,
		&itinerary.Interests, &itinerary.Accommodation, &itinerary.Pace, &itinerary.AdditionalNotes,
		&itinerary.Content, &historyJSON, &itinerary.CreatedAt, &itinerary.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Itinerary not found")
			return nil, fmt.Errorf("itinerary %s: %w", id, models.ErrNotFound)
		}
		l.Error("Failed to fetch itinerary", zap.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching itinerary: %w", err)
	}

	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &itinerary.ChatHistory); err != nil {
			l.Error("Failed to decode chat history", zap.Any("error", err))
			return nil, fmt.Errorf("decode chat history: %w", err)
		}
	}
	if itinerary.ChatHistory == nil {
		itinerary.ChatHistory = []models.ChatMessage{}
	}

	r.cache.Set(cacheKey(id, userID), itinerary, cacheTTL)
	span.SetStatus(codes.Ok, "Itinerary fetched")
	return &itinerary, nil
}

// Update applies the edit path: only non-nil fields change. The updated
// row must exist and belong to userID.
func (r *RepositoryImpl) Update(ctx context.Context, id, userID uuid.UUID, params models.UpdateItineraryParams) error {
	ctx, span := otel.Tracer("ItineraryRepo").Start(ctx, "Update", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "itineraries"),
		attribute.String("db.itinerary.id", id.String()),
	))
	defer span.End()

	l := r.logger.With(zap.String("method", "Update"), zap.String("itineraryID", id.String()))

	qb := sq.Update("itineraries").
		PlaceholderFormat(sq.Dollar).
		Set("updated_at", sq.Expr("NOW()"))

	changed := false
	if params.Title != nil {
		qb = qb.Set("title", *params.Title)
		changed = true
	}
	if params.Content != nil {
		qb = qb.Set("content", *params.Content)
		changed = true
	}
	if params.ChatHistory != nil {
		historyJSON, err := json.Marshal(*params.ChatHistory)
		if err != nil {
			return fmt.Errorf("marshal chat history: %w", err)
		}
		qb = qb.Set("chat_history", historyJSON)
		changed = true
	}
	if !changed {
		span.SetStatus(codes.Error, "No fields to update")
		return fmt.Errorf("no updatable fields provided: %w", models.ErrBadRequest)
	}

	query, args, err := qb.Where(sq.Eq{"id": id, "user_id": userID}).ToSql()
	if err != nil {
		return fmt.Errorf("build update query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		l.Error("Failed to update itinerary", zap.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error updating itinerary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Itinerary not found")
		return fmt.Errorf("itinerary %s: %w", id, models.ErrNotFound)
	}

	r.cache.Delete(cacheKey(id, userID))
	l.Info("Itinerary updated successfully")
	span.SetStatus(codes.Ok, "Itinerary updated")
	return nil
}

// AppendChatTurns atomically appends turns to the stored conversation.
// The jsonb concatenation happens in the database, so concurrent appends
// to the same itinerary never lose turns.
func (r *RepositoryImpl) AppendChatTurns(ctx context.Context, id, userID uuid.UUID, turns ...models.ChatMessage) error {
	ctx, span := otel.Tracer("ItineraryRepo").Start(ctx, "AppendChatTurns", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "itineraries"),
		attribute.String("db.itinerary.id", id.String()),
		attribute.Int("chat.turns", len(turns)),
	))
	defer span.End()

	l := r.logger.With(zap.String("method", "AppendChatTurns"), zap.String("itineraryID", id.String()))

	if len(turns) == 0 {
		return nil
	}

	turnsJSON, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("marshal chat turns: %w", err)
	}

	query := `
        UPDATE itineraries
        SET chat_history = chat_history || $1::jsonb, updated_at = NOW()
        WHERE id = $2 AND user_id = $3`

	tag, err := r.db.Exec(ctx, query, turnsJSON, id, userID)
	if err != nil {
		l.Error("Failed to append chat turns", zap.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error appending chat turns: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Itinerary not found")
		return fmt.Errorf("itinerary %s: %w", id, models.ErrNotFound)
	}

	r.cache.Delete(cacheKey(id, userID))
	l.Debug("Chat turns appended", zap.Int("count", len(turns)))
	span.SetStatus(codes.Ok, "Chat turns appended")
	return nil
}
