package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rxexchange-backend/pkg/db/models"
	"github.com/angelmondragon/rxexchange-backend/pkg/enums"
	"github.com/angelmondragon/rxexchange-backend/pkg/logger"
)

// DomainEvent is a state change to be recorded alongside the write that
// caused it. Data is marshalled into the envelope's data field.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

var errNoTx = errors.New("outbox: transaction required")

type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	if repo == nil {
		repo = NewRepository()
	}
	return &Service{repo: repo, logg: logg}
}

// Emit writes event through tx, so it is only visible if the surrounding
// order transaction commits.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errNoTx
	}
	row, eventID, err := toRow(event)
	if err != nil {
		return err
	}
	if err := s.repo.Insert(ctx, tx, row); err != nil {
		return fmt.Errorf("outbox: insert %s: %w", event.EventType, err)
	}

	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
		"event_id":       eventID,
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
	}), "outbox event queued")
	return nil
}

func toRow(event DomainEvent) (models.OutboxEvent, string, error) {
	switch {
	case !event.EventType.IsValid():
		return models.OutboxEvent{}, "", fmt.Errorf("outbox: unknown event type %q", event.EventType)
	case !event.AggregateType.IsValid():
		return models.OutboxEvent{}, "", fmt.Errorf("outbox: unknown aggregate type %q", event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return models.OutboxEvent{}, "", errors.New("outbox: aggregate id required")
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return models.OutboxEvent{}, "", fmt.Errorf("outbox: marshal %s data: %w", event.EventType, err)
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	occurred = occurred.UTC()

	envelope := PayloadEnvelope{
		Version:    max(event.Version, 1),
		EventID:    uuid.NewString(),
		OccurredAt: occurred,
		Actor:      event.Actor,
		Data:       data,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return models.OutboxEvent{}, "", fmt.Errorf("outbox: marshal envelope: %w", err)
	}

	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
		CreatedAt:     occurred,
	}, envelope.EventID, nil
}
