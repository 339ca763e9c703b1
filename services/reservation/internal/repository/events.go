package repository

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Типы событий резерва, публикуемых через outbox
const (
	EventReservationCreated = "reservation.created"
	EventReservationUpdated = "reservation.updated"
	EventReservationDeleted = "reservation.deleted"
	EventReservationExpired = "reservation.expired"
	EventStateChanged       = "reservation.state_changed"
)

// ReservationEventPayload тело события в Kafka
type ReservationEventPayload struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	EventVersion  int       `json:"event_version"`
	OccurredAt    time.Time `json:"occurred_at"`
	ReservationID int64     `json:"reservation_id"`
	OrderRef      int64     `json:"order_ref"`
	StockRef      int64     `json:"stock_ref"`
	Quantity      int64     `json:"quantity"`
	State         string    `json:"state,omitempty"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// NewReservationEvent строит outbox событие для изменения резерва
func NewReservationEvent(eventType, topic string, r Reservation, now time.Time) (OutboxEvent, error) {
	eventID := uuid.NewString()
	payload, err := json.Marshal(ReservationEventPayload{
		EventID:       eventID,
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    now.UTC(),
		ReservationID: r.ID,
		OrderRef:      r.OrderRef,
		StockRef:      r.StockRef,
		Quantity:      r.Quantity,
		State:         r.StateName,
		ExpiresAt:     r.ExpiresAt.UTC(),
	})
	if err != nil {
		return OutboxEvent{}, fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	return OutboxEvent{
		EventID:     eventID,
		EventType:   eventType,
		Topic:       topic,
		AggregateID: strconv.FormatInt(r.OrderRef, 10),
		Payload:     payload,
		CreatedAt:   now.UTC(),
	}, nil
}

// StateEventType выбирает тип события для смены состояния
func StateEventType(stateName string) string {
	if stateName == StateExpired {
		return EventReservationExpired
	}
	return EventStateChanged
}
