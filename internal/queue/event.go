// Package queue defines the reservation lifecycle events and the broker
// adapters that publish and consume them.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/table-reservation-service/internal/model"
)

// Event types published after a successful mutation.
const (
	EventCreated       = "reservation.created"
	EventStatusUpdated = "reservation.status_updated"
	EventUpdated       = "reservation.updated"
	EventDeleted       = "reservation.deleted"
)

// ReservationEvent carries the state of a reservation right after a
// mutation, so downstream consumers can log or aggregate it without
// querying the reservations store.
type ReservationEvent struct {
	EventID         string    `json:"event_id"`
	Type            string    `json:"type"`
	ReservationID   uint64    `json:"reservation_id"`
	UserID          uint64    `json:"user_id"`
	RestaurantID    uint64    `json:"restaurant_id"`
	ReservationDate time.Time `json:"reservation_date"`
	NumGuests       int       `json:"num_guests"`
	Status          string    `json:"status"`
	ActorID         uint64    `json:"actor_id"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NewReservationEvent snapshots res for the given event type.
func NewReservationEvent(eventType string, res model.Reservation, actorID uint64) ReservationEvent {
	return ReservationEvent{
		EventID:         uuid.NewString(),
		Type:            eventType,
		ReservationID:   res.ID,
		UserID:          res.UserID,
		RestaurantID:    res.RestaurantID,
		ReservationDate: res.ReservationDate,
		NumGuests:       res.NumGuests,
		Status:          res.Status,
		ActorID:         actorID,
		OccurredAt:      time.Now().UTC(),
	}
}
