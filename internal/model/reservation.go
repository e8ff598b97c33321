package model

import "time"

// Reservation records a diner's booking at a restaurant for a date and a
// number of guests.  It is the only entity persisted by this service.
//
// Fields:
//  ID             – primary key identifier, generated by the store.
//  UserID         – diner who made the reservation; never reassigned.
//  RestaurantID   – restaurant the reservation is made against.
//  ReservationDate – date and time of the booking, stored in UTC.
//  NumGuests      – number of diners, always positive.
//  Status         – pending at creation, then whatever the restaurant owner
//                   sets (confirmed, cancelled, ...).
type Reservation struct {
	ID              uint64    `db:"reservation_id" json:"reservation_id"`     // reservations.reservation_id
	UserID          uint64    `db:"user_id" json:"user_id"`                   // reservations.user_id
	RestaurantID    uint64    `db:"restaurant_id" json:"restaurant_id"`       // reservations.restaurant_id
	ReservationDate time.Time `db:"reservation_date" json:"reservation_date"` // reservations.reservation_date
	NumGuests       int       `db:"num_guests" json:"num_guests"`             // reservations.num_guests
	Status          string    `db:"status" json:"status"`                     // reservations.status
}

// StatusPending is the status every reservation is created with.
const StatusPending = "pending"

// RestaurantDetails is the display metadata returned by the restaurant
// service.  The payload is passed through to clients untouched, so it is
// kept as a generic JSON object.
type RestaurantDetails map[string]any

// DecoratedReservation is a reservation with the restaurant details
// attached for response purposes.  It is never stored.  UserDetails is
// nil when enrichment failed or no details matched the reservation.
type DecoratedReservation struct {
	Reservation
	UserDetails RestaurantDetails `json:"userDetails,omitempty"`
}
