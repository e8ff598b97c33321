package service

import "errors"

// Domain errors returned by ReservationService.  The HTTP layer maps them
// to status codes; anything else is an internal failure.
var (
	ErrNotFound      = errors.New("reservation not found")
	ErrForbidden     = errors.New("caller does not own this restaurant")
	ErrInvalidDate   = errors.New("invalid reservation_date")
	ErrInvalidGuests = errors.New("num_guests must be a positive number")
	ErrInvalidStatus = errors.New("status must not be empty")
)
