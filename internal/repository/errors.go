// Package repository defines error types that are reused across the data
// access layer.  These sentinel values allow higher layers such as the
// reservation service to distinguish a missing row from a store failure.
package repository

import "errors"

// ErrReservationNotFound is returned when no reservation matches the
// lookup, including lookups scoped to a user or restaurant that does not
// own the row.  The service translates it into an HTTP 404.
var ErrReservationNotFound = errors.New("reservation not found")
