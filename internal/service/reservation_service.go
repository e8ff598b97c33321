// Package service implements the reservation lifecycle: listing with
// best-effort enrichment, creation, owner status updates, diner detail
// updates and deletion.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation-service/internal/model"
	"github.com/iliyamo/table-reservation-service/internal/queue"
	"github.com/iliyamo/table-reservation-service/internal/repository"
	"github.com/iliyamo/table-reservation-service/internal/restaurant"
)

// Store is the persistence surface the service needs.  It is satisfied by
// *repository.ReservationRepo.
type Store interface {
	ListByRestaurant(ctx context.Context, restaurantID uint64, pendingOnly bool) ([]model.Reservation, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error)
	Create(ctx context.Context, res *model.Reservation) error
	GetForUser(ctx context.Context, id, userID uint64) (*model.Reservation, error)
	UpdateStatus(ctx context.Context, id, restaurantID uint64, status string) (*model.Reservation, error)
	UpdateDetails(ctx context.Context, id uint64, date time.Time, numGuests int) (*model.Reservation, error)
	Delete(ctx context.Context, id, userID uint64) error
}

// Options wires a ReservationService.  Store and Owners are required;
// a nil Details disables enrichment and a nil Events drops events.
type Options struct {
	Store       Store
	Owners      restaurant.OwnerLookup
	Details     BulkLookupFunc
	Events      queue.Publisher
	Log         logrus.FieldLogger
	Policy      MatchPolicy
	StrictScope bool
}

// ReservationService coordinates the store, the restaurant service and
// the event publisher.  It is safe for concurrent use.
type ReservationService struct {
	store       Store
	owners      restaurant.OwnerLookup
	details     BulkLookupFunc
	events      queue.Publisher
	log         logrus.FieldLogger
	policy      MatchPolicy
	strictScope bool
}

// NewReservationService panics when a required dependency is missing.
func NewReservationService(opts Options) *ReservationService {
	if opts.Store == nil || opts.Owners == nil {
		panic("nil dependency passed to NewReservationService")
	}
	s := &ReservationService{
		store:       opts.Store,
		owners:      opts.Owners,
		details:     opts.Details,
		events:      opts.Events,
		log:         opts.Log,
		policy:      opts.Policy,
		strictScope: opts.StrictScope,
	}
	if s.events == nil {
		s.events = queue.NopPublisher{}
	}
	if s.log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		s.log = discard
	}
	if s.policy == "" {
		s.policy = MatchByUserID
	}
	return s
}

// CreateInput is what a diner submits to book a table.
type CreateInput struct {
	RestaurantID    uint64
	ReservationDate string
	NumGuests       int
}

// DetailsInput carries the optional fields of a detail update.  A nil or
// empty date and a nil or zero guest count keep the stored value.
type DetailsInput struct {
	ReservationDate *string
	NumGuests       *int
}

// ListByRestaurant returns the reservations of a restaurant, enriched.
// status "pending" (exact, case-sensitive) selects pending rows newest
// first; anything else returns every row oldest first.  An empty result is
// ErrNotFound.
func (s *ReservationService) ListByRestaurant(ctx context.Context, caller model.Caller, restaurantID uint64, status string) ([]model.DecoratedReservation, error) {
	rows, err := s.store.ListByRestaurant(ctx, restaurantID, status == model.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list restaurant reservations: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return Decorate(ctx, rows, s.details, s.policy, s.log), nil
}

// ListByUser returns the caller's reservations, newest first, enriched.
func (s *ReservationService) ListByUser(ctx context.Context, caller model.Caller) ([]model.DecoratedReservation, error) {
	rows, err := s.store.ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("list user reservations: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return Decorate(ctx, rows, s.details, s.policy, s.log), nil
}

// Create books a table for the caller.  The reservation always starts as
// pending.
func (s *ReservationService) Create(ctx context.Context, caller model.Caller, in CreateInput) (*model.Reservation, error) {
	date, err := ParseReservationDate(in.ReservationDate)
	if err != nil {
		return nil, err
	}
	if in.NumGuests < 1 {
		return nil, ErrInvalidGuests
	}
	res := &model.Reservation{
		UserID:          caller.UserID,
		RestaurantID:    in.RestaurantID,
		ReservationDate: date,
		NumGuests:       in.NumGuests,
		Status:          model.StatusPending,
	}
	if err := s.store.Create(ctx, res); err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}
	s.publish(ctx, queue.EventCreated, *res, caller.UserID)
	return res, nil
}

// UpdateStatus lets the owner of restaurantID overwrite the status of one
// of its reservations.  Ownership is checked first, before the status is
// validated and before anything is written.
// With strict scoping a reservation of another restaurant is ErrNotFound.
func (s *ReservationService) UpdateStatus(ctx context.Context, caller model.Caller, restaurantID, reservationID uint64, status string) (*model.Reservation, error) {
	if err := s.checkOwner(ctx, caller, restaurantID); err != nil {
		return nil, err
	}
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, ErrInvalidStatus
	}

	scope := uint64(0)
	if s.strictScope {
		scope = restaurantID
	}
	res, err := s.store.UpdateStatus(ctx, reservationID, scope, status)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update reservation status: %w", err)
	}
	s.publish(ctx, queue.EventStatusUpdated, *res, caller.UserID)
	return res, nil
}

// UpdateDetails changes the date and/or guest count of the caller's own
// reservation.  The row is read and then written without a transaction;
// a concurrent delete between the two surfaces as ErrNotFound.
func (s *ReservationService) UpdateDetails(ctx context.Context, caller model.Caller, reservationID uint64, in DetailsInput) (*model.Reservation, error) {
	current, err := s.store.GetForUser(ctx, reservationID, caller.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load reservation: %w", err)
	}

	date := current.ReservationDate
	if in.ReservationDate != nil && strings.TrimSpace(*in.ReservationDate) != "" {
		if date, err = ParseReservationDate(*in.ReservationDate); err != nil {
			return nil, err
		}
	}
	guests := current.NumGuests
	if in.NumGuests != nil && *in.NumGuests != 0 {
		if *in.NumGuests < 0 {
			return nil, ErrInvalidGuests
		}
		guests = *in.NumGuests
	}

	res, err := s.store.UpdateDetails(ctx, reservationID, date, guests)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update reservation: %w", err)
	}
	s.publish(ctx, queue.EventUpdated, *res, caller.UserID)
	return res, nil
}

// Delete removes the caller's own reservation permanently.
func (s *ReservationService) Delete(ctx context.Context, caller model.Caller, reservationID uint64) error {
	current, err := s.store.GetForUser(ctx, reservationID, caller.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load reservation: %w", err)
	}
	if err := s.store.Delete(ctx, reservationID, caller.UserID); err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete reservation: %w", err)
	}
	s.publish(ctx, queue.EventDeleted, *current, caller.UserID)
	return nil
}

func (s *ReservationService) checkOwner(ctx context.Context, caller model.Caller, restaurantID uint64) error {
	owner, err := s.owners.OwnerOf(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, restaurant.ErrRestaurantNotFound) {
			return ErrForbidden
		}
		return fmt.Errorf("check restaurant owner: %w", err)
	}
	if owner != caller.UserID {
		return ErrForbidden
	}
	return nil
}

// publish is best effort; a broker outage never fails the mutation.
func (s *ReservationService) publish(ctx context.Context, eventType string, res model.Reservation, actorID uint64) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	ev := queue.NewReservationEvent(eventType, res, actorID)
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"event":          eventType,
			"reservation_id": res.ID,
		}).Warn("publish reservation event failed")
	}
}
