package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation-service/internal/model"
	"github.com/iliyamo/table-reservation-service/internal/restaurant"
)

// MatchPolicy decides which reservation field is sent to the bulk lookup
// and which details field it is matched back against.  The request and
// the match always use the same identifier.
type MatchPolicy string

const (
	// MatchByUserID sends {"user_ids": [...]} and matches details.owner_id
	// against reservation.user_id.
	MatchByUserID MatchPolicy = "user_id"
	// MatchByRestaurantID sends {"restaurant_ids": [...]} and matches
	// details.restaurant_id against reservation.restaurant_id.
	MatchByRestaurantID MatchPolicy = "restaurant_id"
)

// ParseMatchPolicy validates a configured policy name.  Empty means
// MatchByUserID.
func ParseMatchPolicy(raw string) (MatchPolicy, error) {
	switch MatchPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", MatchByUserID:
		return MatchByUserID, nil
	case MatchByRestaurantID:
		return MatchByRestaurantID, nil
	}
	return "", fmt.Errorf("unknown enrichment match policy %q", raw)
}

// RequestField is the JSON key of the id list in the bulk request body.
func (p MatchPolicy) RequestField() string {
	if p == MatchByRestaurantID {
		return "restaurant_ids"
	}
	return "user_ids"
}

func (p MatchPolicy) detailsKey() string {
	if p == MatchByRestaurantID {
		return "restaurant_id"
	}
	return "owner_id"
}

func (p MatchPolicy) key(r model.Reservation) uint64 {
	if p == MatchByRestaurantID {
		return r.RestaurantID
	}
	return r.UserID
}

// BulkLookupFunc fetches details for a set of identifiers in one call.
// field is the request key produced by MatchPolicy.RequestField.
type BulkLookupFunc func(ctx context.Context, field string, ids []uint64) ([]model.RestaurantDetails, error)

// Decorate attaches restaurant details to each reservation.  It performs
// at most one lookup per call and never fails: on any lookup error the
// records are returned without details.  The result has the same length
// and order as records.
func Decorate(ctx context.Context, records []model.Reservation, lookup BulkLookupFunc, policy MatchPolicy, log logrus.FieldLogger) []model.DecoratedReservation {
	out := make([]model.DecoratedReservation, len(records))
	for i, r := range records {
		out[i].Reservation = r
	}
	if len(records) == 0 || lookup == nil {
		return out
	}

	ids := make([]uint64, 0, len(records))
	seen := make(map[uint64]struct{}, len(records))
	for _, r := range records {
		id := policy.key(r)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	details, err := lookup(ctx, policy.RequestField(), ids)
	if err != nil {
		if log != nil {
			log.WithError(err).WithField("ids", len(ids)).Warn("reservation enrichment failed; returning plain records")
		}
		return out
	}

	byID := make(map[uint64]model.RestaurantDetails, len(details))
	for _, d := range details {
		id, ok := restaurant.IDField(d, policy.detailsKey())
		if !ok {
			continue
		}
		// first match wins
		if _, dup := byID[id]; !dup {
			byID[id] = d
		}
	}
	for i := range out {
		if d, ok := byID[policy.key(out[i].Reservation)]; ok {
			out[i].UserDetails = d
		}
	}
	return out
}
