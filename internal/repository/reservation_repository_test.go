package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation-service/internal/database"
	"github.com/iliyamo/table-reservation-service/internal/model"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Open(database.Options{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func seed(t *testing.T, repo *ReservationRepo, userID, restaurantID uint64, date time.Time, status string) model.Reservation {
	t.Helper()
	res := model.Reservation{UserID: userID, RestaurantID: restaurantID, ReservationDate: date, NumGuests: 2, Status: status}
	require.NoError(t, repo.Create(context.Background(), &res))
	return res
}

func TestCreateReadsBackStoredRow(t *testing.T) {
	repo := NewReservationRepo(newTestDB(t))
	date := time.Date(2026, 11, 3, 19, 30, 0, 0, time.FixedZone("CET", 3600))

	res := model.Reservation{UserID: 4, RestaurantID: 9, ReservationDate: date, NumGuests: 5, Status: model.StatusPending}
	require.NoError(t, repo.Create(context.Background(), &res))

	assert.NotZero(t, res.ID)
	assert.Equal(t, uint64(4), res.UserID)
	assert.Equal(t, uint64(9), res.RestaurantID)
	assert.Equal(t, 5, res.NumGuests)
	assert.Equal(t, model.StatusPending, res.Status)
	assert.True(t, date.Equal(res.ReservationDate), "got %v", res.ReservationDate)
	assert.Equal(t, time.UTC, res.ReservationDate.Location())
}

func TestListByRestaurantOrdering(t *testing.T) {
	repo := NewReservationRepo(newTestDB(t))
	base := time.Date(2026, 12, 1, 18, 0, 0, 0, time.UTC)
	seed(t, repo, 1, 7, base.Add(48*time.Hour), model.StatusPending)
	seed(t, repo, 2, 7, base, "confirmed")
	seed(t, repo, 3, 7, base.Add(24*time.Hour), model.StatusPending)
	seed(t, repo, 4, 8, base, model.StatusPending)

	all, err := repo.ListByRestaurant(context.Background(), 7, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].ReservationDate.Before(all[1].ReservationDate))
	assert.True(t, all[1].ReservationDate.Before(all[2].ReservationDate))

	pending, err := repo.ListByRestaurant(context.Background(), 7, true)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	for _, r := range pending {
		assert.Equal(t, model.StatusPending, r.Status)
	}
	assert.True(t, pending[0].ReservationDate.After(pending[1].ReservationDate))

	none, err := repo.ListByRestaurant(context.Background(), 99, false)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListByUserNewestFirst(t *testing.T) {
	repo := NewReservationRepo(newTestDB(t))
	base := time.Date(2026, 12, 1, 18, 0, 0, 0, time.UTC)
	seed(t, repo, 1, 7, base, model.StatusPending)
	seed(t, repo, 1, 8, base.Add(time.Hour), model.StatusPending)
	seed(t, repo, 2, 7, base, model.StatusPending)

	got, err := repo.ListByUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(8), got[0].RestaurantID)
	assert.Equal(t, uint64(7), got[1].RestaurantID)
}

func TestGetForUserScopesByOwner(t *testing.T) {
	repo := NewReservationRepo(newTestDB(t))
	res := seed(t, repo, 1, 7, time.Now().UTC(), model.StatusPending)

	_, err := repo.GetForUser(context.Background(), res.ID, 2)
	assert.ErrorIs(t, err, ErrReservationNotFound)

	got, err := repo.GetForUser(context.Background(), res.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, res.ID, got.ID)
}

func TestUpdateStatusScoping(t *testing.T) {
	repo := NewReservationRepo(newTestDB(t))
	res := seed(t, repo, 1, 7, time.Now().UTC(), model.StatusPending)

	_, err := repo.UpdateStatus(context.Background(), res.ID, 8, "confirmed")
	assert.ErrorIs(t, err, ErrReservationNotFound)

	got, err := repo.UpdateStatus(context.Background(), res.ID, 7, "confirmed")
	require.NoError(t, err)
	assert.Equal(t, "confirmed", got.Status)

	// unscoped write
	got, err = repo.UpdateStatus(context.Background(), res.ID, 0, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", got.Status)

	_, err = repo.UpdateStatus(context.Background(), res.ID+100, 0, "cancelled")
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestUpdateDetailsWritesBothColumns(t *testing.T) {
	repo := NewReservationRepo(newTestDB(t))
	res := seed(t, repo, 1, 7, time.Date(2026, 12, 1, 18, 0, 0, 0, time.UTC), model.StatusPending)
	newDate := time.Date(2026, 12, 2, 20, 0, 0, 0, time.UTC)

	got, err := repo.UpdateDetails(context.Background(), res.ID, newDate, 6)
	require.NoError(t, err)
	assert.True(t, newDate.Equal(got.ReservationDate))
	assert.Equal(t, 6, got.NumGuests)
	assert.Equal(t, model.StatusPending, got.Status)

	// unchanged values still count as a match
	_, err = repo.UpdateDetails(context.Background(), res.ID, newDate, 6)
	assert.NoError(t, err)
}

func TestDeleteOnlyOwnedRows(t *testing.T) {
	repo := NewReservationRepo(newTestDB(t))
	res := seed(t, repo, 1, 7, time.Now().UTC(), model.StatusPending)

	assert.ErrorIs(t, repo.Delete(context.Background(), res.ID, 2), ErrReservationNotFound)
	_, err := repo.GetByID(context.Background(), res.ID)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(context.Background(), res.ID, 1))
	_, err = repo.GetByID(context.Background(), res.ID)
	assert.ErrorIs(t, err, ErrReservationNotFound)
}
