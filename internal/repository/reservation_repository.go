package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/table-reservation-service/internal/model"
)

// ReservationRepo provides CRUD operations for the reservations table.
// Queries are written with ? placeholders and rebound for the driver in
// use, so the same repository serves MySQL, PostgreSQL and SQLite.  All
// timestamps are written and returned in UTC.
type ReservationRepo struct {
	db *sqlx.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given pool.
func NewReservationRepo(db *sqlx.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `reservation_id, user_id, restaurant_id, reservation_date, num_guests, status`

// ListByRestaurant returns the reservations made against a restaurant.
// With pendingOnly set, only rows with status pending are returned, newest
// date first; otherwise every row is returned, oldest date first.
func (r *ReservationRepo) ListByRestaurant(ctx context.Context, restaurantID uint64, pendingOnly bool) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE restaurant_id = ? ORDER BY reservation_date`
	args := []any{restaurantID}
	if pendingOnly {
		q = `SELECT ` + reservationColumns + ` FROM reservations WHERE restaurant_id = ? AND status = ? ORDER BY reservation_date DESC`
		args = append(args, model.StatusPending)
	}
	return r.list(ctx, q, args...)
}

// ListByUser returns every reservation owned by userID, newest date first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = ? ORDER BY reservation_date DESC`
	return r.list(ctx, q, userID)
}

func (r *ReservationRepo) list(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	var out []model.Reservation
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("select reservations: %w", err)
	}
	for i := range out {
		out[i].ReservationDate = out[i].ReservationDate.UTC()
	}
	return out, nil
}

// Create inserts a new reservation and populates the generated ID.  The
// row is read back afterwards so callers receive exactly what was stored.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	res.ReservationDate = res.ReservationDate.UTC()
	const qInsert = `INSERT INTO reservations (user_id, restaurant_id, reservation_date, num_guests, status) VALUES (?, ?, ?, ?, ?)`
	args := []any{res.UserID, res.RestaurantID, res.ReservationDate, res.NumGuests, res.Status}

	var id uint64
	if sqlx.BindType(r.db.DriverName()) == sqlx.DOLLAR {
		// lib/pq does not implement LastInsertId
		if err := r.db.QueryRowxContext(ctx, r.db.Rebind(qInsert+` RETURNING reservation_id`), args...).Scan(&id); err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
	} else {
		result, err := r.db.ExecContext(ctx, r.db.Rebind(qInsert), args...)
		if err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		lastID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		id = uint64(lastID)
	}

	stored, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	*res = *stored
	return nil
}

// GetByID fetches a reservation regardless of owner.  It returns
// ErrReservationNotFound if no row matches.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE reservation_id = ?`
	return r.get(ctx, q, id)
}

// GetForUser fetches a reservation only if it belongs to userID.  A row
// owned by someone else is reported as ErrReservationNotFound.
func (r *ReservationRepo) GetForUser(ctx context.Context, id, userID uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE reservation_id = ? AND user_id = ?`
	return r.get(ctx, q, id, userID)
}

func (r *ReservationRepo) get(ctx context.Context, q string, args ...any) (*model.Reservation, error) {
	var res model.Reservation
	if err := r.db.GetContext(ctx, &res, r.db.Rebind(q), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("select reservation: %w", err)
	}
	res.ReservationDate = res.ReservationDate.UTC()
	return &res, nil
}

// UpdateStatus overwrites the status of a reservation and returns the
// updated row.  A non-zero restaurantID additionally scopes the write to
// that restaurant; zero writes by reservation id alone.
// ErrReservationNotFound is returned when nothing matched.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id, restaurantID uint64, status string) (*model.Reservation, error) {
	q := `UPDATE reservations SET status = ? WHERE reservation_id = ?`
	args := []any{status, id}
	if restaurantID != 0 {
		q += ` AND restaurant_id = ?`
		args = append(args, restaurantID)
	}
	if err := r.exec(ctx, q, args...); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// UpdateDetails writes the date and guest count of a reservation and
// returns the updated row.  Both columns are always written.
func (r *ReservationRepo) UpdateDetails(ctx context.Context, id uint64, date time.Time, numGuests int) (*model.Reservation, error) {
	const q = `UPDATE reservations SET reservation_date = ?, num_guests = ? WHERE reservation_id = ?`
	if err := r.exec(ctx, q, date.UTC(), numGuests, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete physically removes a reservation owned by userID.
func (r *ReservationRepo) Delete(ctx context.Context, id, userID uint64) error {
	const q = `DELETE FROM reservations WHERE reservation_id = ? AND user_id = ?`
	return r.exec(ctx, q, id, userID)
}

// exec runs a write and reports ErrReservationNotFound when no row matched.
func (r *ReservationRepo) exec(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), args...)
	if err != nil {
		return fmt.Errorf("write reservation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write reservation: %w", err)
	}
	if n == 0 {
		return ErrReservationNotFound
	}
	return nil
}
