package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/car-dealership/internal/database"
	"github.com/iliyamo/car-dealership/internal/model"
)

// BookingRepo manages 'bookings'.
type BookingRepo struct{ DB *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{DB: db} }

// Create inserts a pending booking and returns the stored row.  A car
// that vanished since the caller checked it yields ErrCarNotFound.
func (r *BookingRepo) Create(ctx context.Context, userID, carID uint64, date time.Time, typ string, message *string) (model.Booking, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO bookings (user_id, car_id, booking_date, type, status, message) VALUES (?,?,?,?,?,?)",
		userID, carID, date.UTC(), typ, model.BookingPending, message)
	if err != nil {
		if isForeignKey(err) {
			return model.Booking{}, ErrCarNotFound
		}
		return model.Booking{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Booking{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID loads a single booking.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	var (
		b   model.Booking
		msg sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, car_id, booking_date, type, status, message, created_at FROM bookings WHERE id=?", id).
		Scan(&b.ID, &b.UserID, &b.CarID, &b.BookingDate, &b.Type, &b.Status, &msg, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return b, ErrBookingNotFound
	}
	if msg.Valid {
		s := msg.String
		b.Message = &s
	}
	return b, err
}

const bookingDetailSelect = `
SELECT bk.id, bk.user_id, bk.car_id, bk.booking_date, bk.type, bk.status, bk.message, bk.created_at,
       c.year, COALESCE(m.name, ''), COALESCE(b.name, ''), COALESCE(u.email, '')
FROM bookings bk
JOIN cars c ON bk.car_id = c.id
LEFT JOIN models m ON c.model_id = m.id
LEFT JOIN brands b ON m.brand_id = b.id
LEFT JOIN users u ON bk.user_id = u.id`

func (r *BookingRepo) listDetails(ctx context.Context, where string, args ...any) ([]model.BookingDetail, error) {
	rows, err := r.DB.QueryContext(ctx, bookingDetailSelect+where+" ORDER BY bk.created_at DESC, bk.id DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BookingDetail{}
	for rows.Next() {
		var (
			d   model.BookingDetail
			msg sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.UserID, &d.CarID, &d.BookingDate, &d.Type, &d.Status, &msg, &d.CreatedAt,
			&d.Year, &d.ModelName, &d.BrandName, &d.UserEmail); err != nil {
			return nil, err
		}
		if msg.Valid {
			s := msg.String
			d.Message = &s
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListByUser returns userID's bookings with car details, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	return r.listDetails(ctx, " WHERE bk.user_id = ?", userID)
}

// ListAll returns every booking with car details and the booker's email.
func (r *BookingRepo) ListAll(ctx context.Context) ([]model.BookingDetail, error) {
	return r.listDetails(ctx, "")
}

// DeletePending deletes booking id on behalf of userID and sets the car
// back to available, atomically.  The row is locked for the duration so
// a concurrent status change cannot slip in between check and delete.
func (r *BookingRepo) DeletePending(ctx context.Context, id, userID uint64) (model.Booking, error) {
	var b model.Booking
	err := database.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			"SELECT id, user_id, car_id, status FROM bookings WHERE id=? FOR UPDATE", id).
			Scan(&b.ID, &b.UserID, &b.CarID, &b.Status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookingNotFound
		}
		if err != nil {
			return err
		}
		if b.UserID != userID {
			return ErrForbidden
		}
		if b.Status != model.BookingPending {
			return ErrBookingNotPending
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM bookings WHERE id=?", id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "UPDATE cars SET status=? WHERE id=?", model.CarAvailable, b.CarID)
		return err
	})
	return b, err
}

// UpdateStatus records an admin decision on booking id.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, status string) (model.Booking, error) {
	b, err := r.GetByID(ctx, id)
	if err != nil {
		return b, err
	}
	if _, err := r.DB.ExecContext(ctx, "UPDATE bookings SET status=? WHERE id=?", status, id); err != nil {
		return b, err
	}
	b.Status = status
	return b, nil
}
