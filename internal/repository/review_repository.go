package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/car-dealership/internal/model"
)

// ReviewRepo manages 'reviews'.
type ReviewRepo struct{ DB *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{DB: db} }

// List returns reviews with author email and car details, newest first.
// carID of zero returns reviews for every car.
func (r *ReviewRepo) List(ctx context.Context, carID uint64) ([]model.ReviewDetail, error) {
	q := `
SELECT rv.id, rv.user_id, rv.car_id, rv.rating, rv.comment, rv.created_at,
       COALESCE(u.email, ''), c.year, COALESCE(m.name, ''), COALESCE(b.name, '')
FROM reviews rv
JOIN cars c ON rv.car_id = c.id
LEFT JOIN users u ON rv.user_id = u.id
LEFT JOIN models m ON c.model_id = m.id
LEFT JOIN brands b ON m.brand_id = b.id`
	var args []any
	if carID != 0 {
		q += " WHERE rv.car_id = ?"
		args = append(args, carID)
	}
	q += " ORDER BY rv.created_at DESC, rv.id DESC"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ReviewDetail{}
	for rows.Next() {
		var d model.ReviewDetail
		if err := rows.Scan(&d.ID, &d.UserID, &d.CarID, &d.Rating, &d.Comment, &d.CreatedAt,
			&d.UserEmail, &d.Year, &d.ModelName, &d.BrandName); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetByID loads one review.
func (r *ReviewRepo) GetByID(ctx context.Context, id uint64) (model.Review, error) {
	var rv model.Review
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, car_id, rating, comment, created_at FROM reviews WHERE id=?", id).
		Scan(&rv.ID, &rv.UserID, &rv.CarID, &rv.Rating, &rv.Comment, &rv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rv, ErrReviewNotFound
	}
	return rv, err
}

// Create inserts a review and returns the stored row.
func (r *ReviewRepo) Create(ctx context.Context, userID, carID uint64, rating int, comment string) (model.Review, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO reviews (user_id, car_id, rating, comment) VALUES (?,?,?,?)",
		userID, carID, rating, comment)
	if err != nil {
		if isForeignKey(err) {
			return model.Review{}, ErrCarNotFound
		}
		return model.Review{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Review{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// Update changes rating and comment of review id.
func (r *ReviewRepo) Update(ctx context.Context, id uint64, rating int, comment string) (model.Review, error) {
	rv, err := r.GetByID(ctx, id)
	if err != nil {
		return rv, err
	}
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE reviews SET rating=?, comment=? WHERE id=?", rating, comment, id); err != nil {
		return rv, err
	}
	rv.Rating, rv.Comment = rating, comment
	return rv, nil
}

// Delete removes review id.
func (r *ReviewRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM reviews WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrReviewNotFound
	}
	return nil
}
