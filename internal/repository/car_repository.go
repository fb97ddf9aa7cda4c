package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/iliyamo/car-dealership/internal/database"
	"github.com/iliyamo/car-dealership/internal/model"
)

// CarRepo reads and writes the 'cars' table and the brand/model catalogue
// it references.
type CarRepo struct{ DB *sql.DB }

func NewCarRepo(db *sql.DB) *CarRepo { return &CarRepo{DB: db} }

const carDetailSelect = `
SELECT c.id, c.model_id, c.year, c.price, c.description, c.image_url, c.model_3d_url,
       c.status, c.color, c.mileage, c.fuel_type, c.created_at,
       COALESCE(m.name, ''), COALESCE(b.name, '')
FROM cars c
LEFT JOIN models m ON c.model_id = m.id
LEFT JOIN brands b ON m.brand_id = b.id`

func scanCarDetail(row interface{ Scan(...any) error }) (model.CarDetail, error) {
	var (
		d     model.CarDetail
		color sql.NullString
	)
	err := row.Scan(&d.ID, &d.ModelID, &d.Year, &d.Price, &d.Description, &d.ImageURL, &d.Model3DURL,
		&d.Status, &color, &d.Mileage, &d.FuelType, &d.CreatedAt, &d.ModelName, &d.BrandName)
	if err != nil {
		return d, err
	}
	if color.Valid {
		s := color.String
		d.Color = &s
	}
	return d, nil
}

// List returns cars newest first.  A non-empty status restricts the
// result to that status.
func (r *CarRepo) List(ctx context.Context, status string) ([]model.CarDetail, error) {
	q := carDetailSelect
	var args []any
	if status != "" {
		q += " WHERE c.status = ?"
		args = append(args, status)
	}
	q += " ORDER BY c.created_at DESC, c.id DESC"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.CarDetail{}
	for rows.Next() {
		d, err := scanCarDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetByID returns one car with its model and brand names.
func (r *CarRepo) GetByID(ctx context.Context, id uint64) (model.CarDetail, error) {
	d, err := scanCarDetail(r.DB.QueryRowContext(ctx, carDetailSelect+" WHERE c.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrCarNotFound
	}
	return d, err
}

// Exists reports whether a car with id is present.
func (r *CarRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM cars WHERE id=?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Create inserts c and returns its new id.  An unknown model id yields
// ErrUnknownModel.
func (r *CarRepo) Create(ctx context.Context, c model.Car) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO cars (model_id, year, price, description, image_url, model_3d_url, status, color, mileage, fuel_type)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		c.ModelID, c.Year, c.Price, c.Description, c.ImageURL, c.Model3DURL, c.Status, c.Color, c.Mileage, c.FuelType)
	if err != nil {
		if isForeignKey(err) {
			return 0, ErrUnknownModel
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update overwrites every column of car c.ID.
func (r *CarRepo) Update(ctx context.Context, c model.Car) error {
	ok, err := r.Exists(ctx, c.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCarNotFound
	}
	_, err = r.DB.ExecContext(ctx,
		`UPDATE cars SET model_id=?, year=?, price=?, description=?, image_url=?, model_3d_url=?,
		 status=?, color=?, mileage=?, fuel_type=? WHERE id=?`,
		c.ModelID, c.Year, c.Price, c.Description, c.ImageURL, c.Model3DURL, c.Status, c.Color, c.Mileage, c.FuelType, c.ID)
	if isForeignKey(err) {
		return ErrUnknownModel
	}
	return err
}

// Delete removes the car's bookings and reviews, then the car, in one
// transaction.
func (r *CarRepo) Delete(ctx context.Context, id uint64) error {
	return database.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM bookings WHERE car_id=?", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM reviews WHERE car_id=?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM cars WHERE id=?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrCarNotFound
		}
		return nil
	})
}

// Brands returns every brand name in alphabetical order.
func (r *CarRepo) Brands(ctx context.Context) ([]string, error) {
	return r.strings(ctx, "SELECT name FROM brands ORDER BY name")
}

// Years returns the distinct model years of listed cars, newest first,
// formatted as strings.
func (r *CarRepo) Years(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT DISTINCT year FROM cars ORDER BY year DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		out = append(out, strconv.Itoa(y))
	}
	return out, rows.Err()
}

func (r *CarRepo) strings(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
