package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/car-dealership/internal/model"
)

// ContactRepo manages 'contacts'.
type ContactRepo struct{ DB *sql.DB }

func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{DB: db} }

func scanContact(row interface{ Scan(...any) error }) (model.Contact, error) {
	var (
		c    model.Contact
		file sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Message, &file, &c.Status, &c.CreatedAt); err != nil {
		return c, err
	}
	if file.Valid {
		s := file.String
		c.FileName = &s
	}
	return c, nil
}

// Create stores a pending contact message and returns its id.
func (r *ContactRepo) Create(ctx context.Context, name, email, message string, fileName *string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO contacts (name, email, message, file_name, status) VALUES (?,?,?,?,?)",
		name, email, message, fileName, model.ContactPending)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// List returns every contact message, newest first.
func (r *ContactRepo) List(ctx context.Context) ([]model.Contact, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, name, email, message, file_name, status, created_at FROM contacts ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetByID loads one contact message.
func (r *ContactRepo) GetByID(ctx context.Context, id uint64) (model.Contact, error) {
	c, err := scanContact(r.DB.QueryRowContext(ctx,
		"SELECT id, name, email, message, file_name, status, created_at FROM contacts WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrContactNotFound
	}
	return c, err
}

// MarkReplied sets the status of contact id to replied.
func (r *ContactRepo) MarkReplied(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE contacts SET status=? WHERE id=?", model.ContactReplied, id)
	return err
}

// Delete removes contact id.
func (r *ContactRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM contacts WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrContactNotFound
	}
	return nil
}
