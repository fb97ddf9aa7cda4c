package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/car-dealership/internal/database"
	"github.com/iliyamo/car-dealership/internal/model"
	"github.com/iliyamo/car-dealership/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,username,email,password_hash,role,created_at"

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrUserNotFound
	}
	return u, err
}

// Create hashes password and inserts the user, returning its ID.
func (r *UserRepo) Create(ctx context.Context, username, email, password, role string, cost int) (uint64, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, role) VALUES (?,?,?,?)",
		username, model.NormalizeEmail(email), hash, role)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", model.NormalizeEmail(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// List returns every user, newest first, with the time of their last
// login and the derived Active/Inactive status.
func (r *UserRepo) List(ctx context.Context) ([]model.UserWithActivity, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT u.id, u.username, u.email, u.role, u.created_at, l.last_login
FROM users u
LEFT JOIN (SELECT user_id, MAX(login_at) AS last_login FROM login_logs GROUP BY user_id) l
  ON l.user_id = u.id
ORDER BY u.created_at DESC, u.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	now := time.Now().UTC()
	out := []model.UserWithActivity{}
	for rows.Next() {
		var (
			u    model.UserWithActivity
			last sql.NullTime
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.CreatedAt, &last); err != nil {
			return nil, err
		}
		if last.Valid {
			t := last.Time
			u.LastLogin = &t
		}
		u.Status = model.ActivityStatus(u.LastLogin, now)
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update overwrites username, email and role.  A non-empty password is
// rehashed and stored too.
func (r *UserRepo) Update(ctx context.Context, id uint64, username, email, role, password string, cost int) error {
	var (
		res sql.Result
		err error
	)
	email = model.NormalizeEmail(email)
	if password != "" {
		hash, herr := utils.HashPassword(password, cost)
		if herr != nil {
			return herr
		}
		res, err = r.DB.ExecContext(ctx,
			"UPDATE users SET username=?, email=?, role=?, password_hash=? WHERE id=?",
			username, email, role, hash, id)
	} else {
		res, err = r.DB.ExecContext(ctx,
			"UPDATE users SET username=?, email=?, role=? WHERE id=?",
			username, email, role, id)
	}
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	return r.requireRow(ctx, res, id)
}

// requireRow distinguishes "no such user" from "nothing changed" since
// MySQL reports zero affected rows for an update that writes equal values.
func (r *UserRepo) requireRow(ctx context.Context, res sql.Result, id uint64) error {
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	return err
}

// Delete removes the user together with their login logs, bookings and
// reviews in one transaction.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	return database.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		for _, q := range []string{
			"DELETE FROM login_logs WHERE user_id=?",
			"DELETE FROM bookings WHERE user_id=?",
			"DELETE FROM reviews WHERE user_id=?",
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

// FirstAdminEmail returns the email of the earliest admin account.
func (r *UserRepo) FirstAdminEmail(ctx context.Context) (string, error) {
	var email string
	err := r.DB.QueryRowContext(ctx,
		"SELECT email FROM users WHERE role=? ORDER BY id LIMIT 1", model.RoleAdmin).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	return email, err
}
