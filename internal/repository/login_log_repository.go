package repository

import (
	"context"
	"database/sql"
)

// LoginLogRepo appends rows to 'login_logs'.
type LoginLogRepo struct{ DB *sql.DB }

func NewLoginLogRepo(db *sql.DB) *LoginLogRepo { return &LoginLogRepo{DB: db} }

// Record stores one successful login (or registration) for userID under
// the role the user held at that moment.
func (r *LoginLogRepo) Record(ctx context.Context, userID uint64, role string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO login_logs (user_id, role) VALUES (?,?)", userID, role)
	return err
}
