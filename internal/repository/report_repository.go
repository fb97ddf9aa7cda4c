package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/car-dealership/internal/model"
)

// ReportRepo runs the aggregate queries behind the admin dashboard and
// reports.  All of them read users and login_logs only.
type ReportRepo struct{ DB *sql.DB }

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{DB: db} }

func (r *ReportRepo) buckets(ctx context.Context, q string, args ...any) ([]model.CountBucket, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.CountBucket{}
	for rows.Next() {
		var b model.CountBucket
		if err := rows.Scan(&b.Date, &b.Count); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Dashboard returns client registrations and logins for the seven most
// recent days that had any, plus overall client totals.
func (r *ReportRepo) Dashboard(ctx context.Context) (model.Dashboard, error) {
	var (
		d   model.Dashboard
		err error
	)
	d.RegisterData, err = r.buckets(ctx, `
SELECT DATE_FORMAT(created_at, '%Y-%m-%d') AS date, COUNT(*)
FROM users WHERE role = ?
GROUP BY date ORDER BY date DESC LIMIT 7`, model.RoleClient)
	if err != nil {
		return d, fmt.Errorf("registrations: %w", err)
	}
	d.LoginData, err = r.buckets(ctx, `
SELECT DATE_FORMAT(login_at, '%Y-%m-%d') AS date, COUNT(*)
FROM login_logs WHERE role = ?
GROUP BY date ORDER BY date DESC LIMIT 7`, model.RoleClient)
	if err != nil {
		return d, fmt.Errorf("logins: %w", err)
	}
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE role = ?", model.RoleClient).Scan(&d.TotalRegisters); err != nil {
		return d, err
	}
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM login_logs WHERE role = ?", model.RoleClient).Scan(&d.TotalLogins); err != nil {
		return d, err
	}
	return d, nil
}

// RecentActivity returns the latest limit logins as feed entries.
func (r *ReportRepo) RecentActivity(ctx context.Context, limit int) ([]model.Activity, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT u.username, l.role, l.login_at
FROM login_logs l JOIN users u ON l.user_id = u.id
ORDER BY l.login_at DESC, l.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Activity{}
	for rows.Next() {
		var (
			name, role string
			a          model.Activity
		)
		if err := rows.Scan(&name, &role, &a.Timestamp); err != nil {
			return nil, err
		}
		a.Message = fmt.Sprintf("User %s (%s) logged in", name, role)
		out = append(out, a)
	}
	return out, rows.Err()
}

// DailyLogins counts logins per day over the last 30 days, most recent
// day first.
func (r *ReportRepo) DailyLogins(ctx context.Context) ([]model.CountBucket, error) {
	return r.buckets(ctx, `
SELECT DATE_FORMAT(login_at, '%Y-%m-%d') AS date, COUNT(*)
FROM login_logs
WHERE login_at >= DATE_SUB(UTC_TIMESTAMP(), INTERVAL 30 DAY)
GROUP BY date ORDER BY date DESC`)
}

// MonthlyRegistrations counts new users per month (YYYY-MM) over the
// last 6 months, most recent month first.
func (r *ReportRepo) MonthlyRegistrations(ctx context.Context) ([]model.CountBucket, error) {
	return r.buckets(ctx, `
SELECT DATE_FORMAT(created_at, '%Y-%m') AS date, COUNT(*)
FROM users
WHERE created_at >= DATE_SUB(UTC_TIMESTAMP(), INTERVAL 6 MONTH)
GROUP BY date ORDER BY date DESC`)
}
