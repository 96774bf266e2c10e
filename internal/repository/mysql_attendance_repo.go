package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nikhil/staffhub/internal/models"
)

type MySQLAttendanceRepo struct {
	db *sql.DB
}

func NewMySQLAttendanceRepo(db *sql.DB) *MySQLAttendanceRepo {
	return &MySQLAttendanceRepo{db: db}
}

func (r *MySQLAttendanceRepo) FindOpen(ctx context.Context, userID string) (*models.AttendanceRecord, error) {
	query := `
		SELECT attendance_id, user_id, check_in_time
		FROM attendance
		WHERE user_id = ? AND check_out_time IS NULL
		ORDER BY check_in_time DESC
		LIMIT 1
	`
	var rec models.AttendanceRecord
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&rec.AttendanceID, &rec.UserID, &rec.CheckInTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find open attendance: %w", err)
	}
	return &rec, nil
}

func (r *MySQLAttendanceRepo) Create(ctx context.Context, rec *models.AttendanceRecord) error {
	query := `INSERT INTO attendance (attendance_id, user_id, check_in_time) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, rec.AttendanceID, rec.UserID, rec.CheckInTime); err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

func (r *MySQLAttendanceRepo) CloseOpen(ctx context.Context, userID string, at time.Time) (bool, error) {
	query := `UPDATE attendance SET check_out_time = ? WHERE user_id = ? AND check_out_time IS NULL`
	result, err := r.db.ExecContext(ctx, query, at, userID)
	if err != nil {
		return false, fmt.Errorf("close attendance: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("close attendance rows affected: %w", err)
	}
	return n > 0, nil
}
