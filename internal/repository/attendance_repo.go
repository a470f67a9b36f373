package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"presensi-backend/internal/models"
)

type AttendanceRepo struct {
	pool *pgxpool.Pool
}

func NewAttendanceRepo(pool *pgxpool.Pool) *AttendanceRepo {
	return &AttendanceRepo{pool: pool}
}

// ClockIn opens the day's session. One row exists per (user, work day);
// clocking in again on an already-open or closed day changes nothing, which
// makes duplicate calls from retried geofence cycles safe.
func (r *AttendanceRepo) ClockIn(ctx context.Context, userID int64, workDate string, at time.Time, source string) (bool, error) {
	ct, err := r.pool.Exec(ctx, `
		INSERT INTO attendances (user_id, work_date, clock_in, clock_in_source)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, work_date) DO NOTHING
	`, userID, workDate, at, source)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// ClockOut closes the day's open session. Closing an already-closed or
// never-opened day is a no-op.
func (r *AttendanceRepo) ClockOut(ctx context.Context, userID int64, workDate string, at time.Time, source string) (bool, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE attendances
		SET clock_out = $3, clock_out_source = $4
		WHERE user_id = $1 AND work_date = $2 AND clock_out IS NULL
	`, userID, workDate, at, source)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// CloseOpen force-closes every still-open session for the given day and
// returns how many were closed. The auto-clockout sweeper uses it as the
// end-of-day backstop.
func (r *AttendanceRepo) CloseOpen(ctx context.Context, workDate string, at time.Time, source string) (int64, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE attendances
		SET clock_out = $2, clock_out_source = $3
		WHERE work_date = $1 AND clock_out IS NULL
	`, workDate, at, source)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *AttendanceRepo) GetByDate(ctx context.Context, userID int64, workDate string) (*models.Attendance, error) {
	a := &models.Attendance{}
	query := `
		SELECT id, user_id, to_char(work_date, 'YYYY-MM-DD'), clock_in, clock_out, clock_in_source, clock_out_source, created_at
		FROM attendances
		WHERE user_id = $1 AND work_date = $2`

	err := r.pool.QueryRow(ctx, query, userID, workDate).Scan(
		&a.ID, &a.UserID, &a.WorkDate, &a.ClockIn, &a.ClockOut,
		&a.ClockInSource, &a.ClockOutSource, &a.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (r *AttendanceRepo) List(ctx context.Context, userID int64, q models.AttendanceListQuery) ([]models.Attendance, error) {
	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 31
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, to_char(work_date, 'YYYY-MM-DD'), clock_in, clock_out, clock_in_source, clock_out_source, created_at
		FROM attendances
		WHERE user_id = $1
		  AND ($2 = '' OR work_date >= $2::date)
		  AND ($3 = '' OR work_date <= $3::date)
		ORDER BY work_date DESC
		LIMIT $4 OFFSET $5
	`, userID, q.From, q.To, limit, q.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Attendance
	for rows.Next() {
		var a models.Attendance
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.WorkDate, &a.ClockIn, &a.ClockOut,
			&a.ClockInSource, &a.ClockOutSource, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
