package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"presensi-backend/internal/models"
)

type LeaveRepo struct {
	pool *pgxpool.Pool
}

func NewLeaveRepo(pool *pgxpool.Pool) *LeaveRepo {
	return &LeaveRepo{pool: pool}
}

func (r *LeaveRepo) Create(ctx context.Context, req *models.LeaveRequest) error {
	query := `
		INSERT INTO leave_requests (user_id, type, start_date, end_date, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	req.Status = models.LeaveStatusPending

	return r.pool.QueryRow(ctx, query,
		req.UserID, req.Type, req.StartDate, req.EndDate, req.Reason, req.Status,
	).Scan(&req.ID, &req.CreatedAt)
}

func (r *LeaveRepo) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]models.LeaveRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, type, to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'), reason, status, created_at
		FROM leave_requests
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LeaveRequest
	for rows.Next() {
		var lr models.LeaveRequest
		if err := rows.Scan(&lr.ID, &lr.UserID, &lr.Type, &lr.StartDate, &lr.EndDate, &lr.Reason, &lr.Status, &lr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}
