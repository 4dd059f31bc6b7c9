package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"srik/services/identity/internal/model"
)

const leaveColumns = `
	id::text, user_id::text, to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'),
	reason, status, approved_by::text, created_at, updated_at`

func scanLeave(row pgx.Row) (model.LeaveRequest, error) {
	var l model.LeaveRequest
	err := row.Scan(&l.ID, &l.UserID, &l.StartDate, &l.EndDate, &l.Reason, &l.Status, &l.ApprovedBy, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func collectLeave(rows pgx.Rows, err error) ([]model.LeaveRequest, error) {
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.LeaveRequest, error) {
		return scanLeave(row)
	})
}

// ListLeaveRequests returns the user's requests, newest first.
func (s *Store) ListLeaveRequests(ctx context.Context, userID string) ([]model.LeaveRequest, error) {
	return collectLeave(s.pool.Query(ctx, `
		SELECT `+leaveColumns+`
		FROM leave_requests
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID))
}

func (s *Store) ListLeaveRequestsByStatus(ctx context.Context, status string) ([]model.LeaveRequest, error) {
	return collectLeave(s.pool.Query(ctx, `
		SELECT `+leaveColumns+`
		FROM leave_requests
		WHERE status = $1
		ORDER BY created_at DESC
	`, status))
}

func (s *Store) CreateLeaveRequest(ctx context.Context, l model.LeaveRequest) (model.LeaveRequest, error) {
	return scanLeave(s.pool.QueryRow(ctx, `
		INSERT INTO leave_requests (user_id, start_date, end_date, reason, status)
		VALUES ($1, $2::date, $3::date, $4, 'pending')
		RETURNING `+leaveColumns,
		l.UserID, l.StartDate, l.EndDate, l.Reason))
}

// ReviewLeaveRequest sets the status of a pending request. It returns
// pgx.ErrNoRows when the request does not exist or was already reviewed.
func (s *Store) ReviewLeaveRequest(ctx context.Context, id, status, reviewerID string) (model.LeaveRequest, error) {
	return scanLeave(s.pool.QueryRow(ctx, `
		UPDATE leave_requests
		SET status = $2, approved_by = $3, updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+leaveColumns,
		id, status, reviewerID))
}
