package repository

import (
	"context"
	"database/sql"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/repository/builder"
)

var timeOffColumns = []string{
	"id", "employee_id", "type", "start_date", "end_date", "hours", "reason",
	"status", "reviewed_by", "reviewed_at", "comments", "submitted_at", "updated_at",
}

type pgTimeOff struct{ q querier }

func scanTimeOff(s scanner) (domain.TimeOffRequest, error) {
	var t domain.TimeOffRequest
	var reason, reviewedBy, comments sql.NullString
	err := s.Scan(&t.ID, &t.EmployeeID, &t.Type, &t.StartDate, &t.EndDate, &t.Hours, &reason,
		&t.Status, &reviewedBy, &t.ReviewedAt, &comments, &t.SubmittedAt, &t.UpdatedAt)
	t.Reason, t.ReviewedBy, t.Comments = reason.String, reviewedBy.String, comments.String
	return t, err
}

func (r pgTimeOff) Create(ctx context.Context, t *domain.TimeOffRequest) error {
	query, args := builder.NewSQLBuilder().
		Insert("time_off_requests", timeOffColumns...).
		Values(t.ID, t.EmployeeID, t.Type, t.StartDate, t.EndDate, t.Hours, nullString(t.Reason),
			t.Status, nullString(t.ReviewedBy), t.ReviewedAt, nullString(t.Comments), t.SubmittedAt, t.UpdatedAt).
		Build()

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return translate(err, "failed to create time off request "+t.ID)
	}
	return nil
}

// GetByID locks the row for the rest of the transaction.
func (r pgTimeOff) GetByID(ctx context.Context, id string) (*domain.TimeOffRequest, error) {
	query, args := builder.NewSQLBuilder().
		Select(timeOffColumns...).
		From("time_off_requests").
		Where("id = ?", id).
		ForUpdate().
		Build()

	t, err := scanTimeOff(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translate(err, "time off request "+id+" not found")
	}
	return &t, nil
}

func (r pgTimeOff) Update(ctx context.Context, t *domain.TimeOffRequest) error {
	b := builder.NewSQLBuilder().
		Update("time_off_requests").
		Set("type", t.Type).
		Set("start_date", t.StartDate).
		Set("end_date", t.EndDate).
		Set("hours", t.Hours).
		Set("reason", nullString(t.Reason)).
		Set("status", t.Status).
		Set("reviewed_by", nullString(t.ReviewedBy)).
		Set("reviewed_at", t.ReviewedAt).
		Set("comments", nullString(t.Comments)).
		Set("updated_at", t.UpdatedAt).
		Where("id = ?", t.ID)
	return execAffected(ctx, r.q, b, "time off request "+t.ID+" not found")
}

func (r pgTimeOff) Delete(ctx context.Context, id string) error {
	b := builder.NewSQLBuilder().Delete("time_off_requests").Where("id = ?", id)
	return execAffected(ctx, r.q, b, "time off request "+id+" not found")
}

func (r pgTimeOff) List(ctx context.Context, f domain.TimeOffFilter) ([]domain.TimeOffRequest, int, error) {
	b := builder.NewSQLBuilder().
		Select(timeOffColumns...).
		From("time_off_requests").
		WhereIf(f.EmployeeID != "", "employee_id = ?", f.EmployeeID).
		WhereIf(f.Status != "", "status = ?", f.Status).
		WhereIf(f.Type != "", "type = ?", f.Type).
		WhereIf(f.Building != "", "employee_id IN (SELECT id FROM users WHERE building = ?)", f.Building).
		OrderBy("start_date", "id")
	employeeIDs(b, "employee_id", f.EmployeeIDs)
	if f.From != nil {
		b.Where("end_date >= ?", *f.From)
	}
	if f.To != nil {
		b.Where("start_date <= ?", *f.To)
	}
	return listPage(ctx, r.q, b, f.Pagination, "failed to list time off requests", scanTimeOff)
}
