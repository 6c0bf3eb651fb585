package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/repository/builder"
)

var timeCardColumns = []string{
	"id", "employee_id", "period_start", "period_end", "status", "total_hours",
	"submitted_at", "approved_by", "approved_at", "comments", "created_at", "updated_at",
}

type pgTimeCards struct{ q querier }

func scanTimeCard(s scanner) (domain.TimeCard, error) {
	var c domain.TimeCard
	var approvedBy, comments sql.NullString
	err := s.Scan(&c.ID, &c.EmployeeID, &c.PeriodStart, &c.PeriodEnd, &c.Status, &c.TotalHours,
		&c.SubmittedAt, &approvedBy, &c.ApprovedAt, &comments, &c.CreatedAt, &c.UpdatedAt)
	c.ApprovedBy, c.Comments = approvedBy.String, comments.String
	return c, err
}

func (r pgTimeCards) Create(ctx context.Context, c *domain.TimeCard) error {
	query, args := builder.NewSQLBuilder().
		Insert("time_cards", timeCardColumns...).
		Values(c.ID, c.EmployeeID, c.PeriodStart, c.PeriodEnd, c.Status, c.TotalHours,
			c.SubmittedAt, nullString(c.ApprovedBy), c.ApprovedAt, nullString(c.Comments), c.CreatedAt, c.UpdatedAt).
		Build()

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return translate(err, "failed to create time card "+c.ID)
	}
	return nil
}

// GetByID locks the row so concurrent reviews of one card serialize.
func (r pgTimeCards) GetByID(ctx context.Context, id string) (*domain.TimeCard, error) {
	query, args := builder.NewSQLBuilder().
		Select(timeCardColumns...).
		From("time_cards").
		Where("id = ?", id).
		ForUpdate().
		Build()

	c, err := scanTimeCard(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translate(err, "time card "+id+" not found")
	}
	return &c, nil
}

func (r pgTimeCards) Update(ctx context.Context, c *domain.TimeCard) error {
	b := builder.NewSQLBuilder().
		Update("time_cards").
		Set("period_start", c.PeriodStart).
		Set("period_end", c.PeriodEnd).
		Set("status", c.Status).
		Set("total_hours", c.TotalHours).
		Set("submitted_at", c.SubmittedAt).
		Set("approved_by", nullString(c.ApprovedBy)).
		Set("approved_at", c.ApprovedAt).
		Set("comments", nullString(c.Comments)).
		Set("updated_at", c.UpdatedAt).
		Where("id = ?", c.ID)
	return execAffected(ctx, r.q, b, "time card "+c.ID+" not found")
}

func (r pgTimeCards) Delete(ctx context.Context, id string) error {
	b := builder.NewSQLBuilder().Delete("time_cards").Where("id = ?", id)
	return execAffected(ctx, r.q, b, "time card "+id+" not found")
}

func (r pgTimeCards) List(ctx context.Context, f domain.TimeCardFilter) ([]domain.TimeCard, int, error) {
	b := builder.NewSQLBuilder().
		Select(timeCardColumns...).
		From("time_cards").
		WhereIf(f.EmployeeID != "", "employee_id = ?", f.EmployeeID).
		WhereIf(f.Status != "", "status = ?", f.Status).
		OrderBy("period_start DESC", "id")
	employeeIDs(b, "employee_id", f.EmployeeIDs)
	return listPage(ctx, r.q, b, f.Pagination, "failed to list time cards", scanTimeCard)
}

func (r pgTimeCards) ListOverlapping(ctx context.Context, employeeID string, start, end time.Time) ([]domain.TimeCard, error) {
	b := builder.NewSQLBuilder().
		Select(timeCardColumns...).
		From("time_cards").
		Where("employee_id = ?", employeeID).
		Where("period_start < ?", end).
		Where("period_end > ?", start).
		OrderBy("period_start")
	return queryAll(ctx, r.q, b, "failed to list overlapping time cards", scanTimeCard)
}

var timeEntryColumns = []string{
	"id", "time_card_id", "date", "time_in", "time_out", "break_time",
	"day_type", "hours", "notes", "created_at", "updated_at",
}

type pgTimeEntries struct{ q querier }

func scanTimeEntry(s scanner) (domain.TimeEntry, error) {
	var e domain.TimeEntry
	var notes sql.NullString
	err := s.Scan(&e.ID, &e.TimeCardID, &e.Date, &e.TimeIn, &e.TimeOut, &e.BreakTime,
		&e.DayType, &e.Hours, &notes, &e.CreatedAt, &e.UpdatedAt)
	e.Notes = notes.String
	return e, err
}

func (r pgTimeEntries) Create(ctx context.Context, e *domain.TimeEntry) error {
	query, args := builder.NewSQLBuilder().
		Insert("time_entries", timeEntryColumns...).
		Values(e.ID, e.TimeCardID, e.Date, e.TimeIn, e.TimeOut, e.BreakTime,
			e.DayType, e.Hours, nullString(e.Notes), e.CreatedAt, e.UpdatedAt).
		Build()

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return translate(err, "failed to create time entry for card "+e.TimeCardID)
	}
	return nil
}

func (r pgTimeEntries) GetByID(ctx context.Context, id string) (*domain.TimeEntry, error) {
	query, args := builder.NewSQLBuilder().
		Select(timeEntryColumns...).
		From("time_entries").
		Where("id = ?", id).
		Build()

	e, err := scanTimeEntry(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translate(err, "time entry "+id+" not found")
	}
	return &e, nil
}

func (r pgTimeEntries) Update(ctx context.Context, e *domain.TimeEntry) error {
	b := builder.NewSQLBuilder().
		Update("time_entries").
		Set("date", e.Date).
		Set("time_in", e.TimeIn).
		Set("time_out", e.TimeOut).
		Set("break_time", e.BreakTime).
		Set("day_type", e.DayType).
		Set("hours", e.Hours).
		Set("notes", nullString(e.Notes)).
		Set("updated_at", e.UpdatedAt).
		Where("id = ?", e.ID)
	return execAffected(ctx, r.q, b, "time entry "+e.ID+" not found")
}

func (r pgTimeEntries) Delete(ctx context.Context, id string) error {
	b := builder.NewSQLBuilder().Delete("time_entries").Where("id = ?", id)
	return execAffected(ctx, r.q, b, "time entry "+id+" not found")
}

func (r pgTimeEntries) ListByCard(ctx context.Context, cardID string) ([]domain.TimeEntry, error) {
	b := builder.NewSQLBuilder().
		Select(timeEntryColumns...).
		From("time_entries").
		Where("time_card_id = ?", cardID).
		OrderBy("date", "id")
	return queryAll(ctx, r.q, b, "failed to list entries of card "+cardID, scanTimeEntry)
}

func (r pgTimeEntries) DeleteByCard(ctx context.Context, cardID string) error {
	b := builder.NewSQLBuilder().Delete("time_entries").Where("time_card_id = ?", cardID)
	_, err := execCount(ctx, r.q, b, "failed to delete entries of card "+cardID)
	return err
}
