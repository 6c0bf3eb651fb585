package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/repository/builder"
)

var calendarColumns = []string{
	"id", "title", "description", "date", "day_type", "is_recurring", "recurrence_rule",
	"created_by", "created_at", "updated_at",
}

type pgCalendar struct{ q querier }

func scanCalendarEvent(s scanner) (domain.CalendarEvent, error) {
	var e domain.CalendarEvent
	var description, rule sql.NullString
	err := s.Scan(&e.ID, &e.Title, &description, &e.Date, &e.DayType, &e.IsRecurring, &rule,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	e.Description, e.RecurrenceRule = description.String, rule.String
	return e, err
}

func (r pgCalendar) Create(ctx context.Context, e *domain.CalendarEvent) error {
	query, args := builder.NewSQLBuilder().
		Insert("calendar_events", calendarColumns...).
		Values(e.ID, e.Title, nullString(e.Description), e.Date, e.DayType, e.IsRecurring, nullString(e.RecurrenceRule),
			e.CreatedBy, e.CreatedAt, e.UpdatedAt).
		Build()

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return translate(err, "failed to create calendar event for "+e.Date.Format("2006-01-02"))
	}
	return nil
}

func (r pgCalendar) GetByID(ctx context.Context, id string) (*domain.CalendarEvent, error) {
	query, args := builder.NewSQLBuilder().
		Select(calendarColumns...).
		From("calendar_events").
		Where("id = ?", id).
		Build()

	e, err := scanCalendarEvent(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translate(err, "calendar event "+id+" not found")
	}
	return &e, nil
}

func (r pgCalendar) Update(ctx context.Context, e *domain.CalendarEvent) error {
	b := builder.NewSQLBuilder().
		Update("calendar_events").
		Set("title", e.Title).
		Set("description", nullString(e.Description)).
		Set("date", e.Date).
		Set("day_type", e.DayType).
		Set("updated_at", e.UpdatedAt).
		Where("id = ?", e.ID)
	return execAffected(ctx, r.q, b, "calendar event "+e.ID+" not found")
}

func (r pgCalendar) Delete(ctx context.Context, id string) error {
	b := builder.NewSQLBuilder().Delete("calendar_events").Where("id = ?", id)
	return execAffected(ctx, r.q, b, "calendar event "+id+" not found")
}

func (r pgCalendar) List(ctx context.Context, f domain.CalendarFilter) ([]domain.CalendarEvent, error) {
	b := builder.NewSQLBuilder().
		Select(calendarColumns...).
		From("calendar_events").
		OrderBy("date", "id")
	if f.From != nil {
		b.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		b.Where("date <= ?", *f.To)
	}
	if len(f.DayTypes) > 0 {
		types := make([]string, len(f.DayTypes))
		for i, t := range f.DayTypes {
			types[i] = string(t)
		}
		b.Where("day_type = ANY(?)", pq.Array(types))
	}
	if f.Dates != nil {
		if len(f.Dates) == 0 {
			b.Where("FALSE")
		}
		conds := make([]string, len(f.Dates))
		args := make([]interface{}, len(f.Dates))
		for i, d := range f.Dates {
			conds[i], args[i] = "date = ?", d
		}
		b.WhereAny(conds, args...)
	}
	return queryAll(ctx, r.q, b, "failed to list calendar events", scanCalendarEvent)
}
