package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/staffportal/internal/domain"
)

func TestCalendarCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewCalendarService(f.store, f.opts)

	in := NewCalendarEvent{Title: "Presidents' Day", Date: day("2026-02-16"), DayType: domain.DayHoliday}
	_, err := svc.Create(ctx, f.lead, in)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	created, err := svc.Create(ctx, f.admin, in)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "admin", created[0].CreatedBy)

	_, err = svc.Create(ctx, f.admin, NewCalendarEvent{Title: "Staff meeting", Date: day("2026-02-16"), DayType: domain.DayRegular})
	assert.ErrorIs(t, err, domain.ErrConflict, "one event per date")

	_, err = svc.Create(ctx, f.admin, NewCalendarEvent{Title: "", Date: day("2026-02-17"), DayType: domain.DayHoliday})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Create(ctx, f.admin, NewCalendarEvent{Title: "Party", Date: day("2026-02-17"), DayType: "PARTY"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	t.Run("recurring", func(t *testing.T) {
		created, err := svc.Create(ctx, f.admin, NewCalendarEvent{
			Title: "PD Friday", Date: day("2026-03-06"), DayType: domain.DayProfessionalDevelopment,
			IsRecurring: true, RecurrenceRule: "WEEKLY:3",
		})
		require.NoError(t, err)
		require.Len(t, created, 4)
		assert.True(t, created[0].IsRecurring)
		assert.False(t, created[3].IsRecurring)
		assert.Equal(t, day("2026-03-27"), created[3].Date)

		_, err = svc.Create(ctx, f.admin, NewCalendarEvent{
			Title: "Overlaps", Date: day("2026-03-02"), DayType: domain.DayRegular,
			IsRecurring: true, RecurrenceRule: "DAILY:5",
		})
		assert.ErrorIs(t, err, domain.ErrConflict, "2026-03-06 is taken")

		_, err = svc.Create(ctx, f.admin, NewCalendarEvent{
			Title: "Bad", Date: day("2026-04-01"), DayType: domain.DayRegular,
			IsRecurring: true, RecurrenceRule: "YEARLY:2",
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestCalendarBulkCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewCalendarService(f.store, f.opts)

	events := []NewCalendarEvent{
		{Title: "Labor Day", Date: day("2026-09-07"), DayType: domain.DayHoliday},
		{Title: "Columbus Day", Date: day("2026-10-12"), DayType: domain.DayHoliday},
	}
	n, err := svc.BulkCreate(ctx, f.admin, events)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = svc.BulkCreate(ctx, f.admin, []NewCalendarEvent{
		{Title: "Again", Date: day("2026-09-07"), DayType: domain.DayHoliday},
		{Title: "New", Date: day("2026-11-11"), DayType: domain.DayHoliday},
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.BulkCreate(ctx, f.admin, []NewCalendarEvent{
		{Title: "Twice", Date: day("2026-12-01"), DayType: domain.DayHoliday},
		{Title: "Twice", Date: day("2026-12-01"), DayType: domain.DayHoliday},
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.BulkCreate(ctx, f.admin, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	list, err := svc.List(ctx, CalendarQuery{From: ptr(day("2026-09-01")), To: ptr(day("2026-12-31"))})
	require.NoError(t, err)
	require.Len(t, list, 2, "failed batches write nothing")
	assert.Equal(t, "Labor Day", list[0].Title)
}

func TestCalendarUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewCalendarService(f.store, f.opts)

	a, err := svc.Create(ctx, f.admin, NewCalendarEvent{Title: "A", Date: day("2026-02-12"), DayType: domain.DayRegular})
	require.NoError(t, err)
	_, err = svc.Create(ctx, f.admin, NewCalendarEvent{Title: "B", Date: day("2026-02-13"), DayType: domain.DayRegular})
	require.NoError(t, err)

	snow := domain.DaySnowDay
	updated, err := svc.Update(ctx, f.admin, a[0].ID, CalendarEventPatch{DayType: &snow})
	require.NoError(t, err)
	assert.Equal(t, domain.DaySnowDay, updated.DayType)

	taken := day("2026-02-13")
	_, err = svc.Update(ctx, f.admin, a[0].ID, CalendarEventPatch{Date: &taken})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.Update(ctx, f.mgr, a[0].ID, CalendarEventPatch{DayType: &snow})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, svc.Delete(ctx, f.admin, a[0].ID))
	_, err = svc.Get(ctx, a[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, f.admin, a[0].ID), domain.ErrNotFound)

	// The default window is the current month of the clock.
	list, err := svc.List(ctx, CalendarQuery{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "B", list[0].Title)
}

func TestCalendarWorkDays(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewCalendarService(f.store, f.opts)

	_, err := svc.BulkCreate(ctx, f.admin, []NewCalendarEvent{
		{Title: "Snow", Date: day("2026-03-17"), DayType: domain.DaySnowDay},
		{Title: "Holiday", Date: day("2026-03-19"), DayType: domain.DayHoliday},
		{Title: "PD", Date: day("2026-03-18"), DayType: domain.DayProfessionalDevelopment},
	})
	require.NoError(t, err)

	// Mon 03-16 .. Sun 03-22
	res, err := svc.WorkDays(ctx, day("2026-03-16"), day("2026-03-22"))
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalWorkDays)
	assert.Equal(t, []WorkDay{
		{Date: "2026-03-16", DayOfWeek: "Monday"},
		{Date: "2026-03-18", DayOfWeek: "Wednesday"},
		{Date: "2026-03-20", DayOfWeek: "Friday"},
	}, res.WorkDays)
	assert.Len(t, res.NonWorkDays, 2)

	_, err = svc.WorkDays(ctx, day("2026-03-22"), day("2026-03-16"))
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	t.Run("time off hours skip closed days", func(t *testing.T) {
		opts := f.opts
		opts.Holidays = svc
		timeOff := NewTimeOffService(f.store, opts)
		req, _, err := timeOff.Create(ctx, f.emp, NewTimeOff{Type: domain.TimeOffVacation, StartDate: day("2026-03-16"), EndDate: day("2026-03-20")})
		require.NoError(t, err)
		assert.Equal(t, 24.0, req.Hours)
	})
}

func TestCalendarSchoolYearTemplate(t *testing.T) {
	f := newFixture(t)
	svc := NewCalendarService(f.store, f.opts)

	_, err := svc.SchoolYearTemplate(f.mgr, SchoolYearInput{Year: 2026, StartMonth: 8, EndMonth: 6})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.SchoolYearTemplate(f.admin, SchoolYearInput{Year: 2019, StartMonth: 8, EndMonth: 6})
	assert.ErrorIs(t, err, domain.ErrValidation)

	tpl, err := svc.SchoolYearTemplate(f.admin, SchoolYearInput{Year: 2026, StartMonth: 8, EndMonth: 6})
	require.NoError(t, err)
	assert.Equal(t, "2026-2027", tpl.SchoolYear)
	require.Equal(t, 8, tpl.TotalEvents)
	dates := map[string]string{}
	for _, e := range tpl.Events {
		dates[e.Title] = e.Date
	}
	assert.Equal(t, "2026-09-07", dates["Labor Day"])
	assert.Equal(t, "2026-10-12", dates["Columbus Day"])
	assert.Equal(t, "2026-11-26", dates["Thanksgiving Break"])
	assert.Equal(t, "2027-01-18", dates["Martin Luther King Jr. Day"])
	assert.Equal(t, "2027-02-15", dates["Presidents' Day"])
	assert.Equal(t, "2027-05-31", dates["Memorial Day"])

	fall, err := svc.SchoolYearTemplate(f.admin, SchoolYearInput{Year: 2026, StartMonth: 9, EndMonth: 11})
	require.NoError(t, err)
	assert.Equal(t, 3, fall.TotalEvents)
}
