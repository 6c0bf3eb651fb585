package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/logger"
)

// maxRecurrences bounds the copies a recurrence rule may generate.
const maxRecurrences = 366

// NewCalendarEvent is the input of CalendarService.Create and BulkCreate.
// RecurrenceRule is "DAILY:n", "WEEKLY:n" or "MONTHLY:n" and adds n copies.
type NewCalendarEvent struct {
	Title          string         `json:"title" validate:"required,max=100"`
	Description    string         `json:"description" validate:"max=500"`
	Date           time.Time      `json:"date" validate:"required"`
	DayType        domain.DayType `json:"day_type" validate:"required,oneof=REGULAR SICK VACATION PERSONAL HOLIDAY SNOW_DAY PROFESSIONAL_DEVELOPMENT BEREAVEMENT JURY_DUTY UNPAID"`
	IsRecurring    bool           `json:"is_recurring"`
	RecurrenceRule string         `json:"recurrence_rule"`
}

// CalendarEventPatch updates the non-nil fields of an event.
type CalendarEventPatch struct {
	Title       *string         `json:"title" validate:"omitempty,min=1,max=100"`
	Description *string         `json:"description" validate:"omitempty,max=500"`
	Date        *time.Time      `json:"date"`
	DayType     *domain.DayType `json:"day_type" validate:"omitempty,oneof=REGULAR SICK VACATION PERSONAL HOLIDAY SNOW_DAY PROFESSIONAL_DEVELOPMENT BEREAVEMENT JURY_DUTY UNPAID"`
}

// CalendarQuery selects events; a missing bound defaults to the current month.
type CalendarQuery struct {
	From    *time.Time
	To      *time.Time
	DayType domain.DayType `validate:"omitempty,oneof=REGULAR SICK VACATION PERSONAL HOLIDAY SNOW_DAY PROFESSIONAL_DEVELOPMENT BEREAVEMENT JURY_DUTY UNPAID"`
}

// WorkDay is one open weekday.
type WorkDay struct {
	Date      string `json:"date"`
	DayOfWeek string `json:"day_of_week"`
}

// WorkDays lists the open weekdays of an inclusive range.
type WorkDays struct {
	WorkDays      []WorkDay              `json:"work_days"`
	TotalWorkDays int                    `json:"total_work_days"`
	NonWorkDays   []domain.CalendarEvent `json:"non_work_days"`
	Start         string                 `json:"start"`
	End           string                 `json:"end"`
}

// TemplateEvent is a proposed holiday; it can be posted back to BulkCreate.
type TemplateEvent struct {
	Title       string         `json:"title"`
	Date        string         `json:"date"`
	DayType     domain.DayType `json:"day_type"`
	Description string         `json:"description"`
}

// SchoolYearTemplate proposes the federal holidays of one school year.
type SchoolYearTemplate struct {
	Events      []TemplateEvent `json:"events"`
	SchoolYear  string          `json:"school_year"`
	TotalEvents int             `json:"total_events"`
}

// SchoolYearInput selects the school year starting in Year.
type SchoolYearInput struct {
	Year       int `json:"year" validate:"gte=2020,lte=2050"`
	StartMonth int `json:"start_month" validate:"gte=1,lte=12"`
	EndMonth   int `json:"end_month" validate:"gte=1,lte=12"`
}

// CalendarService manages district calendar days and serves them as the
// holiday calendar of the time off workflow.
type CalendarService struct {
	store domain.Store
	opts  Options
}

func NewCalendarService(store domain.Store, opts Options) *CalendarService {
	return &CalendarService{store: store, opts: opts.withDefaults()}
}

var _ domain.HolidayCalendar = (*CalendarService)(nil)

func (s *CalendarService) day(t time.Time) time.Time {
	return domain.Day(t.In(s.opts.Location))
}

// ==================== Reads ====================

// List returns events in the window, oldest first. Any authenticated user may read it.
func (s *CalendarService) List(ctx context.Context, q CalendarQuery) ([]domain.CalendarEvent, error) {
	if err := Validate(q); err != nil {
		return nil, err
	}
	now := s.day(s.opts.Now())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.opts.Location)
	from, to := monthStart, monthStart.AddDate(0, 1, -1)
	if q.From != nil {
		from = s.day(*q.From)
	}
	if q.To != nil {
		to = s.day(*q.To)
	}
	if to.Before(from) {
		return nil, domain.Errorf(domain.KindInvalidRange, "end %s is before start %s", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}
	f := domain.CalendarFilter{From: &from, To: &to}
	if q.DayType != "" {
		f.DayTypes = []domain.DayType{q.DayType}
	}

	var out []domain.CalendarEvent
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		out, err = r.Calendar().List(ctx, f)
		return err
	})
	return out, err
}

func (s *CalendarService) Get(ctx context.Context, id string) (*domain.CalendarEvent, error) {
	var e *domain.CalendarEvent
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		e, err = r.Calendar().GetByID(ctx, id)
		return err
	})
	return e, err
}

// NonWorkDays returns the HOLIDAY and SNOW_DAY dates in the inclusive range.
func (s *CalendarService) NonWorkDays(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	events, err := s.nonWorkEvents(ctx, s.day(from), s.day(to))
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, len(events))
	for _, e := range events {
		out = append(out, s.day(e.Date))
	}
	return out, nil
}

func (s *CalendarService) nonWorkEvents(ctx context.Context, from, to time.Time) ([]domain.CalendarEvent, error) {
	var out []domain.CalendarEvent
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		out, err = r.Calendar().List(ctx, domain.CalendarFilter{
			From:     &from,
			To:       &to,
			DayTypes: []domain.DayType{domain.DayHoliday, domain.DaySnowDay},
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load non-work days: %w", err)
	}
	return out, nil
}

// WorkDays lists Monday..Friday dates of [from, to] that are not closed.
func (s *CalendarService) WorkDays(ctx context.Context, from, to time.Time) (*WorkDays, error) {
	from, to = s.day(from), s.day(to)
	if to.Before(from) {
		return nil, domain.Errorf(domain.KindInvalidRange, "end %s is before start %s", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}
	closed, err := s.nonWorkEvents(ctx, from, to)
	if err != nil {
		return nil, err
	}
	skip := make(map[string]struct{}, len(closed))
	for _, e := range closed {
		skip[s.day(e.Date).Format("2006-01-02")] = struct{}{}
	}

	res := &WorkDays{WorkDays: []WorkDay{}, NonWorkDays: closed, Start: from.Format("2006-01-02"), End: to.Format("2006-01-02")}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		key := d.Format("2006-01-02")
		if _, ok := skip[key]; ok {
			continue
		}
		res.WorkDays = append(res.WorkDays, WorkDay{Date: key, DayOfWeek: d.Weekday().String()})
	}
	res.TotalWorkDays = len(res.WorkDays)
	return res, nil
}

// ==================== Administration ====================

// Create adds an event and, for a recurring one, its generated copies. Every
// date must be free. Administrators only.
func (s *CalendarService) Create(ctx context.Context, actor domain.Principal, in NewCalendarEvent) ([]domain.CalendarEvent, error) {
	if !actor.CanAdminister() {
		return nil, domain.Forbiddenf("managing the calendar requires DISTRICT_ADMIN")
	}
	events, err := s.expand(actor, in)
	if err != nil {
		return nil, err
	}
	if err := s.insertAll(ctx, events); err != nil {
		logger.DebugLog(ctx, "calendar event on %s rejected: %v", in.Date.Format("2006-01-02"), err)
		return nil, err
	}
	logger.InfoLog(ctx, "calendar event %q on %s created by %s (%d dates)", in.Title, events[0].Date.Format("2006-01-02"), actor.ID, len(events))
	return events, nil
}

// BulkCreate adds many events at once; no date may be taken or repeated.
func (s *CalendarService) BulkCreate(ctx context.Context, actor domain.Principal, in []NewCalendarEvent) (int, error) {
	if !actor.CanAdminister() {
		return 0, domain.Forbiddenf("managing the calendar requires DISTRICT_ADMIN")
	}
	if len(in) == 0 {
		return 0, &domain.Error{Kind: domain.KindValidation, Message: "events must not be empty", Fields: map[string]string{"events": "min=1"}}
	}
	var events []domain.CalendarEvent
	for _, e := range in {
		e.IsRecurring, e.RecurrenceRule = false, ""
		one, err := s.expand(actor, e)
		if err != nil {
			return 0, err
		}
		events = append(events, one...)
	}
	if err := s.insertAll(ctx, events); err != nil {
		return 0, err
	}
	logger.InfoLog(ctx, "%d calendar events created by %s", len(events), actor.ID)
	return len(events), nil
}

func (s *CalendarService) expand(actor domain.Principal, in NewCalendarEvent) ([]domain.CalendarEvent, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := Validate(in); err != nil {
		return nil, err
	}
	now := s.opts.Now()
	base := domain.CalendarEvent{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Date:        s.day(in.Date),
		DayType:     in.DayType,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if !in.IsRecurring || in.RecurrenceRule == "" {
		return []domain.CalendarEvent{base}, nil
	}
	step, n, err := parseRecurrence(in.RecurrenceRule)
	if err != nil {
		return nil, err
	}
	base.IsRecurring, base.RecurrenceRule = true, in.RecurrenceRule
	out := []domain.CalendarEvent{base}
	for i := 1; i <= n; i++ {
		e := base
		e.ID = uuid.NewString()
		e.Date = step(base.Date, i)
		e.IsRecurring, e.RecurrenceRule = false, ""
		out = append(out, e)
	}
	return out, nil
}

// parseRecurrence reads "FREQ:count".
func parseRecurrence(rule string) (func(time.Time, int) time.Time, int, error) {
	invalid := &domain.Error{Kind: domain.KindValidation, Message: "invalid recurrence rule " + strconv.Quote(rule),
		Fields: map[string]string{"recurrence_rule": "format"}}
	freq, count, ok := strings.Cut(strings.ToUpper(strings.TrimSpace(rule)), ":")
	if !ok {
		return nil, 0, invalid
	}
	n, err := strconv.Atoi(count)
	if err != nil || n < 1 || n > maxRecurrences {
		return nil, 0, invalid
	}
	switch freq {
	case "DAILY":
		return func(t time.Time, i int) time.Time { return t.AddDate(0, 0, i) }, n, nil
	case "WEEKLY":
		return func(t time.Time, i int) time.Time { return t.AddDate(0, 0, 7*i) }, n, nil
	case "MONTHLY":
		return func(t time.Time, i int) time.Time { return t.AddDate(0, i, 0) }, n, nil
	}
	return nil, 0, invalid
}

// insertAll writes events in one transaction after checking their dates.
func (s *CalendarService) insertAll(ctx context.Context, events []domain.CalendarEvent) error {
	dates := make([]time.Time, 0, len(events))
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		key := e.Date.Format("2006-01-02")
		if _, dup := seen[key]; dup {
			return domain.Errorf(domain.KindConflict, "%s appears more than once", key)
		}
		seen[key] = struct{}{}
		dates = append(dates, e.Date)
	}
	return s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		taken, err := r.Calendar().List(ctx, domain.CalendarFilter{Dates: dates})
		if err != nil {
			return err
		}
		if len(taken) > 0 {
			keys := make([]string, len(taken))
			for i, e := range taken {
				keys[i] = s.day(e.Date).Format("2006-01-02")
			}
			return domain.Errorf(domain.KindConflict, "an event already exists for %s", strings.Join(keys, ", "))
		}
		for i := range events {
			if err := r.Calendar().Create(ctx, &events[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update changes an event; a new date must be free. Administrators only.
func (s *CalendarService) Update(ctx context.Context, actor domain.Principal, id string, p CalendarEventPatch) (*domain.CalendarEvent, error) {
	if !actor.CanAdminister() {
		return nil, domain.Forbiddenf("managing the calendar requires DISTRICT_ADMIN")
	}
	if err := Validate(p); err != nil {
		return nil, err
	}
	var e *domain.CalendarEvent
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		if e, err = r.Calendar().GetByID(ctx, id); err != nil {
			return err
		}
		if p.Title != nil {
			e.Title = strings.TrimSpace(*p.Title)
		}
		if p.Description != nil {
			e.Description = *p.Description
		}
		if p.DayType != nil {
			e.DayType = *p.DayType
		}
		if p.Date != nil && !s.day(*p.Date).Equal(e.Date) {
			e.Date = s.day(*p.Date)
			taken, err := r.Calendar().List(ctx, domain.CalendarFilter{Dates: []time.Time{e.Date}})
			if err != nil {
				return err
			}
			for _, other := range taken {
				if other.ID != e.ID {
					return domain.Errorf(domain.KindConflict, "an event already exists for %s", e.Date.Format("2006-01-02"))
				}
			}
		}
		e.UpdatedAt = s.opts.Now()
		return r.Calendar().Update(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	logger.InfoLog(ctx, "calendar event %s updated by %s", id, actor.ID)
	return e, nil
}

// Delete removes an event. Administrators only.
func (s *CalendarService) Delete(ctx context.Context, actor domain.Principal, id string) error {
	if !actor.CanAdminister() {
		return domain.Forbiddenf("managing the calendar requires DISTRICT_ADMIN")
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		return r.Calendar().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	logger.InfoLog(ctx, "calendar event %s deleted by %s", id, actor.ID)
	return nil
}

// SchoolYearTemplate proposes the federal holidays falling between the first
// day of StartMonth and the last day of EndMonth. Nothing is stored.
func (s *CalendarService) SchoolYearTemplate(actor domain.Principal, in SchoolYearInput) (*SchoolYearTemplate, error) {
	if !actor.CanAdminister() {
		return nil, domain.Forbiddenf("managing the calendar requires DISTRICT_ADMIN")
	}
	if err := Validate(in); err != nil {
		return nil, err
	}
	loc := s.opts.Location
	y, next := in.Year, in.Year+1
	date := func(year int, m time.Month, d int) time.Time { return time.Date(year, m, d, 0, 0, 0, 0, loc) }
	holiday := func(title string, d time.Time, desc string) TemplateEvent {
		return TemplateEvent{Title: title, Date: d.Format("2006-01-02"), DayType: domain.DayHoliday, Description: desc}
	}
	const federal = "Federal Holiday - No School"
	candidates := []TemplateEvent{
		holiday("Labor Day", nthWeekday(y, time.September, time.Monday, 1, loc), federal),
		holiday("Columbus Day", nthWeekday(y, time.October, time.Monday, 2, loc), federal),
		holiday("Thanksgiving Break", nthWeekday(y, time.November, time.Thursday, 4, loc), "Thanksgiving Holiday - No School"),
		holiday("Winter Break Start", date(y, time.December, 23), "Winter Break Begins"),
		holiday("New Year's Day", date(next, time.January, 1), federal),
		holiday("Martin Luther King Jr. Day", nthWeekday(next, time.January, time.Monday, 3, loc), federal),
		holiday("Presidents' Day", nthWeekday(next, time.February, time.Monday, 3, loc), federal),
		holiday("Memorial Day", lastWeekday(next, time.May, time.Monday, loc), federal),
	}

	endYear := y
	if in.EndMonth <= in.StartMonth {
		endYear = next
	}
	start := date(y, time.Month(in.StartMonth), 1)
	end := date(endYear, time.Month(in.EndMonth), 1).AddDate(0, 1, -1)

	out := &SchoolYearTemplate{Events: []TemplateEvent{}, SchoolYear: fmt.Sprintf("%d-%d", y, next)}
	for _, e := range candidates {
		d, _ := time.ParseInLocation("2006-01-02", e.Date, loc)
		if !d.Before(start) && !d.After(end) {
			out.Events = append(out.Events, e)
		}
	}
	out.TotalEvents = len(out.Events)
	return out, nil
}

// nthWeekday returns the n-th wd of the month, counting from 1.
func nthWeekday(year int, m time.Month, wd time.Weekday, n int, loc *time.Location) time.Time {
	d := time.Date(year, m, 1, 0, 0, 0, 0, loc)
	offset := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+7*(n-1))
}

func lastWeekday(year int, m time.Month, wd time.Weekday, loc *time.Location) time.Time {
	d := time.Date(year, m+1, 0, 0, 0, 0, 0, loc)
	offset := (int(d.Weekday()) - int(wd) + 7) % 7
	return d.AddDate(0, 0, -offset)
}
