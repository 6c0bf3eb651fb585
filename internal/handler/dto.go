package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/service"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// ReviewRequest is the body of every review and override endpoint.
type ReviewRequest struct {
	Action   string `json:"action"`
	Comments string `json:"comments"`
}

// TimeCardRequest opens a card. EmployeeID defaults to the caller.
type TimeCardRequest struct {
	EmployeeID  string `json:"employee_id"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

// EntryRequest adds a time entry. TimeIn and TimeOut take "15:04" on the
// entry date or a full RFC3339 timestamp.
type EntryRequest struct {
	Date      string `json:"date"`
	TimeIn    string `json:"time_in"`
	TimeOut   string `json:"time_out"`
	BreakTime int    `json:"break_time"`
	DayType   string `json:"day_type"`
	Notes     string `json:"notes"`
}

// EntryPatchRequest updates the fields that are present.
type EntryPatchRequest struct {
	Date      *string `json:"date"`
	TimeIn    *string `json:"time_in"`
	TimeOut   *string `json:"time_out"`
	BreakTime *int    `json:"break_time"`
	DayType   *string `json:"day_type"`
	Notes     *string `json:"notes"`
}

type TimeOffRequest struct {
	Type      string   `json:"type"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	Hours     *float64 `json:"hours"`
	Reason    string   `json:"reason"`
}

type UserRequest struct {
	EmployeeNumber string   `json:"employee_number"`
	Email          string   `json:"email"`
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name"`
	Role           string   `json:"role"`
	Department     string   `json:"department"`
	Building       string   `json:"building"`
	Position       string   `json:"position"`
	HireDate       string   `json:"hire_date"`
	ManagerIDs     []string `json:"manager_ids"`
	PrincipalID    string   `json:"principal_id"`
}

type UserPatchRequest struct {
	Email       *string   `json:"email"`
	FirstName   *string   `json:"first_name"`
	LastName    *string   `json:"last_name"`
	Role        *string   `json:"role"`
	Department  *string   `json:"department"`
	Building    *string   `json:"building"`
	Position    *string   `json:"position"`
	HireDate    *string   `json:"hire_date"`
	Active      *bool     `json:"active"`
	ManagerIDs  *[]string `json:"manager_ids"`
	PrincipalID *string   `json:"principal_id"`
}

type ManagerRequest struct {
	ManagerID string `json:"manager_id"`
}

type ManagersRequest struct {
	ManagerIDs []string `json:"manager_ids"`
}

type PrincipalRequest struct {
	PrincipalID string `json:"principal_id"`
}

// dateParser reads calendar dates in the pay-period time zone.
type dateParser struct {
	loc *time.Location
}

func newDateParser(loc *time.Location) dateParser {
	if loc == nil {
		loc = time.UTC
	}
	return dateParser{loc: loc}
}

func fieldError(field, rule, msg string) error {
	return &domain.Error{Kind: domain.KindValidation, Message: msg, Fields: map[string]string{field: rule}}
}

// date accepts "2006-01-02" or RFC3339.
func (p dateParser) date(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fieldError(field, "required", field+" is required")
	}
	if t, err := time.ParseInLocation(dateLayout, s, p.loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(p.loc), nil
	}
	return time.Time{}, fieldError(field, "date", "invalid "+field+" "+strconv.Quote(s))
}

func (p dateParser) optionalDate(field, s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := p.date(field, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// clock places "15:04" on day, or parses a full RFC3339 timestamp. Empty is nil.
func (p dateParser) clock(field string, day time.Time, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if hm, err := time.Parse(clockLayout, s); err == nil {
		y, m, d := day.In(p.loc).Date()
		t := time.Date(y, m, d, hm.Hour(), hm.Minute(), 0, 0, p.loc)
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	return nil, fieldError(field, "time", "invalid "+field+" "+strconv.Quote(s))
}

func (p dateParser) timeCard(req TimeCardRequest, actor domain.Principal) (service.NewTimeCard, error) {
	in := service.NewTimeCard{EmployeeID: req.EmployeeID}
	if in.EmployeeID == "" {
		in.EmployeeID = actor.ID
	}
	var err error
	if in.PeriodStart, err = p.date("period_start", req.PeriodStart); err != nil {
		return in, err
	}
	if in.PeriodEnd, err = p.date("period_end", req.PeriodEnd); err != nil {
		return in, err
	}
	return in, nil
}

func (p dateParser) entry(req EntryRequest) (service.EntryInput, error) {
	in := service.EntryInput{
		BreakTime: req.BreakTime,
		DayType:   domain.DayType(strings.ToUpper(strings.TrimSpace(req.DayType))),
		Notes:     req.Notes,
	}
	var err error
	if in.Date, err = p.date("date", req.Date); err != nil {
		return in, err
	}
	if in.TimeIn, err = p.clock("time_in", in.Date, req.TimeIn); err != nil {
		return in, err
	}
	if in.TimeOut, err = p.clock("time_out", in.Date, req.TimeOut); err != nil {
		return in, err
	}
	return in, nil
}

// entryPatch resolves clock values against the patched date, or today's
// date when only times change; RFC3339 values are absolute either way.
func (p dateParser) entryPatch(req EntryPatchRequest) (service.EntryPatch, error) {
	patch := service.EntryPatch{BreakTime: req.BreakTime, Notes: req.Notes}
	if req.DayType != nil {
		dt := domain.DayType(strings.ToUpper(strings.TrimSpace(*req.DayType)))
		patch.DayType = &dt
	}
	day := time.Now().In(p.loc)
	if req.Date != nil {
		d, err := p.date("date", *req.Date)
		if err != nil {
			return patch, err
		}
		patch.Date = &d
		day = d
	}
	var err error
	if req.TimeIn != nil {
		if patch.TimeIn, err = p.clock("time_in", day, *req.TimeIn); err != nil {
			return patch, err
		}
	}
	if req.TimeOut != nil {
		if patch.TimeOut, err = p.clock("time_out", day, *req.TimeOut); err != nil {
			return patch, err
		}
	}
	return patch, nil
}

func (p dateParser) timeOff(req TimeOffRequest) (service.NewTimeOff, error) {
	in := service.NewTimeOff{
		Type:   domain.TimeOffType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Hours:  req.Hours,
		Reason: req.Reason,
	}
	var err error
	if in.StartDate, err = p.date("start_date", req.StartDate); err != nil {
		return in, err
	}
	if in.EndDate, err = p.date("end_date", req.EndDate); err != nil {
		return in, err
	}
	return in, nil
}

func (p dateParser) user(req UserRequest) (service.NewUser, error) {
	in := service.NewUser{
		EmployeeNumber: req.EmployeeNumber,
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Role:           req.Role,
		Department:     req.Department,
		Building:       req.Building,
		Position:       req.Position,
		ManagerIDs:     req.ManagerIDs,
		PrincipalID:    req.PrincipalID,
	}
	var err error
	in.HireDate, err = p.optionalDate("hire_date", req.HireDate)
	return in, err
}

func (p dateParser) userPatch(req UserPatchRequest) (service.UserPatch, error) {
	patch := service.UserPatch{
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Role:        req.Role,
		Department:  req.Department,
		Building:    req.Building,
		Position:    req.Position,
		Active:      req.Active,
		ManagerIDs:  req.ManagerIDs,
		PrincipalID: req.PrincipalID,
	}
	if req.HireDate != nil {
		d, err := p.date("hire_date", *req.HireDate)
		if err != nil {
			return patch, err
		}
		patch.HireDate = &d
	}
	return patch, nil
}

// CalendarEventRequest creates one calendar event.
type CalendarEventRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Date           string `json:"date"`
	DayType        string `json:"day_type"`
	IsRecurring    bool   `json:"is_recurring"`
	RecurrenceRule string `json:"recurrence_rule"`
}

// CalendarPatchRequest updates the fields present in the body.
type CalendarPatchRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	DayType     *string `json:"day_type"`
}

// BulkCalendarRequest creates many events at once.
type BulkCalendarRequest struct {
	Events []CalendarEventRequest `json:"events"`
}

func (p dateParser) calendarEvent(req CalendarEventRequest) (service.NewCalendarEvent, error) {
	in := service.NewCalendarEvent{
		Title:          req.Title,
		Description:    req.Description,
		DayType:        domain.DayType(upper(req.DayType)),
		IsRecurring:    req.IsRecurring,
		RecurrenceRule: req.RecurrenceRule,
	}
	var err error
	in.Date, err = p.date("date", req.Date)
	return in, err
}

func (p dateParser) calendarPatch(req CalendarPatchRequest) (service.CalendarEventPatch, error) {
	patch := service.CalendarEventPatch{Title: req.Title, Description: req.Description}
	if req.DayType != nil {
		dt := domain.DayType(upper(*req.DayType))
		patch.DayType = &dt
	}
	if req.Date != nil {
		d, err := p.date("date", *req.Date)
		if err != nil {
			return patch, err
		}
		patch.Date = &d
	}
	return patch, nil
}

// ==================== Query parameters ====================

func queryInt(c echo.Context, name string) (int, error) {
	s := c.QueryParam(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fieldError(name, "number", "invalid "+name+" "+strconv.Quote(s))
	}
	return n, nil
}

func queryBool(c echo.Context, name string) (*bool, error) {
	s := c.QueryParam(name)
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fieldError(name, "boolean", "invalid "+name+" "+strconv.Quote(s))
	}
	return &b, nil
}

func pageQuery(c echo.Context) (service.PageQuery, error) {
	var q service.PageQuery
	var err error
	if q.Page, err = queryInt(c, "page"); err != nil {
		return q, err
	}
	q.Limit, err = queryInt(c, "limit")
	return q, err
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
