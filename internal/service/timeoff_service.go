package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/hierarchy"
	"github.com/locvowork/staffportal/internal/logger"
)

// NewTimeOff is the input of TimeOffService.Create. Dates are inclusive.
type NewTimeOff struct {
	Type      domain.TimeOffType `json:"type" validate:"required,oneof=SICK VACATION PERSONAL BEREAVEMENT JURY_DUTY UNPAID PROFESSIONAL_DEVELOPMENT"`
	StartDate time.Time          `json:"start_date" validate:"required"`
	EndDate   time.Time          `json:"end_date" validate:"required"`
	// Hours overrides the work-day derived amount.
	Hours  *float64 `json:"hours" validate:"omitempty,gte=0.5"`
	Reason string   `json:"reason" validate:"max=500"`
}

// TimeOffQuery filters an employee's own requests.
type TimeOffQuery struct {
	Status domain.TimeOffStatus `query:"status" validate:"omitempty,oneof=PENDING APPROVED REJECTED"`
	Type   domain.TimeOffType   `query:"type" validate:"omitempty,oneof=SICK VACATION PERSONAL BEREAVEMENT JURY_DUTY UNPAID PROFESSIONAL_DEVELOPMENT"`
	PageQuery
}

// AdminTimeOffQuery filters the district-wide request list.
type AdminTimeOffQuery struct {
	Status   domain.TimeOffStatus `query:"status" validate:"omitempty,oneof=PENDING APPROVED REJECTED"`
	Building string               `query:"building"`
	From     *time.Time           `query:"from"`
	To       *time.Time           `query:"to"`
	PageQuery
}

// TimeOffService runs the time off request workflow.
type TimeOffService struct {
	store domain.Store
	opts  Options
}

// NewTimeOffService creates a new TimeOffService instance
func NewTimeOffService(store domain.Store, opts Options) *TimeOffService {
	return &TimeOffService{store: store, opts: opts.withDefaults()}
}

// ==================== Lifecycle ====================

// Create files a PENDING request for the actor and notifies their managers.
func (s *TimeOffService) Create(ctx context.Context, actor domain.Principal, in NewTimeOff) (*domain.TimeOffRequest, []domain.Notification, error) {
	if err := Validate(in); err != nil {
		return nil, nil, err
	}
	start := domain.Day(in.StartDate.In(s.opts.Location))
	end := domain.Day(in.EndDate.In(s.opts.Location))
	if end.Before(start) {
		return nil, nil, domain.Errorf(domain.KindInvalidRange, "end date %s is before start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	hours, err := s.requestedHours(ctx, in.Hours, start, end)
	if err != nil {
		return nil, nil, err
	}

	var req *domain.TimeOffRequest
	var events []domain.Notification
	err = s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		g, err := hierarchy.Load(ctx, r)
		if err != nil {
			return err
		}
		owner, ok := g.User(actor.ID)
		if !ok {
			return domain.NotFoundf("user %s not found", actor.ID)
		}
		if err := checkApprovedOverlap(ctx, r, actor.ID, start, end, ""); err != nil {
			return err
		}

		now := s.opts.Now()
		req = &domain.TimeOffRequest{
			ID:          uuid.NewString(),
			EmployeeID:  actor.ID,
			Type:        in.Type,
			StartDate:   start,
			EndDate:     end,
			Hours:       hours,
			Reason:      strings.TrimSpace(in.Reason),
			Status:      domain.TimeOffPending,
			SubmittedAt: now,
			UpdatedAt:   now,
		}
		if err := r.TimeOff().Create(ctx, req); err != nil {
			return fmt.Errorf("failed to create time off request: %w", err)
		}
		out := newOutbox(r, now)
		if err := out.emitAll(ctx, g.ActiveManagerIDs(actor.ID), timeOffRequested(owner, req)); err != nil {
			return err
		}
		events = out.events
		return nil
	})
	if err != nil {
		logger.DebugLog(ctx, "time off request by %s rejected: %v", actor.ID, err)
		return nil, nil, err
	}
	logger.InfoLog(ctx, "time off request %s created by %s (%.2f hours)", req.ID, actor.ID, req.Hours)
	return req, events, nil
}

// requestedHours is the explicit amount or work days times HoursPerDay.
func (s *TimeOffService) requestedHours(ctx context.Context, explicit *float64, start, end time.Time) (float64, error) {
	if explicit != nil {
		return *explicit, nil
	}
	var holidays []time.Time
	if s.opts.Holidays != nil {
		var err error
		holidays, err = s.opts.Holidays.NonWorkDays(ctx, start, end)
		if err != nil {
			return 0, fmt.Errorf("failed to load holiday calendar: %w", err)
		}
	}
	return float64(domain.WorkDayCount(start, end, holidays)) * s.opts.HoursPerDay, nil
}

// Cancel withdraws the actor's own PENDING request and notifies their managers.
func (s *TimeOffService) Cancel(ctx context.Context, actor domain.Principal, id string) ([]domain.Notification, error) {
	var events []domain.Notification
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		req, err := r.TimeOff().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if req.EmployeeID != actor.ID {
			return domain.Forbiddenf("only the requester may cancel time off request %s", id)
		}
		if req.Status != domain.TimeOffPending {
			return domain.InvalidStatef("time off request %s is %s, not PENDING", id, req.Status)
		}
		if err := r.TimeOff().Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete time off request: %w", err)
		}

		g, err := hierarchy.Load(ctx, r)
		if err != nil {
			return err
		}
		owner, _ := g.User(actor.ID)
		out := newOutbox(r, s.opts.Now())
		if err := out.emitAll(ctx, g.ActiveManagerIDs(actor.ID), timeOffCancelled(owner, req)); err != nil {
			return err
		}
		events = out.events
		return nil
	})
	if err != nil {
		logger.DebugLog(ctx, "cancel of time off request %s rejected: %v", id, err)
		return nil, err
	}
	logger.InfoLog(ctx, "time off request %s cancelled by %s", id, actor.ID)
	return events, nil
}

// Review decides a PENDING request. The actor must be able to supervise the requester.
func (s *TimeOffService) Review(ctx context.Context, actor domain.Principal, id, action, comments string) (*domain.TimeOffRequest, []domain.Notification, error) {
	status, err := parseTimeOffAction(action)
	if err != nil {
		return nil, nil, err
	}

	var req *domain.TimeOffRequest
	var events []domain.Notification
	err = s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		if req, err = r.TimeOff().GetByID(ctx, id); err != nil {
			return err
		}
		g, err := hierarchy.Load(ctx, r)
		if err != nil {
			return err
		}
		if !g.CanSupervise(actor, req.EmployeeID) {
			return domain.Forbiddenf("%s cannot review time off of %s", actor.ID, req.EmployeeID)
		}
		if req.Status != domain.TimeOffPending {
			return domain.InvalidStatef("time off request %s is %s, not PENDING", id, req.Status)
		}
		events, err = s.decideTx(ctx, r, actor, req, status, comments, false)
		return err
	})
	if err != nil {
		logger.DebugLog(ctx, "review of time off request %s rejected: %v", id, err)
		return nil, nil, err
	}
	logger.InfoLog(ctx, "time off request %s PENDING -> %s by %s", req.ID, req.Status, actor.ID)
	return req, events, nil
}

// AdminOverride lets a district administrator set the decision of any
// request, including one already decided.
func (s *TimeOffService) AdminOverride(ctx context.Context, actor domain.Principal, id, action, comments string) (*domain.TimeOffRequest, []domain.Notification, error) {
	if !actor.CanAdminister() {
		return nil, nil, domain.Forbiddenf("admin override requires DISTRICT_ADMIN")
	}
	status, err := parseTimeOffAction(action)
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(comments) == "" {
		comments = "Admin override: " + strings.ToLower(string(status))
	}

	var req *domain.TimeOffRequest
	var events []domain.Notification
	var from domain.TimeOffStatus
	err = s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		if req, err = r.TimeOff().GetByID(ctx, id); err != nil {
			return err
		}
		from = req.Status
		events, err = s.decideTx(ctx, r, actor, req, status, comments, true)
		return err
	})
	if err != nil {
		logger.DebugLog(ctx, "override of time off request %s rejected: %v", id, err)
		return nil, nil, err
	}
	logger.InfoLog(ctx, "time off request %s %s -> %s by %s (admin override)", req.ID, from, req.Status, actor.ID)
	return req, events, nil
}

func (s *TimeOffService) decideTx(ctx context.Context, r domain.Repos, actor domain.Principal, req *domain.TimeOffRequest,
	status domain.TimeOffStatus, comments string, override bool) ([]domain.Notification, error) {
	if status == domain.TimeOffApproved {
		if err := checkApprovedOverlap(ctx, r, req.EmployeeID, req.StartDate, req.EndDate, req.ID); err != nil {
			return nil, err
		}
	}
	now := s.opts.Now()
	req.Status = status
	req.ReviewedBy = actor.ID
	req.ReviewedAt = &now
	req.Comments = comments
	req.UpdatedAt = now
	if err := r.TimeOff().Update(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to update time off request: %w", err)
	}

	n := timeOffReviewed(req, comments)
	if override {
		n = timeOffOverridden(req, comments)
	}
	out := newOutbox(r, now)
	if err := out.emit(ctx, n); err != nil {
		return nil, err
	}
	return out.events, nil
}

// checkApprovedOverlap fails with Conflict when another APPROVED request of
// the employee shares a day with [start, end].
func checkApprovedOverlap(ctx context.Context, r domain.Repos, employeeID string, start, end time.Time, excludeID string) error {
	approved, _, err := r.TimeOff().List(ctx, domain.TimeOffFilter{
		EmployeeID: employeeID,
		Status:     domain.TimeOffApproved,
		From:       &start,
		To:         &end,
	})
	if err != nil {
		return fmt.Errorf("failed to list approved time off: %w", err)
	}
	for _, a := range approved {
		if a.ID != excludeID && a.Overlaps(start, end) {
			return domain.Errorf(domain.KindConflict, "approved time off %s already covers %s - %s",
				a.ID, a.StartDate.Format("2006-01-02"), a.EndDate.Format("2006-01-02"))
		}
	}
	return nil
}

// ==================== Queries ====================

// Get returns a request to its owner or anyone supervising the owner.
func (s *TimeOffService) Get(ctx context.Context, actor domain.Principal, id string) (*domain.TimeOffRequest, error) {
	var req *domain.TimeOffRequest
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		if req, err = r.TimeOff().GetByID(ctx, id); err != nil {
			return err
		}
		if req.EmployeeID == actor.ID {
			return nil
		}
		g, err := hierarchy.Load(ctx, r)
		if err != nil {
			return err
		}
		if !g.CanSupervise(actor, req.EmployeeID) {
			return domain.Forbiddenf("%s cannot view time off request %s", actor.ID, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// List returns the actor's own requests by start date.
func (s *TimeOffService) List(ctx context.Context, actor domain.Principal, q TimeOffQuery) (domain.Page[domain.TimeOffRequest], error) {
	if err := Validate(q); err != nil {
		return domain.Page[domain.TimeOffRequest]{}, err
	}
	var items []domain.TimeOffRequest
	var total int
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		items, total, err = r.TimeOff().List(ctx, domain.TimeOffFilter{
			EmployeeID: actor.ID,
			Status:     q.Status,
			Type:       q.Type,
			Pagination: q.pagination(),
		})
		return err
	})
	if err != nil {
		return domain.Page[domain.TimeOffRequest]{}, err
	}
	return newPage(items, total, q.PageQuery), nil
}

// PendingReview returns PENDING requests the actor may decide.
func (s *TimeOffService) PendingReview(ctx context.Context, actor domain.Principal) ([]domain.TimeOffRequest, error) {
	return s.supervisedRequests(ctx, actor, domain.TimeOffFilter{Status: domain.TimeOffPending})
}

// TeamCalendar returns approved requests of supervised employees overlapping [from, to].
func (s *TimeOffService) TeamCalendar(ctx context.Context, actor domain.Principal, from, to time.Time) ([]domain.TimeOffRequest, error) {
	from, to = domain.Day(from.In(s.opts.Location)), domain.Day(to.In(s.opts.Location))
	if to.Before(from) {
		return nil, domain.Errorf(domain.KindInvalidRange, "calendar end %s is before start %s",
			to.Format("2006-01-02"), from.Format("2006-01-02"))
	}
	return s.supervisedRequests(ctx, actor, domain.TimeOffFilter{Status: domain.TimeOffApproved, From: &from, To: &to})
}

func (s *TimeOffService) supervisedRequests(ctx context.Context, actor domain.Principal, f domain.TimeOffFilter) ([]domain.TimeOffRequest, error) {
	var items []domain.TimeOffRequest
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		g, err := hierarchy.Load(ctx, r)
		if err != nil {
			return err
		}
		f.EmployeeIDs = g.Supervised(actor)
		if len(f.EmployeeIDs) == 0 {
			return nil
		}
		items, _, err = r.TimeOff().List(ctx, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.TimeOffRequest{}
	}
	return items, nil
}

// AdminList returns requests across the district. Administrators only.
func (s *TimeOffService) AdminList(ctx context.Context, actor domain.Principal, q AdminTimeOffQuery) (domain.Page[domain.TimeOffRequest], error) {
	if !actor.CanAdminister() {
		return domain.Page[domain.TimeOffRequest]{}, domain.Forbiddenf("listing all time off requires DISTRICT_ADMIN")
	}
	if err := Validate(q); err != nil {
		return domain.Page[domain.TimeOffRequest]{}, err
	}
	var items []domain.TimeOffRequest
	var total int
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		items, total, err = r.TimeOff().List(ctx, domain.TimeOffFilter{
			Status:     q.Status,
			Building:   q.Building,
			From:       q.From,
			To:         q.To,
			Pagination: q.pagination(),
		})
		return err
	})
	if err != nil {
		return domain.Page[domain.TimeOffRequest]{}, err
	}
	return newPage(items, total, q.PageQuery), nil
}

// TimeOffExport pairs a request with its employee.
type TimeOffExport struct {
	Request  domain.TimeOffRequest
	Employee domain.User
}

// AdminExport returns every request matching q, ignoring paging, with the
// requesting employee attached. Administrators only.
func (s *TimeOffService) AdminExport(ctx context.Context, actor domain.Principal, q AdminTimeOffQuery) ([]TimeOffExport, error) {
	if !actor.CanAdminister() {
		return nil, domain.Forbiddenf("exporting time off requires DISTRICT_ADMIN")
	}
	if err := Validate(q); err != nil {
		return nil, err
	}
	out := []TimeOffExport{}
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		out = out[:0]
		items, _, err := r.TimeOff().List(ctx, domain.TimeOffFilter{
			Status:   q.Status,
			Building: q.Building,
			From:     q.From,
			To:       q.To,
		})
		if err != nil {
			return err
		}
		users := map[string]domain.User{}
		for _, t := range items {
			u, ok := users[t.EmployeeID]
			if !ok {
				found, err := r.Users().GetByID(ctx, t.EmployeeID)
				if err != nil {
					return err
				}
				u = *found
				users[t.EmployeeID] = u
			}
			out = append(out, TimeOffExport{Request: t, Employee: u})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func parseTimeOffAction(action string) (domain.TimeOffStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(action)) {
	case "APPROVED", "APPROVE":
		return domain.TimeOffApproved, nil
	case "REJECTED", "REJECT", "DENIED", "DENY":
		return domain.TimeOffRejected, nil
	}
	return "", &domain.Error{
		Kind:    domain.KindValidation,
		Message: fmt.Sprintf("action must be APPROVED or REJECTED, got %q", action),
		Fields:  map[string]string{"action": "oneof=APPROVED REJECTED DENIED"},
	}
}
