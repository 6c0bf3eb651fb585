package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/hierarchy"
	"github.com/locvowork/staffportal/internal/logger"
)

// NewTimeCard is the input of TimeCardService.Create. PeriodEnd is exclusive.
type NewTimeCard struct {
	EmployeeID  string    `json:"employee_id" validate:"required"`
	PeriodStart time.Time `json:"period_start" validate:"required"`
	PeriodEnd   time.Time `json:"period_end" validate:"required"`
}

// EntryInput is a new time entry.
type EntryInput struct {
	Date      time.Time      `json:"date" validate:"required"`
	TimeIn    *time.Time     `json:"time_in"`
	TimeOut   *time.Time     `json:"time_out"`
	BreakTime int            `json:"break_time" validate:"gte=0,lte=1440"`
	DayType   domain.DayType `json:"day_type" validate:"omitempty,oneof=REGULAR SICK VACATION PERSONAL HOLIDAY SNOW_DAY PROFESSIONAL_DEVELOPMENT BEREAVEMENT JURY_DUTY UNPAID"`
	Notes     string         `json:"notes" validate:"max=500"`
}

// EntryPatch changes only the non-nil fields of an entry.
type EntryPatch struct {
	Date      *time.Time      `json:"date"`
	TimeIn    *time.Time      `json:"time_in"`
	TimeOut   *time.Time      `json:"time_out"`
	BreakTime *int            `json:"break_time" validate:"omitempty,gte=0,lte=1440"`
	DayType   *domain.DayType `json:"day_type" validate:"omitempty,oneof=REGULAR SICK VACATION PERSONAL HOLIDAY SNOW_DAY PROFESSIONAL_DEVELOPMENT BEREAVEMENT JURY_DUTY UNPAID"`
	Notes     *string         `json:"notes" validate:"omitempty,max=500"`
}

// TimeCardQuery filters list operations.
type TimeCardQuery struct {
	Status domain.TimeCardStatus `query:"status" validate:"omitempty,oneof=DRAFT SUBMITTED APPROVED REJECTED"`
	PageQuery
}

// TimeCardService runs the time card approval workflow. Every operation is
// one transaction; notifications are written in it and returned on commit.
type TimeCardService struct {
	store domain.Store
	opts  Options
}

// NewTimeCardService creates a new TimeCardService instance
func NewTimeCardService(store domain.Store, opts Options) *TimeCardService {
	return &TimeCardService{store: store, opts: opts.withDefaults()}
}

// ==================== Lifecycle ====================

// Create opens a DRAFT card for the employee. Only the employee or an
// administrator may do so.
func (s *TimeCardService) Create(ctx context.Context, actor domain.Principal, in NewTimeCard) (*domain.TimeCard, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	if actor.ID != in.EmployeeID && !actor.CanAdminister() {
		return nil, domain.Forbiddenf("cannot create a time card for another employee")
	}
	start, end := domain.Day(in.PeriodStart.In(s.opts.Location)), domain.Day(in.PeriodEnd.In(s.opts.Location))
	if !end.After(start) {
		return nil, domain.Errorf(domain.KindInvalidRange, "period end %s must be after start %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	var card *domain.TimeCard
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		if _, err := r.Users().GetByID(ctx, in.EmployeeID); err != nil {
			return err
		}
		var err error
		card, err = s.createTx(ctx, r, in.EmployeeID, start, end)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.InfoLog(ctx, "time card %s created for %s (%s - %s)", card.ID, card.EmployeeID,
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	return card, nil
}

func (s *TimeCardService) createTx(ctx context.Context, r domain.Repos, employeeID string, start, end time.Time) (*domain.TimeCard, error) {
	existing, err := r.TimeCards().ListOverlapping(ctx, employeeID, start, end)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, domain.Errorf(domain.KindDuplicatePeriod, "time card %s already covers %s - %s",
			existing[0].ID, existing[0].PeriodStart.Format("2006-01-02"), existing[0].PeriodEnd.Format("2006-01-02"))
	}
	now := s.opts.Now()
	card := &domain.TimeCard{
		ID:          uuid.NewString(),
		EmployeeID:  employeeID,
		PeriodStart: start,
		PeriodEnd:   end,
		Status:      domain.TimeCardDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
		Entries:     []domain.TimeEntry{},
	}
	if err := r.TimeCards().Create(ctx, card); err != nil {
		return nil, fmt.Errorf("failed to create time card: %w", err)
	}
	return card, nil
}

// Current returns the actor's card for the pay period containing today,
// creating a DRAFT one when none exists.
func (s *TimeCardService) Current(ctx context.Context, actor domain.Principal) (*domain.TimeCard, error) {
	today := domain.Day(s.opts.Now().In(s.opts.Location))
	start, end := domain.PayPeriodFor(today)

	var card *domain.TimeCard
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		existing, err := r.TimeCards().ListOverlapping(ctx, actor.ID, start, end)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			sort.Slice(existing, func(i, j int) bool { return existing[i].PeriodStart.Before(existing[j].PeriodStart) })
			picked := existing[0]
			for _, c := range existing {
				if c.Covers(today) {
					picked = c
					break
				}
			}
			card = &picked
			return loadEntries(ctx, r, card)
		}
		if _, err := r.Users().GetByID(ctx, actor.ID); err != nil {
			return err
		}
		card, err = s.createTx(ctx, r, actor.ID, start, end)
		return err
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

// Submit moves the actor's own DRAFT card to SUBMITTED and notifies the
// employee's managers.
func (s *TimeCardService) Submit(ctx context.Context, actor domain.Principal, cardID string) (*domain.TimeCard, []domain.Notification, error) {
	var card *domain.TimeCard
	var events []domain.Notification
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		if card, err = r.TimeCards().GetByID(ctx, cardID); err != nil {
			return err
		}
		if card.EmployeeID != actor.ID {
			return domain.Forbiddenf("only the owner may submit time card %s", cardID)
		}
		if card.Status != domain.TimeCardDraft {
			return domain.InvalidStatef("time card %s is %s, not DRAFT", cardID, card.Status)
		}

		g, err := hierarchy.Load(ctx, r)
		if err != nil {
			return err
		}
		now := s.opts.Now()
		card.Status = domain.TimeCardSubmitted
		card.SubmittedAt = &now
		card.UpdatedAt = now
		if err := r.TimeCards().Update(ctx, card); err != nil {
			return fmt.Errorf("failed to update time card: %w", err)
		}

		owner, _ := g.User(card.EmployeeID)
		out := newOutbox(r, now)
		if err := out.emitAll(ctx, g.ActiveManagerIDs(card.EmployeeID), timeCardSubmitted(owner, card)); err != nil {
			return err
		}
		events = out.events
		return loadEntries(ctx, r, card)
	})
	if err != nil {
		logger.DebugLog(ctx, "submit of time card %s rejected: %v", cardID, err)
		return nil, nil, err
	}
	if len(events) == 0 {
		logger.WarnLog(ctx, "time card %s submitted but %s has no manager to notify", card.ID, card.EmployeeID)
	}
	logger.InfoLog(ctx, "time card %s DRAFT -> SUBMITTED by %s", card.ID, actor.ID)
	return card, events, nil
}

// Review decides a SUBMITTED card. The actor must be able to supervise the owner.
func (s *TimeCardService) Review(ctx context.Context, actor domain.Principal, cardID, action, comments string) (*domain.TimeCard, []domain.Notification, error) {
	status, err := parseTimeCardAction(action)
	if err != nil {
		return nil, nil, err
	}

	var card *domain.TimeCard
	var events []domain.Notification
	var from domain.TimeCardStatus
	err = s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		if card, err = r.TimeCards().GetByID(ctx, cardID); err != nil {
			return err
		}
		g, err := hierarchy.Load(ctx, r)
		if err != nil {
			return err
		}
		if !g.CanSupervise(actor, card.EmployeeID) {
			return domain.Forbiddenf("%s cannot review time cards of %s", actor.ID, card.EmployeeID)
		}
		if card.Status != domain.TimeCardSubmitted {
			return domain.InvalidStatef("time card %s is %s, not SUBMITTED", cardID, card.Status)
		}
		from = card.Status
		events, err = s.decideTx(ctx, r, actor, card, status, comments, false)
		return err
	})
	if err != nil {
		logger.DebugLog(ctx, "review of time card %s rejected: %v", cardID, err)
		return nil, nil, err
	}
	logger.InfoLog(ctx, "time card %s %s -> %s by %s", card.ID, from, card.Status, actor.ID)
	return card, events, nil
}

// AdminOverride lets a district administrator decide a card that has left
// DRAFT, overwriting any earlier decision.
func (s *TimeCardService) AdminOverride(ctx context.Context, actor domain.Principal, cardID, action, comments string) (*domain.TimeCard, []domain.Notification, error) {
	if !actor.CanAdminister() {
		return nil, nil, domain.Forbiddenf("admin override requires DISTRICT_ADMIN")
	}
	status, err := parseTimeCardAction(action)
	if err != nil {
		return nil, nil, err
	}

	var card *domain.TimeCard
	var events []domain.Notification
	var from domain.TimeCardStatus
	err = s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		if card, err = r.TimeCards().GetByID(ctx, cardID); err != nil {
			return err
		}
		if card.Status == domain.TimeCardDraft {
			return domain.InvalidStatef("time card %s has not been submitted", cardID)
		}
		from = card.Status
		events, err = s.decideTx(ctx, r, actor, card, status, comments, true)
		return err
	})
	if err != nil {
		logger.DebugLog(ctx, "override of time card %s rejected: %v", cardID, err)
		return nil, nil, err
	}
	logger.InfoLog(ctx, "time card %s %s -> %s by %s (admin override)", card.ID, from, card.Status, actor.ID)
	return card, events, nil
}

func (s *TimeCardService) decideTx(ctx context.Context, r domain.Repos, actor domain.Principal, card *domain.TimeCard,
	status domain.TimeCardStatus, comments string, override bool) ([]domain.Notification, error) {
	now := s.opts.Now()
	card.Status = status
	card.Comments = comments
	card.UpdatedAt = now
	// ApprovedBy records the decider either way; ApprovedAt only an approval.
	card.ApprovedBy = actor.ID
	card.ApprovedAt = nil
	if status == domain.TimeCardApproved {
		card.ApprovedAt = &now
	}
	if err := r.TimeCards().Update(ctx, card); err != nil {
		return nil, fmt.Errorf("failed to update time card: %w", err)
	}

	n := timeCardReviewed(card, comments)
	if override {
		n = timeCardOverridden(card, comments)
	}
	out := newOutbox(r, now)
	if err := out.emit(ctx, n); err != nil {
		return nil, err
	}
	return out.events, loadEntries(ctx, r, card)
}

// Delete removes a card in any state together with its entries. Administrators only.
func (s *TimeCardService) Delete(ctx context.Context, actor domain.Principal, cardID string) error {
	if !actor.CanAdminister() {
		return domain.Forbiddenf("deleting time cards requires DISTRICT_ADMIN")
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		if _, err := r.TimeCards().GetByID(ctx, cardID); err != nil {
			return err
		}
		if err := r.TimeEntries().DeleteByCard(ctx, cardID); err != nil {
			return fmt.Errorf("failed to delete time entries: %w", err)
		}
		return r.TimeCards().Delete(ctx, cardID)
	})
	if err != nil {
		return err
	}
	logger.InfoLog(ctx, "time card %s deleted by %s", cardID, actor.ID)
	return nil
}

// ==================== Entries ====================

// AddEntry appends an entry to the actor's DRAFT card and recomputes its total.
func (s *TimeCardService) AddEntry(ctx context.Context, actor domain.Principal, cardID string, in EntryInput) (*domain.TimeCard, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	var card *domain.TimeCard
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		if card, err = s.editableCard(ctx, r, actor, cardID); err != nil {
			return err
		}
		now := s.opts.Now()
		entry := &domain.TimeEntry{
			ID:         uuid.NewString(),
			TimeCardID: card.ID,
			Date:       domain.Day(in.Date.In(s.opts.Location)),
			TimeIn:     in.TimeIn,
			TimeOut:    in.TimeOut,
			BreakTime:  in.BreakTime,
			DayType:    in.DayType,
			Notes:      in.Notes,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if entry.DayType == "" {
			entry.DayType = domain.DayRegular
		}
		if err := checkEntry(card, entry); err != nil {
			return err
		}
		if err := r.TimeEntries().Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to create time entry: %w", err)
		}
		return s.recompute(ctx, r, card)
	})
	if err != nil {
		return nil, err
	}
	logger.DebugLog(ctx, "entry added to time card %s, total %.2f", card.ID, card.TotalHours)
	return card, nil
}

// UpdateEntry patches an entry of the actor's DRAFT card and recomputes its total.
func (s *TimeCardService) UpdateEntry(ctx context.Context, actor domain.Principal, entryID string, patch EntryPatch) (*domain.TimeCard, error) {
	if err := Validate(patch); err != nil {
		return nil, err
	}
	var card *domain.TimeCard
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		entry, err := r.TimeEntries().GetByID(ctx, entryID)
		if err != nil {
			return err
		}
		if card, err = s.editableCard(ctx, r, actor, entry.TimeCardID); err != nil {
			return err
		}
		if patch.Date != nil {
			entry.Date = domain.Day(patch.Date.In(s.opts.Location))
		}
		if patch.TimeIn != nil {
			entry.TimeIn = patch.TimeIn
		}
		if patch.TimeOut != nil {
			entry.TimeOut = patch.TimeOut
		}
		if patch.BreakTime != nil {
			entry.BreakTime = *patch.BreakTime
		}
		if patch.DayType != nil {
			entry.DayType = *patch.DayType
		}
		if patch.Notes != nil {
			entry.Notes = *patch.Notes
		}
		entry.UpdatedAt = s.opts.Now()
		if err := checkEntry(card, entry); err != nil {
			return err
		}
		if err := r.TimeEntries().Update(ctx, entry); err != nil {
			return fmt.Errorf("failed to update time entry: %w", err)
		}
		return s.recompute(ctx, r, card)
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

// DeleteEntry removes an entry from the actor's DRAFT card and recomputes its total.
func (s *TimeCardService) DeleteEntry(ctx context.Context, actor domain.Principal, entryID string) (*domain.TimeCard, error) {
	var card *domain.TimeCard
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		entry, err := r.TimeEntries().GetByID(ctx, entryID)
		if err != nil {
			return err
		}
		if card, err = s.editableCard(ctx, r, actor, entry.TimeCardID); err != nil {
			return err
		}
		if err := r.TimeEntries().Delete(ctx, entryID); err != nil {
			return fmt.Errorf("failed to delete time entry: %w", err)
		}
		return s.recompute(ctx, r, card)
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

func (s *TimeCardService) editableCard(ctx context.Context, r domain.Repos, actor domain.Principal, cardID string) (*domain.TimeCard, error) {
	card, err := r.TimeCards().GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card.EmployeeID != actor.ID {
		return nil, domain.Forbiddenf("only the owner may edit time card %s", cardID)
	}
	if card.Status != domain.TimeCardDraft {
		return nil, domain.InvalidStatef("time card %s is %s; entries can only change in DRAFT", cardID, card.Status)
	}
	return card, nil
}

// checkEntry keeps the entry inside its card and derives its hours.
func checkEntry(card *domain.TimeCard, e *domain.TimeEntry) error {
	if !card.Covers(e.Date) {
		return &domain.Error{
			Kind:    domain.KindValidation,
			Message: fmt.Sprintf("entry date %s is outside the time card period", e.Date.Format("2006-01-02")),
			Fields:  map[string]string{"date": "within_period"},
		}
	}
	e.Hours = domain.EntryHours(e.TimeIn, e.TimeOut, e.BreakTime)
	return nil
}

// recompute reloads the entries and stores their sum as the card total.
func (s *TimeCardService) recompute(ctx context.Context, r domain.Repos, card *domain.TimeCard) error {
	if err := loadEntries(ctx, r, card); err != nil {
		return err
	}
	card.TotalHours = domain.RecomputeTotals(card.Entries)
	card.UpdatedAt = s.opts.Now()
	if err := r.TimeCards().Update(ctx, card); err != nil {
		return fmt.Errorf("failed to update time card totals: %w", err)
	}
	return nil
}

func loadEntries(ctx context.Context, r domain.Repos, card *domain.TimeCard) error {
	entries, err := r.TimeEntries().ListByCard(ctx, card.ID)
	if err != nil {
		return fmt.Errorf("failed to list time entries: %w", err)
	}
	if entries == nil {
		entries = []domain.TimeEntry{}
	}
	card.Entries = entries
	return nil
}

// ==================== Queries ====================

// Get returns a card with its entries to its owner or anyone supervising the owner.
func (s *TimeCardService) Get(ctx context.Context, actor domain.Principal, cardID string) (*domain.TimeCard, error) {
	var card *domain.TimeCard
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		if card, err = r.TimeCards().GetByID(ctx, cardID); err != nil {
			return err
		}
		if card.EmployeeID != actor.ID {
			g, err := hierarchy.Load(ctx, r)
			if err != nil {
				return err
			}
			if !g.CanSupervise(actor, card.EmployeeID) {
				return domain.Forbiddenf("%s cannot view time card %s", actor.ID, cardID)
			}
		}
		return loadEntries(ctx, r, card)
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

// List returns the actor's own cards, newest period first.
func (s *TimeCardService) List(ctx context.Context, actor domain.Principal, q TimeCardQuery) (domain.Page[domain.TimeCard], error) {
	return s.ListForEmployee(ctx, actor, actor.ID, q)
}

// ListForEmployee returns the cards of employeeID when the actor is that
// employee or supervises them.
func (s *TimeCardService) ListForEmployee(ctx context.Context, actor domain.Principal, employeeID string, q TimeCardQuery) (domain.Page[domain.TimeCard], error) {
	if err := Validate(q); err != nil {
		return domain.Page[domain.TimeCard]{}, err
	}
	var items []domain.TimeCard
	var total int
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		if employeeID != actor.ID {
			g, err := hierarchy.Load(ctx, r)
			if err != nil {
				return err
			}
			if _, ok := g.User(employeeID); !ok {
				return domain.NotFoundf("user %s not found", employeeID)
			}
			if !g.CanSupervise(actor, employeeID) {
				return domain.Forbiddenf("%s cannot view time cards of %s", actor.ID, employeeID)
			}
		}
		var err error
		items, total, err = r.TimeCards().List(ctx, domain.TimeCardFilter{
			EmployeeID: employeeID,
			Status:     q.Status,
			Pagination: q.pagination(),
		})
		return err
	})
	if err != nil {
		return domain.Page[domain.TimeCard]{}, err
	}
	return newPage(items, total, q.PageQuery), nil
}

// PendingReview returns SUBMITTED cards the actor may review, oldest submission first.
func (s *TimeCardService) PendingReview(ctx context.Context, actor domain.Principal) ([]domain.TimeCard, error) {
	var items []domain.TimeCard
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		g, err := hierarchy.Load(ctx, r)
		if err != nil {
			return err
		}
		ids := g.Supervised(actor)
		if len(ids) == 0 {
			return nil
		}
		items, _, err = r.TimeCards().List(ctx, domain.TimeCardFilter{EmployeeIDs: ids, Status: domain.TimeCardSubmitted})
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].SubmittedAt, items[j].SubmittedAt
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.Before(*b)
	})
	if items == nil {
		items = []domain.TimeCard{}
	}
	return items, nil
}

// TimeCardExport pairs a card, entries loaded, with its employee.
type TimeCardExport struct {
	Card     domain.TimeCard
	Employee domain.User
}

// Export returns every card the actor supervises with the given status
// (any status when empty), grouped by employee and oldest period first.
func (s *TimeCardService) Export(ctx context.Context, actor domain.Principal, status domain.TimeCardStatus) ([]TimeCardExport, error) {
	if err := Validate(TimeCardQuery{Status: status}); err != nil {
		return nil, err
	}
	out := []TimeCardExport{}
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		out = out[:0]
		g, err := hierarchy.Load(ctx, r)
		if err != nil {
			return err
		}
		ids := g.Supervised(actor)
		if len(ids) == 0 {
			return domain.Forbiddenf("%s supervises nobody", actor.ID)
		}
		cards, _, err := r.TimeCards().List(ctx, domain.TimeCardFilter{EmployeeIDs: ids, Status: status})
		if err != nil {
			return err
		}
		for i := range cards {
			if err := loadEntries(ctx, r, &cards[i]); err != nil {
				return err
			}
			u, _ := g.User(cards[i].EmployeeID)
			out = append(out, TimeCardExport{Card: cards[i], Employee: u})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Employee.LastName != b.Employee.LastName {
			return a.Employee.LastName < b.Employee.LastName
		}
		if a.Employee.ID != b.Employee.ID {
			return a.Employee.ID < b.Employee.ID
		}
		return a.Card.PeriodStart.Before(b.Card.PeriodStart)
	})
	return out, nil
}

func parseTimeCardAction(action string) (domain.TimeCardStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(action)) {
	case "APPROVED", "APPROVE":
		return domain.TimeCardApproved, nil
	case "REJECTED", "REJECT", "DENIED":
		return domain.TimeCardRejected, nil
	}
	return "", &domain.Error{
		Kind:    domain.KindValidation,
		Message: fmt.Sprintf("action must be APPROVED or REJECTED, got %q", action),
		Fields:  map[string]string{"action": "oneof=APPROVED REJECTED"},
	}
}
