package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/locvowork/staffportal/internal/domain"
)

// MemoryStore is an in-process domain.Store. Transactions are serialized and
// run against a copy of the state that replaces the original only on success.
type MemoryStore struct {
	mu    sync.Mutex
	state memoryState
}

type memoryState struct {
	users         map[string]domain.User
	edges         []domain.ManagerEdge
	timeCards     map[string]domain.TimeCard
	timeEntries   map[string]domain.TimeEntry
	timeOff       map[string]domain.TimeOffRequest
	notifications map[string]domain.Notification
	calendar      map[string]domain.CalendarEvent
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memoryState{
		users:         map[string]domain.User{},
		timeCards:     map[string]domain.TimeCard{},
		timeEntries:   map[string]domain.TimeEntry{},
		timeOff:       map[string]domain.TimeOffRequest{},
		notifications: map[string]domain.Notification{},
		calendar:      map[string]domain.CalendarEvent{},
	}}
}

func (s memoryState) clone() memoryState {
	c := memoryState{
		users:         make(map[string]domain.User, len(s.users)),
		edges:         append([]domain.ManagerEdge(nil), s.edges...),
		timeCards:     make(map[string]domain.TimeCard, len(s.timeCards)),
		timeEntries:   make(map[string]domain.TimeEntry, len(s.timeEntries)),
		timeOff:       make(map[string]domain.TimeOffRequest, len(s.timeOff)),
		notifications: make(map[string]domain.Notification, len(s.notifications)),
		calendar:      make(map[string]domain.CalendarEvent, len(s.calendar)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.timeCards {
		c.timeCards[k] = v
	}
	for k, v := range s.timeEntries {
		c.timeEntries[k] = v
	}
	for k, v := range s.timeOff {
		c.timeOff[k] = v
	}
	for k, v := range s.notifications {
		c.notifications[k] = v
	}
	for k, v := range s.calendar {
		c.calendar[k] = v
	}
	return c
}

// WithinTx implements domain.Store
func (m *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, r domain.Repos) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(ctx, &memoryRepos{s: &work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

type memoryRepos struct{ s *memoryState }

func (r *memoryRepos) Users() domain.UserRepository                 { return memUsers{r.s} }
func (r *memoryRepos) ManagerEdges() domain.ManagerEdgeRepository   { return memEdges{r.s} }
func (r *memoryRepos) TimeCards() domain.TimeCardRepository         { return memTimeCards{r.s} }
func (r *memoryRepos) TimeEntries() domain.TimeEntryRepository      { return memTimeEntries{r.s} }
func (r *memoryRepos) TimeOff() domain.TimeOffRepository            { return memTimeOff{r.s} }
func (r *memoryRepos) Notifications() domain.NotificationRepository { return memNotifications{r.s} }
func (r *memoryRepos) Calendar() domain.CalendarRepository          { return memCalendar{r.s} }

func paginate[T any](items []T, p domain.Pagination) []T {
	if p.Offset > 0 {
		if p.Offset >= len(items) {
			return []T{}
		}
		items = items[p.Offset:]
	}
	if p.Limit > 0 && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	return items
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// ==================== Users ====================

type memUsers struct{ s *memoryState }

func (r memUsers) Create(ctx context.Context, u *domain.User) error {
	if _, ok := r.s.users[u.ID]; ok {
		return domain.Errorf(domain.KindConflict, "user %s already exists", u.ID)
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.NotFoundf("user %s not found", id)
	}
	return &u, nil
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, domain.NotFoundf("user with email %s not found", email)
}

func (r memUsers) GetByEmployeeNumber(ctx context.Context, number string) (*domain.User, error) {
	for _, u := range r.s.users {
		if u.EmployeeNumber == number {
			u := u
			return &u, nil
		}
	}
	return nil, domain.NotFoundf("user with employee number %s not found", number)
}

func (r memUsers) Update(ctx context.Context, u *domain.User) error {
	if _, ok := r.s.users[u.ID]; !ok {
		return domain.NotFoundf("user %s not found", u.ID)
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r memUsers) List(ctx context.Context, f domain.UserFilter) ([]domain.User, int, error) {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []domain.User
	for _, u := range r.s.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Building != "" && u.Building != f.Building {
			continue
		}
		if f.Department != "" && u.Department != f.Department {
			continue
		}
		if f.Active != nil && u.Active != *f.Active {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.FirstName+" "+u.LastName+" "+u.Email+" "+u.EmployeeNumber), search) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		if out[i].FirstName != out[j].FirstName {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, f.Pagination), len(out), nil
}

func (r memUsers) CountBy(ctx context.Context, column string) ([]domain.CountByKey, error) {
	counts := map[string]int{}
	for _, u := range r.s.users {
		if !u.Active {
			continue
		}
		var key string
		switch column {
		case "role":
			key = string(u.Role)
		case "building":
			key = u.Building
		case "department":
			key = u.Department
		default:
			return nil, domain.Errorf(domain.KindValidation, "cannot group users by %q", column)
		}
		if key == "" {
			continue
		}
		counts[key]++
	}
	out := make([]domain.CountByKey, 0, len(counts))
	for k, v := range counts {
		out = append(out, domain.CountByKey{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// ==================== Manager edges ====================

type memEdges struct{ s *memoryState }

func (r memEdges) ListAll(ctx context.Context) ([]domain.ManagerEdge, error) {
	return append([]domain.ManagerEdge(nil), r.s.edges...), nil
}

func (r memEdges) ListByEmployee(ctx context.Context, employeeID string) ([]domain.ManagerEdge, error) {
	var out []domain.ManagerEdge
	for _, e := range r.s.edges {
		if e.EmployeeID == employeeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r memEdges) ListByManager(ctx context.Context, managerID string) ([]domain.ManagerEdge, error) {
	var out []domain.ManagerEdge
	for _, e := range r.s.edges {
		if e.ManagerID == managerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r memEdges) Add(ctx context.Context, e domain.ManagerEdge) error {
	for _, existing := range r.s.edges {
		if existing.EmployeeID == e.EmployeeID && existing.ManagerID == e.ManagerID && existing.Kind == e.Kind {
			return nil
		}
	}
	r.s.edges = append(r.s.edges, e)
	return nil
}

func (r memEdges) Remove(ctx context.Context, employeeID, managerID string, kind domain.EdgeKind) error {
	kept := r.s.edges[:0:0]
	for _, e := range r.s.edges {
		if e.EmployeeID == employeeID && e.ManagerID == managerID && e.Kind == kind {
			continue
		}
		kept = append(kept, e)
	}
	r.s.edges = kept
	return nil
}

func (r memEdges) Replace(ctx context.Context, employeeID string, kind domain.EdgeKind, managerIDs []string) error {
	kept := r.s.edges[:0:0]
	for _, e := range r.s.edges {
		if e.EmployeeID == employeeID && e.Kind == kind {
			continue
		}
		kept = append(kept, e)
	}
	now := time.Now()
	for _, mid := range managerIDs {
		kept = append(kept, domain.ManagerEdge{EmployeeID: employeeID, ManagerID: mid, Kind: kind, CreatedAt: now})
	}
	r.s.edges = kept
	return nil
}

// ==================== Time cards ====================

type memTimeCards struct{ s *memoryState }

func (r memTimeCards) Create(ctx context.Context, c *domain.TimeCard) error {
	stored := *c
	stored.Entries = nil
	r.s.timeCards[c.ID] = stored
	return nil
}

func (r memTimeCards) GetByID(ctx context.Context, id string) (*domain.TimeCard, error) {
	c, ok := r.s.timeCards[id]
	if !ok {
		return nil, domain.NotFoundf("time card %s not found", id)
	}
	return &c, nil
}

func (r memTimeCards) Update(ctx context.Context, c *domain.TimeCard) error {
	if _, ok := r.s.timeCards[c.ID]; !ok {
		return domain.NotFoundf("time card %s not found", c.ID)
	}
	stored := *c
	stored.Entries = nil
	r.s.timeCards[c.ID] = stored
	return nil
}

func (r memTimeCards) Delete(ctx context.Context, id string) error {
	if _, ok := r.s.timeCards[id]; !ok {
		return domain.NotFoundf("time card %s not found", id)
	}
	for _, e := range r.s.timeEntries {
		if e.TimeCardID == id {
			return domain.Errorf(domain.KindConflict, "time card %s still has entries", id)
		}
	}
	delete(r.s.timeCards, id)
	return nil
}

func (r memTimeCards) List(ctx context.Context, f domain.TimeCardFilter) ([]domain.TimeCard, int, error) {
	var out []domain.TimeCard
	for _, c := range r.s.timeCards {
		if f.EmployeeID != "" && c.EmployeeID != f.EmployeeID {
			continue
		}
		if f.EmployeeIDs != nil && !containsID(f.EmployeeIDs, c.EmployeeID) {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PeriodStart.Equal(out[j].PeriodStart) {
			return out[i].PeriodStart.After(out[j].PeriodStart)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, f.Pagination), len(out), nil
}

func (r memTimeCards) ListOverlapping(ctx context.Context, employeeID string, start, end time.Time) ([]domain.TimeCard, error) {
	var out []domain.TimeCard
	for _, c := range r.s.timeCards {
		if c.EmployeeID == employeeID && c.PeriodStart.Before(end) && start.Before(c.PeriodEnd) {
			out = append(out, c)
		}
	}
	return out, nil
}

// ==================== Time entries ====================

type memTimeEntries struct{ s *memoryState }

func (r memTimeEntries) Create(ctx context.Context, e *domain.TimeEntry) error {
	if _, ok := r.s.timeCards[e.TimeCardID]; !ok {
		return domain.NotFoundf("time card %s not found", e.TimeCardID)
	}
	r.s.timeEntries[e.ID] = *e
	return nil
}

func (r memTimeEntries) GetByID(ctx context.Context, id string) (*domain.TimeEntry, error) {
	e, ok := r.s.timeEntries[id]
	if !ok {
		return nil, domain.NotFoundf("time entry %s not found", id)
	}
	return &e, nil
}

func (r memTimeEntries) Update(ctx context.Context, e *domain.TimeEntry) error {
	if _, ok := r.s.timeEntries[e.ID]; !ok {
		return domain.NotFoundf("time entry %s not found", e.ID)
	}
	r.s.timeEntries[e.ID] = *e
	return nil
}

func (r memTimeEntries) Delete(ctx context.Context, id string) error {
	if _, ok := r.s.timeEntries[id]; !ok {
		return domain.NotFoundf("time entry %s not found", id)
	}
	delete(r.s.timeEntries, id)
	return nil
}

func (r memTimeEntries) ListByCard(ctx context.Context, cardID string) ([]domain.TimeEntry, error) {
	var out []domain.TimeEntry
	for _, e := range r.s.timeEntries {
		if e.TimeCardID == cardID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r memTimeEntries) DeleteByCard(ctx context.Context, cardID string) error {
	for id, e := range r.s.timeEntries {
		if e.TimeCardID == cardID {
			delete(r.s.timeEntries, id)
		}
	}
	return nil
}

// ==================== Time off ====================

type memTimeOff struct{ s *memoryState }

func (r memTimeOff) Create(ctx context.Context, t *domain.TimeOffRequest) error {
	r.s.timeOff[t.ID] = *t
	return nil
}

func (r memTimeOff) GetByID(ctx context.Context, id string) (*domain.TimeOffRequest, error) {
	t, ok := r.s.timeOff[id]
	if !ok {
		return nil, domain.NotFoundf("time off request %s not found", id)
	}
	return &t, nil
}

func (r memTimeOff) Update(ctx context.Context, t *domain.TimeOffRequest) error {
	if _, ok := r.s.timeOff[t.ID]; !ok {
		return domain.NotFoundf("time off request %s not found", t.ID)
	}
	r.s.timeOff[t.ID] = *t
	return nil
}

func (r memTimeOff) Delete(ctx context.Context, id string) error {
	if _, ok := r.s.timeOff[id]; !ok {
		return domain.NotFoundf("time off request %s not found", id)
	}
	delete(r.s.timeOff, id)
	return nil
}

func (r memTimeOff) List(ctx context.Context, f domain.TimeOffFilter) ([]domain.TimeOffRequest, int, error) {
	var out []domain.TimeOffRequest
	for _, t := range r.s.timeOff {
		if f.EmployeeID != "" && t.EmployeeID != f.EmployeeID {
			continue
		}
		if f.EmployeeIDs != nil && !containsID(f.EmployeeIDs, t.EmployeeID) {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.Building != "" && r.s.users[t.EmployeeID].Building != f.Building {
			continue
		}
		if f.From != nil && t.EndDate.Before(*f.From) {
			continue
		}
		if f.To != nil && t.StartDate.After(*f.To) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, f.Pagination), len(out), nil
}

// ==================== Notifications ====================

type memNotifications struct{ s *memoryState }

func (r memNotifications) Create(ctx context.Context, n *domain.Notification) error {
	r.s.notifications[n.ID] = *n
	return nil
}

func (r memNotifications) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	n, ok := r.s.notifications[id]
	if !ok {
		return nil, domain.NotFoundf("notification %s not found", id)
	}
	return &n, nil
}

func (r memNotifications) List(ctx context.Context, f domain.NotificationFilter) ([]domain.Notification, int, error) {
	var out []domain.Notification
	for _, n := range r.s.notifications {
		if f.RecipientUserID != "" && n.RecipientUserID != f.RecipientUserID {
			continue
		}
		if f.IsRead != nil && n.IsRead != *f.IsRead {
			continue
		}
		if f.Type != "" && n.Type != f.Type {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, f.Pagination), len(out), nil
}

func (r memNotifications) CountUnread(ctx context.Context, recipientID string) (int, error) {
	count := 0
	for _, n := range r.s.notifications {
		if n.RecipientUserID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r memNotifications) MarkRead(ctx context.Context, id string) error {
	n, ok := r.s.notifications[id]
	if !ok {
		return domain.NotFoundf("notification %s not found", id)
	}
	n.IsRead = true
	r.s.notifications[id] = n
	return nil
}

func (r memNotifications) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	count := 0
	for id, n := range r.s.notifications {
		if n.RecipientUserID == recipientID && !n.IsRead {
			n.IsRead = true
			r.s.notifications[id] = n
			count++
		}
	}
	return count, nil
}

func (r memNotifications) Delete(ctx context.Context, id string) error {
	if _, ok := r.s.notifications[id]; !ok {
		return domain.NotFoundf("notification %s not found", id)
	}
	delete(r.s.notifications, id)
	return nil
}

func (r memNotifications) DeleteRead(ctx context.Context, recipientID string) (int, error) {
	count := 0
	for id, n := range r.s.notifications {
		if n.RecipientUserID == recipientID && n.IsRead {
			delete(r.s.notifications, id)
			count++
		}
	}
	return count, nil
}

// ==================== Calendar ====================

type memCalendar struct{ s *memoryState }

// dateTaken mirrors the unique date index of calendar_events.
func (r memCalendar) dateTaken(e *domain.CalendarEvent) error {
	for _, other := range r.s.calendar {
		if other.ID != e.ID && other.Date.Equal(e.Date) {
			return domain.Errorf(domain.KindConflict, "an event already exists for %s", e.Date.Format("2006-01-02"))
		}
	}
	return nil
}

func (r memCalendar) Create(ctx context.Context, e *domain.CalendarEvent) error {
	if err := r.dateTaken(e); err != nil {
		return err
	}
	r.s.calendar[e.ID] = *e
	return nil
}

func (r memCalendar) GetByID(ctx context.Context, id string) (*domain.CalendarEvent, error) {
	e, ok := r.s.calendar[id]
	if !ok {
		return nil, domain.NotFoundf("calendar event %s not found", id)
	}
	return &e, nil
}

func (r memCalendar) Update(ctx context.Context, e *domain.CalendarEvent) error {
	if _, ok := r.s.calendar[e.ID]; !ok {
		return domain.NotFoundf("calendar event %s not found", e.ID)
	}
	if err := r.dateTaken(e); err != nil {
		return err
	}
	r.s.calendar[e.ID] = *e
	return nil
}

func (r memCalendar) Delete(ctx context.Context, id string) error {
	if _, ok := r.s.calendar[id]; !ok {
		return domain.NotFoundf("calendar event %s not found", id)
	}
	delete(r.s.calendar, id)
	return nil
}

func (r memCalendar) List(ctx context.Context, f domain.CalendarFilter) ([]domain.CalendarEvent, error) {
	out := []domain.CalendarEvent{}
	for _, e := range r.s.calendar {
		if f.From != nil && e.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && e.Date.After(*f.To) {
			continue
		}
		if len(f.DayTypes) > 0 && !containsDayType(f.DayTypes, e.DayType) {
			continue
		}
		if f.Dates != nil && !containsDate(f.Dates, e.Date) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func containsDayType(types []domain.DayType, t domain.DayType) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}

func containsDate(dates []time.Time, d time.Time) bool {
	for _, v := range dates {
		if v.Equal(d) {
			return true
		}
	}
	return false
}
