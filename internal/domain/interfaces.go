package domain

import (
	"context"
	"time"
)

// Pagination is shared by list filters; zero values mean "no limit".
type Pagination struct {
	Limit  int
	Offset int
}

// UserFilter defines criteria for listing users
type UserFilter struct {
	Role       Role
	Building   string
	Department string
	Active     *bool
	Search     string
	Pagination
}

// TimeCardFilter defines criteria for listing time cards
type TimeCardFilter struct {
	EmployeeID  string
	EmployeeIDs []string
	Status      TimeCardStatus
	Pagination
}

// TimeOffFilter defines criteria for listing time off requests.
// From/To select requests overlapping the inclusive window.
type TimeOffFilter struct {
	EmployeeID  string
	EmployeeIDs []string
	Status      TimeOffStatus
	Type        TimeOffType
	Building    string
	From        *time.Time
	To          *time.Time
	Pagination
}

// NotificationFilter defines criteria for listing notifications. An empty
// RecipientUserID matches every recipient.
type NotificationFilter struct {
	RecipientUserID string
	IsRead          *bool
	Type            string
	Pagination
}

// CalendarFilter selects events by inclusive date window, day types or exact dates.
type CalendarFilter struct {
	From     *time.Time
	To       *time.Time
	DayTypes []DayType
	Dates    []time.Time
}

// UserRepository defines the interface for staff directory data access
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmployeeNumber(ctx context.Context, number string) (*User, error)
	Update(ctx context.Context, u *User) error
	List(ctx context.Context, filter UserFilter) ([]User, int, error)
	CountBy(ctx context.Context, column string) ([]CountByKey, error)
}

// ManagerEdgeRepository stores the reports-to graph
type ManagerEdgeRepository interface {
	ListAll(ctx context.Context) ([]ManagerEdge, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]ManagerEdge, error)
	ListByManager(ctx context.Context, managerID string) ([]ManagerEdge, error)
	Add(ctx context.Context, e ManagerEdge) error
	Remove(ctx context.Context, employeeID, managerID string, kind EdgeKind) error
	// Replace swaps every edge of the given kind leaving employeeID.
	Replace(ctx context.Context, employeeID string, kind EdgeKind, managerIDs []string) error
}

// TimeCardRepository defines time card persistence. GetByID inside a
// transaction takes a row lock so concurrent reviews serialize.
type TimeCardRepository interface {
	Create(ctx context.Context, c *TimeCard) error
	GetByID(ctx context.Context, id string) (*TimeCard, error)
	Update(ctx context.Context, c *TimeCard) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter TimeCardFilter) ([]TimeCard, int, error)
	// ListOverlapping returns the employee's cards intersecting [start, end).
	ListOverlapping(ctx context.Context, employeeID string, start, end time.Time) ([]TimeCard, error)
}

// TimeEntryRepository defines time entry persistence
type TimeEntryRepository interface {
	Create(ctx context.Context, e *TimeEntry) error
	GetByID(ctx context.Context, id string) (*TimeEntry, error)
	Update(ctx context.Context, e *TimeEntry) error
	Delete(ctx context.Context, id string) error
	ListByCard(ctx context.Context, cardID string) ([]TimeEntry, error)
	DeleteByCard(ctx context.Context, cardID string) error
}

// TimeOffRepository defines time off persistence
type TimeOffRepository interface {
	Create(ctx context.Context, r *TimeOffRequest) error
	GetByID(ctx context.Context, id string) (*TimeOffRequest, error)
	Update(ctx context.Context, r *TimeOffRequest) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter TimeOffFilter) ([]TimeOffRequest, int, error)
}

// NotificationRepository defines notification persistence
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id string) (*Notification, error)
	List(ctx context.Context, filter NotificationFilter) ([]Notification, int, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, recipientID string) (int, error)
	Delete(ctx context.Context, id string) error
	DeleteRead(ctx context.Context, recipientID string) (int, error)
}

// CalendarRepository stores the district calendar
type CalendarRepository interface {
	Create(ctx context.Context, e *CalendarEvent) error
	GetByID(ctx context.Context, id string) (*CalendarEvent, error)
	Update(ctx context.Context, e *CalendarEvent) error
	Delete(ctx context.Context, id string) error
	// List returns matching events ordered by date.
	List(ctx context.Context, filter CalendarFilter) ([]CalendarEvent, error)
}

// Repos is the set of repositories bound to one unit of work.
type Repos interface {
	Users() UserRepository
	ManagerEdges() ManagerEdgeRepository
	TimeCards() TimeCardRepository
	TimeEntries() TimeEntryRepository
	TimeOff() TimeOffRepository
	Notifications() NotificationRepository
	Calendar() CalendarRepository
}

// Store runs fn inside one atomic transaction; a returned error rolls back every write.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}

// HolidayCalendar knows non-working weekdays. service.CalendarService serves
// it from HOLIDAY and SNOW_DAY events.
type HolidayCalendar interface {
	NonWorkDays(ctx context.Context, from, to time.Time) ([]time.Time, error)
}

// Clock abstracts time.Now for deterministic transitions.
type Clock func() time.Time
