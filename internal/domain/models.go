package domain

import "time"

// ==================== STAFF DIRECTORY ====================

// User represents a staff record
type User struct {
	ID             string    `json:"id" db:"id"`
	EmployeeNumber string    `json:"employee_number" db:"employee_number"`
	Email          string    `json:"email" db:"email"`
	FirstName      string    `json:"first_name" db:"first_name"`
	LastName       string    `json:"last_name" db:"last_name"`
	Role           Role      `json:"role" db:"role"`
	Department     string    `json:"department" db:"department"`
	Building       string    `json:"building" db:"building"`
	Position       string    `json:"position" db:"position"`
	HireDate       time.Time `json:"hire_date" db:"hire_date"`
	Active         bool      `json:"active" db:"active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// FullName returns "First Last"
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// EdgeKind distinguishes a general manager edge from a faculty principal edge.
type EdgeKind string

const (
	EdgeManager   EdgeKind = "MANAGER"
	EdgePrincipal EdgeKind = "PRINCIPAL"
)

// ManagerEdge is a directed "employee reports to manager" relation
type ManagerEdge struct {
	EmployeeID string    `json:"employee_id" db:"employee_id"`
	ManagerID  string    `json:"manager_id" db:"manager_id"`
	Kind       EdgeKind  `json:"kind" db:"kind"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ==================== TIME CARDS ====================

type TimeCardStatus string

const (
	TimeCardDraft     TimeCardStatus = "DRAFT"
	TimeCardSubmitted TimeCardStatus = "SUBMITTED"
	TimeCardApproved  TimeCardStatus = "APPROVED"
	TimeCardRejected  TimeCardStatus = "REJECTED"
)

// TimeCard is one employee's pay period. PeriodEnd is exclusive.
type TimeCard struct {
	ID          string         `json:"id" db:"id"`
	EmployeeID  string         `json:"employee_id" db:"employee_id"`
	PeriodStart time.Time      `json:"period_start" db:"period_start"`
	PeriodEnd   time.Time      `json:"period_end" db:"period_end"`
	Status      TimeCardStatus `json:"status" db:"status"`
	TotalHours  float64        `json:"total_hours" db:"total_hours"`
	SubmittedAt *time.Time     `json:"submitted_at,omitempty" db:"submitted_at"`
	ApprovedBy  string         `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt  *time.Time     `json:"approved_at,omitempty" db:"approved_at"`
	Comments    string         `json:"comments,omitempty" db:"comments"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
	Entries     []TimeEntry    `json:"entries,omitempty" db:"-"`
}

// Covers reports whether day falls inside the half-open period.
func (c TimeCard) Covers(day time.Time) bool {
	return !day.Before(c.PeriodStart) && day.Before(c.PeriodEnd)
}

type DayType string

const (
	DayRegular                 DayType = "REGULAR"
	DaySick                    DayType = "SICK"
	DayVacation                DayType = "VACATION"
	DayPersonal                DayType = "PERSONAL"
	DayHoliday                 DayType = "HOLIDAY"
	DaySnowDay                 DayType = "SNOW_DAY"
	DayProfessionalDevelopment DayType = "PROFESSIONAL_DEVELOPMENT"
	DayBereavement             DayType = "BEREAVEMENT"
	DayJuryDuty                DayType = "JURY_DUTY"
	DayUnpaid                  DayType = "UNPAID"
)

// IsNonWorkDay reports whether a calendar day of this type closes the district.
func (d DayType) IsNonWorkDay() bool {
	return d == DayHoliday || d == DaySnowDay
}

// CalendarEvent marks one district calendar date. At most one event exists per date.
type CalendarEvent struct {
	ID             string    `json:"id" db:"id"`
	Title          string    `json:"title" db:"title"`
	Description    string    `json:"description,omitempty" db:"description"`
	Date           time.Time `json:"date" db:"date"`
	DayType        DayType   `json:"day_type" db:"day_type"`
	IsRecurring    bool      `json:"is_recurring" db:"is_recurring"`
	RecurrenceRule string    `json:"recurrence_rule,omitempty" db:"recurrence_rule"`
	CreatedBy      string    `json:"created_by" db:"created_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// TimeEntry belongs to exactly one TimeCard
type TimeEntry struct {
	ID         string     `json:"id" db:"id"`
	TimeCardID string     `json:"time_card_id" db:"time_card_id"`
	Date       time.Time  `json:"date" db:"date"`
	TimeIn     *time.Time `json:"time_in,omitempty" db:"time_in"`
	TimeOut    *time.Time `json:"time_out,omitempty" db:"time_out"`
	BreakTime  int        `json:"break_time" db:"break_time"` // minutes
	DayType    DayType    `json:"day_type" db:"day_type"`
	Hours      float64    `json:"hours" db:"hours"`
	Notes      string     `json:"notes,omitempty" db:"notes"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// ==================== TIME OFF ====================

type TimeOffStatus string

const (
	TimeOffPending  TimeOffStatus = "PENDING"
	TimeOffApproved TimeOffStatus = "APPROVED"
	TimeOffRejected TimeOffStatus = "REJECTED"
)

type TimeOffType string

const (
	TimeOffSick                    TimeOffType = "SICK"
	TimeOffVacation                TimeOffType = "VACATION"
	TimeOffPersonal                TimeOffType = "PERSONAL"
	TimeOffBereavement             TimeOffType = "BEREAVEMENT"
	TimeOffJuryDuty                TimeOffType = "JURY_DUTY"
	TimeOffUnpaid                  TimeOffType = "UNPAID"
	TimeOffProfessionalDevelopment TimeOffType = "PROFESSIONAL_DEVELOPMENT"
)

// TimeOffRequest spans [StartDate, EndDate] inclusive.
type TimeOffRequest struct {
	ID          string        `json:"id" db:"id"`
	EmployeeID  string        `json:"employee_id" db:"employee_id"`
	Type        TimeOffType   `json:"type" db:"type"`
	StartDate   time.Time     `json:"start_date" db:"start_date"`
	EndDate     time.Time     `json:"end_date" db:"end_date"`
	Hours       float64       `json:"hours" db:"hours"`
	Reason      string        `json:"reason,omitempty" db:"reason"`
	Status      TimeOffStatus `json:"status" db:"status"`
	ReviewedBy  string        `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt  *time.Time    `json:"reviewed_at,omitempty" db:"reviewed_at"`
	Comments    string        `json:"comments,omitempty" db:"comments"`
	SubmittedAt time.Time     `json:"submitted_at" db:"submitted_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// Overlaps reports whether two inclusive date ranges share at least one day.
func (r TimeOffRequest) Overlaps(start, end time.Time) bool {
	return !r.StartDate.After(end) && !r.EndDate.Before(start)
}

// ==================== NOTIFICATIONS ====================

const (
	NotificationTimeCard = "timecard"
	NotificationTimeOff  = "timeoff"
	NotificationSystem   = "system"

	TagAdminOverride = "admin override"
)

// Notification is an output event of a workflow transition
type Notification struct {
	ID              string    `json:"id" db:"id"`
	RecipientUserID string    `json:"recipient_user_id" db:"recipient_user_id"`
	Title           string    `json:"title" db:"title"`
	Message         string    `json:"message" db:"message"`
	Type            string    `json:"type" db:"type"`
	Tag             string    `json:"tag,omitempty" db:"tag"`
	IsRead          bool      `json:"is_read" db:"is_read"`
	RelatedID       string    `json:"related_id,omitempty" db:"related_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// ==================== REPORTING ====================

// CountByKey is one row of a grouped count
type CountByKey struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// DirectoryStats aggregates the admin dashboard counters
type DirectoryStats struct {
	TotalUsers           int          `json:"total_users"`
	ActiveUsers          int          `json:"active_users"`
	PendingTimeCards     int          `json:"pending_time_cards"`
	PendingTimeOff       int          `json:"pending_time_off"`
	TotalTimeCards       int          `json:"total_time_cards"`
	TotalTimeOffRequests int          `json:"total_time_off_requests"`
	UsersByRole          []CountByKey `json:"users_by_role"`
	UsersByBuilding      []CountByKey `json:"users_by_building"`
}

// Page is a slice of results plus the total match count
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}
