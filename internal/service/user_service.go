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

// DirectoryIndex is the full-text staff index used by Search.
type DirectoryIndex interface {
	IndexUser(ctx context.Context, u domain.User) error
	SearchUsers(ctx context.Context, query string, limit int) ([]string, error)
}

// NewUser is the input of UserService.Create.
type NewUser struct {
	EmployeeNumber string     `json:"employee_number" validate:"required,max=32"`
	Email          string     `json:"email" validate:"required,email"`
	FirstName      string     `json:"first_name" validate:"required,max=100"`
	LastName       string     `json:"last_name" validate:"required,max=100"`
	Role           string     `json:"role" validate:"required"`
	Department     string     `json:"department" validate:"max=100"`
	Building       string     `json:"building" validate:"max=100"`
	Position       string     `json:"position" validate:"max=100"`
	HireDate       *time.Time `json:"hire_date"`
	ManagerIDs     []string   `json:"manager_ids" validate:"omitempty,dive,required"`
	PrincipalID    string     `json:"principal_id"`
}

// UserPatch changes only the non-nil fields of a user.
type UserPatch struct {
	Email       *string    `json:"email" validate:"omitempty,email"`
	FirstName   *string    `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName    *string    `json:"last_name" validate:"omitempty,min=1,max=100"`
	Role        *string    `json:"role"`
	Department  *string    `json:"department" validate:"omitempty,max=100"`
	Building    *string    `json:"building" validate:"omitempty,max=100"`
	Position    *string    `json:"position" validate:"omitempty,max=100"`
	HireDate    *time.Time `json:"hire_date"`
	Active      *bool      `json:"active"`
	ManagerIDs  *[]string  `json:"manager_ids"`
	PrincipalID *string    `json:"principal_id"`
}

// UserQuery filters the admin directory.
type UserQuery struct {
	Role       string `query:"role"`
	Building   string `query:"building"`
	Department string `query:"department"`
	Active     *bool  `query:"active"`
	Search     string `query:"search" validate:"max=100"`
	PageQuery
}

// UserService is the administrative staff directory.
type UserService struct {
	store   domain.Store
	checker *hierarchy.Checker
	index   DirectoryIndex
	opts    Options
}

// NewUserService creates a new UserService instance. index may be nil.
func NewUserService(store domain.Store, checker *hierarchy.Checker, index DirectoryIndex, opts Options) *UserService {
	return &UserService{store: store, checker: checker, index: index, opts: opts.withDefaults()}
}

// ==================== Directory writes ====================

// Create adds a user and their reporting edges in one transaction.
func (s *UserService) Create(ctx context.Context, actor domain.Principal, in NewUser) (*domain.User, error) {
	if !actor.CanAdminister() {
		return nil, domain.Forbiddenf("creating users requires DISTRICT_ADMIN")
	}
	if err := Validate(in); err != nil {
		return nil, err
	}
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	u := &domain.User{
		ID:             uuid.NewString(),
		EmployeeNumber: strings.TrimSpace(in.EmployeeNumber),
		Email:          strings.ToLower(strings.TrimSpace(in.Email)),
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Role:           role,
		Department:     in.Department,
		Building:       in.Building,
		Position:       in.Position,
		HireDate:       now,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.HireDate != nil {
		u.HireDate = *in.HireDate
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		if err := checkUnique(ctx, r, u); err != nil {
			return err
		}
		if err := r.Users().Create(ctx, u); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		if len(in.ManagerIDs) > 0 {
			if err := s.checker.ReplaceEdgesTx(ctx, r, u.ID, domain.EdgeManager, in.ManagerIDs); err != nil {
				return err
			}
		}
		if in.PrincipalID != "" {
			return s.checker.ReplaceEdgesTx(ctx, r, u.ID, domain.EdgePrincipal, []string{in.PrincipalID})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.InfoLog(ctx, "user %s (%s) created by %s", u.ID, u.Role, actor.ID)
	s.reindex(ctx, *u)
	return u, nil
}

// Update applies a patch. Edge lists, when present, replace the stored ones
// and pass the cycle check.
func (s *UserService) Update(ctx context.Context, actor domain.Principal, id string, p UserPatch) (*domain.User, error) {
	if !actor.CanAdminister() {
		return nil, domain.Forbiddenf("updating users requires DISTRICT_ADMIN")
	}
	if err := Validate(p); err != nil {
		return nil, err
	}
	var u *domain.User
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		if u, err = r.Users().GetByID(ctx, id); err != nil {
			return err
		}
		if p.Email != nil {
			u.Email = strings.ToLower(strings.TrimSpace(*p.Email))
		}
		if p.FirstName != nil {
			u.FirstName = strings.TrimSpace(*p.FirstName)
		}
		if p.LastName != nil {
			u.LastName = strings.TrimSpace(*p.LastName)
		}
		if p.Role != nil {
			if u.Role, err = domain.ParseRole(*p.Role); err != nil {
				return err
			}
		}
		if p.Department != nil {
			u.Department = *p.Department
		}
		if p.Building != nil {
			u.Building = *p.Building
		}
		if p.Position != nil {
			u.Position = *p.Position
		}
		if p.HireDate != nil {
			u.HireDate = *p.HireDate
		}
		if p.Active != nil {
			u.Active = *p.Active
		}
		u.UpdatedAt = s.opts.Now()
		if err := checkUnique(ctx, r, u); err != nil {
			return err
		}
		if err := r.Users().Update(ctx, u); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		if p.ManagerIDs != nil {
			if err := s.checker.ReplaceEdgesTx(ctx, r, id, domain.EdgeManager, *p.ManagerIDs); err != nil {
				return err
			}
		}
		if p.PrincipalID != nil {
			var ids []string
			if *p.PrincipalID != "" {
				ids = []string{*p.PrincipalID}
			}
			return s.checker.ReplaceEdgesTx(ctx, r, id, domain.EdgePrincipal, ids)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.InfoLog(ctx, "user %s updated by %s", id, actor.ID)
	s.reindex(ctx, *u)
	return u, nil
}

// Deactivate soft-deletes a user. Records that reference them are kept.
func (s *UserService) Deactivate(ctx context.Context, actor domain.Principal, id string) (*domain.User, error) {
	if actor.ID == id {
		return nil, domain.NewError(domain.KindValidation, "cannot deactivate your own account")
	}
	active := false
	return s.Update(ctx, actor, id, UserPatch{Active: &active})
}

// Principal loads the stored identity of userID. Missing and inactive users
// are refused.
func (s *UserService) Principal(ctx context.Context, userID string) (domain.Principal, error) {
	var u *domain.User
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		u, err = r.Users().GetByID(ctx, userID)
		return err
	})
	if err != nil {
		return domain.Principal{}, err
	}
	if !u.Active {
		return domain.Principal{}, domain.Forbiddenf("user %s is inactive", userID)
	}
	return domain.PrincipalOf(*u), nil
}

// checkUnique enforces one user per email and per employee number.
func checkUnique(ctx context.Context, r domain.Repos, u *domain.User) error {
	if other, err := r.Users().GetByEmail(ctx, u.Email); err == nil && other.ID != u.ID {
		return domain.Errorf(domain.KindConflict, "email %s is already in use", u.Email)
	} else if err != nil && domain.KindOf(err) != domain.KindNotFound {
		return err
	}
	if other, err := r.Users().GetByEmployeeNumber(ctx, u.EmployeeNumber); err == nil && other.ID != u.ID {
		return domain.Errorf(domain.KindConflict, "employee number %s is already in use", u.EmployeeNumber)
	} else if err != nil && domain.KindOf(err) != domain.KindNotFound {
		return err
	}
	return nil
}

func (s *UserService) reindex(ctx context.Context, u domain.User) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexUser(ctx, u); err != nil {
		logger.ErrorLog(ctx, "failed to index user %s: %v", u.ID, err)
	}
}

// ==================== Reporting edges ====================

func (s *UserService) AddManager(ctx context.Context, actor domain.Principal, employeeID, managerID string) error {
	if !actor.CanAdminister() {
		return domain.Forbiddenf("editing the hierarchy requires DISTRICT_ADMIN")
	}
	return s.checker.AddManagerEdge(ctx, employeeID, managerID)
}

func (s *UserService) RemoveManager(ctx context.Context, actor domain.Principal, employeeID, managerID string) error {
	if !actor.CanAdminister() {
		return domain.Forbiddenf("editing the hierarchy requires DISTRICT_ADMIN")
	}
	return s.checker.RemoveManagerEdge(ctx, employeeID, managerID)
}

func (s *UserService) SetManagers(ctx context.Context, actor domain.Principal, employeeID string, managerIDs []string) error {
	if !actor.CanAdminister() {
		return domain.Forbiddenf("editing the hierarchy requires DISTRICT_ADMIN")
	}
	return s.checker.SetManagerEdges(ctx, employeeID, managerIDs)
}

func (s *UserService) SetPrincipal(ctx context.Context, actor domain.Principal, employeeID, principalID string) error {
	if !actor.CanAdminister() {
		return domain.Forbiddenf("editing the hierarchy requires DISTRICT_ADMIN")
	}
	return s.checker.SetPrincipal(ctx, employeeID, principalID)
}

// DirectReports is open to the user themselves and to administrators.
func (s *UserService) DirectReports(ctx context.Context, actor domain.Principal, userID string) ([]domain.User, error) {
	if actor.ID != userID && !actor.CanAdminister() {
		return nil, domain.Forbiddenf("%s cannot list reports of %s", actor.ID, userID)
	}
	return s.checker.DirectReports(ctx, userID)
}

// Hierarchy returns the organisation forest to administrators and principals.
func (s *UserService) Hierarchy(ctx context.Context, actor domain.Principal) ([]*hierarchy.Node, error) {
	if !actor.CanAdminister() && !actor.IsBuildingLead() {
		return nil, domain.Forbiddenf("viewing the hierarchy requires PRINCIPAL or DISTRICT_ADMIN")
	}
	return s.checker.FullHierarchy(ctx)
}

// ==================== Directory reads ====================

// Get returns a user the actor may see.
func (s *UserService) Get(ctx context.Context, actor domain.Principal, id string) (*domain.User, error) {
	visible, err := s.checker.VisibleUsers(ctx, actor)
	if err != nil {
		return nil, err
	}
	for _, u := range visible {
		if u.ID == id {
			return &u, nil
		}
	}
	if actor.CanAdminister() {
		return nil, domain.NotFoundf("user %s not found", id)
	}
	return nil, domain.Forbiddenf("%s cannot view user %s", actor.ID, id)
}

// Visible returns the directory slice the actor may see.
func (s *UserService) Visible(ctx context.Context, actor domain.Principal) ([]domain.User, error) {
	return s.checker.VisibleUsers(ctx, actor)
}

// List pages through the full directory. Administrators only.
func (s *UserService) List(ctx context.Context, actor domain.Principal, q UserQuery) (domain.Page[domain.User], error) {
	if !actor.CanAdminister() {
		return domain.Page[domain.User]{}, domain.Forbiddenf("listing users requires DISTRICT_ADMIN")
	}
	if err := Validate(q); err != nil {
		return domain.Page[domain.User]{}, err
	}
	f := domain.UserFilter{
		Building:   q.Building,
		Department: q.Department,
		Active:     q.Active,
		Search:     q.Search,
		Pagination: q.pagination(),
	}
	if q.Role != "" {
		role, err := domain.ParseRole(q.Role)
		if err != nil {
			return domain.Page[domain.User]{}, err
		}
		f.Role = role
	}
	var items []domain.User
	var total int
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		items, total, err = r.Users().List(ctx, f)
		return err
	})
	if err != nil {
		return domain.Page[domain.User]{}, err
	}
	return newPage(items, total, q.PageQuery), nil
}

// Managers lists active users that can hold reports: supervisory roles and
// anyone who already has a report.
func (s *UserService) Managers(ctx context.Context, actor domain.Principal) ([]domain.User, error) {
	if !actor.CanAdminister() {
		return nil, domain.Forbiddenf("listing managers requires DISTRICT_ADMIN")
	}
	var out []domain.User
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		out = nil
		g, err := hierarchy.Load(ctx, r)
		if err != nil {
			return err
		}
		for _, u := range g.Users() {
			if !u.Active {
				continue
			}
			switch u.Role {
			case domain.RoleManager, domain.RolePrincipal, domain.RoleDistrictAdmin:
				out = append(out, u)
				continue
			}
			if len(g.DirectReports(u.ID)) > 0 {
				out = append(out, u)
			}
		}
		return nil
	})
	return out, err
}

// Stats returns the admin dashboard counters.
func (s *UserService) Stats(ctx context.Context, actor domain.Principal) (*domain.DirectoryStats, error) {
	if !actor.CanAdminister() {
		return nil, domain.Forbiddenf("directory statistics require DISTRICT_ADMIN")
	}
	stats := &domain.DirectoryStats{}
	one := domain.Pagination{Limit: 1}
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		if _, stats.TotalUsers, err = r.Users().List(ctx, domain.UserFilter{Pagination: one}); err != nil {
			return err
		}
		active := true
		if _, stats.ActiveUsers, err = r.Users().List(ctx, domain.UserFilter{Active: &active, Pagination: one}); err != nil {
			return err
		}
		if _, stats.TotalTimeCards, err = r.TimeCards().List(ctx, domain.TimeCardFilter{Pagination: one}); err != nil {
			return err
		}
		if _, stats.PendingTimeCards, err = r.TimeCards().List(ctx, domain.TimeCardFilter{Status: domain.TimeCardSubmitted, Pagination: one}); err != nil {
			return err
		}
		if _, stats.TotalTimeOffRequests, err = r.TimeOff().List(ctx, domain.TimeOffFilter{Pagination: one}); err != nil {
			return err
		}
		if _, stats.PendingTimeOff, err = r.TimeOff().List(ctx, domain.TimeOffFilter{Status: domain.TimeOffPending, Pagination: one}); err != nil {
			return err
		}
		if stats.UsersByRole, err = r.Users().CountBy(ctx, "role"); err != nil {
			return err
		}
		stats.UsersByBuilding, err = r.Users().CountBy(ctx, "building")
		return err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Search finds users by name, email or employee number. The directory index
// answers when configured; otherwise the store filters.
func (s *UserService) Search(ctx context.Context, actor domain.Principal, query string, limit int) ([]domain.User, error) {
	if !actor.CanAdminister() {
		return nil, domain.Forbiddenf("searching users requires DISTRICT_ADMIN")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &domain.Error{Kind: domain.KindValidation, Message: "search query is required", Fields: map[string]string{"q": "required"}}
	}
	if limit <= 0 || limit > maxPageLimit {
		limit = defaultPageLimit
	}

	var ids []string
	if s.index != nil {
		var err error
		if ids, err = s.index.SearchUsers(ctx, query, limit); err != nil {
			logger.WarnLog(ctx, "directory index search failed, using store: %v", err)
			ids = nil
		}
	}

	var out []domain.User
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		out = nil
		if ids == nil {
			var err error
			out, _, err = r.Users().List(ctx, domain.UserFilter{Search: query, Pagination: domain.Pagination{Limit: limit}})
			return err
		}
		for _, id := range ids {
			u, err := r.Users().GetByID(ctx, id)
			if domain.KindOf(err) == domain.KindNotFound {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, *u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.User{}
	}
	return out, nil
}
