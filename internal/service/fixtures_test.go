package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/hierarchy"
	"github.com/locvowork/staffportal/internal/repository"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr[T any](v T) *T { return &v }

func clock(d, hm string) *time.Time {
	t, err := time.Parse("2006-01-02 15:04", d+" "+hm)
	if err != nil {
		panic(err)
	}
	return &t
}

// fixture is a small district:
//
//	admin (DISTRICT_ADMIN)
//	lead (PRINCIPAL, North) <- mgr (MANAGER, North) <- emp (STAFF, North)
//	other (STAFF, South), no manager
type fixture struct {
	store *repository.MemoryStore
	now   time.Time
	opts  Options

	admin, lead, mgr, emp, other domain.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: repository.NewMemoryStore(), now: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)}
	f.opts = Options{Now: func() time.Time { return f.now }}

	users := []domain.User{
		{ID: "admin", EmployeeNumber: "E000", Email: "admin@example.org", FirstName: "Ada", LastName: "Admin", Role: domain.RoleDistrictAdmin, Active: true},
		{ID: "lead", EmployeeNumber: "E001", Email: "lead@example.org", FirstName: "Lee", LastName: "Lead", Role: domain.RolePrincipal, Building: "North", Active: true},
		{ID: "mgr", EmployeeNumber: "E002", Email: "mgr@example.org", FirstName: "Max", LastName: "Manager", Role: domain.RoleManager, Building: "North", Active: true},
		{ID: "emp", EmployeeNumber: "E003", Email: "emp@example.org", FirstName: "Eve", LastName: "Employee", Role: domain.RoleStaff, Building: "North", Active: true},
		{ID: "other", EmployeeNumber: "E004", Email: "other@example.org", FirstName: "Oscar", LastName: "Other", Role: domain.RoleStaff, Building: "South", Active: true},
	}
	require.NoError(t, f.store.WithinTx(context.Background(), func(ctx context.Context, r domain.Repos) error {
		for i := range users {
			if err := r.Users().Create(ctx, &users[i]); err != nil {
				return err
			}
		}
		return nil
	}))
	checker := hierarchy.NewChecker(f.store, f.opts.Now)
	require.NoError(t, checker.AddManagerEdge(context.Background(), "mgr", "lead"))
	require.NoError(t, checker.AddManagerEdge(context.Background(), "emp", "mgr"))

	f.admin = domain.PrincipalOf(users[0])
	f.lead = domain.PrincipalOf(users[1])
	f.mgr = domain.PrincipalOf(users[2])
	f.emp = domain.PrincipalOf(users[3])
	f.other = domain.PrincipalOf(users[4])
	return f
}

func (f *fixture) notifications(t *testing.T, recipient string) []domain.Notification {
	t.Helper()
	var out []domain.Notification
	require.NoError(t, f.store.WithinTx(context.Background(), func(ctx context.Context, r domain.Repos) error {
		var err error
		out, _, err = r.Notifications().List(ctx, domain.NotificationFilter{RecipientUserID: recipient})
		return err
	}))
	return out
}

// failingStore wraps a store so every notification write fails.
type failingStore struct{ *repository.MemoryStore }

type failingRepos struct{ domain.Repos }

type failingNotifications struct{ domain.NotificationRepository }

func (failingNotifications) Create(context.Context, *domain.Notification) error {
	return errors.New("notification table unavailable")
}

func (r failingRepos) Notifications() domain.NotificationRepository {
	return failingNotifications{r.Repos.Notifications()}
}

func (s failingStore) WithinTx(ctx context.Context, fn func(ctx context.Context, r domain.Repos) error) error {
	return s.MemoryStore.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		return fn(ctx, failingRepos{r})
	})
}

type fixedHolidays []time.Time

func (h fixedHolidays) NonWorkDays(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	return h, nil
}
