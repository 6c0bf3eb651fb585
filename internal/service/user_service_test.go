package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/hierarchy"
)

type fakeIndex struct {
	indexed []string
	hits    []string
	err     error
}

func (f *fakeIndex) IndexUser(ctx context.Context, u domain.User) error {
	f.indexed = append(f.indexed, u.ID)
	return nil
}

func (f *fakeIndex) SearchUsers(ctx context.Context, query string, limit int) ([]string, error) {
	return f.hits, f.err
}

func newUserService(f *fixture, index DirectoryIndex) *UserService {
	return NewUserService(f.store, hierarchy.NewChecker(f.store, f.opts.Now), index, f.opts)
}

func TestUserCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	index := &fakeIndex{}
	svc := newUserService(f, index)

	in := NewUser{
		EmployeeNumber: "E100",
		Email:          "New.Hire@Example.org",
		FirstName:      "Nia",
		LastName:       "Newhire",
		Role:           "FULL_TIME_FACULTY",
		Building:       "North",
		ManagerIDs:     []string{"mgr"},
		PrincipalID:    "lead",
	}

	_, err := svc.Create(ctx, f.mgr, in)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	u, err := svc.Create(ctx, f.admin, in)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleFaculty, u.Role)
	assert.Equal(t, "new.hire@example.org", u.Email)
	assert.True(t, u.Active)
	assert.Equal(t, []string{u.ID}, index.indexed)

	reports, err := svc.DirectReports(ctx, f.mgr, "mgr")
	require.NoError(t, err)
	assert.Len(t, reports, 2)
	reports, err = svc.DirectReports(ctx, f.admin, "lead")
	require.NoError(t, err)
	assert.Len(t, reports, 2)

	t.Run("duplicates", func(t *testing.T) {
		dup := in
		dup.EmployeeNumber = "E101"
		_, err := svc.Create(ctx, f.admin, dup)
		assert.ErrorIs(t, err, domain.ErrConflict)

		dup = in
		dup.Email = "someone@example.org"
		_, err = svc.Create(ctx, f.admin, dup)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("bad manager rolls back the user", func(t *testing.T) {
		bad := in
		bad.EmployeeNumber, bad.Email = "E102", "e102@example.org"
		bad.ManagerIDs = []string{"ghost"}
		_, err := svc.Create(ctx, f.admin, bad)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		search, err := svc.Search(ctx, f.admin, "e102", 10)
		require.NoError(t, err)
		assert.Empty(t, search)
	})

	t.Run("principal edge must point at a principal", func(t *testing.T) {
		bad := in
		bad.EmployeeNumber, bad.Email = "E103", "e103@example.org"
		bad.PrincipalID = "mgr"
		_, err := svc.Create(ctx, f.admin, bad)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := svc.Create(ctx, f.admin, NewUser{Email: "not-an-email", Role: "STAFF"})
		var derr *domain.Error
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "email", derr.Fields["email"])
		assert.Equal(t, "required", derr.Fields["firstname"])

		bad := in
		bad.EmployeeNumber, bad.Email, bad.Role = "E104", "e104@example.org", "JANITOR"
		_, err = svc.Create(ctx, f.admin, bad)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestUserUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newUserService(f, nil)

	building := "South"
	u, err := svc.Update(ctx, f.admin, "emp", UserPatch{Building: &building})
	require.NoError(t, err)
	assert.Equal(t, "South", u.Building)
	assert.Equal(t, "Eve", u.FirstName)

	// lead -> emp would close emp -> mgr -> lead -> emp.
	name := "Renamed"
	managers := []string{"emp"}
	_, err = svc.Update(ctx, f.admin, "lead", UserPatch{FirstName: &name, ManagerIDs: &managers})
	assert.ErrorIs(t, err, domain.ErrCycleDetected)
	got, err := svc.Get(ctx, f.admin, "lead")
	require.NoError(t, err)
	assert.Equal(t, "Lee", got.FirstName, "rejected edge rolls back the field change")

	email := "mgr@example.org"
	_, err = svc.Update(ctx, f.admin, "emp", UserPatch{Email: &email})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.Update(ctx, f.admin, "ghost", UserPatch{FirstName: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Deactivate(ctx, f.admin, "admin")
	assert.ErrorIs(t, err, domain.ErrValidation)
	u, err = svc.Deactivate(ctx, f.admin, "other")
	require.NoError(t, err)
	assert.False(t, u.Active)
}

func TestUserHierarchyOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newUserService(f, nil)

	assert.ErrorIs(t, svc.AddManager(ctx, f.lead, "other", "mgr"), domain.ErrForbidden)
	require.NoError(t, svc.AddManager(ctx, f.admin, "other", "mgr"))
	assert.ErrorIs(t, svc.AddManager(ctx, f.admin, "lead", "other"), domain.ErrCycleDetected)

	require.NoError(t, svc.SetManagers(ctx, f.admin, "other", []string{"lead"}))
	require.NoError(t, svc.RemoveManager(ctx, f.admin, "other", "lead"))
	require.NoError(t, svc.SetPrincipal(ctx, f.admin, "other", "lead"))

	forest, err := svc.Hierarchy(ctx, f.lead)
	require.NoError(t, err)
	var roots []string
	for _, n := range forest {
		roots = append(roots, n.User.ID)
	}
	assert.ElementsMatch(t, []string{"admin", "lead"}, roots)

	_, err = svc.Hierarchy(ctx, f.emp)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.DirectReports(ctx, f.emp, "mgr")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUserDirectoryReads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newUserService(f, nil)

	_, err := svc.Get(ctx, f.lead, "emp")
	assert.NoError(t, err)
	_, err = svc.Get(ctx, f.lead, "other")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.Get(ctx, f.emp, "emp")
	assert.NoError(t, err)
	_, err = svc.Get(ctx, f.admin, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	visible, err := svc.Visible(ctx, f.emp)
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	page, err := svc.List(ctx, f.admin, UserQuery{Building: "North"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	page, err = svc.List(ctx, f.admin, UserQuery{Role: "ADMIN"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "admin", page.Items[0].ID)
	_, err = svc.List(ctx, f.lead, UserQuery{})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	managers, err := svc.Managers(ctx, f.admin)
	require.NoError(t, err)
	var ids []string
	for _, u := range managers {
		ids = append(ids, u.ID)
	}
	assert.ElementsMatch(t, []string{"admin", "lead", "mgr"}, ids)

	stats, err := svc.Stats(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalUsers)
	assert.Equal(t, 5, stats.ActiveUsers)
	assert.Equal(t, 0, stats.PendingTimeCards)
	assert.Contains(t, stats.UsersByBuilding, domain.CountByKey{Key: "North", Count: 3})
	assert.Contains(t, stats.UsersByRole, domain.CountByKey{Key: "STAFF", Count: 2})
}

func TestUserSearch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("store fallback", func(t *testing.T) {
		svc := newUserService(f, nil)
		found, err := svc.Search(ctx, f.admin, "employee", 10)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "emp", found[0].ID)

		_, err = svc.Search(ctx, f.admin, "  ", 10)
		assert.ErrorIs(t, err, domain.ErrValidation)
		_, err = svc.Search(ctx, f.emp, "eve", 10)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("index hits", func(t *testing.T) {
		svc := newUserService(f, &fakeIndex{hits: []string{"mgr", "deleted-user", "lead"}})
		found, err := svc.Search(ctx, f.admin, "m", 10)
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, "mgr", found[0].ID)
		assert.Equal(t, "lead", found[1].ID)
	})

	t.Run("index failure falls back", func(t *testing.T) {
		svc := newUserService(f, &fakeIndex{err: errors.New("cluster red")})
		found, err := svc.Search(ctx, f.admin, "oscar", 10)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "other", found[0].ID)
	})
}
