package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/staffportal/internal/domain"
)

func user(id string, role domain.Role, building string) domain.User {
	return domain.User{ID: id, FirstName: id, LastName: id, Role: role, Building: building, Active: true}
}

func edge(emp, mgr string) domain.ManagerEdge {
	return domain.ManagerEdge{EmployeeID: emp, ManagerID: mgr, Kind: domain.EdgeManager}
}

func ids(users []domain.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}

// sampleGraph:
//
//	admin
//	p-north (PRINCIPAL, North) <- m1 (MANAGER, North) <- s1, s2
//	p-south (PRINCIPAL, South) <- f1 (principal edge, South)
//	s2 also reports to m2 (MANAGER, South)
//	s3 (North) has no manager
func sampleGraph() *Graph {
	users := []domain.User{
		user("admin", domain.RoleDistrictAdmin, ""),
		user("p-north", domain.RolePrincipal, "North"),
		user("p-south", domain.RolePrincipal, "South"),
		user("m1", domain.RoleManager, "North"),
		user("m2", domain.RoleManager, "South"),
		user("s1", domain.RoleStaff, "North"),
		user("s2", domain.RoleStaff, "North"),
		user("s3", domain.RoleStaff, "North"),
		user("f1", domain.RoleFaculty, "South"),
	}
	edges := []domain.ManagerEdge{
		edge("m1", "p-north"),
		edge("s1", "m1"),
		edge("s2", "m1"),
		edge("s2", "m2"),
		{EmployeeID: "f1", ManagerID: "p-south", Kind: domain.EdgePrincipal},
		edge("s1", "m1"), // duplicate
	}
	return NewGraph(users, edges)
}

func TestGraphReaches(t *testing.T) {
	g := sampleGraph()
	assert.True(t, g.Reaches("s1", "p-north"))
	assert.True(t, g.Reaches("s1", "s1"))
	assert.False(t, g.Reaches("p-north", "s1"))
	assert.True(t, g.Reaches("f1", "p-south"))
	assert.False(t, g.Reaches("s3", "p-north"))

	t.Run("terminates on cyclic data", func(t *testing.T) {
		cyclic := NewGraph(
			[]domain.User{user("a", domain.RoleStaff, ""), user("b", domain.RoleStaff, ""), user("c", domain.RoleStaff, "")},
			[]domain.ManagerEdge{edge("a", "b"), edge("b", "a"), edge("b", "b")},
		)
		assert.True(t, cyclic.Reaches("a", "b"))
		assert.False(t, cyclic.Reaches("a", "c"))
	})
}

func TestGraphCheckEdge(t *testing.T) {
	g := sampleGraph()
	assert.Equal(t, domain.KindSelfReference, domain.KindOf(g.CheckEdge("s1", "s1")))
	assert.Equal(t, domain.KindCycleDetected, domain.KindOf(g.CheckEdge("p-north", "s1")))
	assert.Equal(t, domain.KindCycleDetected, domain.KindOf(g.CheckEdge("m1", "s2")))
	// Through a principal edge.
	assert.Equal(t, domain.KindCycleDetected, domain.KindOf(g.CheckEdge("p-south", "f1")))
	assert.NoError(t, g.CheckEdge("s3", "m1"))
	assert.NoError(t, g.CheckEdge("m2", "p-north"))
}

func TestGraphDirectReports(t *testing.T) {
	g := sampleGraph()
	assert.Equal(t, []string{"s1", "s2"}, ids(g.DirectReports("m1")))
	assert.Equal(t, []string{"s2"}, ids(g.DirectReports("m2")))
	assert.Equal(t, []string{"f1"}, ids(g.DirectReports("p-south")))
	assert.Empty(t, g.DirectReports("s3"))
	assert.ElementsMatch(t, []string{"m1", "m2"}, g.ManagerIDs("s2"))
}

func TestGraphCanSupervise(t *testing.T) {
	g := sampleGraph()
	admin := domain.PrincipalOf(user("admin", domain.RoleDistrictAdmin, ""))
	north := domain.PrincipalOf(user("p-north", domain.RolePrincipal, "North"))
	south := domain.PrincipalOf(user("p-south", domain.RolePrincipal, "South"))
	m1 := domain.PrincipalOf(user("m1", domain.RoleManager, "North"))
	m2 := domain.PrincipalOf(user("m2", domain.RoleManager, "South"))
	s1 := domain.PrincipalOf(user("s1", domain.RoleStaff, "North"))

	tests := []struct {
		name     string
		actor    domain.Principal
		employee string
		want     bool
	}{
		{"admin supervises everyone", admin, "s1", true},
		{"admin supervises self", admin, "admin", true},
		{"direct manager", m1, "s1", true},
		{"second manager", m2, "s2", true},
		{"manager of another team", m2, "s1", false},
		{"manager is not transitive", m1, "p-north", false},
		{"principal same building", north, "s3", true},
		{"principal transitive report", north, "s2", true},
		{"principal other building", north, "f1", false},
		{"principal through principal edge", south, "f1", true},
		{"principal over other building via report", south, "s2", false},
		{"staff cannot supervise", s1, "s2", false},
		{"nobody supervises themselves", north, "p-north", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.CanSupervise(tt.actor, tt.employee))
		})
	}
}

func TestGraphVisibleUsers(t *testing.T) {
	g := sampleGraph()

	t.Run("admin sees everyone", func(t *testing.T) {
		admin := domain.PrincipalOf(user("admin", domain.RoleDistrictAdmin, ""))
		assert.ElementsMatch(t, ids(g.Users()), ids(g.VisibleUsers(admin)))
	})
	t.Run("principal sees building and reports", func(t *testing.T) {
		south := domain.PrincipalOf(user("p-south", domain.RolePrincipal, "South"))
		// Building South plus f1 (report); s2 is North even though m2 is South.
		assert.ElementsMatch(t, []string{"p-south", "m2", "f1"}, ids(g.VisibleUsers(south)))

		north := domain.PrincipalOf(user("p-north", domain.RolePrincipal, "North"))
		assert.ElementsMatch(t, []string{"p-north", "m1", "s1", "s2", "s3"}, ids(g.VisibleUsers(north)))
	})
	t.Run("others see themselves", func(t *testing.T) {
		m1 := domain.PrincipalOf(user("m1", domain.RoleManager, "North"))
		assert.Equal(t, []string{"m1"}, ids(g.VisibleUsers(m1)))
	})
}

func TestGraphSupervised(t *testing.T) {
	g := sampleGraph()
	m1 := domain.PrincipalOf(user("m1", domain.RoleManager, "North"))
	assert.Equal(t, []string{"s1", "s2"}, g.Supervised(m1))
}

func TestGraphInactiveUsers(t *testing.T) {
	gone := user("m1", domain.RoleManager, "North")
	gone.Active = false
	g := NewGraph(
		[]domain.User{gone, user("m2", domain.RoleManager, "North"), user("s1", domain.RoleStaff, "North")},
		[]domain.ManagerEdge{edge("s1", "m1"), edge("s1", "m2")},
	)

	assert.Equal(t, []string{"m1", "m2"}, g.ManagerIDs("s1"))
	assert.Equal(t, []string{"m2"}, g.ActiveManagerIDs("s1"))
	assert.False(t, g.CanSupervise(domain.PrincipalOf(gone), "s1"))
	assert.True(t, g.CanSupervise(domain.PrincipalOf(user("m2", domain.RoleManager, "North")), "s1"))
}

func TestForest(t *testing.T) {
	users := []domain.User{
		user("top", domain.RolePrincipal, ""),
		user("b", domain.RoleManager, ""),
		user("c", domain.RoleManager, ""),
		user("a", domain.RoleStaff, ""),
		user("loner", domain.RoleStaff, ""),
	}
	gone := user("gone", domain.RoleManager, "")
	gone.Active = false
	users = append(users, gone, user("orphan", domain.RoleStaff, ""))

	g := NewGraph(users, []domain.ManagerEdge{
		edge("b", "top"),
		edge("c", "top"),
		edge("a", "b"),
		edge("a", "c"),
		edge("orphan", "gone"),
	})
	forest := g.Forest()
	require.Len(t, forest, 3)

	roots := []string{forest[0].User.ID, forest[1].User.ID, forest[2].User.ID}
	assert.Equal(t, []string{"top", "loner", "orphan"}, roots)

	top := forest[0]
	require.Len(t, top.Children, 2)
	assert.Equal(t, "b", top.Children[0].User.ID)
	assert.Equal(t, "c", top.Children[1].User.ID)
	// a has two managers and appears under each.
	assert.Equal(t, "a", top.Children[0].Children[0].User.ID)
	assert.Equal(t, "a", top.Children[1].Children[0].User.ID)

	t.Run("cyclic data terminates", func(t *testing.T) {
		g := NewGraph(
			[]domain.User{user("root", domain.RoleManager, ""), user("x", domain.RoleStaff, ""), user("y", domain.RoleStaff, "")},
			[]domain.ManagerEdge{edge("x", "root"), edge("y", "x"), edge("x", "y")},
		)
		forest := g.Forest()
		require.Len(t, forest, 1)
		require.Len(t, forest[0].Children, 1)
		x := forest[0].Children[0]
		require.Len(t, x.Children, 1)
		assert.Equal(t, "y", x.Children[0].User.ID)
		assert.Empty(t, x.Children[0].Children)
	})

	t.Run("users on a detached cycle become roots", func(t *testing.T) {
		g := NewGraph(
			[]domain.User{user("x", domain.RoleStaff, ""), user("y", domain.RoleStaff, "")},
			[]domain.ManagerEdge{edge("x", "y"), edge("y", "x")},
		)
		forest := g.Forest()
		require.Len(t, forest, 1)
		assert.Equal(t, "x", forest[0].User.ID)
		require.Len(t, forest[0].Children, 1)
		assert.Equal(t, "y", forest[0].Children[0].User.ID)
	})

	t.Run("shared reports are rendered once", func(t *testing.T) {
		assert.Same(t, top.Children[0].Children[0], top.Children[1].Children[0])
	})
}
