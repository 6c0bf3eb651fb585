// Package hierarchy keeps the reports-to graph acyclic and answers
// supervision and visibility questions over it.
package hierarchy

import (
	"context"
	"sort"

	"github.com/locvowork/staffportal/internal/domain"
)

// Graph is a consistent snapshot of users and manager edges.
type Graph struct {
	users    map[string]domain.User
	order    []string
	managers map[string][]domain.ManagerEdge
	reports  map[string][]string
}

// NewGraph indexes users and edges. Edges whose endpoints are unknown are kept
// for traversal so malformed data still terminates.
func NewGraph(users []domain.User, edges []domain.ManagerEdge) *Graph {
	g := &Graph{
		users:    make(map[string]domain.User, len(users)),
		order:    make([]string, 0, len(users)),
		managers: make(map[string][]domain.ManagerEdge),
		reports:  make(map[string][]string),
	}
	for _, u := range users {
		if _, dup := g.users[u.ID]; !dup {
			g.order = append(g.order, u.ID)
		}
		g.users[u.ID] = u
	}
	for _, e := range edges {
		g.addEdge(e)
	}
	return g
}

// Load reads the whole graph inside the caller's transaction.
func Load(ctx context.Context, r domain.Repos) (*Graph, error) {
	users, _, err := r.Users().List(ctx, domain.UserFilter{})
	if err != nil {
		return nil, err
	}
	edges, err := r.ManagerEdges().ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return NewGraph(users, edges), nil
}

func (g *Graph) addEdge(e domain.ManagerEdge) {
	for _, existing := range g.managers[e.EmployeeID] {
		if existing.ManagerID == e.ManagerID && existing.Kind == e.Kind {
			return
		}
	}
	g.managers[e.EmployeeID] = append(g.managers[e.EmployeeID], e)
	for _, id := range g.reports[e.ManagerID] {
		if id == e.EmployeeID {
			return
		}
	}
	g.reports[e.ManagerID] = append(g.reports[e.ManagerID], e.EmployeeID)
}

func (g *Graph) User(id string) (domain.User, bool) {
	u, ok := g.users[id]
	return u, ok
}

// Users returns every user in load order.
func (g *Graph) Users() []domain.User {
	out := make([]domain.User, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.users[id])
	}
	return out
}

// Edges returns the outgoing edges of employeeID.
func (g *Graph) Edges(employeeID string) []domain.ManagerEdge {
	return append([]domain.ManagerEdge(nil), g.managers[employeeID]...)
}

// ManagerIDs returns the distinct targets of employeeID's edges of any kind.
func (g *Graph) ManagerIDs(employeeID string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range g.managers[employeeID] {
		if _, ok := seen[e.ManagerID]; ok {
			continue
		}
		seen[e.ManagerID] = struct{}{}
		out = append(out, e.ManagerID)
	}
	return out
}

// ActiveManagerIDs is ManagerIDs restricted to active users.
func (g *Graph) ActiveManagerIDs(employeeID string) []string {
	var out []string
	for _, id := range g.ManagerIDs(employeeID) {
		if u, ok := g.users[id]; ok && u.Active {
			out = append(out, id)
		}
	}
	return out
}

// IsDirectManager reports whether employeeID has an edge to managerID.
func (g *Graph) IsDirectManager(managerID, employeeID string) bool {
	for _, e := range g.managers[employeeID] {
		if e.ManagerID == managerID {
			return true
		}
	}
	return false
}

// Reaches follows edges forward from `from` and reports whether `to` is hit.
// The visited set bounds the walk to O(V+E) even on cyclic input.
func (g *Graph) Reaches(from, to string) bool {
	visited := map[string]struct{}{}
	stack := []string{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			return true
		}
		if _, ok := visited[cur]; ok {
			continue
		}
		visited[cur] = struct{}{}
		for _, e := range g.managers[cur] {
			if _, ok := visited[e.ManagerID]; !ok {
				stack = append(stack, e.ManagerID)
			}
		}
	}
	return false
}

// CheckEdge validates employee -> manager against the current graph.
func (g *Graph) CheckEdge(employeeID, managerID string) error {
	if employeeID == managerID {
		return domain.Errorf(domain.KindSelfReference, "user %s cannot report to themselves", employeeID)
	}
	if g.Reaches(managerID, employeeID) {
		return domain.Errorf(domain.KindCycleDetected, "%s already reports to %s", managerID, employeeID)
	}
	return nil
}

// DirectReports returns users with an edge of any kind to userID.
func (g *Graph) DirectReports(userID string) []domain.User {
	out := make([]domain.User, 0, len(g.reports[userID]))
	for _, id := range g.reports[userID] {
		if u, ok := g.users[id]; ok {
			out = append(out, u)
		}
	}
	sortUsers(out)
	return out
}

// TransitiveReports returns the ids of everyone who reaches userID.
func (g *Graph) TransitiveReports(userID string) map[string]struct{} {
	out := map[string]struct{}{}
	queue := append([]string(nil), g.reports[userID]...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, ok := out[id]; ok || id == userID {
			continue
		}
		out[id] = struct{}{}
		queue = append(queue, g.reports[id]...)
	}
	return out
}

// CanSupervise decides whether actor may review work owned by employeeID.
// A deactivated actor supervises nobody.
func (g *Graph) CanSupervise(actor domain.Principal, employeeID string) bool {
	if u, ok := g.users[actor.ID]; ok && !u.Active {
		return false
	}
	if actor.CanAdminister() {
		return true
	}
	if actor.ID == employeeID {
		return false
	}
	if g.IsDirectManager(actor.ID, employeeID) {
		return true
	}
	if !actor.IsBuildingLead() {
		return false
	}
	if emp, ok := g.users[employeeID]; ok && actor.Building != "" && emp.Building == actor.Building {
		return true
	}
	_, reports := g.TransitiveReports(actor.ID)[employeeID]
	return reports
}

// VisibleUsers returns the directory slice actor may see.
func (g *Graph) VisibleUsers(actor domain.Principal) []domain.User {
	switch {
	case actor.CanAdminister():
		return g.Users()
	case actor.IsBuildingLead():
		reports := g.TransitiveReports(actor.ID)
		var out []domain.User
		for _, u := range g.Users() {
			_, isReport := reports[u.ID]
			if isReport || (actor.Building != "" && u.Building == actor.Building) {
				out = append(out, u)
			}
		}
		return out
	}
	if u, ok := g.users[actor.ID]; ok {
		return []domain.User{u}
	}
	return nil
}

// Supervised returns the ids of every user actor can supervise.
func (g *Graph) Supervised(actor domain.Principal) []string {
	var out []string
	for _, id := range g.order {
		if g.CanSupervise(actor, id) {
			out = append(out, id)
		}
	}
	return out
}

func sortUsers(users []domain.User) {
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].LastName != users[j].LastName {
			return users[i].LastName < users[j].LastName
		}
		if users[i].FirstName != users[j].FirstName {
			return users[i].FirstName < users[j].FirstName
		}
		return users[i].ID < users[j].ID
	})
}
