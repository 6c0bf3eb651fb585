package hierarchy

import "github.com/locvowork/staffportal/internal/domain"

// Node is one user in the rendered hierarchy.
type Node struct {
	User     domain.User `json:"user"`
	Children []*Node     `json:"children"`
}

// Forest renders the active-user DAG as trees. Roots are users with no edge to
// another active user; a user with several managers appears under each and
// shares one rendered subtree. Active users only reachable through a cycle
// become extra roots.
func (g *Graph) Forest() []*Node {
	f := &forest{g: g, built: map[string]*Node{}, onPath: map[string]bool{}}

	var roots []*Node
	for _, id := range g.order {
		if !f.active(id) {
			continue
		}
		hasParent := false
		for _, mid := range g.ManagerIDs(id) {
			if f.active(mid) {
				hasParent = true
				break
			}
		}
		if !hasParent {
			roots = append(roots, f.node(id))
		}
	}
	for _, id := range g.order {
		if f.active(id) && f.built[id] == nil {
			roots = append(roots, f.node(id))
		}
	}
	return roots
}

type forest struct {
	g      *Graph
	built  map[string]*Node
	onPath map[string]bool
}

func (f *forest) active(id string) bool {
	u, ok := f.g.users[id]
	return ok && u.Active
}

// node expands id once; onPath stops malformed cyclic data from recursing forever.
func (f *forest) node(id string) *Node {
	if n, ok := f.built[id]; ok {
		return n
	}
	n := &Node{User: f.g.users[id], Children: []*Node{}}
	f.onPath[id] = true
	for _, child := range f.g.DirectReports(id) {
		if !f.active(child.ID) || f.onPath[child.ID] {
			continue
		}
		n.Children = append(n.Children, f.node(child.ID))
	}
	delete(f.onPath, id)
	f.built[id] = n
	return n
}
