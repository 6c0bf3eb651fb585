package hierarchy

import (
	"context"
	"time"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/logger"
)

// Checker guards manager-edge mutations and serves hierarchy queries. Every
// call reads the graph inside the same transaction as its write.
type Checker struct {
	store domain.Store
	now   domain.Clock
}

// NewChecker creates a Checker; a nil clock defaults to time.Now.
func NewChecker(store domain.Store, now domain.Clock) *Checker {
	if now == nil {
		now = time.Now
	}
	return &Checker{store: store, now: now}
}

// CanSupervise reports whether actor may review employeeID's time cards and requests.
func (c *Checker) CanSupervise(ctx context.Context, actor domain.Principal, employeeID string) (bool, error) {
	if actor.CanAdminister() {
		return true, nil
	}
	var ok bool
	err := c.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		g, err := Load(ctx, r)
		if err != nil {
			return err
		}
		ok = g.CanSupervise(actor, employeeID)
		return nil
	})
	return ok, err
}

// AddManagerEdge adds employee -> manager. Adding an existing edge is a no-op.
func (c *Checker) AddManagerEdge(ctx context.Context, employeeID, managerID string) error {
	return c.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		return c.AddEdgeTx(ctx, r, employeeID, managerID, domain.EdgeManager)
	})
}

// AddEdgeTx validates and writes one edge inside an existing transaction.
func (c *Checker) AddEdgeTx(ctx context.Context, r domain.Repos, employeeID, managerID string, kind domain.EdgeKind) error {
	if employeeID == managerID {
		return domain.Errorf(domain.KindSelfReference, "user %s cannot report to themselves", employeeID)
	}
	g, err := Load(ctx, r)
	if err != nil {
		return err
	}
	if err := requireUsers(g, employeeID, managerID); err != nil {
		return err
	}
	for _, e := range g.Edges(employeeID) {
		if e.ManagerID == managerID && e.Kind == kind {
			return nil
		}
	}
	if err := g.CheckEdge(employeeID, managerID); err != nil {
		logger.DebugLog(ctx, "rejected edge %s -> %s: %v", employeeID, managerID, err)
		return err
	}
	if err := r.ManagerEdges().Add(ctx, domain.ManagerEdge{
		EmployeeID: employeeID,
		ManagerID:  managerID,
		Kind:       kind,
		CreatedAt:  c.now(),
	}); err != nil {
		return err
	}
	logger.InfoLog(ctx, "edge added %s -> %s (%s)", employeeID, managerID, kind)
	return nil
}

// RemoveManagerEdge deletes employee -> manager; a missing edge is NotFound.
func (c *Checker) RemoveManagerEdge(ctx context.Context, employeeID, managerID string) error {
	return c.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		edges, err := r.ManagerEdges().ListByEmployee(ctx, employeeID)
		if err != nil {
			return err
		}
		for _, e := range edges {
			if e.ManagerID == managerID && e.Kind == domain.EdgeManager {
				return r.ManagerEdges().Remove(ctx, employeeID, managerID, domain.EdgeManager)
			}
		}
		return domain.NotFoundf("%s does not report to %s", employeeID, managerID)
	})
}

// SetManagerEdges replaces employeeID's manager edges. Either every new edge
// passes the cycle check or nothing is written.
func (c *Checker) SetManagerEdges(ctx context.Context, employeeID string, managerIDs []string) error {
	return c.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		return c.ReplaceEdgesTx(ctx, r, employeeID, domain.EdgeManager, managerIDs)
	})
}

// SetPrincipal replaces the single principal edge; an empty principalID clears it.
func (c *Checker) SetPrincipal(ctx context.Context, employeeID, principalID string) error {
	return c.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var ids []string
		if principalID != "" {
			ids = []string{principalID}
		}
		return c.ReplaceEdgesTx(ctx, r, employeeID, domain.EdgePrincipal, ids)
	})
}

// ReplaceEdgesTx is SetManagerEdges/SetPrincipal inside an existing transaction.
func (c *Checker) ReplaceEdgesTx(ctx context.Context, r domain.Repos, employeeID string, kind domain.EdgeKind, managerIDs []string) error {
	g, err := Load(ctx, r)
	if err != nil {
		return err
	}
	if _, ok := g.User(employeeID); !ok {
		return domain.NotFoundf("user %s not found", employeeID)
	}
	if kind == domain.EdgePrincipal && len(managerIDs) > 1 {
		return domain.NewError(domain.KindValidation, "a user has at most one principal")
	}

	// Check against the graph without the edges being replaced.
	var kept []domain.ManagerEdge
	for _, id := range g.order {
		for _, e := range g.managers[id] {
			if e.EmployeeID == employeeID && e.Kind == kind {
				continue
			}
			kept = append(kept, e)
		}
	}
	candidate := NewGraph(g.Users(), kept)

	unique := make([]string, 0, len(managerIDs))
	seen := map[string]struct{}{}
	for _, mid := range managerIDs {
		if _, dup := seen[mid]; dup {
			continue
		}
		seen[mid] = struct{}{}
		if mid == employeeID {
			return domain.Errorf(domain.KindSelfReference, "user %s cannot report to themselves", employeeID)
		}
		if err := requireUsers(g, employeeID, mid); err != nil {
			return err
		}
		if kind == domain.EdgePrincipal {
			if u, _ := g.User(mid); u.Role != domain.RolePrincipal {
				return domain.Errorf(domain.KindValidation, "user %s is not a principal", mid)
			}
		}
		if err := candidate.CheckEdge(employeeID, mid); err != nil {
			logger.DebugLog(ctx, "rejected edge set for %s: %v", employeeID, err)
			return err
		}
		candidate.addEdge(domain.ManagerEdge{EmployeeID: employeeID, ManagerID: mid, Kind: kind})
		unique = append(unique, mid)
	}

	if err := r.ManagerEdges().Replace(ctx, employeeID, kind, unique); err != nil {
		return err
	}
	logger.InfoLog(ctx, "edges replaced for %s (%s): %v", employeeID, kind, unique)
	return nil
}

// DirectReports returns users reporting straight to userID.
func (c *Checker) DirectReports(ctx context.Context, userID string) ([]domain.User, error) {
	var out []domain.User
	err := c.read(ctx, func(g *Graph) error {
		if _, ok := g.User(userID); !ok {
			return domain.NotFoundf("user %s not found", userID)
		}
		out = g.DirectReports(userID)
		return nil
	})
	return out, err
}

// FullHierarchy renders the active organisation as a forest.
func (c *Checker) FullHierarchy(ctx context.Context) ([]*Node, error) {
	var out []*Node
	err := c.read(ctx, func(g *Graph) error {
		out = g.Forest()
		return nil
	})
	return out, err
}

// VisibleUsers returns the users actor may see in the directory.
func (c *Checker) VisibleUsers(ctx context.Context, actor domain.Principal) ([]domain.User, error) {
	var out []domain.User
	err := c.read(ctx, func(g *Graph) error {
		out = g.VisibleUsers(actor)
		return nil
	})
	return out, err
}

// Managers returns employeeID's direct managers of any edge kind.
func (c *Checker) Managers(ctx context.Context, employeeID string) ([]domain.User, error) {
	var out []domain.User
	err := c.read(ctx, func(g *Graph) error {
		out = nil
		for _, id := range g.ManagerIDs(employeeID) {
			if u, ok := g.User(id); ok {
				out = append(out, u)
			}
		}
		return nil
	})
	return out, err
}

func (c *Checker) read(ctx context.Context, fn func(g *Graph) error) error {
	return c.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		g, err := Load(ctx, r)
		if err != nil {
			return err
		}
		return fn(g)
	})
}

func requireUsers(g *Graph, employeeID, managerID string) error {
	if _, ok := g.User(employeeID); !ok {
		return domain.NotFoundf("user %s not found", employeeID)
	}
	m, ok := g.User(managerID)
	if !ok {
		return domain.NotFoundf("manager %s not found", managerID)
	}
	if !m.Active {
		return domain.Errorf(domain.KindValidation, "manager %s is inactive", managerID)
	}
	return nil
}
