package repository

import (
	"context"
	"time"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/repository/builder"
)

type pgEdges struct{ q querier }

func scanEdge(s scanner) (domain.ManagerEdge, error) {
	var e domain.ManagerEdge
	err := s.Scan(&e.EmployeeID, &e.ManagerID, &e.Kind, &e.CreatedAt)
	return e, err
}

func (r pgEdges) selectEdges() *builder.SQLBuilder {
	return builder.NewSQLBuilder().
		Select("employee_id", "manager_id", "kind", "created_at").
		From("manager_edges").
		OrderBy("employee_id", "kind", "manager_id")
}

func (r pgEdges) ListAll(ctx context.Context) ([]domain.ManagerEdge, error) {
	return queryAll(ctx, r.q, r.selectEdges(), "failed to list manager edges", scanEdge)
}

func (r pgEdges) ListByEmployee(ctx context.Context, employeeID string) ([]domain.ManagerEdge, error) {
	return queryAll(ctx, r.q, r.selectEdges().Where("employee_id = ?", employeeID), "failed to list managers of "+employeeID, scanEdge)
}

func (r pgEdges) ListByManager(ctx context.Context, managerID string) ([]domain.ManagerEdge, error) {
	return queryAll(ctx, r.q, r.selectEdges().Where("manager_id = ?", managerID), "failed to list reports of "+managerID, scanEdge)
}

func (r pgEdges) Add(ctx context.Context, e domain.ManagerEdge) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	query, args := builder.NewSQLBuilder().
		Insert("manager_edges", "employee_id", "manager_id", "kind", "created_at").
		Values(e.EmployeeID, e.ManagerID, e.Kind, e.CreatedAt).
		Build()

	if _, err := r.q.ExecContext(ctx, query+" ON CONFLICT DO NOTHING", args...); err != nil {
		return translate(err, "failed to add edge "+e.EmployeeID+" -> "+e.ManagerID)
	}
	return nil
}

func (r pgEdges) Remove(ctx context.Context, employeeID, managerID string, kind domain.EdgeKind) error {
	b := builder.NewSQLBuilder().
		Delete("manager_edges").
		Where("employee_id = ?", employeeID).
		Where("manager_id = ?", managerID).
		Where("kind = ?", kind)
	_, err := execCount(ctx, r.q, b, "failed to remove edge "+employeeID+" -> "+managerID)
	return err
}

func (r pgEdges) Replace(ctx context.Context, employeeID string, kind domain.EdgeKind, managerIDs []string) error {
	b := builder.NewSQLBuilder().
		Delete("manager_edges").
		Where("employee_id = ?", employeeID).
		Where("kind = ?", kind)
	if _, err := execCount(ctx, r.q, b, "failed to clear edges of "+employeeID); err != nil {
		return err
	}
	now := time.Now()
	for _, mid := range managerIDs {
		if err := r.Add(ctx, domain.ManagerEdge{EmployeeID: employeeID, ManagerID: mid, Kind: kind, CreatedAt: now}); err != nil {
			return err
		}
	}
	return nil
}
