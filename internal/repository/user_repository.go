package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/repository/builder"
)

var userColumns = []string{
	"id", "employee_number", "email", "first_name", "last_name", "role",
	"department", "building", "position", "hire_date", "active", "created_at", "updated_at",
}

type pgUsers struct{ q querier }

func scanUser(s scanner) (domain.User, error) {
	var u domain.User
	var hire sql.NullTime
	err := s.Scan(&u.ID, &u.EmployeeNumber, &u.Email, &u.FirstName, &u.LastName, &u.Role,
		&u.Department, &u.Building, &u.Position, &hire, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	u.HireDate = hire.Time
	return u, err
}

func optionalTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func (r pgUsers) Create(ctx context.Context, u *domain.User) error {
	query, args := builder.NewSQLBuilder().
		Insert("users", userColumns...).
		Values(u.ID, u.EmployeeNumber, u.Email, u.FirstName, u.LastName, u.Role,
			u.Department, u.Building, u.Position, optionalTime(u.HireDate),
			u.Active, u.CreatedAt, u.UpdatedAt).
		Build()

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return translate(err, "failed to create user "+u.ID)
	}
	return nil
}

func (r pgUsers) getOne(ctx context.Context, column string, value interface{}, msg string) (*domain.User, error) {
	query, args := builder.NewSQLBuilder().
		Select(userColumns...).
		From("users").
		Where(column+" = ?", value).
		Build()

	u, err := scanUser(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translate(err, msg)
	}
	return &u, nil
}

func (r pgUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, "id", id, "user "+id+" not found")
}

func (r pgUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "LOWER(email)", strings.ToLower(email), "user with email "+email+" not found")
}

func (r pgUsers) GetByEmployeeNumber(ctx context.Context, number string) (*domain.User, error) {
	return r.getOne(ctx, "employee_number", number, "user with employee number "+number+" not found")
}

func (r pgUsers) Update(ctx context.Context, u *domain.User) error {
	b := builder.NewSQLBuilder().
		Update("users").
		Set("employee_number", u.EmployeeNumber).
		Set("email", u.Email).
		Set("first_name", u.FirstName).
		Set("last_name", u.LastName).
		Set("role", u.Role).
		Set("department", u.Department).
		Set("building", u.Building).
		Set("position", u.Position).
		Set("hire_date", optionalTime(u.HireDate)).
		Set("active", u.Active).
		Set("updated_at", u.UpdatedAt).
		Where("id = ?", u.ID)
	return execAffected(ctx, r.q, b, "user "+u.ID+" not found")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r pgUsers) List(ctx context.Context, f domain.UserFilter) ([]domain.User, int, error) {
	b := builder.NewSQLBuilder().
		Select(userColumns...).
		From("users").
		WhereIf(f.Role != "", "role = ?", f.Role).
		WhereIf(f.Building != "", "building = ?", f.Building).
		WhereIf(f.Department != "", "department = ?", f.Department).
		OrderBy("last_name", "first_name", "id")
	if f.Active != nil {
		b.Where("active = ?", *f.Active)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		b.Where("(first_name || ' ' || last_name || ' ' || email || ' ' || employee_number) ILIKE ?",
			"%"+likeEscaper.Replace(search)+"%")
	}
	return listPage(ctx, r.q, b, f.Pagination, "failed to list users", scanUser)
}

func (r pgUsers) CountBy(ctx context.Context, column string) ([]domain.CountByKey, error) {
	switch column {
	case "role", "building", "department":
	default:
		return nil, domain.Errorf(domain.KindValidation, "cannot group users by %q", column)
	}
	query := "SELECT " + column + ", COUNT(*) FROM users WHERE active AND " + column + " <> '' GROUP BY " + column + " ORDER BY " + column
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, translate(err, "failed to count users by "+column)
	}
	defer rows.Close()

	out := []domain.CountByKey{}
	for rows.Next() {
		var c domain.CountByKey
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, translate(err, "failed to scan user count")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
