package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/logger"
	"github.com/locvowork/staffportal/internal/service"
)

// SeedUser is one directory row. Managers and Principal name other rows by
// employee number.
type SeedUser struct {
	EmployeeNumber string   `yaml:"employee_number"`
	Email          string   `yaml:"email"`
	FirstName      string   `yaml:"first_name"`
	LastName       string   `yaml:"last_name"`
	Role           string   `yaml:"role"`
	Department     string   `yaml:"department"`
	Building       string   `yaml:"building"`
	Position       string   `yaml:"position"`
	HireDate       string   `yaml:"hire_date"`
	Managers       []string `yaml:"managers"`
	Principal      string   `yaml:"principal"`
}

// Directory is the seed file layout.
type Directory struct {
	Users []SeedUser `yaml:"users"`
}

// LoadDirectory decodes a YAML directory, rejecting unknown keys.
func LoadDirectory(r io.Reader) (*Directory, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var d Directory
	if err := dec.Decode(&d); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode directory: %w", err)
	}
	return &d, nil
}

// SeedResult counts what a seed run changed.
type SeedResult struct {
	Created int
	Skipped int
	Edges   int
}

// DataSeeder loads a directory through the regular user service so every
// edge passes the same cycle checks as an API call.
type DataSeeder struct {
	store domain.Store
	users *service.UserService
	index *ElasticSearchClient
}

func NewDataSeeder(store domain.Store, users *service.UserService, index *ElasticSearchClient) *DataSeeder {
	return &DataSeeder{store: store, users: users, index: index}
}

var seedActor = domain.Principal{ID: "seeder", Role: domain.RoleDistrictAdmin}

// Seed creates missing users, then sets reporting edges. Existing employee
// numbers are left untouched apart from their edges.
func (ds *DataSeeder) Seed(ctx context.Context, d *Directory) (SeedResult, error) {
	var res SeedResult
	ids := make(map[string]string, len(d.Users))

	for _, su := range d.Users {
		if id, err := ds.lookup(ctx, su.EmployeeNumber); err == nil {
			ids[su.EmployeeNumber] = id
			res.Skipped++
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			return res, err
		}

		in := service.NewUser{
			EmployeeNumber: su.EmployeeNumber,
			Email:          su.Email,
			FirstName:      su.FirstName,
			LastName:       su.LastName,
			Role:           su.Role,
			Department:     su.Department,
			Building:       su.Building,
			Position:       su.Position,
		}
		if su.HireDate != "" {
			hire, err := time.Parse("2006-01-02", su.HireDate)
			if err != nil {
				return res, domain.Errorf(domain.KindValidation, "%s: bad hire_date %q", su.EmployeeNumber, su.HireDate)
			}
			in.HireDate = &hire
		}
		u, err := ds.users.Create(ctx, seedActor, in)
		if err != nil {
			return res, fmt.Errorf("failed to seed %s: %w", su.EmployeeNumber, err)
		}
		ids[su.EmployeeNumber] = u.ID
		res.Created++
	}

	resolve := func(number string) (string, error) {
		if id, ok := ids[number]; ok {
			return id, nil
		}
		id, err := ds.lookup(ctx, number)
		if err != nil {
			return "", fmt.Errorf("unknown employee number %s: %w", number, err)
		}
		ids[number] = id
		return id, nil
	}

	for _, su := range d.Users {
		if len(su.Managers) == 0 && su.Principal == "" {
			continue
		}
		employeeID := ids[su.EmployeeNumber]
		managerIDs := make([]string, 0, len(su.Managers))
		for _, m := range su.Managers {
			id, err := resolve(m)
			if err != nil {
				return res, err
			}
			managerIDs = append(managerIDs, id)
		}
		if err := ds.users.SetManagers(ctx, seedActor, employeeID, managerIDs); err != nil {
			return res, fmt.Errorf("failed to set managers of %s: %w", su.EmployeeNumber, err)
		}
		res.Edges += len(managerIDs)

		if su.Principal != "" {
			pid, err := resolve(su.Principal)
			if err != nil {
				return res, err
			}
			if err := ds.users.SetPrincipal(ctx, seedActor, employeeID, pid); err != nil {
				return res, fmt.Errorf("failed to set principal of %s: %w", su.EmployeeNumber, err)
			}
			res.Edges++
		}
	}

	logger.InfoLog(ctx, "seeded directory: %d created, %d skipped, %d edges", res.Created, res.Skipped, res.Edges)
	return res, nil
}

func (ds *DataSeeder) lookup(ctx context.Context, number string) (string, error) {
	var id string
	err := ds.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		u, err := r.Users().GetByEmployeeNumber(ctx, strings.TrimSpace(number))
		if err != nil {
			return err
		}
		id = u.ID
		return nil
	})
	return id, err
}

// Reindex pushes every user into the search index in one bulk request.
func (ds *DataSeeder) Reindex(ctx context.Context) (int, error) {
	if ds.index == nil {
		return 0, nil
	}
	var users []domain.User
	err := ds.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		users, _, err = r.Users().List(ctx, domain.UserFilter{})
		return err
	})
	if err != nil {
		return 0, err
	}
	if err := ds.index.BulkIndexUsers(ctx, users); err != nil {
		return 0, err
	}
	return len(users), nil
}
