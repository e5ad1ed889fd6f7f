package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/worklog/worklog-backend/internal/worklog/domain"
	"github.com/worklog/worklog-backend/pkg/database"
	"github.com/worklog/worklog-backend/pkg/errors"
)

// CatalogRepository provides read-only lookups against the employee,
// client and task-type directories. These catalogs are maintained
// elsewhere; this repository never writes them.
type CatalogRepository struct {
	db *database.DB
}

// NewCatalogRepository creates a new catalog repository.
func NewCatalogRepository(db *database.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// GetEmployee gets an employee by id.
func (r *CatalogRepository) GetEmployee(ctx context.Context, id string) (*domain.Employee, error) {
	var emp domain.Employee

	query := `SELECT id, full_name, email, active FROM employees WHERE id = $1`
	err := r.db.GetContext(ctx, &emp, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("employee")
	}
	if err != nil {
		return nil, err
	}

	return &emp, nil
}

// GetClient gets a client by id.
func (r *CatalogRepository) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	var client domain.Client

	query := `SELECT id, name, active FROM clients WHERE id = $1`
	err := r.db.GetContext(ctx, &client, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("client")
	}
	if err != nil {
		return nil, err
	}

	return &client, nil
}

// GetTaskType gets a task type by id.
func (r *CatalogRepository) GetTaskType(ctx context.Context, id string) (*domain.TaskType, error) {
	var tt domain.TaskType

	query := `SELECT id, name, productive, active FROM task_types WHERE id = $1`
	err := r.db.GetContext(ctx, &tt, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("task type")
	}
	if err != nil {
		return nil, err
	}

	return &tt, nil
}

// ResolveEmployee resolves an employee from spreadsheet identifiers: the
// login/email prefix first, then the full name as a substring. Matching is
// best-effort; more than one candidate is an ambiguity error rather than a
// silent pick.
func (r *CatalogRepository) ResolveEmployee(ctx context.Context, username, fullName string) (*domain.Employee, error) {
	username = strings.TrimSpace(username)
	fullName = strings.TrimSpace(fullName)

	if username != "" {
		emp, err := r.resolveEmployeeBy(ctx, "email ILIKE $1", username+"%", "username", username)
		if err != nil || emp != nil {
			return emp, err
		}
	}

	if fullName != "" {
		emp, err := r.resolveEmployeeBy(ctx, "full_name ILIKE $1", "%"+fullName+"%", "coder_name", fullName)
		if err != nil || emp != nil {
			return emp, err
		}
	}

	return nil, errors.NotFound("employee")
}

func (r *CatalogRepository) resolveEmployeeBy(ctx context.Context, clause, pattern, field, value string) (*domain.Employee, error) {
	var matches []*domain.Employee

	query := `SELECT id, full_name, email, active FROM employees WHERE ` + clause + ` AND active LIMIT 2`
	if err := r.db.SelectContext(ctx, &matches, query, pattern); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, errors.Validation(map[string]string{
			field: "ambiguous match: more than one active employee matches \"" + value + "\"",
		})
	}
}

// ResolveClient resolves a client by fuzzy name match.
func (r *CatalogRepository) ResolveClient(ctx context.Context, name string) (*domain.Client, error) {
	name = strings.TrimSpace(name)

	var matches []*domain.Client

	query := `SELECT id, name, active FROM clients WHERE name ILIKE $1 AND active LIMIT 2`
	if err := r.db.SelectContext(ctx, &matches, query, "%"+name+"%"); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, errors.NotFound("client")
	case 1:
		return matches[0], nil
	default:
		return nil, errors.Validation(map[string]string{
			"client": "ambiguous match: more than one active client matches \"" + name + "\"",
		})
	}
}

// ResolveTaskType resolves a task type by fuzzy name match.
func (r *CatalogRepository) ResolveTaskType(ctx context.Context, name string) (*domain.TaskType, error) {
	name = strings.TrimSpace(name)

	var matches []*domain.TaskType

	query := `SELECT id, name, productive, active FROM task_types WHERE name ILIKE $1 AND active LIMIT 2`
	if err := r.db.SelectContext(ctx, &matches, query, "%"+name+"%"); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, errors.NotFound("task type")
	case 1:
		return matches[0], nil
	default:
		return nil, errors.Validation(map[string]string{
			"task": "ambiguous match: more than one active task type matches \"" + name + "\"",
		})
	}
}
