package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/staffman/internal/model"
)

// PostgresEmployeeRepo はPostgreSQLを使用した従業員リポジトリ。
type PostgresEmployeeRepo struct {
	db *sql.DB
}

// NewPostgresEmployeeRepo はPostgresEmployeeRepoを生成する。
func NewPostgresEmployeeRepo(db *sql.DB) *PostgresEmployeeRepo {
	return &PostgresEmployeeRepo{db: db}
}

const employeeColumns = `id, name, email, job_title, phone, image_url, employee_code, status, created_at, updated_at`

func scanEmployee(row interface{ Scan(dest ...any) error }) (*model.Employee, error) {
	e := &model.Employee{}
	err := row.Scan(&e.ID, &e.Name, &e.Email, &e.JobTitle, &e.Phone,
		&e.ImageURL, &e.EmployeeCode, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// FindAll は全従業員をID昇順で取得する。
func (r *PostgresEmployeeRepo) FindAll(ctx context.Context) ([]*model.Employee, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+employeeColumns+` FROM employees ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	return collectEmployees(rows)
}

// FindByID は指定IDの従業員を取得する。見つからない場合はnilを返す。
func (r *PostgresEmployeeRepo) FindByID(ctx context.Context, id int64) (*model.Employee, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = $1`,
		id,
	)
	e, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find employee by ID: %w", err)
	}
	return e, nil
}

// FindByStatus は指定ステータスの従業員一覧を取得する。
func (r *PostgresEmployeeRepo) FindByStatus(ctx context.Context, status string) ([]*model.Employee, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE status = $1 ORDER BY id`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees by status: %w", err)
	}
	defer rows.Close()

	return collectEmployees(rows)
}

// Create は従業員を作成し、採番されたIDをemployee.IDに設定する。
func (r *PostgresEmployeeRepo) Create(ctx context.Context, employee *model.Employee) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO employees (name, email, job_title, phone, image_url, employee_code, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		employee.Name, employee.Email, employee.JobTitle, employee.Phone,
		employee.ImageURL, employee.EmployeeCode, employee.Status,
		employee.CreatedAt, employee.UpdatedAt,
	).Scan(&employee.ID)
	if err != nil {
		return fmt.Errorf("failed to insert employee: %w", err)
	}
	return nil
}

// Update は従業員を更新する。対象が存在しない場合はfalseを返す。
func (r *PostgresEmployeeRepo) Update(ctx context.Context, employee *model.Employee) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE employees
		 SET name = $2, email = $3, job_title = $4, phone = $5, image_url = $6,
		     status = $7, updated_at = $8
		 WHERE id = $1`,
		employee.ID, employee.Name, employee.Email, employee.JobTitle,
		employee.Phone, employee.ImageURL, employee.Status, employee.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update employee: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeleteByID は指定IDの従業員を削除する。対象が存在しない場合はfalseを返す。
func (r *PostgresEmployeeRepo) DeleteByID(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM employees WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete employee: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func collectEmployees(rows *sql.Rows) ([]*model.Employee, error) {
	var employees []*model.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}
	return employees, nil
}

// compile-time interface check
var _ EmployeeRepository = (*PostgresEmployeeRepo)(nil)
