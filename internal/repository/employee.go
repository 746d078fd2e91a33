package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/smartplanning/planning/pkg/errors"
	"github.com/smartplanning/planning/pkg/logger"
	"github.com/smartplanning/planning/pkg/model"
)

const employeeColumns = `id, department_id, first_name, last_name, role, status,
	contract_hours, hour_balance, preferred_shifts`

// EmployeeRepository 员工仓储
type EmployeeRepository struct {
	db DB
}

// NewEmployeeRepository 创建员工仓储
func NewEmployeeRepository(db DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// Create 创建员工
func (r *EmployeeRepository) Create(ctx context.Context, emp *model.Employee) error {
	if emp.ID == uuid.Nil {
		emp.ID = uuid.New()
	}
	now := time.Now()
	emp.CreatedAt = now
	emp.UpdatedAt = now
	if emp.Status == "" {
		emp.Status = "active"
	}

	var prefs sql.NullString
	if emp.PreferredShifts != nil {
		raw, err := json.Marshal(emp.PreferredShifts)
		if err != nil {
			return apperrors.InvalidInput("preferred_shifts", err.Error())
		}
		prefs = sql.NullString{String: string(raw), Valid: true}
	}

	query := `
		INSERT INTO employees (
			id, department_id, first_name, last_name, role, status,
			contract_hours, hour_balance, preferred_shifts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		emp.ID.String(), emp.DepartmentID.String(), emp.FirstName, emp.LastName, emp.Role, emp.Status,
		emp.ContractHours, emp.HourBalance, prefs,
	)
	if err != nil {
		return dbError(err, "创建员工失败")
	}
	return nil
}

// GetByID 根据ID获取员工
func (r *EmployeeRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`
	emp, err := r.scanEmployee(ctx, r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		return nil, dbError(err, fmt.Sprintf("获取员工 %s 失败", id))
	}
	return emp, nil
}

// ListActiveByDepartment 查询部门在职员工，按姓名排序保证结果稳定
func (r *EmployeeRepository) ListActiveByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*model.Employee, error) {
	query := `SELECT ` + employeeColumns + `
		FROM employees
		WHERE department_id = $1 AND status = 'active'
		ORDER BY last_name, first_name, id`

	rows, err := r.db.QueryContext(ctx, query, departmentID.String())
	if err != nil {
		return nil, dbError(err, "查询员工失败")
	}
	defer rows.Close()

	var employees []*model.Employee
	for rows.Next() {
		emp, err := r.scanEmployee(ctx, rows)
		if err != nil {
			return nil, dbError(err, "读取员工失败")
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "读取员工失败")
	}
	return employees, nil
}

// scanEmployee 扫描员工行
// preferred_shifts 解析失败时记录警告并视为无偏好
func (r *EmployeeRepository) scanEmployee(ctx context.Context, row Scanner) (*model.Employee, error) {
	var (
		emp          model.Employee
		id, deptID   string
		preferredRaw sql.NullString
	)
	if err := row.Scan(&id, &deptID, &emp.FirstName, &emp.LastName, &emp.Role, &emp.Status,
		&emp.ContractHours, &emp.HourBalance, &preferredRaw); err != nil {
		return nil, err
	}

	var err error
	if emp.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("员工ID格式错误 '%s': %w", id, err)
	}
	if emp.DepartmentID, err = uuid.Parse(deptID); err != nil {
		return nil, fmt.Errorf("部门ID格式错误 '%s': %w", deptID, err)
	}

	prefs, err := model.ParseWeeklyPreferences(preferredRaw.String)
	if err != nil {
		logger.WithContext(ctx).Warn().
			Err(apperrors.DataError("preferred_shifts", err)).
			Str("employee_id", id).
			Msg("偏好班次格式错误，按无偏好处理")
		prefs = nil
	}
	emp.PreferredShifts = prefs
	return &emp, nil
}
