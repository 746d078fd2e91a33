package model

import (
	"strings"

	"github.com/google/uuid"
)

// EmployeeID 员工标识
type EmployeeID = uuid.UUID

// DefaultContractHours 未配置合同工时时的默认周工时
const DefaultContractHours = 35.0

// DefaultRole 未配置岗位时的分组名
const DefaultRole = "default"

// Employee 员工
type Employee struct {
	BaseModel
	DepartmentID uuid.UUID `json:"department_id" db:"department_id"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	Role         string    `json:"role,omitempty" db:"role"`
	Status       string    `json:"status" db:"status"` // active/inactive

	// 工时相关
	ContractHours float64 `json:"contract_hours" db:"contract_hours"`
	HourBalance   float64 `json:"hour_balance" db:"hour_balance"` // 结转工时，计入本周台账

	// 档案中的偏好班次
	PreferredShifts WeeklyPreferences `json:"preferred_shifts,omitempty" db:"preferred_shifts"`
}

// IsActive 检查员工是否在职
func (e *Employee) IsActive() bool {
	return e.Status == "active"
}

// FullName 返回 "名 姓"
func (e *Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// Contract 返回合同周工时，未配置时使用默认值
func (e *Employee) Contract(fallback float64) float64 {
	if e.ContractHours > 0 {
		return e.ContractHours
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultContractHours
}

// RoleKey 返回用于岗位均衡分组的键
func (e *Employee) RoleKey() string {
	if e.Role == "" {
		return DefaultRole
	}
	return e.Role
}

// ProfilePreferences 返回档案中某天的偏好班次
func (e *Employee) ProfilePreferences(day Weekday) ([]HourRange, bool) {
	if e.PreferredShifts == nil {
		return nil, false
	}
	prefs, ok := e.PreferredShifts[day]
	return prefs, ok
}
