package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/smartplanning/planning/pkg/model"
)

// WeekFile 本地排班输入文件，YAML 或 JSON
type WeekFile struct {
	WeekStart        string                             `yaml:"weekStart"`
	DepartmentID     string                             `yaml:"departmentId"`
	SourceWeek       string                             `yaml:"sourceWeek"`
	MinimumEmployees *int                               `yaml:"minimumEmployees"`
	BalanceRoles     *bool                              `yaml:"balanceRoles"`
	BusinessHours    model.BusinessHours                `yaml:"businessHours"`
	Employees        []EmployeeEntry                    `yaml:"employees"`
	Vacations        []VacationEntry                    `yaml:"vacations"`
	Preferences      map[string]model.WeeklyPreferences `yaml:"preferences"`
}

// EmployeeEntry 文件中的员工
type EmployeeEntry struct {
	ID              string                  `yaml:"id"`
	FirstName       string                  `yaml:"firstName"`
	LastName        string                  `yaml:"lastName"`
	Role            string                  `yaml:"role"`
	Status          string                  `yaml:"status"`
	ContractHours   float64                 `yaml:"contractHours"`
	HourBalance     float64                 `yaml:"hourBalance"`
	PreferredShifts model.WeeklyPreferences `yaml:"preferredShifts"`
}

// VacationEntry 文件中的休假
type VacationEntry struct {
	EmployeeID string `yaml:"employeeId"`
	StartDate  string `yaml:"startDate"`
	EndDate    string `yaml:"endDate"`
	Status     string `yaml:"status"`
}

// Week 解析后的排班输入
type Week struct {
	WeekStart        time.Time
	DepartmentID     uuid.UUID
	SourceWeek       *time.Time
	MinimumEmployees *int
	BalanceRoles     *bool
	BusinessHours    model.BusinessHours
	Employees        []*model.Employee
	Vacations        []model.VacationInterval
	Preferences      model.PreferenceMap
}

// LoadWeekFile 读取并解析排班输入文件
func LoadWeekFile(path string) (*Week, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取输入文件失败: %w", err)
	}
	return ParseWeekFile(data)
}

// ParseWeekFile 解析排班输入，JSON 作为 YAML 的子集同样可读
func ParseWeekFile(data []byte) (*Week, error) {
	var f WeekFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("解析输入文件失败: %w", err)
	}
	return f.toWeek()
}

func (f *WeekFile) toWeek() (*Week, error) {
	start, err := model.ParseDate(f.WeekStart)
	if err != nil {
		return nil, fmt.Errorf("weekStart: %w", err)
	}
	w := &Week{
		WeekStart:        start,
		MinimumEmployees: f.MinimumEmployees,
		BalanceRoles:     f.BalanceRoles,
		BusinessHours:    f.BusinessHours,
		Preferences:      make(model.PreferenceMap, len(f.Preferences)),
	}

	if f.DepartmentID != "" {
		if w.DepartmentID, err = uuid.Parse(f.DepartmentID); err != nil {
			return nil, fmt.Errorf("departmentId: %w", err)
		}
	}
	if f.SourceWeek != "" {
		source, err := model.ParseDate(f.SourceWeek)
		if err != nil {
			return nil, fmt.Errorf("sourceWeek: %w", err)
		}
		w.SourceWeek = &source
	}

	for i, e := range f.Employees {
		emp := &model.Employee{
			DepartmentID:    w.DepartmentID,
			FirstName:       e.FirstName,
			LastName:        e.LastName,
			Role:            e.Role,
			Status:          e.Status,
			ContractHours:   e.ContractHours,
			HourBalance:     e.HourBalance,
			PreferredShifts: e.PreferredShifts,
		}
		if emp.Status == "" {
			emp.Status = "active"
		}
		if e.ID == "" {
			return nil, fmt.Errorf("employees[%d]: 缺少 id", i)
		}
		if emp.ID, err = uuid.Parse(e.ID); err != nil {
			return nil, fmt.Errorf("employees[%d].id: %w", i, err)
		}
		w.Employees = append(w.Employees, emp)
	}

	for i, v := range f.Vacations {
		id, err := uuid.Parse(v.EmployeeID)
		if err != nil {
			return nil, fmt.Errorf("vacations[%d].employeeId: %w", i, err)
		}
		w.Vacations = append(w.Vacations, model.VacationInterval{
			EmployeeID: id,
			StartDate:  v.StartDate,
			EndDate:    v.EndDate,
			Status:     v.Status,
		})
	}

	for key, weekly := range f.Preferences {
		id, err := uuid.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("preferences[%s]: %w", key, err)
		}
		w.Preferences[id] = weekly
	}
	return w, nil
}
