package stats

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/smartplanning/planning/pkg/model"
	"github.com/smartplanning/planning/pkg/scheduler/state"
)

func newEmployee(name string, contract float64) *model.Employee {
	return &model.Employee{
		BaseModel:     model.BaseModel{ID: uuid.New()},
		FirstName:     name,
		Status:        "active",
		ContractHours: contract,
	}
}

func newState(t *testing.T, min int, employees ...*model.Employee) *state.State {
	t.Helper()
	return state.New(&state.Problem{
		WeekStart: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		Employees: employees,
		BusinessHours: model.BusinessHours{
			model.Monday:   model.NewHourRange(9, 13),
			model.Saturday: model.NewHourRange(10, 12),
		},
		Preferences:      model.PreferenceMap{},
		Vacations:        model.VacationDays{},
		MinimumEmployees: min,
	})
}

func mustAdd(t *testing.T, s *state.State, day model.Weekday, id model.EmployeeID, start, end int) {
	t.Helper()
	if err := s.Add(day, id, model.NewShift(start, end, model.OriginNormal)); err != nil {
		t.Fatalf("添加班次失败: %v", err)
	}
}
