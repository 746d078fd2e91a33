package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartplanning/planning/internal/config"
	"github.com/smartplanning/planning/pkg/model"
)

var (
	deptID = uuid.MustParse("6f1c2a7e-3d1b-4c55-9a0e-0c8f1e2d3a4b")
	annID  = uuid.MustParse("0b6f0c9e-8a5d-4d3e-9f61-2f5c1b7a9e01")
	bobID  = uuid.MustParse("0b6f0c9e-8a5d-4d3e-9f61-2f5c1b7a9e02")
)

const weekYAML = `
weekStart: "2026-01-05"
departmentId: "6f1c2a7e-3d1b-4c55-9a0e-0c8f1e2d3a4b"
minimumEmployees: 1
businessHours:
  Monday: [9, 17]
  Tuesday: {start: 9, end: 17}
employees:
  - id: "0b6f0c9e-8a5d-4d3e-9f61-2f5c1b7a9e01"
    firstName: Ann
    lastName: Lee
    role: waiter
    contractHours: 30
    preferredShifts:
      Monday: [[9, 13]]
  - id: "0b6f0c9e-8a5d-4d3e-9f61-2f5c1b7a9e02"
    firstName: Bob
    lastName: Ray
    role: cook
vacations:
  - employeeId: "0b6f0c9e-8a5d-4d3e-9f61-2f5c1b7a9e02"
    startDate: "2026-01-06"
    endDate: "2026-01-06"
    status: approved
preferences:
  "0b6f0c9e-8a5d-4d3e-9f61-2f5c1b7a9e02":
    Monday: [[13, 17]]
`

func testApp(out *bytes.Buffer) *App {
	return &App{
		Out: out,
		Scheduler: config.SchedulerConfig{
			MaxIterations:        50,
			MinimumEmployees:     1,
			BalanceRoles:         true,
			DefaultContractHours: 35,
			MaxConcurrentRuns:    1,
		},
		Version:   "1.0.0",
		GitCommit: "abc123",
		BuildTime: "today",
	}
}

func writeWeek(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "week.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, app *App, args ...string) error {
	t.Helper()
	root := NewRootCmd(app)
	root.SetArgs(args)
	return root.Execute()
}

func TestParseWeekFile_YAML(t *testing.T) {
	week, err := ParseWeekFile([]byte(weekYAML))
	require.NoError(t, err)

	assert.Equal(t, "2026-01-05", model.FormatDate(week.WeekStart))
	assert.Equal(t, deptID, week.DepartmentID)
	require.NotNil(t, week.MinimumEmployees)
	assert.Equal(t, 1, *week.MinimumEmployees)
	assert.Nil(t, week.BalanceRoles)
	assert.Equal(t, model.NewHourRange(9, 17), week.BusinessHours[model.Monday])
	assert.Equal(t, model.NewHourRange(9, 17), week.BusinessHours[model.Tuesday])

	require.Len(t, week.Employees, 2)
	ann := week.Employees[0]
	assert.Equal(t, annID, ann.ID)
	assert.Equal(t, deptID, ann.DepartmentID)
	assert.Equal(t, "active", ann.Status)
	assert.Equal(t, 30.0, ann.ContractHours)
	assert.Equal(t, []model.HourRange{model.NewHourRange(9, 13)}, ann.PreferredShifts[model.Monday])

	require.Len(t, week.Vacations, 1)
	assert.Equal(t, bobID, week.Vacations[0].EmployeeID)
	assert.Equal(t, "2026-01-06", week.Vacations[0].StartDate)
	assert.Equal(t, []model.HourRange{model.NewHourRange(13, 17)}, week.Preferences.For(bobID, model.Monday))
}

func TestParseWeekFile_JSON(t *testing.T) {
	data := `{"weekStart":"2026-01-05","businessHours":{"Friday":[10,14]},
		"employees":[{"id":"` + annID.String() + `","firstName":"Ann"}]}`
	week, err := ParseWeekFile([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, model.NewHourRange(10, 14), week.BusinessHours[model.Friday])
	assert.Equal(t, uuid.Nil, week.DepartmentID)
	require.Len(t, week.Employees, 1)
}

func TestParseWeekFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"日期错误", `weekStart: "05/01/2026"`},
		{"部门ID错误", "weekStart: \"2026-01-05\"\ndepartmentId: nope"},
		{"员工缺少ID", "weekStart: \"2026-01-05\"\nemployees:\n  - firstName: Ann"},
		{"休假员工ID错误", "weekStart: \"2026-01-05\"\nvacations:\n  - employeeId: x"},
		{"偏好员工ID错误", "weekStart: \"2026-01-05\"\npreferences:\n  x: {}"},
		{"格式错误", "weekStart: [unclosed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWeekFile([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestGenerate_Local(t *testing.T) {
	var out bytes.Buffer
	path := writeWeek(t, weekYAML)

	require.NoError(t, execute(t, testApp(&out), "generate", "-f", path))
	text := out.String()
	assert.Contains(t, text, "2026-01-05 ~ 2026-01-11")
	assert.Contains(t, text, "Monday")
	assert.Contains(t, text, "Tuesday")
	assert.Contains(t, text, "Ann Lee")
	assert.Contains(t, text, "所有营业时段均已覆盖")
}

func TestGenerate_LocalJSON(t *testing.T) {
	var out bytes.Buffer
	path := writeWeek(t, weekYAML)

	require.NoError(t, execute(t, testApp(&out), "generate", "-f", path, "--json", "--min", "3", "--no-balance-roles"))

	var resp struct {
		Success bool                   `json:"success"`
		Data    []model.WeeklySchedule `json:"data"`
		Stats   struct {
			UncoveredHours []json.RawMessage `json:"uncovered_hours"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 2)
	// 两名员工无法满足最低 3 人
	assert.NotEmpty(t, resp.Stats.UncoveredHours)

	for _, entry := range resp.Data {
		if entry.EmployeeID == bobID {
			assert.Empty(t, entry.ScheduleData[model.Tuesday])
		}
	}
}

func TestImportGenerateShow(t *testing.T) {
	var out bytes.Buffer
	app := testApp(&out)
	path := writeWeek(t, weekYAML)
	dbPath := filepath.Join(t.TempDir(), "planning.db")

	require.NoError(t, execute(t, app, "import", "-f", path, "--db", dbPath))
	assert.Contains(t, out.String(), "已导入 2 名员工、1 条休假")

	out.Reset()
	require.NoError(t, execute(t, app, "generate", "-f", path, "--db", dbPath))
	assert.Contains(t, out.String(), "Ann Lee")
	assert.Contains(t, out.String(), "Tuesday")

	out.Reset()
	require.NoError(t, execute(t, app, "show", "--db", dbPath, "--department", deptID.String(), "--week", "2026-01-08", "--json"))
	var resp struct {
		Data []model.WeeklySchedule `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	for _, entry := range resp.Data {
		assert.Equal(t, "2026-01-05", entry.WeekStart)
		if entry.EmployeeID == bobID {
			assert.Empty(t, entry.ScheduleData[model.Tuesday])
		}
	}

	out.Reset()
	require.NoError(t, execute(t, app, "show", "--db", dbPath, "--department", deptID.String(), "--week", "2026-01-05"))
	assert.Contains(t, out.String(), "Ann Lee")
}

func TestGenerate_DBRequiresDepartment(t *testing.T) {
	var out bytes.Buffer
	path := writeWeek(t, `{"weekStart":"2026-01-05","businessHours":{"Monday":[9,17]}}`)
	err := execute(t, testApp(&out), "generate", "-f", path, "--db", filepath.Join(t.TempDir(), "x.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "departmentId")
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, execute(t, testApp(&out), "version"))
	assert.Equal(t, "planctl 1.0.0 (abc123, today)\n", out.String())
}
