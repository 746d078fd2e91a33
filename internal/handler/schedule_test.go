package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartplanning/planning/internal/config"
	"github.com/smartplanning/planning/internal/service"
	apperrors "github.com/smartplanning/planning/pkg/errors"
	"github.com/smartplanning/planning/pkg/model"
)

type fakeService struct {
	lastReq  service.GenerateRequest
	result   *service.GenerateResult
	err      error
	stored   []model.WeeklySchedule
	lastDept uuid.UUID
	lastWeek time.Time
}

func (f *fakeService) GenerateWeeklySchedule(ctx context.Context, req service.GenerateRequest) (*service.GenerateResult, error) {
	f.lastReq = req
	return f.result, f.err
}

func (f *fakeService) GetWeeklySchedule(ctx context.Context, departmentID uuid.UUID, weekStart time.Time) ([]model.WeeklySchedule, error) {
	f.lastDept, f.lastWeek = departmentID, weekStart
	return f.stored, f.err
}

type fakeHealth struct{ err error }

func (f fakeHealth) Health(ctx context.Context) error { return f.err }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "planning"},
		API: config.APIConfig{
			Timeout: 5 * time.Second,
			CORS:    config.CORSConfig{Enabled: true, Origins: []string{"*"}},
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestAutoGenerate_Success(t *testing.T) {
	dept := uuid.New()
	emp := uuid.New()
	svc := &fakeService{result: &service.GenerateResult{
		DepartmentID: dept,
		WeekStart:    "2026-01-05",
		WeekEnd:      "2026-01-11",
		RunID:        "run-1",
		Schedule: []model.WeeklySchedule{{
			EmployeeID:   emp,
			WeekStart:    "2026-01-05",
			WeekEnd:      "2026-01-11",
			ScheduleData: map[model.Weekday][]model.Shift{model.Monday: {model.NewShift(9, 17, model.OriginCritical)}},
			TotalHours:   8,
			Status:       model.ScheduleStatusDraft,
		}},
		Stats: service.ScheduleStats{Score: 92.5, Iterations: 10},
	}}
	router := NewRouter(testConfig(), svc, nil, BuildInfo{})

	body := `{
		"weekStart": "2026-01-07",
		"departmentId": "` + dept.String() + `",
		"businessHours": {"Monday": [9, 17], "Tuesday": {"start": 10, "end": 18}},
		"employeePreferences": {"` + emp.String() + `": {"Monday": [[9, 13]]}},
		"sourceWeek": "2025-12-29",
		"minimumEmployees": 2,
		"balanceRoles": false
	}`
	rec, out := do(t, router, http.MethodPost, "/api/v1/schedules/auto-generate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, true, out["success"])
	assert.Len(t, out["data"], 1)
	stats := out["stats"].(map[string]interface{})
	assert.Equal(t, 92.5, stats["score"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := svc.lastReq
	assert.Equal(t, dept, req.DepartmentID)
	assert.Equal(t, "2026-01-07", model.FormatDate(req.WeekStart))
	assert.Equal(t, model.NewHourRange(9, 17), req.BusinessHours[model.Monday])
	assert.Equal(t, model.NewHourRange(10, 18), req.BusinessHours[model.Tuesday])
	assert.Equal(t, []model.HourRange{model.NewHourRange(9, 13)}, req.Preferences[emp][model.Monday])
	require.NotNil(t, req.SourceWeek)
	assert.Equal(t, "2025-12-29", model.FormatDate(*req.SourceWeek))
	require.NotNil(t, req.MinimumEmployees)
	assert.Equal(t, 2, *req.MinimumEmployees)
	require.NotNil(t, req.BalanceRoles)
	assert.False(t, *req.BalanceRoles)
}

func TestAutoGenerate_ValidationErrors(t *testing.T) {
	router := NewRouter(testConfig(), &fakeService{}, nil, BuildInfo{})

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"缺少周", `{"departmentId":"` + uuid.NewString() + `","businessHours":{"Monday":[9,17]}}`, "weekStart"},
		{"日期格式错误", `{"weekStart":"05/01/2026","departmentId":"` + uuid.NewString() + `","businessHours":{"Monday":[9,17]}}`, "weekStart"},
		{"部门非UUID", `{"weekStart":"2026-01-05","departmentId":"abc","businessHours":{"Monday":[9,17]}}`, "departmentId"},
		{"缺少营业时间", `{"weekStart":"2026-01-05","departmentId":"` + uuid.NewString() + `"}`, "businessHours"},
		{"未知星期", `{"weekStart":"2026-01-05","departmentId":"` + uuid.NewString() + `","businessHours":{"Funday":[9,17]}}`, "businessHours"},
		{"负数最低人数", `{"weekStart":"2026-01-05","departmentId":"` + uuid.NewString() + `","businessHours":{"Monday":[9,17]},"minimumEmployees":-1}`, "minimumEmployees"},
		{"偏好员工ID错误", `{"weekStart":"2026-01-05","departmentId":"` + uuid.NewString() + `","businessHours":{"Monday":[9,17]},"employeePreferences":{"x":{}}}`, "employeePreferences"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := do(t, router, http.MethodPost, "/api/v1/schedules/auto-generate", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, out["success"])
			fields, ok := out["fields"].(map[string]interface{})
			require.True(t, ok, rec.Body.String())
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestAutoGenerate_MalformedJSON(t *testing.T) {
	router := NewRouter(testConfig(), &fakeService{}, nil, BuildInfo{})
	rec, out := do(t, router, http.MethodPost, "/api/v1/schedules/auto-generate", `{"weekStart":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(apperrors.CodeInvalidInput), out["code"])
}

func TestAutoGenerate_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   apperrors.Code
	}{
		{"无在职员工", apperrors.NoActiveEmployees(), http.StatusBadRequest, apperrors.CodeNoActiveEmployees},
		{"超时", apperrors.New(apperrors.CodeTimeout, "排班超时"), http.StatusGatewayTimeout, apperrors.CodeTimeout},
		{"内部错误", apperrors.Internal(errors.New("boom"), "排班失败"), http.StatusInternalServerError, apperrors.CodeInternal},
		{"普通错误", errors.New("unexpected"), http.StatusInternalServerError, apperrors.CodeInternal},
		{"上下文超时", context.DeadlineExceeded, http.StatusGatewayTimeout, apperrors.CodeTimeout},
	}
	body := `{"weekStart":"2026-01-05","departmentId":"` + uuid.NewString() + `","businessHours":{"Monday":[9,17]}}`
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(testConfig(), &fakeService{err: tt.err}, nil, BuildInfo{})
			rec, out := do(t, router, http.MethodPost, "/api/v1/schedules/auto-generate", body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, string(tt.code), out["code"])
		})
	}
}

func TestGetWeek(t *testing.T) {
	dept := uuid.New()
	svc := &fakeService{stored: []model.WeeklySchedule{{EmployeeID: uuid.New(), WeekStart: "2026-01-05"}}}
	router := NewRouter(testConfig(), svc, nil, BuildInfo{})

	rec, out := do(t, router, http.MethodGet, "/api/v1/schedules/"+dept.String()+"/2026-01-05", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	assert.Len(t, out["data"], 1)
	assert.Equal(t, dept, svc.lastDept)
	assert.Equal(t, "2026-01-05", model.FormatDate(svc.lastWeek))

	rec, _ = do(t, router, http.MethodGet, "/api/v1/schedules/not-a-uuid/2026-01-05", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, router, http.MethodGet, "/api/v1/schedules/"+dept.String()+"/bad-date", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSystemEndpoints(t *testing.T) {
	build := BuildInfo{Version: "1.2.3", GitCommit: "abc"}
	router := NewRouter(testConfig(), &fakeService{}, fakeHealth{}, build)

	rec, out := do(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])

	rec, out = do(t, router, http.MethodGet, "/version", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1.2.3", out["version"])

	rec, _ = do(t, router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "planning_http_requests_total")

	router = NewRouter(testConfig(), &fakeService{}, fakeHealth{err: errors.New("db down")}, build)
	rec, out = do(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", out["status"])
}
