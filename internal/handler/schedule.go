// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/smartplanning/planning/internal/service"
	apperrors "github.com/smartplanning/planning/pkg/errors"
	"github.com/smartplanning/planning/pkg/logger"
	"github.com/smartplanning/planning/pkg/model"
)

// ScheduleService 排班服务
type ScheduleService interface {
	GenerateWeeklySchedule(ctx context.Context, req service.GenerateRequest) (*service.GenerateResult, error)
	GetWeeklySchedule(ctx context.Context, departmentID uuid.UUID, weekStart time.Time) ([]model.WeeklySchedule, error)
}

// ScheduleHandler 排班处理器
type ScheduleHandler struct {
	service  ScheduleService
	validate *validator.Validate
}

// NewScheduleHandler 创建排班处理器
func NewScheduleHandler(svc ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{
		service:  svc,
		validate: validator.New(),
	}
}

// AutoGenerateRequest 自动排班请求
type AutoGenerateRequest struct {
	WeekStart           string                             `json:"weekStart" validate:"required,datetime=2006-01-02"`
	DepartmentID        string                             `json:"departmentId" validate:"required,uuid"`
	BusinessHours       model.BusinessHours                `json:"businessHours" validate:"required,min=1"`
	EmployeePreferences map[string]model.WeeklyPreferences `json:"employeePreferences,omitempty"`
	SourceWeek          string                             `json:"sourceWeek,omitempty" validate:"omitempty,datetime=2006-01-02"`
	MinimumEmployees    *int                               `json:"minimumEmployees,omitempty" validate:"omitempty,min=0"`
	BalanceRoles        *bool                              `json:"balanceRoles,omitempty"`
}

// ScheduleResponse 排班响应
type ScheduleResponse struct {
	Success bool                   `json:"success"`
	Data    []model.WeeklySchedule `json:"data"`
	Stats   *service.ScheduleStats `json:"stats,omitempty"`
	RunID   string                 `json:"run_id,omitempty"`
}

// Routes 注册排班路由
func (h *ScheduleHandler) Routes(r chi.Router) {
	r.Post("/auto-generate", h.AutoGenerate)
	r.Get("/{departmentId}/{weekStart}", h.GetWeek)
}

// AutoGenerate 自动生成一周排班
func (h *ScheduleHandler) AutoGenerate(w http.ResponseWriter, r *http.Request) {
	var body AutoGenerateRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&body); err != nil {
		respondError(w, apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析请求失败"))
		return
	}

	req, appErr := h.toServiceRequest(&body)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	result, err := h.service.GenerateWeeklySchedule(r.Context(), req)
	if err != nil {
		respondError(w, toAppError(err))
		return
	}

	respondJSON(w, http.StatusOK, ScheduleResponse{
		Success: true,
		Data:    result.Schedule,
		Stats:   &result.Stats,
		RunID:   result.RunID,
	})
}

// GetWeek 查询已保存的周排班
func (h *ScheduleHandler) GetWeek(w http.ResponseWriter, r *http.Request) {
	deptID, err := uuid.Parse(chi.URLParam(r, "departmentId"))
	if err != nil {
		respondError(w, apperrors.InvalidInput("departmentId", "必须是UUID"))
		return
	}
	weekStart, err := model.ParseDate(chi.URLParam(r, "weekStart"))
	if err != nil {
		respondError(w, apperrors.InvalidInput("weekStart", "日期格式应为 YYYY-MM-DD"))
		return
	}

	entries, err := h.service.GetWeeklySchedule(r.Context(), deptID, weekStart)
	if err != nil {
		respondError(w, toAppError(err))
		return
	}
	respondJSON(w, http.StatusOK, ScheduleResponse{Success: true, Data: entries})
}

// toServiceRequest 校验请求并转换为服务参数
func (h *ScheduleHandler) toServiceRequest(body *AutoGenerateRequest) (service.GenerateRequest, *apperrors.AppError) {
	ve := &apperrors.ValidationErrors{}
	if err := h.validate.Struct(body); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return service.GenerateRequest{}, apperrors.Wrap(err, apperrors.CodeInvalidInput, "请求参数无效")
		}
		for _, fe := range fieldErrs {
			ve.Add(jsonField(fe.Field()), fieldMessage(fe))
		}
	}

	for day, hours := range body.BusinessHours {
		if !day.Valid() {
			ve.Add("businessHours", fmt.Sprintf("未知的星期 '%s'", day))
		} else if hours.Start < 0 || hours.End > 24 {
			ve.Add("businessHours", fmt.Sprintf("%s 的营业时间 %s 超出 0-24", day, hours))
		}
	}

	prefs := make(model.PreferenceMap, len(body.EmployeePreferences))
	for key, weekly := range body.EmployeePreferences {
		id, err := uuid.Parse(key)
		if err != nil {
			ve.Add("employeePreferences", fmt.Sprintf("员工ID '%s' 格式错误", key))
			continue
		}
		prefs[id] = weekly
	}

	if ve.HasErrors() {
		return service.GenerateRequest{}, ve.ToAppError()
	}

	// 以上已校验格式
	weekStart, _ := model.ParseDate(body.WeekStart)
	deptID, _ := uuid.Parse(body.DepartmentID)
	req := service.GenerateRequest{
		WeekStart:        weekStart,
		DepartmentID:     deptID,
		BusinessHours:    body.BusinessHours,
		Preferences:      prefs,
		MinimumEmployees: body.MinimumEmployees,
		BalanceRoles:     body.BalanceRoles,
	}
	if body.SourceWeek != "" {
		source, _ := model.ParseDate(body.SourceWeek)
		req.SourceWeek = &source
	}
	return req, nil
}

var jsonFields = map[string]string{
	"WeekStart":           "weekStart",
	"DepartmentID":        "departmentId",
	"BusinessHours":       "businessHours",
	"EmployeePreferences": "employeePreferences",
	"SourceWeek":          "sourceWeek",
	"MinimumEmployees":    "minimumEmployees",
}

func jsonField(name string) string {
	if f, ok := jsonFields[name]; ok {
		return f
	}
	return name
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "不能为空"
	case "datetime":
		return "日期格式应为 YYYY-MM-DD"
	case "uuid":
		return "必须是UUID"
	case "min":
		return fmt.Sprintf("不能小于 %s", fe.Param())
	default:
		return fmt.Sprintf("校验失败: %s", fe.Tag())
	}
}

// toAppError 非应用错误按内部错误处理
func toAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(err, apperrors.CodeTimeout, "排班计算超时")
	}
	return apperrors.Internal(err, "排班失败")
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("写入响应失败")
	}
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err *apperrors.AppError) {
	respondJSON(w, err.HTTPStatus, map[string]interface{}{
		"success": false,
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
		"fields":  err.Fields,
	})
}
