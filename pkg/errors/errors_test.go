package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code     Code
		expected int
	}{
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeValidationFail, http.StatusBadRequest},
		{CodeNoActiveEmployees, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeDataError, http.StatusInternalServerError},
		{CodeUnknown, http.StatusInternalServerError},
		{CodeInternal, http.StatusInternalServerError},
		{CodeScheduleConflict, http.StatusInternalServerError},
		{CodeDatabaseError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := New(tt.code, "x").HTTPStatus; got != tt.expected {
				t.Errorf("HTTPStatus = %d, expected %d", got, tt.expected)
			}
		})
	}
}

func TestWrapAndIs(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := fmt.Errorf("加载员工: %w", Wrap(cause, CodeDatabaseError, "查询失败"))

	if !Is(err, CodeDatabaseError) {
		t.Error("应能穿透包装识别错误码")
	}
	if GetCode(err) != CodeDatabaseError {
		t.Errorf("GetCode() = %s", GetCode(err))
	}
	if GetHTTPStatus(fmt.Errorf("plain")) != http.StatusInternalServerError {
		t.Error("普通错误应映射为500")
	}
	if GetCode(fmt.Errorf("plain")) != CodeUnknown {
		t.Error("普通错误码应为 UNKNOWN")
	}
}

func TestIsValidation(t *testing.T) {
	if !IsValidation(NoActiveEmployees()) {
		t.Error("无在职员工应属于输入问题")
	}
	if !IsValidation(InvalidInput("weekStart", "不能为空")) {
		t.Error("InvalidInput 应属于输入问题")
	}
	if IsValidation(Internal(fmt.Errorf("boom"), "优化失败")) {
		t.Error("内部错误不应属于输入问题")
	}
}

func TestDataError(t *testing.T) {
	err := DataError("preferred_shifts", fmt.Errorf("unexpected end of JSON input"))
	if err.Code != CodeDataError {
		t.Errorf("Code = %s", err.Code)
	}
	if err.Unwrap() == nil {
		t.Error("应保留原因")
	}
}

func TestValidationErrors(t *testing.T) {
	ve := &ValidationErrors{}
	if ve.HasErrors() {
		t.Error("初始不应有错误")
	}
	ve.Add("weekStart", "不能为空")
	ve.Add("businessHours", "不能为空")

	appErr := ve.ToAppError()
	if appErr.Code != CodeValidationFail || len(appErr.Fields) != 2 {
		t.Errorf("ToAppError() = %+v", appErr)
	}
	if appErr.HTTPStatus != http.StatusBadRequest {
		t.Errorf("HTTPStatus = %d", appErr.HTTPStatus)
	}
}
