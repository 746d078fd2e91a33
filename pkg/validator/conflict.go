// Package validator 提供排班验证功能
package validator

import (
	"fmt"
	"sort"
	"time"

	"github.com/smartplanning/planning/pkg/model"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictOverlap      ConflictType = "overlap"       // 时间重叠
	ConflictInvalid      ConflictType = "invalid"       // 班次区间非法
	ConflictOutsideHours ConflictType = "outside_hours" // 超出营业时间
	ConflictVacation     ConflictType = "vacation"      // 休假日排班
	ConflictRestTime     ConflictType = "rest_time"     // 休息时间不足
	ConflictMaxHours     ConflictType = "max_hours"     // 超过每日最大工时
	ConflictConsecutive  ConflictType = "consecutive"   // 连续天数过多
)

// 严重程度
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Conflict 冲突信息
type Conflict struct {
	Type       ConflictType     `json:"type"`
	Severity   string           `json:"severity"` // error/warning
	EmployeeID model.EmployeeID `json:"employee_id"`
	Day        model.Weekday    `json:"day"`
	Date       string           `json:"date"`
	Message    string           `json:"message"`
}

// Context 检测所需的周信息
type Context struct {
	WeekStart     time.Time
	BusinessHours model.BusinessHours
	Vacations     model.VacationDays
}

// ConflictDetector 冲突检测器
type ConflictDetector struct {
	config *DetectorConfig
}

// DetectorConfig 检测器配置
type DetectorConfig struct {
	MinRestHours       int // 跨天最小休息时间（小时）
	MaxHoursPerDay     int // 每日最大工时
	MaxConsecutiveDays int // 最大连续工作天数
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		MinRestHours:       10,
		MaxHoursPerDay:     10,
		MaxConsecutiveDays: 6,
	}
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(config *DetectorConfig) *ConflictDetector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &ConflictDetector{config: config}
}

// DetectAll 检测所有冲突
// 重叠、非法区间、营业时间外、休假日排班为 error，其余为 warning
func (d *ConflictDetector) DetectAll(data model.ScheduleData, ctx *Context) []Conflict {
	var conflicts []Conflict
	for _, empID := range employeeIDs(data) {
		conflicts = append(conflicts, d.DetectForEmployee(empID, data, ctx)...)
	}
	return conflicts
}

// DetectForEmployee 检测单个员工一周的冲突
func (d *ConflictDetector) DetectForEmployee(empID model.EmployeeID, data model.ScheduleData, ctx *Context) []Conflict {
	var conflicts []Conflict
	for _, day := range model.Weekdays {
		shifts := append([]model.Shift(nil), data[day][empID]...)
		if len(shifts) == 0 {
			continue
		}
		model.SortShifts(shifts)
		date := model.FormatDate(day.DateIn(ctx.WeekStart))
		newConflict := func(t ConflictType, severity, msg string) Conflict {
			return Conflict{Type: t, Severity: severity, EmployeeID: empID, Day: day, Date: date, Message: msg}
		}

		if ctx.Vacations.OnVacation(empID, day.DateIn(ctx.WeekStart)) {
			conflicts = append(conflicts, newConflict(ConflictVacation, SeverityError,
				fmt.Sprintf("员工在休假日 %s 有 %d 个班次", date, len(shifts))))
		}

		open, isOpen := ctx.BusinessHours.Open(day)
		for _, sh := range shifts {
			if sh.Start >= sh.End {
				conflicts = append(conflicts, newConflict(ConflictInvalid, SeverityError,
					fmt.Sprintf("班次 %s 的开始时间不早于结束时间", sh)))
				continue
			}
			if !isOpen || !sh.Range().Within(open) {
				conflicts = append(conflicts, newConflict(ConflictOutsideHours, SeverityError,
					fmt.Sprintf("班次 %s 超出营业时间", sh)))
			}
		}

		conflicts = append(conflicts, d.detectOverlaps(shifts, newConflict)...)

		if hours := dailyHours(shifts); d.config.MaxHoursPerDay > 0 && hours > float64(d.config.MaxHoursPerDay) {
			conflicts = append(conflicts, newConflict(ConflictMaxHours, SeverityWarning,
				fmt.Sprintf("当日工时 %.1f 小时，超过上限 %d 小时", hours, d.config.MaxHoursPerDay)))
		}
	}

	conflicts = append(conflicts, d.detectRestTimeViolations(empID, data, ctx)...)
	conflicts = append(conflicts, d.detectConsecutiveDaysViolations(empID, data, ctx)...)
	return conflicts
}

// detectOverlaps 检测同一天的时间重叠（班次已按开始时间排序）
func (d *ConflictDetector) detectOverlaps(shifts []model.Shift, newConflict func(ConflictType, string, string) Conflict) []Conflict {
	var conflicts []Conflict
	for i := 1; i < len(shifts); i++ {
		prev, cur := shifts[i-1], shifts[i]
		if cur.Start < prev.End {
			conflicts = append(conflicts, newConflict(ConflictOverlap, SeverityError,
				fmt.Sprintf("班次 %s 与 %s 时间重叠", prev, cur)))
		}
	}
	return conflicts
}

// detectRestTimeViolations 检测相邻两天之间的休息时间
func (d *ConflictDetector) detectRestTimeViolations(empID model.EmployeeID, data model.ScheduleData, ctx *Context) []Conflict {
	if d.config.MinRestHours <= 0 {
		return nil
	}
	var conflicts []Conflict
	for i := 1; i < len(model.Weekdays); i++ {
		prevDay, day := model.Weekdays[i-1], model.Weekdays[i]
		prev, cur := data[prevDay][empID], data[day][empID]
		if len(prev) == 0 || len(cur) == 0 {
			continue
		}
		lastEnd := latestEnd(prev)
		firstStart := earliestStart(cur)
		rest := 24 - lastEnd + firstStart
		if rest < d.config.MinRestHours {
			conflicts = append(conflicts, Conflict{
				Type:       ConflictRestTime,
				Severity:   SeverityWarning,
				EmployeeID: empID,
				Day:        day,
				Date:       model.FormatDate(day.DateIn(ctx.WeekStart)),
				Message:    fmt.Sprintf("%s 与 %s 之间仅休息 %d 小时，少于 %d 小时", prevDay, day, rest, d.config.MinRestHours),
			})
		}
	}
	return conflicts
}

// detectConsecutiveDaysViolations 检测连续工作天数
func (d *ConflictDetector) detectConsecutiveDaysViolations(empID model.EmployeeID, data model.ScheduleData, ctx *Context) []Conflict {
	if d.config.MaxConsecutiveDays <= 0 {
		return nil
	}
	consecutive := 0
	for _, day := range model.Weekdays {
		if len(data[day][empID]) == 0 {
			consecutive = 0
			continue
		}
		consecutive++
		if consecutive > d.config.MaxConsecutiveDays {
			return []Conflict{{
				Type:       ConflictConsecutive,
				Severity:   SeverityWarning,
				EmployeeID: empID,
				Day:        day,
				Date:       model.FormatDate(day.DateIn(ctx.WeekStart)),
				Message:    fmt.Sprintf("连续工作 %d 天，超过上限 %d 天", consecutive, d.config.MaxConsecutiveDays),
			}}
		}
	}
	return nil
}

// HasErrors 检查是否存在 error 级冲突
func HasErrors(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors 返回 error 级冲突
func Errors(conflicts []Conflict) []Conflict {
	var out []Conflict
	for _, c := range conflicts {
		if c.Severity == SeverityError {
			out = append(out, c)
		}
	}
	return out
}

func dailyHours(shifts []model.Shift) float64 {
	total := 0.0
	for _, sh := range shifts {
		total += sh.Duration()
	}
	return total
}

func latestEnd(shifts []model.Shift) int {
	end := 0
	for _, sh := range shifts {
		end = max(end, sh.End)
	}
	return end
}

func earliestStart(shifts []model.Shift) int {
	start := 24
	for _, sh := range shifts {
		start = min(start, sh.Start)
	}
	return start
}

// employeeIDs 返回排班中出现的员工，按ID排序保证输出稳定
func employeeIDs(data model.ScheduleData) []model.EmployeeID {
	seen := make(map[model.EmployeeID]bool)
	var ids []model.EmployeeID
	for _, byEmp := range data {
		for id := range byEmp {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
	return ids
}
