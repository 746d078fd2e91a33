package model

import (
	"fmt"
	"sort"
	"strings"
)

// Origin 班次来源，说明该班次为何存在
type Origin int

const (
	OriginNormal    Origin = iota // 普通
	OriginPreferred               // 按偏好分配
	OriginCritical                // 覆盖紧缺时段
	OriginRequired                // 补足最低人数
	OriginUrgent                  // 最终覆盖兜底
	OriginSource                  // 从历史周复制
)

var originNames = map[Origin]string{
	OriginNormal:    "normal",
	OriginPreferred: "preferred",
	OriginCritical:  "critical",
	OriginRequired:  "required",
	OriginUrgent:    "urgent",
	OriginSource:    "source",
}

// String 返回来源名称
func (o Origin) String() string {
	if name, ok := originNames[o]; ok {
		return name
	}
	return fmt.Sprintf("origin(%d)", int(o))
}

// ParseOrigin 解析来源名称，未知值视为普通
func ParseOrigin(s string) Origin {
	for o, name := range originNames {
		if strings.EqualFold(name, s) {
			return o
		}
	}
	return OriginNormal
}

// Pinned 为覆盖而产生的班次不允许被移动或缩短
func (o Origin) Pinned() bool {
	return o == OriginCritical || o == OriginRequired || o == OriginUrgent
}

// MarshalText 实现 encoding.TextMarshaler
func (o Origin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (o *Origin) UnmarshalText(text []byte) error {
	*o = ParseOrigin(string(text))
	return nil
}

// Shift 班次 [Start, End)
type Shift struct {
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Origin Origin `json:"origin,omitempty"`
}

// NewShift 创建班次
func NewShift(start, end int, origin Origin) Shift {
	return Shift{Start: start, End: end, Origin: origin}
}

// Duration 返回班次时长（小时）
func (s Shift) Duration() float64 {
	return float64(s.End - s.Start)
}

// Range 返回班次的小时区间
func (s Shift) Range() HourRange {
	return HourRange{Start: s.Start, End: s.End}
}

// Contains 检查某小时是否在班次内
func (s Shift) Contains(hour int) bool {
	return hour >= s.Start && hour < s.End
}

// Overlaps 检查是否与区间重叠
func (s Shift) Overlaps(r HourRange) bool {
	return s.Start < r.End && r.Start < s.End
}

// String 返回 "9-13(critical)" 形式
func (s Shift) String() string {
	return fmt.Sprintf("%d-%d(%s)", s.Start, s.End, s.Origin)
}

// SortShifts 按开始时间排序
func SortShifts(shifts []Shift) {
	sort.SliceStable(shifts, func(i, j int) bool {
		if shifts[i].Start != shifts[j].Start {
			return shifts[i].Start < shifts[j].Start
		}
		return shifts[i].End < shifts[j].End
	})
}

// DaySchedule 某天各员工的班次
type DaySchedule map[EmployeeID][]Shift

// ScheduleData 星期 -> 员工 -> 班次
type ScheduleData map[Weekday]DaySchedule

// WeeklySchedule 单个员工的周排班记录（持久化单位）
type WeeklySchedule struct {
	BaseModel
	EmployeeID   EmployeeID          `json:"employee_id" db:"employee_id"`
	WeekStart    string              `json:"week_start" db:"week_start"`
	WeekEnd      string              `json:"week_end" db:"week_end"`
	ScheduleData map[Weekday][]Shift `json:"schedule_data" db:"schedule_data"`
	TotalHours   float64             `json:"total_hours" db:"total_hours"`
	Status       string              `json:"status" db:"status"` // draft/published
}

// ScheduleStatusDraft 新生成排班的状态
const ScheduleStatusDraft = "draft"
