package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout 日期格式
const DateLayout = "2006-01-02"

// Weekday 星期（以英文名作为键，与存储的 schedule_data 保持一致）
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// Weekdays 一周的固定顺序（周一开始）
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Index 返回距周一的天数，非法值返回 -1
func (d Weekday) Index() int {
	for i, w := range Weekdays {
		if w == d {
			return i
		}
	}
	return -1
}

// Valid 检查是否为合法星期
func (d Weekday) Valid() bool {
	return d.Index() >= 0
}

// DateIn 返回该星期在指定周中的日期
func (d Weekday) DateIn(weekStart time.Time) time.Time {
	return weekStart.AddDate(0, 0, d.Index())
}

// WeekdayOf 由日期得到星期
func WeekdayOf(t time.Time) Weekday {
	// time.Weekday 以周日为 0
	return Weekdays[(int(t.Weekday())+6)%7]
}

// WeekMonday 将任意日期归一化为所在 ISO 周的周一（UTC 零点）
func WeekMonday(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -WeekdayOf(day).Index())
}

// WeekEnd 返回周结束日期（周一 + 6 天）
func WeekEnd(weekStart time.Time) time.Time {
	return weekStart.AddDate(0, 0, 6)
}

// ParseDate 解析 YYYY-MM-DD 日期
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("日期格式无效 '%s'，应为YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

// FormatDate 格式化日期
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// BusinessHours 营业时间：星期 -> [开门, 关门)
type BusinessHours map[Weekday]HourRange

// Open 返回某天的营业区间，未配置或 open >= close 视为休息日
func (b BusinessHours) Open(day Weekday) (HourRange, bool) {
	r, ok := b[day]
	if !ok || r.Start >= r.End {
		return HourRange{}, false
	}
	return r, true
}

// OpenDays 按周一至周日的顺序返回营业日
func (b BusinessHours) OpenDays() []Weekday {
	days := make([]Weekday, 0, len(Weekdays))
	for _, d := range Weekdays {
		if _, ok := b.Open(d); ok {
			days = append(days, d)
		}
	}
	return days
}

// TotalOpenHours 返回一周营业总小时数
func (b BusinessHours) TotalOpenHours() int {
	total := 0
	for _, d := range b.OpenDays() {
		r, _ := b.Open(d)
		total += r.Duration()
	}
	return total
}

// VacationInterval 休假区间（起止日期均包含）
type VacationInterval struct {
	EmployeeID EmployeeID `json:"employee_id" db:"employee_id"`
	StartDate  string     `json:"start_date" db:"start_date"`
	EndDate    string     `json:"end_date" db:"end_date"`
	Status     string     `json:"status,omitempty" db:"status"`
}

// VacationDays 员工 -> 休假日期集合（YYYY-MM-DD）
type VacationDays map[EmployeeID]map[string]bool

// ExpandVacations 将休假区间逐日展开，重复调用结果一致
func ExpandVacations(vacations []VacationInterval) (VacationDays, error) {
	days := make(VacationDays)
	for _, v := range vacations {
		start, err := ParseDate(v.StartDate)
		if err != nil {
			return nil, err
		}
		end, err := ParseDate(v.EndDate)
		if err != nil {
			return nil, err
		}
		if end.Before(start) {
			return nil, fmt.Errorf("员工 %s 的休假结束日期 %s 早于开始日期 %s", v.EmployeeID, v.EndDate, v.StartDate)
		}
		set, ok := days[v.EmployeeID]
		if !ok {
			set = make(map[string]bool)
			days[v.EmployeeID] = set
		}
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			set[FormatDate(d)] = true
		}
	}
	return days, nil
}

// OnVacation 检查员工在某日期是否休假
func (v VacationDays) OnVacation(id EmployeeID, date time.Time) bool {
	return v[id][FormatDate(date)]
}

// WeeklyPreferences 每周偏好：星期 -> 偏好时间段
type WeeklyPreferences map[Weekday][]HourRange

// ParseWeeklyPreferences 解析存储中的 JSON 偏好，空串视为无偏好
func ParseWeeklyPreferences(raw string) (WeeklyPreferences, error) {
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var prefs WeeklyPreferences
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return nil, err
	}
	for day := range prefs {
		if !day.Valid() {
			return nil, fmt.Errorf("未知的星期 '%s'", day)
		}
	}
	return prefs, nil
}

// PreferenceMap 调用方传入的偏好：员工 -> 星期 -> 偏好时间段
type PreferenceMap map[EmployeeID]WeeklyPreferences

// For 返回某员工某天的偏好
func (p PreferenceMap) For(id EmployeeID, day Weekday) []HourRange {
	if p == nil {
		return nil
	}
	return p[id][day]
}
