// Package availability 计算员工逐小时的可用权重
package availability

import (
	"fmt"

	"github.com/smartplanning/planning/pkg/logger"
	"github.com/smartplanning/planning/pkg/model"
	"github.com/smartplanning/planning/pkg/scheduler/state"
)

// 可用权重
const (
	Unavailable = 0.0 // 休假
	Reluctant   = 0.5 // 档案有当天偏好但不含该小时
	Available   = 1.0
)

// Matrix 星期 -> 员工 -> 营业时间内逐小时权重
type Matrix struct {
	hours   model.BusinessHours
	weights map[model.Weekday]map[model.EmployeeID][]float64
}

// Build 根据休假、调用方偏好与档案偏好计算可用性矩阵
// 相同输入多次调用结果一致
func Build(p *state.Problem, log *logger.SchedulerLogger) *Matrix {
	m := &Matrix{
		hours:   p.BusinessHours,
		weights: make(map[model.Weekday]map[model.EmployeeID][]float64),
	}

	// 档案偏好中的非法区间只告警一次，并按无偏好处理
	profiles := make(map[model.EmployeeID]model.WeeklyPreferences, len(p.Employees))
	for _, e := range p.Employees {
		prefs, err := validProfile(e.PreferredShifts)
		if err != nil {
			if log != nil {
				log.DataWarning("preferred_shifts", e.ID.String(), err)
			}
			continue
		}
		profiles[e.ID] = prefs
	}

	for _, day := range p.BusinessHours.OpenDays() {
		open, _ := p.BusinessHours.Open(day)
		byEmp := make(map[model.EmployeeID][]float64, len(p.Employees))
		for _, e := range p.Employees {
			row := make([]float64, open.Duration())
			if !p.OnVacation(e.ID, day) {
				caller := p.Preferences.For(e.ID, day)
				profile, hasProfile := profiles[e.ID][day]
				for h := open.Start; h < open.End; h++ {
					row[h-open.Start] = weight(h, caller, profile, hasProfile)
				}
			}
			byEmp[e.ID] = row
		}
		m.weights[day] = byEmp
	}
	return m
}

// weight 单小时权重：调用方偏好命中优先，其次看档案偏好，无偏好视为可用
func weight(hour int, caller, profile []model.HourRange, hasProfile bool) float64 {
	if containsHour(caller, hour) {
		return Available
	}
	if !hasProfile {
		return Available
	}
	if containsHour(profile, hour) {
		return Available
	}
	return Reluctant
}

func containsHour(ranges []model.HourRange, hour int) bool {
	for _, r := range ranges {
		if r.Contains(hour) {
			return true
		}
	}
	return false
}

func validProfile(prefs model.WeeklyPreferences) (model.WeeklyPreferences, error) {
	for day, ranges := range prefs {
		if !day.Valid() {
			return nil, fmt.Errorf("未知的星期 '%s'", day)
		}
		for _, r := range ranges {
			if !r.Valid() {
				return nil, fmt.Errorf("%s 的偏好时段 %s 无效", day, r)
			}
		}
	}
	return prefs, nil
}

// Weight 返回员工某天某小时的权重，休息日或营业时间外为 0
func (m *Matrix) Weight(day model.Weekday, id model.EmployeeID, hour int) float64 {
	open, ok := m.hours.Open(day)
	if !ok || !open.Contains(hour) {
		return Unavailable
	}
	row, ok := m.weights[day][id]
	if !ok {
		return Unavailable
	}
	return row[hour-open.Start]
}

// IsAvailable 权重大于 0 即可排班
func (m *Matrix) IsAvailable(day model.Weekday, id model.EmployeeID, hour int) bool {
	return m.Weight(day, id, hour) > 0
}

// FullyAvailable 检查员工在整个区间内都可排班
func (m *Matrix) FullyAvailable(day model.Weekday, id model.EmployeeID, r model.HourRange) bool {
	if r.Start >= r.End {
		return false
	}
	for h := r.Start; h < r.End; h++ {
		if !m.IsAvailable(day, id, h) {
			return false
		}
	}
	return true
}

// AvailableCount 返回某小时可用员工数与权重和
func (m *Matrix) AvailableCount(day model.Weekday, hour int) (int, float64) {
	count, total := 0, 0.0
	for id := range m.weights[day] {
		if w := m.Weight(day, id, hour); w > 0 {
			count++
			total += w
		}
	}
	return count, total
}
