// Package coverage 在优化之后兜底保证每小时最低在岗人数
package coverage

import (
	"github.com/smartplanning/planning/pkg/logger"
	"github.com/smartplanning/planning/pkg/model"
	"github.com/smartplanning/planning/pkg/scheduler/allocator"
	"github.com/smartplanning/planning/pkg/scheduler/availability"
	"github.com/smartplanning/planning/pkg/scheduler/state"
)

// 紧急班次窗口：[h-1, h+2)
const (
	windowBefore = 1
	windowAfter  = 2
)

// Shortfall 无法补足的小时
type Shortfall struct {
	Day      model.Weekday `json:"day"`
	Hour     int           `json:"hour"`
	Required int           `json:"required"`
	Assigned int           `json:"assigned"`
}

// Enforcer 覆盖兜底
type Enforcer struct {
	matrix *availability.Matrix
	logger *logger.SchedulerLogger
}

// NewEnforcer 创建覆盖兜底器
func NewEnforcer(m *availability.Matrix, log *logger.SchedulerLogger) *Enforcer {
	if log == nil {
		log = logger.NewSchedulerLogger()
	}
	return &Enforcer{matrix: m, logger: log}
}

// Enforce 对低于最低人数的小时追加紧急班次或延长相邻班次
// 返回补位人次与仍未补足的小时
func (f *Enforcer) Enforce(s *state.State) (int, []Shortfall) {
	p := s.Problem()
	added := 0
	var shortfalls []Shortfall

	for _, day := range p.BusinessHours.OpenDays() {
		open, _ := p.BusinessHours.Open(day)
		for h := open.Start; h < open.End; h++ {
			assigned := s.Staffing(day, h)
			if assigned >= p.MinimumEmployees {
				continue
			}

			window := model.NewHourRange(max(open.Start, h-windowBefore), min(open.End, h+windowAfter))
			for _, e := range allocator.ByLedger(s, s.Employees()) {
				if assigned >= p.MinimumEmployees {
					break
				}
				if !f.matrix.IsAvailable(day, e.ID, h) {
					continue
				}
				if !f.place(s, day, e.ID, window, h) {
					continue
				}
				assigned++
				added++
			}

			if assigned < p.MinimumEmployees {
				f.logger.CoverageShortfall(string(day), h, p.MinimumEmployees, assigned)
				shortfalls = append(shortfalls, Shortfall{
					Day:      day,
					Hour:     h,
					Required: p.MinimumEmployees,
					Assigned: assigned,
				})
			}
		}
	}
	return added, shortfalls
}

// place 为员工补上 hour：优先追加至少 2 小时的紧急班次，
// 其次延长相邻的非固定班次，最后才接受更短的紧急班次
func (f *Enforcer) place(s *state.State, day model.Weekday, id model.EmployeeID, window model.HourRange, hour int) bool {
	r, ok := allocator.Fit(s, day, id, window, hour)
	if !ok || !f.matrix.FullyAvailable(day, id, r) {
		return false
	}
	if r.Duration() < allocator.MinFillHours && allocator.ExtendAdjacent(s, day, id, hour) {
		return true
	}
	return s.Add(day, id, model.NewShift(r.Start, r.End, model.OriginUrgent)) == nil
}
