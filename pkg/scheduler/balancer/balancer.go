// Package balancer 缩短明显超时员工的班次
package balancer

import (
	"math"
	"sort"

	"github.com/smartplanning/planning/pkg/logger"
	"github.com/smartplanning/planning/pkg/model"
	"github.com/smartplanning/planning/pkg/scheduler/evaluator"
	"github.com/smartplanning/planning/pkg/scheduler/state"
)

const (
	// OverTolerance 超出合同工时多少小时才处理
	OverTolerance = 5.0
	// MaxReduction 每名员工最多削减的小时数
	MaxReduction = 4
	// MinShiftHours 班次缩短后的最短时长
	MinShiftHours = 2
	// shrinkableHours 达到该时长的班次才会被缩短
	shrinkableHours = 3
)

// Adjustment 一次缩短记录
type Adjustment struct {
	EmployeeID model.EmployeeID `json:"employee_id"`
	Day        model.Weekday    `json:"day"`
	Start      int              `json:"start"`
	OldEnd     int              `json:"old_end"`
	NewEnd     int              `json:"new_end"`
}

// WorkloadBalancer 工时均衡器
type WorkloadBalancer struct {
	logger *logger.SchedulerLogger
}

// New 创建工时均衡器
func New(log *logger.SchedulerLogger) *WorkloadBalancer {
	if log == nil {
		log = logger.NewSchedulerLogger()
	}
	return &WorkloadBalancer{logger: log}
}

// Balance 对台账超出合同 5 小时以上的员工，从班次末尾削减最多 4 小时
// 受保护班次与短于 3 小时的班次不动，削减后不低于 2 小时，也不会让任何小时跌破最低人数
func (b *WorkloadBalancer) Balance(s *state.State) []Adjustment {
	p := s.Problem()

	type overloaded struct {
		employee *model.Employee
		excess   float64
	}
	var targets []overloaded
	for _, e := range s.Employees() {
		if excess := s.Hours(e.ID) - p.Contract(e); excess > OverTolerance {
			targets = append(targets, overloaded{employee: e, excess: excess})
		}
	}
	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].excess > targets[j].excess
	})

	var adjustments []Adjustment
	for _, t := range targets {
		limit := int(math.Min(t.excess, MaxReduction))
		for _, c := range shrinkable(s, t.employee) {
			if limit == 0 {
				break
			}
			cut := min(c.shift.End-c.shift.Start-MinShiftHours, limit)
			r := 0
			for r < cut && s.Staffing(c.day, c.shift.End-1-r)-1 >= p.MinimumEmployees {
				r++
			}
			if r == 0 {
				continue
			}
			if err := s.Resize(c.day, t.employee.ID, c.shift.Start, c.shift.End-r); err != nil {
				continue
			}
			limit -= r
			adjustments = append(adjustments, Adjustment{
				EmployeeID: t.employee.ID,
				Day:        c.day,
				Start:      c.shift.Start,
				OldEnd:     c.shift.End,
				NewEnd:     c.shift.End - r,
			})
		}
	}

	b.logger.PhaseComplete("workload_balance", len(adjustments), evaluator.Score(s))
	return adjustments
}

type candidate struct {
	day   model.Weekday
	shift model.Shift
	score float64
}

// shrinkable 返回可缩短的班次，偏好分低的在前
func shrinkable(s *state.State, e *model.Employee) []candidate {
	var out []candidate
	for _, day := range model.Weekdays {
		for _, sh := range s.Shifts(day, e.ID) {
			if sh.Origin.Pinned() || sh.End-sh.Start < shrinkableHours {
				continue
			}
			out = append(out, candidate{day: day, shift: sh, score: evaluator.ShiftScore(s, e, day, sh)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score < out[j].score
		}
		return out[i].shift.Duration() > out[j].shift.Duration()
	})
	return out
}
