// Package allocator 生成初始排班
//
// 分三步：先覆盖紧缺时段，再按偏好分配班次块，最后补足每小时最低人数。
package allocator

import (
	"sort"

	"github.com/smartplanning/planning/pkg/logger"
	"github.com/smartplanning/planning/pkg/model"
	"github.com/smartplanning/planning/pkg/scheduler/availability"
	"github.com/smartplanning/planning/pkg/scheduler/critical"
	"github.com/smartplanning/planning/pkg/scheduler/evaluator"
	"github.com/smartplanning/planning/pkg/scheduler/slicer"
	"github.com/smartplanning/planning/pkg/scheduler/state"
)

// 块评分
const (
	blockBaseScore     = 10.0
	fitsContractBonus  = 5.0
	overContractCost   = 3.0
	ledgerPenaltyScale = 10.0
)

// MinFillHours 补位班次最短时长
const MinFillHours = 2

// Summary 各阶段新增班次数
type Summary struct {
	Critical  int `json:"critical"`
	Preferred int `json:"preferred"`
	Required  int `json:"required"`
}

// Total 新增班次总数
func (s Summary) Total() int {
	return s.Critical + s.Preferred + s.Required
}

// InitialAllocator 初始分配器
type InitialAllocator struct {
	matrix *availability.Matrix
	logger *logger.SchedulerLogger
}

// New 创建初始分配器
func New(m *availability.Matrix, log *logger.SchedulerLogger) *InitialAllocator {
	if log == nil {
		log = logger.NewSchedulerLogger()
	}
	return &InitialAllocator{matrix: m, logger: log}
}

// Allocate 依次执行三个分配步骤
func (a *InitialAllocator) Allocate(s *state.State, periods []critical.Period) Summary {
	summary := Summary{
		Critical: a.CoverCritical(s, periods),
	}
	summary.Preferred = a.AssignBlocks(s)
	summary.Required = a.EnsureMinimum(s)
	return summary
}

// CoverCritical 为无人在岗的紧缺时段安排台账最少的可用员工
func (a *InitialAllocator) CoverCritical(s *state.State, periods []critical.Period) int {
	p := s.Problem()
	added := 0
	for _, period := range periods {
		if s.Staffing(period.Day, period.Hour) > 0 {
			continue
		}
		open, ok := p.BusinessHours.Open(period.Day)
		if !ok {
			continue
		}

		for _, e := range byLedger(s, a.candidates(s, period.Day, period.Hour)) {
			r, ok := criticalWindow(s, period.Day, e.ID, open, period.Hour)
			if !ok || !a.matrix.FullyAvailable(period.Day, e.ID, r) {
				continue
			}
			if err := s.Add(period.Day, e.ID, model.NewShift(r.Start, r.End, model.OriginCritical)); err != nil {
				continue
			}
			added++
			break
		}
	}
	return added
}

// criticalWindow 以紧缺小时为中心取 [h-1, h+3)，去掉首尾已有人覆盖的小时，
// 保证至少 2 小时并落在员工当天的空闲区间内
func criticalWindow(s *state.State, day model.Weekday, id model.EmployeeID, open model.HourRange, hour int) (model.HourRange, bool) {
	start := max(open.Start, hour-1)
	end := min(open.End, hour+3)
	for start < hour && s.Staffing(day, start) > 0 {
		start++
	}
	for end-1 > hour && s.Staffing(day, end-1) > 0 {
		end--
	}
	if end-start < 2 {
		if end < open.End {
			end++
		} else if start > open.Start {
			start--
		}
	}

	gap, ok := s.FreeGap(day, id, hour)
	if !ok {
		return model.HourRange{}, false
	}
	start = max(start, gap.Start)
	end = min(end, gap.End)
	if end-start < 2 {
		return model.HourRange{}, false
	}
	return model.NewHourRange(start, end), true
}

// AssignBlocks 按优先级为每个班次块挑选得分最高的员工
// 已满足最低人数的块跳过
func (a *InitialAllocator) AssignBlocks(s *state.State) int {
	p := s.Problem()
	required := max(p.MinimumEmployees, 1)
	added := 0

	for _, day := range p.BusinessHours.OpenDays() {
		open, _ := p.BusinessHours.Open(day)
		for _, block := range slicer.Slice(open) {
			if staffed(s, day, block.HourRange, required) {
				continue
			}

			var best *model.Employee
			bestScore, bestBonus := 0.0, 0.0
			for _, e := range s.Employees() {
				if !a.matrix.FullyAvailable(day, e.ID, block.HourRange) || s.HasOverlap(day, e.ID, block.HourRange) {
					continue
				}
				score, bonus := blockScore(s, e, day, block.HourRange)
				if score < 0 {
					continue
				}
				if best == nil || score > bestScore {
					best, bestScore, bestBonus = e, score, bonus
				}
			}
			if best == nil {
				continue
			}

			origin := model.OriginNormal
			if bestBonus > 0 {
				origin = model.OriginPreferred
			}
			if err := s.Add(day, best.ID, model.NewShift(block.Start, block.End, origin)); err == nil {
				added++
			}
		}
	}
	return added
}

// blockScore 员工承担某块的得分，返回总分与其中的偏好加分
func blockScore(s *state.State, e *model.Employee, day model.Weekday, r model.HourRange) (float64, float64) {
	ledger := s.Hours(e.ID)
	remaining := s.Problem().Contract(e) - ledger
	duration := float64(r.Duration())

	score := blockBaseScore
	switch {
	case remaining >= duration:
		score += fitsContractBonus
	case remaining > 0:
		score += remaining / duration * fitsContractBonus
	default:
		score -= overContractCost
	}

	bonus := evaluator.PreferenceBonus(s, e, day, r)
	score += bonus - ledger/ledgerPenaltyScale
	return score, bonus
}

func staffed(s *state.State, day model.Weekday, r model.HourRange, required int) bool {
	for h := r.Start; h < r.End; h++ {
		if s.Staffing(day, h) < required {
			return false
		}
	}
	return true
}

// EnsureMinimum 逐小时补足最低人数，补位班次 2-4 小时
// 员工空闲不足 2 小时则改为延长其相邻班次
// 开启岗位均衡时优先选择当前小时人数较少的岗位
func (a *InitialAllocator) EnsureMinimum(s *state.State) int {
	p := s.Problem()
	added := 0
	for _, day := range p.BusinessHours.OpenDays() {
		open, _ := p.BusinessHours.Open(day)
		for h := open.Start; h < open.End; h++ {
			need := p.MinimumEmployees - s.Staffing(day, h)
			if need <= 0 {
				continue
			}

			roles := RoleCounts(s, day, h)
			candidates := byLedger(s, a.candidates(s, day, h))
			if p.BalanceRoles {
				sort.SliceStable(candidates, func(i, j int) bool {
					return roles[candidates[i].RoleKey()] < roles[candidates[j].RoleKey()]
				})
			}

			window := model.NewHourRange(max(open.Start, h-1), min(open.End, h+3))
			for _, e := range candidates {
				if need == 0 {
					break
				}
				r, ok := Fit(s, day, e.ID, window, h)
				if !ok {
					continue
				}
				if r.Duration() >= MinFillHours && a.matrix.FullyAvailable(day, e.ID, r) {
					if err := s.Add(day, e.ID, model.NewShift(r.Start, r.End, model.OriginRequired)); err != nil {
						continue
					}
				} else if !ExtendAdjacent(s, day, e.ID, h) {
					continue
				}
				roles[e.RoleKey()]++
				need--
				added++
			}
		}
	}
	return added
}

// candidates 返回某小时可用且未在岗的员工
func (a *InitialAllocator) candidates(s *state.State, day model.Weekday, hour int) []*model.Employee {
	var out []*model.Employee
	for _, e := range s.Employees() {
		if a.matrix.IsAvailable(day, e.ID, hour) && !s.Working(day, e.ID, hour) {
			out = append(out, e)
		}
	}
	return out
}

// Fit 将候选区间裁剪到员工在 hour 附近的空闲区间
func Fit(s *state.State, day model.Weekday, id model.EmployeeID, window model.HourRange, hour int) (model.HourRange, bool) {
	gap, ok := s.FreeGap(day, id, hour)
	if !ok {
		return model.HourRange{}, false
	}
	r := model.NewHourRange(max(window.Start, gap.Start), min(window.End, gap.End))
	if r.Start >= r.End || !r.Contains(hour) {
		return model.HourRange{}, false
	}
	return r, true
}

// ExtendAdjacent 将紧挨 hour 的非固定班次延长一小时覆盖 hour
// 空闲不足一个补位班次时使用，避免产生碎片班次
func ExtendAdjacent(s *state.State, day model.Weekday, id model.EmployeeID, hour int) bool {
	for _, sh := range s.Shifts(day, id) {
		if sh.Origin.Pinned() {
			continue
		}
		if sh.End == hour {
			if s.Resize(day, id, sh.Start, hour+1) == nil {
				return true
			}
			continue
		}
		if sh.Start == hour+1 {
			if _, err := s.Remove(day, id, sh.Start); err != nil {
				return false
			}
			if err := s.Add(day, id, model.NewShift(hour, sh.End, sh.Origin)); err != nil {
				_ = s.Add(day, id, sh)
				return false
			}
			return true
		}
	}
	return false
}

// RoleCounts 统计某小时各岗位在岗人数
func RoleCounts(s *state.State, day model.Weekday, hour int) map[string]int {
	counts := make(map[string]int)
	for _, e := range s.WorkingAt(day, hour) {
		counts[e.RoleKey()]++
	}
	return counts
}

// byLedger 按台账升序稳定排序
func byLedger(s *state.State, employees []*model.Employee) []*model.Employee {
	sort.SliceStable(employees, func(i, j int) bool {
		return s.Hours(employees[i].ID) < s.Hours(employees[j].ID)
	})
	return employees
}

// ByLedger 按台账升序返回员工副本
func ByLedger(s *state.State, employees []*model.Employee) []*model.Employee {
	return byLedger(s, append([]*model.Employee(nil), employees...))
}
