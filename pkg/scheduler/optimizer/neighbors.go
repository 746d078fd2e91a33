package optimizer

import (
	"sort"

	"github.com/smartplanning/planning/pkg/model"
	"github.com/smartplanning/planning/pkg/scheduler/evaluator"
	"github.com/smartplanning/planning/pkg/scheduler/state"
)

// 邻域移动类型
const (
	MoveTransfer = "transfer" // 班次从超时员工转给欠时员工
	MoveSwap     = "swap"     // 两名员工交换同一天的班次
	MoveRole     = "role"     // 班次从人多的岗位转给人少的岗位
)

// hourTolerance 与合同工时相差超过该值才做工时均衡
const hourTolerance = 2.0

// dayShift 某天的一个班次
type dayShift struct {
	day   model.Weekday
	shift model.Shift
}

func transferKey(kind string, day model.Weekday, from, to model.EmployeeID, r model.HourRange) uint64 {
	return moveKey(kind, string(day), from.String(), to.String(), r.String())
}

// balanceHours 将超时员工的非保护班次转给欠时员工
func (o *LocalSearchOptimizer) balanceHours(s *state.State) int {
	p := s.Problem()
	changes := 0
	for _, over := range deviating(s, func(d float64) bool { return d > hourTolerance }, true) {
		for _, c := range movableShifts(s, over.ID) {
			if s.Hours(over.ID)-p.Contract(over) <= hourTolerance {
				break
			}
			r := c.shift.Range()
			for _, under := range deviating(s, func(d float64) bool { return d < -hourTolerance }, false) {
				if !o.matrix.FullyAvailable(c.day, under.ID, r) || s.HasOverlap(c.day, under.ID, r) {
					continue
				}
				day, start, from, to := c.day, c.shift.Start, over.ID, under.ID
				if o.try(s, MoveTransfer,
					transferKey(MoveTransfer, day, from, to, r),
					transferKey(MoveTransfer, day, to, from, r),
					func() error { return s.Transfer(day, from, start, to) },
					func() { _ = s.Transfer(day, to, start, from) },
				) {
					changes++
					break
				}
			}
		}
	}
	return changes
}

// deviating 返回台账偏离合同满足条件的员工，按偏离程度排序
func deviating(s *state.State, match func(float64) bool, desc bool) []*model.Employee {
	p := s.Problem()
	var out []*model.Employee
	diff := make(map[model.EmployeeID]float64)
	for _, e := range s.Employees() {
		d := s.Hours(e.ID) - p.Contract(e)
		if match(d) {
			out = append(out, e)
			diff[e.ID] = d
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return diff[out[i].ID] > diff[out[j].ID]
		}
		return diff[out[i].ID] < diff[out[j].ID]
	})
	return out
}

// movableShifts 返回员工可被移动的班次：非偏好的在前，长的在前
func movableShifts(s *state.State, id model.EmployeeID) []dayShift {
	var out []dayShift
	for _, day := range model.Weekdays {
		for _, sh := range s.Shifts(day, id) {
			if sh.Origin.Pinned() {
				continue
			}
			out = append(out, dayShift{day: day, shift: sh})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi := out[i].shift.Origin == model.OriginPreferred
		pj := out[j].shift.Origin == model.OriginPreferred
		if pi != pj {
			return !pi
		}
		return out[i].shift.Duration() > out[j].shift.Duration()
	})
	return out
}

// improvePreferences 两两尝试交换同一天的班次，使双方偏好分之和提高
func (o *LocalSearchOptimizer) improvePreferences(s *state.State) int {
	employees := s.Employees()
	changes := 0
	for _, day := range s.Problem().BusinessHours.OpenDays() {
		for i := 0; i < len(employees); i++ {
			for j := i + 1; j < len(employees); j++ {
				if o.swapPair(s, day, employees[i], employees[j]) {
					changes++
				}
			}
		}
	}
	return changes
}

func (o *LocalSearchOptimizer) swapPair(s *state.State, day model.Weekday, a, b *model.Employee) bool {
	shiftsA := append([]model.Shift(nil), s.Shifts(day, a.ID)...)
	shiftsB := append([]model.Shift(nil), s.Shifts(day, b.ID)...)

	for _, sa := range shiftsA {
		if sa.Origin.Pinned() {
			continue
		}
		for _, sb := range shiftsB {
			if sb.Origin.Pinned() || sa.Range() == sb.Range() {
				continue
			}
			ra, rb := sa.Range(), sb.Range()
			if !o.matrix.FullyAvailable(day, b.ID, ra) || !o.matrix.FullyAvailable(day, a.ID, rb) {
				continue
			}

			before := evaluator.ShiftScore(s, a, day, sa) + evaluator.ShiftScore(s, b, day, sb)
			after := evaluator.ShiftScore(s, b, day, sa) + evaluator.ShiftScore(s, a, day, sb)
			if after <= before {
				continue
			}

			startA, startB := sa.Start, sb.Start
			if o.try(s, MoveSwap,
				moveKey(MoveSwap, string(day), a.ID.String(), ra.String(), b.ID.String(), rb.String()),
				moveKey(MoveSwap, string(day), a.ID.String(), rb.String(), b.ID.String(), ra.String()),
				func() error { return s.Swap(day, a.ID, startA, b.ID, startB) },
				func() { _ = s.Swap(day, a.ID, startB, b.ID, startA) },
			) {
				return true
			}
		}
	}
	return false
}

// balanceRoles 某小时各岗位在岗人数差距过大时，
// 把人数最多岗位的一个班次转给人少岗位中空闲且可用的员工
func (o *LocalSearchOptimizer) balanceRoles(s *state.State) int {
	roles := distinctRoles(s.Employees())
	if len(roles) <= 1 {
		return 0
	}

	p := s.Problem()
	changes := 0
	for _, day := range p.BusinessHours.OpenDays() {
		open, _ := p.BusinessHours.Open(day)
		for h := open.Start; h < open.End; h++ {
			if o.rebalanceHour(s, day, h, roles) {
				changes++
			}
		}
	}
	return changes
}

func (o *LocalSearchOptimizer) rebalanceHour(s *state.State, day model.Weekday, hour int, roles []string) bool {
	working := s.WorkingAt(day, hour)
	counts := make(map[string]int, len(roles))
	for _, e := range working {
		counts[e.RoleKey()]++
	}
	if len(counts) <= 1 {
		return false
	}

	top, low := "", ""
	for _, r := range roles {
		n, ok := counts[r]
		if !ok {
			continue
		}
		if top == "" || n > counts[top] {
			top = r
		}
		if low == "" || n < counts[low] {
			low = r
		}
	}
	mean := float64(len(working)) / float64(len(counts))
	if float64(counts[top]-counts[low]) <= mean/2 {
		return false
	}

	var candidates []*model.Employee
	for _, e := range s.Employees() {
		if e.RoleKey() != top && float64(counts[e.RoleKey()]) < mean && !s.Working(day, e.ID, hour) {
			candidates = append(candidates, e)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := counts[candidates[i].RoleKey()], counts[candidates[j].RoleKey()]
		if ci != cj {
			return ci < cj
		}
		return s.Hours(candidates[i].ID) < s.Hours(candidates[j].ID)
	})

	for _, holder := range working {
		if holder.RoleKey() != top {
			continue
		}
		sh, ok := shiftAt(s, day, holder.ID, hour)
		if !ok || sh.Origin.Pinned() {
			continue
		}
		r := sh.Range()
		for _, c := range candidates {
			if !o.matrix.FullyAvailable(day, c.ID, r) || s.HasOverlap(day, c.ID, r) {
				continue
			}
			from, to, start := holder.ID, c.ID, sh.Start
			if o.try(s, MoveRole,
				transferKey(MoveRole, day, from, to, r),
				transferKey(MoveRole, day, to, from, r),
				func() error { return s.Transfer(day, from, start, to) },
				func() { _ = s.Transfer(day, to, start, from) },
			) {
				return true
			}
		}
	}
	return false
}

func shiftAt(s *state.State, day model.Weekday, id model.EmployeeID, hour int) (model.Shift, bool) {
	for _, sh := range s.Shifts(day, id) {
		if sh.Contains(hour) {
			return sh, true
		}
	}
	return model.Shift{}, false
}

// distinctRoles 返回排序后的岗位列表
func distinctRoles(employees []*model.Employee) []string {
	seen := make(map[string]bool)
	var roles []string
	for _, e := range employees {
		if !seen[e.RoleKey()] {
			seen[e.RoleKey()] = true
			roles = append(roles, e.RoleKey())
		}
	}
	sort.Strings(roles)
	return roles
}
