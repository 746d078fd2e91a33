// Package state 保存单次排班运行的输入与可变状态
//
// Problem 为只读输入，State 持有排班表与工时台账，由编排函数独占，
// 各阶段通过指针获得修改权。所有修改都经由 State 的方法完成，
// 以保证同一员工同一天的班次不重叠、台账与班次时长一致。
package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/smartplanning/planning/pkg/model"
)

var (
	// ErrOverlap 班次与员工当天已有班次重叠
	ErrOverlap = errors.New("班次时间重叠")
	// ErrShiftNotFound 找不到指定班次
	ErrShiftNotFound = errors.New("班次不存在")
	// ErrInvalidShift 班次区间非法
	ErrInvalidShift = errors.New("班次区间无效")
	// ErrUnknownEmployee 员工不在本次排班范围内
	ErrUnknownEmployee = errors.New("未知员工")
)

// Problem 单次排班的只读输入
type Problem struct {
	WeekStart            time.Time
	Employees            []*model.Employee
	BusinessHours        model.BusinessHours
	Preferences          model.PreferenceMap
	Vacations            model.VacationDays
	MinimumEmployees     int
	BalanceRoles         bool
	DefaultContractHours float64
}

// Contract 返回员工的合同周工时
func (p *Problem) Contract(e *model.Employee) float64 {
	return e.Contract(p.DefaultContractHours)
}

// Date 返回某星期在本周的日期
func (p *Problem) Date(day model.Weekday) time.Time {
	return day.DateIn(p.WeekStart)
}

// OnVacation 检查员工某天是否休假
func (p *Problem) OnVacation(id model.EmployeeID, day model.Weekday) bool {
	return p.Vacations.OnVacation(id, p.Date(day))
}

// State 排班表与工时台账
type State struct {
	problem  *Problem
	index    map[model.EmployeeID]int
	schedule model.ScheduleData
	ledger   map[model.EmployeeID]float64
	seed     map[model.EmployeeID]float64
}

// New 创建空排班状态，台账以员工的结转工时为初值
func New(p *Problem) *State {
	s := &State{
		problem:  p,
		index:    make(map[model.EmployeeID]int, len(p.Employees)),
		schedule: make(model.ScheduleData, len(model.Weekdays)),
		ledger:   make(map[model.EmployeeID]float64, len(p.Employees)),
		seed:     make(map[model.EmployeeID]float64, len(p.Employees)),
	}
	for i, e := range p.Employees {
		s.index[e.ID] = i
		s.ledger[e.ID] = e.HourBalance
		s.seed[e.ID] = e.HourBalance
	}
	for _, day := range model.Weekdays {
		s.schedule[day] = make(model.DaySchedule)
	}
	return s
}

// Problem 返回只读输入
func (s *State) Problem() *Problem {
	return s.problem
}

// Employees 按输入顺序返回员工
func (s *State) Employees() []*model.Employee {
	return s.problem.Employees
}

// Employee 根据ID查找员工
func (s *State) Employee(id model.EmployeeID) *model.Employee {
	i, ok := s.index[id]
	if !ok {
		return nil
	}
	return s.problem.Employees[i]
}

// Order 返回员工的输入序号，用于稳定排序
func (s *State) Order(id model.EmployeeID) int {
	return s.index[id]
}

// Shifts 返回员工某天的班次（按开始时间排序，调用方不得修改）
func (s *State) Shifts(day model.Weekday, id model.EmployeeID) []model.Shift {
	return s.schedule[day][id]
}

// Find 按开始时间查找员工某天的班次
func (s *State) Find(day model.Weekday, id model.EmployeeID, start int) (model.Shift, bool) {
	for _, sh := range s.schedule[day][id] {
		if sh.Start == start {
			return sh, true
		}
	}
	return model.Shift{}, false
}

// Hours 返回员工台账工时（结转 + 已分配）
func (s *State) Hours(id model.EmployeeID) float64 {
	return s.ledger[id]
}

// Seed 返回员工台账初值
func (s *State) Seed(id model.EmployeeID) float64 {
	return s.seed[id]
}

// AssignedHours 返回员工本周已分配班次的总时长
func (s *State) AssignedHours(id model.EmployeeID) float64 {
	total := 0.0
	for _, day := range model.Weekdays {
		for _, sh := range s.schedule[day][id] {
			total += sh.Duration()
		}
	}
	return total
}

// Ledger 返回台账副本
func (s *State) Ledger() map[model.EmployeeID]float64 {
	out := make(map[model.EmployeeID]float64, len(s.ledger))
	for id, h := range s.ledger {
		out[id] = h
	}
	return out
}

// Working 检查员工某小时是否在岗
func (s *State) Working(day model.Weekday, id model.EmployeeID, hour int) bool {
	for _, sh := range s.schedule[day][id] {
		if sh.Contains(hour) {
			return true
		}
	}
	return false
}

// Staffing 返回某天某小时在岗人数
func (s *State) Staffing(day model.Weekday, hour int) int {
	count := 0
	for _, shifts := range s.schedule[day] {
		for _, sh := range shifts {
			if sh.Contains(hour) {
				count++
				break
			}
		}
	}
	return count
}

// WorkingAt 按输入顺序返回某小时在岗的员工
func (s *State) WorkingAt(day model.Weekday, hour int) []*model.Employee {
	var out []*model.Employee
	for _, e := range s.problem.Employees {
		if s.Working(day, e.ID, hour) {
			out = append(out, e)
		}
	}
	return out
}

// HasOverlap 检查区间是否与员工当天班次重叠
func (s *State) HasOverlap(day model.Weekday, id model.EmployeeID, r model.HourRange) bool {
	return s.overlapsExcept(day, id, r, -1)
}

// overlapsExcept 检查重叠，忽略开始时间为 skipStart 的班次
func (s *State) overlapsExcept(day model.Weekday, id model.EmployeeID, r model.HourRange, skipStart int) bool {
	for _, sh := range s.schedule[day][id] {
		if sh.Start == skipStart {
			continue
		}
		if sh.Overlaps(r) {
			return true
		}
	}
	return false
}

// FreeGap 返回员工在某小时附近的最大空闲区间（限定在营业时间内）
// 若员工该小时已在岗或当天休息，返回 false
func (s *State) FreeGap(day model.Weekday, id model.EmployeeID, hour int) (model.HourRange, bool) {
	open, ok := s.problem.BusinessHours.Open(day)
	if !ok || !open.Contains(hour) || s.Working(day, id, hour) {
		return model.HourRange{}, false
	}
	gap := open
	for _, sh := range s.schedule[day][id] {
		if sh.End <= hour && sh.End > gap.Start {
			gap.Start = sh.End
		}
		if sh.Start > hour && sh.Start < gap.End {
			gap.End = sh.Start
		}
	}
	return gap, true
}

// Add 为员工添加班次并更新台账
func (s *State) Add(day model.Weekday, id model.EmployeeID, shift model.Shift) error {
	if _, ok := s.index[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEmployee, id)
	}
	if shift.Start >= shift.End {
		return fmt.Errorf("%w: %s", ErrInvalidShift, shift)
	}
	if s.HasOverlap(day, id, shift.Range()) {
		return fmt.Errorf("%w: %s %s %s", ErrOverlap, id, day, shift)
	}
	s.insert(day, id, shift)
	return nil
}

// Remove 移除员工某天开始于 start 的班次
func (s *State) Remove(day model.Weekday, id model.EmployeeID, start int) (model.Shift, error) {
	shifts := s.schedule[day][id]
	for i, sh := range shifts {
		if sh.Start != start {
			continue
		}
		rest := append(shifts[:i:i], shifts[i+1:]...)
		if len(rest) == 0 {
			delete(s.schedule[day], id)
		} else {
			s.schedule[day][id] = rest
		}
		s.ledger[id] -= sh.Duration()
		return sh, nil
	}
	return model.Shift{}, fmt.Errorf("%w: %s %s %d", ErrShiftNotFound, id, day, start)
}

// Transfer 将班次从一名员工转给另一名员工
func (s *State) Transfer(day model.Weekday, from model.EmployeeID, start int, to model.EmployeeID) error {
	if _, ok := s.index[to]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEmployee, to)
	}
	sh, ok := s.Find(day, from, start)
	if !ok {
		return fmt.Errorf("%w: %s %s %d", ErrShiftNotFound, from, day, start)
	}
	if s.HasOverlap(day, to, sh.Range()) {
		return fmt.Errorf("%w: %s %s %s", ErrOverlap, to, day, sh)
	}
	if _, err := s.Remove(day, from, start); err != nil {
		return err
	}
	s.insert(day, to, sh)
	return nil
}

// Swap 交换两名员工当天的各一个班次
func (s *State) Swap(day model.Weekday, a model.EmployeeID, startA int, b model.EmployeeID, startB int) error {
	shA, ok := s.Find(day, a, startA)
	if !ok {
		return fmt.Errorf("%w: %s %s %d", ErrShiftNotFound, a, day, startA)
	}
	shB, ok := s.Find(day, b, startB)
	if !ok {
		return fmt.Errorf("%w: %s %s %d", ErrShiftNotFound, b, day, startB)
	}
	if s.overlapsExcept(day, b, shA.Range(), startB) || s.overlapsExcept(day, a, shB.Range(), startA) {
		return fmt.Errorf("%w: 交换 %s/%s %s", ErrOverlap, a, b, day)
	}
	if _, err := s.Remove(day, a, startA); err != nil {
		return err
	}
	if _, err := s.Remove(day, b, startB); err != nil {
		s.insert(day, a, shA)
		return err
	}
	s.insert(day, a, shB)
	s.insert(day, b, shA)
	return nil
}

// Resize 调整班次结束时间
func (s *State) Resize(day model.Weekday, id model.EmployeeID, start, newEnd int) error {
	shifts := s.schedule[day][id]
	for i, sh := range shifts {
		if sh.Start != start {
			continue
		}
		if newEnd <= sh.Start {
			return fmt.Errorf("%w: %d-%d", ErrInvalidShift, sh.Start, newEnd)
		}
		if s.overlapsExcept(day, id, model.NewHourRange(sh.Start, newEnd), start) {
			return fmt.Errorf("%w: %s %s %d-%d", ErrOverlap, id, day, sh.Start, newEnd)
		}
		s.ledger[id] += float64(newEnd - sh.End)
		shifts[i].End = newEnd
		return nil
	}
	return fmt.Errorf("%w: %s %s %d", ErrShiftNotFound, id, day, start)
}

// insert 插入班次并保持有序，调用方已完成重叠检查
func (s *State) insert(day model.Weekday, id model.EmployeeID, shift model.Shift) {
	shifts := append(s.schedule[day][id], shift)
	model.SortShifts(shifts)
	s.schedule[day][id] = shifts
	s.ledger[id] += shift.Duration()
}

// Data 返回排班表的深拷贝
func (s *State) Data() model.ScheduleData {
	out := make(model.ScheduleData, len(s.schedule))
	for day, byEmp := range s.schedule {
		ds := make(model.DaySchedule, len(byEmp))
		for id, shifts := range byEmp {
			ds[id] = append([]model.Shift(nil), shifts...)
		}
		out[day] = ds
	}
	return out
}

// Snapshot 状态快照
type Snapshot struct {
	schedule model.ScheduleData
	ledger   map[model.EmployeeID]float64
}

// Snapshot 保存当前状态
func (s *State) Snapshot() *Snapshot {
	return &Snapshot{schedule: s.Data(), ledger: s.Ledger()}
}

// Restore 恢复到快照
func (s *State) Restore(snap *Snapshot) {
	s.schedule = make(model.ScheduleData, len(snap.schedule))
	for day, byEmp := range snap.schedule {
		ds := make(model.DaySchedule, len(byEmp))
		for id, shifts := range byEmp {
			ds[id] = append([]model.Shift(nil), shifts...)
		}
		s.schedule[day] = ds
	}
	s.ledger = make(map[model.EmployeeID]float64, len(snap.ledger))
	for id, h := range snap.ledger {
		s.ledger[id] = h
	}
}
