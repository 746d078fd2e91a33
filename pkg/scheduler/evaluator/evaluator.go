// Package evaluator 为排班方案打分
package evaluator

import (
	"math"

	"github.com/smartplanning/planning/pkg/model"
	"github.com/smartplanning/planning/pkg/scheduler/state"
)

// 评分权重
const (
	BaseScore            = 100.0
	OverworkPenalty      = 2.0  // 每超出合同 1 小时
	UnderworkPenalty     = 1.0  // 每少于合同 1 小时
	MatchRateWeight      = 50.0 // 偏好满足率满分
	CoverageGapPenalty   = 5.0  // 每缺 1 人·小时
	CallerWithinBonus    = 8.0
	CallerPartialBonus   = 4.0
	ProfileWithinBonus   = 6.0
	PreferredOriginBonus = 10.0
)

// originAdjust 班次来源对单班次偏好分的修正
var originAdjust = map[model.Origin]float64{
	model.OriginPreferred: PreferredOriginBonus,
	model.OriginRequired:  -5,
	model.OriginCritical:  -10,
	model.OriginUrgent:    -8,
}

// Score 返回方案总分，越高越好
func Score(s *state.State) float64 {
	p := s.Problem()
	score := BaseScore

	for _, e := range s.Employees() {
		diff := s.Hours(e.ID) - p.Contract(e)
		if diff > 0 {
			score -= OverworkPenalty * diff
		} else {
			score -= UnderworkPenalty * -diff
		}
	}

	if matched, total := Matches(s); total > 0 {
		score += float64(matched) / float64(total) * MatchRateWeight
	}

	score -= CoverageGapPenalty * float64(Shortage(s))
	return score
}

// MatchRate 偏好满足率，没有任何偏好时为 1
func MatchRate(s *state.State) float64 {
	matched, total := Matches(s)
	if total == 0 {
		return 1.0
	}
	return float64(matched) / float64(total)
}

// Matches 统计营业日的偏好时段及被某个班次完整覆盖的数量
func Matches(s *state.State) (matched, total int) {
	p := s.Problem()
	for _, e := range s.Employees() {
		for _, day := range p.BusinessHours.OpenDays() {
			for _, pref := range Preferences(s, e, day) {
				total++
				for _, sh := range s.Shifts(day, e.ID) {
					if sh.Range().Covers(pref) {
						matched++
						break
					}
				}
			}
		}
	}
	return matched, total
}

// Preferences 员工某天的有效偏好：调用方传入的优先，否则取档案中的
func Preferences(s *state.State, e *model.Employee, day model.Weekday) []model.HourRange {
	if prefs := s.Problem().Preferences.For(e.ID, day); len(prefs) > 0 {
		return prefs
	}
	prefs, _ := e.ProfilePreferences(day)
	valid := prefs[:0:0]
	for _, r := range prefs {
		if r.Valid() {
			valid = append(valid, r)
		}
	}
	return valid
}

// Shortage 各营业小时低于最低人数的缺口之和
func Shortage(s *state.State) int {
	p := s.Problem()
	missing := 0
	for _, day := range p.BusinessHours.OpenDays() {
		open, _ := p.BusinessHours.Open(day)
		for h := open.Start; h < open.End; h++ {
			if n := s.Staffing(day, h); n < p.MinimumEmployees {
				missing += p.MinimumEmployees - n
			}
		}
	}
	return missing
}

// PreferenceBonus 区间与员工偏好的契合加分（不含来源修正）
func PreferenceBonus(s *state.State, e *model.Employee, day model.Weekday, r model.HourRange) float64 {
	bonus := 0.0
	for _, pref := range s.Problem().Preferences.For(e.ID, day) {
		if r.Within(pref) {
			bonus = CallerWithinBonus
			break
		}
		if r.Overlaps(pref) {
			bonus = CallerPartialBonus
		}
	}
	profile, _ := e.ProfilePreferences(day)
	for _, pref := range profile {
		if pref.Valid() && r.Within(pref) {
			bonus += ProfileWithinBonus
			break
		}
	}
	return bonus
}

// ShiftScore 单个班次对员工的偏好分
func ShiftScore(s *state.State, e *model.Employee, day model.Weekday, shift model.Shift) float64 {
	return originAdjust[shift.Origin] + PreferenceBonus(s, e, day, shift.Range())
}

// NotWorse 新分数不低于旧分数（容忍浮点误差）
func NotWorse(before, after float64) bool {
	return after >= before-1e-9
}

// Round2 保留两位小数
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
