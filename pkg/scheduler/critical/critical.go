// Package critical 识别可用人手紧张的时段
package critical

import (
	"fmt"
	"sort"

	"github.com/smartplanning/planning/pkg/model"
	"github.com/smartplanning/planning/pkg/scheduler/availability"
	"github.com/smartplanning/planning/pkg/scheduler/state"
)

// Period 紧缺时段
type Period struct {
	Day         model.Weekday `json:"day"`
	Hour        int           `json:"hour"`
	Available   int           `json:"available"`
	TotalWeight float64       `json:"total_weight"`
}

// String 返回 "Monday 12:00 (1)" 形式
func (p Period) String() string {
	return fmt.Sprintf("%s %02d:00 (%d)", p.Day, p.Hour, p.Available)
}

// Detect 找出可用人数不超过 最低人数+1 的小时
// 结果按可用人数、权重和升序排列，最紧缺的在前
func Detect(p *state.Problem, m *availability.Matrix) []Period {
	threshold := p.MinimumEmployees + 1

	var periods []Period
	for _, day := range p.BusinessHours.OpenDays() {
		open, _ := p.BusinessHours.Open(day)
		for h := open.Start; h < open.End; h++ {
			count, weight := m.AvailableCount(day, h)
			if count <= threshold {
				periods = append(periods, Period{Day: day, Hour: h, Available: count, TotalWeight: weight})
			}
		}
	}

	sort.SliceStable(periods, func(i, j int) bool {
		if periods[i].Available != periods[j].Available {
			return periods[i].Available < periods[j].Available
		}
		return periods[i].TotalWeight < periods[j].TotalWeight
	})
	return periods
}
