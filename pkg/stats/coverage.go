// Package stats 提供排班统计分析功能
package stats

import (
	"fmt"
	"strings"

	"github.com/smartplanning/planning/pkg/model"
	"github.com/smartplanning/planning/pkg/scheduler/state"
)

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	// 整体覆盖率
	OpenHours       int     `json:"open_hours"`       // 营业小时数
	CoveredHours    int     `json:"covered_hours"`    // 达到最低人数的小时数
	OverallCoverage float64 `json:"overall_coverage"` // 整体覆盖率 (%)

	// 按星期统计
	DailyCoverage map[model.Weekday]DayCoverage `json:"daily_coverage"`

	// 按时段统计：各小时平均在岗人数 (0-23)
	HourlyCoverage map[int]float64 `json:"hourly_coverage"`

	// 人力需求满足度 (%)
	DemandSatisfaction float64 `json:"demand_satisfaction"`

	// 问题识别
	Understaffed   []UnderstaffedPeriod `json:"understaffed"`    // 人手不足时段
	UncoveredHours int                  `json:"uncovered_hours"` // 缺口人·小时
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Day          model.Weekday `json:"day"`
	Date         string        `json:"date"`
	OpenHours    int           `json:"open_hours"`
	CoveredHours int           `json:"covered_hours"`
	CoverageRate float64       `json:"coverage_rate"`
	StaffCount   int           `json:"staff_count"`
	TotalHours   float64       `json:"total_hours"`
}

// UnderstaffedPeriod 人手不足时段（相邻且缺口相同的小时合并）
type UnderstaffedPeriod struct {
	Day       model.Weekday `json:"day"`
	Date      string        `json:"date"`
	StartHour int           `json:"start_hour"`
	EndHour   int           `json:"end_hour"`
	Required  int           `json:"required"`
	Assigned  int           `json:"assigned"`
	Shortage  int           `json:"shortage"`
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct{}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer() *CoverageAnalyzer {
	return &CoverageAnalyzer{}
}

// Analyze 分析覆盖率
func (c *CoverageAnalyzer) Analyze(s *state.State) *CoverageMetrics {
	p := s.Problem()
	required := p.MinimumEmployees

	metrics := &CoverageMetrics{
		DailyCoverage:  make(map[model.Weekday]DayCoverage),
		HourlyCoverage: make(map[int]float64),
	}

	hourTotals := make(map[int]int)
	hourDays := make(map[int]int)
	demand, satisfied := 0, 0

	for _, day := range p.BusinessHours.OpenDays() {
		open, _ := p.BusinessHours.Open(day)
		dc := DayCoverage{
			Day:       day,
			Date:      model.FormatDate(p.Date(day)),
			OpenHours: open.Duration(),
		}

		for _, e := range s.Employees() {
			shifts := s.Shifts(day, e.ID)
			if len(shifts) == 0 {
				continue
			}
			dc.StaffCount++
			for _, sh := range shifts {
				dc.TotalHours += sh.Duration()
			}
		}

		var current *UnderstaffedPeriod
		for h := open.Start; h < open.End; h++ {
			assigned := s.Staffing(day, h)
			hourTotals[h] += assigned
			hourDays[h]++
			demand += required
			satisfied += min(assigned, required)

			if assigned >= required {
				dc.CoveredHours++
				current = nil
				continue
			}

			shortage := required - assigned
			metrics.UncoveredHours += shortage
			if current != nil && current.Assigned == assigned && current.EndHour == h {
				current.EndHour = h + 1
				continue
			}
			metrics.Understaffed = append(metrics.Understaffed, UnderstaffedPeriod{
				Day:       day,
				Date:      dc.Date,
				StartHour: h,
				EndHour:   h + 1,
				Required:  required,
				Assigned:  assigned,
				Shortage:  shortage,
			})
			current = &metrics.Understaffed[len(metrics.Understaffed)-1]
		}

		if dc.OpenHours > 0 {
			dc.CoverageRate = float64(dc.CoveredHours) / float64(dc.OpenHours) * 100
		}
		metrics.DailyCoverage[day] = dc
		metrics.OpenHours += dc.OpenHours
		metrics.CoveredHours += dc.CoveredHours
	}

	for h, total := range hourTotals {
		metrics.HourlyCoverage[h] = float64(total) / float64(hourDays[h])
	}
	if metrics.OpenHours > 0 {
		metrics.OverallCoverage = float64(metrics.CoveredHours) / float64(metrics.OpenHours) * 100
	}
	metrics.DemandSatisfaction = 100
	if demand > 0 {
		metrics.DemandSatisfaction = float64(satisfied) / float64(demand) * 100
	}
	return metrics
}

// GenerateCoverageReport 生成覆盖率报告
func (c *CoverageAnalyzer) GenerateCoverageReport(metrics *CoverageMetrics) string {
	var b strings.Builder
	b.WriteString("=== 覆盖率分析报告 ===\n\n")

	b.WriteString("【整体覆盖情况】\n")
	fmt.Fprintf(&b, "  营业小时数: %d\n", metrics.OpenHours)
	fmt.Fprintf(&b, "  达标小时数: %d\n", metrics.CoveredHours)
	fmt.Fprintf(&b, "  覆盖率: %.1f%%\n", metrics.OverallCoverage)
	fmt.Fprintf(&b, "  需求满足度: %.1f%%\n\n", metrics.DemandSatisfaction)

	if len(metrics.Understaffed) > 0 {
		b.WriteString("【人手不足时段】\n")
		for _, period := range metrics.Understaffed {
			fmt.Fprintf(&b, "  - %s %d:00-%d:00 (需要%d人，仅有%d人，缺%d人)\n",
				period.Day, period.StartHour, period.EndHour, period.Required, period.Assigned, period.Shortage)
		}
	}

	return b.String()
}
