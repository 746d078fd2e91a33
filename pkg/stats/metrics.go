package stats

import (
	"sort"

	"github.com/smartplanning/planning/pkg/model"
	"github.com/smartplanning/planning/pkg/scheduler/evaluator"
	"github.com/smartplanning/planning/pkg/scheduler/state"
)

// OverworkedEmployee 台账超出合同工时的员工
type OverworkedEmployee struct {
	EmployeeID    model.EmployeeID `json:"employee_id"`
	Name          string           `json:"name"`
	ContractHours float64          `json:"contract_hours"`
	AssignedHours float64          `json:"assigned_hours"`
	Difference    float64          `json:"difference"`
}

// Metrics 排班结果统计
type Metrics struct {
	TotalHoursByEmployee map[model.EmployeeID]float64 `json:"total_hours_by_employee"`
	PreferenceMatchRate  float64                      `json:"preference_match_rate"`
	OverworkedEmployees  []OverworkedEmployee         `json:"overworked_employees"`
	AverageWeeklyHours   float64                      `json:"average_weekly_hours"`
	UncoveredHours       []UnderstaffedPeriod         `json:"uncovered_hours"`
	Score                float64                      `json:"score"`

	Coverage *CoverageMetrics `json:"coverage,omitempty"`
	Fairness *FairnessMetrics `json:"fairness,omitempty"`
}

// MetricsCalculator 汇总最终排班的统计数据，只读
type MetricsCalculator struct {
	coverage *CoverageAnalyzer
	fairness *FairnessAnalyzer
}

// NewMetricsCalculator 创建统计计算器
func NewMetricsCalculator() *MetricsCalculator {
	return &MetricsCalculator{
		coverage: NewCoverageAnalyzer(),
		fairness: NewFairnessAnalyzer(),
	}
}

// Calculate 计算偏好满足率、超时员工及覆盖/公平性指标
func (m *MetricsCalculator) Calculate(s *state.State) *Metrics {
	p := s.Problem()
	coverage := m.coverage.Analyze(s)

	metrics := &Metrics{
		TotalHoursByEmployee: s.Ledger(),
		PreferenceMatchRate:  evaluator.MatchRate(s),
		OverworkedEmployees:  []OverworkedEmployee{},
		UncoveredHours:       coverage.Understaffed,
		Score:                evaluator.Round2(evaluator.Score(s)),
		Coverage:             coverage,
		Fairness:             m.fairness.Analyze(s),
	}

	total := 0.0
	for _, e := range s.Employees() {
		hours := s.Hours(e.ID)
		total += hours
		contract := p.Contract(e)
		if hours > contract {
			metrics.OverworkedEmployees = append(metrics.OverworkedEmployees, OverworkedEmployee{
				EmployeeID:    e.ID,
				Name:          e.FullName(),
				ContractHours: contract,
				AssignedHours: hours,
				Difference:    evaluator.Round2(hours - contract),
			})
		}
	}
	if n := len(s.Employees()); n > 0 {
		metrics.AverageWeeklyHours = evaluator.Round2(total / float64(n))
	}

	sort.SliceStable(metrics.OverworkedEmployees, func(i, j int) bool {
		return metrics.OverworkedEmployees[i].Difference > metrics.OverworkedEmployees[j].Difference
	})
	if metrics.UncoveredHours == nil {
		metrics.UncoveredHours = []UnderstaffedPeriod{}
	}
	return metrics
}
