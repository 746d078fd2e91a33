package stats

import (
	"math"
	"sort"

	"github.com/smartplanning/planning/pkg/model"
	"github.com/smartplanning/planning/pkg/scheduler/state"
)

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	// 工时公平性（按本周分配工时计算）
	WorkloadGini        float64 `json:"workload_gini"`          // 工时基尼系数 (0=完全公平, 1=完全不公平)
	WorkloadVariance    float64 `json:"workload_variance"`      // 工时方差
	WorkloadStdDev      float64 `json:"workload_std_dev"`       // 工时标准差
	AvgHoursPerEmployee float64 `json:"avg_hours_per_employee"` // 人均工时
	MaxHours            float64 `json:"max_hours"`              // 最大工时
	MinHours            float64 `json:"min_hours"`              // 最小工时
	HoursRange          float64 `json:"hours_range"`            // 工时极差

	// 班次来源分布 (%)
	OriginDistribution map[string]float64 `json:"origin_distribution"`
	WeekendShiftGini   float64            `json:"weekend_shift_gini"` // 周末班分配基尼系数

	// 员工级别统计
	EmployeeStats []EmployeeStat `json:"employee_stats"`

	// 综合评分
	OverallFairnessScore float64 `json:"overall_fairness_score"` // 综合公平性评分 (0-100)
}

// EmployeeStat 员工统计
type EmployeeStat struct {
	EmployeeID    model.EmployeeID `json:"employee_id"`
	EmployeeName  string           `json:"employee_name"`
	Role          string           `json:"role"`
	ContractHours float64          `json:"contract_hours"`
	AssignedHours float64          `json:"assigned_hours"` // 本周分配
	LedgerHours   float64          `json:"ledger_hours"`   // 含结转
	ShiftCount    int              `json:"shift_count"`
	WeekendShifts int              `json:"weekend_shifts"`
	Deviation     float64          `json:"deviation"` // 与平均值的偏差百分比
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct{}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{}
}

// Analyze 分析排班公平性
func (f *FairnessAnalyzer) Analyze(s *state.State) *FairnessMetrics {
	employees := s.Employees()
	if len(employees) == 0 {
		return &FairnessMetrics{
			OriginDistribution:   make(map[string]float64),
			OverallFairnessScore: 100,
		}
	}

	employeeStats := f.calculateEmployeeStats(s)

	hours := make([]float64, len(employeeStats))
	weekendShifts := make([]float64, len(employeeStats))
	for i, stat := range employeeStats {
		hours[i] = stat.AssignedHours
		weekendShifts[i] = float64(stat.WeekendShifts)
	}

	// 计算基本统计量
	avgHours := calculateMean(hours)
	variance := calculateVariance(hours, avgHours)
	stdDev := math.Sqrt(variance)
	maxHours, minHours := calculateRange(hours)

	// 更新员工偏差
	for i := range employeeStats {
		if avgHours > 0 {
			employeeStats[i].Deviation = (employeeStats[i].AssignedHours - avgHours) / avgHours * 100
		}
	}

	workloadGini := calculateGini(hours)
	weekendGini := calculateGini(weekendShifts)

	return &FairnessMetrics{
		WorkloadGini:         workloadGini,
		WorkloadVariance:     variance,
		WorkloadStdDev:       stdDev,
		AvgHoursPerEmployee:  avgHours,
		MaxHours:             maxHours,
		MinHours:             minHours,
		HoursRange:           maxHours - minHours,
		OriginDistribution:   f.calculateOriginDistribution(s),
		WeekendShiftGini:     weekendGini,
		EmployeeStats:        employeeStats,
		OverallFairnessScore: f.calculateOverallScore(workloadGini, weekendGini, stdDev, avgHours),
	}
}

// calculateEmployeeStats 计算员工统计数据，按工时降序
func (f *FairnessAnalyzer) calculateEmployeeStats(s *state.State) []EmployeeStat {
	p := s.Problem()
	result := make([]EmployeeStat, 0, len(s.Employees()))
	for _, e := range s.Employees() {
		stat := EmployeeStat{
			EmployeeID:    e.ID,
			EmployeeName:  e.FullName(),
			Role:          e.RoleKey(),
			ContractHours: p.Contract(e),
			AssignedHours: s.AssignedHours(e.ID),
			LedgerHours:   s.Hours(e.ID),
		}
		for _, day := range model.Weekdays {
			n := len(s.Shifts(day, e.ID))
			stat.ShiftCount += n
			if day == model.Saturday || day == model.Sunday {
				stat.WeekendShifts += n
			}
		}
		result = append(result, stat)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].AssignedHours > result[j].AssignedHours
	})
	return result
}

// calculateOriginDistribution 计算各来源班次占比
func (f *FairnessAnalyzer) calculateOriginDistribution(s *state.State) map[string]float64 {
	counts := make(map[string]int)
	total := 0
	for _, day := range model.Weekdays {
		for _, e := range s.Employees() {
			for _, sh := range s.Shifts(day, e.ID) {
				counts[sh.Origin.String()]++
				total++
			}
		}
	}

	distribution := make(map[string]float64)
	if total > 0 {
		for origin, count := range counts {
			distribution[origin] = float64(count) / float64(total) * 100
		}
	}
	return distribution
}

// calculateOverallScore 计算综合公平性评分
func (f *FairnessAnalyzer) calculateOverallScore(workloadGini, weekendGini, stdDev, avgHours float64) float64 {
	// 各项权重
	const (
		workloadWeight = 0.6
		weekendWeight  = 0.25
		stdDevWeight   = 0.15
	)

	// 基尼系数转换为分数 (0=100分, 1=0分)
	workloadScore := (1 - workloadGini) * 100
	weekendScore := (1 - weekendGini) * 100

	// 标准差评分 (变异系数越低分数越高)
	cvScore := 100.0
	if avgHours > 0 {
		cv := stdDev / avgHours
		cvScore = math.Max(0, 100-cv*200)
	}

	score := workloadWeight*workloadScore +
		weekendWeight*weekendScore +
		stdDevWeight*cvScore

	return math.Max(0, math.Min(100, score))
}

// calculateMean 计算平均值
func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// calculateVariance 计算方差
func calculateVariance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

// calculateRange 计算极值
func calculateRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// calculateGini 计算基尼系数
func calculateGini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	gini := 0.0
	for i, v := range sorted {
		gini += (2*float64(i+1) - float64(n) - 1) * v
	}

	gini = gini / (float64(n) * sum)
	return math.Max(0, math.Min(1, gini))
}
