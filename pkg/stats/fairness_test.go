package stats

import (
	"math"
	"testing"

	"github.com/smartplanning/planning/pkg/model"
)

func TestFairnessAnalyzer_Analyze(t *testing.T) {
	a := newEmployee("员工1", 10)
	b := newEmployee("员工2", 10)
	s := newState(t, 1, a, b)
	mustAdd(t, s, model.Monday, a.ID, 9, 13)
	mustAdd(t, s, model.Saturday, b.ID, 10, 12)

	metrics := NewFairnessAnalyzer().Analyze(s)

	if metrics.AvgHoursPerEmployee != 3 {
		t.Errorf("Expected avg 3 hours, got %.2f", metrics.AvgHoursPerEmployee)
	}
	if metrics.HoursRange != 2 {
		t.Errorf("Expected range 2, got %.2f", metrics.HoursRange)
	}
	if len(metrics.EmployeeStats) != 2 {
		t.Fatalf("Expected 2 employee stats, got %d", len(metrics.EmployeeStats))
	}
	if metrics.EmployeeStats[0].EmployeeID != a.ID {
		t.Error("Employee stats should be sorted by hours desc")
	}
	if metrics.EmployeeStats[1].WeekendShifts != 1 {
		t.Errorf("Expected 1 weekend shift, got %d", metrics.EmployeeStats[1].WeekendShifts)
	}
	if metrics.OriginDistribution["normal"] != 100 {
		t.Errorf("Expected all shifts normal, got %v", metrics.OriginDistribution)
	}
}

func TestFairnessAnalyzer_Empty(t *testing.T) {
	s := newState(t, 1)
	metrics := NewFairnessAnalyzer().Analyze(s)

	if metrics.OverallFairnessScore != 100 {
		t.Errorf("Expected score 100 for empty schedule, got %.1f", metrics.OverallFairnessScore)
	}
}

func TestCalculateGini(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"完全公平", []float64{8, 8, 8, 8}, 0},
		{"全为零", []float64{0, 0}, 0},
		{"完全集中", []float64{0, 0, 0, 12}, 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calculateGini(tt.values); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("calculateGini() = %.4f, expected %.4f", got, tt.expected)
			}
		})
	}
}
