package stats

import (
	"strings"
	"testing"

	"github.com/smartplanning/planning/pkg/model"
)

func TestCoverageAnalyzer_Analyze(t *testing.T) {
	a := newEmployee("员工1", 10)
	s := newState(t, 1, a)
	mustAdd(t, s, model.Monday, a.ID, 9, 11)

	metrics := NewCoverageAnalyzer().Analyze(s)

	if metrics == nil {
		t.Fatal("Metrics should not be nil")
	}
	// 营业 6 小时，达标 2 小时
	if metrics.OpenHours != 6 || metrics.CoveredHours != 2 {
		t.Errorf("Expected 2/6 covered, got %d/%d", metrics.CoveredHours, metrics.OpenHours)
	}
	if metrics.UncoveredHours != 4 {
		t.Errorf("Expected 4 uncovered hours, got %d", metrics.UncoveredHours)
	}

	// 周一 11-13 合并为一段，周六 10-12 一段
	if len(metrics.Understaffed) != 2 {
		t.Fatalf("Expected 2 understaffed periods, got %d", len(metrics.Understaffed))
	}
	first := metrics.Understaffed[0]
	if first.Day != model.Monday || first.StartHour != 11 || first.EndHour != 13 || first.Shortage != 1 {
		t.Errorf("Unexpected period: %+v", first)
	}
	if first.Date != "2026-01-05" {
		t.Errorf("Expected date 2026-01-05, got %s", first.Date)
	}

	monday := metrics.DailyCoverage[model.Monday]
	if monday.CoverageRate != 50 || monday.StaffCount != 1 || monday.TotalHours != 2 {
		t.Errorf("Unexpected Monday coverage: %+v", monday)
	}
}

func TestCoverageAnalyzer_FullCoverage(t *testing.T) {
	a := newEmployee("员工1", 10)
	s := newState(t, 1, a)
	mustAdd(t, s, model.Monday, a.ID, 9, 13)
	mustAdd(t, s, model.Saturday, a.ID, 10, 12)

	metrics := NewCoverageAnalyzer().Analyze(s)

	if metrics.OverallCoverage != 100 {
		t.Errorf("Expected 100%% coverage, got %.1f%%", metrics.OverallCoverage)
	}
	if metrics.DemandSatisfaction != 100 {
		t.Errorf("Expected 100%% demand satisfaction, got %.1f%%", metrics.DemandSatisfaction)
	}
	if len(metrics.Understaffed) != 0 {
		t.Errorf("Expected no understaffed periods, got %d", len(metrics.Understaffed))
	}
}

func TestCoverageAnalyzer_SplitsByShortage(t *testing.T) {
	a := newEmployee("员工1", 10)
	s := newState(t, 2, a)
	mustAdd(t, s, model.Monday, a.ID, 10, 12)

	metrics := NewCoverageAnalyzer().Analyze(s)

	// 9 缺 2，10-12 缺 1，12 缺 2
	var monday []UnderstaffedPeriod
	for _, p := range metrics.Understaffed {
		if p.Day == model.Monday {
			monday = append(monday, p)
		}
	}
	if len(monday) != 3 {
		t.Fatalf("Expected 3 Monday periods, got %d", len(monday))
	}
	if monday[1].StartHour != 10 || monday[1].EndHour != 12 || monday[1].Shortage != 1 {
		t.Errorf("Unexpected middle period: %+v", monday[1])
	}
	if metrics.HourlyCoverage[10] != 0.5 {
		t.Errorf("Expected hourly coverage 0.5 at 10:00, got %.2f", metrics.HourlyCoverage[10])
	}
}

func TestCoverageAnalyzer_Report(t *testing.T) {
	a := newEmployee("员工1", 10)
	s := newState(t, 1, a)
	analyzer := NewCoverageAnalyzer()

	report := analyzer.GenerateCoverageReport(analyzer.Analyze(s))

	if !strings.Contains(report, "Monday 9:00-13:00") {
		t.Errorf("Report should list understaffed Monday period:\n%s", report)
	}
	if !strings.Contains(report, "覆盖率: 0.0%") {
		t.Errorf("Report should show zero coverage:\n%s", report)
	}
}
