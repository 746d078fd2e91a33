package validator

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/smartplanning/planning/pkg/model"
)

func newContext(t *testing.T, vacations ...model.VacationInterval) *Context {
	t.Helper()
	days, err := model.ExpandVacations(vacations)
	if err != nil {
		t.Fatalf("展开休假失败: %v", err)
	}
	hours := model.BusinessHours{}
	for _, d := range model.Weekdays {
		hours[d] = model.NewHourRange(8, 22)
	}
	return &Context{
		WeekStart:     time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		BusinessHours: hours,
		Vacations:     days,
	}
}

func countType(conflicts []Conflict, t ConflictType) int {
	n := 0
	for _, c := range conflicts {
		if c.Type == t {
			n++
		}
	}
	return n
}

func TestConflictDetector_DetectAll(t *testing.T) {
	detector := NewConflictDetector(DefaultDetectorConfig())
	emp1 := uuid.New()

	data := model.ScheduleData{
		model.Monday:  {emp1: {model.NewShift(9, 17, model.OriginNormal)}},
		model.Tuesday: {emp1: {model.NewShift(9, 17, model.OriginNormal)}},
	}

	conflicts := detector.DetectAll(data, newContext(t))

	if len(conflicts) != 0 {
		t.Errorf("Expected no conflicts, got %d: %v", len(conflicts), conflicts)
	}
}

func TestConflictDetector_Overlap(t *testing.T) {
	detector := NewConflictDetector(nil)
	emp1 := uuid.New()

	data := model.ScheduleData{
		model.Monday: {emp1: {
			model.NewShift(12, 15, model.OriginNormal),
			model.NewShift(9, 13, model.OriginNormal),
		}},
	}

	conflicts := detector.DetectAll(data, newContext(t))

	if countType(conflicts, ConflictOverlap) != 1 {
		t.Errorf("Expected 1 overlap conflict, got %v", conflicts)
	}
	if !HasErrors(conflicts) {
		t.Error("Overlap should be an error")
	}
	if conflicts[0].Date != "2026-01-05" {
		t.Errorf("Expected date 2026-01-05, got %s", conflicts[0].Date)
	}
}

func TestConflictDetector_OutsideHoursAndInvalid(t *testing.T) {
	detector := NewConflictDetector(nil)
	emp1 := uuid.New()
	ctx := newContext(t)
	delete(ctx.BusinessHours, model.Sunday)

	data := model.ScheduleData{
		model.Monday: {emp1: {
			model.NewShift(6, 10, model.OriginNormal),
			model.NewShift(12, 12, model.OriginNormal),
		}},
		model.Sunday: {emp1: {model.NewShift(10, 12, model.OriginNormal)}},
	}

	conflicts := detector.DetectAll(data, ctx)

	if countType(conflicts, ConflictOutsideHours) != 2 {
		t.Errorf("Expected 2 outside-hours conflicts, got %v", conflicts)
	}
	if countType(conflicts, ConflictInvalid) != 1 {
		t.Errorf("Expected 1 invalid conflict, got %v", conflicts)
	}
}

func TestConflictDetector_Vacation(t *testing.T) {
	detector := NewConflictDetector(nil)
	emp1 := uuid.New()
	ctx := newContext(t, model.VacationInterval{EmployeeID: emp1, StartDate: "2026-01-06", EndDate: "2026-01-07"})

	data := model.ScheduleData{
		model.Monday:    {emp1: {model.NewShift(9, 12, model.OriginNormal)}},
		model.Wednesday: {emp1: {model.NewShift(9, 12, model.OriginNormal)}},
	}

	conflicts := detector.DetectAll(data, ctx)

	if countType(conflicts, ConflictVacation) != 1 {
		t.Fatalf("Expected 1 vacation conflict, got %v", conflicts)
	}
	if errs := Errors(conflicts); len(errs) != 1 || errs[0].Day != model.Wednesday {
		t.Errorf("Unexpected errors: %v", errs)
	}
}

func TestConflictDetector_Warnings(t *testing.T) {
	cfg := DefaultDetectorConfig()
	cfg.MinRestHours = 12
	detector := NewConflictDetector(cfg)
	emp1 := uuid.New()

	data := model.ScheduleData{}
	for _, d := range model.Weekdays {
		data[d] = model.DaySchedule{emp1: {model.NewShift(10, 14, model.OriginNormal)}}
	}
	data[model.Monday][emp1] = []model.Shift{model.NewShift(10, 22, model.OriginNormal)}
	data[model.Tuesday][emp1] = []model.Shift{model.NewShift(8, 12, model.OriginNormal)}

	conflicts := detector.DetectAll(data, newContext(t))

	if HasErrors(conflicts) {
		t.Errorf("Expected warnings only, got %v", Errors(conflicts))
	}
	if countType(conflicts, ConflictMaxHours) != 1 {
		t.Errorf("Expected 1 max-hours warning, got %v", conflicts)
	}
	if countType(conflicts, ConflictRestTime) != 1 {
		t.Errorf("Expected 1 rest-time warning, got %v", conflicts)
	}
	if countType(conflicts, ConflictConsecutive) != 1 {
		t.Errorf("Expected 1 consecutive-days warning, got %v", conflicts)
	}
}
