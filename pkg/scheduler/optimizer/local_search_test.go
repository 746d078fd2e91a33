package optimizer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartplanning/planning/pkg/model"
	"github.com/smartplanning/planning/pkg/scheduler/allocator"
	"github.com/smartplanning/planning/pkg/scheduler/availability"
	"github.com/smartplanning/planning/pkg/scheduler/critical"
	"github.com/smartplanning/planning/pkg/scheduler/evaluator"
	"github.com/smartplanning/planning/pkg/scheduler/state"
)

func employee(role string, contract float64) *model.Employee {
	return &model.Employee{
		BaseModel:     model.BaseModel{ID: uuid.New()},
		Status:        "active",
		Role:          role,
		ContractHours: contract,
	}
}

func problem(hours model.BusinessHours, employees ...*model.Employee) *state.Problem {
	return &state.Problem{
		WeekStart:            time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		Employees:            employees,
		BusinessHours:        hours,
		Preferences:          model.PreferenceMap{},
		Vacations:            model.VacationDays{},
		MinimumEmployees:     1,
		DefaultContractHours: model.DefaultContractHours,
	}
}

func optimize(t *testing.T, p *state.Problem, s *state.State) *Report {
	t.Helper()
	o := NewLocalSearchOptimizer(nil, availability.Build(p, nil), nil)
	report, err := o.Optimize(context.Background(), s)
	require.NoError(t, err)
	return report
}

func TestOptimize_TransfersFromOverworked(t *testing.T) {
	a := employee("", 4)
	b := employee("", 4)
	p := problem(model.BusinessHours{
		model.Monday:  model.NewHourRange(9, 13),
		model.Tuesday: model.NewHourRange(9, 13),
	}, a, b)
	s := state.New(p)
	require.NoError(t, s.Add(model.Monday, a.ID, model.NewShift(9, 13, model.OriginNormal)))
	require.NoError(t, s.Add(model.Tuesday, a.ID, model.NewShift(9, 13, model.OriginNormal)))

	report := optimize(t, p, s)

	assert.Equal(t, 4.0, s.Hours(a.ID))
	assert.Equal(t, 4.0, s.Hours(b.ID))
	assert.Equal(t, 1, report.Moves[MoveTransfer])
	assert.InDelta(t, 88.0, report.InitialScore, 1e-9)
	assert.InDelta(t, 100.0, report.FinalScore, 1e-9)
}

func TestOptimize_PinnedShiftsStay(t *testing.T) {
	a := employee("", 4)
	b := employee("", 4)
	p := problem(model.BusinessHours{
		model.Monday:  model.NewHourRange(9, 13),
		model.Tuesday: model.NewHourRange(9, 13),
	}, a, b)
	s := state.New(p)
	require.NoError(t, s.Add(model.Monday, a.ID, model.NewShift(9, 13, model.OriginCritical)))
	require.NoError(t, s.Add(model.Tuesday, a.ID, model.NewShift(9, 13, model.OriginUrgent)))

	report := optimize(t, p, s)

	assert.Equal(t, 8.0, s.Hours(a.ID))
	assert.Empty(t, report.Moves)
}

func TestOptimize_PreferenceSwap(t *testing.T) {
	a := employee("", 4)
	b := employee("", 4)
	p := problem(model.BusinessHours{model.Monday: model.NewHourRange(9, 17)}, a, b)
	p.Preferences = model.PreferenceMap{
		a.ID: {model.Monday: {model.NewHourRange(13, 17)}},
		b.ID: {model.Monday: {model.NewHourRange(9, 13)}},
	}
	s := state.New(p)
	require.NoError(t, s.Add(model.Monday, a.ID, model.NewShift(9, 13, model.OriginNormal)))
	require.NoError(t, s.Add(model.Monday, b.ID, model.NewShift(13, 17, model.OriginNormal)))

	report := optimize(t, p, s)

	assert.Equal(t, 1, report.Moves[MoveSwap])
	assert.Equal(t, []model.Shift{model.NewShift(13, 17, model.OriginNormal)}, s.Shifts(model.Monday, a.ID))
	assert.Equal(t, []model.Shift{model.NewShift(9, 13, model.OriginNormal)}, s.Shifts(model.Monday, b.ID))
	assert.Equal(t, 1.0, evaluator.MatchRate(s))
}

func TestOptimize_BalancesRoles(t *testing.T) {
	cookA := employee("cook", 2)
	cookB := employee("cook", 4)
	cookC := employee("cook", 4)
	waiter := employee("waiter", 4)
	spare := employee("waiter", 4)
	p := problem(model.BusinessHours{model.Monday: model.NewHourRange(9, 13)}, cookA, cookB, cookC, waiter, spare)
	s := state.New(p)
	for _, e := range []*model.Employee{cookA, cookB, cookC, waiter} {
		require.NoError(t, s.Add(model.Monday, e.ID, model.NewShift(9, 13, model.OriginSource)))
	}

	report := optimize(t, p, s)

	assert.Equal(t, 1, report.Moves[MoveRole])
	assert.True(t, s.Working(model.Monday, spare.ID, 9))
	assert.False(t, s.Working(model.Monday, cookA.ID, 9))
	counts := allocator.RoleCounts(s, model.Monday, 10)
	assert.Equal(t, 2, counts["cook"])
	assert.Equal(t, 2, counts["waiter"])
}

func TestOptimize_RoleBalancingDisabled(t *testing.T) {
	cookA := employee("cook", 2)
	cookB := employee("cook", 4)
	cookC := employee("cook", 4)
	waiter := employee("waiter", 4)
	spare := employee("waiter", 4)
	p := problem(model.BusinessHours{model.Monday: model.NewHourRange(9, 13)}, cookA, cookB, cookC, waiter, spare)
	s := state.New(p)
	for _, e := range []*model.Employee{cookA, cookB, cookC, waiter} {
		require.NoError(t, s.Add(model.Monday, e.ID, model.NewShift(9, 13, model.OriginSource)))
	}

	cfg := DefaultOptConfig()
	cfg.BalanceRoles = false
	report, err := NewLocalSearchOptimizer(cfg, availability.Build(p, nil), nil).Optimize(context.Background(), s)
	require.NoError(t, err)
	assert.Zero(t, report.Moves[MoveRole])
	assert.False(t, s.Working(model.Monday, spare.ID, 9))
}

func TestOptimize_ScoreNeverDecreases(t *testing.T) {
	employees := []*model.Employee{
		employee("cook", 10),
		employee("cook", 20),
		employee("waiter", 8),
		employee("waiter", 35),
		employee("host", 12),
		employee("", 0),
	}
	employees[2].PreferredShifts = model.WeeklyPreferences{
		model.Monday:    {model.NewHourRange(9, 13)},
		model.Wednesday: {model.NewHourRange(14, 18)},
	}
	hours := model.BusinessHours{
		model.Monday:    model.NewHourRange(8, 20),
		model.Tuesday:   model.NewHourRange(9, 17),
		model.Wednesday: model.NewHourRange(10, 22),
		model.Saturday:  model.NewHourRange(10, 14),
	}
	p := problem(hours, employees...)
	p.MinimumEmployees = 2
	p.BalanceRoles = true
	p.Preferences = model.PreferenceMap{
		employees[0].ID: {model.Tuesday: {model.NewHourRange(9, 12)}},
		employees[4].ID: {model.Monday: {model.NewHourRange(16, 20)}},
	}

	m := availability.Build(p, nil)
	s := state.New(p)
	allocator.New(m, nil).Allocate(s, critical.Detect(p, m))

	report, err := NewLocalSearchOptimizer(nil, m, nil).Optimize(context.Background(), s)
	require.NoError(t, err)

	require.NotEmpty(t, report.ScoreHistory)
	for i := 1; i < len(report.ScoreHistory); i++ {
		assert.GreaterOrEqual(t, report.ScoreHistory[i], report.ScoreHistory[i-1]-1e-9)
	}
	assert.GreaterOrEqual(t, report.FinalScore, report.InitialScore-1e-9)
	assert.InDelta(t, evaluator.Score(s), report.FinalScore, 1e-9)

	for _, e := range employees {
		assert.InDelta(t, s.Seed(e.ID)+s.AssignedHours(e.ID), s.Hours(e.ID), 1e-9)
	}
}

func TestOptimize_Cancelled(t *testing.T) {
	a := employee("", 4)
	p := problem(model.BusinessHours{model.Monday: model.NewHourRange(9, 13)}, a)
	s := state.New(p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := NewLocalSearchOptimizer(nil, availability.Build(p, nil), nil).Optimize(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, report)
}

func TestTabuList(t *testing.T) {
	tabu := NewTabuList(2)
	tabu.Add(1)
	tabu.Add(2)
	tabu.Add(2)
	assert.Equal(t, 2, tabu.Len())

	tabu.Add(3)
	assert.False(t, tabu.Contains(1), "超出容量时移除最旧的")
	assert.True(t, tabu.Contains(2))
	assert.True(t, tabu.Contains(3))

	tabu.Clear()
	assert.Equal(t, 0, tabu.Len())
}

func TestMoveKey(t *testing.T) {
	assert.Equal(t, moveKey("a", "b"), moveKey("a", "b"))
	assert.NotEqual(t, moveKey("ab", "c"), moveKey("a", "bc"))
}
