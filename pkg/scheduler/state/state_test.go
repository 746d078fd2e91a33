package state

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartplanning/planning/pkg/model"
)

func newEmployee(balance float64) *model.Employee {
	return &model.Employee{
		BaseModel:     model.BaseModel{ID: uuid.New()},
		Status:        "active",
		ContractHours: 35,
		HourBalance:   balance,
	}
}

func newState(t *testing.T, employees ...*model.Employee) *State {
	t.Helper()
	return New(&Problem{
		WeekStart:     time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		Employees:     employees,
		BusinessHours: model.BusinessHours{model.Monday: model.NewHourRange(9, 17)},
	})
}

func TestState_AddRejectsOverlap(t *testing.T) {
	e := newEmployee(0)
	s := newState(t, e)

	require.NoError(t, s.Add(model.Monday, e.ID, model.NewShift(9, 12, model.OriginNormal)))
	err := s.Add(model.Monday, e.ID, model.NewShift(11, 14, model.OriginNormal))
	assert.ErrorIs(t, err, ErrOverlap)

	// 首尾相接不算重叠
	require.NoError(t, s.Add(model.Monday, e.ID, model.NewShift(12, 14, model.OriginNormal)))
	assert.Len(t, s.Shifts(model.Monday, e.ID), 2)
	assert.Equal(t, 5.0, s.Hours(e.ID))
}

func TestState_AddInvalid(t *testing.T) {
	e := newEmployee(0)
	s := newState(t, e)

	assert.ErrorIs(t, s.Add(model.Monday, e.ID, model.NewShift(12, 12, model.OriginNormal)), ErrInvalidShift)
	assert.ErrorIs(t, s.Add(model.Monday, uuid.New(), model.NewShift(9, 10, model.OriginNormal)), ErrUnknownEmployee)
}

func TestState_LedgerTracksMutations(t *testing.T) {
	a := newEmployee(4)
	b := newEmployee(-2)
	s := newState(t, a, b)

	require.NoError(t, s.Add(model.Monday, a.ID, model.NewShift(9, 13, model.OriginNormal)))
	require.NoError(t, s.Add(model.Monday, b.ID, model.NewShift(13, 17, model.OriginNormal)))

	require.NoError(t, s.Transfer(model.Monday, a.ID, 9, b.ID))
	assert.ErrorIs(t, s.Transfer(model.Monday, b.ID, 13, b.ID), ErrOverlap)
	require.NoError(t, s.Resize(model.Monday, b.ID, 13, 15))

	for _, e := range []*model.Employee{a, b} {
		assert.InDelta(t, s.Seed(e.ID)+s.AssignedHours(e.ID), s.Hours(e.ID), 1e-9)
	}
	assert.Equal(t, 4.0, s.Hours(a.ID))
	assert.Equal(t, 4.0, s.Hours(b.ID))
}

func TestState_TransferOverlapOnEmptyTarget(t *testing.T) {
	a := newEmployee(0)
	b := newEmployee(0)
	s := newState(t, a, b)

	require.NoError(t, s.Add(model.Monday, a.ID, model.NewShift(9, 13, model.OriginNormal)))
	require.NoError(t, s.Add(model.Monday, b.ID, model.NewShift(10, 11, model.OriginNormal)))
	assert.ErrorIs(t, s.Transfer(model.Monday, a.ID, 9, b.ID), ErrOverlap)
	assert.Equal(t, 4.0, s.Hours(a.ID))
}

func TestState_Swap(t *testing.T) {
	a := newEmployee(0)
	b := newEmployee(0)
	s := newState(t, a, b)

	require.NoError(t, s.Add(model.Monday, a.ID, model.NewShift(9, 13, model.OriginPreferred)))
	require.NoError(t, s.Add(model.Monday, b.ID, model.NewShift(13, 15, model.OriginNormal)))
	require.NoError(t, s.Swap(model.Monday, a.ID, 9, b.ID, 13))

	assert.Equal(t, []model.Shift{model.NewShift(13, 15, model.OriginNormal)}, s.Shifts(model.Monday, a.ID))
	assert.Equal(t, []model.Shift{model.NewShift(9, 13, model.OriginPreferred)}, s.Shifts(model.Monday, b.ID))
	assert.Equal(t, 2.0, s.Hours(a.ID))
	assert.Equal(t, 4.0, s.Hours(b.ID))
}

func TestState_StaffingAndFreeGap(t *testing.T) {
	a := newEmployee(0)
	b := newEmployee(0)
	s := newState(t, a, b)

	require.NoError(t, s.Add(model.Monday, a.ID, model.NewShift(9, 11, model.OriginNormal)))
	require.NoError(t, s.Add(model.Monday, a.ID, model.NewShift(14, 17, model.OriginNormal)))
	require.NoError(t, s.Add(model.Monday, b.ID, model.NewShift(10, 12, model.OriginNormal)))

	assert.Equal(t, 1, s.Staffing(model.Monday, 9))
	assert.Equal(t, 2, s.Staffing(model.Monday, 10))
	assert.Equal(t, 0, s.Staffing(model.Monday, 12))
	assert.Len(t, s.WorkingAt(model.Monday, 10), 2)

	gap, ok := s.FreeGap(model.Monday, a.ID, 12)
	require.True(t, ok)
	assert.Equal(t, model.NewHourRange(11, 14), gap)

	_, ok = s.FreeGap(model.Monday, a.ID, 9)
	assert.False(t, ok, "在岗时没有空闲区间")
	_, ok = s.FreeGap(model.Tuesday, a.ID, 10)
	assert.False(t, ok, "休息日没有空闲区间")
}

func TestState_SnapshotRestore(t *testing.T) {
	e := newEmployee(1)
	s := newState(t, e)
	require.NoError(t, s.Add(model.Monday, e.ID, model.NewShift(9, 13, model.OriginNormal)))

	snap := s.Snapshot()
	require.NoError(t, s.Resize(model.Monday, e.ID, 9, 10))
	_, err := s.Remove(model.Monday, e.ID, 9)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.Hours(e.ID))

	s.Restore(snap)
	assert.Equal(t, 5.0, s.Hours(e.ID))
	assert.Equal(t, []model.Shift{model.NewShift(9, 13, model.OriginNormal)}, s.Shifts(model.Monday, e.ID))
}

func TestState_DataIsCopy(t *testing.T) {
	e := newEmployee(0)
	s := newState(t, e)
	require.NoError(t, s.Add(model.Monday, e.ID, model.NewShift(9, 13, model.OriginNormal)))

	data := s.Data()
	data[model.Monday][e.ID][0].End = 17
	assert.Equal(t, 13, s.Shifts(model.Monday, e.ID)[0].End)
}
