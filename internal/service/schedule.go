// Package service 编排排班引擎与数据访问
package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/smartplanning/planning/internal/config"
	"github.com/smartplanning/planning/internal/database"
	"github.com/smartplanning/planning/internal/metrics"
	"github.com/smartplanning/planning/internal/repository"
	apperrors "github.com/smartplanning/planning/pkg/errors"
	"github.com/smartplanning/planning/pkg/logger"
	"github.com/smartplanning/planning/pkg/model"
	"github.com/smartplanning/planning/pkg/scheduler"
	"github.com/smartplanning/planning/pkg/stats"
)

// EmployeeStore 员工查询
type EmployeeStore interface {
	ListActiveByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*model.Employee, error)
}

// VacationStore 休假查询
type VacationStore interface {
	ListApprovedBetween(ctx context.Context, employeeIDs []uuid.UUID, start, end time.Time) ([]model.VacationInterval, error)
}

// ScheduleStore 周排班读写
type ScheduleStore interface {
	Upsert(ctx context.Context, db repository.DB, entries []model.WeeklySchedule) error
	ListByWeek(ctx context.Context, departmentID uuid.UUID, weekStart time.Time) ([]model.WeeklySchedule, error)
}

// Transactor 事务执行器
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx *database.Tx) error) error
}

// GenerateRequest 自动排班请求
type GenerateRequest struct {
	WeekStart        time.Time           `validate:"required"`
	DepartmentID     uuid.UUID           `validate:"required"`
	BusinessHours    model.BusinessHours `validate:"required,min=1"`
	Preferences      model.PreferenceMap
	SourceWeek       *time.Time
	MinimumEmployees *int `validate:"omitempty,min=0"`
	BalanceRoles     *bool
}

// ScheduleStats 自动排班返回的统计
type ScheduleStats struct {
	TotalHours          map[model.EmployeeID]float64 `json:"total_hours"`
	PreferenceMatchRate float64                      `json:"preference_match_rate"`
	OverworkedEmployees []stats.OverworkedEmployee   `json:"overworked_employees"`
	AverageWeeklyHours  float64                      `json:"average_weekly_hours"`
	UncoveredHours      []stats.UnderstaffedPeriod   `json:"uncovered_hours"`
	Score               float64                      `json:"score"`
	Iterations          int                          `json:"iterations"`
}

// GenerateResult 自动排班结果
type GenerateResult struct {
	DepartmentID uuid.UUID              `json:"department_id"`
	WeekStart    string                 `json:"week_start"`
	WeekEnd      string                 `json:"week_end"`
	Schedule     []model.WeeklySchedule `json:"schedule"`
	Stats        ScheduleStats          `json:"stats"`
	RunID        string                 `json:"run_id"`
}

// AutoScheduleService 自动排班服务
type AutoScheduleService struct {
	employees EmployeeStore
	vacations VacationStore
	schedules ScheduleStore
	tx        Transactor

	engine   *scheduler.Engine
	cfg      config.SchedulerConfig
	slots    *semaphore.Weighted
	validate *validator.Validate
}

// NewAutoScheduleService 创建自动排班服务
func NewAutoScheduleService(
	employees EmployeeStore,
	vacations VacationStore,
	schedules ScheduleStore,
	tx Transactor,
	cfg config.SchedulerConfig,
) *AutoScheduleService {
	if cfg.MaxConcurrentRuns <= 0 {
		cfg.MaxConcurrentRuns = 1
	}
	engine := scheduler.NewEngine(scheduler.Config{
		MaxIterations:        cfg.MaxIterations,
		DefaultContractHours: cfg.DefaultContractHours,
	}, logger.NewSchedulerLogger())

	return &AutoScheduleService{
		employees: employees,
		vacations: vacations,
		schedules: schedules,
		tx:        tx,
		engine:    engine,
		cfg:       cfg,
		slots:     semaphore.NewWeighted(int64(cfg.MaxConcurrentRuns)),
		validate:  validator.New(),
	}
}

// GenerateWeeklySchedule 为部门生成并保存一周排班
func (s *AutoScheduleService) GenerateWeeklySchedule(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	if s.cfg.DefaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.DefaultTimeout)
		defer cancel()
	}

	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, contextError(err, "等待排班执行槽位超时")
	}
	defer s.slots.Release(1)

	metrics.RunStarted()
	defer metrics.RunFinished()

	start := time.Now()
	result, err := s.generate(ctx, req)
	metrics.RecordScheduleGeneration(err == nil, time.Since(start))
	if err != nil {
		logger.WithContext(ctx).Error().Err(err).
			Str("department_id", req.DepartmentID.String()).
			Msg("自动排班失败")
		return nil, err
	}
	return result, nil
}

func (s *AutoScheduleService) generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	log := logger.WithContext(ctx)
	weekStart := model.WeekMonday(req.WeekStart)
	weekEnd := model.WeekEnd(weekStart)

	employees, err := s.employees.ListActiveByDepartment(ctx, req.DepartmentID)
	if err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return nil, apperrors.NoActiveEmployees().WithField("department_id", req.DepartmentID.String())
	}

	ids := make([]uuid.UUID, len(employees))
	for i, emp := range employees {
		ids[i] = emp.ID
	}
	vacations, err := s.vacations.ListApprovedBetween(ctx, ids, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}

	var initial model.ScheduleData
	if req.SourceWeek != nil {
		initial, err = s.cloneWeek(ctx, req.DepartmentID, *req.SourceWeek, weekStart, employees, vacations)
		if err != nil {
			return nil, err
		}
	}

	minimum := s.cfg.MinimumEmployees
	if req.MinimumEmployees != nil {
		minimum = *req.MinimumEmployees
	}
	balanceRoles := s.cfg.BalanceRoles
	if req.BalanceRoles != nil {
		balanceRoles = *req.BalanceRoles
	}

	run, err := s.engine.Run(ctx, scheduler.Input{
		Employees:        employees,
		WeekStart:        weekStart,
		BusinessHours:    req.BusinessHours,
		Vacations:        vacations,
		Preferences:      req.Preferences,
		MinimumEmployees: minimum,
		BalanceRoles:     balanceRoles,
		InitialSchedule:  initial,
	})
	if err != nil {
		return nil, err
	}
	for _, w := range run.Warnings {
		log.Warn().Str("employee_id", w.EmployeeID.String()).Str("day", string(w.Day)).Msg(w.Message)
	}

	if err := s.tx.Transaction(ctx, func(tx *database.Tx) error {
		return s.schedules.Upsert(ctx, tx, run.Schedule)
	}); err != nil {
		return nil, err
	}

	result := &GenerateResult{
		DepartmentID: req.DepartmentID,
		WeekStart:    run.WeekStart,
		WeekEnd:      run.WeekEnd,
		Schedule:     run.Schedule,
		Stats:        NewScheduleStats(run),
		RunID:        run.RunID,
	}

	quality := metrics.ScheduleQuality{
		Score:      run.Score,
		MatchRate:  run.Stats.PreferenceMatchRate,
		Iterations: run.Iterations,
	}
	if run.Stats.Coverage != nil {
		quality.UncoveredHours = run.Stats.Coverage.UncoveredHours
	}
	if run.Stats.Fairness != nil {
		quality.WorkloadGini = run.Stats.Fairness.WorkloadGini
	}
	metrics.RecordScheduleQuality(req.DepartmentID.String(), quality)

	log.Info().
		Str("department_id", req.DepartmentID.String()).
		Str("week_start", run.WeekStart).
		Int("employees", len(run.Schedule)).
		Float64("score", run.Score).
		Msg("自动排班完成")
	return result, nil
}

// cloneWeek 读取源周排班作为预置班次，休假日的班次不复制
func (s *AutoScheduleService) cloneWeek(
	ctx context.Context,
	departmentID uuid.UUID,
	sourceWeek, weekStart time.Time,
	employees []*model.Employee,
	vacations []model.VacationInterval,
) (model.ScheduleData, error) {
	stored, err := s.schedules.ListByWeek(ctx, departmentID, model.WeekMonday(sourceWeek))
	if err != nil {
		return nil, err
	}
	days, err := model.ExpandVacations(vacations)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "休假数据无效")
	}

	active := make(map[model.EmployeeID]bool, len(employees))
	for _, emp := range employees {
		active[emp.ID] = true
	}

	initial := make(model.ScheduleData)
	for _, ws := range stored {
		if !active[ws.EmployeeID] {
			continue
		}
		for day, shifts := range ws.ScheduleData {
			if !day.Valid() || len(shifts) == 0 {
				continue
			}
			if days.OnVacation(ws.EmployeeID, day.DateIn(weekStart)) {
				continue
			}
			if initial[day] == nil {
				initial[day] = make(model.DaySchedule)
			}
			for _, sh := range shifts {
				initial[day][ws.EmployeeID] = append(initial[day][ws.EmployeeID], model.NewShift(sh.Start, sh.End, model.OriginSource))
			}
		}
	}
	return initial, nil
}

// GetWeeklySchedule 查询部门已保存的周排班
func (s *AutoScheduleService) GetWeeklySchedule(ctx context.Context, departmentID uuid.UUID, weekStart time.Time) ([]model.WeeklySchedule, error) {
	return s.schedules.ListByWeek(ctx, departmentID, model.WeekMonday(weekStart))
}

// GenerateBatch 并发为多个部门生成排班，任一失败即取消其余
func (s *AutoScheduleService) GenerateBatch(ctx context.Context, reqs []GenerateRequest) ([]*GenerateResult, error) {
	results := make([]*GenerateResult, len(reqs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrentRuns)
	for i := range reqs {
		g.Go(func() error {
			res, err := s.GenerateWeeklySchedule(gCtx, reqs[i])
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *AutoScheduleService) validateRequest(req GenerateRequest) error {
	if err := s.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return apperrors.InvalidInput(fe.Field(), fe.Tag())
		}
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "请求参数无效")
	}
	return nil
}

// NewScheduleStats 从引擎结果提取返回给调用方的统计
func NewScheduleStats(run *scheduler.Result) ScheduleStats {
	return ScheduleStats{
		TotalHours:          run.Stats.TotalHoursByEmployee,
		PreferenceMatchRate: run.Stats.PreferenceMatchRate,
		OverworkedEmployees: run.Stats.OverworkedEmployees,
		AverageWeeklyHours:  run.Stats.AverageWeeklyHours,
		UncoveredHours:      run.Stats.UncoveredHours,
		Score:               run.Score,
		Iterations:          run.Iterations,
	}
}

// contextError 将上下文错误映射为超时或内部错误
func contextError(err error, message string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(err, apperrors.CodeTimeout, message)
	}
	return apperrors.Internal(err, message)
}
