// Package scheduler 周排班启发式优化引擎
//
// 一次运行依次经过：可用度建模、紧缺时段检测、初始分配、局部搜索优化、
// 覆盖兜底与工时均衡，最后校验结果并计算统计数据。
// 排班状态由 Run 独占，各阶段通过 *state.State 修改。
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/smartplanning/planning/pkg/errors"
	"github.com/smartplanning/planning/pkg/logger"
	"github.com/smartplanning/planning/pkg/model"
	"github.com/smartplanning/planning/pkg/scheduler/allocator"
	"github.com/smartplanning/planning/pkg/scheduler/availability"
	"github.com/smartplanning/planning/pkg/scheduler/balancer"
	"github.com/smartplanning/planning/pkg/scheduler/coverage"
	"github.com/smartplanning/planning/pkg/scheduler/critical"
	"github.com/smartplanning/planning/pkg/scheduler/evaluator"
	"github.com/smartplanning/planning/pkg/scheduler/optimizer"
	"github.com/smartplanning/planning/pkg/scheduler/state"
	"github.com/smartplanning/planning/pkg/stats"
	"github.com/smartplanning/planning/pkg/validator"
)

// Config 引擎配置
type Config struct {
	MaxIterations        int     `json:"max_iterations" yaml:"max_iterations"`
	TabuSize             int     `json:"tabu_size" yaml:"tabu_size"`
	DefaultContractHours float64 `json:"default_contract_hours" yaml:"default_contract_hours"`
}

// DefaultConfig 返回默认引擎配置
func DefaultConfig() Config {
	opt := optimizer.DefaultOptConfig()
	return Config{
		MaxIterations:        opt.MaxIterations,
		TabuSize:             opt.TabuSize,
		DefaultContractHours: model.DefaultContractHours,
	}
}

// Input 单次排班的输入
type Input struct {
	Employees        []*model.Employee
	WeekStart        time.Time
	BusinessHours    model.BusinessHours
	Vacations        []model.VacationInterval
	Preferences      model.PreferenceMap
	MinimumEmployees int
	BalanceRoles     bool

	// InitialSchedule 预置班次（如复制的历史周），以 source 来源写入
	InitialSchedule model.ScheduleData
}

// Result 排班结果
type Result struct {
	RunID     string `json:"run_id"`
	WeekStart string `json:"week_start"`
	WeekEnd   string `json:"week_end"`

	Schedule []model.WeeklySchedule `json:"schedule"`
	Data     model.ScheduleData     `json:"-"`
	Stats    *stats.Metrics         `json:"stats"`

	Score        float64               `json:"score"`
	Iterations   int                   `json:"iterations"`
	Optimization *optimizer.Report     `json:"optimization,omitempty"`
	Allocation   allocator.Summary     `json:"allocation"`
	Shortfalls   []coverage.Shortfall  `json:"shortfalls,omitempty"`
	Adjustments  []balancer.Adjustment `json:"adjustments,omitempty"`
	Warnings     []validator.Conflict  `json:"warnings,omitempty"`
	Duration     time.Duration         `json:"duration"`
}

// Engine 排班引擎，可并发复用，每次 Run 使用独立状态
type Engine struct {
	config Config
	logger *logger.SchedulerLogger
}

// NewEngine 创建排班引擎
func NewEngine(config Config, log *logger.SchedulerLogger) *Engine {
	def := DefaultConfig()
	if config.MaxIterations <= 0 {
		config.MaxIterations = def.MaxIterations
	}
	if config.TabuSize <= 0 {
		config.TabuSize = def.TabuSize
	}
	if config.DefaultContractHours <= 0 {
		config.DefaultContractHours = def.DefaultContractHours
	}
	if log == nil {
		log = logger.NewSchedulerLogger()
	}
	return &Engine{config: config, logger: log}
}

// Run 生成一周排班
// 输入非法时返回 INVALID_INPUT / NO_ACTIVE_EMPLOYEES，失败时不返回部分结果
func (e *Engine) Run(ctx context.Context, in Input) (result *Result, err error) {
	startTime := time.Now()
	runID := uuid.New().String()
	log := e.logger.WithRun(runID)

	defer func() {
		if r := recover(); r != nil {
			log.Logger().Error().Interface("panic", r).Msg("排班过程发生异常")
			result = nil
			err = apperrors.Internal(fmt.Errorf("%v", r), "排班过程发生异常")
		}
	}()

	problem, err := e.prepare(in)
	if err != nil {
		return nil, err
	}
	log.StartSchedule(model.FormatDate(problem.WeekStart), len(problem.Employees), len(problem.BusinessHours.OpenDays()))

	s := state.New(problem)
	e.applyInitial(s, in.InitialSchedule, log)

	matrix := availability.Build(problem, log)
	periods := critical.Detect(problem, matrix)
	summary := allocator.New(matrix, log).Allocate(s, periods)
	log.PhaseComplete("allocate", summary.Total(), evaluator.Score(s))

	opt := optimizer.NewLocalSearchOptimizer(&optimizer.OptimizationConfig{
		MaxIterations: e.config.MaxIterations,
		TabuSize:      e.config.TabuSize,
		BalanceRoles:  problem.BalanceRoles,
	}, matrix, log)
	report, err := opt.Optimize(ctx, s)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.Wrap(err, apperrors.CodeTimeout, "排班超时")
		}
		return nil, apperrors.Internal(err, "排班已取消")
	}

	added, shortfalls := coverage.NewEnforcer(matrix, log).Enforce(s)
	log.PhaseComplete("coverage", added, evaluator.Score(s))

	adjustments := balancer.New(log).Balance(s)
	log.PhaseComplete("balance", len(adjustments), evaluator.Score(s))

	data := s.Data()
	conflicts := validator.NewConflictDetector(nil).DetectAll(data, &validator.Context{
		WeekStart:     problem.WeekStart,
		BusinessHours: problem.BusinessHours,
		Vacations:     problem.Vacations,
	})
	if errs := validator.Errors(conflicts); len(errs) > 0 {
		first := errs[0]
		return nil, apperrors.Internal(apperrors.ScheduleConflict(first.EmployeeID.String(), string(first.Day), first.Message), "排班结果校验失败").
			WithField("conflicts", len(errs))
	}

	metrics := stats.NewMetricsCalculator().Calculate(s)
	result = &Result{
		RunID:        runID,
		WeekStart:    model.FormatDate(problem.WeekStart),
		WeekEnd:      model.FormatDate(model.WeekEnd(problem.WeekStart)),
		Schedule:     buildEntries(s),
		Data:         data,
		Stats:        metrics,
		Score:        metrics.Score,
		Iterations:   report.Iterations,
		Optimization: report,
		Allocation:   summary,
		Shortfalls:   shortfalls,
		Adjustments:  adjustments,
		Warnings:     conflicts,
		Duration:     time.Since(startTime),
	}

	log.ScheduleComplete(result.Duration, result.Score, result.Iterations)
	return result, nil
}

// prepare 校验输入并构建只读问题
func (e *Engine) prepare(in Input) (*state.Problem, error) {
	if in.WeekStart.IsZero() {
		return nil, apperrors.InvalidInput("weekStart", "不能为空")
	}
	if len(in.BusinessHours) == 0 {
		return nil, apperrors.InvalidInput("businessHours", "不能为空")
	}
	for day, r := range in.BusinessHours {
		if !day.Valid() {
			return nil, apperrors.InvalidInput("businessHours", fmt.Sprintf("未知的星期 '%s'", day))
		}
		if r.Start < 0 || r.End < 0 || r.Start > 24 || r.End > 24 {
			return nil, apperrors.InvalidInput("businessHours", fmt.Sprintf("%s 的营业时间 %s 超出 0-24", day, r))
		}
	}
	if in.MinimumEmployees < 0 {
		return nil, apperrors.InvalidInput("minimumEmployees", "不能为负数")
	}
	for id, weekly := range in.Preferences {
		for day, ranges := range weekly {
			if !day.Valid() {
				return nil, apperrors.InvalidInput("employeePreferences", fmt.Sprintf("员工 %s 的偏好包含未知星期 '%s'", id, day))
			}
			for _, r := range ranges {
				if !r.Valid() {
					return nil, apperrors.InvalidInput("employeePreferences", fmt.Sprintf("员工 %s 在 %s 的偏好 %s 无效", id, day, r))
				}
			}
		}
	}

	employees := activeEmployees(in.Employees)
	if len(employees) == 0 {
		return nil, apperrors.NoActiveEmployees()
	}

	vacations, err := model.ExpandVacations(in.Vacations)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "休假数据无效")
	}

	return &state.Problem{
		WeekStart:            model.WeekMonday(in.WeekStart),
		Employees:            employees,
		BusinessHours:        in.BusinessHours,
		Preferences:          in.Preferences,
		Vacations:            vacations,
		MinimumEmployees:     in.MinimumEmployees,
		BalanceRoles:         in.BalanceRoles,
		DefaultContractHours: e.config.DefaultContractHours,
	}, nil
}

// activeEmployees 过滤离职员工，未设置状态视为在职
func activeEmployees(all []*model.Employee) []*model.Employee {
	out := make([]*model.Employee, 0, len(all))
	for _, emp := range all {
		if emp == nil {
			continue
		}
		if emp.Status != "" && !emp.IsActive() {
			continue
		}
		out = append(out, emp)
	}
	return out
}

// applyInitial 写入预置班次，休假、休息日、营业时间外或重叠的班次跳过并记录警告
func (e *Engine) applyInitial(s *state.State, initial model.ScheduleData, log *logger.SchedulerLogger) {
	if len(initial) == 0 {
		return
	}
	p := s.Problem()
	for _, day := range model.Weekdays {
		byEmp := initial[day]
		if len(byEmp) == 0 {
			continue
		}
		open, isOpen := p.BusinessHours.Open(day)
		for _, emp := range p.Employees {
			shifts := append([]model.Shift(nil), byEmp[emp.ID]...)
			model.SortShifts(shifts)
			for _, sh := range shifts {
				var reason error
				switch {
				case !isOpen:
					reason = fmt.Errorf("%s 不营业", day)
				case p.OnVacation(emp.ID, day):
					reason = fmt.Errorf("%s 休假", day)
				case !sh.Range().Valid() || !sh.Range().Within(open):
					reason = fmt.Errorf("班次 %s 超出 %s 营业时间 %s", sh, day, open)
				default:
					if err := s.Add(day, emp.ID, model.NewShift(sh.Start, sh.End, model.OriginSource)); err != nil {
						reason = fmt.Errorf("%s 班次 %s: %w", day, sh, err)
					}
				}
				if reason != nil {
					log.DataWarning("initial_schedule", emp.ID.String(), reason)
				}
			}
		}
	}
}

// buildEntries 按员工生成周排班记录，营业日即使无班次也输出空列表
func buildEntries(s *state.State) []model.WeeklySchedule {
	p := s.Problem()
	weekStart := model.FormatDate(p.WeekStart)
	weekEnd := model.FormatDate(model.WeekEnd(p.WeekStart))
	openDays := p.BusinessHours.OpenDays()

	entries := make([]model.WeeklySchedule, 0, len(p.Employees))
	for _, emp := range p.Employees {
		entry := model.WeeklySchedule{
			BaseModel:    model.NewBaseModel(),
			EmployeeID:   emp.ID,
			WeekStart:    weekStart,
			WeekEnd:      weekEnd,
			ScheduleData: make(map[model.Weekday][]model.Shift, len(openDays)),
			TotalHours:   s.AssignedHours(emp.ID),
			Status:       model.ScheduleStatusDraft,
		}
		for _, day := range openDays {
			entry.ScheduleData[day] = append([]model.Shift{}, s.Shifts(day, emp.ID)...)
		}
		entries = append(entries, entry)
	}
	return entries
}
