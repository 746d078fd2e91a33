package scheduler

import (
	"context"
	"time"

	"github.com/smartplanning/planning/pkg/logger"
	"github.com/smartplanning/planning/pkg/model"
)

// 运行参数默认值
const (
	DefaultMinimumEmployees = 1
	DefaultBalanceRoles     = true
)

type runOptions struct {
	config Config
	logger *logger.SchedulerLogger
	input  Input
}

// Option 运行选项
type Option func(*runOptions)

// WithMinimumEmployees 设置每个营业小时的最低在岗人数
func WithMinimumEmployees(n int) Option {
	return func(o *runOptions) { o.input.MinimumEmployees = n }
}

// WithBalanceRoles 设置是否执行岗位均衡
func WithBalanceRoles(enabled bool) Option {
	return func(o *runOptions) { o.input.BalanceRoles = enabled }
}

// WithInitialSchedule 预置班次
func WithInitialSchedule(data model.ScheduleData) Option {
	return func(o *runOptions) { o.input.InitialSchedule = data }
}

// WithMaxIterations 设置局部搜索最大迭代次数
func WithMaxIterations(n int) Option {
	return func(o *runOptions) { o.config.MaxIterations = n }
}

// WithContractHours 设置未配置合同工时员工的默认周工时
func WithContractHours(hours float64) Option {
	return func(o *runOptions) { o.config.DefaultContractHours = hours }
}

// WithLogger 使用指定日志器
func WithLogger(log *logger.SchedulerLogger) Option {
	return func(o *runOptions) { o.logger = log }
}

// Run 使用默认配置生成一周排班
// 默认最低在岗 1 人并开启岗位均衡
func Run(
	ctx context.Context,
	employees []*model.Employee,
	weekStart time.Time,
	businessHours model.BusinessHours,
	vacations []model.VacationInterval,
	preferences model.PreferenceMap,
	opts ...Option,
) (*Result, error) {
	o := &runOptions{
		config: DefaultConfig(),
		input: Input{
			Employees:        employees,
			WeekStart:        weekStart,
			BusinessHours:    businessHours,
			Vacations:        vacations,
			Preferences:      preferences,
			MinimumEmployees: DefaultMinimumEmployees,
			BalanceRoles:     DefaultBalanceRoles,
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return NewEngine(o.config, o.logger).Run(ctx, o.input)
}
