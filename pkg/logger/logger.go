// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console/auto
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "auto",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			if cfg.FilePath != "" {
				f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err == nil {
					output = f
				} else {
					output = os.Stdout
				}
			} else {
				output = os.Stdout
			}
		default:
			output = os.Stdout
		}

		if useConsole(cfg.Format, output) {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// useConsole 判断是否使用可读的控制台格式，auto 时仅在终端输出时启用
func useConsole(format string, out io.Writer) bool {
	switch format {
	case "console":
		return true
	case "json":
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	// 未调用 Init 时使用默认配置
	Init(DefaultConfig())
	return &logger
}

type ctxKey string

// RequestIDKey 上下文中请求ID的键
const RequestIDKey ctxKey = "request_id"

// ContextWithRequestID 将请求ID写入上下文
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestID 从上下文读取请求ID
func RequestID(ctx context.Context) string {
	reqID, _ := ctx.Value(RequestIDKey).(string)
	return reqID
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()

	// 添加请求ID
	if reqID := RequestID(ctx); reqID != "" {
		l = l.With().Str("request_id", reqID).Logger()
	}

	return &l
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// SchedulerLogger 排班引擎专用日志器
type SchedulerLogger struct {
	base *zerolog.Logger
}

// NewSchedulerLogger 创建排班引擎日志器
func NewSchedulerLogger() *SchedulerLogger {
	l := Get().With().Str("component", "scheduler").Logger()
	return &SchedulerLogger{base: &l}
}

// NewSchedulerLoggerFrom 基于指定日志器创建排班引擎日志器
func NewSchedulerLoggerFrom(l zerolog.Logger) *SchedulerLogger {
	l = l.With().Str("component", "scheduler").Logger()
	return &SchedulerLogger{base: &l}
}

// WithRun 返回带运行ID的日志器
func (l *SchedulerLogger) WithRun(runID string) *SchedulerLogger {
	child := l.base.With().Str("run_id", runID).Logger()
	return &SchedulerLogger{base: &child}
}

// Logger 返回底层日志器
func (l *SchedulerLogger) Logger() *zerolog.Logger {
	return l.base
}

// StartSchedule 记录排班开始
func (l *SchedulerLogger) StartSchedule(weekStart string, employees, openDays int) {
	l.base.Info().
		Str("week_start", weekStart).
		Int("employees", employees).
		Int("open_days", openDays).
		Msg("开始生成排班")
}

// PhaseComplete 记录阶段完成
func (l *SchedulerLogger) PhaseComplete(phase string, changes int, score float64) {
	l.base.Debug().
		Str("phase", phase).
		Int("changes", changes).
		Float64("score", score).
		Msg("排班阶段完成")
}

// DataWarning 记录可恢复的数据问题
func (l *SchedulerLogger) DataWarning(what, employeeID string, err error) {
	l.base.Warn().
		Err(err).
		Str("data", what).
		Str("employee_id", employeeID).
		Msg("数据格式错误，使用默认值")
}

// CoverageShortfall 记录无法满足的最低人数
func (l *SchedulerLogger) CoverageShortfall(day string, hour, required, assigned int) {
	l.base.Warn().
		Str("day", day).
		Int("hour", hour).
		Int("required", required).
		Int("assigned", assigned).
		Msg("可用人数不足，无法满足最低在岗人数")
}

// ScheduleComplete 记录排班完成
func (l *SchedulerLogger) ScheduleComplete(duration time.Duration, score float64, iterations int) {
	l.base.Info().
		Dur("duration", duration).
		Float64("score", score).
		Int("iterations", iterations).
		Msg("排班生成完成")
}
