// Package metrics 提供Prometheus文本格式的监控指标
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// 指标名称
const (
	HTTPRequestsTotal         = "planning_http_requests_total"
	HTTPRequestDuration       = "planning_http_request_duration_seconds"
	ScheduleGenerationTotal   = "planning_schedule_generation_total"
	ScheduleGenerationSeconds = "planning_schedule_generation_duration_seconds"
	ActiveRuns                = "planning_active_runs"
	OptimizerIterationsTotal  = "planning_optimizer_iterations_total"
	SolutionScore             = "planning_solution_score"
	UncoveredHours            = "planning_uncovered_hours"
	PreferenceMatchRate       = "planning_preference_match_rate"
	FairnessGini              = "planning_fairness_gini"
)

// MetricsRegistry 指标注册表
type MetricsRegistry struct {
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	mu         sync.RWMutex
}

// Counter 计数器
type Counter struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Gauge 仪表盘
type Gauge struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Histogram 直方图
type Histogram struct {
	Name    string
	Help    string
	Labels  []string
	Buckets []float64
	counts  map[string][]int
	sums    map[string]float64
	mu      sync.RWMutex
}

var (
	registry *MetricsRegistry
	once     sync.Once
)

// GetRegistry 获取全局注册表
func GetRegistry() *MetricsRegistry {
	once.Do(func() {
		registry = NewRegistry()
		registry.registerDefaults()
	})
	return registry
}

// NewRegistry 创建空注册表
func NewRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
}

// registerDefaults 注册默认指标
func (r *MetricsRegistry) registerDefaults() {
	r.NewCounter(HTTPRequestsTotal, "HTTP请求总数", []string{"method", "path", "status"})
	r.NewHistogram(HTTPRequestDuration, "HTTP请求延迟",
		[]string{"method", "path"},
		[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0})

	r.NewCounter(ScheduleGenerationTotal, "排班生成次数", []string{"status"})
	r.NewHistogram(ScheduleGenerationSeconds, "排班生成延迟",
		[]string{"status"},
		[]float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0})
	r.NewGauge(ActiveRuns, "正在执行的排班数", []string{})
	r.NewCounter(OptimizerIterationsTotal, "局部搜索迭代次数", []string{})

	r.NewGauge(SolutionScore, "最近一次排班评分", []string{"department_id"})
	r.NewGauge(UncoveredHours, "最近一次排班缺口人·小时", []string{"department_id"})
	r.NewGauge(PreferenceMatchRate, "最近一次排班偏好满足率", []string{"department_id"})
	r.NewGauge(FairnessGini, "工时基尼系数", []string{"department_id"})
}

// NewCounter 创建计数器
func (r *MetricsRegistry) NewCounter(name, help string, labels []string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	counter := &Counter{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.counters[name] = counter
	return counter
}

// NewGauge 创建仪表盘
func (r *MetricsRegistry) NewGauge(name, help string, labels []string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	gauge := &Gauge{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.gauges[name] = gauge
	return gauge
}

// NewHistogram 创建直方图
func (r *MetricsRegistry) NewHistogram(name, help string, labels []string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	histogram := &Histogram{
		Name:    name,
		Help:    help,
		Labels:  labels,
		Buckets: buckets,
		counts:  make(map[string][]int),
		sums:    make(map[string]float64),
	}
	r.histograms[name] = histogram
	return histogram
}

// GetCounter 获取计数器
func (r *MetricsRegistry) GetCounter(name string) *Counter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// GetGauge 获取仪表盘
func (r *MetricsRegistry) GetGauge(name string) *Gauge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gauges[name]
}

// GetHistogram 获取直方图
func (r *MetricsRegistry) GetHistogram(name string) *Histogram {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.histograms[name]
}

// Inc 增加计数
func (c *Counter) Inc(labelValues ...string) {
	c.Add(1, labelValues...)
}

// Add 增加指定值
func (c *Counter) Add(value float64, labelValues ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[labelKey(labelValues)] += value
}

// Value 返回当前值
func (c *Counter) Value(labelValues ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[labelKey(labelValues)]
}

// Set 设置值
func (g *Gauge) Set(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] = value
}

// Inc 增加
func (g *Gauge) Inc(labelValues ...string) {
	g.Add(1, labelValues...)
}

// Dec 减少
func (g *Gauge) Dec(labelValues ...string) {
	g.Add(-1, labelValues...)
}

// Add 增加指定值
func (g *Gauge) Add(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] += value
}

// Value 返回当前值
func (g *Gauge) Value(labelValues ...string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.values[labelKey(labelValues)]
}

// Observe 记录观测值
func (h *Histogram) Observe(value float64, labelValues ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := labelKey(labelValues)
	if _, exists := h.counts[key]; !exists {
		h.counts[key] = make([]int, len(h.Buckets)+1)
	}

	// 只计入第一个满足的 bucket，输出时累加
	idx := len(h.Buckets)
	for i, bucket := range h.Buckets {
		if value <= bucket {
			idx = i
			break
		}
	}
	h.counts[key][idx]++
	h.sums[key] += value
}

// Count 返回观测次数
func (h *Histogram) Count(labelValues ...string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, c := range h.counts[labelKey(labelValues)] {
		total += c
	}
	return total
}

// labelKey 生成标签键
func labelKey(labels []string) string {
	return strings.Join(labels, ",")
}

// formatLabels 格式化标签
func formatLabels(names []string, key string) string {
	var vals []string
	if key != "" {
		vals = strings.Split(key, ",")
	}
	parts := make([]string, len(names))
	for i, name := range names {
		val := ""
		if i < len(vals) {
			val = vals[i]
		}
		parts[i] = fmt.Sprintf("%s=%q", name, val)
	}
	return strings.Join(parts, ",")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func series(name string, labels []string, key string) string {
	if key == "" || len(labels) == 0 {
		return name
	}
	return name + "{" + formatLabels(labels, key) + "}"
}

// WriteTo 以Prometheus文本格式输出所有指标，按名称排序
func (r *MetricsRegistry) WriteTo(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range sortedKeys(r.counters) {
		counter := r.counters[name]
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n", name, counter.Help, name)
		counter.mu.RLock()
		for _, key := range sortedKeys(counter.values) {
			fmt.Fprintf(w, "%s %g\n", series(name, counter.Labels, key), counter.values[key])
		}
		counter.mu.RUnlock()
	}

	for _, name := range sortedKeys(r.gauges) {
		gauge := r.gauges[name]
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n", name, gauge.Help, name)
		gauge.mu.RLock()
		for _, key := range sortedKeys(gauge.values) {
			fmt.Fprintf(w, "%s %g\n", series(name, gauge.Labels, key), gauge.values[key])
		}
		gauge.mu.RUnlock()
	}

	for _, name := range sortedKeys(r.histograms) {
		histogram := r.histograms[name]
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", name, histogram.Help, name)
		histogram.mu.RLock()
		for _, key := range sortedKeys(histogram.counts) {
			counts := histogram.counts[key]
			prefix := ""
			if key != "" {
				prefix = formatLabels(histogram.Labels, key) + ","
			}
			cumulative := 0
			for i, bucket := range histogram.Buckets {
				cumulative += counts[i]
				fmt.Fprintf(w, "%s_bucket{%sle=\"%s\"} %d\n", name, prefix, strconv.FormatFloat(bucket, 'g', -1, 64), cumulative)
			}
			cumulative += counts[len(histogram.Buckets)]
			fmt.Fprintf(w, "%s_bucket{%sle=\"+Inf\"} %d\n", name, prefix, cumulative)
			fmt.Fprintf(w, "%s %g\n", series(name+"_sum", histogram.Labels, key), histogram.sums[key])
			fmt.Fprintf(w, "%s %d\n", series(name+"_count", histogram.Labels, key), cumulative)
		}
		histogram.mu.RUnlock()
	}
}

// Handler 返回Prometheus格式的指标HTTP处理器
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		GetRegistry().WriteTo(w)
	})
}

// RecordRequestMetrics 记录请求指标
func RecordRequestMetrics(method, path string, status int, duration time.Duration) {
	registry := GetRegistry()
	if counter := registry.GetCounter(HTTPRequestsTotal); counter != nil {
		counter.Inc(method, path, strconv.Itoa(status))
	}
	if histogram := registry.GetHistogram(HTTPRequestDuration); histogram != nil {
		histogram.Observe(duration.Seconds(), method, path)
	}
}

// RecordScheduleGeneration 记录排班生成指标
func RecordScheduleGeneration(success bool, duration time.Duration) {
	registry := GetRegistry()

	status := "success"
	if !success {
		status = "failure"
	}
	if counter := registry.GetCounter(ScheduleGenerationTotal); counter != nil {
		counter.Inc(status)
	}
	if histogram := registry.GetHistogram(ScheduleGenerationSeconds); histogram != nil {
		histogram.Observe(duration.Seconds(), status)
	}
}

// RunStarted 记录排班开始
func RunStarted() {
	if gauge := GetRegistry().GetGauge(ActiveRuns); gauge != nil {
		gauge.Inc()
	}
}

// RunFinished 记录排班结束
func RunFinished() {
	if gauge := GetRegistry().GetGauge(ActiveRuns); gauge != nil {
		gauge.Dec()
	}
}

// ScheduleQuality 单次排班的质量指标
type ScheduleQuality struct {
	Score          float64
	UncoveredHours int
	MatchRate      float64
	WorkloadGini   float64
	Iterations     int
}

// RecordScheduleQuality 记录部门最近一次排班的质量
func RecordScheduleQuality(departmentID string, q ScheduleQuality) {
	registry := GetRegistry()
	if counter := registry.GetCounter(OptimizerIterationsTotal); counter != nil {
		counter.Add(float64(q.Iterations))
	}
	if gauge := registry.GetGauge(SolutionScore); gauge != nil {
		gauge.Set(q.Score, departmentID)
	}
	if gauge := registry.GetGauge(UncoveredHours); gauge != nil {
		gauge.Set(float64(q.UncoveredHours), departmentID)
	}
	if gauge := registry.GetGauge(PreferenceMatchRate); gauge != nil {
		gauge.Set(q.MatchRate, departmentID)
	}
	if gauge := registry.GetGauge(FairnessGini); gauge != nil {
		gauge.Set(q.WorkloadGini, departmentID)
	}
}
