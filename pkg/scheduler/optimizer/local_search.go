// Package optimizer 提供排班优化算法
package optimizer

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/smartplanning/planning/pkg/logger"
	"github.com/smartplanning/planning/pkg/scheduler/availability"
	"github.com/smartplanning/planning/pkg/scheduler/evaluator"
	"github.com/smartplanning/planning/pkg/scheduler/state"
)

// OptimizationConfig 优化配置
type OptimizationConfig struct {
	MaxIterations int  `json:"max_iterations"` // 最大迭代次数
	TabuSize      int  `json:"tabu_size"`      // 禁忌表大小
	BalanceRoles  bool `json:"balance_roles"`  // 是否执行岗位均衡
}

// DefaultOptConfig 默认优化配置
func DefaultOptConfig() *OptimizationConfig {
	return &OptimizationConfig{
		MaxIterations: 200,
		TabuSize:      50,
		BalanceRoles:  true,
	}
}

// Report 优化过程记录
type Report struct {
	Iterations   int            `json:"iterations"`
	InitialScore float64        `json:"initial_score"`
	FinalScore   float64        `json:"final_score"`
	ScoreHistory []float64      `json:"score_history"`
	Moves        map[string]int `json:"moves"`
}

// LocalSearchOptimizer 局部搜索优化器
// 每次移动后重新评分，分数下降则撤销，因此分数单调不减
type LocalSearchOptimizer struct {
	config   *OptimizationConfig
	matrix   *availability.Matrix
	tabuList *TabuList
	logger   *logger.SchedulerLogger

	score float64
	moves map[string]int
}

// NewLocalSearchOptimizer 创建局部搜索优化器
func NewLocalSearchOptimizer(config *OptimizationConfig, m *availability.Matrix, log *logger.SchedulerLogger) *LocalSearchOptimizer {
	if config == nil {
		config = DefaultOptConfig()
	}
	if log == nil {
		log = logger.NewSchedulerLogger()
	}
	return &LocalSearchOptimizer{
		config:   config,
		matrix:   m,
		tabuList: NewTabuList(config.TabuSize),
		logger:   log,
	}
}

// Optimize 反复执行三类移动直到没有改进或达到迭代上限
func (o *LocalSearchOptimizer) Optimize(ctx context.Context, s *state.State) (*Report, error) {
	o.score = evaluator.Score(s)
	o.moves = make(map[string]int)
	o.tabuList.Clear()

	report := &Report{
		InitialScore: o.score,
		ScoreHistory: []float64{o.score},
		Moves:        o.moves,
	}

	for i := 0; i < o.config.MaxIterations; i++ {
		// 检查取消
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		changes := o.balanceHours(s)
		changes += o.improvePreferences(s)
		if o.config.BalanceRoles {
			changes += o.balanceRoles(s)
		}

		report.Iterations = i + 1
		report.ScoreHistory = append(report.ScoreHistory, o.score)
		o.logger.PhaseComplete("local_search", changes, o.score)
		if changes == 0 {
			break
		}
	}

	report.FinalScore = o.score
	return report, nil
}

// try 执行移动并重新评分，分数下降时撤销
// 接受后将反向移动加入禁忌表
func (o *LocalSearchOptimizer) try(s *state.State, kind string, key, reverse uint64, apply func() error, undo func()) bool {
	if o.tabuList.Contains(key) {
		return false
	}
	if err := apply(); err != nil {
		return false
	}
	after := evaluator.Score(s)
	if !evaluator.NotWorse(o.score, after) {
		undo()
		return false
	}
	o.score = after
	o.moves[kind]++
	o.tabuList.Add(reverse)
	return true
}

// moveKey 计算移动的键 (使用FNV-1a算法)
func moveKey(parts ...string) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// TabuList 禁忌表，记录已接受移动的反向移动，避免来回震荡
type TabuList struct {
	items   map[uint64]struct{}
	order   []uint64
	maxSize int
	mu      sync.RWMutex
}

// NewTabuList 创建禁忌表
func NewTabuList(size int) *TabuList {
	if size <= 0 {
		size = 1
	}
	return &TabuList{
		items:   make(map[uint64]struct{}),
		order:   make([]uint64, 0, size),
		maxSize: size,
	}
}

// Add 添加到禁忌表
func (t *TabuList) Add(key uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.items[key]; exists {
		return
	}

	// 超出容量时移除最旧的
	if len(t.order) >= t.maxSize {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.items, oldest)
	}

	t.items[key] = struct{}{}
	t.order = append(t.order, key)
}

// Contains 检查是否在禁忌表中
func (t *TabuList) Contains(key uint64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, exists := t.items[key]
	return exists
}

// Len 返回禁忌表长度
func (t *TabuList) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

// Clear 清空禁忌表
func (t *TabuList) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = make(map[uint64]struct{})
	t.order = t.order[:0]
}
