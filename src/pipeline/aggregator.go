package pipeline

import "sync"

// Aggregator 并发安全地收集各单元结果
type Aggregator struct {
	mu      sync.Mutex
	results []Result
}

// NewAggregator 创建结果收集器
func NewAggregator(expected int) *Aggregator {
	return &Aggregator{results: make([]Result, 0, expected)}
}

// Record 追加一条结果
func (a *Aggregator) Record(r Result) {
	a.mu.Lock()
	a.results = append(a.results, r)
	a.mu.Unlock()
}

// Summary 返回按完成顺序排列的结果副本
// 所有单元结束后调用
func (a *Aggregator) Summary() []Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Result, len(a.results))
	copy(out, a.results)
	return out
}

// Len 已记录数量
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.results)
}
