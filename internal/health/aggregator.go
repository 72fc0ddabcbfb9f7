package health

import (
	"context"
	"sync"
	"time"
)

// Aggregator 健康检查聚合器：并发执行全部检查器并归并结果
type Aggregator struct {
	checkers []Checker
}

// NewAggregator 创建聚合器
func NewAggregator(checkers ...Checker) *Aggregator {
	return &Aggregator{checkers: checkers}
}

// CheckAll 执行所有健康检查（并发）
func (a *Aggregator) CheckAll(ctx context.Context) map[string]CheckResult {
	results := make(map[string]CheckResult, len(a.checkers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, checker := range a.checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			result := c.Check(ctx)
			mu.Lock()
			results[c.Name()] = result
			mu.Unlock()
		}(checker)
	}

	wg.Wait()
	return results
}

// OverallStatus 计算总体健康状态：任一 Unhealthy 即 Unhealthy，
// 否则任一 Degraded 即 Degraded。
func (a *Aggregator) OverallStatus(ctx context.Context) Status {
	return merge(a.CheckAll(ctx))
}

func merge(checks map[string]CheckResult) Status {
	status := StatusHealthy
	for _, r := range checks {
		if r.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
		if r.Status == StatusDegraded {
			status = StatusDegraded
		}
	}
	return status
}

// Ready 判断系统是否就绪（readiness probe）。
// Degraded 仍视为就绪，只有 Unhealthy 才不就绪。
func (a *Aggregator) Ready(ctx context.Context) bool {
	return a.OverallStatus(ctx) != StatusUnhealthy
}

// Report 生成健康报告
func (a *Aggregator) Report(ctx context.Context) HealthReport {
	checks := a.CheckAll(ctx)
	return HealthReport{Status: merge(checks), Timestamp: time.Now(), Checks: checks}
}

// HealthReport 健康报告
type HealthReport struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}
