// Package limiter 提供限制同时运行任务数量的准入闸门
package limiter

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultCapacity 默认并发数
const DefaultCapacity = 5

// Limiter 计数信号量
type Limiter struct {
	sem      *semaphore.Weighted
	capacity int
	inUse    atomic.Int64
}

// New 创建容量为 capacity 的限制器，capacity <= 0 时使用 DefaultCapacity
func New(capacity int) *Limiter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Limiter{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// Acquire 阻塞直到获得许可或 ctx 结束
// 返回错误时没有占用任何容量
func (l *Limiter) Acquire(ctx context.Context) (*Permit, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	l.inUse.Add(1)
	return &Permit{l: l}, nil
}

// Capacity 返回容量
func (l *Limiter) Capacity() int {
	return l.capacity
}

// InUse 返回当前被占用的许可数
func (l *Limiter) InUse() int {
	return int(l.inUse.Load())
}

// Permit 准入许可，必须且只会归还一次
type Permit struct {
	l    *Limiter
	once sync.Once
}

// Release 归还许可，重复调用无副作用
func (p *Permit) Release() {
	p.once.Do(func() {
		p.l.inUse.Add(-1)
		p.l.sem.Release(1)
	})
}
