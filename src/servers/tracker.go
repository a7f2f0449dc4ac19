package servers

import (
	"sort"
	"sync"
	"time"

	"github.com/datasync-go/datasync/src/pipeline"
)

// UnitStatus 单个数据库的当前状态
type UnitStatus struct {
	Database  string             `json:"database"`
	State     pipeline.UnitState `json:"state"`
	Error     string             `json:"error,omitempty"`
	Artifact  string             `json:"artifact,omitempty"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Tracker 记录本次运行中每个库的最新状态，实现 pipeline.Observer
type Tracker struct {
	mu    sync.RWMutex
	units map[string]*UnitStatus
	now   func() time.Time
}

// NewTracker 创建状态跟踪器
func NewTracker() *Tracker {
	return &Tracker{units: make(map[string]*UnitStatus), now: time.Now}
}

func (t *Tracker) unitLocked(database string) *UnitStatus {
	u, ok := t.units[database]
	if !ok {
		u = &UnitStatus{Database: database, State: pipeline.StatePending}
		t.units[database] = u
	}
	return u
}

// OnTransition 更新状态
func (t *Tracker) OnTransition(database string, _, to pipeline.UnitState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	u := t.unitLocked(database)
	u.State = to
	u.UpdatedAt = t.now()
}

// OnResult 记录终态详情
func (t *Tracker) OnResult(r pipeline.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	u := t.unitLocked(r.Database)
	u.State = r.State
	u.Error = r.ErrorMessage
	u.Artifact = r.Artifact
	u.UpdatedAt = t.now()
}

// Units 按库名排序返回所有状态
func (t *Tracker) Units() []UnitStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]UnitStatus, 0, len(t.units))
	for _, u := range t.units {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Database < out[j].Database })
	return out
}

// Unit 查询单个库
func (t *Tracker) Unit(database string) (UnitStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	u, ok := t.units[database]
	if !ok {
		return UnitStatus{}, false
	}
	return *u, true
}
