package history

import (
	"context"
	"time"

	"github.com/datasync-go/datasync/src/pipeline"
)

const recordTimeout = 5 * time.Second

// Recorder 把结果写入历史库的观察者
// 写入失败只记录日志，不影响迁移
type Recorder struct {
	store *Store
	runID string
}

// Recorder 返回绑定到 runID 的观察者
func (s *Store) Recorder(runID string) *Recorder {
	return &Recorder{store: s, runID: runID}
}

// OnTransition 不记录中间状态
func (r *Recorder) OnTransition(string, pipeline.UnitState, pipeline.UnitState) {}

// OnResult 写入一条结果
func (r *Recorder) OnResult(result pipeline.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := r.store.RecordResult(ctx, r.runID, result); err != nil {
		r.store.logger.WithError(err).WithField("database", result.Database).Warn("failed to record unit result")
	}
}
