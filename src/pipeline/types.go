//go:generate go run go.uber.org/mock/mockgen -package pipeline -destination mock_test.go github.com/datasync-go/datasync/src/pipeline SQLExecutor,BackupExecutor,RestoreExecutor,Observer

// Package pipeline 实现数据库迁移调度：枚举源库、按并发上限逐库执行备份与还原、汇总结果
package pipeline

import (
	"context"
	"database/sql"
	"time"

	"github.com/datasync-go/datasync/src/configs"
)

// UnitState 单个数据库迁移单元的状态
type UnitState string

const (
	StatePending           UnitState = "pending"
	StateBackupInProgress  UnitState = "backup_in_progress"
	StateBackupFailed      UnitState = "backup_failed"
	StateRestoreInProgress UnitState = "restore_in_progress"
	StateRestoreFailed     UnitState = "restore_failed"
	StateSucceeded         UnitState = "succeeded"
	// StateCancelled 仅在运行上下文被取消时出现
	StateCancelled UnitState = "cancelled"
)

// AllStates 按生命周期顺序列出全部状态
var AllStates = []UnitState{
	StatePending,
	StateBackupInProgress,
	StateBackupFailed,
	StateRestoreInProgress,
	StateRestoreFailed,
	StateSucceeded,
	StateCancelled,
}

// IsTerminal 是否为终态
func (s UnitState) IsTerminal() bool {
	switch s {
	case StateBackupFailed, StateRestoreFailed, StateSucceeded, StateCancelled:
		return true
	}
	return false
}

// IsFailure 是否为失败终态
func (s UnitState) IsFailure() bool {
	return s == StateBackupFailed || s == StateRestoreFailed
}

// Result 一个数据库的最终结果
type Result struct {
	Database     string    `json:"database"`
	State        UnitState `json:"state"`
	Err          error     `json:"-"`
	ErrorMessage string    `json:"error,omitempty"`
	Artifact     string    `json:"artifact,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Duration 单元耗时
func (r Result) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunSummary 一次运行的汇总，Results 按完成顺序排列
type RunSummary struct {
	RunID      string    `json:"run_id"`
	JobName    string    `json:"job_name"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Results    []Result  `json:"results"`
}

// Counts 每种终态的数量
func (s *RunSummary) Counts() map[UnitState]int {
	counts := make(map[UnitState]int)
	for _, r := range s.Results {
		counts[r.State]++
	}
	return counts
}

// OK 所有单元均成功
func (s *RunSummary) OK() bool {
	for _, r := range s.Results {
		if r.State != StateSucceeded {
			return false
		}
	}
	return true
}

// Failed 返回失败或被取消的结果
func (s *RunSummary) Failed() []Result {
	var failed []Result
	for _, r := range s.Results {
		if r.State != StateSucceeded {
			failed = append(failed, r)
		}
	}
	return failed
}

// SQLExecutor 通过连接池执行查询
type SQLExecutor interface {
	ServerVersion(ctx context.Context, db *sql.DB) (string, error)
	ListDatabases(ctx context.Context, db *sql.DB) ([]string, error)
	DatabaseExists(ctx context.Context, db *sql.DB, name string) (bool, error)
	CreateDatabase(ctx context.Context, db *sql.DB, name string) error
}

// BackupExecutor 导出单个数据库，返回备份文件路径（失败时也可能返回）
type BackupExecutor interface {
	Backup(ctx context.Context, ep *configs.Endpoint, database string) (string, error)
}

// RestoreExecutor 将备份文件导入目标库
type RestoreExecutor interface {
	Restore(ctx context.Context, artifact string, ep *configs.Endpoint, database string) error
}

// Observer 接收状态变化与结果，必须可并发调用
type Observer interface {
	OnTransition(database string, from, to UnitState)
	OnResult(result Result)
}
