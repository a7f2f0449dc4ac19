package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/datasync-go/datasync/src/configs"
	dssentry "github.com/datasync-go/datasync/src/pkg/sentry"
)

var (
	// ErrTargetCheck 检查目标库是否存在失败
	ErrTargetCheck = errors.New("check target database")
	// ErrTargetCreate 创建目标库失败
	ErrTargetCreate = errors.New("create target database")
	// ErrStagePanic 阶段内部 panic
	ErrStagePanic = errors.New("stage panicked")
)

// Pipeline 单个数据库的 备份 -> 建库 -> 还原 流程
// 同一次运行的所有单元共用一个 Pipeline
type Pipeline struct {
	sql     SQLExecutor
	backup  BackupExecutor
	restore RestoreExecutor

	targetPool    *sql.DB
	source        *configs.Endpoint
	target        *configs.Endpoint
	keepArtifacts bool

	observers []Observer
	logger    logrus.FieldLogger
}

// PipelineConfig 构造 Pipeline 所需的依赖
type PipelineConfig struct {
	SQL           SQLExecutor
	Backup        BackupExecutor
	Restore       RestoreExecutor
	TargetPool    *sql.DB
	Source        *configs.Endpoint
	Target        *configs.Endpoint
	KeepArtifacts bool
	Observers     []Observer
	Logger        logrus.FieldLogger
}

// NewPipeline 创建迁移流程
func NewPipeline(cfg PipelineConfig) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Pipeline{
		sql:           cfg.SQL,
		backup:        cfg.Backup,
		restore:       cfg.Restore,
		targetPool:    cfg.TargetPool,
		source:        cfg.Source,
		target:        cfg.Target,
		keepArtifacts: cfg.KeepArtifacts,
		observers:     cfg.Observers,
		logger:        logger,
	}
}

type unit struct {
	p      *Pipeline
	logger logrus.FieldLogger
	result Result
}

func (u *unit) transition(to UnitState) {
	from := u.result.State
	u.result.State = to
	u.logger.WithField("state", to).Debug("unit state changed")
	for _, o := range u.p.observers {
		o.OnTransition(u.result.Database, from, to)
	}
}

func (u *unit) fail(ctx context.Context, state UnitState, err error) {
	if ctx.Err() != nil {
		state = StateCancelled
	}
	u.result.Err = err
	u.result.ErrorMessage = dssentry.Sanitize(err.Error())
	u.transition(state)
}

// Run 执行一个数据库的迁移，总是返回终态结果
// 调用方负责在调用前后持有并释放并发许可
func (p *Pipeline) Run(ctx context.Context, database string) (result Result) {
	u := &unit{
		p:      p,
		logger: p.logger.WithField("database", database),
		result: Result{Database: database, State: StatePending, StartedAt: time.Now()},
	}

	defer func() {
		if v := recover(); v != nil {
			dssentry.Report(ctx, v)
			u.logger.WithField("panic", v).Error("migration stage panicked")
			if !u.result.State.IsTerminal() {
				state := StateBackupFailed
				if u.result.State == StateRestoreInProgress {
					state = StateRestoreFailed
				}
				u.fail(ctx, state, fmt.Errorf("%w: %v", ErrStagePanic, v))
			}
		}
		u.result.FinishedAt = time.Now()
		result = u.result
	}()

	if err := ctx.Err(); err != nil {
		u.fail(ctx, StateCancelled, err)
		return
	}

	u.transition(StateBackupInProgress)
	artifact, err := p.backup.Backup(ctx, p.source, database)
	u.result.Artifact = artifact
	if err != nil {
		u.logger.WithError(err).Error("backup failed")
		u.fail(ctx, StateBackupFailed, err)
		return
	}
	u.logger.WithField("artifact", artifact).Info("backup finished")

	u.transition(StateRestoreInProgress)
	if err := p.ensureTargetDatabase(ctx, u, database); err != nil {
		u.logger.WithError(err).Error("prepare target database failed")
		u.fail(ctx, StateRestoreFailed, err)
		return
	}
	if err := p.restore.Restore(ctx, artifact, p.target, database); err != nil {
		u.logger.WithError(err).Error("restore failed")
		u.fail(ctx, StateRestoreFailed, err)
		return
	}

	u.transition(StateSucceeded)
	u.logger.Info("database migrated")

	if !p.keepArtifacts && artifact != "" {
		if err := os.Remove(artifact); err != nil && !errors.Is(err, os.ErrNotExist) {
			u.logger.WithError(err).Warn("failed to remove backup artifact")
		}
	}
	return
}

// ensureTargetDatabase 目标库不存在时创建
func (p *Pipeline) ensureTargetDatabase(ctx context.Context, u *unit, database string) error {
	exists, err := p.sql.DatabaseExists(ctx, p.targetPool, database)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrTargetCheck, database, err)
	}
	if exists {
		u.logger.Debug("target database exists, skip creating")
		return nil
	}
	if err := p.sql.CreateDatabase(ctx, p.targetPool, database); err != nil {
		return fmt.Errorf("%w %s: %w", ErrTargetCreate, database, err)
	}
	u.logger.Info("target database created")
	return nil
}
