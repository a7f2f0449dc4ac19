package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"github.com/datasync-go/datasync/src/configs"
	"github.com/datasync-go/datasync/src/pkg/limiter"
	"github.com/datasync-go/datasync/src/pkg/mysql"
	"github.com/datasync-go/datasync/src/pkg/pool"
	dssentry "github.com/datasync-go/datasync/src/pkg/sentry"
)

var (
	// ErrPoolCreate 创建连接池失败
	ErrPoolCreate = errors.New("create connection pool")
	// ErrVersionProbe 查询服务器版本失败
	ErrVersionProbe = errors.New("probe server version")
	// ErrEnumerate 列出源库失败
	ErrEnumerate = errors.New("enumerate source databases")
)

// Dispatcher 调度一次完整的迁移运行
type Dispatcher struct {
	registry *pool.Registry
	sql      SQLExecutor
	backup   BackupExecutor
	restore  RestoreExecutor

	mu        sync.RWMutex
	observers []Observer

	logger logrus.FieldLogger
}

// NewDispatcher 创建调度器
func NewDispatcher(
	registry *pool.Registry,
	sqlExecutor SQLExecutor,
	backup BackupExecutor,
	restore RestoreExecutor,
	logger logrus.FieldLogger,
) *Dispatcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Dispatcher{
		registry: registry,
		sql:      sqlExecutor,
		backup:   backup,
		restore:  restore,
		logger:   logger,
	}
}

// AddObserver 注册观察者，需在 Run 之前调用
func (d *Dispatcher) AddObserver(o Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, o)
}

func (d *Dispatcher) snapshotObservers() []Observer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Observer, len(d.observers))
	copy(out, d.observers)
	return out
}

// NewRunID 生成运行 ID
func NewRunID() string {
	return uuid.Must(uuid.NewV4()).String()
}

// Run 使用新生成的运行 ID 执行任务
func (d *Dispatcher) Run(ctx context.Context, job *configs.Job) (*RunSummary, error) {
	return d.RunWithID(ctx, NewRunID(), job)
}

// RunWithID 执行任务
// 连接池、版本探测、枚举失败时返回 nil 和一个错误，此时不会产生任何单元结果
// 单元失败不会作为错误返回，只体现在汇总中
func (d *Dispatcher) RunWithID(ctx context.Context, runID string, job *configs.Job) (*RunSummary, error) {
	logger := d.logger.WithFields(logrus.Fields{
		"run_id": runID,
		"job":    job.Job.Name,
	})
	startedAt := time.Now()

	sourcePool, _, err := d.registry.AcquireOrCreate(job.PoolKey(configs.DirectionSource), job.Source.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: source %s: %w", ErrPoolCreate, job.Source.String(), err)
	}
	targetPool, _, err := d.registry.AcquireOrCreate(job.PoolKey(configs.DirectionTarget), job.Target.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: target %s: %w", ErrPoolCreate, job.Target.String(), err)
	}

	if err := d.probeVersions(ctx, logger, job, sourcePool, targetPool); err != nil {
		return nil, err
	}

	databases, err := NewEnumerator(d.sql, logger).ListDatabases(ctx, sourcePool, &job.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnumerate, err)
	}
	if len(databases) == 0 {
		logger.Warn("no database to migrate")
	}
	logger.WithField("databases", len(databases)).Info("migration started")

	observers := d.snapshotObservers()
	p := NewPipeline(PipelineConfig{
		SQL:           d.sql,
		Backup:        d.backup,
		Restore:       d.restore,
		TargetPool:    targetPool,
		Source:        &job.Source,
		Target:        &job.Target,
		KeepArtifacts: job.Options.ShouldKeepArtifacts(),
		Observers:     observers,
		Logger:        logger,
	})

	lim := limiter.New(job.Options.Concurrency)
	agg := NewAggregator(len(databases))

	var wg sync.WaitGroup
	for _, database := range databases {
		wg.Add(1)
		dssentry.Go(func() {
			defer wg.Done()
			r := d.runUnit(ctx, lim, p, observers, database)
			agg.Record(r)
			for _, o := range observers {
				o.OnResult(r)
			}
		})
	}
	wg.Wait()

	summary := &RunSummary{
		RunID:      runID,
		JobName:    job.Job.Name,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Results:    agg.Summary(),
	}
	counts := summary.Counts()
	logger.WithFields(logrus.Fields{
		"succeeded": counts[StateSucceeded],
		"failed":    counts[StateBackupFailed] + counts[StateRestoreFailed],
		"cancelled": counts[StateCancelled],
		"elapsed":   summary.FinishedAt.Sub(startedAt).Round(time.Millisecond),
	}).Info("migration finished")
	return summary, nil
}

// runUnit 获取许可后执行单元，许可在单元结束时释放
func (d *Dispatcher) runUnit(ctx context.Context, lim *limiter.Limiter, p *Pipeline, observers []Observer, database string) Result {
	permit, err := lim.Acquire(ctx)
	if err != nil {
		now := time.Now()
		for _, o := range observers {
			o.OnTransition(database, StatePending, StateCancelled)
		}
		return Result{
			Database:     database,
			State:        StateCancelled,
			Err:          err,
			ErrorMessage: err.Error(),
			StartedAt:    now,
			FinishedAt:   now,
		}
	}
	defer permit.Release()
	return p.Run(ctx, database)
}

func (d *Dispatcher) probeVersions(ctx context.Context, logger logrus.FieldLogger, job *configs.Job, sourcePool, targetPool *sql.DB) error {
	sourceVersion, err := d.sql.ServerVersion(ctx, sourcePool)
	if err != nil {
		return fmt.Errorf("%w: source %s: %w", ErrVersionProbe, job.Source.String(), err)
	}
	targetVersion, err := d.sql.ServerVersion(ctx, targetPool)
	if err != nil {
		return fmt.Errorf("%w: target %s: %w", ErrVersionProbe, job.Target.String(), err)
	}
	logger.WithFields(logrus.Fields{
		"source_version": sourceVersion,
		"target_version": targetVersion,
	}).Info("connected to mysql servers")

	sv, err := mysql.ParseServerVersion(sourceVersion)
	if err != nil {
		logger.WithError(err).Warn("unrecognized source version")
		return nil
	}
	tv, err := mysql.ParseServerVersion(targetVersion)
	if err != nil {
		logger.WithError(err).Warn("unrecognized target version")
		return nil
	}
	if mysql.TargetOlder(sv, tv) {
		logger.WithFields(logrus.Fields{
			"source_version": sv.String(),
			"target_version": tv.String(),
		}).Warn("target server is older than source, restore may fail")
	}
	return nil
}
