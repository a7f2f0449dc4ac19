// Package history 在本地 SQLite 中记录每次迁移运行及各库结果，仅用于查询
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/datasync-go/datasync/src/pipeline"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

var (
	// ErrMigrationFailed 历史库表结构迁移失败
	ErrMigrationFailed = errors.New("history schema migration failed")
	// ErrRunNotFound 运行记录不存在
	ErrRunNotFound = errors.New("run not found")
)

// RunStatus 运行状态
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	// RunStatusFailed 至少一个库失败或被取消
	RunStatusFailed RunStatus = "failed"
	// RunStatusAborted 运行在派发前就失败（连接池、版本探测、枚举）
	RunStatusAborted RunStatus = "aborted"
)

// Run 一次运行的记录
type Run struct {
	ID           string     `json:"id"`
	JobName      string     `json:"job_name"`
	JobFile      string     `json:"job_file"`
	Source       string     `json:"source"`
	Target       string     `json:"target"`
	Status       RunStatus  `json:"status"`
	ErrorMessage string     `json:"error,omitempty"`
	Total        int        `json:"total"`
	Succeeded    int        `json:"succeeded"`
	Failed       int        `json:"failed"`
	Cancelled    int        `json:"cancelled"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Store 运行历史存储
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	logger logrus.FieldLogger
}

// Open 打开（必要时创建）历史库并执行表结构迁移
func Open(dbPath string, logger logrus.FieldLogger) (*Store, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger.WithField("history_db", dbPath),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	sourceDriver, err := iofs.New(embeddedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("%w: iofs source: %v", ErrMigrationFailed, err)
	}
	dbDriver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("%w: sqlite driver: %v", ErrMigrationFailed, err)
	}
	mig, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}

	from, _, _ := mig.Version()
	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}
	to, _, _ := mig.Version()
	if from != to {
		s.logger.WithFields(logrus.Fields{
			"from_version": from,
			"to_version":   to,
		}).Info("history schema migrated")
	}
	return nil
}

// Close 关闭历史库
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun 写入一条运行中的记录
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, job_name, job_file, source, target, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.JobName, run.JobFile, run.Source, run.Target, RunStatusRunning, run.StartedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// RecordResult 写入一个库的结果
func (s *Store) RecordResult(ctx context.Context, runID string, r pipeline.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO unit_results (run_id, database_name, state, error_message, artifact, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, runID, r.Database, string(r.State), r.ErrorMessage, r.Artifact, r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert result %s/%s: %w", runID, r.Database, err)
	}
	return nil
}

// FinishRun 更新运行的最终状态
// summary 为 nil 表示运行被致命错误中止
func (s *Store) FinishRun(ctx context.Context, runID string, summary *pipeline.RunSummary, runErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := RunStatusAborted
	finishedAt := time.Now()
	var total, succeeded, failed, canceled int
	var message string
	if runErr != nil {
		message = runErr.Error()
	}
	if summary != nil {
		counts := summary.Counts()
		total = len(summary.Results)
		succeeded = counts[pipeline.StateSucceeded]
		failed = counts[pipeline.StateBackupFailed] + counts[pipeline.StateRestoreFailed]
		canceled = counts[pipeline.StateCancelled]
		finishedAt = summary.FinishedAt
		status = RunStatusSucceeded
		if !summary.OK() {
			status = RunStatusFailed
		}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, error_message = ?, total = ?, succeeded = ?, failed = ?, cancelled = ?, finished_at = ?
		WHERE id = ?
	`, status, message, total, succeeded, failed, canceled, finishedAt.UnixMilli(), runID)
	if err != nil {
		return fmt.Errorf("update run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// GetRun 查询单次运行
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, err
}

// ListRuns 按开始时间倒序列出最近的运行，limit <= 0 表示不限制
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := selectRuns + ` ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// UnitResults 按写入顺序（即完成顺序）返回某次运行的结果
func (s *Store) UnitResults(ctx context.Context, runID string) ([]pipeline.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT database_name, state, error_message, artifact, started_at, finished_at
		FROM unit_results WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list results of %s: %w", runID, err)
	}
	defer rows.Close()

	var results []pipeline.Result
	for rows.Next() {
		var (
			r                 pipeline.Result
			state             string
			started, finished int64
		)
		if err := rows.Scan(&r.Database, &state, &r.ErrorMessage, &r.Artifact, &started, &finished); err != nil {
			return nil, err
		}
		r.State = pipeline.UnitState(state)
		r.StartedAt = time.UnixMilli(started)
		r.FinishedAt = time.UnixMilli(finished)
		results = append(results, r)
	}
	return results, rows.Err()
}

const selectRuns = `
	SELECT id, job_name, job_file, source, target, status, error_message,
		total, succeeded, failed, cancelled, started_at, finished_at
	FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run      Run
		status   string
		started  int64
		finished sql.NullInt64
	)
	err := row.Scan(&run.ID, &run.JobName, &run.JobFile, &run.Source, &run.Target, &status, &run.ErrorMessage,
		&run.Total, &run.Succeeded, &run.Failed, &run.Cancelled, &started, &finished)
	if err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.StartedAt = time.UnixMilli(started)
	if finished.Valid {
		t := time.UnixMilli(finished.Int64)
		run.FinishedAt = &t
	}
	return &run, nil
}
