package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/datasync-go/datasync/src/configs"
)

type pipelineMocks struct {
	sql     *MockSQLExecutor
	backup  *MockBackupExecutor
	restore *MockRestoreExecutor
}

func newTestPipeline(t *testing.T, keep bool, observers ...Observer) (*Pipeline, pipelineMocks) {
	ctrl := gomock.NewController(t)
	m := pipelineMocks{
		sql:     NewMockSQLExecutor(ctrl),
		backup:  NewMockBackupExecutor(ctrl),
		restore: NewMockRestoreExecutor(ctrl),
	}
	job := testJob(1)
	p := NewPipeline(PipelineConfig{
		SQL:           m.sql,
		Backup:        m.backup,
		Restore:       m.restore,
		Source:        &job.Source,
		Target:        &job.Target,
		KeepArtifacts: keep,
		Observers:     observers,
	})
	return p, m
}

func TestPipelineBackupPanicBecomesBackupFailed(t *testing.T) {
	p, m := newTestPipeline(t, true)
	m.backup.EXPECT().Backup(gomock.Any(), gomock.Any(), "a").
		DoAndReturn(func(context.Context, *configs.Endpoint, string) (string, error) {
			panic("nil map write")
		})

	r := p.Run(context.Background(), "a")
	assert.Equal(t, StateBackupFailed, r.State)
	assert.ErrorIs(t, r.Err, ErrStagePanic)
	assert.Contains(t, r.ErrorMessage, "nil map write")
	assert.False(t, r.FinishedAt.IsZero())
}

func TestPipelineRestorePanicBecomesRestoreFailed(t *testing.T) {
	p, m := newTestPipeline(t, true)
	m.backup.EXPECT().Backup(gomock.Any(), gomock.Any(), "a").Return(artifactFor("a"), nil)
	m.sql.EXPECT().DatabaseExists(gomock.Any(), gomock.Any(), "a").Return(true, nil)
	m.restore.EXPECT().Restore(gomock.Any(), gomock.Any(), gomock.Any(), "a").
		DoAndReturn(func(context.Context, string, *configs.Endpoint, string) error {
			panic(errors.New("broken pipe"))
		})

	r := p.Run(context.Background(), "a")
	assert.Equal(t, StateRestoreFailed, r.State)
	assert.ErrorIs(t, r.Err, ErrStagePanic)
	assert.Equal(t, artifactFor("a"), r.Artifact)
}

func TestPipelineRemovesArtifactWhenNotKept(t *testing.T) {
	artifact := filepath.Join(t.TempDir(), "backup_a.sql")
	require.NoError(t, os.WriteFile(artifact, []byte("--"), 0644))

	p, m := newTestPipeline(t, false)
	m.backup.EXPECT().Backup(gomock.Any(), gomock.Any(), "a").Return(artifact, nil)
	m.sql.EXPECT().DatabaseExists(gomock.Any(), gomock.Any(), "a").Return(true, nil)
	m.restore.EXPECT().Restore(gomock.Any(), artifact, gomock.Any(), "a").Return(nil)

	r := p.Run(context.Background(), "a")
	assert.Equal(t, StateSucceeded, r.State)
	assert.NoFileExists(t, artifact)
}

func TestPipelineKeepsArtifactOnFailure(t *testing.T) {
	artifact := filepath.Join(t.TempDir(), "backup_a.sql")
	require.NoError(t, os.WriteFile(artifact, []byte("--"), 0644))

	p, m := newTestPipeline(t, false)
	m.backup.EXPECT().Backup(gomock.Any(), gomock.Any(), "a").Return(artifact, nil)
	m.sql.EXPECT().DatabaseExists(gomock.Any(), gomock.Any(), "a").Return(true, nil)
	m.restore.EXPECT().Restore(gomock.Any(), artifact, gomock.Any(), "a").Return(errors.New("failed"))

	r := p.Run(context.Background(), "a")
	assert.Equal(t, StateRestoreFailed, r.State)
	assert.FileExists(t, artifact)
}

func TestPipelineCancelledBeforeStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	observer := NewMockObserver(ctrl)
	observer.EXPECT().OnTransition("a", StatePending, StateCancelled)

	p, _ := newTestPipeline(t, true, observer)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := p.Run(ctx, "a")
	assert.Equal(t, StateCancelled, r.State)
	assert.ErrorIs(t, r.Err, context.Canceled)
}

func TestPipelineScrubsPasswordInErrorMessage(t *testing.T) {
	p, m := newTestPipeline(t, true)
	m.backup.EXPECT().Backup(gomock.Any(), gomock.Any(), "a").
		Return("", errors.New("exit status 2: mysqldump --password=pw --host=10.0.0.1"))

	r := p.Run(context.Background(), "a")
	assert.Equal(t, StateBackupFailed, r.State)
	assert.NotContains(t, r.ErrorMessage, "=pw")
	assert.Contains(t, r.Err.Error(), "=pw")
}

func TestEnumeratorExcludesDatabases(t *testing.T) {
	ctrl := gomock.NewController(t)
	executor := NewMockSQLExecutor(ctrl)
	executor.EXPECT().ListDatabases(gomock.Any(), gomock.Any()).
		Return([]string{"information_schema", "shop", "mysql", "blog", "sys"}, nil)

	source := &configs.Endpoint{ExcludeDatabases: []string{"information_schema", "mysql", "sys"}}
	names, err := NewEnumerator(executor, nil).ListDatabases(context.Background(), nil, source)
	require.NoError(t, err)
	assert.Equal(t, []string{"shop", "blog"}, names)
}

func TestEnumeratorKeepsServerOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	executor := NewMockSQLExecutor(ctrl)
	executor.EXPECT().ListDatabases(gomock.Any(), gomock.Any()).Return([]string{"zeta", "alpha", "mu"}, nil)

	names, err := NewEnumerator(executor, nil).ListDatabases(context.Background(), nil, &configs.Endpoint{})
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mu"}, names)
}

func TestEnumeratorPropagatesError(t *testing.T) {
	ctrl := gomock.NewController(t)
	executor := NewMockSQLExecutor(ctrl)
	executor.EXPECT().ListDatabases(gomock.Any(), gomock.Any()).Return(nil, errors.New("denied"))

	_, err := NewEnumerator(executor, nil).ListDatabases(context.Background(), nil, &configs.Endpoint{})
	assert.EqualError(t, err, "denied")
}

func TestAggregatorConcurrentRecord(t *testing.T) {
	agg := NewAggregator(0)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			agg.Record(Result{Database: "db", State: StateSucceeded})
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, agg.Len())
	assert.Len(t, agg.Summary(), 100)
}

func TestRunSummaryCounts(t *testing.T) {
	s := &RunSummary{Results: []Result{
		{Database: "a", State: StateSucceeded},
		{Database: "b", State: StateBackupFailed},
		{Database: "c", State: StateRestoreFailed},
		{Database: "d", State: StateCancelled},
	}}
	counts := s.Counts()
	assert.Equal(t, 1, counts[StateSucceeded])
	assert.Equal(t, 1, counts[StateBackupFailed])
	assert.Equal(t, 1, counts[StateRestoreFailed])
	assert.Equal(t, 1, counts[StateCancelled])
	assert.False(t, s.OK())
	assert.Len(t, s.Failed(), 3)

	assert.True(t, (&RunSummary{}).OK())
}

func TestUnitStateClassification(t *testing.T) {
	for _, s := range AllStates {
		switch s {
		case StatePending, StateBackupInProgress, StateRestoreInProgress:
			assert.False(t, s.IsTerminal(), s)
		default:
			assert.True(t, s.IsTerminal(), s)
		}
	}
	assert.True(t, StateBackupFailed.IsFailure())
	assert.True(t, StateRestoreFailed.IsFailure())
	assert.False(t, StateCancelled.IsFailure())
}
