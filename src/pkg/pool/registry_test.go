package pool

import (
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDSN = "root:root@tcp(127.0.0.1:3306)/"

func TestRegistry_AcquireOrCreate(t *testing.T) {
	r := NewRegistry(nil)
	t.Cleanup(func() { _ = r.Close() })

	db, created, err := r.AcquireOrCreate("source_job_all", testDSN)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, db)
	assert.Equal(t, MaxOpenConns, db.Stats().MaxOpenConnections)

	// 同一个键再次创建返回同一个连接池，不报错
	again, created, err := r.AcquireOrCreate("source_job_all", "other:pwd@tcp(10.0.0.1:3306)/")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, db, again)

	looked, ok := r.Lookup("source_job_all")
	assert.True(t, ok)
	assert.Same(t, db, looked)
}

func TestRegistry_Lookup_Absent(t *testing.T) {
	r := NewRegistry(nil)
	db, ok := r.Lookup("missing")
	assert.False(t, ok)
	assert.Nil(t, db)
}

func TestRegistry_DistinctKeys(t *testing.T) {
	r := NewRegistry(nil)
	t.Cleanup(func() { _ = r.Close() })

	a, _, err := r.AcquireOrCreate("source_a_all", testDSN)
	require.NoError(t, err)
	b, _, err := r.AcquireOrCreate("source_b_all", testDSN)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, []string{"source_a_all", "source_b_all"}, r.Keys())
}

func TestRegistry_OpenerError(t *testing.T) {
	r := NewRegistry(func(string) (*sql.DB, error) {
		return nil, errors.New("boom")
	})
	db, created, err := r.AcquireOrCreate("target_job_all", testDSN)
	assert.ErrorIs(t, err, ErrCreatePool)
	assert.False(t, created)
	assert.Nil(t, db)
	_, ok := r.Lookup("target_job_all")
	assert.False(t, ok)
}

func TestRegistry_InvalidDSN(t *testing.T) {
	r := NewRegistry(nil)
	_, _, err := r.AcquireOrCreate("source_job_all", "not a dsn")
	assert.ErrorIs(t, err, ErrCreatePool)
}

func TestRegistry_ConcurrentSameKey(t *testing.T) {
	r := NewRegistry(nil)
	t.Cleanup(func() { _ = r.Close() })

	const n = 32
	var (
		wg      sync.WaitGroup
		created atomic.Int32
		handles = make([]*sql.DB, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			db, c, err := r.AcquireOrCreate("source_job_all", testDSN)
			assert.NoError(t, err)
			if c {
				created.Add(1)
			}
			handles[i] = db
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	for _, h := range handles {
		assert.Same(t, handles[0], h)
	}
	assert.Len(t, r.Keys(), 1)
}

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry(nil)
	_, _, err := r.AcquireOrCreate("source_job_all", testDSN)
	require.NoError(t, err)
	assert.NoError(t, r.Close())
	assert.Empty(t, r.Keys())
}
