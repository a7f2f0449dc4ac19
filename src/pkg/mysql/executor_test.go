package mysql

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 端口 1 上没有服务，所有查询都应该返回带上下文的错误
func unreachablePool(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("mysql", "root:pw@tcp(127.0.0.1:1)/?timeout=1s")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestExecutorWrapsConnectionErrors(t *testing.T) {
	db := unreachablePool(t)
	e := NewExecutor(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := e.ServerVersion(ctx, db)
	assert.ErrorContains(t, err, "query server version")

	_, err = e.ListDatabases(ctx, db)
	assert.Error(t, err)

	exists, err := e.DatabaseExists(ctx, db, "shop")
	assert.False(t, exists)
	assert.ErrorContains(t, err, "check database shop")

	assert.ErrorContains(t, e.CreateDatabase(ctx, db, "shop"), "create database shop")
}
