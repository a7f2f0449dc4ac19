// Package mysql 封装迁移过程中需要的少量 SQL 操作
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Executor 基于 database/sql 连接池执行 SQL
// 连接池由调用方管理，Executor 本身无状态，可以被所有管道共享
type Executor struct {
	logger logrus.FieldLogger
}

// NewExecutor 创建 SQL 执行器
func NewExecutor(logger logrus.FieldLogger) *Executor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Executor{logger: logger}
}

// ServerVersion 查询服务器版本
func (e *Executor) ServerVersion(ctx context.Context, db *sql.DB) (string, error) {
	var version string
	if err := db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		return "", fmt.Errorf("query server version: %w", err)
	}
	return version, nil
}

// ListDatabases 按服务器返回的顺序列出所有数据库
func (e *Executor) ListDatabases(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SHOW DATABASES")
	if err != nil {
		return nil, fmt.Errorf("show databases: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan database name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("show databases: %w", err)
	}
	e.logger.WithField("count", len(names)).Debug("listed databases")
	return names, nil
}

// DatabaseExists 检查数据库是否存在
func (e *Executor) DatabaseExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var schema string
	err := db.QueryRowContext(ctx,
		"SELECT SCHEMA_NAME FROM information_schema.SCHEMATA WHERE SCHEMA_NAME = ?",
		strings.TrimSpace(name),
	).Scan(&schema)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check database %s: %w", name, err)
	}
	return true, nil
}

// CreateDatabase 创建数据库（已存在时不报错）
func (e *Executor) CreateDatabase(ctx context.Context, db *sql.DB, name string) error {
	stmt := "CREATE DATABASE IF NOT EXISTS " + QuoteIdentifier(strings.TrimSpace(name))
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create database %s: %w", name, err)
	}
	e.logger.WithField("database", name).Info("database created")
	return nil
}

// QuoteIdentifier 用反引号包裹标识符，内部的反引号加倍转义
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
