package pipeline

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"

	"github.com/datasync-go/datasync/src/configs"
)

// Enumerator 列出需要迁移的数据库
type Enumerator struct {
	sql    SQLExecutor
	logger logrus.FieldLogger
}

// NewEnumerator 创建枚举器
func NewEnumerator(executor SQLExecutor, logger logrus.FieldLogger) *Enumerator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Enumerator{sql: executor, logger: logger}
}

// ListDatabases 返回源端需要迁移的数据库
// 配置了 db_name 时直接返回该库，不查询服务器
func (e *Enumerator) ListDatabases(ctx context.Context, pool *sql.DB, source *configs.Endpoint) ([]string, error) {
	if source.DBName != "" {
		return []string{source.DBName}, nil
	}

	names, err := e.sql.ListDatabases(ctx, pool)
	if err != nil {
		return nil, err
	}
	if len(source.ExcludeDatabases) == 0 {
		return names, nil
	}

	kept := make([]string, 0, len(names))
	for _, name := range names {
		if source.IsExcluded(name) {
			e.logger.WithField("database", name).Debug("database excluded")
			continue
		}
		kept = append(kept, name)
	}
	return kept, nil
}
