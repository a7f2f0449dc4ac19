// Package dump 通过 mysqldump / mysql 客户端执行备份与还原
package dump

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/datasync-go/datasync/src/configs"
)

var (
	// ErrBackupFailed mysqldump 执行失败
	ErrBackupFailed = errors.New("mysqldump failed")
	// ErrRestoreFailed mysql 还原失败
	ErrRestoreFailed = errors.New("mysql restore failed")
)

// Mysqldump 调用 mysqldump 将单个数据库导出为 sql 文件
type Mysqldump struct {
	path         string
	dumpDir      string
	minFreeBytes uint64
	logger       logrus.FieldLogger

	// now 生成文件名时间戳，测试时可替换
	now func() time.Time
}

// MysqldumpConfig mysqldump 执行器配置
type MysqldumpConfig struct {
	Path    string // mysqldump 可执行文件
	DumpDir string // 备份文件目录
	// MinFreeBytes 备份前要求 DumpDir 至少有这么多剩余空间（0 表示不检查）
	MinFreeBytes uint64
}

// NewMysqldump 创建备份执行器
func NewMysqldump(cfg MysqldumpConfig, logger logrus.FieldLogger) *Mysqldump {
	if cfg.Path == "" {
		cfg.Path = "mysqldump"
	}
	if cfg.DumpDir == "" {
		cfg.DumpDir = "sql"
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Mysqldump{
		path:         cfg.Path,
		dumpDir:      cfg.DumpDir,
		minFreeBytes: cfg.MinFreeBytes,
		logger:       logger,
		now:          time.Now,
	}
}

// BackupArgs 构造 mysqldump 参数
func BackupArgs(ep *configs.Endpoint, database string) []string {
	args := []string{
		"--user=" + ep.User,
		"--password=" + ep.Password,
		"--host=" + ep.Host,
		"--port=" + ep.Port,
		"--compression-algorithms=zlib",
		"--single-transaction",
		"--set-gtid-purged=OFF",
		"--triggers",
		"--routines",
		"--events",
		database,
	}
	if ep.TableName != "" {
		args = append(args, ep.TableName)
	}
	return args
}

// ArtifactPath 返回本次备份的文件路径
func (m *Mysqldump) ArtifactPath(database string) string {
	name := fmt.Sprintf("backup_%s_%s.sql", database, m.now().Format("20060102_150405"))
	return filepath.Join(m.dumpDir, name)
}

// Backup 导出数据库，返回备份文件路径
// 失败时仍返回已经写入的（不完整的）文件路径
func (m *Mysqldump) Backup(ctx context.Context, ep *configs.Endpoint, database string) (string, error) {
	if m.minFreeBytes > 0 {
		if err := CheckFreeSpace(m.dumpDir, m.minFreeBytes); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(m.dumpDir, 0755); err != nil {
		return "", fmt.Errorf("%w: create dump dir: %v", ErrBackupFailed, err)
	}

	artifact := m.ArtifactPath(database)
	out, err := os.Create(artifact)
	if err != nil {
		return "", fmt.Errorf("%w: create %s: %v", ErrBackupFailed, artifact, err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, m.path, BackupArgs(ep, database)...)
	diag := stderrLogger(m.logger.WithField("database", database))
	cmd.Stdout = out
	cmd.Stderr = io.MultiWriter(&stderr, diag)

	m.logger.WithFields(logrus.Fields{
		"database": database,
		"source":   ep.String(),
		"artifact": artifact,
	}).Debug("running mysqldump")

	runErr := cmd.Run()
	diag.Flush()
	closeErr := out.Close()

	if runErr != nil {
		return artifact, fmt.Errorf("%w: %s: %v: %s", ErrBackupFailed, database, runErr, DecodeDiagnostic(stderr.Bytes()))
	}
	if closeErr != nil {
		return artifact, fmt.Errorf("%w: %s: %v", ErrBackupFailed, database, closeErr)
	}
	return artifact, nil
}
