package dump

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/sirupsen/logrus"

	"github.com/datasync-go/datasync/src/configs"
)

// MysqlRestore 调用 mysql 客户端把备份文件导入目标库
type MysqlRestore struct {
	path         string
	characterSet string
	logger       logrus.FieldLogger
}

// NewMysqlRestore 创建还原执行器
func NewMysqlRestore(path, characterSet string, logger logrus.FieldLogger) *MysqlRestore {
	if path == "" {
		path = "mysql"
	}
	if characterSet == "" {
		characterSet = "utf8"
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MysqlRestore{path: path, characterSet: characterSet, logger: logger}
}

// RestoreArgs 构造 mysql 参数
// 密码为空时不传 -p，否则 mysql 会等待交互输入
func RestoreArgs(ep *configs.Endpoint, database, characterSet string) []string {
	args := []string{
		"--default-character-set=" + characterSet,
		"-h" + ep.Host,
		"-P" + ep.Port,
		"-u" + ep.User,
	}
	if ep.Password != "" {
		args = append(args, "-p"+ep.Password)
	}
	return append(args, database)
}

// Restore 以备份文件作为标准输入执行 mysql
func (r *MysqlRestore) Restore(ctx context.Context, artifact string, ep *configs.Endpoint, database string) error {
	in, err := os.Open(artifact)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrRestoreFailed, artifact, err)
	}
	defer in.Close()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.path, RestoreArgs(ep, database, r.characterSet)...)
	diag := stderrLogger(r.logger.WithField("database", database))
	cmd.Stdin = in
	cmd.Stderr = io.MultiWriter(&stderr, diag)

	r.logger.WithFields(logrus.Fields{
		"database": database,
		"target":   ep.String(),
		"artifact": artifact,
	}).Debug("running mysql restore")

	err = cmd.Run()
	diag.Flush()
	if err != nil {
		return fmt.Errorf("%w: %s: %v: %s", ErrRestoreFailed, database, err, DecodeDiagnostic(stderr.Bytes()))
	}
	return nil
}
