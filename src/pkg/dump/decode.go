package dump

import (
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"github.com/datasync-go/datasync/src/pkg/utils"
)

// DecodeDiagnostic 将客户端的错误输出转换为 UTF-8
// 中文 Windows 下 mysql 客户端按 GBK 输出
func DecodeDiagnostic(b []byte) string {
	if utf8.Valid(b) {
		return strings.TrimSpace(string(b))
	}
	out, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), b)
	if err != nil {
		return strings.TrimSpace(strings.ToValidUTF8(string(b), "�"))
	}
	return strings.TrimSpace(string(out))
}

// stderrLogger 把客户端的诊断逐行写入日志，debug 级别下输出全部行
func stderrLogger(logger *logrus.Entry) *utils.FilteredLineWriter {
	verbose := logger.Logger.IsLevelEnabled(logrus.DebugLevel)
	return utils.NewLoggerWriter(logger, verbose, func(line string) string {
		return DecodeDiagnostic([]byte(line))
	})
}
