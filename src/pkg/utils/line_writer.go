// Package utils 子进程输出相关的小工具
package utils

import (
	"bytes"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// LineHandler 行处理函数
// line 不含换行符，isImportant 表示是否命中关键字
type LineHandler func(line string, isImportant bool)

// MaxLineLength 没有换行的数据超过此长度时强制按一行输出
const MaxLineLength = 4096

// DefaultKeywords 默认关键字，mysql 客户端的诊断基本都带这些词
var DefaultKeywords = []string{"error", "fatal", "fail", "denied", "warning", "warn"}

// FilteredLineWriter 按行缓冲的 io.Writer
// Verbose 为 false 时只把命中关键字的行交给 handler
type FilteredLineWriter struct {
	handler  LineHandler
	keywords []string
	verbose  bool

	mu  sync.Mutex
	buf []byte
}

// NewFilteredLineWriter 创建 FilteredLineWriter
func NewFilteredLineWriter(handler LineHandler, verbose bool, keywords ...string) *FilteredLineWriter {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	return &FilteredLineWriter{
		handler:  handler,
		keywords: keywords,
		verbose:  verbose,
	}
}

func (w *FilteredLineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.handleLine(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
	if len(w.buf) > MaxLineLength {
		end := safeBoundary(w.buf)
		w.handleLine(string(w.buf[:end]))
		w.buf = w.buf[end:]
	}
	return len(p), nil
}

// Flush 输出缓冲区中剩余的不完整行
func (w *FilteredLineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.handleLine(string(w.buf))
		w.buf = nil
	}
}

// safeBoundary 返回不截断多字节字符的切分位置
// 数据本身不是 UTF-8（比如 GBK）时直接整段输出
func safeBoundary(data []byte) int {
	n := len(data)
	for i := n - 1; i >= 0 && i >= n-utf8.UTFMax; i-- {
		if !utf8.RuneStart(data[i]) {
			continue
		}
		if utf8.FullRune(data[i:]) {
			return n
		}
		if i == 0 {
			return n
		}
		return i
	}
	return n
}

func (w *FilteredLineWriter) handleLine(line string) {
	line = strings.TrimRight(line, "\r")
	if w.handler == nil || strings.TrimSpace(line) == "" {
		return
	}
	lower := strings.ToLower(line)
	important := false
	for _, kw := range w.keywords {
		if strings.Contains(lower, kw) {
			important = true
			break
		}
	}
	if w.verbose || important {
		w.handler(line, important)
	}
}

// LevelOf 根据行内容选择日志级别
func LevelOf(line string, isImportant bool) logrus.Level {
	if !isImportant {
		return logrus.DebugLevel
	}
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "error"), strings.Contains(lower, "fatal"), strings.Contains(lower, "denied"):
		return logrus.ErrorLevel
	case strings.Contains(lower, "warn"):
		return logrus.WarnLevel
	default:
		return logrus.InfoLevel
	}
}

// NewLoggerWriter 把过滤后的行写入 logger，decode 为空时原样输出
func NewLoggerWriter(logger logrus.FieldLogger, verbose bool, decode func(string) string) *FilteredLineWriter {
	return NewFilteredLineWriter(func(line string, isImportant bool) {
		if decode != nil {
			line = decode(line)
		}
		switch LevelOf(line, isImportant) {
		case logrus.ErrorLevel:
			logger.Error(line)
		case logrus.WarnLevel:
			logger.Warn(line)
		case logrus.InfoLevel:
			logger.Info(line)
		default:
			logger.Debug(line)
		}
	}, verbose)
}
