// Package log 初始化全局 logrus logger
package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Config 日志配置
type Config struct {
	Debug bool
	// Dir 日志目录，为空时只输出到 stderr
	Dir string
	// SaveEveryLog 每次运行单独写一个 run-*.log
	SaveEveryLog bool
	// RotateDays 按天滚动文件的保留天数，<=0 表示不清理
	RotateDays int
	// Stderr 默认 os.Stderr，测试时替换
	Stderr io.Writer
}

const rotateBase = "datasync"

// Logger 包装标准 logger 及其打开的文件
type Logger struct {
	*logrus.Logger
	closers []io.Closer
}

// Close 关闭日志文件
func (l *Logger) Close() error {
	var errs []error
	for _, c := range l.closers {
		errs = append(errs, c.Close())
	}
	l.closers = nil
	return errors.Join(errs...)
}

// New 配置 logrus 标准 logger
func New(cfg Config) (*Logger, error) {
	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	writers := []io.Writer{stderr}
	l := &Logger{Logger: logrus.StandardLogger()}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return nil, fmt.Errorf("create log dir %s: %w", cfg.Dir, err)
		}
		if cfg.SaveEveryLog {
			name := filepath.Join(cfg.Dir, time.Now().Format("run-2006-01-02-15-04-05")+".log")
			f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", name, err)
			}
			writers = append(writers, f)
			l.closers = append(l.closers, f)
		}
		rot, err := newDailyRotatingWriter(cfg.Dir, rotateBase, cfg.RotateDays)
		if err != nil {
			_ = l.Close()
			return nil, err
		}
		writers = append(writers, rot)
		l.closers = append(l.closers, rot)
	}

	l.SetOutput(io.MultiWriter(writers...))
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	if cfg.Debug {
		l.SetLevel(logrus.DebugLevel)
		l.SetReportCaller(true)
	} else {
		l.SetLevel(logrus.InfoLevel)
		l.SetReportCaller(false)
	}
	return l, nil
}

// dailyRotatingWriter 按天切分，文件名 <base>-YYYY-MM-DD.log
type dailyRotatingWriter struct {
	dir           string
	base          string
	retentionDays int
	now           func() time.Time

	mu     sync.Mutex
	curDay string
	file   *os.File
}

func newDailyRotatingWriter(dir, base string, retentionDays int) (*dailyRotatingWriter, error) {
	w := &dailyRotatingWriter{dir: dir, base: base, retentionDays: retentionDays, now: time.Now}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.rotateLocked(w.now()); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *dailyRotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.rotateLocked(w.now()); err != nil {
		return 0, err
	}
	return w.file.Write(p)
}

func (w *dailyRotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.curDay = ""
	return err
}

func (w *dailyRotatingWriter) rotateLocked(now time.Time) error {
	day := now.Format("2006-01-02")
	if w.file != nil && day == w.curDay {
		return nil
	}
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	name := filepath.Join(w.dir, w.base+"-"+day+".log")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", name, err)
	}
	w.file = f
	w.curDay = day
	w.purgeLocked(now)
	return nil
}

func (w *dailyRotatingWriter) purgeLocked(now time.Time) {
	if w.retentionDays <= 0 {
		return
	}
	cutoff := now.AddDate(0, 0, -w.retentionDays)
	prefix := w.base + "-"
	files, _ := filepath.Glob(filepath.Join(w.dir, prefix+"*.log"))
	for _, f := range files {
		dateStr := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(f), prefix), ".log")
		t, err := time.ParseInLocation("2006-01-02", dateStr, now.Location())
		if err == nil && t.Before(cutoff) {
			_ = os.Remove(f)
		}
	}
}
