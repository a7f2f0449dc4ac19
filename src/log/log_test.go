package log

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStderrOnly(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Stderr: &buf})
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	l.Debug("hidden")
	l.WithField("database", "shop").Info("visible")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "database=shop")
}

func TestNewDebugWritesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var buf bytes.Buffer
	l, err := New(Config{Debug: true, Dir: dir, SaveEveryLog: true, Stderr: &buf})
	require.NoError(t, err)

	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	l.Debug("debug line")
	require.NoError(t, l.Close())

	rotated := filepath.Join(dir, "datasync-"+time.Now().Format("2006-01-02")+".log")
	b, err := os.ReadFile(rotated)
	require.NoError(t, err)
	assert.Contains(t, string(b), "debug line")

	runs, _ := filepath.Glob(filepath.Join(dir, "run-*.log"))
	assert.Len(t, runs, 1)

	// 恢复标准 logger，避免影响其他测试
	l, err = New(Config{Stderr: &buf})
	require.NoError(t, err)
	_ = l.Close()
}

func TestDailyRotatingWriterPurgesOldFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.Local)
	old := filepath.Join(dir, "datasync-2024-05-01.log")
	recent := filepath.Join(dir, "datasync-2024-05-08.log")
	require.NoError(t, os.WriteFile(old, nil, 0644))
	require.NoError(t, os.WriteFile(recent, nil, 0644))

	w := &dailyRotatingWriter{dir: dir, base: "datasync", retentionDays: 3, now: func() time.Time { return now }}
	_, err := w.Write([]byte("hello\n"))
	require.NoError(t, err)
	defer w.Close()

	assert.NoFileExists(t, old)
	assert.FileExists(t, recent)
	assert.FileExists(t, filepath.Join(dir, "datasync-2024-05-10.log"))

	now = now.AddDate(0, 0, 1)
	_, err = w.Write([]byte("next day\n"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dir, "datasync-2024-05-11.log"))
	require.NoError(t, err)
	assert.Equal(t, "next day\n", string(b))
}
