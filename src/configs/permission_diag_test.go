//go:build !windows

package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnoseMissingFile(t *testing.T) {
	diag := DiagnoseFilePermission(filepath.Join(t.TempDir(), "missing.toml"))
	assert.False(t, diag.FileExists)
	assert.Contains(t, diag.FormatError(), "不存在")
}

func TestDiagnoseReadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.toml")
	require.NoError(t, os.WriteFile(path, []byte("[job]"), 0644))

	diag := DiagnoseFilePermission(path)
	assert.True(t, diag.FileExists)
	assert.True(t, diag.CanRead)
	assert.Empty(t, diag.FormatError())
}

func TestDiagnoseUnreadableFile(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root can read any file")
	}
	path := filepath.Join(t.TempDir(), "job.toml")
	require.NoError(t, os.WriteFile(path, []byte("[job]"), 0000))

	diag := DiagnoseFilePermission(path)
	assert.False(t, diag.CanRead)
	assert.Contains(t, diag.FormatError(), "无法读取")

	_, err := LoadJob(path)
	assert.ErrorIs(t, err, ErrLoadJob)
	assert.Contains(t, err.Error(), "权限诊断信息")
}
