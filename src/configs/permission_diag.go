//go:build !windows

package configs

import (
	"fmt"
	"os"
	"strings"
	"syscall"
)

// PermissionDiagnostics 任务文件的权限诊断信息
type PermissionDiagnostics struct {
	FilePath    string
	FileExists  bool
	CanRead     bool
	FileMode    os.FileMode
	OwnerUID    uint32
	OwnerGID    uint32
	CurrentUID  int
	CurrentGID  int
	Suggestions []string
}

// DiagnoseFilePermission 诊断任务文件为什么读不了
func DiagnoseFilePermission(filePath string) *PermissionDiagnostics {
	diag := &PermissionDiagnostics{
		FilePath:   filePath,
		CurrentUID: os.Getuid(),
		CurrentGID: os.Getgid(),
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			diag.Suggestions = append(diag.Suggestions,
				fmt.Sprintf("文件 %s 不存在，请检查任务文件路径", filePath))
		} else {
			diag.Suggestions = append(diag.Suggestions, fmt.Sprintf("无法获取文件信息: %v", err))
		}
		return diag
	}
	diag.FileExists = true
	diag.FileMode = info.Mode()
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		diag.OwnerUID = stat.Uid
		diag.OwnerGID = stat.Gid
	}

	if f, err := os.Open(filePath); err == nil {
		diag.CanRead = true
		f.Close()
		return diag
	}

	diag.Suggestions = append(diag.Suggestions,
		fmt.Sprintf("文件 %s 无法读取，当前权限: %v。文件所有者 UID:GID = %d:%d，当前进程 UID:GID = %d:%d",
			filePath, diag.FileMode, diag.OwnerUID, diag.OwnerGID, diag.CurrentUID, diag.CurrentGID))
	if diag.OwnerUID == 0 && diag.CurrentUID != 0 {
		diag.Suggestions = append(diag.Suggestions,
			"文件属于 root 用户，但 datasync 以非 root 用户运行",
			fmt.Sprintf("  可以执行: chmod o+r %s，或者 chown %d:%d %s", filePath, diag.CurrentUID, diag.CurrentGID, filePath))
	}
	return diag
}

// FormatError 格式化为附加在错误信息后面的提示
func (d *PermissionDiagnostics) FormatError() string {
	if len(d.Suggestions) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n========== 权限诊断信息 ==========\n")
	for _, s := range d.Suggestions {
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	sb.WriteString("===================================\n")
	return sb.String()
}
