//go:build windows

package configs

// PermissionDiagnostics Windows 上不做 Unix 权限检查
type PermissionDiagnostics struct {
	Suggestions []string
}

// DiagnoseFilePermission 诊断任务文件为什么读不了
func DiagnoseFilePermission(filePath string) *PermissionDiagnostics {
	return &PermissionDiagnostics{}
}

// FormatError 格式化为附加在错误信息后面的提示
func (d *PermissionDiagnostics) FormatError() string {
	return ""
}
