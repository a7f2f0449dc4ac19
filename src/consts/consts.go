package consts

import (
	"fmt"
	"runtime"
)

const (
	AppName = "datasync"
)

// 以下字段通过 -ldflags 在链接阶段注入
var (
	BuildTime  string
	AppVersion string
	GitHash    string
)

// Info 构建信息
type Info struct {
	AppName    string `json:"app_name"`
	AppVersion string `json:"app_version"`
	BuildTime  string `json:"build_time"`
	GitHash    string `json:"git_hash"`
	Platform   string `json:"platform"`
	GoVersion  string `json:"go_version"`
}

// GetAppInfo 返回应用信息
// 必须用函数，变量初始化时 ldflags 注入的值还没生效
func GetAppInfo() Info {
	version := AppVersion
	if version == "" {
		version = "dev"
	}
	return Info{
		AppName:    AppName,
		AppVersion: version,
		BuildTime:  BuildTime,
		GitHash:    GitHash,
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		GoVersion:  runtime.Version(),
	}
}

// Release 返回上报用的版本号
func (i Info) Release() string {
	if i.GitHash == "" {
		return fmt.Sprintf("%s@%s", i.AppName, i.AppVersion)
	}
	return fmt.Sprintf("%s@%s+%s", i.AppName, i.AppVersion, i.GitHash)
}
