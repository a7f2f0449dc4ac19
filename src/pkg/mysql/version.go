package mysql

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
)

// 只取版本号开头的 x.y.z，后缀（-log、-MariaDB-...）忽略
var versionPattern = regexp.MustCompile(`^(\d+)\.(\d+)(?:\.(\d+))?`)

// ParseServerVersion 解析 SELECT VERSION() 的结果
func ParseServerVersion(raw string) (*semver.Version, error) {
	m := versionPattern.FindString(raw)
	if m == "" {
		return nil, fmt.Errorf("解析数据库版本失败: %q", raw)
	}
	v, err := semver.NewVersion(m)
	if err != nil {
		return nil, fmt.Errorf("解析数据库版本失败: %q: %w", raw, err)
	}
	return v, nil
}

// TargetOlder 判断目标端主次版本是否低于源端
func TargetOlder(source, target *semver.Version) bool {
	if target.Major() != source.Major() {
		return target.Major() < source.Major()
	}
	return target.Minor() < source.Minor()
}
