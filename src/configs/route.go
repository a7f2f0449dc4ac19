package configs

import "strings"

// 支持的数据库类型与任务类型
const (
	DatabaseTypeMySQL = "mysql"

	JobTypeAllDatabaseSync  = "all_database_sync"
	JobTypeFullDatabaseSync = "full_database_sync"
)

// Route 任务分派结果
// 不支持的数据库类型或任务类型不是错误，而是一个明确的 no-op 结果
type Route int

const (
	// RouteUnsupportedEngine 不支持的数据库类型
	RouteUnsupportedEngine Route = iota
	// RouteUnsupportedKind 数据库类型受支持，但任务类型不支持
	RouteUnsupportedKind
	// RouteMySQLFullSync MySQL 全库同步
	RouteMySQLFullSync
)

func (r Route) String() string {
	switch r {
	case RouteMySQLFullSync:
		return "mysql_full_sync"
	case RouteUnsupportedKind:
		return "unsupported_job_type"
	default:
		return "unsupported_database_type"
	}
}

// Supported 是否有对应的处理流程
func (r Route) Supported() bool {
	return r == RouteMySQLFullSync
}

func normalizeKind(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}

// Route 根据数据库类型与任务类型决定处理流程
func (j *Job) Route() Route {
	switch normalizeKind(j.Job.DatabaseType) {
	case DatabaseTypeMySQL:
		switch normalizeKind(j.Job.Type) {
		case JobTypeAllDatabaseSync, JobTypeFullDatabaseSync:
			return RouteMySQLFullSync
		default:
			return RouteUnsupportedKind
		}
	default:
		return RouteUnsupportedEngine
	}
}
