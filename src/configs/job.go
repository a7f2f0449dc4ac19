// Package configs 负责加载与校验迁移任务配置文件
package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

// ErrLoadJob 任务配置文件读取或解析失败
var ErrLoadJob = errors.New("failed to load job config")

// 环境变量：配置文件中密码留空时从这里读取
const (
	EnvSourcePassword = "DATASYNC_SOURCE_PASSWORD"
	EnvTargetPassword = "DATASYNC_TARGET_PASSWORD"
	EnvSMTPPassword   = "DATASYNC_SMTP_PASSWORD"
)

// 连接池方向
const (
	DirectionSource = "source"
	DirectionTarget = "target"
)

// JobInfo 任务基本信息，对应配置文件中的 [job]
type JobInfo struct {
	Name         string `toml:"name" yaml:"name"`
	Type         string `toml:"type" yaml:"type"`
	DatabaseType string `toml:"database_type" yaml:"database_type"`
}

// Endpoint 源端或目标端的连接信息
// 加载完成后只读，由所有管道共享
type Endpoint struct {
	Host     string `toml:"host" yaml:"host"`
	Port     string `toml:"port" yaml:"port"`
	User     string `toml:"user" yaml:"user"`
	Password string `toml:"password" yaml:"password"`
	// DBName 只同步单个数据库（留空表示全部）
	DBName string `toml:"db_name" yaml:"db_name,omitempty"`
	// TableName 只同步单张表，透传给备份执行器
	TableName string `toml:"table_name" yaml:"table_name,omitempty"`
	// ExcludeDatabases 枚举时跳过的数据库（仅源端生效）
	ExcludeDatabases []string `toml:"exclude_databases" yaml:"exclude_databases,omitempty"`
}

// Addr 返回 host:port
func (e *Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, e.Port)
}

// DSN 返回 go-sql-driver/mysql 格式的连接串，不指定默认库
func (e *Endpoint) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = e.User
	cfg.Passwd = e.Password
	cfg.Net = "tcp"
	cfg.Addr = e.Addr()
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// Restriction 返回单库限制，没有限制时返回 "all"
func (e *Endpoint) Restriction() string {
	if e.DBName != "" {
		return e.DBName
	}
	return "all"
}

// IsExcluded 判断数据库是否在排除列表中
func (e *Endpoint) IsExcluded(name string) bool {
	return slices.Contains(e.ExcludeDatabases, name)
}

// String 不输出密码，可以直接写进日志
func (e *Endpoint) String() string {
	return fmt.Sprintf("%s@%s/%s", e.User, e.Addr(), e.Restriction())
}

func (e *Endpoint) verify(side string) error {
	if strings.TrimSpace(e.Host) == "" {
		return fmt.Errorf("%s.host 不能为空", side)
	}
	if strings.TrimSpace(e.User) == "" {
		return fmt.Errorf("%s.user 不能为空", side)
	}
	port, err := strconv.Atoi(e.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("%s.port 无效: %q", side, e.Port)
	}
	return nil
}

// Options 运行参数，对应配置文件中的 [options]
type Options struct {
	// Concurrency 同时执行的管道数
	Concurrency int `toml:"concurrency" yaml:"concurrency"`
	// DumpDir 备份文件目录
	DumpDir       string `toml:"dump_dir" yaml:"dump_dir"`
	MysqldumpPath string `toml:"mysqldump_path" yaml:"mysqldump_path"`
	MysqlPath     string `toml:"mysql_path" yaml:"mysql_path"`
	// KeepArtifacts 还原成功后是否保留备份文件（nil 表示保留）
	KeepArtifacts *bool `toml:"keep_artifacts" yaml:"keep_artifacts,omitempty"`
	// MinFreeSpaceMB 备份前要求的最小剩余空间（<=0 表示不检查）
	MinFreeSpaceMB      int    `toml:"min_free_space_mb" yaml:"min_free_space_mb"`
	DefaultCharacterSet string `toml:"default_character_set" yaml:"default_character_set"`
}

// ShouldKeepArtifacts 还原成功后是否保留备份文件
func (o *Options) ShouldKeepArtifacts() bool {
	if o.KeepArtifacts == nil {
		return true
	}
	return *o.KeepArtifacts
}

// Job 一个迁移任务的完整描述
type Job struct {
	Job    JobInfo  `toml:"job" yaml:"job"`
	Source Endpoint `toml:"source" yaml:"source"`
	Target Endpoint `toml:"target" yaml:"target"`
	// Handler 预留，目前不使用
	Handler map[string]any `toml:"handler" yaml:"handler,omitempty"`
	Options Options        `toml:"options" yaml:"options"`
	Notify  Notify         `toml:"notify" yaml:"notify,omitempty"`

	File string `toml:"-" yaml:"-"`
}

// Notify 运行结束后的通知，对应配置文件中的 [notify]
type Notify struct {
	Email EmailNotify `toml:"email" yaml:"email,omitempty"`
}

// EmailNotify 邮件通知配置
type EmailNotify struct {
	Enable   bool     `toml:"enable" yaml:"enable"`
	SMTPHost string   `toml:"smtp_host" yaml:"smtp_host"`
	SMTPPort int      `toml:"smtp_port" yaml:"smtp_port"`
	Username string   `toml:"username" yaml:"username"`
	Password string   `toml:"password" yaml:"password"`
	From     string   `toml:"from" yaml:"from"`
	To       []string `toml:"to" yaml:"to"`
	// OnlyOnFailure 只在有库失败或运行中止时发送
	OnlyOnFailure bool `toml:"only_on_failure" yaml:"only_on_failure"`
}

func (e *EmailNotify) verify() error {
	if !e.Enable {
		return nil
	}
	if strings.TrimSpace(e.SMTPHost) == "" {
		return fmt.Errorf("notify.email.smtp_host 不能为空")
	}
	if e.SMTPPort <= 0 || e.SMTPPort > 65535 {
		return fmt.Errorf("notify.email.smtp_port 无效: %d", e.SMTPPort)
	}
	if len(e.To) == 0 {
		return fmt.Errorf("notify.email.to 不能为空")
	}
	return nil
}

var defaultOptions = Options{
	Concurrency:         5,
	DumpDir:             "sql",
	MysqldumpPath:       "mysqldump",
	MysqlPath:           "mysql",
	MinFreeSpaceMB:      0,
	DefaultCharacterSet: "utf8",
}

// PoolKey 返回某一端连接池在注册表中的键
func (j *Job) PoolKey(direction string) string {
	ep := &j.Source
	if direction == DirectionTarget {
		ep = &j.Target
	}
	return fmt.Sprintf("%s_%s_%s", direction, j.Job.Name, ep.Restriction())
}

// Verify will return an error when this job has problem.
func (j *Job) Verify() error {
	if j == nil {
		return fmt.Errorf("任务配置不存在")
	}
	if strings.TrimSpace(j.Job.Name) == "" {
		return fmt.Errorf("job.name 不能为空")
	}
	if strings.TrimSpace(j.Job.Type) == "" {
		return fmt.Errorf("job.type 不能为空")
	}
	if strings.TrimSpace(j.Job.DatabaseType) == "" {
		return fmt.Errorf("job.database_type 不能为空")
	}
	if err := j.Source.verify(DirectionSource); err != nil {
		return err
	}
	if err := j.Target.verify(DirectionTarget); err != nil {
		return err
	}
	if j.Options.Concurrency <= 0 {
		return fmt.Errorf("options.concurrency 必须大于 0")
	}
	return j.Notify.Email.verify()
}

// ApplyEnv 用环境变量补齐留空的密码
func (j *Job) ApplyEnv(lookup func(string) (string, bool)) {
	if j.Source.Password == "" {
		if v, ok := lookup(EnvSourcePassword); ok {
			j.Source.Password = v
		}
	}
	if j.Target.Password == "" {
		if v, ok := lookup(EnvTargetPassword); ok {
			j.Target.Password = v
		}
	}
	if j.Notify.Email.Password == "" {
		if v, ok := lookup(EnvSMTPPassword); ok {
			j.Notify.Email.Password = v
		}
	}
}

func newJobPostProcess(j *Job) {
	if j.Options.Concurrency == 0 {
		j.Options.Concurrency = defaultOptions.Concurrency
	}
	if j.Options.DumpDir == "" {
		j.Options.DumpDir = defaultOptions.DumpDir
	}
	if j.Options.MysqldumpPath == "" {
		j.Options.MysqldumpPath = defaultOptions.MysqldumpPath
	}
	if j.Options.MysqlPath == "" {
		j.Options.MysqlPath = defaultOptions.MysqlPath
	}
	if j.Options.DefaultCharacterSet == "" {
		j.Options.DefaultCharacterSet = defaultOptions.DefaultCharacterSet
	}
	if j.Notify.Email.From == "" {
		j.Notify.Email.From = j.Notify.Email.Username
	}
	j.Source.DBName = strings.TrimSpace(j.Source.DBName)
	j.Target.DBName = strings.TrimSpace(j.Target.DBName)
}

// Format 配置文件格式
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatOf 根据扩展名判断配置文件格式，无法识别时按 TOML 处理
func FormatOf(file string) Format {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yml", ".yaml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// NewJobWithBytes 解析配置内容并补齐默认值，不做校验
func NewJobWithBytes(b []byte, format Format) (*Job, error) {
	job := &Job{}
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(b, job)
	default:
		err = toml.Unmarshal(b, job)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadJob, err)
	}
	newJobPostProcess(job)
	return job, nil
}

// LoadJob 读取任务配置文件，补齐环境变量中的密码并校验
func LoadJob(file string) (*Job, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: can`t open file: %s: %v%s", ErrLoadJob, file, err, DiagnoseFilePermission(file).FormatError())
		}
		return nil, fmt.Errorf("%w: can`t open file: %s: %v", ErrLoadJob, file, err)
	}
	job, err := NewJobWithBytes(b, FormatOf(file))
	if err != nil {
		return nil, err
	}
	job.File = file
	job.ApplyEnv(os.LookupEnv)
	if err := job.Verify(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadJob, file, err)
	}
	return job, nil
}
