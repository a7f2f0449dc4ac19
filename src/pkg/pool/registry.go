// Package pool 提供按键共享的 MySQL 连接池注册表
package pool

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	_ "github.com/go-sql-driver/mysql"
)

// MaxOpenConns 每个连接池的最大物理连接数
const MaxOpenConns = 5

// ErrCreatePool 连接池创建失败
var ErrCreatePool = errors.New("failed to create connection pool")

// Opener 根据 dsn 构造连接池，不应发起网络 I/O
type Opener func(dsn string) (*sql.DB, error)

// OpenMySQL 默认的 Opener
// sql.Open 只解析 dsn，连接在第一次使用时才建立
func OpenMySQL(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(MaxOpenConns)
	db.SetMaxIdleConns(MaxOpenConns)
	return db, nil
}

// Registry 连接池注册表
// 同一个键在注册表生命周期内只创建一次连接池，之后不会被替换或淘汰
type Registry struct {
	mu     sync.Mutex
	pools  map[string]*sql.DB
	opener Opener
}

// NewRegistry 创建注册表，opener 为 nil 时使用 OpenMySQL
func NewRegistry(opener Opener) *Registry {
	if opener == nil {
		opener = OpenMySQL
	}
	return &Registry{
		pools:  make(map[string]*sql.DB),
		opener: opener,
	}
}

// AcquireOrCreate 获取键对应的连接池，不存在时创建
// created 为 false 表示连接池已存在，此时 dsn 被忽略
func (r *Registry) AcquireOrCreate(key, dsn string) (db *sql.DB, created bool, err error) {
	if existing, ok := r.Lookup(key); ok {
		return existing, false, nil
	}

	// 在锁外构造，构造过程不做 I/O
	fresh, err := r.opener(dsn)
	if err != nil {
		return nil, false, fmt.Errorf("%w %s: %v", ErrCreatePool, key, err)
	}

	r.mu.Lock()
	existing, ok := r.pools[key]
	if !ok {
		r.pools[key] = fresh
	}
	r.mu.Unlock()

	if ok {
		// 并发创建时先插入者胜出
		_ = fresh.Close()
		return existing, false, nil
	}
	return fresh, true, nil
}

// Lookup 查找键对应的连接池
func (r *Registry) Lookup(key string) (*sql.DB, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	db, ok := r.pools[key]
	return db, ok
}

// Keys 返回所有已注册的键（已排序）
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.pools))
	for k := range r.pools {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close 关闭所有连接池，进程退出前调用
func (r *Registry) Close() error {
	r.mu.Lock()
	pools := r.pools
	r.pools = make(map[string]*sql.DB)
	r.mu.Unlock()

	var errs []error
	for _, db := range pools {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
