// Package sentry 封装 Sentry 上报与 goroutine panic 恢复
// 上报前会清除数据库密码等凭据
package sentry

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

var (
	initialized bool
	initMu      sync.RWMutex
)

const redacted = "[REDACTED]"

var sensitiveKeywords = []string{"password", "passwd", "pwd", "secret", "token", "dsn", "credential"}

var (
	// --password=xxx / --password xxx
	passwordFlagPattern = regexp.MustCompile(`(--password[= ])\S+`)
	// mysql 客户端的 -pxxx 写法
	shortPasswordPattern = regexp.MustCompile(`(^|\s)-p\S+`)
	// user:pass@tcp(host:port)/
	dsnPattern = regexp.MustCompile(`([\w.-]+):[^@\s/]*@(tcp|unix)\(`)
	// password = xxx / password: xxx
	keyValuePattern = regexp.MustCompile(`(?i)(password|passwd|pwd|secret|token)\s*[=:]\s*[^\s,}"\[\]][^\s,}"\]]*`)
)

// Init 初始化 Sentry，dsn 为空时不启用
func Init(dsn, environment, release string) error {
	if dsn == "" {
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
		BeforeSend:       beforeSendHook,
		SampleRate:       1.0,
	})
	if err != nil {
		return err
	}

	initMu.Lock()
	initialized = true
	initMu.Unlock()
	return nil
}

// IsInitialized 返回 Sentry 是否已初始化
func IsInitialized() bool {
	initMu.RLock()
	defer initMu.RUnlock()
	return initialized
}

// SetTag 给后续事件设置标签（例如 run_id、job）
func SetTag(key, value string) {
	if !IsInitialized() {
		return
	}
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag(key, value)
	})
}

// Flush 程序退出前调用
func Flush(timeout time.Duration) {
	if !IsInitialized() {
		return
	}
	sentry.Flush(timeout)
}

// Report 上报一个已经 recover 的 panic 值
func Report(ctx context.Context, v any) {
	if v == nil || !IsInitialized() {
		return
	}
	hub := sentry.CurrentHub()
	if ctx != nil {
		if h := sentry.GetHubFromContext(ctx); h != nil {
			hub = h
		}
	}
	if hub != nil {
		hub.RecoverWithContext(ctx, v)
	}
}

// Recover 在 goroutine 顶部 defer 调用
// 必须在本函数内直接调用 recover()
func Recover() {
	if err := recover(); err != nil {
		Report(context.Background(), err)
	}
}

// RecoverWithContext 同 Recover，使用 ctx 上的 hub
func RecoverWithContext(ctx context.Context) {
	if err := recover(); err != nil {
		Report(ctx, err)
	}
}

// CaptureException 上报错误
func CaptureException(err error) {
	if !IsInitialized() || err == nil {
		return
	}
	sentry.CaptureException(err)
}

// CaptureMessage 上报消息
func CaptureMessage(msg string) {
	if !IsInitialized() {
		return
	}
	sentry.CaptureMessage(msg)
}

// Go 启动带 panic 恢复的 goroutine
func Go(f func()) {
	go func() {
		defer Recover()
		f()
	}()
}

// GoWithContext 启动带 panic 恢复的 goroutine，f 接收 ctx
func GoWithContext(ctx context.Context, f func(context.Context)) {
	go func() {
		defer RecoverWithContext(ctx)
		f(ctx)
	}()
}

func beforeSendHook(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.Message = Sanitize(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = Sanitize(event.Exception[i].Value)
		if st := event.Exception[i].Stacktrace; st != nil {
			for j := range st.Frames {
				st.Frames[j].Vars = sanitizeMap(st.Frames[j].Vars)
			}
		}
	}
	event.Extra = sanitizeMap(event.Extra)
	for key, ctxData := range event.Contexts {
		event.Contexts[key] = sanitizeMap(ctxData)
	}
	for key, value := range event.Tags {
		if isSensitiveKey(key) {
			event.Tags[key] = redacted
		} else {
			event.Tags[key] = Sanitize(value)
		}
	}
	return event
}

// Sanitize 去掉字符串中的数据库凭据
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	s = passwordFlagPattern.ReplaceAllString(s, "${1}"+redacted)
	s = shortPasswordPattern.ReplaceAllString(s, "${1}-p"+redacted)
	s = dsnPattern.ReplaceAllString(s, "${1}:"+redacted+"@${2}(")
	s = keyValuePattern.ReplaceAllString(s, "${1}="+redacted)
	return s
}

func sanitizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	result := make(map[string]any, len(m))
	for key, value := range m {
		switch v := value.(type) {
		case string:
			if isSensitiveKey(key) {
				result[key] = redacted
			} else {
				result[key] = Sanitize(v)
			}
		case map[string]any:
			result[key] = sanitizeMap(v)
		default:
			if isSensitiveKey(key) {
				result[key] = redacted
			} else {
				result[key] = v
			}
		}
	}
	return result
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
