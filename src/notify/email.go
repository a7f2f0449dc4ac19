// Package notify 在运行结束后发送报告
package notify

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/datasync-go/datasync/src/configs"
	"github.com/datasync-go/datasync/src/pipeline"
	dssentry "github.com/datasync-go/datasync/src/pkg/sentry"
)

// Sender 发送邮件，*gomail.Dialer 实现了该接口
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Report 一次运行的结果，Summary 为 nil 表示运行被中止
type Report struct {
	JobName string
	RunID   string
	Summary *pipeline.RunSummary
	Err     error
}

// Failed 是否有库失败或运行中止
func (r Report) Failed() bool {
	return r.Err != nil || r.Summary == nil || !r.Summary.OK()
}

const bodyTemplate = `任务：{{ .JobName }}
运行：{{ .RunID }}
{{- if .Aborted }}
状态：运行中止
错误：{{ .Error }}
{{- else }}
开始：{{ date "2006-01-02 15:04:05" .Summary.StartedAt }}
结束：{{ date "2006-01-02 15:04:05" .Summary.FinishedAt }}
共 {{ len .Summary.Results }} 个库，成功 {{ index .Counts "succeeded" }}，备份失败 {{ index .Counts "backup_failed" }}，还原失败 {{ index .Counts "restore_failed" }}，取消 {{ index .Counts "cancelled" }}
{{ range .Summary.Results }}
- {{ .Database }}: {{ .State | toString | upper }}{{ if .ErrorMessage }} {{ trunc 300 .ErrorMessage }}{{ end }}
{{- end }}
{{- end }}
`

var bodyTmpl = template.Must(template.New("report").Funcs(sprig.TxtFuncMap()).Parse(bodyTemplate))

// RenderBody 生成邮件正文
func RenderBody(r Report) (string, error) {
	data := map[string]any{
		"JobName": r.JobName,
		"RunID":   r.RunID,
		"Aborted": r.Summary == nil,
		"Summary": r.Summary,
		"Counts":  map[string]int{},
	}
	if r.Err != nil {
		data["Error"] = dssentry.Sanitize(r.Err.Error())
	}
	if r.Summary != nil {
		counts := map[string]int{}
		for state, n := range r.Summary.Counts() {
			counts[string(state)] = n
		}
		data["Counts"] = counts
	}

	var buf bytes.Buffer
	if err := bodyTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

// Subject 生成邮件标题
func Subject(r Report) string {
	switch {
	case r.Summary == nil:
		return fmt.Sprintf("[datasync] %s 运行中止", r.JobName)
	case r.Failed():
		return fmt.Sprintf("[datasync] %s 有 %d 个库未完成", r.JobName, len(r.Summary.Failed()))
	default:
		return fmt.Sprintf("[datasync] %s 全部成功", r.JobName)
	}
}

// Mailer 邮件通知
type Mailer struct {
	cfg    configs.EmailNotify
	sender Sender
	logger logrus.FieldLogger
}

// NewMailer 使用 SMTP 发送
func NewMailer(cfg configs.EmailNotify, logger logrus.FieldLogger) *Mailer {
	return NewMailerWithSender(cfg, gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password), logger)
}

// NewMailerWithSender 使用指定的 Sender，测试时替换
func NewMailerWithSender(cfg configs.EmailNotify, sender Sender, logger logrus.FieldLogger) *Mailer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Mailer{cfg: cfg, sender: sender, logger: logger}
}

// Send 发送报告，未启用或无需发送时直接返回
func (m *Mailer) Send(ctx context.Context, r Report) error {
	if !m.cfg.Enable {
		return nil
	}
	if m.cfg.OnlyOnFailure && !r.Failed() {
		m.logger.Debug("run succeeded, email report skipped")
		return nil
	}

	body, err := RenderBody(r)
	if err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", m.cfg.To...)
	msg.SetHeader("Subject", Subject(r))
	msg.SetBody("text/plain", body)

	// gomail 不支持 context，发送放到后台，超时后不再等待
	done := make(chan error, 1)
	dssentry.Go(func() {
		done <- m.sender.DialAndSend(msg)
	})
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send email report: %w", err)
		}
		m.logger.WithField("to", m.cfg.To).Info("email report sent")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send email report: %w", ctx.Err())
	}
}
