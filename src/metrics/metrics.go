// Package metrics 以 Prometheus 指标暴露迁移进度
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/datasync-go/datasync/src/pipeline"
)

const namespace = "datasync"

const (
	stageBackup  = "backup"
	stageRestore = "restore"
)

// Collector 实现 pipeline.Observer，把状态变化转换为指标
type Collector struct {
	registry *prometheus.Registry

	unitsTotal   *prometheus.CounterVec
	inProgress   *prometheus.GaugeVec
	unitDuration *prometheus.HistogramVec
}

// New 创建独立注册表上的指标集合
func New(jobName string) *Collector {
	labels := prometheus.Labels{"job_name": jobName}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		unitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "units_total",
			Help:        "Migration units that reached a terminal state.",
			ConstLabels: labels,
		}, []string{"state"}),
		inProgress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "units_in_progress",
			Help:        "Migration units currently in a stage.",
			ConstLabels: labels,
		}, []string{"stage"}),
		unitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "unit_duration_seconds",
			Help:        "Wall time from admission to terminal state.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1, 2, 14),
		}, []string{"state"}),
	}
	c.registry.MustRegister(c.unitsTotal, c.inProgress, c.unitDuration)
	return c
}

// Registry 返回指标注册表
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 返回 /metrics 处理器
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func stageOf(s pipeline.UnitState) string {
	switch s {
	case pipeline.StateBackupInProgress:
		return stageBackup
	case pipeline.StateRestoreInProgress:
		return stageRestore
	}
	return ""
}

// OnTransition 维护进行中的单元数
func (c *Collector) OnTransition(_ string, from, to pipeline.UnitState) {
	if stage := stageOf(from); stage != "" {
		c.inProgress.WithLabelValues(stage).Dec()
	}
	if stage := stageOf(to); stage != "" {
		c.inProgress.WithLabelValues(stage).Inc()
	}
}

// OnResult 统计终态
func (c *Collector) OnResult(r pipeline.Result) {
	state := string(r.State)
	c.unitsTotal.WithLabelValues(state).Inc()
	c.unitDuration.WithLabelValues(state).Observe(r.Duration().Seconds())
}
