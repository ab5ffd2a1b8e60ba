// Package metrics 提供分诊流水线的业务指标收集。
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// 分类与图像状态的固定标签值，导出时即使计数为 0 也输出。
var (
	categories = []string{"URGENT", "NON_URGENT", "UNCERTAIN", "GENERAL_CONVERSATION"}
	statuses   = []string{"ok", "unavailable", "malformed", "failed"}
)

// Stage 表示一个计时阶段。
type Stage string

const (
	StageClassify Stage = "classify"
	StageImage    Stage = "image"
	StageAnswer   Stage = "answer"
	StageIndex    Stage = "index"
)

var stages = []Stage{StageClassify, StageImage, StageAnswer, StageIndex}

type latency struct {
	count atomic.Uint64
	nanos atomic.Int64
}

func (l *latency) avgSeconds() float64 {
	n := l.count.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(l.nanos.Load() / int64(n)).Seconds()
}

// PipelineMetrics 分诊流水线业务指标。
type PipelineMetrics struct {
	classifications map[string]*atomic.Uint64 // 按分类计数
	images          map[string]*atomic.Uint64 // 按图像分析状态计数

	responses       atomic.Uint64 // 组装的响应总数
	answers         atomic.Uint64 // 成功生成的回答数
	answerFailures  atomic.Uint64 // 回答失败次数
	urgentShortcuts atomic.Uint64 // URGENT 短路次数

	indexRuns     atomic.Uint64 // 索引任务次数
	indexErrors   atomic.Uint64 // 索引任务失败次数
	filesIndexed  atomic.Uint64 // 成功处理的文件数
	filesFailed   atomic.Uint64 // 处理失败的文件数
	chunksIndexed atomic.Uint64 // 写入的分块数

	latencies map[Stage]*latency

	mu        sync.RWMutex
	startTime time.Time
}

var (
	globalMetrics *PipelineMetrics
	metricsOnce   sync.Once
)

// New 创建独立的指标实例。
func New() *PipelineMetrics {
	m := &PipelineMetrics{
		classifications: make(map[string]*atomic.Uint64, len(categories)),
		images:          make(map[string]*atomic.Uint64, len(statuses)),
		latencies:       make(map[Stage]*latency, len(stages)),
		startTime:       time.Now(),
	}
	for _, c := range categories {
		m.classifications[c] = new(atomic.Uint64)
	}
	for _, s := range statuses {
		m.images[s] = new(atomic.Uint64)
	}
	for _, s := range stages {
		m.latencies[s] = new(latency)
	}
	return m
}

// Global 获取全局指标实例。
func Global() *PipelineMetrics {
	metricsOnce.Do(func() {
		globalMetrics = New()
	})
	return globalMetrics
}

// inc 只累加已知的键，未知键返回 false。
func inc(counters map[string]*atomic.Uint64, key string) bool {
	c, ok := counters[key]
	if ok {
		c.Add(1)
	}
	return ok
}

// RecordClassification 记录一次紧急程度分类，未知类别不计入耗时。
func (m *PipelineMetrics) RecordClassification(category string, d time.Duration) {
	if inc(m.classifications, category) {
		m.observe(StageClassify, d)
	}
}

// RecordImage 记录一次图像分析。
func (m *PipelineMetrics) RecordImage(status string, d time.Duration) {
	if inc(m.images, status) {
		m.observe(StageImage, d)
	}
}

// RecordAnswer 记录一次回答生成。
func (m *PipelineMetrics) RecordAnswer(d time.Duration, err error) {
	if err != nil {
		m.answerFailures.Add(1)
		return
	}
	m.answers.Add(1)
	m.observe(StageAnswer, d)
}

// RecordResponse 记录一次响应组装，urgent 表示走了紧急短路。
func (m *PipelineMetrics) RecordResponse(urgent bool) {
	m.responses.Add(1)
	if urgent {
		m.urgentShortcuts.Add(1)
	}
}

// RecordIndexing 记录一次目录索引。
func (m *PipelineMetrics) RecordIndexing(files, failed, chunks int, d time.Duration, err error) {
	m.indexRuns.Add(1)
	m.filesIndexed.Add(uint64(files))
	m.filesFailed.Add(uint64(failed))
	if err != nil {
		m.indexErrors.Add(1)
		return
	}
	m.chunksIndexed.Add(uint64(chunks))
	m.observe(StageIndex, d)
}

func (m *PipelineMetrics) observe(stage Stage, d time.Duration) {
	l := m.latencies[stage]
	l.count.Add(1)
	l.nanos.Add(int64(d))
}

type exporter struct {
	sb     strings.Builder
	prefix string
}

func (e *exporter) header(name, help, typ string) {
	fmt.Fprintf(&e.sb, "# HELP %s_%s %s\n", e.prefix, name, help)
	fmt.Fprintf(&e.sb, "# TYPE %s_%s %s\n", e.prefix, name, typ)
}

func (e *exporter) counter(name, help string, v uint64) {
	e.header(name, help, "counter")
	fmt.Fprintf(&e.sb, "%s_%s %d\n\n", e.prefix, name, v)
}

func (e *exporter) labeled(name, help, label string, counters map[string]*atomic.Uint64) {
	e.header(name, help, "counter")
	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&e.sb, "%s_%s{%s=%q} %d\n", e.prefix, name, label, k, counters[k].Load())
	}
	e.sb.WriteString("\n")
}

// Export 导出 Prometheus 文本格式指标。
func (m *PipelineMetrics) Export(namespace, subsystem string) string {
	e := &exporter{prefix: namespace}
	if subsystem != "" {
		e.prefix = namespace + "_" + subsystem
	}

	e.labeled("classifications_total", "Urgency classifications by category.", "category", m.classifications)
	e.labeled("image_analyses_total", "Image analyses by status.", "status", m.images)
	e.counter("responses_total", "Structured responses assembled.", m.responses.Load())
	e.counter("answers_total", "Answers generated successfully.", m.answers.Load())
	e.counter("answer_failures_total", "Answer generation failures.", m.answerFailures.Load())
	e.counter("urgent_shortcuts_total", "Responses short-circuited as urgent.", m.urgentShortcuts.Load())
	e.counter("index_runs_total", "Directory indexing runs.", m.indexRuns.Load())
	e.counter("index_errors_total", "Directory indexing runs that failed.", m.indexErrors.Load())
	e.counter("files_indexed_total", "Files processed successfully.", m.filesIndexed.Load())
	e.counter("files_failed_total", "Files that failed to process.", m.filesFailed.Load())
	e.counter("chunks_indexed_total", "Chunks written to the vector store.", m.chunksIndexed.Load())

	e.header("stage_duration_seconds_avg", "Average stage latency.", "gauge")
	for _, s := range stages {
		fmt.Fprintf(&e.sb, "%s_stage_duration_seconds_avg{stage=%q} %.6f\n", e.prefix, s, m.latencies[s].avgSeconds())
	}
	e.sb.WriteString("\n")

	m.mu.RLock()
	uptime := time.Since(m.startTime).Seconds()
	m.mu.RUnlock()
	e.header("uptime_seconds", "Service uptime in seconds.", "gauge")
	fmt.Fprintf(&e.sb, "%s_uptime_seconds %.2f\n", e.prefix, uptime)

	return e.sb.String()
}

func snapshot(counters map[string]*atomic.Uint64) map[string]uint64 {
	out := make(map[string]uint64, len(counters))
	for k, c := range counters {
		out[k] = c.Load()
	}
	return out
}

// Stats 返回当前统计信息（用于 API）。
func (m *PipelineMetrics) Stats() map[string]any {
	avg := make(map[string]float64, len(stages))
	for _, s := range stages {
		avg[string(s)] = m.latencies[s].avgSeconds()
	}

	m.mu.RLock()
	uptime := time.Since(m.startTime).Seconds()
	m.mu.RUnlock()

	return map[string]any{
		"classifications": snapshot(m.classifications),
		"image_analyses":  snapshot(m.images),
		"responses": map[string]any{
			"total":            m.responses.Load(),
			"urgent_shortcuts": m.urgentShortcuts.Load(),
		},
		"answers": map[string]any{
			"total":    m.answers.Load(),
			"failures": m.answerFailures.Load(),
		},
		"indexing": map[string]any{
			"runs":           m.indexRuns.Load(),
			"errors":         m.indexErrors.Load(),
			"files_indexed":  m.filesIndexed.Load(),
			"files_failed":   m.filesFailed.Load(),
			"chunks_indexed": m.chunksIndexed.Load(),
		},
		"avg_duration_secs": avg,
		"uptime_seconds":    uptime,
	}
}

// Reset 重置所有指标（仅用于测试）。
func (m *PipelineMetrics) Reset() {
	for _, c := range m.classifications {
		c.Store(0)
	}
	for _, c := range m.images {
		c.Store(0)
	}
	for _, l := range m.latencies {
		l.count.Store(0)
		l.nanos.Store(0)
	}
	for _, c := range []*atomic.Uint64{
		&m.responses, &m.answers, &m.answerFailures, &m.urgentShortcuts,
		&m.indexRuns, &m.indexErrors, &m.filesIndexed, &m.filesFailed, &m.chunksIndexed,
	} {
		c.Store(0)
	}

	m.mu.Lock()
	m.startTime = time.Now()
	m.mu.Unlock()
}
