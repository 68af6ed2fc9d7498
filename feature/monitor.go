package feature

import (
	"sync"
	"time"
)

// Stats 是单个特征的健康度统计。
type Stats struct {
	FeatureName  string
	UsageCount   int64
	MissingCount int64
	Min          float64
	Max          float64
	Mean         float64
	LastUpdated  time.Time
}

// Monitor 是内存特征监控，记录特征使用量、缺失量与取值分布。
// 用于排查"为什么某批请求质量分偏低"一类问题。
// 生产环境可以替换为外部监控系统，本包只依赖内存计数。
type Monitor struct {
	mu    sync.RWMutex
	stats map[string]*statsAccum
}

type statsAccum struct {
	usage   int64
	missing int64
	min     float64
	max     float64
	sum     float64
	updated time.Time
}

func NewMonitor() *Monitor {
	return &Monitor{stats: make(map[string]*statsAccum)}
}

// RecordUsage 记录一次特征取值。
func (m *Monitor) RecordUsage(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc := m.stats[name]
	if acc == nil {
		acc = &statsAccum{min: value, max: value}
		m.stats[name] = acc
	}
	acc.usage++
	acc.sum += value
	if value < acc.min {
		acc.min = value
	}
	if value > acc.max {
		acc.max = value
	}
	acc.updated = time.Now()
}

// RecordMissing 记录一次特征缺失（输入不完整，按中性默认值降级）。
func (m *Monitor) RecordMissing(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc := m.stats[name]
	if acc == nil {
		acc = &statsAccum{}
		m.stats[name] = acc
	}
	acc.missing++
	acc.updated = time.Now()
}

// Stats 返回某个特征的统计快照，未记录过时返回 nil。
func (m *Monitor) Stats(name string) *Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acc, ok := m.stats[name]
	if !ok {
		return nil
	}
	s := &Stats{
		FeatureName:  name,
		UsageCount:   acc.usage,
		MissingCount: acc.missing,
		Min:          acc.min,
		Max:          acc.max,
		LastUpdated:  acc.updated,
	}
	if acc.usage > 0 {
		s.Mean = acc.sum / float64(acc.usage)
	}
	return s
}
