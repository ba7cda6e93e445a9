package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CounterSample 一条计数样本
type CounterSample struct {
	Value       float64
	LabelValues []string
}

// CounterFamily 固定形态的计数指标族，每次采集整体构建
type CounterFamily struct {
	Name       string
	Help       string
	LabelNames []string
	Samples    []CounterSample
}

// NewCounterFamily 新建空指标族
func NewCounterFamily(name, help string, labelNames []string) *CounterFamily {
	return &CounterFamily{
		Name:       name,
		Help:       help,
		LabelNames: labelNames,
		Samples:    make([]CounterSample, 0),
	}
}

// Add 追加一条样本
func (mf *CounterFamily) Add(value float64, labelValues ...string) {
	mf.Samples = append(mf.Samples, CounterSample{
		Value:       value,
		LabelValues: labelValues,
	})
}

// Desc 对应的prometheus描述符
func (mf *CounterFamily) Desc() *prometheus.Desc {
	return prometheus.NewDesc(mf.Name, mf.Help, mf.LabelNames, nil)
}

// collect 把全部样本写入采集通道
func (mf *CounterFamily) collect(ch chan<- prometheus.Metric) {
	desc := mf.Desc()
	for _, sample := range mf.Samples {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, sample.Value, sample.LabelValues...)
	}
}
