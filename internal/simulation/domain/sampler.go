package domain

import (
	"fmt"
	"math/rand"
)

// BootstrapSampler 历史分布自举抽样器
// 从历史经验分布中独立同分布地有放回抽取月度变化值
// 抽样序列完全由外部注入的种子决定：同一种子必然产生逐位相同的序列
type BootstrapSampler struct {
	changes []float64
	rng     *rand.Rand
}

// NewBootstrapSampler 基于历史序列与种子创建抽样器
// 序列为空时返回 ErrInsufficientData
func NewBootstrapSampler(series HistoricalSeries, seed int64) (*BootstrapSampler, error) {
	if series.Len() == 0 {
		return nil, fmt.Errorf("series %q: %w", series.Name, ErrInsufficientData)
	}
	return &BootstrapSampler{
		changes: series.Changes(),
		rng:     rand.New(rand.NewSource(seed)),
	}, nil
}

// Sample 抽取一个月度变化值
func (s *BootstrapSampler) Sample() float64 {
	return s.changes[s.rng.Intn(len(s.changes))]
}

// SampleN 抽取 n 个月度变化值
func (s *BootstrapSampler) SampleN(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = s.Sample()
	}
	return out
}
