// Package domain 包含股权贷款（Help-to-Buy）财务推演服务的领域模型：
// 历史收益抽样器、经济路径生成器、股权贷款还款状态机、按揭摊销引擎与蒙特卡洛编排器
package domain

import (
	"fmt"
	"time"
)

// SeriesPoint 历史序列中的单个观测点
type SeriesPoint struct {
	// 观测日期（月度）
	Date time.Time
	// 当月环比变化（小数形式，0.01 表示 +1%）
	Change float64
}

// HistoricalSeries 单条历史月度变化序列（房价、CPI 或按揭利率之一）
// 加载后不可变；抽样前可按回看窗口切片
type HistoricalSeries struct {
	// 序列名称（用于日志与错误信息）
	Name string
	// 按日期升序排列的观测点
	Points []SeriesPoint
}

// Len 返回观测点数量
func (s HistoricalSeries) Len() int {
	return len(s.Points)
}

// Changes 返回全部月度变化值
func (s HistoricalSeries) Changes() []float64 {
	changes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		changes[i] = p.Change
	}
	return changes
}

// Lookback 返回仅保留最近 years 年观测的新序列
// years <= 0 表示不过滤，使用全部历史
func (s HistoricalSeries) Lookback(years int, now time.Time) HistoricalSeries {
	if years <= 0 {
		return s
	}
	// 与历史数据的月度粒度对齐，按 365.25 天折算回看窗口
	cutoff := now.Add(-time.Duration(float64(years) * 365.25 * 24 * float64(time.Hour)))
	filtered := HistoricalSeries{Name: s.Name}
	for _, p := range s.Points {
		if p.Date.Before(cutoff) {
			continue
		}
		filtered.Points = append(filtered.Points, p)
	}
	return filtered
}

// MarketHistory 三条历史序列的集合，进程启动时加载一次，只读共享给所有 worker
type MarketHistory struct {
	// 房价月度环比变化
	Property HistoricalSeries
	// CPI 月度变化
	CPI HistoricalSeries
	// 按揭利率月度变化（百分点差值）
	MortgageRate HistoricalSeries
}

// Lookback 对三条序列统一应用回看窗口
func (h MarketHistory) Lookback(years int, now time.Time) MarketHistory {
	return MarketHistory{
		Property:     h.Property.Lookback(years, now),
		CPI:          h.CPI.Lookback(years, now),
		MortgageRate: h.MortgageRate.Lookback(years, now),
	}
}

// Validate 校验三条序列在过滤后均非空
// 任何一条为空都意味着无法抽样，返回 ErrInsufficientData
func (h MarketHistory) Validate() error {
	for _, s := range []HistoricalSeries{h.Property, h.CPI, h.MortgageRate} {
		if s.Len() == 0 {
			return fmt.Errorf("series %q: %w", s.Name, ErrInsufficientData)
		}
	}
	return nil
}
