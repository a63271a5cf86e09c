package domain

import "errors"

// 领域层错误定义
// 区分两类失败：数据不足（批次开始前致命）与数值退化（单场景可恢复，剔除后继续）
var (
	// ErrInsufficientData 历史序列在回看窗口过滤后为空，无法进行抽样
	// 该错误在任何场景执行之前出现，属于致命错误
	ErrInsufficientData = errors.New("insufficient historical data after lookback filtering")

	// ErrNumericDegeneracy 场景计算中出现数值退化（剩余期限为零、非有限数值等）
	// 该错误只影响单个场景，编排器将其剔除并记录，不中断整个批次
	ErrNumericDegeneracy = errors.New("numeric degeneracy in scenario computation")

	// ErrInvalidHorizon 模拟时域不合法（非正的月数）
	ErrInvalidHorizon = errors.New("simulation horizon must be positive")
)
