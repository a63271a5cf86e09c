package domain

import (
	"context"
	"time"
)

// 模拟批次状态
const (
	RunStatusPending   = "PENDING"
	RunStatusRunning   = "RUNNING"
	RunStatusCompleted = "COMPLETED"
	RunStatusAborted   = "ABORTED"
	RunStatusFailed    = "FAILED"
)

// SimulationRun 表示一次模拟批次
type SimulationRun struct {
	RunID       string
	Params      Parameters
	Status      string
	Message     string
	SubmittedAt time.Time
	FinishedAt  time.Time
}

// SimulationRepository 模拟批次仓储接口
type SimulationRepository interface {
	SaveRun(ctx context.Context, run *SimulationRun) error
	FindRunByID(ctx context.Context, runID string) (*SimulationRun, error)
	SaveStatistics(ctx context.Context, runID string, years []YearStatistics) error
	FindStatisticsByRunID(ctx context.Context, runID string) ([]YearStatistics, error)
}

// SimulationCompletedEvent 批次完成事件，发布到消息队列供下游消费
type SimulationCompletedEvent struct {
	RunID      string    `json:"run_id"`
	Status     string    `json:"status"`
	BestYear   int       `json:"best_year"`
	BestP50    float64   `json:"best_p50"`
	Years      int       `json:"years"`
	FinishedAt time.Time `json:"finished_at"`
}

// EventPublisher 领域事件发布接口
type EventPublisher interface {
	PublishSimulationCompleted(ctx context.Context, event *SimulationCompletedEvent) error
}
