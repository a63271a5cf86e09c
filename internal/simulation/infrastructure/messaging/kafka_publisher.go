package messaging

import (
	"context"
	"fmt"

	"github.com/wyfcoding/equitysim/internal/simulation/domain"
	"github.com/wyfcoding/equitysim/pkg/logger"
	"github.com/wyfcoding/equitysim/pkg/mq"
)

// KafkaEventPublisher 基于 Kafka 的领域事件发布实现
type KafkaEventPublisher struct {
	producer *mq.KafkaProducer
	topic    string
}

// NewKafkaEventPublisher 创建事件发布器
func NewKafkaEventPublisher(producer *mq.KafkaProducer, topic string) domain.EventPublisher {
	return &KafkaEventPublisher{
		producer: producer,
		topic:    topic,
	}
}

// PublishSimulationCompleted 发布批次完成事件，以 run_id 为分区键
func (p *KafkaEventPublisher) PublishSimulationCompleted(ctx context.Context, event *domain.SimulationCompletedEvent) error {
	if err := p.producer.SendMessage(ctx, p.topic, event.RunID, event); err != nil {
		return fmt.Errorf("failed to publish simulation completed event: %w", err)
	}

	logger.Info(ctx, "simulation completed event published",
		"run_id", event.RunID,
		"status", event.Status,
		"best_year", event.BestYear,
	)
	return nil
}
