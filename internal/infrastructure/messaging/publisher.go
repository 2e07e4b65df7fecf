package messaging

import (
	"creditmeter/internal/infrastructure/messaging/kafka"
)

// SweepTickPublisher emits a tick onto the sweep-ticks topic — used by the
// "sweep emit-tick" CLI command to drive the Kafka-backed sweeper from an
// external scheduler instead of the in-process ticker.
type SweepTickPublisher struct {
	producer *kafka.Producer
}

func NewSweepTickPublisher(cfg *kafka.Config) (*SweepTickPublisher, error) {
	producer, err := kafka.NewProducer(cfg)
	if err != nil {
		return nil, err
	}
	return &SweepTickPublisher{producer: producer}, nil
}

func (p *SweepTickPublisher) EmitTick() error {
	return p.producer.PublishEvent(kafka.TopicSweepTicks, "tick", map[string]string{"kind": "sweep_tick"})
}

func (p *SweepTickPublisher) Close() error {
	return p.producer.Close()
}
