// Package messaging adapts the teacher's Kafka consumer-group pattern to
// drive the stale-reservation sweep from an external tick producer instead
// of an in-process ticker, for deployments where sweep cadence is owned by
// a scheduler outside the service (e.g. a cron-job sidecar).
package messaging

import (
	"context"
	"sync"

	"github.com/IBM/sarama"

	"creditmeter/internal/infrastructure/messaging/kafka"
	"creditmeter/internal/pkg/logging"
)

// Sweeper is the subset of the scheduler the consumer needs: one sweep
// pass, run to completion.
type Sweeper interface {
	RunOnce(ctx context.Context) error
}

// SweepTickConsumer triggers a sweep pass for every message on the
// sweep-ticks topic. Mirrors the teacher's at-least-once deposit consumer:
// manual offset commit, only after the triggered sweep returns without
// error, so a tick whose sweep crashed the process is redelivered after the
// next rebalance. A tick whose sweep returned an error is left unmarked, but
// the offset a later successful tick marks on the same partition covers it.
type SweepTickConsumer struct {
	consumerGroup sarama.ConsumerGroup
	sweeper       Sweeper
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

func NewSweepTickConsumer(cfg *kafka.Config, sweeper Sweeper) (*SweepTickConsumer, error) {
	saramaConfig, err := cfg.ToSaramaConfig()
	if err != nil {
		return nil, err
	}

	saramaConfig.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = false
	saramaConfig.Consumer.Fetch.Default = 1 << 20
	saramaConfig.ChannelBufferSize = 1 // prefetch=1: never run two sweeps concurrently off one tick stream

	group, err := sarama.NewConsumerGroup(cfg.Brokers, "ledger-sweep-group", saramaConfig)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &SweepTickConsumer{consumerGroup: group, sweeper: sweeper, ctx: ctx, cancel: cancel}, nil
}

func (c *SweepTickConsumer) Start() error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		handler := &sweepTickHandler{sweeper: c.sweeper}
		for {
			if err := c.consumerGroup.Consume(c.ctx, []string{kafka.TopicSweepTicks}, handler); err != nil {
				logging.Error("sweep tick consumer error", err, nil)
			}
			if c.ctx.Err() != nil {
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case err, ok := <-c.consumerGroup.Errors():
				if !ok {
					return
				}
				logging.Error("sweep tick consumer group error", err, nil)
			case <-c.ctx.Done():
				return
			}
		}
	}()

	logging.Info("sweep tick consumer started", map[string]interface{}{"topic": kafka.TopicSweepTicks})
	return nil
}

func (c *SweepTickConsumer) Stop() error {
	c.cancel()
	c.wg.Wait()
	return c.consumerGroup.Close()
}

type sweepTickHandler struct {
	sweeper Sweeper
}

func (h *sweepTickHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *sweepTickHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *sweepTickHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}
			if err := h.sweeper.RunOnce(session.Context()); err != nil {
				logging.Error("sweep run failed, leaving tick uncommitted", err, map[string]interface{}{
					"offset": message.Offset,
				})
				continue // don't mark; redelivered only if no later tick is marked first
			}
			session.MarkMessage(message, "")
			session.Commit()
		case <-session.Context().Done():
			return nil
		}
	}
}
