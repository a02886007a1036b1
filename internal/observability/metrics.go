package observability

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/gofiber/fiber/v2"
)

// DeliverySnapshot is a point-in-time view of delivery counters.
type DeliverySnapshot struct {
	Sent         int64 `json:"sent"`
	Failed       int64 `json:"failed"`
	DeadLettered int64 `json:"dead_lettered"`
	QueueDepth   int64 `json:"queue_depth"`
}

// DeliverySink receives delivery outcomes from the notification pipeline.
type DeliverySink interface {
	RecordSent()
	RecordFailure()
	RecordDeadLetter()
	SetQueueDepth(depth int)
	Snapshot() DeliverySnapshot
}

// DeliveryMetrics is the in-memory DeliverySink backed by atomic counters.
type DeliveryMetrics struct {
	sent         atomic.Int64
	failed       atomic.Int64
	deadLettered atomic.Int64
	queueDepth   atomic.Int64
}

// NewDeliveryMetrics initializes the sink.
func NewDeliveryMetrics() *DeliveryMetrics {
	return &DeliveryMetrics{}
}

func (m *DeliveryMetrics) RecordSent()       { m.sent.Add(1) }
func (m *DeliveryMetrics) RecordFailure()    { m.failed.Add(1) }
func (m *DeliveryMetrics) RecordDeadLetter() { m.deadLettered.Add(1) }

// SetQueueDepth records the current dispatchable backlog gauge.
func (m *DeliveryMetrics) SetQueueDepth(depth int) {
	m.queueDepth.Store(int64(depth))
}

// Snapshot returns current counter values.
func (m *DeliveryMetrics) Snapshot() DeliverySnapshot {
	return DeliverySnapshot{
		Sent:         m.sent.Load(),
		Failed:       m.failed.Load(),
		DeadLettered: m.deadLettered.Load(),
		QueueDepth:   m.queueDepth.Load(),
	}
}

// RequestLogger logs each HTTP request with timing.
func RequestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Info("http request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)))
		return err
	}
}
