package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventRequestReceived EventType = "request_received"
	EventResponseServed  EventType = "response_served"
	EventRateLimited     EventType = "rate_limited"
)

// ClientLabels describes who sent a served request. Every field is drawn
// from a bounded set so it can be used as a label.
type ClientLabels struct {
	Platform string
	App      string
	Browser  string
	Device   string
	Bot      bool
}

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	Profile    string
	Outcome    string
	Client     ClientLabels
	Duration   time.Duration
	StatusCode int
}

type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

// Emit never blocks; events are dropped when the buffer is full. It is safe
// to call on a nil collector.
func (c *Collector) Emit(event MetricEvent) {
	if c == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case c.eventCh <- event:
	default:
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventRequestReceived:
		c.metrics.IncrementRequests(event.Profile)

	case EventResponseServed:
		c.metrics.RecordResponse(event.Profile, event.Outcome, event.Duration, event.StatusCode)
		c.metrics.RecordClient(event.Client)

	case EventRateLimited:
		c.metrics.RecordRateLimited(event.Profile)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
