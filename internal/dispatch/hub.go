package dispatch

import (
	"sync"

	"github.com/google/uuid"

	"github.com/caretrack/bedside/pkg/interfaces"
	"github.com/caretrack/bedside/pkg/logger"
	"github.com/caretrack/bedside/pkg/monitoring"
	"github.com/caretrack/bedside/pkg/types"
)

// Hub is the fan-out bus delivering alert events to connected staff
// clients. Delivery is best-effort and at-most-once per connected
// subscriber per publish: nothing is queued for clients that are not
// connected, and a reconnecting client simply starts receiving new events.
type Hub struct {
	logger  *logger.Logger
	metrics *monitoring.MetricsCollector

	mu          sync.RWMutex
	subscribers map[string]*subscription
}

// subscription binds an event sink to its optional department filter
type subscription struct {
	handle     string
	department string
	sink       interfaces.EventSink
}

// NewHub creates a new dispatcher hub
func NewHub(log *logger.Logger, metrics *monitoring.MetricsCollector) *Hub {
	return &Hub{
		logger:      log,
		metrics:     metrics,
		subscribers: make(map[string]*subscription),
	}
}

// Subscribe registers a sink with an optional department filter and
// returns its handle
func (h *Hub) Subscribe(sink interfaces.EventSink, department string) string {
	handle := uuid.New().String()

	h.mu.Lock()
	h.subscribers[handle] = &subscription{
		handle:     handle,
		department: department,
		sink:       sink,
	}
	count := len(h.subscribers)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.RecordSubscribers(count)
	}
	h.logger.WithComponent("dispatcher").Infof("Subscriber %s connected (department=%q, total=%d)",
		handle, department, count)
	return handle
}

// Unsubscribe removes a subscription and closes its sink
func (h *Hub) Unsubscribe(handle string) {
	h.mu.Lock()
	sub, exists := h.subscribers[handle]
	if exists {
		delete(h.subscribers, handle)
	}
	count := len(h.subscribers)
	h.mu.Unlock()

	if !exists {
		return
	}

	sub.sink.Close()
	if h.metrics != nil {
		h.metrics.RecordSubscribers(count)
	}
	h.logger.WithComponent("dispatcher").Infof("Subscriber %s disconnected (total=%d)", handle, count)
}

// Publish fans the event out to every subscriber whose department filter
// matches. A failing subscriber is logged, skipped and unregistered; it
// never aborts delivery to the others and never blocks the publisher.
func (h *Hub) Publish(event *types.AlertEvent) {
	h.mu.RLock()
	targets := make([]*subscription, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		if sub.department != "" && event.Department != "" && sub.department != event.Department {
			continue
		}
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		if err := sub.sink.Send(event); err != nil {
			h.logger.DispatchFailure(sub.handle, string(event.Type), err)
			if h.metrics != nil {
				h.metrics.RecordDispatchFailure()
			}
			h.Unsubscribe(sub.handle)
		}
	}
}

// SubscriberCount returns the number of connected subscribers
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close unsubscribes every remaining subscriber
func (h *Hub) Close() {
	h.mu.Lock()
	subs := make([]*subscription, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.subscribers = make(map[string]*subscription)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.sink.Close()
	}
	if h.metrics != nil {
		h.metrics.RecordSubscribers(0)
	}
}
