package alerting

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/errors"
	"github.com/coastcare/coastal-alerts/internal/logger"
)

// eventQueueSize bounds the events waiting for handlers. Publish drops
// events beyond it.
const eventQueueSize = 1000

// AlertEvent announces a newly persisted alert to realtime consumers.
type AlertEvent struct {
	Alert     *entities.Alert
	Timestamp time.Time
}

type AlertEventHandler func(event *AlertEvent)

// AlertEventBus delivers persisted alerts to the websocket hub and the MQTT
// publisher on one worker goroutine. Publish never blocks the caller.
type AlertEventBus struct {
	handlers atomic.Pointer[[]AlertEventHandler]
	subMu    sync.Mutex

	queue   chan *AlertEvent
	closing chan struct{}
	done    chan struct{}
	once    sync.Once
	log     logger.Logger
}

// NewAlertEventBus starts the bus worker. Call Stop to release it.
func NewAlertEventBus(log logger.Logger) *AlertEventBus {
	b := &AlertEventBus{
		queue:   make(chan *AlertEvent, eventQueueSize),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		log:     log,
	}
	b.handlers.Store(&[]AlertEventHandler{})
	go b.run()
	return b
}

// Subscribe adds handler. Handlers run in subscription order.
func (b *AlertEventBus) Subscribe(handler AlertEventHandler) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	current := *b.handlers.Load()
	next := make([]AlertEventHandler, len(current), len(current)+1)
	copy(next, current)
	next = append(next, handler)
	b.handlers.Store(&next)
}

// Publish queues event. It is dropped with a warning when the queue is full
// and silently once Stop has been called.
func (b *AlertEventBus) Publish(event *AlertEvent) {
	select {
	case <-b.closing:
		return
	default:
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case b.queue <- event:
	default:
		b.log.Warn("alert event queue full, dropping event",
			logger.String("alert_id", alertID(event)))
	}
}

// Stop delivers the events already queued and waits for the worker to exit.
// It may be called more than once.
func (b *AlertEventBus) Stop() {
	b.once.Do(func() { close(b.closing) })
	<-b.done
}

func (b *AlertEventBus) run() {
	defer close(b.done)
	for {
		select {
		case event := <-b.queue:
			b.deliver(event)
		case <-b.closing:
			b.drain()
			return
		}
	}
}

func (b *AlertEventBus) drain() {
	for {
		select {
		case event := <-b.queue:
			b.deliver(event)
		default:
			return
		}
	}
}

func (b *AlertEventBus) deliver(event *AlertEvent) {
	for _, handler := range *b.handlers.Load() {
		b.invoke(handler, event)
	}
}

func (b *AlertEventBus) invoke(handler AlertEventHandler, event *AlertEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("alert event handler panicked",
				logger.String("alert_id", alertID(event)),
				logger.Error(errors.CapturePanic(r, componentEventBus)))
		}
	}()
	handler(event)
}

func alertID(event *AlertEvent) string {
	if event == nil || event.Alert == nil {
		return ""
	}
	return event.Alert.ID
}
