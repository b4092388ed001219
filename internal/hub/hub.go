package hub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const (
	relayTimeout   = 5 * time.Second
	relayQueueSize = 256
)

// Relay forwards every emitted signal out of the process.
type Relay interface {
	Publish(ctx context.Context, signal string, payload []byte) error
}

type subscriber struct {
	id      uint64
	handler func(any)
}

// Hub delivers signals to local subscribers in emission order, on the
// goroutine that emits them.
type Hub struct {
	sugar *zap.SugaredLogger

	mutex       sync.RWMutex
	subscribers map[string][]subscriber
	nextID      uint64

	relay *relayQueue
	// guard wraps relay encoding so payloads are read under the store's read lock
	guard func(func())
}

type relayed struct {
	name  string
	bytes []byte
}

// relayQueue publishes encoded signals on its own goroutine, so a slow relay
// never holds up the emitter. Signals are dropped while the queue is full.
type relayQueue struct {
	sugar   *zap.SugaredLogger
	relay   Relay
	queue   chan relayed
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64
}

func newRelayQueue(sugar *zap.SugaredLogger, relay Relay) *relayQueue {
	q := &relayQueue{
		sugar: sugar,
		relay: relay,
		queue: make(chan relayed, relayQueueSize),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *relayQueue) enqueue(item relayed) {
	select {
	case <-q.stop:
		return
	default:
	}

	select {
	case q.queue <- item:
	default:
		dropped := q.dropped.Add(1)
		if dropped == 1 || dropped%100 == 0 {
			q.sugar.Warnf("Relay queue is full, dropped signal %s (%d dropped so far)", item.name, dropped)
		}
	}
}

func (q *relayQueue) run() {
	defer close(q.done)

	for {
		select {
		case item := <-q.queue:
			q.publish(item)
		case <-q.stop:
			// publish what was queued before closing
			for {
				select {
				case item := <-q.queue:
					q.publish(item)
				default:
					return
				}
			}
		}
	}
}

func (q *relayQueue) publish(item relayed) {
	ctx, cancel := context.WithTimeout(context.Background(), relayTimeout)
	defer cancel()

	err := q.relay.Publish(ctx, item.name, item.bytes)
	if err != nil {
		q.sugar.Errorf("Couldn't relay signal %s: %v", item.name, err)
	}
}

// close stops accepting signals and waits for the queued ones to be published.
func (q *relayQueue) close() {
	q.once.Do(func() { close(q.stop) })
	<-q.done
}

func New(sugar *zap.SugaredLogger) *Hub {
	return &Hub{
		sugar:       sugar,
		subscribers: make(map[string][]subscriber),
		guard:       func(fn func()) { fn() },
	}
}

// SetRelay starts forwarding every signal to relay, replacing the previous
// relay. A nil relay stops forwarding.
func (h *Hub) SetRelay(relay Relay, guard func(func())) {
	var queue *relayQueue
	if relay != nil {
		queue = newRelayQueue(h.sugar, relay)
	}

	h.mutex.Lock()
	previous := h.relay
	h.relay = queue
	if guard != nil {
		h.guard = guard
	}
	h.mutex.Unlock()

	if previous != nil {
		previous.close()
	}
}

// Close stops the relay after publishing the signals still queued. Local
// delivery keeps working.
func (h *Hub) Close() {
	h.SetRelay(nil, nil)
}

func (h *Hub) subscribe(name string, handler func(any)) (unsubscribe func()) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.nextID++
	id := h.nextID
	h.subscribers[name] = append(h.subscribers[name], subscriber{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { h.unsubscribe(name, id) })
	}
}

func (h *Hub) unsubscribe(name string, id uint64) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	subscribers := h.subscribers[name]
	for i := range subscribers {
		if subscribers[i].id == id {
			h.subscribers[name] = append(subscribers[:i:i], subscribers[i+1:]...)
			break
		}
	}

	// delete signal from map if nobody is subscribed to it
	if len(h.subscribers[name]) == 0 {
		delete(h.subscribers, name)
	}
}

func (h *Hub) SubscriberCount(name string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.subscribers[name])
}

func (h *Hub) emit(name string, payload any) {
	h.mutex.RLock()
	subscribers := h.subscribers[name]
	relay := h.relay
	guard := h.guard
	h.mutex.RUnlock()

	for _, s := range subscribers {
		h.deliver(name, s, payload)
	}

	if relay != nil {
		h.publish(relay, guard, name, payload)
	}
}

// deliver keeps a panicking subscriber from taking the gateway down with it.
func (h *Hub) deliver(name string, s subscriber, payload any) {
	defer func() {
		if r := recover(); r != nil {
			h.sugar.Errorf("Subscriber of signal %s panicked: %v", name, r)
		}
	}()
	s.handler(payload)
}

// publish encodes on the emitter's goroutine, while the payload is still
// current, and leaves the network to the relay queue.
func (h *Hub) publish(relay *relayQueue, guard func(func()), name string, payload any) {
	if e, ok := payload.(error); ok {
		payload = e.Error()
	}

	var bytes []byte
	var err error
	guard(func() {
		bytes, err = msgpack.Marshal(payload)
	})
	if err != nil {
		h.sugar.Errorf("Couldn't encode signal %s for relay: %v", name, err)
		return
	}

	relay.enqueue(relayed{name: name, bytes: bytes})
}
