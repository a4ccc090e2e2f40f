package listsync

import (
	"context"
	"sync"
)

const defaultSubscriberBuffer = 16

// Notifier fans settled snapshots out to subscribers.
type Notifier struct {
	mu          sync.RWMutex
	subscribers map[int64]*subscriber
	nextID      int64
	bufferSize  int
	watchers    sync.WaitGroup
}

type subscriber struct {
	id     int64
	stream chan Snapshot
}

// NewNotifier constructs an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		subscribers: make(map[int64]*subscriber),
		bufferSize:  defaultSubscriberBuffer,
	}
}

// Subscribe registers a stream that lives until ctx is done or the returned
// cleanup function is called.
func (n *Notifier) Subscribe(ctx context.Context) (<-chan Snapshot, func()) {
	entry := &subscriber{
		stream: make(chan Snapshot, n.bufferSize),
	}
	n.mu.Lock()
	n.nextID++
	entry.id = n.nextID
	n.subscribers[entry.id] = entry
	n.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			close(done)
			n.unregister(entry.id)
		})
	}
	n.watchers.Add(1)
	go func() {
		defer n.watchers.Done()
		select {
		case <-ctx.Done():
			cleanup()
		case <-done:
		}
	}()
	return entry.stream, cleanup
}

// Publish delivers snapshot to every subscriber without blocking; full
// streams miss the message.
func (n *Notifier) Publish(snapshot Snapshot) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, entry := range n.subscribers {
		select {
		case entry.stream <- snapshot:
		default:
		}
	}
}

func (n *Notifier) unregister(id int64) {
	n.mu.Lock()
	entry, ok := n.subscribers[id]
	if ok {
		delete(n.subscribers, id)
		close(entry.stream)
	}
	n.mu.Unlock()
}
