package urclient

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-ur/logger"
)

// Subscription is one attached snapshot feed. Read from C; a consumer that
// falls behind loses samples rather than blocking the fan-out. The channel
// is closed by Unsubscribe.
type Subscription struct {
	id string

	mu     sync.Mutex
	ch     chan Snapshot
	closed bool
}

// C returns the feed channel. Snapshots on it carry angle fields in degrees
// for display: joints and the rotation components of the TCP pose.
func (s *Subscription) C() <-chan Snapshot {
	return s.ch
}

// push delivers one sample without blocking. A full or closed feed drops
// the sample so one slow consumer cannot stall the others.
func (s *Subscription) push(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case s.ch <- snap:
	default:
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// broadcaster fans the latest snapshot out to all subscriptions at a fixed
// cadence. The fan-out goroutine starts lazily on the first Subscribe and
// exits on its own once the subscriber set becomes empty; the next Subscribe
// restarts it. Its lifecycle is governed by the subscriber set alone, so
// subscribers survive a robot Disconnect/Connect cycle.
type broadcaster struct {
	state    *stateStore
	interval time.Duration
	logger   logger.Logger
	subs     *xsync.MapOf[string, *Subscription]

	mu      sync.Mutex // guards running
	running bool
}

func newBroadcaster(state *stateStore, interval time.Duration, l logger.Logger) *broadcaster {
	return &broadcaster{
		state:    state,
		interval: interval,
		logger:   l,
		subs:     xsync.NewMapOf[string, *Subscription](),
	}
}

// Subscribe attaches a new feed and starts the fan-out goroutine when it is
// not already running.
func (b *broadcaster) Subscribe() *Subscription {
	sub := &Subscription{
		id: uuid.NewString(),
		ch: make(chan Snapshot, 1),
	}
	b.subs.Store(sub.id, sub)

	b.mu.Lock()
	if !b.running {
		b.running = true
		go b.run()
	}
	b.mu.Unlock()

	b.logger.Debug("subscriber attached", "id", sub.id, "count", b.subs.Size())

	return sub
}

// Unsubscribe detaches a feed and closes its channel. Unknown or already
// detached subscriptions are ignored.
func (b *broadcaster) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.subs.Delete(sub.id)
	sub.close()

	b.logger.Debug("subscriber detached", "id", sub.id, "count", b.subs.Size())
}

func (b *broadcaster) run() {
	b.logger.Debug("broadcast task started")

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for range ticker.C {
		b.mu.Lock()
		if b.subs.Size() == 0 {
			b.running = false
			b.mu.Unlock()
			b.logger.Debug("broadcast task stopped, no subscribers")

			return
		}
		b.mu.Unlock()

		snap := displaySnapshot(b.state.Snapshot())
		b.subs.Range(func(_ string, sub *Subscription) bool {
			sub.push(snap)
			return true
		})
	}
}

// displaySnapshot converts the angle fields from radians to degrees at the
// fan-out boundary: all six joints and the rotation components of the TCP
// pose.
func displaySnapshot(snap Snapshot) Snapshot {
	for i := range snap.Joints {
		snap.Joints[i] = degrees(snap.Joints[i])
	}
	for i := 3; i < 6; i++ {
		snap.TCPPose[i] = degrees(snap.TCPPose[i])
	}

	return snap
}

func degrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
