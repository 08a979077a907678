// Package results records the outcome of every scored trial.
package results

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Outcome is one scored trial as both partners saw it.
type Outcome struct {
	PairID     string
	TrialN     int // 1-based position in the shared sequence
	Block      int
	DirectorID string
	MatcherID  string
	Target     string
	Label      string
	Guess      string
	Score      int
	RecordedAt time.Time
}

// Store persists outcomes.
type Store interface {
	Save(ctx context.Context, o Outcome) error
	Close() error
}

const saveTimeout = 5 * time.Second

// Recorder queues outcomes and saves them on its own goroutine, so callers
// never wait on storage. When the queue is full the outcome is dropped.
type Recorder struct {
	store   Store
	queue   chan Outcome
	done    chan struct{}
	log     *zap.Logger
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

func NewRecorder(store Store, size int, log *zap.Logger) *Recorder {
	r := &Recorder{
		store: store,
		queue: make(chan Outcome, size),
		done:  make(chan struct{}),
		log:   log,
	}
	go r.run()
	return r
}

func (r *Recorder) Record(o Outcome) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- o:
	default:
		r.dropped.Add(1)
		r.log.Warn("results queue full, dropping outcome",
			zap.String("pair", o.PairID), zap.Int("trial", o.TrialN))
	}
}

// Dropped counts outcomes lost to a full queue.
func (r *Recorder) Dropped() int64 { return r.dropped.Load() }

func (r *Recorder) run() {
	defer close(r.done)
	for o := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		if err := r.store.Save(ctx, o); err != nil {
			r.log.Error("save outcome", zap.Error(err),
				zap.String("pair", o.PairID), zap.Int("trial", o.TrialN))
		}
		cancel()
	}
}

// Close drains what is queued, then closes the store.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	<-r.done
	return r.store.Close()
}
