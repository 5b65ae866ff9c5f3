// Package clock keeps a corrected wall clock that is resistant to device
// clock tampering.
//
// A Synchronizer measures the offset between local time and a network time
// source and applies it to every Now call. Until a measurement succeeds it
// falls back to a previously persisted offset, and then to raw local time.
// Synchronizations are coalesced: callers that ask for the same host while a
// measurement is in flight join its batch and are all notified, in order,
// when it finishes. Requests for another host queue behind it.
package clock

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"
)

const DefaultHost = "pool.ntp.org"

// ErrSync is the root of every synchronization failure. It is only logged;
// callers see a failed sync as done(false).
var ErrSync = errors.New("clock: sync failed")

// Clock is the read side of the synchronizer.
type Clock interface {
	Now() time.Time
}

// Source measures the offset of local time against a network time host.
type Source interface {
	Offset(ctx context.Context, host string) (time.Duration, error)
}

// OffsetStore persists the last known good offset across restarts.
type OffsetStore interface {
	LoadOffset() (Offset, bool, error)
	SaveOffset(Offset) error
}

// Offset is a measured correction and the local time it was measured at.
type Offset struct {
	Offset     time.Duration
	MeasuredAt time.Time
}

// Config configures a Synchronizer.
type Config struct {
	Source Source
	// Store is optional.
	Store OffsetStore
	// Host is used when Sync is called with an empty host.
	Host string
	// MaxOffsetAge limits how old a persisted offset may be to be restored.
	// Zero means no limit.
	MaxOffsetAge time.Duration
	// Timeout bounds a whole batch, retries included.
	Timeout time.Duration

	// now returns local time; tests replace it.
	now func() time.Time
}

// Synchronizer owns the process-wide corrected clock. Construct one and pass
// it to every consumer.
type Synchronizer struct {
	source  Source
	store   OffsetStore
	host    string
	timeout time.Duration
	now     func() time.Time

	offset   *atomic.Duration
	hasValue *atomic.Bool
	synced   *atomic.Bool

	mu      sync.Mutex
	running bool
	current string
	pending []func(bool)
	queued  []batch
}

// batch is a measurement waiting for the in-flight one to finish.
type batch struct {
	host string
	done []func(bool)
}

// New creates a Synchronizer and restores a persisted offset if one is fresh
// enough. It does not touch the network.
func New(cfg Config) *Synchronizer {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}

	s := &Synchronizer{
		source:   cfg.Source,
		store:    cfg.Store,
		host:     cfg.Host,
		timeout:  cfg.Timeout,
		now:      cfg.now,
		offset:   atomic.NewDuration(0),
		hasValue: atomic.NewBool(false),
		synced:   atomic.NewBool(false),
	}
	s.restore(cfg.MaxOffsetAge)
	return s
}

func (s *Synchronizer) restore(maxAge time.Duration) {
	if s.store == nil {
		return
	}
	stored, ok, err := s.store.LoadOffset()
	if err != nil {
		slog.Warn("clock: failed to load stored offset", "error", err)
		return
	}
	if !ok {
		return
	}
	if maxAge > 0 && s.now().Sub(stored.MeasuredAt) > maxAge {
		slog.Info("clock: stored offset too old, ignoring", "measured_at", stored.MeasuredAt)
		return
	}
	s.offset.Store(stored.Offset)
	s.hasValue.Store(true)
	slog.Info("clock: restored stored offset", "offset", stored.Offset)
}

// Now returns local time corrected by the best known offset. It never blocks.
func (s *Synchronizer) Now() time.Time {
	now := s.now()
	if !s.hasValue.Load() {
		return now
	}
	return now.Add(s.offset.Load())
}

// Offset returns the applied offset and whether one is known.
func (s *Synchronizer) Offset() (time.Duration, bool) {
	return s.offset.Load(), s.hasValue.Load()
}

// Synced reports whether a network sync has succeeded in this process.
func (s *Synchronizer) Synced() bool {
	return s.synced.Load()
}

// Sync starts a synchronization with host, or the configured host when empty.
//
// If the clock is already synced and force is false, done(true) is called
// immediately. Otherwise done joins the batch for host: the in-flight one when
// it measures the same host, a queued one that runs after it when the host
// differs, or a new one started right away. Every done of a batch is called
// exactly once, in the order Sync was called, with the batch result. done may
// be nil.
func (s *Synchronizer) Sync(force bool, host string, done func(synced bool)) {
	if !force && s.synced.Load() {
		if done != nil {
			done(true)
		}
		return
	}

	if host == "" {
		host = s.host
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case !s.running:
		s.running = true
		s.current = host
		s.pending = append(s.pending, done)
		go s.run(host)
	case host == s.current:
		s.pending = append(s.pending, done)
	default:
		s.enqueue(host, done)
	}
}

// enqueue adds done to the queued batch for host. s.mu must be held.
func (s *Synchronizer) enqueue(host string, done func(bool)) {
	for i := range s.queued {
		if s.queued[i].host == host {
			s.queued[i].done = append(s.queued[i].done, done)
			return
		}
	}
	s.queued = append(s.queued, batch{host: host, done: []func(bool){done}})
}

// SyncContext is a blocking Sync. It returns false when ctx ends first; the
// batch itself still completes in the background.
func (s *Synchronizer) SyncContext(ctx context.Context, force bool, host string) bool {
	result := make(chan bool, 1)
	s.Sync(force, host, func(synced bool) { result <- synced })
	select {
	case ok := <-result:
		return ok
	case <-ctx.Done():
		return false
	}
}

func (s *Synchronizer) run(host string) {
	for host != "" {
		ok := s.measure(host)

		s.mu.Lock()
		finished := s.pending
		s.pending = nil
		host = ""
		if len(s.queued) > 0 {
			next := s.queued[0]
			s.queued = s.queued[1:]
			host, s.current, s.pending = next.host, next.host, next.done
		} else {
			s.running = false
			s.current = ""
		}
		s.mu.Unlock()

		for _, done := range finished {
			if done != nil {
				done(ok)
			}
		}
	}
}

func (s *Synchronizer) measure(host string) bool {
	if s.source == nil {
		slog.Warn("clock: no time source configured")
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	offset, err := s.source.Offset(ctx, host)
	if err != nil {
		slog.Warn("clock: sync failed, using local time", "host", host, "error", err)
		return false
	}

	s.offset.Store(offset)
	s.hasValue.Store(true)
	s.synced.Store(true)
	slog.Info("clock: synced", "host", host, "offset", offset)

	if s.store != nil {
		if err := s.store.SaveOffset(Offset{Offset: offset, MeasuredAt: s.now()}); err != nil {
			slog.Warn("clock: failed to persist offset", "error", err)
		}
	}
	return true
}

// Local is a Clock backed by time.Now.
type Local struct{}

// Now returns the current system time.
func (Local) Now() time.Time {
	return time.Now()
}

// Fixed is a Clock that always returns the same instant.
type Fixed time.Time

// Now returns the fixed instant.
func (f Fixed) Now() time.Time {
	return time.Time(f)
}
