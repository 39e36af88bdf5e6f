// Package autosave coalesces rapid edits of a document into debounced saves.
package autosave

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrClosed is returned by Edit after Close
var ErrClosed = errors.New("autosave buffer is closed")

// DefaultDelay is the debounce window used when none is configured
const DefaultDelay = time.Second

// State of a key's buffered edits
type State string

const (
	StateIdle    State = "idle"
	StatePending State = "pending"
	StateSaving  State = "saving"
	StateSaved   State = "saved"
	StateFailed  State = "failed"
)

// Patch is a JSON object patch. Top-level keys replace the stored values.
type Patch map[string]json.RawMessage

// ParsePatch decodes a JSON object into a Patch
func ParsePatch(data []byte) (Patch, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("patch must be a JSON object")
	}
	var p Patch
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, fmt.Errorf("invalid patch: %w", err)
	}
	return p, nil
}

// Merge returns a copy of base with every key of patch applied on top
func Merge(base, patch Patch) Patch {
	out := make(Patch, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// SaveFunc persists the coalesced patch of one key
type SaveFunc[K comparable] func(ctx context.Context, key K, patch Patch) error

// Status reports the save state of a key
type Status struct {
	State     State
	LastError error
	SavedAt   time.Time
}

type entry struct {
	pending  Patch
	inflight Patch
	timer    *time.Timer
	saving   chan struct{}
	status   Status
}

// Option configures a Buffer
type Option func(*options)

type options struct {
	permanent func(error) bool
}

// WithPermanentErrors marks save errors that retrying cannot fix. The edits of
// such a save are dropped instead of being kept for the next flush.
func WithPermanentErrors(fn func(error) bool) Option {
	return func(o *options) { o.permanent = fn }
}

// Buffer holds edits per key and hands them to a SaveFunc after the debounce
// window, one save per key at a time. Edits are visible through View before
// they are saved.
type Buffer[K comparable] struct {
	save        SaveFunc[K]
	delay       time.Duration
	saveTimeout time.Duration
	permanent   func(error) bool
	logger      *zap.Logger

	mu      sync.Mutex
	entries map[K]*entry
	closed  bool
	wg      sync.WaitGroup
}

// New creates a buffer. A non-positive delay falls back to DefaultDelay.
func New[K comparable](save SaveFunc[K], delay time.Duration, logger *zap.Logger, opts ...Option) *Buffer[K] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	o := options{permanent: func(error) bool { return false }}
	for _, opt := range opts {
		opt(&o)
	}
	return &Buffer[K]{
		save:        save,
		delay:       delay,
		saveTimeout: 30 * time.Second,
		permanent:   o.permanent,
		logger:      logger,
		entries:     make(map[K]*entry),
	}
}

// Delay returns the debounce window
func (b *Buffer[K]) Delay() time.Duration {
	return b.delay
}

// Edit merges patch into the key's pending edits and restarts its debounce
// timer
func (b *Buffer[K]) Edit(key K, patch Patch) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	e := b.entry(key)
	e.pending = Merge(e.pending, patch)
	if e.saving == nil {
		e.status.State = StatePending
	}

	b.stopTimer(e)
	b.wg.Add(1)
	e.timer = time.AfterFunc(b.delay, func() { b.fire(key) })
	return nil
}

// View returns the buffered, not yet persisted edits of a key
func (b *Buffer[K]) View(key K) (Patch, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok || (len(e.pending) == 0 && len(e.inflight) == 0) {
		return nil, false
	}
	return Merge(e.inflight, e.pending), true
}

// State returns the save status of a key. Unknown keys are idle.
func (b *Buffer[K]) State(key K) Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		return Status{State: StateIdle}
	}
	return e.status
}

// Flush saves the key's pending edits now, waiting for an in-flight save of
// the same key first. Nothing pending is a successful no-op.
func (b *Buffer[K]) Flush(ctx context.Context, key K) error {
	b.mu.Lock()
	e, ok := b.entries[key]
	if !ok {
		b.mu.Unlock()
		return nil
	}

	for e.saving != nil {
		done := e.saving
		b.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		b.mu.Lock()
	}

	if len(e.pending) == 0 {
		b.mu.Unlock()
		return nil
	}

	b.stopTimer(e)
	patch := e.pending
	e.pending = nil
	e.inflight = patch
	e.saving = make(chan struct{})
	e.status.State = StateSaving
	b.mu.Unlock()

	err := b.save(ctx, key, patch)

	b.mu.Lock()
	defer b.mu.Unlock()

	e.inflight = nil
	close(e.saving)
	e.saving = nil

	if err != nil {
		e.status.State = StateFailed
		e.status.LastError = err
		if b.permanent(err) {
			b.logger.Warn("Discarding rejected edits",
				zap.Any("key", key),
				zap.Int("fields", len(patch)),
				zap.Error(err))
			return err
		}
		// keep the failed edits so the next flush retries them
		e.pending = Merge(patch, e.pending)
		return err
	}

	e.status.LastError = nil
	e.status.SavedAt = time.Now()
	if len(e.pending) > 0 {
		e.status.State = StatePending
	} else {
		e.status.State = StateSaved
	}
	return nil
}

// Close stops accepting edits and flushes every key with pending edits
func (b *Buffer[K]) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	keys := make([]K, 0, len(b.entries))
	for k, e := range b.entries {
		b.stopTimer(e)
		keys = append(keys, k)
	}
	b.mu.Unlock()

	var errs []error
	for _, k := range keys {
		if err := b.Flush(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("flush %v: %w", k, err))
		}
	}
	b.wg.Wait()
	return errors.Join(errs...)
}

func (b *Buffer[K]) fire(key K) {
	defer b.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), b.saveTimeout)
	defer cancel()

	if err := b.Flush(ctx, key); err != nil {
		b.logger.Warn("Debounced save failed",
			zap.Any("key", key),
			zap.Error(err))
	}
}

// stopTimer cancels a scheduled save that has not fired yet. Caller holds b.mu.
func (b *Buffer[K]) stopTimer(e *entry) {
	if e.timer != nil && e.timer.Stop() {
		b.wg.Done()
	}
	e.timer = nil
}

// entry returns the key's entry, creating it. Caller holds b.mu.
func (b *Buffer[K]) entry(key K) *entry {
	e, ok := b.entries[key]
	if !ok {
		e = &entry{status: Status{State: StateIdle}}
		b.entries[key] = e
	}
	return e
}
