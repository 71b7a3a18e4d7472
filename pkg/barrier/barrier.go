// Package barrier implements the one-shot lifetime barrier: the
// primitive that lets an owner block destruction of an object until
// every outstanding strong observer minted from it has been released,
// without owning a mutex or changing allocation strategy.
package barrier

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"lifelock/pkg/anchor"
)

type state int32

const (
	stateEmpty state = iota
	stateArmed
)

// Barrier couples an Anchor to a one-shot signal via a custom deleter,
// and provides the blocking wait performed at owner-destruction time.
// Empty at construction; Armed after Arm; back to Empty after Disarm.
//
// Disarm (and the destructor-equivalent Close) must not be invoked
// concurrently with itself on the same Barrier — that precondition is
// the caller's responsibility. Minting observers from other goroutines
// while Disarm is in progress is safe.
type Barrier struct {
	mu    sync.Mutex // guards state and anch for Arm, Disarm, GetWeak, GetStrong and IsArmed
	state state
	anch  anchor.Anchor
	sig   signal
	cfg   config
}

// New constructs an empty Barrier with the given options applied.
func New(opts ...Option) *Barrier {
	c := newConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return &Barrier{cfg: c}
}

// Arm transitions b from Empty to Armed, installing a deleter on a
// fresh control block that fires when the last strong observer for p
// is released. p must be non-nil — Arm rejects a nil pointer with a
// panic rather than silently arming an empty Barrier.
//
// Precondition: b is Empty. Arming an already-Armed Barrier panics: a
// loud failure beats silently leaking the previous arm cycle's
// deleter.
func Arm[T any](b *Barrier, p *T) {
	if p == nil {
		panic("barrier: Arm called with nil pointer")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != stateEmpty {
		panic("barrier: Arm called while Armed")
	}

	b.sig.reset()
	b.anch = anchor.New(func() {
		b.sig.markFired()
		wakeFutex(&b.sig)
	})
	b.state = stateArmed
	b.cfg.logger.Debug("barrier armed", zap.String("referent", fmt.Sprintf("%p", p)))
}

// GetWeak mints a weak observer for p via b's Anchor. Returns an empty
// Weak if b is not currently Armed.
func GetWeak[T any](b *Barrier, p *T) anchor.Weak[T] {
	b.mu.Lock()
	a := b.anch
	armed := b.state == stateArmed
	b.mu.Unlock()
	if !armed {
		return anchor.Weak[T]{}
	}
	return anchor.MakeWeak(a, p)
}

// GetStrong mints a strong observer for p via b's Anchor. Returns an
// empty Strong if b is not currently Armed.
func GetStrong[T any](b *Barrier, p *T) anchor.Strong[T] {
	b.mu.Lock()
	a := b.anch
	armed := b.state == stateArmed
	b.mu.Unlock()
	if !armed {
		return anchor.Strong[T]{}
	}
	return anchor.MakeStrong(a, p)
}

// Disarm is a no-op if b is Empty. If Armed, it:
//  1. mints a temporary strong observer tmp for b itself
//  2. drops the Anchor's contribution (tmp keeps the count >= 1, so the
//     deleter cannot have fired yet)
//  3. drops tmp, which may run the deleter inline
//  4. waits for the signal to fire, then transitions back to Empty
//
// Returns once every strong observer minted from this arm cycle has
// been released. Calling Disarm twice in a row is a no-op the second
// time (idempotent), and a Barrier may be re-Armed on a fresh address
// afterwards.
func (b *Barrier) Disarm() {
	b.mu.Lock()
	if b.state != stateArmed {
		b.mu.Unlock()
		return
	}
	a := b.anch
	b.mu.Unlock()

	tmp := anchor.MakeStrong(a, b)

	a.Reset()

	tmp.Release()

	waitForFired(&b.sig, b.cfg)

	b.mu.Lock()
	b.anch = anchor.Anchor{}
	b.state = stateEmpty
	b.mu.Unlock()
	b.cfg.logger.Debug("barrier disarmed")
}

// Close is Disarm under a name satisfying io.Closer, for callers that
// want to `defer b.Close()` right after New+Arm.
func (b *Barrier) Close() error {
	b.Disarm()
	return nil
}

// IsArmed reports whether b is currently in the Armed state.
func (b *Barrier) IsArmed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == stateArmed
}
