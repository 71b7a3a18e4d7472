// Package anchor implements the refcount half of the lifetime barrier:
// a control block with atomic strong/weak counts and a one-shot deleter
// hook, plus the typed observer handles minted against it.
//
// An Anchor itself carries no referent pointer — it is purely "one
// strong refcount contribution on a control block". Typed Strong[T]
// and Weak[T] observers alias a caller-supplied pointer onto that
// shared control block, the way a host shared_ptr's aliasing
// constructor would.
package anchor

import (
	"go.uber.org/atomic"
)

// controlBlock is a minimal refcounted control block: two atomic
// counters and a deleter invoked exactly once, the closest Go gets to
// a C++ shared_ptr's control block without a built-in aliasing
// refcounted pointer.
type controlBlock struct {
	strong  atomic.Int64
	weak    atomic.Int64
	deleter atomic.Value // func() (boxed to allow atomic swap-once semantics)
	fired   atomic.Bool  // deleter has run; guards the exactly-once contract
}

func newControlBlock(deleter func()) *controlBlock {
	cb := &controlBlock{}
	cb.strong.Store(1)
	cb.weak.Store(1)
	cb.deleter.Store(deleter)
	return cb
}

// runDeleterIfLast fires the deleter at most once, exactly when strong
// reaches zero. Safe to call from whichever goroutine observes the
// transition.
func (cb *controlBlock) runDeleterIfLast(newStrong int64) {
	if newStrong != 0 {
		return
	}
	if !cb.fired.CompareAndSwap(false, true) {
		return
	}
	if d, ok := cb.deleter.Load().(func()); ok && d != nil {
		d()
	}
}

func (cb *controlBlock) incStrongIfNonzero() bool {
	for {
		cur := cb.strong.Load()
		if cur <= 0 {
			return false
		}
		if cb.strong.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

func (cb *controlBlock) decStrong() {
	n := cb.strong.Dec()
	cb.runDeleterIfLast(n)
}

// Anchor holds exactly zero or one strong refcount contribution on a
// control block. It carries no referent pointer of its own — it is
// minted typed observers via MakeStrong/MakeWeak.
type Anchor struct {
	ctrl *controlBlock
}

// New constructs a freshly armed Anchor whose control block's deleter
// is d. The fresh strong contribution and the Anchor are the same
// allocation — there is no borrowed host shared_ptr to alias onto.
func New(d func()) Anchor {
	return Anchor{ctrl: newControlBlock(d)}
}

// IsArmed reports whether the Anchor currently holds a refcount.
func (a Anchor) IsArmed() bool {
	return a.ctrl != nil
}

// Clone increments the strong count and returns a new Anchor sharing
// the same control block. Cloning a zero-value (moved-from) Anchor
// returns an empty Anchor: a moved-from value is the zero value, and
// the zero value cannot spuriously gain a refcount.
func (a Anchor) Clone() Anchor {
	if a.ctrl == nil || !a.ctrl.incStrongIfNonzero() {
		return Anchor{}
	}
	return Anchor{ctrl: a.ctrl}
}

// Reset drops the held refcount. If this was the last strong
// reference, the deleter fires synchronously on the calling goroutine
// before Reset returns. Resetting an empty Anchor is a no-op.
func (a *Anchor) Reset() {
	if a.ctrl == nil {
		return
	}
	ctrl := a.ctrl
	a.ctrl = nil
	ctrl.decStrong()
}

// Strong is a strong observer: it contributes to the strong count and
// carries a caller-chosen referent pointer aliased onto the shared
// control block.
type Strong[T any] struct {
	ctrl *controlBlock
	ptr  *T
}

// Weak is a non-owning observer: it contributes to the weak count
// only. Promote it with Upgrade to test whether the referent is still
// alive.
type Weak[T any] struct {
	ctrl *controlBlock
	ptr  *T
}

// MakeStrong returns a strong observer sharing a's control block and
// carrying p as its referent. Empty (both fields zero) iff a is empty,
// p is nil, or the deleter has already fired.
func MakeStrong[T any](a Anchor, p *T) Strong[T] {
	if a.ctrl == nil || p == nil || !a.ctrl.incStrongIfNonzero() {
		return Strong[T]{}
	}
	return Strong[T]{ctrl: a.ctrl, ptr: p}
}

// MakeWeak returns a weak observer sharing a's control block and
// carrying p as its referent. Does not extend the strong count; always
// non-empty as long as a is armed and p is non-nil, regardless of
// whether strong is currently zero (that's exactly the case Upgrade is
// for).
func MakeWeak[T any](a Anchor, p *T) Weak[T] {
	if a.ctrl == nil || p == nil {
		return Weak[T]{}
	}
	a.ctrl.weak.Inc()
	return Weak[T]{ctrl: a.ctrl, ptr: p}
}

// Get returns the referent and true iff s is non-empty. s remains
// valid to dereference for as long as the caller holds it without
// calling Release.
func (s Strong[T]) Get() (*T, bool) {
	if s.ctrl == nil {
		return nil, false
	}
	return s.ptr, true
}

// IsValid reports whether s is a non-empty observer.
func (s Strong[T]) IsValid() bool {
	return s.ctrl != nil
}

// Release drops this strong observer's refcount contribution. If this
// was the last strong reference, the deleter fires synchronously,
// inline, on the calling goroutine.
func (s Strong[T]) Release() {
	if s.ctrl == nil {
		return
	}
	s.ctrl.decStrong()
}

// Clone increments the strong count and returns another strong
// observer for the same referent, mirroring a ref-counted pointer
// copy.
func (s Strong[T]) Clone() Strong[T] {
	if s.ctrl == nil || !s.ctrl.incStrongIfNonzero() {
		return Strong[T]{}
	}
	return Strong[T]{ctrl: s.ctrl, ptr: s.ptr}
}

// Upgrade attempts to promote w to a strong observer. Succeeds iff the
// strong count was nonzero at the instant of promotion; this is the
// normal "expired" signal, not an error.
func (w Weak[T]) Upgrade() (Strong[T], bool) {
	if w.ctrl == nil || !w.ctrl.incStrongIfNonzero() {
		return Strong[T]{}, false
	}
	return Strong[T]{ctrl: w.ctrl, ptr: w.ptr}, true
}

// Release drops this weak observer's weak-count contribution.
func (w Weak[T]) Release() {
	if w.ctrl == nil {
		return
	}
	w.ctrl.weak.Dec()
}

// IsValid reports whether w is a non-empty handle (does not imply the
// referent is still alive — use Upgrade for that).
func (w Weak[T]) IsValid() bool {
	return w.ctrl != nil
}
