// Package cell packages an object slot together with a barrier.Barrier
// so that construction and destruction order can never be gotten
// wrong: the object is always built before the barrier arms on its
// address, and the barrier always disarms before the object is torn
// down.
package cell

import (
	"lifelock/pkg/anchor"
	"lifelock/pkg/barrier"
)

// Cell owns inline storage for a T plus the Barrier guarding it.
// Occupancy is derived from the Barrier's own state, so Cell carries
// no separate discriminant byte.
type Cell[T any] struct {
	value T
	lock  *barrier.Barrier
}

// New returns an empty Cell ready for Construct.
func New[T any](opts ...barrier.Option) *Cell[T] {
	return &Cell[T]{lock: barrier.New(opts...)}
}

// Construct builds T in place via build, then arms the Barrier on the
// constructed value's address. Precondition: the Cell is empty —
// Construct on an already-occupied Cell panics, matching Barrier.Arm's
// own precondition-violation behavior (this module never silently
// reinitializes live state out from under an observer).
//
// If build panics, the Cell is left empty: the Barrier is armed only
// after build returns normally, so a panicking constructor never
// leaves a half-armed Cell.
func (c *Cell[T]) Construct(build func() T) {
	if c.lock.IsArmed() {
		panic("cell: Construct called on an occupied Cell")
	}
	c.value = build()
	barrier.Arm(c.lock, &c.value)
}

// IsOccupied reports whether the Cell currently holds a live value.
func (c *Cell[T]) IsOccupied() bool {
	return c.lock.IsArmed()
}

// Weak mints a weak observer for the stored value. Returns an empty
// Weak if the Cell is empty.
func (c *Cell[T]) Weak() anchor.Weak[T] {
	return barrier.GetWeak(c.lock, &c.value)
}

// Strong mints a strong observer for the stored value. Returns an
// empty Strong if the Cell is empty.
func (c *Cell[T]) Strong() anchor.Strong[T] {
	return barrier.GetStrong(c.lock, &c.value)
}

// Reset disarms the Barrier — blocking until every strong observer
// minted from this occupancy has been released — and then clears the
// stored value. A no-op on an already-empty Cell.
//
// Order is strict and is the reverse of Construct: disarm first, then
// the value's storage is cleared.
func (c *Cell[T]) Reset() {
	if !c.lock.IsArmed() {
		return
	}
	c.lock.Disarm()
	var zero T
	c.value = zero
}

// Value returns the stored value and true iff the Cell is occupied.
// The caller is responsible for not racing this read with a concurrent
// Reset.
func (c *Cell[T]) Value() (T, bool) {
	if !c.lock.IsArmed() {
		var zero T
		return zero, false
	}
	return c.value, true
}

// RawPtr returns a pointer to the stored value, valid only while the
// Cell remains occupied. The caller is responsible for not racing this
// with a concurrent Reset.
func (c *Cell[T]) RawPtr() *T {
	if !c.lock.IsArmed() {
		return nil
	}
	return &c.value
}
