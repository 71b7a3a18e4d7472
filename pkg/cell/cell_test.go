package cell

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// S5: Cell round-trip — construct a Cell holding a slice of ints, pass
// its weak observer to another goroutine that pushes into the slice
// while promoting strong, stop the pusher, check that every push is
// visible in the stored value, call Reset, and observe that no
// promotion succeeds after Reset returns.
func TestCellRoundTrip(t *testing.T) {
	type holder struct {
		mu  sync.Mutex
		vec []int
	}

	c := New[holder]()
	c.Construct(func() holder { return holder{} })

	w := c.Weak()

	stop := make(chan struct{})
	pushesDone := make(chan int)
	go func() {
		n := 0
		for {
			select {
			case <-stop:
				pushesDone <- n
				return
			default:
			}
			if s, ok := w.Upgrade(); ok {
				if h, ok := s.Get(); ok {
					h.mu.Lock()
					h.vec = append(h.vec, n)
					n++
					h.mu.Unlock()
				}
				s.Release()
			}
		}
	}()

	time.Sleep(5 * time.Millisecond)
	close(stop)
	pushed := <-pushesDone
	require.Len(t, c.RawPtr().vec, pushed, "every earlier push must be visible before Reset")

	c.Reset()

	require.False(t, c.IsOccupied())
	_, ok := w.Upgrade()
	require.False(t, ok, "no promotion may succeed once Reset has returned")
	_ = pushed
}

func TestCellConstructThenValue(t *testing.T) {
	c := New[int]()
	require.False(t, c.IsOccupied())

	c.Construct(func() int { return 7 })
	require.True(t, c.IsOccupied())

	v, ok := c.Value()
	require.True(t, ok)
	require.Equal(t, 7, v)

	c.Reset()
	require.False(t, c.IsOccupied())
	_, ok = c.Value()
	require.False(t, ok)
}

func TestCellConstructTwicePanics(t *testing.T) {
	c := New[int]()
	c.Construct(func() int { return 1 })
	require.Panics(t, func() {
		c.Construct(func() int { return 2 })
	})
	c.Reset()
}

func TestCellOrderingDestructorAfterDisarm(t *testing.T) {
	var destroyedAfterDisarm bool

	c := New[*int]()
	n := new(int)
	*n = 1
	c.Construct(func() *int { return n })

	s := c.Strong()
	require.True(t, s.IsValid())

	disarmReturned := make(chan struct{})
	go func() {
		c.Reset()
		close(disarmReturned)
	}()

	select {
	case <-disarmReturned:
		t.Fatal("Reset must block while a strong observer is outstanding")
	case <-time.After(20 * time.Millisecond):
	}

	v, ok := s.Get()
	require.True(t, ok)
	require.Equal(t, 1, **v, "the value must stay intact while Reset is blocked in disarm")

	s.Release()
	<-disarmReturned
	destroyedAfterDisarm = c.RawPtr() == nil && !c.IsOccupied()
	require.True(t, destroyedAfterDisarm)
}

func TestCellRawPtrAndWeakAfterReset(t *testing.T) {
	c := New[int]()
	c.Construct(func() int { return 5 })
	require.NotNil(t, c.RawPtr())

	c.Reset()
	require.Nil(t, c.RawPtr())

	w := c.Weak()
	require.False(t, w.IsValid())
}
