package anchor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAnchorFiresDeleterOnLastReset(t *testing.T) {
	fired := false
	a := New(func() { fired = true })
	require.True(t, a.IsArmed())
	require.False(t, fired)

	a.Reset()
	require.True(t, fired)
	require.False(t, a.IsArmed())
}

func TestMakeStrongKeepsDeleterPending(t *testing.T) {
	fired := false
	a := New(func() { fired = true })

	var x int
	s := MakeStrong(a, &x)
	require.True(t, s.IsValid())

	a.Reset()
	require.False(t, fired, "deleter must not fire while a strong observer is outstanding")

	s.Release()
	require.True(t, fired)
}

func TestMakeStrongAfterDeleterFiredReturnsEmpty(t *testing.T) {
	a := New(func() {})
	a.Reset()

	var x int
	s := MakeStrong(a, &x)
	require.False(t, s.IsValid())
}

func TestWeakUpgradeFailsAfterStrongCountReachesZero(t *testing.T) {
	a := New(func() {})
	var x int
	w := MakeWeak(a, &x)

	a.Reset()

	_, ok := w.Upgrade()
	require.False(t, ok)
}

func TestWeakUpgradeSucceedsWhileStrongOutstanding(t *testing.T) {
	a := New(func() {})
	var x int
	w := MakeWeak(a, &x)

	strong, ok := w.Upgrade()
	require.True(t, ok)
	defer strong.Release()

	got, ok := strong.Get()
	require.True(t, ok)
	require.Equal(t, &x, got)
}

func TestCloneOfMovedFromAnchorIsEmpty(t *testing.T) {
	a := New(func() {})
	var moved Anchor // zero value, i.e. "moved-from"
	clone := moved.Clone()
	require.False(t, clone.IsArmed())

	a.Reset()
}

func TestConcurrentStrongMintAndRelease(t *testing.T) {
	a := New(func() {})
	var x int

	const n = 64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			s := MakeStrong(a, &x)
			if s.IsValid() {
				s.Release()
			}
		}()
	}
	wg.Wait()

	stats := StatsOf(a)
	require.Equal(t, int64(1), stats.Strong, "only the anchor's own contribution should remain")
	a.Reset()
}

func TestNilReferentProducesEmptyObservers(t *testing.T) {
	a := New(func() {})
	defer a.Reset()

	s := MakeStrong[int](a, nil)
	require.False(t, s.IsValid())

	w := MakeWeak[int](a, nil)
	require.False(t, w.IsValid())
}
