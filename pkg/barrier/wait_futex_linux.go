//go:build linux && barrier_nativewait

package barrier

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// nativeWaitAvailable is true on this build: Linux with the
// barrier_nativewait build tag wires the signal straight to the
// kernel's futex wait/wake rather than the userspace spin/sleep
// fallback. golang.org/x/sys/unix supplies the raw syscall plumbing;
// the FUTEX_WAIT/FUTEX_WAKE op codes are stable Linux ABI constants
// not re-exported by the unix package, so they are named here.
const nativeWaitAvailable = true

const (
	futexWait = 0
	futexWake = 1
)

// waitForFired blocks on the kernel futex associated with s.word until
// it transitions away from signalUnset, re-checking after every wake
// (the classic futex-wait idiom: a wake is a hint, not a guarantee the
// predicate now holds). Falls back to a short re-arm sleep on
// unexpected errors so a misbehaving kernel cannot spin this goroutine
// at 100% CPU.
func waitForFired(s *signal, c config) {
	if !c.useNativeWait {
		spinThenSleep(s, c)
		return
	}
	addr := (*int32)(unsafe.Pointer(&s.word))
	for {
		if s.isFired() {
			return
		}
		_, _, errno := unix.Syscall6(
			unix.SYS_FUTEX,
			uintptr(unsafe.Pointer(addr)),
			uintptr(futexWait),
			uintptr(signalUnset),
			0, 0, 0,
		)
		switch errno {
		case 0, unix.EAGAIN, unix.EINTR:
			// Either woken, the value had already changed underfoot
			// (EAGAIN), or an interrupted call (EINTR) — loop and
			// re-check the predicate in all three cases.
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

// wakeFutex is called by markFired's caller (via Barrier) after
// setting the signal, to wake any goroutine parked in waitForFired.
// Safe to call even if nobody is waiting (FUTEX_WAKE on an
// uncontended word is a cheap no-op).
func wakeFutex(s *signal) {
	addr := (*int32)(unsafe.Pointer(&s.word))
	unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWake),
		uintptr(1<<30),
		0, 0, 0,
	)
}
