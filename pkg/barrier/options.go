package barrier

import "go.uber.org/zap"

// Package-level defaults for the wait tuning knobs below. Unlike a
// C/C++ library these cannot be preprocessor macros; they are
// package-level vars, overridable per-Barrier via functional options.
var (
	// DefaultSpinCount is the number of acquire-load-and-yield
	// iterations performed before falling back to sleeping.
	DefaultSpinCount = 1 << 14

	// DefaultSleepMaxUsecLog2 bounds the backoff sleep exponent; the
	// sleep duration is capped at 2^DefaultSleepMaxUsecLog2
	// microseconds (~0.26s at the default of 18).
	DefaultSleepMaxUsecLog2 = 18

	// DefaultUseNativeWait selects the futex-backed wait where the
	// platform and build tags provide one. See wait_futex_linux.go /
	// wait_backoff.go.
	DefaultUseNativeWait = nativeWaitAvailable
)

type config struct {
	spinCount        int
	sleepMaxUsecLog2 int
	useNativeWait    bool
	logger           *zap.Logger
}

func newConfig() config {
	return config{
		spinCount:        DefaultSpinCount,
		sleepMaxUsecLog2: DefaultSleepMaxUsecLog2,
		useNativeWait:    DefaultUseNativeWait,
		logger:           zap.NewNop(),
	}
}

// Option configures a Barrier at construction time.
type Option func(*config)

// WithSpinCount overrides the spin-phase iteration count.
func WithSpinCount(n int) Option {
	return func(c *config) { c.spinCount = n }
}

// WithSleepMaxUsecLog2 overrides the backoff sleep exponent cap.
func WithSleepMaxUsecLog2(n int) Option {
	return func(c *config) { c.sleepMaxUsecLog2 = n }
}

// WithNativeWait forces the native futex-style wait on or off,
// overriding DefaultUseNativeWait for this Barrier.
func WithNativeWait(use bool) Option {
	return func(c *config) { c.useNativeWait = use }
}

// WithLogger attaches a zap logger for debug-level arm/disarm
// tracing. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
