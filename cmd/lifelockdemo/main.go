// Command lifelockdemo exercises the lifelock barrier end to end: arm
// on an address, hand out weak/strong observers to worker goroutines,
// and disarm from the owning goroutine while workers race to promote
// and release — a small, runnable surface over the library.
package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"lifelock/pkg/barrier"
	"lifelock/pkg/cell"
)

func init() {
	// Respect container CPU quotas before any goroutines are started
	// below — the same reason a server binary would call this in its
	// own init(). The stress worker count itself comes from --workers.
	_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
}

var (
	verbose bool
	logger  *zap.Logger
)

func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level.SetLevel(zap.InfoLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		l = zap.NewNop()
	}
	return l
}

func main() {
	root := &cobra.Command{
		Use:   "lifelockdemo",
		Short: "Demonstrates the lifelock one-shot lifetime barrier",
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose structured logging")
	root.PersistentPreRun = func(*cobra.Command, []string) {
		logger = newLogger()
	}

	root.AddCommand(runCmd(), stressCmd(), cellCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Arm a barrier on a stack value, mint observers, then disarm",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := uuid.NewString()
			log := logger.With(zap.String("session", sessionID))

			type payload struct{ n int }
			p := payload{n: 1}

			b := barrier.New(barrier.WithLogger(log))
			barrier.Arm(b, &p)
			log.Info("armed")

			w := barrier.GetWeak(b, &p)
			s := barrier.GetStrong(b, &p)
			if v, ok := s.Get(); ok {
				log.Info("minted strong observer", zap.Int("value", v.n))
			}
			s.Release()

			b.Disarm()
			log.Info("disarmed")

			_, ok := w.Upgrade()
			fmt.Printf("session=%s weak-promotes-after-disarm=%v\n", sessionID, ok)
			return nil
		},
	}
}

func stressCmd() *cobra.Command {
	var workers int
	var attempts int
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Race worker goroutines against a disarm to exercise the backoff wait",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := uuid.NewString()
			log := logger.With(zap.String("session", sessionID))

			type counter struct {
				mu sync.Mutex
				n  int
			}
			c := &counter{}

			b := barrier.New(barrier.WithLogger(log))
			barrier.Arm(b, c)
			w := barrier.GetWeak(b, c)

			sem := semaphore.NewWeighted(int64(workers))
			var wg sync.WaitGroup
			var successes, failures int

			var mu sync.Mutex
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(id int) {
					defer wg.Done()
					_ = sem.Acquire(context.Background(), 1)
					defer sem.Release(1)
					for j := 0; j < attempts; j++ {
						strong, ok := w.Upgrade()
						mu.Lock()
						if ok {
							successes++
						} else {
							failures++
						}
						mu.Unlock()
						if ok {
							if v, ok := strong.Get(); ok {
								v.mu.Lock()
								v.n++
								v.mu.Unlock()
							}
							strong.Release()
						}
					}
				}(i)
			}

			start := time.Now()
			b.Disarm()
			elapsed := time.Since(start)
			wg.Wait()

			log.Info("stress run complete",
				zap.Int("successes", successes),
				zap.Int("failures", failures),
				zap.Duration("disarm_wait", elapsed),
			)
			fmt.Printf("session=%s successes=%d failures=%d disarm_wait=%s final_count=%d\n",
				sessionID, successes, failures, elapsed, c.n)
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 8, "number of concurrent worker goroutines")
	cmd.Flags().IntVar(&attempts, "attempts", 2000, "promote/release attempts per worker")
	return cmd
}

func cellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cell",
		Short: "Construct a Cell, observe it, then Reset it",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := uuid.NewString()
			log := logger.With(zap.String("session", sessionID))

			c := cell.New[[]int](barrier.WithLogger(log))
			c.Construct(func() []int { return []int{1, 2, 3} })
			log.Info("cell constructed", zap.Bool("occupied", c.IsOccupied()))

			s := c.Strong()
			if v, ok := s.Get(); ok {
				fmt.Printf("session=%s value=%v\n", sessionID, *v)
			}
			s.Release()

			c.Reset()
			fmt.Printf("session=%s occupied-after-reset=%v\n", sessionID, c.IsOccupied())
			return nil
		},
	}
}
