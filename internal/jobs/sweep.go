package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper drops expired state and reports how many entries went.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// SweepJob periodically purges expired voice sessions and stale rate
// limit windows.
type SweepJob struct {
	sweepers map[string]Sweeper
	interval time.Duration
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewSweepJob(interval time.Duration) *SweepJob {
	return &SweepJob{
		sweepers: make(map[string]Sweeper),
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Add registers a sweeper under name. Call before Start.
func (j *SweepJob) Add(name string, s Sweeper) *SweepJob {
	if s != nil {
		j.sweepers[name] = s
	}
	return j
}

func (j *SweepJob) Start() {
	j.wg.Add(1)
	go j.run()
	log.Info().Dur("interval", j.interval).Int("sweepers", len(j.sweepers)).Msg("sweep job started")
}

func (j *SweepJob) Stop() {
	j.stopOnce.Do(func() {
		close(j.done)
		j.wg.Wait()
		log.Info().Msg("sweep job stopped")
	})
}

func (j *SweepJob) run() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *SweepJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for name, s := range j.sweepers {
		j.runSweep(ctx, name, s.Sweep)
	}
}

func (j *SweepJob) runSweep(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to sweep %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("swept %s", name)
	}
}
