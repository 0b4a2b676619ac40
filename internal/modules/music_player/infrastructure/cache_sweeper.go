package infrastructure

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Sweepable is a cache that can drop its expired entries.
type Sweepable interface {
	Sweep() int
}

// CacheSweeper periodically evicts expired cache entries on a cron schedule.
type CacheSweeper struct {
	cron     *cron.Cron
	cache    Sweepable
	schedule string

	mu      sync.Mutex
	running bool
}

// scheduleParser takes standard five-field specs, an optional leading seconds
// field and descriptors such as "@every 10m".
var scheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// NewCacheSweeper creates a sweeper for cache running on schedule.
func NewCacheSweeper(cache Sweepable, schedule string) (*CacheSweeper, error) {
	s := &CacheSweeper{
		cron:     cron.New(cron.WithParser(scheduleParser)),
		cache:    cache,
		schedule: schedule,
	}

	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid cache sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start starts the scheduler in the background.
func (s *CacheSweeper) Start() {
	s.cron.Start()
	slog.Info("scheduled metadata cache sweep", "schedule", s.schedule)
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *CacheSweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *CacheSweeper) sweep() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		slog.Debug("cache sweep already in progress, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if removed := s.cache.Sweep(); removed > 0 {
		slog.Debug("swept metadata cache", "removed", removed)
	}
}
