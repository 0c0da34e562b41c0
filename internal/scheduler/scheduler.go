package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/safety-companion/internal/alert"
)

// Refresher re-observes every tracked slot.
type Refresher interface {
	Refresh(ctx context.Context) []alert.Decision
}

// Scheduler periodically refreshes the weather for tracked slots.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// running is held for the duration of a refresh.
	running sync.Mutex
}

// New creates a new Scheduler.
func New(refresher Refresher, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		refresher: refresher,
		interval:  interval,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the refresh job and starts the underlying scheduler. The
// first run happens immediately.
func (s *Scheduler) Start() error {
	s.scheduler.SingletonModeAll()

	if _, err := s.scheduler.Every(s.interval).Do(s.run); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop cancels any in-flight refresh, stops future runs and waits for the
// current one to return.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.running.Lock()
	defer s.running.Unlock()
}

func (s *Scheduler) run() {
	s.running.Lock()
	defer s.running.Unlock()

	if s.ctx.Err() != nil {
		return
	}

	// Singleton mode skips ticks while a refresh is running.
	ctx, cancel := context.WithTimeout(s.ctx, s.interval)
	defer cancel()

	start := time.Now()
	decisions := s.refresher.Refresh(ctx)

	var unavailable, raised int
	for _, d := range decisions {
		if d.Weather == alert.WeatherUnavailable {
			unavailable++
		}
		if d.Alert == alert.AlertRaise {
			raised++
		}
	}

	s.logger.Info("slots refreshed",
		"slots", len(decisions),
		"unavailable", unavailable,
		"alerts", raised,
		"took", time.Since(start),
	)
}
