package scheduler

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler runs one job on a fixed interval. It can be started and stopped
// repeatedly; each Start after a Stop gets a fresh underlying gocron scheduler.
type Scheduler struct {
	name     string
	interval time.Duration
	job      func()

	mu        sync.Mutex
	scheduler *gocron.Scheduler
}

// New creates a stopped Scheduler.
func New(name string, interval time.Duration, job func()) *Scheduler {
	return &Scheduler{
		name:     name,
		interval: interval,
		job:      job,
	}
}

// Start schedules the job. The first run happens one interval from now.
// Starting an already running scheduler is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduler != nil {
		return nil
	}
	if s.interval <= 0 {
		return fmt.Errorf("scheduler %s: interval must be positive", s.name)
	}

	gs := gocron.NewScheduler(time.UTC)
	_, err := gs.Every(s.interval).WaitForSchedule().SingletonMode().Do(func() {
		log.Printf("scheduler: running %s job", s.name)
		s.job()
	})
	if err != nil {
		return err
	}

	gs.StartAsync()
	s.scheduler = gs
	log.Printf("scheduler: %s started (every %s)", s.name, s.interval)
	return nil
}

// Stop cancels future runs. It never blocks on a job in progress, so a job
// may stop its own scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	gs := s.scheduler
	s.scheduler = nil
	s.mu.Unlock()

	if gs == nil {
		return
	}
	go gs.Stop()
	log.Printf("scheduler: %s stopped", s.name)
}

// Running reports whether future runs are scheduled.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduler != nil
}
