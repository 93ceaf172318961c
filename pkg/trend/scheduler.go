package trend

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"trend-go/pkg/logger"
)

// Trigger starts a refresh cycle.
type Trigger interface {
	TriggerRefresh(origin string) bool
}

// Scheduler triggers a refresh on a fixed interval.
type Scheduler struct {
	trigger    Trigger
	interval   time.Duration
	clock      clockwork.Clock
	runOnStart bool
	log        *logger.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

func NewScheduler(trigger Trigger, interval time.Duration, clock clockwork.Clock, runOnStart bool) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		trigger:    trigger,
		interval:   interval,
		clock:      clock,
		runOnStart: runOnStart,
		log:        logger.Component("scheduler"),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the ticker loop. Calling it more than once has no effect.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		go s.loop()
	})
}

// Stop ends the loop and waits for it. A scheduler that was never started
// stops immediately.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.startOnce.Do(func() {
		close(s.done)
	})
	<-s.done
}

func (s *Scheduler) loop() {
	defer close(s.done)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.WithField("interval", s.interval.String()).Info("Refresh scheduler started")
	if s.runOnStart {
		s.trigger.TriggerRefresh(OriginStartup)
	}

	for {
		select {
		case <-ticker.Chan():
			s.trigger.TriggerRefresh(OriginSchedule)
		case <-s.stop:
			s.log.Info("Refresh scheduler stopped")
			return
		}
	}
}
