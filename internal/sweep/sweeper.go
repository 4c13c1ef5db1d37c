// Package sweep runs the periodic maintenance loop: re-checking alert
// triggers for predictions that slipped past rule changes, and removing
// alerts past the retention window.
package sweep

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forestguard/internal/engine"
)

const DefaultInterval = 10 * time.Minute

// Sweeper drives the engine's trigger check and retention cleanup on a
// fixed ticker.
type Sweeper struct {
	engine   *engine.Engine
	interval time.Duration
	log      *logrus.Logger
	stopChan chan struct{}
	done     chan struct{}
}

func New(e *engine.Engine, interval time.Duration, log *logrus.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logrus.New()
	}
	return &Sweeper{
		engine:   e,
		interval: interval,
		log:      log,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs one sweep immediately and then loops until Stop.
func (s *Sweeper) Start(ctx context.Context) {
	s.sweep(ctx)

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
			case <-s.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the loop and waits for the goroutine to exit.
func (s *Sweeper) Stop() {
	close(s.stopChan)
	<-s.done
}

func (s *Sweeper) sweep(ctx context.Context) {
	created := s.engine.CheckAlertTriggers(ctx)
	removed := s.engine.CleanupExpiredAlerts()
	if len(created) > 0 || removed > 0 {
		s.log.WithFields(logrus.Fields{
			"triggered": len(created),
			"removed":   removed,
		}).Info("maintenance sweep complete")
	}
}
