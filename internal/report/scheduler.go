package report

import (
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

const DefaultInterval = 24 * time.Hour

// Mailer delivers a built digest. *gomail.Dialer satisfies it.
type Mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Scheduler mails the digest to a fixed recipient list on a ticker.
// Each send covers the window since the previous one.
type Scheduler struct {
	gen        *Generator
	mailer     Mailer
	recipients []string
	interval   time.Duration
	log        *logrus.Logger
	stopChan   chan struct{}
	done       chan struct{}
}

func NewScheduler(gen *Generator, mailer Mailer, recipients []string, interval time.Duration, log *logrus.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logrus.New()
	}
	return &Scheduler{
		gen:        gen,
		mailer:     mailer,
		recipients: recipients,
		interval:   interval,
		log:        log,
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start loops until Stop. The first digest goes out after one full
// interval so it covers a complete window.
func (s *Scheduler) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Send()
			case <-s.stopChan:
				return
			}
		}
	}()
}

// Stop ends the loop and waits for the goroutine to exit.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	<-s.done
}

// Send builds and mails the digest for the window ending now. Failures
// are logged; the next tick retries with a fresh window.
func (s *Scheduler) Send() error {
	end := time.Now()
	start := end.Add(-s.interval)

	m, err := s.gen.Build(start, end, s.recipients)
	if err != nil {
		s.log.WithError(err).Error("failed to build alert digest")
		return err
	}
	if err := s.mailer.DialAndSend(m); err != nil {
		s.log.WithError(err).Error("failed to send alert digest")
		return err
	}
	s.log.WithField("recipients", len(s.recipients)).Info("alert digest sent")
	return nil
}
