package service

import (
	"context"
	"sync"
	"time"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/logger"
)

// NotificationSink receives notifications after their transaction commits.
type NotificationSink interface {
	Name() string
	Publish(ctx context.Context, events []domain.Notification) error
}

// Dispatcher fans committed notifications out to every sink. A failing sink
// is logged and never fails the operation that produced the events.
type Dispatcher struct {
	sinks      []NotificationSink
	maxRetries int
	backoff    func(attempt int) time.Duration
}

// NewDispatcher creates a Dispatcher; nil sinks are skipped.
func NewDispatcher(sinks ...NotificationSink) *Dispatcher {
	d := &Dispatcher{}
	for _, s := range sinks {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
	return d
}

// WithRetry retries a failing sink up to maxRetries times, sleeping
// backoff(attempt) between attempts.
func (d *Dispatcher) WithRetry(maxRetries int, backoff func(attempt int) time.Duration) *Dispatcher {
	d.maxRetries = maxRetries
	d.backoff = backoff
	return d
}

// Dispatch publishes events to every sink concurrently and waits for all of them.
func (d *Dispatcher) Dispatch(ctx context.Context, events []domain.Notification) {
	if d == nil || len(events) == 0 {
		return
	}
	var wg sync.WaitGroup
	wg.Add(len(d.sinks))
	for _, s := range d.sinks {
		go func(s NotificationSink) {
			defer wg.Done()
			if err := d.publish(ctx, s, events); err != nil {
				logger.ErrorLog(ctx, "notification sink %s failed: %v", s.Name(), err)
			}
		}(s)
	}
	wg.Wait()
}

func (d *Dispatcher) publish(ctx context.Context, s NotificationSink, events []domain.Notification) error {
	err := s.Publish(ctx, events)
	for attempt := 1; err != nil && attempt <= d.maxRetries; attempt++ {
		if d.backoff != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.backoff(attempt)):
			}
		}
		err = s.Publish(ctx, events)
	}
	return err
}

// LogSink writes one structured log line per notification.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Publish(ctx context.Context, events []domain.Notification) error {
	for _, n := range events {
		logger.InfoLog(logger.WithLogger(ctx, map[string]interface{}{
			"notification_id": n.ID,
			"recipient":       n.RecipientUserID,
			"type":            n.Type,
			"related_id":      n.RelatedID,
		}), "notification: %s", n.Title)
	}
	return nil
}
