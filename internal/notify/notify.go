// Package notify queues study reminders and dispatches them when they fall due.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrStopped is returned when the scheduler loop is no longer running.
var ErrStopped = errors.New("notification scheduler stopped")

// Notification is one message to deliver at or after At.
type Notification struct {
	ID      string
	To      string
	Subject string
	Body    string
	At      time.Time
}

// Due reports whether n should be sent at now.
func (n Notification) Due(now time.Time) bool {
	return !n.At.After(now)
}

// Sender delivers a notification.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Options controls polling and delivery.
type Options struct {
	Interval    time.Duration
	SendTimeout time.Duration
	// PerMinute caps deliveries; zero means unlimited.
	PerMinute int
	Now       func() time.Time
}

const (
	defaultInterval    = time.Minute
	defaultSendTimeout = 30 * time.Second
)

// Scheduler owns the pending queue. Producers talk to it over channels; only
// the Run goroutine touches the queue.
type Scheduler struct {
	sender  Sender
	log     *zap.Logger
	opts    Options
	limiter *rate.Limiter

	incoming  chan Notification
	snapshots chan chan []Notification
	done      chan struct{}
}

// NewScheduler prepares a scheduler. Call Run to start dispatching.
func NewScheduler(sender Sender, opts Options, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.PerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.PerMinute)), opts.PerMinute)
	}
	return &Scheduler{
		sender:    sender,
		log:       log,
		opts:      opts,
		limiter:   limiter,
		incoming:  make(chan Notification),
		snapshots: make(chan chan []Notification),
		done:      make(chan struct{}),
	}
}

// Schedule hands n to the running loop and returns it with its ID filled in.
// A notification reusing a queued ID replaces it.
func (s *Scheduler) Schedule(ctx context.Context, n Notification) (Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	select {
	case s.incoming <- n:
		return n, nil
	case <-s.done:
		return Notification{}, ErrStopped
	case <-ctx.Done():
		return Notification{}, ctx.Err()
	}
}

// Pending returns a copy of the queued notifications.
func (s *Scheduler) Pending(ctx context.Context) ([]Notification, error) {
	reply := make(chan []Notification, 1)
	select {
	case s.snapshots <- reply:
	case <-s.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case queue := <-reply:
		return queue, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run polls the queue every Interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	defer close(s.done)
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	var queue []Notification
	for {
		select {
		case <-ctx.Done():
			if len(queue) > 0 {
				s.log.Info("dropping pending notifications", zap.Int("count", len(queue)))
			}
			return ctx.Err()
		case n := <-s.incoming:
			queue = enqueue(queue, n)
			s.log.Debug("notification scheduled", zap.String("id", n.ID), zap.Time("at", n.At))
		case reply := <-s.snapshots:
			reply <- append([]Notification(nil), queue...)
		case <-ticker.C:
			queue = s.dispatch(ctx, queue)
		}
	}
}

// enqueue appends n, replacing a queued notification with the same ID.
func enqueue(queue []Notification, n Notification) []Notification {
	for i := range queue {
		if queue[i].ID == n.ID {
			queue[i] = n
			return queue
		}
	}
	return append(queue, n)
}

// dispatch sends every due notification and returns the ones still pending.
// A failed send is logged and dropped.
func (s *Scheduler) dispatch(ctx context.Context, queue []Notification) []Notification {
	now := s.opts.Now()
	remaining := queue[:0]
	for i, n := range queue {
		if !n.Due(now) {
			remaining = append(remaining, n)
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return append(remaining, queue[i:]...)
		}
		sendCtx, cancel := context.WithTimeout(ctx, s.opts.SendTimeout)
		err := s.sender.Send(sendCtx, n)
		cancel()
		if err != nil {
			s.log.Error("failed to send notification", zap.String("id", n.ID), zap.String("to", n.To), zap.Error(err))
			continue
		}
		s.log.Info("notification sent", zap.String("id", n.ID), zap.String("subject", n.Subject))
	}
	return remaining
}
