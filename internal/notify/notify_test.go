package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/verte-zerg/studytrack/internal/model"
	"github.com/verte-zerg/studytrack/internal/stats"
)

type recordingSender struct {
	sent chan Notification
	fail bool
}

func (r *recordingSender) Send(_ context.Context, n Notification) error {
	r.sent <- n
	if r.fail {
		return errors.New("smtp down")
	}
	return nil
}

func TestSchedulerDispatchesDue(t *testing.T) {
	now := time.Date(2025, 2, 20, 12, 0, 0, 0, time.UTC)
	sender := &recordingSender{sent: make(chan Notification, 4)}
	s := NewScheduler(sender, Options{Interval: 5 * time.Millisecond, Now: func() time.Time { return now }}, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	due, err := s.Schedule(ctx, Notification{To: "a@example.com", Subject: "due", At: now.Add(-time.Minute)})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if due.ID == "" {
		t.Fatalf("expected generated id")
	}
	future, err := s.Schedule(ctx, Notification{To: "a@example.com", Subject: "later", At: now.Add(time.Hour)})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	select {
	case got := <-sender.sent:
		if got.ID != due.ID {
			t.Fatalf("expected %s to be sent, got %s", due.ID, got.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for dispatch")
	}

	pending, err := s.Pending(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != future.ID {
		t.Fatalf("expected only the future notification pending, got %+v", pending)
	}

	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := s.Schedule(context.Background(), Notification{}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestDispatchDropsFailedSends(t *testing.T) {
	now := time.Date(2025, 2, 20, 12, 0, 0, 0, time.UTC)
	sender := &recordingSender{sent: make(chan Notification, 4), fail: true}
	s := NewScheduler(sender, Options{Now: func() time.Time { return now }}, zaptest.NewLogger(t))

	queue := []Notification{
		{ID: "1", At: now},
		{ID: "2", At: now.Add(time.Second)},
		{ID: "3", At: now.Add(-time.Hour)},
	}
	remaining := s.dispatch(context.Background(), queue)
	if len(remaining) != 1 || remaining[0].ID != "2" {
		t.Fatalf("unexpected remaining queue: %+v", remaining)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected 2 send attempts, got %d", len(sender.sent))
	}
}

func TestDispatchStopsOnCancelledLimiter(t *testing.T) {
	now := time.Date(2025, 2, 20, 12, 0, 0, 0, time.UTC)
	sender := &recordingSender{sent: make(chan Notification, 4)}
	s := NewScheduler(sender, Options{PerMinute: 1, Now: func() time.Time { return now }}, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	queue := []Notification{{ID: "1", At: now}, {ID: "2", At: now}}
	remaining := s.dispatch(ctx, queue)
	if len(remaining) != 2 {
		t.Fatalf("expected queue to be kept, got %+v", remaining)
	}
}

func TestEnqueueReplacesSameID(t *testing.T) {
	at := time.Date(2025, 2, 20, 20, 0, 0, 0, time.UTC)
	queue := enqueue(nil, Notification{ID: "daily", Subject: "old", At: at})
	queue = enqueue(queue, Notification{ID: "quote", At: at})
	queue = enqueue(queue, Notification{ID: "daily", Subject: "new", At: at})
	if len(queue) != 2 {
		t.Fatalf("expected 2 queued notifications, got %d", len(queue))
	}
	if queue[0].Subject != "new" {
		t.Fatalf("expected replacement in place, got %+v", queue[0])
	}
}

func TestDailyReminder(t *testing.T) {
	now := time.Date(2025, 2, 20, 21, 0, 0, 0, time.UTC)
	n, err := DailyReminder("a@example.com", "20:00", now)
	if err != nil {
		t.Fatalf("daily reminder: %v", err)
	}
	if want := time.Date(2025, 2, 21, 20, 0, 0, 0, time.UTC); !n.At.Equal(want) {
		t.Fatalf("expected %v, got %v", want, n.At)
	}
	n, _ = DailyReminder("a@example.com", "22:15", now)
	if want := time.Date(2025, 2, 20, 22, 15, 0, 0, time.UTC); !n.At.Equal(want) {
		t.Fatalf("expected %v, got %v", want, n.At)
	}
	if _, err := DailyReminder("a@example.com", "25:00", now); err == nil {
		t.Fatalf("expected invalid time error")
	}
}

func TestWeeklySummary(t *testing.T) {
	thursday := time.Date(2025, 2, 20, 9, 0, 0, 0, time.UTC)
	wk := stats.WeeklySummary{
		Hours:     4.5,
		Questions: 30,
		Subjects:  []stats.SubjectStat{{Subject: model.Physics, Hours: 4.5, Questions: 30, AvgPerformance: 7}},
	}
	n := WeeklySummary("a@example.com", wk, thursday)
	if want := time.Date(2025, 2, 23, 20, 0, 0, 0, time.UTC); !n.At.Equal(want) {
		t.Fatalf("expected %v, got %v", want, n.At)
	}
	for _, want := range []string{"Total Study Hours: 4.5", "Physics:", "  Questions: 30"} {
		if !strings.Contains(n.Body, want) {
			t.Fatalf("expected %q in body:\n%s", want, n.Body)
		}
	}

	sunday := time.Date(2025, 2, 23, 9, 0, 0, 0, time.UTC)
	if n := WeeklySummary("a@example.com", wk, sunday); n.At.Day() != 23 {
		t.Fatalf("expected same-day summary on Sunday, got %v", n.At)
	}
}

func TestGoalReminder(t *testing.T) {
	now := time.Date(2025, 2, 20, 9, 0, 0, 0, time.UTC)
	n, ok := GoalReminder("a@example.com", "weekly hours", 10, 42, now)
	if !ok {
		t.Fatalf("expected reminder below half")
	}
	if !n.At.Equal(now.Add(time.Hour)) || !strings.Contains(n.Body, "23.8%") {
		t.Fatalf("unexpected reminder: %+v", n)
	}
	if _, ok := GoalReminder("a@example.com", "weekly hours", 21, 42, now); ok {
		t.Fatalf("expected no reminder at 50%%")
	}
	if _, ok := GoalReminder("a@example.com", "weekly hours", 1, 0, now); ok {
		t.Fatalf("expected no reminder for zero target")
	}
}

func TestMotivationQuote(t *testing.T) {
	monday := time.Date(2025, 2, 17, 10, 0, 0, 0, time.UTC)
	n := MotivationQuote("a@example.com", monday)
	if !strings.Contains(n.Body, quotes[0]) {
		t.Fatalf("expected first quote on Monday, got %q", n.Body)
	}
	if want := time.Date(2025, 2, 18, 9, 0, 0, 0, time.UTC); !n.At.Equal(want) {
		t.Fatalf("expected %v, got %v", want, n.At)
	}
}

func TestBuildMessage(t *testing.T) {
	msg, err := buildMessage("me@example.com", Notification{To: "a@example.com", Subject: "Hi", Body: "line1\nline2"}, time.Unix(0, 0).UTC())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("write message: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Subject: Hi\r\n", "<a@example.com>", "<me@example.com>", "line1\r\nline2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in message:\n%s", want, out)
		}
	}

	if _, err := buildMessage("me@example.com", Notification{To: "not an address"}, time.Now()); err == nil {
		t.Fatalf("expected invalid recipient to be rejected")
	}
	if _, err := NewSMTPSender(SMTPConfig{}); err == nil {
		t.Fatalf("expected missing server error")
	}
	if _, err := NewSMTPSender(SMTPConfig{Server: "smtp.example.com", Username: "me@example.com", Password: "pw"}); err != nil {
		t.Fatalf("expected sender, got %v", err)
	}
}
