package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/good-yellow-bee/hermetia/internal/models"
)

// countingNotifier records sends and can be configured to fail.
type countingNotifier struct {
	name      string
	shouldErr bool

	mu     sync.Mutex
	sent   []*models.Alert
	closed bool
}

func (m *countingNotifier) Name() string { return m.name }

func (m *countingNotifier) Send(ctx context.Context, alert *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, alert)
	if m.shouldErr {
		return errors.New("send failed")
	}
	return nil
}

func (m *countingNotifier) Close() error {
	m.closed = true
	return nil
}

func breachAlert(component int, metric models.MetricKind) *models.Alert {
	return &models.Alert{
		ID:          "threshold:x",
		Timestamp:   time.Now(),
		Severity:    models.SeverityWarning,
		ComponentID: component,
		SourceKind:  models.SourceThreshold,
		Metric:      metric,
	}
}

func TestDispatcher_SendsToAllNotifiers(t *testing.T) {
	d := NewDispatcher()
	a := &countingNotifier{name: "a"}
	b := &countingNotifier{name: "b"}
	d.Register(a)
	d.Register(b)

	if err := d.Dispatch(context.Background(), breachAlert(1, models.MetricHumidity)); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(a.sent) != 1 || len(b.sent) != 1 {
		t.Errorf("sends = %d/%d, want 1/1", len(a.sent), len(b.sent))
	}
}

func TestDispatcher_NoNotifiers(t *testing.T) {
	d := NewDispatcher()
	if err := d.Dispatch(context.Background(), breachAlert(1, models.MetricHumidity)); err != nil {
		t.Errorf("dispatch with no notifiers: %v", err)
	}
	if stats := d.RateLimitStats(); stats.CurrentCount != 0 {
		t.Errorf("no slot should be taken, got %d", stats.CurrentCount)
	}
}

func TestDispatcher_RateLimitsPerComponentAndMetric(t *testing.T) {
	d := NewDispatcherWithRateLimit(RateLimitConfig{MaxPerWindow: 2, Window: time.Minute, Enabled: true})
	n := &countingNotifier{name: "n"}
	d.Register(n)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := d.Dispatch(ctx, breachAlert(1, models.MetricTemperature)); err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
	}
	if err := d.Dispatch(ctx, breachAlert(1, models.MetricTemperature)); !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}

	// Other buckets are unaffected.
	if err := d.Dispatch(ctx, breachAlert(1, models.MetricHumidity)); err != nil {
		t.Errorf("other metric should pass: %v", err)
	}
	if err := d.Dispatch(ctx, breachAlert(2, models.MetricTemperature)); err != nil {
		t.Errorf("other component should pass: %v", err)
	}

	stats := d.RateLimitStats()
	if stats.Dropped != 1 || stats.Keys != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestDispatcher_RefundsSlotWhenAllFail(t *testing.T) {
	d := NewDispatcherWithRateLimit(RateLimitConfig{MaxPerWindow: 1, Window: time.Minute, Enabled: true})
	d.Register(&countingNotifier{name: "failing", shouldErr: true})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := d.Dispatch(ctx, breachAlert(1, models.MetricTemperature))
		if err == nil || errors.Is(err, ErrRateLimited) {
			t.Fatalf("dispatch %d: expected send error, got %v", i, err)
		}
	}
	if stats := d.RateLimitStats(); stats.CurrentCount != 0 {
		t.Errorf("current count = %d, want 0", stats.CurrentCount)
	}
}

func TestDispatcher_KeepsSlotOnPartialSuccess(t *testing.T) {
	d := NewDispatcherWithRateLimit(RateLimitConfig{MaxPerWindow: 1, Window: time.Minute, Enabled: true})
	d.Register(&countingNotifier{name: "failing", shouldErr: true})
	d.Register(&countingNotifier{name: "ok"})
	ctx := context.Background()

	if err := d.Dispatch(ctx, breachAlert(1, models.MetricTemperature)); err == nil {
		t.Fatal("expected partial error")
	}
	if err := d.Dispatch(ctx, breachAlert(1, models.MetricTemperature)); !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited after partial success, got %v", err)
	}
}

func TestDispatcher_Close(t *testing.T) {
	d := NewDispatcher()
	n := &countingNotifier{name: "n"}
	d.Register(n)

	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !n.closed {
		t.Error("notifier not closed")
	}
	if d.Len() != 0 {
		t.Errorf("notifiers left after close: %d", d.Len())
	}
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	clock := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimitConfig{MaxPerWindow: 2, Window: time.Minute, Enabled: true})
	rl.now = func() time.Time { return clock }

	if !rl.Allow("k") || !rl.Allow("k") {
		t.Fatal("first two should pass")
	}
	if rl.Allow("k") {
		t.Error("third within window should be dropped")
	}

	clock = clock.Add(61 * time.Second)
	if !rl.Allow("k") {
		t.Error("should pass after the window slides")
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxPerWindow: 1, Enabled: false})
	for i := 0; i < 10; i++ {
		if !rl.Allow("k") {
			t.Fatal("disabled limiter should allow everything")
		}
	}
	if stats := rl.Stats(); stats.Window != 15*time.Minute {
		t.Errorf("default window = %v", stats.Window)
	}
}

func TestRateLimiter_ReleaseUnknownKey(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimitConfig())
	rl.Release("missing")
	rl.Allow("k")
	rl.Release("k")
	if stats := rl.Stats(); stats.Keys != 0 || stats.CurrentCount != 0 {
		t.Errorf("unexpected stats after release: %+v", stats)
	}
}
