package alerting

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/hermetia/internal/metrics"
	"github.com/good-yellow-bee/hermetia/internal/models"
)

// BreachSource reads the threshold breach log, newest first.
// A limit of zero means no limit.
type BreachSource interface {
	FetchThresholdBreaches(ctx context.Context, since time.Time, limit int) ([]*models.ThresholdBreachEvent, error)
}

// ActivationSource reads the actuator activation log, newest first.
// A limit of zero means no limit.
type ActivationSource interface {
	FetchActuatorActivations(ctx context.Context, since time.Time, limit int) ([]*models.ActuatorActivationEvent, error)
}

// ComponentLookup resolves many component ids in one round-trip.
type ComponentLookup interface {
	FetchComponentsByIDs(ctx context.Context, ids []int) (map[int]*models.Component, error)
}

// Feed windows and limits.
const (
	ActiveWindow        = 24 * time.Hour
	HistoryDays         = 30
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

// Query selects a slice of the alert feed.
type Query struct {
	// Since is the oldest event timestamp included.
	Since time.Time
	// Limit caps the number of alerts returned; zero means unbounded.
	Limit int
	// Offset skips that many of the most recent alerts.
	Offset int
	// Kinds restricts the sources read; empty means all.
	Kinds []models.SourceKind
}

func (q Query) wants(kind models.SourceKind) bool {
	if len(q.Kinds) == 0 {
		return true
	}
	for _, k := range q.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Feed is one page of merged alerts.
type Feed struct {
	Alerts []*models.Alert `json:"alerts"`
	// FailedSources counts event sources that could not be read and were
	// treated as empty.
	FailedSources int `json:"failed_sources"`
	// LookupFailed is set when component names fell back to placeholders
	// because the lookup itself failed.
	LookupFailed bool `json:"lookup_failed"`
	// Skipped counts stored events rejected by the classifier.
	Skipped int `json:"skipped"`
}

// AggregatorOptions configures an Aggregator.
type AggregatorOptions struct {
	// FetchTimeout bounds each store read (default: 5s).
	FetchTimeout time.Duration
}

// Aggregator merges breach and activation alerts into one feed.
// It keeps no state between calls.
type Aggregator struct {
	breaches     BreachSource
	activations  ActivationSource
	components   ComponentLookup
	fetchTimeout time.Duration
}

// NewAggregator creates an Aggregator over the given sources.
func NewAggregator(breaches BreachSource, activations ActivationSource, components ComponentLookup, opts *AggregatorOptions) *Aggregator {
	a := &Aggregator{
		breaches:     breaches,
		activations:  activations,
		components:   components,
		fetchTimeout: 5 * time.Second,
	}
	if opts != nil && opts.FetchTimeout > 0 {
		a.fetchTimeout = opts.FetchTimeout
	}
	return a
}

// Active returns every alert from the last 24 hours.
func (a *Aggregator) Active(ctx context.Context, now time.Time) *Feed {
	return a.Feed(ctx, Query{Since: now.Add(-ActiveWindow)})
}

// History returns a page of alerts from the last 30 days.
// The limit defaults to 50 and is capped at 100.
func (a *Aggregator) History(ctx context.Context, now time.Time, limit, offset int) *Feed {
	return a.Feed(ctx, Query{
		Since:  now.AddDate(0, 0, -HistoryDays),
		Limit:  ClampHistoryLimit(limit),
		Offset: max(offset, 0),
	})
}

// ClampHistoryLimit applies the history default and ceiling.
func ClampHistoryLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return min(limit, MaxHistoryLimit)
}

// Feed reads both sources concurrently, resolves component names with one
// batched lookup, classifies and merges.
//
// Alerts are ordered newest first. Alerts with equal timestamps keep their
// source order, with threshold alerts ahead of actuator alerts. A source that
// fails is logged and treated as empty.
func (a *Aggregator) Feed(ctx context.Context, q Query) *Feed {
	feed := &Feed{}

	fetchLimit := 0
	if q.Limit > 0 {
		fetchLimit = q.Limit + max(q.Offset, 0)
	}

	var (
		g             errgroup.Group
		breaches      []*models.ThresholdBreachEvent
		activations   []*models.ActuatorActivationEvent
		breachErr     error
		activationErr error
	)

	if q.wants(models.SourceThreshold) {
		g.Go(func() error {
			breaches, breachErr = fetchFilled(ctx, a.fetchTimeout, fetchLimit,
				func(ctx context.Context, limit int) ([]*models.ThresholdBreachEvent, error) {
					return a.breaches.FetchThresholdBreaches(ctx, q.Since, limit)
				},
				func(e *models.ThresholdBreachEvent) (string, bool) {
					return e.ID, e.Metric.Valid() && e.Condition.Valid()
				})
			return nil
		})
	}
	if q.wants(models.SourceActuator) {
		g.Go(func() error {
			activations, activationErr = fetchFilled(ctx, a.fetchTimeout, fetchLimit,
				func(ctx context.Context, limit int) ([]*models.ActuatorActivationEvent, error) {
					return a.activations.FetchActuatorActivations(ctx, q.Since, limit)
				},
				func(e *models.ActuatorActivationEvent) (string, bool) {
					return e.ID, true
				})
			return nil
		})
	}
	// Source errors degrade the feed instead of failing it.
	_ = g.Wait()

	if breachErr != nil {
		a.sourceFailed(feed, "threshold breaches", breachErr)
		breaches = nil
	}
	if activationErr != nil {
		a.sourceFailed(feed, "actuator activations", activationErr)
		activations = nil
	}

	components := a.lookup(ctx, feed, componentIDs(breaches, activations))

	alerts := make([]*models.Alert, 0, len(breaches)+len(activations))
	seen := make(map[string]struct{}, cap(alerts))
	add := func(alert *models.Alert) {
		if _, dup := seen[alert.ID]; dup {
			return
		}
		seen[alert.ID] = struct{}{}
		alerts = append(alerts, alert)
	}

	for _, e := range breaches {
		alert, err := ClassifyBreach(e, components)
		if err != nil {
			log.Printf("classify breach error: id=%s: %v", e.ID, err)
			metrics.InvalidEvents.Inc()
			feed.Skipped++
			continue
		}
		add(alert)
	}
	for _, e := range activations {
		add(ClassifyActivation(e, components))
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Timestamp.After(alerts[j].Timestamp)
	})

	feed.Alerts = paginate(alerts, q.Offset, q.Limit)
	return feed
}

// fetchFilled reads one source until it yields want usable events or runs
// out. Invalid and duplicate events do not count toward want, so a bounded
// read that loses some of them is repeated with a doubled limit. A want of
// zero reads the source unbounded.
func fetchFilled[E any](ctx context.Context, timeout time.Duration, want int,
	fetch func(ctx context.Context, limit int) ([]E, error),
	usable func(E) (id string, ok bool),
) ([]E, error) {
	limit := want
	for {
		fctx, cancel := context.WithTimeout(ctx, timeout)
		events, err := fetch(fctx, limit)
		cancel()
		if err != nil {
			return nil, err
		}
		if limit == 0 || len(events) < limit {
			return events, nil
		}

		n := 0
		seen := make(map[string]struct{}, len(events))
		for _, e := range events {
			id, ok := usable(e)
			if _, dup := seen[id]; !ok || dup {
				continue
			}
			seen[id] = struct{}{}
			n++
		}
		if n >= want {
			return events, nil
		}
		limit *= 2
	}
}

func (a *Aggregator) sourceFailed(feed *Feed, source string, err error) {
	storeErr := &models.StoreUnavailableError{Source: source, Err: err}
	log.Printf("alert feed error: %v", storeErr)
	metrics.FeedSourceFailures.WithLabelValues(source).Inc()
	feed.FailedSources++
}

// lookup issues the single batched component lookup for a request.
func (a *Aggregator) lookup(ctx context.Context, feed *Feed, ids []int) Components {
	if len(ids) == 0 {
		return nil
	}

	lctx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
	defer cancel()

	found, err := a.components.FetchComponentsByIDs(lctx, ids)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Printf("component lookup error: timed out after %v", a.fetchTimeout)
		} else {
			log.Printf("component lookup error: %v", err)
		}
		metrics.ComponentLookups.WithLabelValues("error").Inc()
		feed.LookupFailed = true
		return nil
	}
	metrics.ComponentLookups.WithLabelValues("ok").Inc()
	return Components(found)
}

// componentIDs returns the distinct ids referenced by both event sets, ascending.
func componentIDs(breaches []*models.ThresholdBreachEvent, activations []*models.ActuatorActivationEvent) []int {
	set := make(map[int]struct{})
	for _, e := range breaches {
		set[e.ComponentID] = struct{}{}
	}
	for _, e := range activations {
		set[e.ActuatorComponentID] = struct{}{}
	}
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func paginate(alerts []*models.Alert, offset, limit int) []*models.Alert {
	if offset > 0 {
		if offset >= len(alerts) {
			return []*models.Alert{}
		}
		alerts = alerts[offset:]
	}
	if limit > 0 && len(alerts) > limit {
		alerts = alerts[:limit]
	}
	return alerts
}
