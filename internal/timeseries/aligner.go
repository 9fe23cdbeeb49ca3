package timeseries

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/hermetia/internal/metrics"
	"github.com/good-yellow-bee/hermetia/internal/models"
)

// SampleSource reads sensor history. Results must be ordered by ascending timestamp.
type SampleSource interface {
	FetchSamples(ctx context.Context, metric models.MetricKind, since time.Time) ([]*models.SensorSample, error)
}

// Options configures an Aligner.
type Options struct {
	// FetchTimeout bounds each stream fetch (default: 5s).
	FetchTimeout time.Duration
	// MaxPoints caps dashboard series (default: 50).
	MaxPoints int
}

// Aligner fetches both metric streams and aligns them.
// It keeps no state between calls.
type Aligner struct {
	source       SampleSource
	fetchTimeout time.Duration
	maxPoints    int
}

// NewAligner creates an Aligner reading from source.
func NewAligner(source SampleSource, opts *Options) *Aligner {
	a := &Aligner{
		source:       source,
		fetchTimeout: 5 * time.Second,
		maxPoints:    DefaultMaxPoints,
	}
	if opts != nil {
		if opts.FetchTimeout > 0 {
			a.fetchTimeout = opts.FetchTimeout
		}
		if opts.MaxPoints > 0 {
			a.maxPoints = opts.MaxPoints
		}
	}
	return a
}

// Align fetches both streams concurrently and joins them.
// If either fetch fails the whole alignment fails with a
// *models.StoreUnavailableError; no partial result is returned.
// A maxPoints of zero returns every point in the window.
func (a *Aligner) Align(ctx context.Context, w Window, maxPoints int) ([]*models.AlignedPoint, error) {
	var temps, hums []*models.SensorSample

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		temps, err = a.fetch(gctx, models.MetricTemperature, w.Start)
		return err
	})
	g.Go(func() error {
		var err error
		hums, err = a.fetch(gctx, models.MetricHumidity, w.Start)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Align(temps, hums, maxPoints), nil
}

func (a *Aligner) fetch(ctx context.Context, metric models.MetricKind, since time.Time) ([]*models.SensorSample, error) {
	ctx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
	defer cancel()

	samples, err := a.source.FetchSamples(ctx, metric, since)
	if err != nil {
		return nil, &models.StoreUnavailableError{Source: string(metric) + " samples", Err: err}
	}
	return samples, nil
}

// Series returns the capped dashboard series for a range token.
// A failed alignment yields an empty series flagged as degraded.
func (a *Aligner) Series(ctx context.Context, token string, now time.Time) *models.Series {
	r := ParseRange(token)
	points, err := a.Align(ctx, r.Window(now), a.maxPoints)
	if err != nil {
		log.Printf("align series error: range=%s: %v", r, err)
		metrics.AlignmentsDegraded.Inc()
		return &models.Series{Range: string(r), Points: []*models.AlignedPoint{}, Degraded: true}
	}
	return &models.Series{Range: string(r), Points: points}
}

// Export returns every aligned point in the range, uncapped.
// Errors are returned to the caller; exports never degrade silently.
func (a *Aligner) Export(ctx context.Context, r Range, now time.Time) ([]*models.AlignedPoint, error) {
	return a.Align(ctx, r.Window(now), 0)
}
