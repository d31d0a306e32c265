package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"github.com/desertthunder/lyrebird/internal/models"
	"github.com/desertthunder/lyrebird/internal/shared"
)

// Bulk resolution defaults.
const (
	DefaultWorkers = 4
	MaxWorkers     = 10
	DefaultRate    = 2.0
)

// BulkResolveOpts contains configuration for bulk resolution.
type BulkResolveOpts struct {
	Bitrate    models.Bitrate // Requested quality (default: 320)
	NumWorkers int            // Concurrent workers (default: 4, max: 10)
	RateLimit  float64        // Resolutions started per second (default: 2)
}

// ResolveResult is the outcome for one stub.
type ResolveResult struct {
	Index int                  `json:"index"`
	Stub  models.TrackStub     `json:"stub"`
	Track models.ResolvedTrack `json:"track,omitzero"`
	Error error                `json:"-"`
}

// OK reports whether the stub resolved to a playable track.
func (r ResolveResult) OK() bool {
	return r.Error == nil && r.Track.Playable()
}

// BulkResolveResult summarizes a bulk resolution. Results are in input order.
type BulkResolveResult struct {
	Total    int             `json:"total"`
	Resolved int             `json:"resolved"`
	Failed   int             `json:"failed"`
	Results  []ResolveResult `json:"results"`
}

// Failures counts failed results by error kind (see [shared.ErrorKind]).
func (r *BulkResolveResult) Failures() map[string]int {
	failed := lo.Filter(r.Results, func(res ResolveResult, _ int) bool { return !res.OK() })
	return lo.CountValuesBy(failed, func(res ResolveResult) string {
		if res.Error == nil {
			return "not_found"
		}
		return shared.ErrorKind(res.Error)
	})
}

// Percentage is the share of resolved stubs, 0 when there were none.
func (r *BulkResolveResult) Percentage() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Resolved) / float64(r.Total) * 100
}

type resolveJob struct {
	index int
	stub  models.TrackStub
}

// BulkResolve resolves stubs concurrently with rate limiting and progress tracking.
//
// Jobs are paced by a token bucket so the catalog's own request budget is not exhausted. On cancellation the
// partial result is returned with the context's error; stubs never started keep a nil Track and the context error.
func (e *LibraryEngine) BulkResolve(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	stubs []models.TrackStub,
	opts BulkResolveOpts,
) (*BulkResolveResult, error) {
	if e.resolver == nil {
		return nil, fmt.Errorf("%w: resolver not initialized", shared.ErrServiceUnavailable)
	}

	if !opts.Bitrate.Valid() {
		opts.Bitrate = models.DefaultBitrate
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = DefaultWorkers
	}
	if opts.NumWorkers > MaxWorkers {
		opts.NumWorkers = MaxWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = DefaultRate
	}

	result := &BulkResolveResult{
		Total:   len(stubs),
		Results: make([]ResolveResult, len(stubs)),
	}
	for i, s := range stubs {
		result.Results[i] = ResolveResult{Index: i, Stub: s}
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan resolveJob)
	results := make(chan ResolveResult, len(stubs))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.resolveWorker(ctx, &wg, jobs, results, opts.Bitrate)
	}

	started := make([]bool, len(stubs))
	go func() {
		defer close(jobs)
		e.sendProgress(prog, resolveStartUpdate(len(stubs)))
		for i, stub := range stubs {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			select {
			case jobs <- resolveJob{index: i, stub: stub}:
				started[i] = true
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results[res.Index] = res
		if res.OK() {
			result.Resolved++
		} else {
			result.Failed++
		}
		e.sendProgress(prog, resolvedUpdate(completed, len(stubs), res))
	}

	if err := ctx.Err(); err != nil {
		for i := range result.Results {
			if !started[i] {
				result.Results[i].Error = err
				result.Failed++
			}
		}
		return result, err
	}
	return result, nil
}

// resolveWorker is a worker goroutine that resolves stubs from the jobs channel.
func (e *LibraryEngine) resolveWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan resolveJob,
	results chan<- ResolveResult,
	br models.Bitrate,
) {
	defer wg.Done()

	for job := range jobs {
		res := ResolveResult{Index: job.index, Stub: job.stub}
		track, err := e.resolver.Resolve(ctx, job.stub.Unresolved(), br)
		if err != nil {
			res.Error = err
			e.logger.Debug("bulk resolve failed", "track", job.stub.Title(), "error", err)
		} else {
			res.Track = track
		}
		results <- res
	}
}
