// Package pool downloads and remuxes the segments of one variant with a bounded number of concurrent workers.
//
// A unit that fails all of its attempts is reported, not fatal: the pool always returns one result per planned
// segment, indexed by ordinal, so the assembler can decide what to do with the gaps.
package pool

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alanbriolat/stream-archiver/download"
	"github.com/alanbriolat/stream-archiver/media"
	"github.com/alanbriolat/stream-archiver/remux"
	"github.com/alanbriolat/stream-archiver/retry"
)

type Fetcher interface {
	SaveURL(ctx context.Context, url string, path string) (int64, error)
}

type Pool struct {
	workers  int
	policy   retry.Policy
	onResult func(media.FetchResult)
	fetcher  Fetcher
	remuxer  remux.Remuxer
	log      *zap.SugaredLogger
}

type Option func(*Pool)

func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithPolicy(policy retry.Policy) Option {
	return func(p *Pool) {
		p.policy = policy
	}
}

// WithOnResult sets a hook called from the worker goroutines as each unit finishes.
func WithOnResult(f func(media.FetchResult)) Option {
	return func(p *Pool) {
		p.onResult = f
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(p *Pool) {
		p.log = log
	}
}

func New(fetcher Fetcher, remuxer remux.Remuxer, opts ...Option) *Pool {
	p := &Pool{
		workers: runtime.NumCPU(),
		policy:  retry.DefaultPolicy(),
		fetcher: fetcher,
		remuxer: remuxer,
		log:     zap.S(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.Named("pool")
	return p
}

func (p *Pool) Workers() int {
	return p.workers
}

func SegmentName(codec media.Codec, ordinal int) string {
	if codec.Fragmented() {
		return fmt.Sprintf("frag_%05d.mp4", ordinal)
	}
	return fmt.Sprintf("seg_%05d.ts", ordinal)
}

func RawName(ordinal int) string {
	return fmt.Sprintf("raw_%05d", ordinal)
}

// Run processes every segment of plan, writing its files into ws. The returned slice has one entry per media
// segment, at the index of its ordinal. An error is returned only when nothing could be attempted: an invalid plan,
// an initialization segment that could not be downloaded, or a cancelled context.
func (p *Pool) Run(ctx context.Context, plan *media.Plan, ws *download.Workspace) ([]media.FetchResult, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid segment plan: %w", err)
	}
	start := time.Now()

	initPath := ""
	if plan.Codec.Fragmented() {
		if plan.Init == nil {
			return nil, fmt.Errorf("%s segment plan has no initialization segment", plan.Codec)
		}
		var err error
		if initPath, err = p.fetchInit(ctx, plan.Init, ws); err != nil {
			return nil, err
		}
	}

	p.log.Infow("Fetching segments", "codec", plan.Codec, "segments", plan.Len(), "workers", p.workers)
	results := make([]media.FetchResult, plan.Len())
	var total atomic.Int64
	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, seg := range plan.Segments {
		g.Go(func() error {
			results[i] = p.runUnit(ctx, plan.Codec, seg, initPath, ws)
			total.Add(results[i].Bytes)
			if p.onResult != nil {
				p.onResult(results[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if !r.OK {
			failed++
		}
	}
	p.log.Infow("Finished segments",
		"succeeded", len(results)-failed,
		"failed", failed,
		"downloaded", humanize.Bytes(uint64(total.Load())),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (p *Pool) fetchInit(ctx context.Context, init *media.SegmentPlan, ws *download.Workspace) (string, error) {
	path := ws.Path("init.mp4")
	log := p.log.With("ordinal", init.Ordinal, "url", init.URI)
	n, attempts, err := retry.Do(ctx, p.unitPolicy(log), func(ctx context.Context) (int64, error) {
		return p.fetcher.SaveURL(ctx, init.URI, path)
	})
	if err != nil {
		log.Errorw("Failed to fetch initialization segment", "attempts", attempts, "error", err)
		return "", fmt.Errorf("initialization segment: %w", err)
	}
	log.Debugw("Fetched initialization segment", "size", humanize.Bytes(uint64(n)))
	return path, nil
}

func (p *Pool) runUnit(ctx context.Context, codec media.Codec, seg media.SegmentPlan, initPath string, ws *download.Workspace) media.FetchResult {
	result := media.FetchResult{Ordinal: seg.Ordinal}
	if err := ctx.Err(); err != nil {
		result.Err = &media.SegmentFailure{Ordinal: seg.Ordinal, URI: seg.URI, Err: err}
		return result
	}

	rawPath := ws.Path(RawName(seg.Ordinal))
	outPath := ws.Path(SegmentName(codec, seg.Ordinal))
	log := p.log.With("ordinal", seg.Ordinal)
	n, attempts, err := retry.Do(ctx, p.unitPolicy(log), func(ctx context.Context) (int64, error) {
		n, err := p.fetcher.SaveURL(ctx, seg.URI, rawPath)
		if err != nil {
			return 0, err
		}
		if codec.Fragmented() {
			err = p.remuxer.ConcatFragment(ctx, initPath, rawPath, outPath)
		} else {
			err = p.remuxer.Passthrough(ctx, rawPath, outPath, true)
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	})
	result.Attempts = attempts
	if err != nil {
		log.Warnw("Segment failed", "url", seg.URI, "attempts", attempts, "error", err)
		result.Err = &media.SegmentFailure{Ordinal: seg.Ordinal, URI: seg.URI, Attempts: attempts, Err: err}
		return result
	}
	result.OK = true
	result.LocalPath = outPath
	result.Bytes = n
	return result
}

func (p *Pool) unitPolicy(log *zap.SugaredLogger) retry.Policy {
	policy := p.policy
	next := policy.OnRetry
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Infow("Retrying", "attempt", attempt, "delay", delay, "error", err)
		if next != nil {
			next(attempt, err, delay)
		}
	}
	return policy
}
