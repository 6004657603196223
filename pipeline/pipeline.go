// Package pipeline runs one segmented download from start to finish: locate the manifests, choose a variant, fetch
// its segments and assemble them, always cleaning up the temporary files afterwards.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alanbriolat/stream-archiver/assemble"
	"github.com/alanbriolat/stream-archiver/download"
	"github.com/alanbriolat/stream-archiver/locator"
	"github.com/alanbriolat/stream-archiver/manifest"
	"github.com/alanbriolat/stream-archiver/media"
	"github.com/alanbriolat/stream-archiver/pool"
	"github.com/alanbriolat/stream-archiver/remux"
	"github.com/alanbriolat/stream-archiver/retry"
)

// Client is everything the pipeline needs from HTTP; fetch.Client implements it.
type Client interface {
	locator.PageFetcher
	pool.Fetcher
}

type Config struct {
	Window           manifest.Window
	Codecs           []media.Codec
	InitSegmentName  string
	EmbedURLTemplate string
	Workers          int
	Retry            retry.Policy
	TempDir          string
}

func DefaultConfig() Config {
	return Config{
		Window:           manifest.DefaultWindow(),
		Codecs:           append([]media.Codec(nil), media.Codecs...),
		InitSegmentName:  manifest.DefaultInitSegmentName,
		EmbedURLTemplate: locator.DefaultEmbedURLTemplate,
		Retry:            retry.DefaultPolicy(),
	}
}

type Request struct {
	VideoID    string
	OutputPath string
}

type Pipeline struct {
	config   Config
	client   Client
	locator  *locator.Locator
	remuxer  remux.Remuxer
	onPlan   func(*media.Plan)
	onResult func(media.FetchResult)
	log      *zap.SugaredLogger
}

type Option func(*Pipeline)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(p *Pipeline) {
		p.log = log
	}
}

// WithOnPlan sets a hook called once the segment plan is known, before any segment is fetched.
func WithOnPlan(f func(*media.Plan)) Option {
	return func(p *Pipeline) {
		p.onPlan = f
	}
}

// WithOnResult sets a hook called from the pool's workers as each segment finishes.
func WithOnResult(f func(media.FetchResult)) Option {
	return func(p *Pipeline) {
		p.onResult = f
	}
}

func New(client Client, remuxer remux.Remuxer, config Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		config:  config,
		client:  client,
		remuxer: remuxer,
		log:     zap.S(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.Named("pipeline")
	p.locator = locator.New(client, config.EmbedURLTemplate, p.log)
	return p
}

// Run downloads req.VideoID into req.OutputPath. The returned Report is never nil; on failure it carries the same
// error that is returned.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Report, error) {
	report := NewReport(req.VideoID, req.OutputPath)
	log := p.log.With("video_id", req.VideoID, "run_id", report.RunID)
	start := time.Now()
	defer func() {
		report.Duration = time.Since(start)
	}()
	// key is "url" or "path", naming what target is
	fail := func(stage string, key string, target string, err error) (*Report, error) {
		err = fmt.Errorf("%s %s: %w", stage, target, err)
		log.Errorw("Download failed", "stage", stage, key, target, "error", err)
		report.Outcome = OutcomeFailed
		report.Err = err
		return report, err
	}

	embedURL := p.locator.EmbedURL(req.VideoID)
	sources, err := p.locator.Locate(ctx, req.VideoID)
	if err != nil {
		return fail("locate", "url", embedURL, err)
	}
	source, ok := sources.Preferred(p.config.Codecs)
	if !ok {
		err := fmt.Errorf("wanted one of %v, found %v", p.config.Codecs, sources.Available())
		return fail("locate", "url", embedURL, media.NewParseError(embedURL, media.ErrNoCodecSources, err))
	}
	report.Codec = source.Codec

	masterText, err := p.client.GetText(ctx, source.ManifestURI)
	if err != nil {
		return fail("fetch master manifest", "url", source.ManifestURI, err)
	}
	variants, err := manifest.ParseMaster(masterText, source.ManifestURI)
	if err != nil {
		return fail("parse master manifest", "url", source.ManifestURI, err)
	}
	variant, err := manifest.Select(variants, p.config.Window)
	if err != nil {
		return fail("select variant", "url", source.ManifestURI, err)
	}
	report.Variant = variant
	log.Infow("Selected variant",
		"codec", source.Codec,
		"resolution", variant.String(),
		"bandwidth", variant.Bandwidth.UnwrapOr(0),
		"variants", len(variants),
	)

	variantText, err := p.client.GetText(ctx, variant.URI)
	if err != nil {
		return fail("fetch variant manifest", "url", variant.URI, err)
	}
	plan, err := manifest.Enumerate(source.Codec, variantText, variant.URI, p.config.InitSegmentName)
	if err != nil {
		return fail("enumerate segments", "url", variant.URI, err)
	}
	report.Planned = plan.Len()
	if p.onPlan != nil {
		p.onPlan(plan)
	}

	ws, err := download.NewWorkspace(download.WithTempDir(p.config.TempDir), download.WithLogger(log))
	if err != nil {
		return fail("create workspace", "path", req.OutputPath, err)
	}
	defer ws.Cleanup()

	workers := pool.New(p.client, p.remuxer,
		pool.WithWorkers(p.config.Workers),
		pool.WithPolicy(p.config.Retry),
		pool.WithOnResult(p.onResult),
		pool.WithLogger(log),
	)
	results, err := workers.Run(ctx, plan, ws)
	report.AddResults(results)
	if err != nil {
		return fail("fetch segments", "url", variant.URI, err)
	}

	if _, err := assemble.New(p.remuxer, log).Assemble(ctx, results, ws, req.OutputPath); err != nil {
		return fail("assemble", "path", req.OutputPath, err)
	}
	report.Outcome = OutcomeCompleted
	log.Infow("Download complete", "output", req.OutputPath, "segments", report.Succeeded, "failed", report.Failed)
	return report, nil
}

func newRunID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return ""
	}
	return id.String()
}
