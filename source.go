package stream_archiver

import (
	"context"

	"go.uber.org/zap"

	"github.com/alanbriolat/stream-archiver/media"
	"github.com/alanbriolat/stream-archiver/pipeline"
	"github.com/alanbriolat/stream-archiver/remux"
)

type Source interface {
	// ID is the video's identifier within its provider, used to name the output file.
	ID() string
	// URL should return the canonical URL for this source. It is assumed that the Provider.Match that created the
	// Source would successfully match this canonical URL.
	URL() string
	// Download should fetch the video into outputPath. The Report is returned even on failure.
	Download(ctx context.Context, env *Env, outputPath string) (*pipeline.Report, error)
}

// Env is the set of shared services a Source downloads with.
type Env struct {
	Client   pipeline.Client
	Remuxer  remux.Remuxer
	Pipeline pipeline.Config
	// OnPlan and OnResult are passed through to each pipeline, for progress reporting.
	OnPlan   func(*media.Plan)
	OnResult func(media.FetchResult)
	Log      *zap.SugaredLogger
}

func (e *Env) logger() *zap.SugaredLogger {
	if e.Log != nil {
		return e.Log
	}
	return zap.S()
}

// Logger returns the logger sources should use, named after the provider.
func (e *Env) Logger(provider string) *zap.SugaredLogger {
	return e.logger().Named(provider)
}

// NewPipeline builds a segmented download pipeline from the environment.
func (e *Env) NewPipeline(log *zap.SugaredLogger) *pipeline.Pipeline {
	return pipeline.New(e.Client, e.Remuxer, e.Pipeline,
		pipeline.WithLogger(log),
		pipeline.WithOnPlan(e.OnPlan),
		pipeline.WithOnResult(e.OnResult),
	)
}
