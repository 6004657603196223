package stream_archiver

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/alanbriolat/stream-archiver/pipeline"
)

// An Archiver turns input URLs into output files, one video at a time. A failure is confined to its own video.
type Archiver struct {
	config   Config
	registry *ProviderRegistry
	env      *Env
	log      *zap.SugaredLogger
}

func NewArchiver(config Config, registry *ProviderRegistry, env *Env) *Archiver {
	if registry == nil {
		registry = &DefaultProviderRegistry
	}
	return &Archiver{
		config:   config,
		registry: registry,
		env:      env,
		log:      env.logger().Named("archiver"),
	}
}

// Resolve matches input to a provider and works out where its output goes, without touching the network.
func (a *Archiver) Resolve(input string) (*Match, string, error) {
	match, err := a.registry.Match(input)
	if err != nil {
		return nil, "", err
	}
	outputPath, err := a.config.TargetPath(match)
	if err != nil {
		return match, "", fmt.Errorf("failed to build target path: %w", err)
	}
	return match, outputPath, nil
}

// Archive downloads a single input. When the output file already exists nothing else happens and the Report's
// Outcome is OutcomeAlreadyDone.
func (a *Archiver) Archive(ctx context.Context, input string) (*pipeline.Report, error) {
	match, outputPath, err := a.Resolve(input)
	if err != nil {
		report := pipeline.NewReport(input, "")
		report.Err = err
		return report, err
	}
	log := a.log.With("provider", match.ProviderName, "video_id", match.Source.ID())

	if info, err := os.Stat(outputPath); err == nil && !info.IsDir() {
		log.Infow("Already downloaded, skipping", "output", outputPath)
		return pipeline.AlreadyDone(match.Source.ID(), outputPath), nil
	}

	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}
	log.Infow("Downloading", "url", match.Source.URL(), "output", outputPath)
	report, err := match.Source.Download(ctx, a.env, outputPath)
	if report == nil {
		report = pipeline.NewReport(match.Source.ID(), outputPath)
		report.Err = err
	}
	return report, err
}

// A Summary aggregates the Reports of a batch.
type Summary struct {
	Reports     []*pipeline.Report
	Completed   int
	AlreadyDone int
	Failed      int
	Bytes       int64
	Duration    time.Duration
}

func (s *Summary) Add(r *pipeline.Report) {
	s.Reports = append(s.Reports, r)
	switch r.Outcome {
	case pipeline.OutcomeCompleted:
		s.Completed++
	case pipeline.OutcomeAlreadyDone:
		s.AlreadyDone++
	default:
		s.Failed++
	}
	s.Bytes += r.Bytes
}

func (s *Summary) String() string {
	return fmt.Sprintf("%d completed, %d already done, %d failed, %s downloaded in %s",
		s.Completed, s.AlreadyDone, s.Failed, humanize.Bytes(uint64(s.Bytes)), s.Duration.Round(time.Second))
}

// ArchiveAll archives each input in turn, carrying on past failures. The error aggregates every failed input.
// Cancelling ctx stops the batch; the remaining inputs are not attempted.
func (a *Archiver) ArchiveAll(ctx context.Context, inputs []string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}
	var result error
	for i, input := range inputs {
		if err := ctx.Err(); err != nil {
			result = multierror.Append(result, fmt.Errorf("%d input(s) not attempted: %w", len(inputs)-i, err))
			break
		}
		report, err := a.Archive(ctx, input)
		summary.Add(report)
		if err != nil {
			a.log.Errorw("Failed", "input", input, "error", err)
			result = multierror.Append(result, fmt.Errorf("%s: %w", input, err))
		}
	}
	summary.Duration = time.Since(start)
	a.log.Info(summary.String())
	return summary, result
}
