// Package raw handles URLs that point straight at a media file or playlist: the remux tool reads the URL itself and
// copies every stream into the output.
package raw

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/alanbriolat/stream-archiver"
	"github.com/alanbriolat/stream-archiver/generic"
	"github.com/alanbriolat/stream-archiver/pipeline"
	"github.com/alanbriolat/stream-archiver/remux"
	"github.com/alanbriolat/stream-archiver/retry"
	"github.com/alanbriolat/stream-archiver/util"
)

const ProviderName = "raw"

type Config struct {
	Protocols  generic.Set[string]
	Extensions generic.Set[string]
}

func NewConfig() Config {
	return Config{
		Protocols: generic.NewSet(
			"http",
			"https",
		),
		Extensions: generic.NewSet(
			"flv",
			"m3u8",
			"m4v",
			"mkv",
			"mp4",
			"ts",
			"webm",
		),
	}
}

func (c *Config) Match(s string) (stream_archiver.Source, error) {
	parsedURL, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	if !c.Protocols.Contains(parsedURL.Scheme) {
		return nil, fmt.Errorf("unknown URL scheme %v", parsedURL.Scheme)
	}
	filename, err := util.FilenameFromURL(parsedURL)
	if err != nil {
		return nil, err
	}
	extension := path.Ext(filename)
	if extension == "" {
		return nil, fmt.Errorf("no file extension found")
	}
	if !c.Extensions.Contains(strings.ToLower(strings.TrimPrefix(extension, "."))) {
		return nil, fmt.Errorf("unknown file extension %v", extension)
	}
	return &source{url: s, id: strings.TrimSuffix(filename, extension)}, nil
}

func (c Config) Provider() stream_archiver.Provider {
	return stream_archiver.Provider{
		Name:  ProviderName,
		Match: c.Match,
	}
}

type source struct {
	url string
	id  string
}

func (s *source) ID() string {
	return s.id
}

func (s *source) URL() string {
	return s.url
}

func (s *source) String() string {
	return s.URL()
}

func (s *source) Download(ctx context.Context, env *stream_archiver.Env, outputPath string) (*pipeline.Report, error) {
	log := env.Logger(ProviderName).With("video_id", s.id)
	report := pipeline.NewReport(s.id, outputPath)
	report.Planned = 1
	start := time.Now()
	defer func() {
		report.Duration = time.Since(start)
	}()
	fail := func(err error) (*pipeline.Report, error) {
		log.Errorw("Download failed", "url", s.url, "error", err)
		report.Failed = 1
		report.Err = err
		return report, err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fail(err)
	}
	partPath := remux.PartialPath(outputPath)
	defer func() {
		if err := os.Remove(partPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warnw("Failed to remove partial output", "path", partPath, "error", err)
		}
	}()

	policy := env.Pipeline.Retry
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Infow("Retrying", "attempt", attempt, "delay", delay, "error", err)
	}
	attempts, err := retry.Do_(ctx, policy, func(ctx context.Context) error {
		return env.Remuxer.Passthrough(ctx, s.url, partPath, false)
	})
	report.Attempts = attempts
	if err != nil {
		return fail(fmt.Errorf("remux %s: %w", s.url, err))
	}
	if err := os.Rename(partPath, outputPath); err != nil {
		return fail(err)
	}
	if info, err := os.Stat(outputPath); err == nil {
		report.Bytes = info.Size()
	}
	report.Succeeded = 1
	report.Outcome = pipeline.OutcomeCompleted
	log.Infow("Download complete", "output", outputPath)
	return report, nil
}

func init() {
	stream_archiver.DefaultProviderRegistry.MustAdd(
		NewConfig().Provider().WithPriority(stream_archiver.PriorityLowest),
	)
}
