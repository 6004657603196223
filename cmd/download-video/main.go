package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alanbriolat/stream-archiver"
	"github.com/alanbriolat/stream-archiver/async"
	"github.com/alanbriolat/stream-archiver/fetch"
	"github.com/alanbriolat/stream-archiver/generic"
	"github.com/alanbriolat/stream-archiver/media"
	_ "github.com/alanbriolat/stream-archiver/providers"
	"github.com/alanbriolat/stream-archiver/remux"
)

func main() {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	logger, err := config.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := &cli.App{
		Name:      "download-video",
		Usage:     "download videos from embed pages or direct media URLs",
		ArgsUsage: "URL...",
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:  "config",
				Usage: "read settings from YAML `FILE`; flags override it",
			},
			&cli.PathFlag{
				Name:  "batch",
				Usage: "also read URLs from `FILE`, one per line",
			},
			&cli.StringFlag{
				Name:  "target",
				Value: ".",
				Usage: "save downloaded videos to `DIR`",
			},
			&cli.StringFlag{
				Name:  "target-file",
				Value: stream_archiver.DefaultTargetFile,
				Usage: "output file name `TEMPLATE` ({{.Provider}}, {{.ID}})",
			},
			&cli.StringFlag{
				Name:  "temp-dir",
				Usage: "create temporary files under `DIR`",
			},
			&cli.IntFlag{
				Name:  "min-height",
				Value: stream_archiver.DefaultConfig().MinHeight,
				Usage: "smallest acceptable variant height",
			},
			&cli.IntFlag{
				Name:  "max-height",
				Value: stream_archiver.DefaultConfig().MaxHeight,
				Usage: "largest acceptable variant height",
			},
			&cli.StringSliceFlag{
				Name:  "codec",
				Usage: "preferred codec, may be repeated (h264, av1)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "concurrent segment downloads (default: number of CPUs)",
			},
			&cli.IntFlag{
				Name:  "attempts",
				Value: stream_archiver.DefaultConfig().MaxAttempts,
				Usage: "attempts per segment",
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Value: stream_archiver.DefaultConfig().RetryDelay,
				Usage: "delay between attempts",
			},
			&cli.Float64Flag{
				Name:  "rate",
				Usage: "limit HTTP requests per second (0 for no limit)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "give up on a video after `DURATION` (0 for no limit)",
			},
			&cli.StringFlag{
				Name:  "provider",
				Usage: "only try provider `NAME`",
			},
			&cli.StringFlag{
				Name:  "ffmpeg",
				Value: remux.DefaultBinPath,
				Usage: "path to the ffmpeg binary",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log debug messages",
			},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("verbose") {
				config.Level.SetLevel(zap.DebugLevel)
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			inputs, err := readInputs(c)
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				return errors.New("no URLs given")
			}
			return archive(ctx, cfg, c.String("provider"), inputs)
		},
		HideHelpCommand: true,
	}

	result := async.Run(func() error { return app.Run(os.Args) })

	select {
	case err = <-result:
	case <-ctx.Done():
		stop()
		err = <-result
	}
	if err != nil {
		logger.Fatal(err.Error())
	}
}

func loadConfig(c *cli.Context) (stream_archiver.Config, error) {
	cfg := stream_archiver.DefaultConfig()
	if path := c.Path("config"); path != "" {
		var err error
		if cfg, err = stream_archiver.LoadConfig(path); err != nil {
			return cfg, err
		}
	}
	if c.IsSet("target") {
		cfg.TargetDir = c.String("target")
	}
	if c.IsSet("target-file") {
		cfg.TargetFile = c.String("target-file")
	}
	if c.IsSet("temp-dir") {
		cfg.TempDir = c.String("temp-dir")
	}
	if c.IsSet("min-height") {
		cfg.MinHeight = c.Int("min-height")
	}
	if c.IsSet("max-height") {
		cfg.MaxHeight = c.Int("max-height")
	}
	if c.IsSet("codec") {
		cfg.Codecs = c.StringSlice("codec")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("attempts") {
		cfg.MaxAttempts = c.Int("attempts")
	}
	if c.IsSet("retry-delay") {
		cfg.RetryDelay = c.Duration("retry-delay")
	}
	if c.IsSet("rate") {
		cfg.RequestsPerSecond = c.Float64("rate")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if c.IsSet("ffmpeg") {
		cfg.FFmpeg = c.String("ffmpeg")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func readInputs(c *cli.Context) ([]string, error) {
	inputs := c.Args().Slice()
	path := c.Path("batch")
	if path == "" {
		return inputs, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		inputs = append(inputs, line)
	}
	return inputs, scanner.Err()
}

func archive(ctx context.Context, cfg stream_archiver.Config, provider string, inputs []string) error {
	logger := zap.S()
	pipelineConfig, err := cfg.PipelineConfig()
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	env := &stream_archiver.Env{
		Client:   fetch.NewClient(cfg.FetchConfig()),
		Remuxer:  remux.NewFFmpeg(cfg.FFmpeg, logger),
		Pipeline: pipelineConfig,
		OnPlan: func(plan *media.Plan) {
			bar = progressbar.Default(int64(plan.Len()), fmt.Sprintf("%s segments", plan.Codec))
		},
		OnResult: func(media.FetchResult) {
			_ = bar.Add(1)
		},
		Log: logger,
	}

	registry := &stream_archiver.DefaultProviderRegistry
	if provider != "" {
		registry = &stream_archiver.ProviderRegistry{}
		if err := onlyProvider(registry, provider); err != nil {
			return err
		}
	}
	archiver := stream_archiver.NewArchiver(cfg, registry, env)

	logger.Infof("Downloading %d video(s) into %s", len(inputs), cfg.TargetDir)
	summary, err := archiver.ArchiveAll(ctx, inputs)
	for _, report := range summary.Reports {
		fmt.Println(report)
	}
	fmt.Println(summary)
	if err != nil {
		return fmt.Errorf("%d video(s) failed", summary.Failed)
	}
	return nil
}

// onlyProvider fills registry with just the named provider from the default registry.
func onlyProvider(registry *stream_archiver.ProviderRegistry, name string) error {
	known := generic.NewSet(stream_archiver.DefaultProviderRegistry.List()...)
	if !known.Contains(name) {
		return fmt.Errorf("%w: %s (known: %s)", stream_archiver.ErrUnknownProvider, name,
			strings.Join(stream_archiver.DefaultProviderRegistry.List(), ", "))
	}
	return registry.Create(name, func(s string) (stream_archiver.Source, error) {
		match, err := stream_archiver.DefaultProviderRegistry.MatchWith(name, s)
		if err != nil {
			return nil, err
		}
		return match.Source, nil
	})
}
