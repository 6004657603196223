package stream_archiver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/alanbriolat/stream-archiver/fetch"
	"github.com/alanbriolat/stream-archiver/locator"
	"github.com/alanbriolat/stream-archiver/manifest"
	"github.com/alanbriolat/stream-archiver/media"
	"github.com/alanbriolat/stream-archiver/pipeline"
	"github.com/alanbriolat/stream-archiver/remux"
	"github.com/alanbriolat/stream-archiver/retry"
)

const DefaultTargetFile = "{{.ID}}.mp4"

// Config is everything adjustable about a run. The zero value is not useful; start from DefaultConfig.
type Config struct {
	TargetDir  string `yaml:"target_dir"`
	TargetFile string `yaml:"target_file"`
	TempDir    string `yaml:"temp_dir"`

	MinHeight int      `yaml:"min_height"`
	MaxHeight int      `yaml:"max_height"`
	Codecs    []string `yaml:"codecs"`

	Workers     int           `yaml:"workers"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	// Timeout bounds each video's whole download; 0 means no limit.
	Timeout time.Duration `yaml:"timeout"`

	UserAgent         string  `yaml:"user_agent"`
	Referer           string  `yaml:"referer"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	EmbedURLTemplate  string  `yaml:"embed_url"`
	InitSegmentName   string  `yaml:"init_segment_name"`

	FFmpeg string `yaml:"ffmpeg"`
}

func DefaultConfig() Config {
	codecs := make([]string, 0, len(media.Codecs))
	for _, c := range media.Codecs {
		codecs = append(codecs, string(c))
	}
	return Config{
		TargetDir:        ".",
		TargetFile:       DefaultTargetFile,
		MinHeight:        manifest.DefaultMinHeight,
		MaxHeight:        manifest.DefaultMaxHeight,
		Codecs:           codecs,
		MaxAttempts:      retry.DefaultMaxAttempts,
		RetryDelay:       retry.DefaultDelay,
		UserAgent:        fetch.DefaultUserAgent,
		Referer:          fetch.DefaultReferer,
		EmbedURLTemplate: locator.DefaultEmbedURLTemplate,
		InitSegmentName:  manifest.DefaultInitSegmentName,
		FFmpeg:           remux.DefaultBinPath,
	}
}

// LoadConfig reads a YAML file over the defaults. Unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return config, err
	}
	defer f.Close()
	if err := config.decode(f); err != nil {
		return config, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return config, nil
}

func (c *Config) decode(r io.Reader) error {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c Config) Window() manifest.Window {
	return manifest.Window{MinHeight: c.MinHeight, MaxHeight: c.MaxHeight}
}

func (c Config) ParseCodecs() ([]media.Codec, error) {
	codecs := make([]media.Codec, 0, len(c.Codecs))
	for _, s := range c.Codecs {
		codec, err := media.ParseCodec(s)
		if err != nil {
			return nil, err
		}
		codecs = append(codecs, codec)
	}
	return codecs, nil
}

func (c Config) Validate() error {
	var result error
	if err := c.Window().Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if len(c.Codecs) == 0 {
		result = multierror.Append(result, errors.New("no codecs configured"))
	} else if _, err := c.ParseCodecs(); err != nil {
		result = multierror.Append(result, err)
	}
	if c.Workers < 0 {
		result = multierror.Append(result, fmt.Errorf("invalid worker count %d", c.Workers))
	}
	if c.MaxAttempts < 1 {
		result = multierror.Append(result, fmt.Errorf("invalid max attempts %d", c.MaxAttempts))
	}
	if c.RetryDelay < 0 || c.Timeout < 0 {
		result = multierror.Append(result, errors.New("durations must not be negative"))
	}
	if c.RequestsPerSecond < 0 {
		result = multierror.Append(result, fmt.Errorf("invalid request rate %v", c.RequestsPerSecond))
	}
	if !strings.Contains(c.EmbedURLTemplate, "{id}") {
		result = multierror.Append(result, fmt.Errorf("embed URL %q has no {id} placeholder", c.EmbedURLTemplate))
	}
	if _, err := c.targetFileTemplate(); err != nil {
		result = multierror.Append(result, err)
	}
	return result
}

func (c Config) FetchConfig() fetch.Config {
	return fetch.Config{
		UserAgent:         c.UserAgent,
		Referer:           c.Referer,
		Timeout:           fetch.DefaultTimeout,
		RequestsPerSecond: c.RequestsPerSecond,
	}
}

func (c Config) RetryPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: c.MaxAttempts, Delay: c.RetryDelay}
}

func (c Config) PipelineConfig() (pipeline.Config, error) {
	codecs, err := c.ParseCodecs()
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		Window:           c.Window(),
		Codecs:           codecs,
		InitSegmentName:  c.InitSegmentName,
		EmbedURLTemplate: c.EmbedURLTemplate,
		Workers:          c.Workers,
		Retry:            c.RetryPolicy(),
		TempDir:          c.TempDir,
	}, nil
}

type targetFileTemplateArgs struct {
	Provider string
	ID       string
}

func (c Config) targetFileTemplate() (*template.Template, error) {
	return template.New("target_file").Option("missingkey=error").Parse(c.TargetFile)
}

// TargetPath renders the output path for a match.
func (c Config) TargetPath(match *Match) (string, error) {
	tmpl, err := c.targetFileTemplate()
	if err != nil {
		return "", err
	}
	args := targetFileTemplateArgs{
		Provider: match.ProviderName,
		ID:       match.Source.ID(),
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, &args); err != nil {
		return "", err
	}
	name := buf.String()
	if name == "" || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("invalid target file name %q", name)
	}
	return filepath.Join(c.TargetDir, name), nil
}
