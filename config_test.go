package stream_archiver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanbriolat/stream-archiver/manifest"
	"github.com/alanbriolat/stream-archiver/media"
)

func TestDefaultConfig(t *testing.T) {
	assert := assert_.New(t)
	c := DefaultConfig()
	assert.NoError(c.Validate())
	assert.Equal(manifest.DefaultWindow(), c.Window())

	pc, err := c.PipelineConfig()
	assert.NoError(err)
	assert.Equal([]media.Codec{media.CodecH264, media.CodecAV1}, pc.Codecs)
	assert.Equal(3, pc.Retry.MaxAttempts)
	assert.Equal(5*time.Second, pc.Retry.Delay)
}

func TestLoadConfig(t *testing.T) {
	assert := assert_.New(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
		"target_dir: /srv/videos",
		"target_file: '{{.Provider}}/{{.ID}}.mp4'",
		"max_height: 1080",
		"codecs: [av1]",
		"workers: 8",
		"retry_delay: 250ms",
		"requests_per_second: 2.5",
	}, "\n")), 0644))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.NoError(c.Validate())
	assert.Equal("/srv/videos", c.TargetDir)
	assert.Equal(manifest.Window{MinHeight: 144, MaxHeight: 1080}, c.Window())
	assert.Equal([]string{"av1"}, c.Codecs)
	assert.Equal(8, c.Workers)
	assert.Equal(250*time.Millisecond, c.RetryDelay)
	assert.Equal(2.5, c.FetchConfig().RequestsPerSecond)
	// Untouched keys keep their defaults
	assert.Equal(3, c.MaxAttempts)

	target, err := c.TargetPath(&Match{ProviderName: "embed", Source: testSource("abc123")})
	assert.NoError(err)
	assert.Equal(filepath.Join("/srv/videos", "embed", "abc123.mp4"), target)
}

func TestLoadConfigErrors(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(err, os.ErrNotExist)

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("max_hieght: 720\n"), 0644))
	_, err = LoadConfig(unknown)
	assert.ErrorContains(err, "max_hieght")

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	c, err := LoadConfig(empty)
	assert.NoError(err)
	assert.Equal(DefaultConfig(), c)
}

func TestConfigValidate(t *testing.T) {
	assert := assert_.New(t)
	c := DefaultConfig()
	c.MinHeight = 1080
	c.MaxHeight = 720
	c.Codecs = []string{"vp9"}
	c.MaxAttempts = 0
	c.TargetFile = "{{.ID"

	err := c.Validate()
	require.Error(t, err)
	for _, want := range []string{"invalid resolution window", `unknown codec "vp9"`, "invalid max attempts", "target_file"} {
		assert.Contains(err.Error(), want)
	}
}

func TestTargetPath(t *testing.T) {
	assert := assert_.New(t)
	c := DefaultConfig()
	c.TargetDir = "out"
	match := &Match{ProviderName: "raw", Source: testSource("clip")}

	p, err := c.TargetPath(match)
	assert.NoError(err)
	assert.Equal(filepath.Join("out", "clip.mp4"), p)

	c.TargetFile = "{{.Title}}.mp4"
	_, err = c.TargetPath(match)
	assert.Error(err)

	c.TargetFile = ""
	_, err = c.TargetPath(match)
	assert.Error(err)
}
