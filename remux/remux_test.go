package remux

import (
	"context"
	"os/exec"
	"testing"

	assert_ "github.com/stretchr/testify/assert"

	"github.com/alanbriolat/stream-archiver/media"
)

func TestArgs(t *testing.T) {
	assert := assert_.New(t)

	assert.Equal(
		[]string{"-y", "-loglevel", "error", "-i", "raw_00001", "-an", "-c:v", "copy", "seg_00001.ts"},
		PassthroughArgs("raw_00001", "seg_00001.ts", true),
	)
	assert.Equal(
		[]string{"-y", "-loglevel", "error", "-i", "https://cdn.example.com/v.mp4", "-c", "copy", "out.mp4"},
		PassthroughArgs("https://cdn.example.com/v.mp4", "out.mp4", false),
	)
	assert.Equal(
		[]string{"-y", "-loglevel", "error", "-i", "concat:/w/init.mp4|/w/raw_00002", "-an", "-c:v", "copy", "/w/frag_00002.mp4"},
		ConcatFragmentArgs("/w/init.mp4", "/w/raw_00002", "/w/frag_00002.mp4"),
	)
	assert.Equal(
		[]string{"-y", "-loglevel", "error", "-f", "concat", "-safe", "0", "-i", "/w/concat.txt", "-c", "copy", "/out/v.part.mp4"},
		ConcatListArgs("/w/concat.txt", "/out/v.part.mp4"),
	)
}

func TestFFmpegExitStatus(t *testing.T) {
	for _, bin := range []string{"true", "false"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not available", bin)
		}
	}
	ctx := context.Background()

	ok := NewFFmpeg("true", nil)
	assert_.NoError(t, ok.Passthrough(ctx, "in", "out.ts", true))
	assert_.NoError(t, ok.ConcatList(ctx, "list", "out.mp4"))

	failing := NewFFmpeg("false", nil)
	err := failing.ConcatFragment(ctx, "init", "frag", "out.mp4")
	assert_.ErrorIs(t, err, media.ErrRemuxFailed)
	assert_.Contains(t, err.Error(), "status 1")
}

func TestFFmpegMissingBinary(t *testing.T) {
	f := NewFFmpeg("/nonexistent/ffmpeg-binary", nil)
	err := f.ConcatList(context.Background(), "list", "out.mp4")
	assert_.ErrorIs(t, err, media.ErrRemuxFailed)
}

func TestPartialPath(t *testing.T) {
	assert := assert_.New(t)
	assert.Equal("/out/abc123.part.mp4", PartialPath("/out/abc123.mp4"))
	assert.Equal("clip.part.webm", PartialPath("clip.webm"))
	assert.NoError(CheckOutput(PartialPath("/out/abc123.mp4")))
	assert.NoError(CheckOutput("/w/SEG_00001.TS"))
}

func TestOutputFormatMustBeInferable(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}
	f := NewFFmpeg("true", nil)
	ctx := context.Background()
	for _, output := range []string{"/out/abc123.mp4.part", "/w/raw_00001", "/out/notes.txt"} {
		err := f.ConcatList(ctx, "list", output)
		assert_.ErrorIs(t, err, media.ErrRemuxFailed, output)
		assert_.ErrorContains(t, err, "output format", output)
	}
}

func TestDefaultBinPath(t *testing.T) {
	assert_.Equal(t, DefaultBinPath, NewFFmpeg("", nil).BinPath)
}
