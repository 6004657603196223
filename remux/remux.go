// Package remux wraps the external remux tool. Every operation is a stream copy: nothing is ever re-encoded.
package remux

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/alanbriolat/stream-archiver/generic"
	"github.com/alanbriolat/stream-archiver/media"
)

const (
	DefaultBinPath = "ffmpeg"
	PartialSuffix  = ".part"
)

// OutputExtensions are the output file extensions ffmpeg picks a muxer from. No -f is passed for outputs.
var OutputExtensions = generic.NewSet(".flv", ".m4v", ".mkv", ".mov", ".mp4", ".ts", ".webm")

// CheckOutput fails for an output path whose extension does not name a muxer.
func CheckOutput(output string) error {
	ext := strings.ToLower(filepath.Ext(output))
	if !OutputExtensions.Contains(ext) {
		return fmt.Errorf("%w: unable to choose an output format for %q", media.ErrRemuxFailed, filepath.Base(output))
	}
	return nil
}

// PartialPath names the in-progress file for output. The extension stays last so the muxer can still be inferred,
// e.g. "video.mp4" becomes "video.part.mp4".
func PartialPath(output string) string {
	ext := filepath.Ext(output)
	return strings.TrimSuffix(output, ext) + PartialSuffix + ext
}

type Remuxer interface {
	// Passthrough copies a single input into a local file. With videoOnly the audio stream is dropped.
	Passthrough(ctx context.Context, input string, output string, videoOnly bool) error
	// ConcatFragment prefixes fragment with the initialization segment and copies the video stream into output.
	ConcatFragment(ctx context.Context, init string, fragment string, output string) error
	// ConcatList joins the files named in a concat list, in order, into output.
	ConcatList(ctx context.Context, listPath string, output string) error
}

// FFmpeg runs the ffmpeg binary with stdout and stderr discarded; success is the exit status alone.
type FFmpeg struct {
	BinPath string
	log     *zap.SugaredLogger
}

func NewFFmpeg(binPath string, log *zap.SugaredLogger) *FFmpeg {
	if binPath == "" {
		binPath = DefaultBinPath
	}
	if log == nil {
		log = zap.S()
	}
	return &FFmpeg{BinPath: binPath, log: log.Named("remux")}
}

func PassthroughArgs(input string, output string, videoOnly bool) []string {
	args := []string{"-y", "-loglevel", "error", "-i", input}
	if videoOnly {
		args = append(args, "-an", "-c:v", "copy")
	} else {
		args = append(args, "-c", "copy")
	}
	return append(args, output)
}

func ConcatFragmentArgs(init string, fragment string, output string) []string {
	return []string{"-y", "-loglevel", "error", "-i", "concat:" + init + "|" + fragment, "-an", "-c:v", "copy", output}
}

func ConcatListArgs(listPath string, output string) []string {
	return []string{"-y", "-loglevel", "error", "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", output}
}

func (f *FFmpeg) Passthrough(ctx context.Context, input string, output string, videoOnly bool) error {
	return f.run(ctx, output, PassthroughArgs(input, output, videoOnly))
}

func (f *FFmpeg) ConcatFragment(ctx context.Context, init string, fragment string, output string) error {
	return f.run(ctx, output, ConcatFragmentArgs(init, fragment, output))
}

func (f *FFmpeg) ConcatList(ctx context.Context, listPath string, output string) error {
	return f.run(ctx, output, ConcatListArgs(listPath, output))
}

func (f *FFmpeg) run(ctx context.Context, output string, args []string) error {
	if err := CheckOutput(output); err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, f.BinPath, args...) // #nosec G204
	cmd.Stdout = nil
	cmd.Stderr = nil
	f.log.Debugf("running %s %s", f.BinPath, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s exited with status %d", media.ErrRemuxFailed, f.BinPath, exitErr.ExitCode())
		}
		return fmt.Errorf("%w: %v", media.ErrRemuxFailed, err)
	}
	return nil
}
