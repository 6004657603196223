// Package remuxtest provides a stand-in for ffmpeg that works on plain bytes, so tests can check which files were
// joined and in what order.
package remuxtest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/alanbriolat/stream-archiver/media"
	"github.com/alanbriolat/stream-archiver/remux"
)

type Call struct {
	Input     string
	Output    string
	VideoOnly bool
}

// Fake copies and concatenates files byte for byte. A Passthrough input that is a URL rather than a local file is
// written out as its own text. Like ffmpeg, it refuses outputs whose extension does not name a muxer.
type Fake struct {
	// FailPassthrough makes that many Passthrough calls fail before the rest succeed.
	FailPassthrough int
	// FailConcatList makes every ConcatList call fail.
	FailConcatList bool

	mu           sync.Mutex
	passthroughs []Call
	fragments    int
	lists        int
}

var _ remux.Remuxer = (*Fake)(nil)

func exitStatus1() error {
	return fmt.Errorf("%w: ffmpeg exited with status 1", media.ErrRemuxFailed)
}

func (f *Fake) Passthrough(ctx context.Context, input string, output string, videoOnly bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.passthroughs = append(f.passthroughs, Call{Input: input, Output: output, VideoOnly: videoOnly})
	fail := len(f.passthroughs) <= f.FailPassthrough
	f.mu.Unlock()
	if fail {
		return exitStatus1()
	}
	if err := remux.CheckOutput(output); err != nil {
		return err
	}

	data, err := os.ReadFile(input)
	if errors.Is(err, fs.ErrNotExist) && strings.Contains(input, "://") {
		data, err = []byte(input), nil
	}
	if err != nil {
		return err
	}
	return os.WriteFile(output, data, 0644)
}

func (f *Fake) ConcatFragment(ctx context.Context, init string, fragment string, output string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.fragments++
	f.mu.Unlock()
	if err := remux.CheckOutput(output); err != nil {
		return err
	}
	return concatFiles([]string{init, fragment}, output)
}

func (f *Fake) ConcatList(ctx context.Context, listPath string, output string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.lists++
	f.mu.Unlock()
	if f.FailConcatList {
		return exitStatus1()
	}
	if err := remux.CheckOutput(output); err != nil {
		return err
	}
	paths, err := ReadConcatList(listPath)
	if err != nil {
		return err
	}
	return concatFiles(paths, output)
}

func (f *Fake) Passthroughs() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.passthroughs...)
}

func (f *Fake) Fragments() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fragments
}

func (f *Fake) Lists() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

// ReadConcatList parses the file directives of a concat demuxer list.
func ReadConcatList(listPath string) ([]string, error) {
	list, err := os.Open(listPath)
	if err != nil {
		return nil, err
	}
	defer list.Close()
	var paths []string
	scanner := bufio.NewScanner(list)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "file '") || !strings.HasSuffix(line, "'") {
			return nil, fmt.Errorf("bad concat directive %q", line)
		}
		path := strings.TrimSuffix(strings.TrimPrefix(line, "file '"), "'")
		paths = append(paths, strings.ReplaceAll(path, `'\''`, "'"))
	}
	return paths, scanner.Err()
}

func concatFiles(paths []string, output string) error {
	var out []byte
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out = append(out, data...)
	}
	return os.WriteFile(output, out, 0644)
}
