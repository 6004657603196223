// Package download owns the temporary files of one video download, and guarantees they are removed afterwards
// whether the download worked or not.
package download

import (
	"errors"
	"io/fs"
	"os"
	"sync"

	"go.uber.org/zap"
)

type workspaceConfig struct {
	baseTempDir string
	log         *zap.SugaredLogger
}

type WorkspaceOption func(*workspaceConfig)

// WithTempDir sets the directory the workspace is created in; empty means os.TempDir().
func WithTempDir(dir string) WorkspaceOption {
	return func(c *workspaceConfig) {
		if dir != "" {
			c.baseTempDir = dir
		}
	}
}

func WithLogger(log *zap.SugaredLogger) WorkspaceOption {
	return func(c *workspaceConfig) {
		c.log = log
	}
}

// A Workspace is a private temporary directory plus the list of every artifact created for the download. Artifacts
// may live outside the directory (e.g. a partial output next to the final file).
type Workspace struct {
	config    workspaceConfig
	dir       string
	mu        sync.Mutex
	artifacts []string
	closed    bool
}

func NewWorkspace(opts ...WorkspaceOption) (*Workspace, error) {
	config := workspaceConfig{
		baseTempDir: os.TempDir(),
		log:         zap.S(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	config.log = config.log.Named("workspace")
	if err := os.MkdirAll(config.baseTempDir, 0755); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp(config.baseTempDir, "stream-archiver-*")
	if err != nil {
		return nil, err
	}
	return &Workspace{config: config, dir: dir}, nil
}

func (w *Workspace) Dir() string {
	return w.dir
}

// Path returns the path of a named file inside the workspace and tracks it for cleanup.
func (w *Workspace) Path(name string) string {
	path := w.dir + string(os.PathSeparator) + name
	w.Track(path)
	return path
}

// Track registers an artifact for removal by Cleanup.
func (w *Workspace) Track(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.artifacts = append(w.artifacts, path)
}

// Artifacts returns a copy of every tracked path.
func (w *Workspace) Artifacts() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.artifacts...)
}

// Cleanup removes every tracked artifact and then the workspace directory. Failures are logged, never returned;
// the return value is the number of artifacts that could not be removed for a reason other than already being
// gone.
func (w *Workspace) Cleanup() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0
	}
	w.closed = true

	failed := 0
	for _, path := range w.artifacts {
		err := os.Remove(path)
		switch {
		case err == nil:
		case errors.Is(err, fs.ErrNotExist):
			w.config.log.Debugw("Artifact already removed", "path", path)
		default:
			failed++
			w.config.log.Warnw("Failed to remove artifact", "path", path, "error", err)
		}
	}
	if err := os.RemoveAll(w.dir); err != nil {
		w.config.log.Warnw("Failed to remove workspace", "dir", w.dir, "error", err)
	}
	return failed
}

// WithWorkspace runs f with a fresh Workspace that is cleaned up when f returns, however it returns.
func WithWorkspace(f func(w *Workspace) error, opts ...WorkspaceOption) error {
	w, err := NewWorkspace(opts...)
	if err != nil {
		return err
	}
	defer w.Cleanup()
	return f(w)
}
