// Package assemble joins the segments that were fetched successfully into the final output file.
package assemble

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"

	"github.com/alanbriolat/stream-archiver/download"
	"github.com/alanbriolat/stream-archiver/media"
	"github.com/alanbriolat/stream-archiver/remux"
)

const ConcatListName = "concat.txt"

type Assembler struct {
	remuxer remux.Remuxer
	log     *zap.SugaredLogger
}

func New(remuxer remux.Remuxer, log *zap.SugaredLogger) *Assembler {
	if log == nil {
		log = zap.S()
	}
	return &Assembler{remuxer: remuxer, log: log.Named("assemble")}
}

// ConcatList renders the concat demuxer input for paths, one file directive per line.
func ConcatList(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(p, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

// Assemble discards failed results, orders the rest and concatenates them into outputPath. Nothing is written to
// outputPath unless the concatenation succeeds. The remux is not retried.
func (a *Assembler) Assemble(ctx context.Context, results []media.FetchResult, ws *download.Workspace, outputPath string) (media.AssemblyJob, error) {
	job, discarded := media.NewAssemblyJob(results, outputPath)
	if discarded > 0 {
		a.log.Warnw("Discarding failed segments", "failed", discarded, "kept", len(job.OrderedLocalPaths))
	}
	if len(job.OrderedLocalPaths) == 0 {
		return job, &media.AssemblyError{Err: media.ErrNoSegmentsSucceeded}
	}

	paths := make([]string, 0, len(job.OrderedLocalPaths))
	for _, p := range job.OrderedLocalPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return job, &media.AssemblyError{Reason: "resolve segment path", Err: err}
		}
		paths = append(paths, abs)
	}
	listPath := ws.Path(ConcatListName)
	if err := renameio.WriteFile(listPath, []byte(ConcatList(paths)), 0644); err != nil {
		return job, &media.AssemblyError{Reason: "write concat list", Err: err}
	}

	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return job, &media.AssemblyError{Reason: "create output directory", Err: err}
		}
	}
	partPath := remux.PartialPath(outputPath)
	ws.Track(partPath)

	a.log.Infow("Concatenating segments", "segments", len(paths), "output", outputPath)
	if err := a.remuxer.ConcatList(ctx, listPath, partPath); err != nil {
		return job, &media.AssemblyError{Reason: "concatenate", Err: err}
	}
	if err := os.Rename(partPath, outputPath); err != nil {
		return job, &media.AssemblyError{Reason: fmt.Sprintf("rename %s", filepath.Base(partPath)), Err: err}
	}
	return job, nil
}
