package assemble

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanbriolat/stream-archiver/download"
	"github.com/alanbriolat/stream-archiver/media"
	"github.com/alanbriolat/stream-archiver/remux"
	"github.com/alanbriolat/stream-archiver/remux/remuxtest"
)

func setup(t *testing.T, n int, failed map[int]bool) (*download.Workspace, []media.FetchResult) {
	ws, err := download.NewWorkspace(download.WithTempDir(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { ws.Cleanup() })

	var results []media.FetchResult
	// Completion order, not ordinal order
	for i := n - 1; i >= 0; i-- {
		if failed[i] {
			results = append(results, media.FetchResult{Ordinal: i, Err: errors.New("gone")})
			continue
		}
		path := ws.Path(fmt.Sprintf("seg_%05d.ts", i))
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("[%d]", i)), 0644))
		results = append(results, media.FetchResult{Ordinal: i, LocalPath: path, OK: true})
	}
	return ws, results
}

func TestAssemblePreservesOrder(t *testing.T) {
	assert := assert_.New(t)
	ws, results := setup(t, 10, map[int]bool{2: true, 6: true})
	output := filepath.Join(t.TempDir(), "out", "video.mp4")
	remuxer := &remuxtest.Fake{}

	job, err := New(remuxer, nil).Assemble(context.Background(), results, ws, output)
	require.NoError(t, err)
	assert.Len(job.OrderedLocalPaths, 8)
	assert.Equal(output, job.OutputPath)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal("[0][1][3][4][5][7][8][9]", string(data))
	assert.NoFileExists(remux.PartialPath(output))
	assert.Contains(ws.Artifacts(), filepath.Join(ws.Dir(), ConcatListName))
}

func TestAssembleNothingSucceeded(t *testing.T) {
	assert := assert_.New(t)
	ws, results := setup(t, 3, map[int]bool{0: true, 1: true, 2: true})
	remuxer := &remuxtest.Fake{}

	_, err := New(remuxer, nil).Assemble(context.Background(), results, ws, filepath.Join(t.TempDir(), "v.mp4"))
	var assemblyErr *media.AssemblyError
	assert.ErrorAs(err, &assemblyErr)
	assert.ErrorIs(err, media.ErrNoSegmentsSucceeded)
	assert.Zero(remuxer.Lists())
}

func TestAssembleRemuxFailure(t *testing.T) {
	assert := assert_.New(t)
	ws, results := setup(t, 2, nil)
	output := filepath.Join(t.TempDir(), "v.mp4")
	remuxer := &remuxtest.Fake{FailConcatList: true}

	_, err := New(remuxer, nil).Assemble(context.Background(), results, ws, output)
	var assemblyErr *media.AssemblyError
	assert.ErrorAs(err, &assemblyErr)
	assert.ErrorIs(err, media.ErrRemuxFailed)
	assert.Equal(1, remuxer.Lists())
	assert.NoFileExists(output)
	assert.Contains(ws.Artifacts(), remux.PartialPath(output))
}

func TestConcatList(t *testing.T) {
	assert := assert_.New(t)
	paths := []string{"/w/seg_00000.ts", "/w/it's.ts"}
	list := ConcatList(paths)
	assert.Equal("file '/w/seg_00000.ts'\nfile '/w/it'\\''s.ts'\n", list)

	listPath := filepath.Join(t.TempDir(), ConcatListName)
	require.NoError(t, os.WriteFile(listPath, []byte(list), 0644))
	parsed, err := remuxtest.ReadConcatList(listPath)
	assert.NoError(err)
	assert.Equal(paths, parsed)
}

func TestAssembleOutputKeepsExtension(t *testing.T) {
	assert := assert_.New(t)
	ws, results := setup(t, 2, nil)
	output := filepath.Join(t.TempDir(), "abc123.mp4")

	_, err := New(&remuxtest.Fake{}, nil).Assemble(context.Background(), results, ws, output)
	require.NoError(t, err)
	partial := filepath.Join(filepath.Dir(output), "abc123.part.mp4")
	assert.Contains(ws.Artifacts(), partial)
	assert.NoFileExists(partial)
	assert.FileExists(output)

	// An output the muxer can't be inferred from fails the concatenation
	ws2, results2 := setup(t, 2, nil)
	_, err = New(&remuxtest.Fake{}, nil).Assemble(context.Background(), results2, ws2, filepath.Join(t.TempDir(), "abc123"))
	var assemblyErr *media.AssemblyError
	assert.ErrorAs(err, &assemblyErr)
	assert.ErrorIs(err, media.ErrRemuxFailed)
}
