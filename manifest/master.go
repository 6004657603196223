// Package manifest reads the line-oriented playlists served for each stream: master playlists listing variants,
// and variant playlists listing segments.
package manifest

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/alanbriolat/stream-archiver/generic"
	"github.com/alanbriolat/stream-archiver/media"
	"github.com/alanbriolat/stream-archiver/util"
)

const streamInfTag = "#EXT-X-STREAM-INF"

var (
	resolutionAttr = regexp.MustCompile(`RESOLUTION=(\d+)x(\d+)`)
	bandwidthAttr  = regexp.MustCompile(`(?:^|[:,])BANDWIDTH=(\d+)`)
)

// lines splits a manifest into trimmed lines, dropping blanks.
func lines(text string) []string {
	var out []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func isComment(line string) bool {
	return strings.HasPrefix(line, "#")
}

// ParseMaster returns the variants of a master manifest in manifest order. Declarations without a resolution, or
// without a URI line after them, are skipped rather than treated as fatal.
func ParseMaster(text string, manifestURL string) ([]media.Variant, error) {
	ls := lines(text)
	var variants []media.Variant
	for i, line := range ls {
		if !strings.HasPrefix(line, streamInfTag) {
			continue
		}
		res := resolutionAttr.FindStringSubmatch(line)
		if res == nil {
			continue
		}
		uri, ok := nextURI(ls, i+1)
		if !ok {
			continue
		}
		resolved, err := util.ResolveReference(manifestURL, uri)
		if err != nil {
			continue
		}
		width, _ := strconv.Atoi(res[1])
		height, _ := strconv.Atoi(res[2])
		v := media.Variant{
			Width:     width,
			Height:    height,
			Bandwidth: generic.None[int](),
			URI:       resolved,
		}
		if bw := bandwidthAttr.FindStringSubmatch(line); bw != nil {
			if n, err := strconv.Atoi(bw[1]); err == nil {
				v.Bandwidth = generic.Some(n)
			}
		}
		variants = append(variants, v)
	}
	if len(variants) == 0 {
		return nil, media.NewParseError(manifestURL, media.ErrEmptyManifest, nil)
	}
	return variants, nil
}

// nextURI finds the first non-comment line at or after start, stopping at the next stream declaration.
func nextURI(ls []string, start int) (string, bool) {
	for _, line := range ls[start:] {
		if strings.HasPrefix(line, streamInfTag) {
			return "", false
		}
		if !isComment(line) {
			return line, true
		}
	}
	return "", false
}
