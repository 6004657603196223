package util

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrNoFilename = errors.New("cannot extract valid filename")
)

func FilenameFromURL(url *url.URL) (string, error) {
	if url == nil {
		return "", ErrNoFilename
	}
	path := strings.Trim(url.Path, "/")
	if path == "" {
		return "", ErrNoFilename
	}
	pathElements := strings.Split(path, "/")
	filename := pathElements[len(pathElements)-1]
	// Don't allow "filenames" that are just ".", "..", etc.
	if filename == "" || strings.ReplaceAll(filename, ".", "") == "" {
		return "", ErrNoFilename
	}
	return filename, nil
}

// ResolveReference resolves ref against base, so that playlist entries relative to the playlist's own URL become
// absolute. Absolute refs are returned unchanged.
func ResolveReference(base string, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	refURL, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("invalid URL reference %q: %w", ref, err)
	}
	return baseURL.ResolveReference(refURL).String(), nil
}

// ReplaceFilename swaps the last path element of a URL for name, dropping any query string.
func ReplaceFilename(s string, name string) (string, error) {
	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	idx := strings.LastIndex(u.Path, "/")
	u.Path = u.Path[:idx+1] + name
	u.RawPath = ""
	u.RawQuery = ""
	return u.String(), nil
}
