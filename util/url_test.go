package util

import (
	"net/url"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestFilenameFromURL(t *testing.T) {
	assert := assert_.New(t)

	u, _ := url.Parse("https://cdn.example.com/media/clip.mp4?token=1")
	name, err := FilenameFromURL(u)
	assert.NoError(err)
	assert.Equal("clip.mp4", name)

	for _, s := range []string{"https://example.com/", "https://example.com/a/..", "https://example.com"} {
		u, _ := url.Parse(s)
		_, err := FilenameFromURL(u)
		assert.ErrorIs(err, ErrNoFilename, s)
	}
	_, err = FilenameFromURL(nil)
	assert.ErrorIs(err, ErrNoFilename)
}

func TestResolveReference(t *testing.T) {
	assert := assert_.New(t)
	base := "https://cdn.example.com/hls/abc/master.m3u8?sig=x"

	cases := map[string]string{
		"720p.m3u8":                    "https://cdn.example.com/hls/abc/720p.m3u8",
		"../def/480p.m3u8":             "https://cdn.example.com/hls/def/480p.m3u8",
		"/root.m3u8":                   "https://cdn.example.com/root.m3u8",
		"https://other.example/x.m3u8": "https://other.example/x.m3u8",
		"  seg-1.ts  ":                 "https://cdn.example.com/hls/abc/seg-1.ts",
	}
	for ref, want := range cases {
		got, err := ResolveReference(base, ref)
		assert.NoError(err, ref)
		assert.Equal(want, got, ref)
	}
}

func TestReplaceFilename(t *testing.T) {
	assert := assert_.New(t)
	got, err := ReplaceFilename("https://cdn.example.com/av1/1080p.m3u8?sig=abc", "init.mp4")
	assert.NoError(err)
	assert.Equal("https://cdn.example.com/av1/init.mp4", got)
}
