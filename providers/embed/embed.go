// Package embed handles video pages whose player settings are embedded in an embed page, downloading them with the
// segmented pipeline.
package embed

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"github.com/alanbriolat/stream-archiver"
	"github.com/alanbriolat/stream-archiver/generic"
	"github.com/alanbriolat/stream-archiver/pipeline"
)

const ProviderName = "embed"

var (
	protocols = generic.NewSet("http", "https")
	// The ID is the last dash-separated part of the slug.
	videoPagePattern = regexp.MustCompile(`/videos/.+?-([\w\d]+)/?$`)
	embedPagePattern = regexp.MustCompile(`/embed/([\w\d]+)/?$`)
)

// ParseVideoID extracts the video ID from a video page or embed page URL.
func ParseVideoID(s string) (string, error) {
	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	if !protocols.Contains(u.Scheme) {
		return "", fmt.Errorf("unknown URL scheme %v", u.Scheme)
	}
	for _, pattern := range []*regexp.Regexp{videoPagePattern, embedPagePattern} {
		if m := pattern.FindStringSubmatch(u.Path); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("no video ID in %v", u.Path)
}

func Match(s string) (stream_archiver.Source, error) {
	id, err := ParseVideoID(s)
	if err != nil {
		return nil, err
	}
	return &source{id: id, url: s}, nil
}

type source struct {
	id  string
	url string
}

func (s *source) ID() string {
	return s.id
}

func (s *source) URL() string {
	return s.url
}

func (s *source) String() string {
	return s.URL()
}

func (s *source) Download(ctx context.Context, env *stream_archiver.Env, outputPath string) (*pipeline.Report, error) {
	return env.NewPipeline(env.Logger(ProviderName)).Run(ctx, pipeline.Request{VideoID: s.id, OutputPath: outputPath})
}

func init() {
	stream_archiver.DefaultProviderRegistry.MustCreatePriority(ProviderName, Match, stream_archiver.PriorityDefault)
}
