// Package media holds the data model shared by every stage of a segmented download: where the streams are, which
// variants they offer, which segments make up a variant and what happened when each one was fetched.
package media

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alanbriolat/stream-archiver/generic"
)

type Codec string

const (
	CodecH264 Codec = "h264"
	CodecAV1  Codec = "av1"
)

// Codecs lists the supported codecs in default preference order.
var Codecs = []Codec{CodecH264, CodecAV1}

func ParseCodec(s string) (Codec, error) {
	switch c := Codec(strings.ToLower(strings.TrimSpace(s))); c {
	case CodecH264, CodecAV1:
		return c, nil
	default:
		return "", fmt.Errorf("unknown codec %q", s)
	}
}

// Fragmented reports whether segments of this codec need a shared initialization segment to be decodable.
func (c Codec) Fragmented() bool {
	return c == CodecAV1
}

// A StreamSource is the top-level manifest for one codec of one video.
type StreamSource struct {
	Codec       Codec
	ManifestURI string
}

// Sources maps each available codec to its StreamSource; at most one per codec.
type Sources map[Codec]StreamSource

// Preferred returns the first StreamSource found when walking order.
func (s Sources) Preferred(order []Codec) (StreamSource, bool) {
	for _, c := range order {
		if src, ok := s[c]; ok {
			return src, true
		}
	}
	return StreamSource{}, false
}

// Available returns the codecs present, in the default preference order.
func (s Sources) Available() []Codec {
	var codecs []Codec
	for _, c := range Codecs {
		if _, ok := s[c]; ok {
			codecs = append(codecs, c)
		}
	}
	return codecs
}

// A Variant is one encoding listed by a master manifest.
type Variant struct {
	Width     int
	Height    int
	Bandwidth generic.Option[int]
	URI       string
}

func (v Variant) String() string {
	return fmt.Sprintf("%dx%d", v.Width, v.Height)
}

// InitOrdinal is the ordinal of an initialization segment, which always sorts before the media segments.
const InitOrdinal = -1

// A SegmentPlan is one unit of work for the fetch pool. Ordinal is the only ordering key.
type SegmentPlan struct {
	Ordinal       int
	URI           string
	IsInitSegment bool
}

// A Plan is the full list of segments for one variant, in playback order.
type Plan struct {
	Codec    Codec
	Init     *SegmentPlan
	Segments []SegmentPlan
}

// Len is the number of media segments, not counting any initialization segment.
func (p *Plan) Len() int {
	return len(p.Segments)
}

// Validate checks that media ordinals are contiguous from 0 and that an initialization segment, if any, is
// unique and sorts first.
func (p *Plan) Validate() error {
	if p.Init != nil {
		if !p.Init.IsInitSegment || p.Init.Ordinal != InitOrdinal {
			return fmt.Errorf("initialization segment has ordinal %d", p.Init.Ordinal)
		}
	}
	for i, s := range p.Segments {
		if s.IsInitSegment {
			return fmt.Errorf("segment %d is marked as initialization segment", i)
		}
		if s.Ordinal != i {
			return fmt.Errorf("segment %d has ordinal %d", i, s.Ordinal)
		}
	}
	return nil
}

// A FetchResult records the outcome of one SegmentPlan. It is owned by the worker that produced it and not changed
// after being returned.
type FetchResult struct {
	Ordinal   int
	LocalPath string
	OK        bool
	Attempts  int
	Bytes     int64
	Err       error
}

// An AssemblyJob is the ordered list of local files to concatenate into OutputPath.
type AssemblyJob struct {
	OrderedLocalPaths []string
	OutputPath        string
}

// NewAssemblyJob keeps only successful results, sorted by ordinal. The second return value is the number of
// discarded failures.
func NewAssemblyJob(results []FetchResult, outputPath string) (AssemblyJob, int) {
	ok := make([]FetchResult, 0, len(results))
	for _, r := range results {
		if r.OK {
			ok = append(ok, r)
		}
	}
	sort.SliceStable(ok, func(i, j int) bool {
		return ok[i].Ordinal < ok[j].Ordinal
	})
	job := AssemblyJob{
		OrderedLocalPaths: make([]string, 0, len(ok)),
		OutputPath:        outputPath,
	}
	for _, r := range ok {
		job.OrderedLocalPaths = append(job.OrderedLocalPaths, r.LocalPath)
	}
	return job, len(results) - len(ok)
}
