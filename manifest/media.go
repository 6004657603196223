package manifest

import (
	"regexp"
	"strings"

	"github.com/alanbriolat/stream-archiver/media"
	"github.com/alanbriolat/stream-archiver/util"
)

const DefaultInitSegmentName = "init.mp4"

var mapURIAttr = regexp.MustCompile(`^#EXT-X-MAP:.*URI="([^"]+)"`)

// Enumerate turns a variant manifest into a segment plan. Every non-comment line is a segment, in line order. For
// fragmented codecs the plan also gets an initialization segment: the manifest's own #EXT-X-MAP if it has one,
// otherwise the variant URL with its filename replaced by initName.
func Enumerate(codec media.Codec, text string, variantURL string, initName string) (*media.Plan, error) {
	plan := &media.Plan{Codec: codec}
	var mapURI string
	for _, line := range lines(text) {
		if isComment(line) {
			if m := mapURIAttr.FindStringSubmatch(line); m != nil && mapURI == "" {
				mapURI = m[1]
			}
			continue
		}
		uri, err := util.ResolveReference(variantURL, line)
		if err != nil {
			return nil, media.NewParseError(variantURL, nil, err)
		}
		plan.Segments = append(plan.Segments, media.SegmentPlan{
			Ordinal: len(plan.Segments),
			URI:     uri,
		})
	}
	if len(plan.Segments) == 0 {
		return nil, media.NewParseError(variantURL, media.ErrEmptyManifest, nil)
	}

	if codec.Fragmented() {
		initURI, err := initSegmentURI(variantURL, mapURI, initName)
		if err != nil {
			return nil, media.NewParseError(variantURL, nil, err)
		}
		plan.Init = &media.SegmentPlan{
			Ordinal:       media.InitOrdinal,
			URI:           initURI,
			IsInitSegment: true,
		}
	}
	return plan, plan.Validate()
}

func initSegmentURI(variantURL string, mapURI string, initName string) (string, error) {
	if mapURI != "" {
		return util.ResolveReference(variantURL, mapURI)
	}
	if initName = strings.TrimSpace(initName); initName == "" {
		initName = DefaultInitSegmentName
	}
	return util.ReplaceFilename(variantURL, initName)
}
