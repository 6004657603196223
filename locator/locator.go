// Package locator finds the per-codec master manifests of a video by reading the player settings embedded in its
// embed page.
package locator

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/alanbriolat/stream-archiver/media"
	"github.com/alanbriolat/stream-archiver/util"
)

const DefaultEmbedURLTemplate = "https://xhamster.com/embed/{id}"

// Assignments of the player settings object, most specific first.
var configMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?s)window\.initials\s*=\s*(\{.*?\});\s*</script>`),
	regexp.MustCompile(`(?s)window\.xplayerSettings\s*=\s*(\{.*?\});\s*</script>`),
}

type PageFetcher interface {
	GetText(ctx context.Context, url string) (string, error)
}

type Locator struct {
	pages            PageFetcher
	embedURLTemplate string
	log              *zap.SugaredLogger
}

func New(pages PageFetcher, embedURLTemplate string, log *zap.SugaredLogger) *Locator {
	if embedURLTemplate == "" {
		embedURLTemplate = DefaultEmbedURLTemplate
	}
	if log == nil {
		log = zap.S()
	}
	return &Locator{
		pages:            pages,
		embedURLTemplate: embedURLTemplate,
		log:              log.Named("locator"),
	}
}

// EmbedURL fills the video ID into the embed page template.
func (l *Locator) EmbedURL(videoID string) string {
	return strings.ReplaceAll(l.embedURLTemplate, "{id}", url.PathEscape(videoID))
}

// Locate fetches the embed page for videoID and returns its stream sources.
func (l *Locator) Locate(ctx context.Context, videoID string) (media.Sources, error) {
	embedURL := l.EmbedURL(videoID)
	l.log.Infow("Fetching embed page", "video_id", videoID, "url", embedURL)
	page, err := l.pages.GetText(ctx, embedURL)
	if err != nil {
		return nil, err
	}
	sources, err := ExtractSources(page, embedURL, l.log.With("video_id", videoID))
	if err != nil {
		return nil, err
	}
	l.log.Debugw("Found stream sources", "video_id", videoID, "codecs", sources.Available())
	return sources, nil
}

type playerSettings struct {
	Sources struct {
		Standard map[string]json.RawMessage `json:"standard"`
	} `json:"sources"`
}

// The window.initials blob nests the settings; window.xplayerSettings is the settings object itself.
type settingsEnvelope struct {
	XPlayerSettings *playerSettings `json:"xplayerSettings"`
	playerSettings
}

// ExtractSources parses the embedded player settings out of an embed page. Relative manifest URLs are resolved
// against pageURL. Malformed codec entries are skipped with a warning on log.
func ExtractSources(page string, pageURL string, log *zap.SugaredLogger) (media.Sources, error) {
	if log == nil {
		log = zap.S().Named("locator")
	}
	settings, err := extractSettings(page, pageURL)
	if err != nil {
		return nil, err
	}

	sources := make(media.Sources)
	for _, codec := range media.Codecs {
		raw, ok := settings.Sources.Standard[string(codec)]
		if !ok {
			continue
		}
		var descriptors OneOrMany[SourceDescriptor]
		if err := json.Unmarshal(raw, &descriptors); err != nil {
			log.Warnw("Ignoring malformed codec source", "codec", codec, "error", err)
			continue
		}
		first, ok := descriptors.First()
		if !ok || first.URL == "" {
			continue
		}
		manifestURI, err := util.ResolveReference(pageURL, first.URL)
		if err != nil {
			return nil, media.NewParseError(pageURL, nil, err)
		}
		sources[codec] = media.StreamSource{Codec: codec, ManifestURI: manifestURI}
	}

	if len(sources) == 0 {
		return nil, media.NewParseError(pageURL, media.ErrNoCodecSources, nil)
	}
	return sources, nil
}

func extractSettings(page string, pageURL string) (*playerSettings, error) {
	var lastErr error
	for _, marker := range configMarkers {
		match := marker.FindStringSubmatch(page)
		if match == nil {
			continue
		}
		var env settingsEnvelope
		if err := json.Unmarshal([]byte(strings.TrimSpace(match[1])), &env); err != nil {
			// A later marker may still hold valid JSON
			lastErr = err
			continue
		}
		if env.XPlayerSettings != nil {
			return env.XPlayerSettings, nil
		}
		return &env.playerSettings, nil
	}
	return nil, media.NewParseError(pageURL, media.ErrNoEmbeddedConfig, lastErr)
}
