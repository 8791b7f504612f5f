// Package youtube provides a parser that turns a video URL into its
// caption transcript.
package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/parsers"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// ErrNoTranscript indicates the video has no caption track.
var ErrNoTranscript = errors.New("youtube: no transcript available")

const defaultWatchURL = "https://www.youtube.com/watch"

var captionTracksRe = regexp.MustCompile(`"captionTracks":(\[.*?\])`)

// captionTrack is one entry of the player's caption track list.
type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

// timedText is the timedtext XML document.
type timedText struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Text  string `xml:",chardata"`
	} `xml:"text"`
}

// Parser fetches the watch page, picks a caption track and flattens it.
type Parser struct {
	fetcher  driven.Fetcher
	watchURL string
	language string
}

// Option configures the parser.
type Option func(*Parser)

// WithLanguage sets the preferred caption language. Default "en".
func WithLanguage(lang string) Option {
	return func(p *Parser) { p.language = lang }
}

// WithWatchURL points the parser at another watch endpoint.
func WithWatchURL(u string) Option {
	return func(p *Parser) { p.watchURL = u }
}

// New creates a YouTube parser.
func New(fetcher driven.Fetcher, opts ...Option) *Parser {
	p := &Parser{
		fetcher:  fetcher,
		watchURL: defaultWatchURL,
		language: "en",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name identifies the parser in logs.
func (p *Parser) Name() string { return "youtube" }

// SourceTypes returns the source types this parser handles.
func (p *Parser) SourceTypes() []domain.SourceType {
	return []domain.SourceType{domain.SourceTypeYouTube}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 90
}

// Accepts takes video URLs without a body.
func (p *Parser) Accepts(in driven.ParseInput) bool {
	if p.fetcher == nil || in.HasBody() {
		return false
	}
	return VideoID(in.Source) != ""
}

// Parse returns one page holding the transcript.
func (p *Parser) Parse(ctx context.Context, in driven.ParseInput) ([]domain.Page, error) {
	if in.Source == "" {
		return nil, domain.ErrInvalidInput
	}
	id := VideoID(in.Source)
	if id == "" {
		return nil, fmt.Errorf("%w: not a video url: %s", domain.ErrInvalidInput, in.Source)
	}

	watch, err := p.fetcher.Fetch(ctx, p.watchURL+"?v="+url.QueryEscape(id))
	if err != nil {
		return nil, fmt.Errorf("youtube: watch page: %w", err)
	}

	track, err := p.pickTrack(watch.Body)
	if err != nil {
		return nil, err
	}

	captions, err := p.fetcher.Fetch(ctx, track.BaseURL)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyBody) {
			return nil, ErrNoTranscript
		}
		return nil, fmt.Errorf("youtube: captions: %w", err)
	}

	transcript, err := flattenTranscript(captions.Body)
	if err != nil {
		return nil, err
	}
	if transcript == "" {
		return nil, ErrNoTranscript
	}

	page := parsers.NewPage(in, videoTitle(watch.Body), transcript, "youtube")
	page.Metadata["video_id"] = id
	page.Metadata["language"] = track.LanguageCode
	return []domain.Page{page}, nil
}

// pickTrack prefers a manual track in the preferred language, then an
// automatic one, then the first track.
func (p *Parser) pickTrack(page []byte) (captionTrack, error) {
	m := captionTracksRe.FindSubmatch(page)
	if m == nil {
		return captionTrack{}, ErrNoTranscript
	}
	var tracks []captionTrack
	if err := json.Unmarshal(m[1], &tracks); err != nil || len(tracks) == 0 {
		return captionTrack{}, ErrNoTranscript
	}

	best := -1
	for i, t := range tracks {
		if !strings.HasPrefix(t.LanguageCode, p.language) {
			continue
		}
		if t.Kind != "asr" {
			best = i
			break
		}
		if best < 0 {
			best = i
		}
	}
	if best < 0 {
		best = 0
	}
	return tracks[best], nil
}

func flattenTranscript(data []byte) (string, error) {
	var doc timedText
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("youtube: captions: %w", err)
	}
	lines := make([]string, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		line := strings.Join(strings.Fields(html.UnescapeString(t.Text)), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func videoTitle(page []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return ""
	}
	if t, ok := doc.Find(`meta[name="title"]`).Attr("content"); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	if t, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	return strings.TrimSpace(strings.TrimSuffix(title, "- YouTube"))
}

// VideoID extracts the video ID from a watch, short, embed or youtu.be
// URL. It returns empty when the URL names no video.
func VideoID(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtu.be":
		return strings.Trim(u.Path, "/")
	case "youtube.com", "m.youtube.com":
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 && (parts[0] == "shorts" || parts[0] == "embed" || parts[0] == "live") {
			return parts[1]
		}
	}
	return ""
}
