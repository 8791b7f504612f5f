package parsers

import (
	"bytes"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// NewPage builds a page for in with the given title and content. The
// caller's title wins over a title found in the content; the source
// location is the fallback.
func NewPage(in driven.ParseInput, title, content, format string) domain.Page {
	if in.Title != "" {
		title = in.Title
	}
	if strings.TrimSpace(title) == "" {
		title = TitleFromSource(in.Source)
	}
	meta := map[string]any{}
	if format != "" {
		meta["format"] = format
	}
	if in.ContentType != "" {
		meta["mime_type"] = in.ContentType
	}
	return domain.Page{
		Source:     in.Source,
		SourceType: in.SourceType,
		Title:      strings.TrimSpace(title),
		Content:    content,
		Metadata:   meta,
	}
}

// TitleFromSource derives a readable title from a URL or file location:
// the last path element without extension, with separators as spaces.
// A URL with no path yields its host.
func TitleFromSource(source string) string {
	name := source
	if rest, ok := strings.CutPrefix(source, "file://"); ok {
		name = rest
	} else if u, err := url.Parse(source); err == nil && u.Scheme != "" {
		p := strings.TrimRight(u.Path, "/")
		if p == "" {
			if u.Host != "" {
				return u.Host
			}
			p = u.Opaque
		}
		name = p
	}

	filename := path.Base(name)
	if ext := path.Ext(filename); ext != "" && ext != filename {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return strings.TrimSpace(filename)
}

// NormalizeNewlines converts CRLF and CR line endings to LF.
func NormalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// IsBinary reports whether data looks like binary content: a NUL byte
// in the first 8KB or invalid UTF-8.
func IsBinary(data []byte) bool {
	head := data
	truncated := len(head) > 8192
	if truncated {
		head = head[:8192]
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return true
	}
	if truncated {
		head = trimPartialRune(head)
	}
	return !utf8.Valid(head)
}

// trimPartialRune drops a rune cut at the end of a truncated prefix.
func trimPartialRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		r, size := utf8.DecodeLastRune(b)
		if r != utf8.RuneError || size != 1 {
			return b
		}
		b = b[:len(b)-1]
	}
	return b
}
