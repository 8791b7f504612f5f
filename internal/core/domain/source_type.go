package domain

import (
	"net/url"
	"path"
	"strings"
)

const unknownDescription = "Unknown"

// SourceType identifies how a resource is parsed into pages.
// The set is closed; parsers register against these values.
type SourceType string

// Available source types.
const (
	SourceTypeWeb     SourceType = "web"
	SourceTypePDF     SourceType = "pdf"
	SourceTypeDOCX    SourceType = "docx"
	SourceTypeCSV     SourceType = "csv"
	SourceTypeMD      SourceType = "md"
	SourceTypeTXT     SourceType = "txt"
	SourceTypeAudio   SourceType = "audio"
	SourceTypeImage   SourceType = "image"
	SourceTypeGitHub  SourceType = "github"
	SourceTypeYouTube SourceType = "youtube"
)

// AllSourceTypes returns every supported source type.
func AllSourceTypes() []SourceType {
	return []SourceType{
		SourceTypeWeb,
		SourceTypePDF,
		SourceTypeDOCX,
		SourceTypeCSV,
		SourceTypeMD,
		SourceTypeTXT,
		SourceTypeAudio,
		SourceTypeImage,
		SourceTypeGitHub,
		SourceTypeYouTube,
	}
}

// IsValid returns true if the source type is recognised.
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTypeWeb, SourceTypePDF, SourceTypeDOCX, SourceTypeCSV, SourceTypeMD,
		SourceTypeTXT, SourceTypeAudio, SourceTypeImage, SourceTypeGitHub, SourceTypeYouTube:
		return true
	default:
		return false
	}
}

// IsWebCrawlable returns true if resources of this type take part in
// breadth-first traversal.
func (s SourceType) IsWebCrawlable() bool {
	return s == SourceTypeWeb || s == SourceTypeTXT || s == SourceTypeMD
}

// IsRemoteExtracted returns true if URL resources of this type are handed
// to the out-of-process extraction service.
func (s SourceType) IsRemoteExtracted() bool {
	return s == SourceTypePDF || s == SourceTypeDOCX || s == SourceTypeCSV
}

// String returns the string representation.
func (s SourceType) String() string {
	return string(s)
}

// Description returns a human-readable description of the source type.
func (s SourceType) Description() string {
	switch s {
	case SourceTypeWeb:
		return "Web page (HTML)"
	case SourceTypePDF:
		return "PDF document"
	case SourceTypeDOCX:
		return "Word document"
	case SourceTypeCSV:
		return "CSV table"
	case SourceTypeMD:
		return "Markdown"
	case SourceTypeTXT:
		return "Plain text"
	case SourceTypeAudio:
		return "Audio (transcribed)"
	case SourceTypeImage:
		return "Image (OCR)"
	case SourceTypeGitHub:
		return "GitHub repository"
	case SourceTypeYouTube:
		return "YouTube transcript"
	default:
		return unknownDescription
	}
}

// ParseSourceType converts a user-supplied string into a SourceType.
// Matching is case-insensitive and accepts a few common aliases.
func ParseSourceType(s string) (SourceType, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "html", "website", "url":
		return SourceTypeWeb, nil
	case "word", "doc":
		return SourceTypeDOCX, nil
	case "markdown", "mdx":
		return SourceTypeMD, nil
	case "text", "plaintext":
		return SourceTypeTXT, nil
	}
	st := SourceType(v)
	if !st.IsValid() {
		return "", ErrUnsupportedType
	}
	return st, nil
}

var extensionTypes = map[string]SourceType{
	".pdf":      SourceTypePDF,
	".docx":     SourceTypeDOCX,
	".csv":      SourceTypeCSV,
	".md":       SourceTypeMD,
	".mdx":      SourceTypeMD,
	".markdown": SourceTypeMD,
	".txt":      SourceTypeTXT,
	".mp3":      SourceTypeAudio,
	".wav":      SourceTypeAudio,
	".m4a":      SourceTypeAudio,
	".ogg":      SourceTypeAudio,
	".flac":     SourceTypeAudio,
	".png":      SourceTypeImage,
	".jpg":      SourceTypeImage,
	".jpeg":     SourceTypeImage,
	".gif":      SourceTypeImage,
	".webp":     SourceTypeImage,
	".htm":      SourceTypeWeb,
	".html":     SourceTypeWeb,
}

// TypeForExtension returns the source type registered for a file
// extension (including the dot), or false if none is.
func TypeForExtension(ext string) (SourceType, bool) {
	st, ok := extensionTypes[strings.ToLower(ext)]
	return st, ok
}

// InferSourceType guesses a source type from a URL or file name.
// Repository and video hosts win over extensions; anything else
// defaults to web.
func InferSourceType(location string) SourceType {
	p := location
	if u, err := url.Parse(location); err == nil && u.Host != "" {
		host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		switch host {
		case "github.com":
			return SourceTypeGitHub
		case "youtube.com", "m.youtube.com", "youtu.be":
			return SourceTypeYouTube
		}
		p = u.Path
	}
	if st, ok := TypeForExtension(path.Ext(p)); ok {
		return st
	}
	return SourceTypeWeb
}
