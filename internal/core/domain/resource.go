package domain

import "fmt"

// FileBlob is an in-memory file handed to the crawler instead of a URL.
type FileBlob struct {
	// Name is the original file name, used for titles and type inference.
	Name string

	// MIMEType is the declared content type, if known.
	MIMEType string

	// Data is the raw file content.
	Data []byte
}

// Resource is a crawl target: either a URL or an in-memory file.
// Exactly one of URL and File is set. Immutable once enqueued.
type Resource struct {
	URL  string
	File *FileBlob
}

// URLResource returns a resource pointing at a URL.
func URLResource(u string) Resource {
	return Resource{URL: u}
}

// FileResource returns a resource wrapping an in-memory file.
func FileResource(name, mimeType string, data []byte) Resource {
	return Resource{File: &FileBlob{Name: name, MIMEType: mimeType, Data: data}}
}

// IsFile returns true if the resource is an in-memory file.
func (r Resource) IsFile() bool {
	return r.File != nil
}

// Location returns the URL, or a file:// pseudo-URL for blobs.
func (r Resource) Location() string {
	if r.File != nil {
		return "file://" + r.File.Name
	}
	return r.URL
}

// Validate checks that exactly one of URL and File is set.
func (r Resource) Validate() error {
	switch {
	case r.URL == "" && r.File == nil:
		return fmt.Errorf("%w: resource has neither url nor file", ErrInvalidInput)
	case r.URL != "" && r.File != nil:
		return fmt.Errorf("%w: resource has both url and file", ErrInvalidInput)
	case r.File != nil && len(r.File.Data) == 0:
		return fmt.Errorf("%w: file %q is empty", ErrInvalidInput, r.File.Name)
	}
	return nil
}

// QueueItem is a resource waiting in the crawl queue.
// Created on discovery, consumed once, never mutated.
type QueueItem struct {
	// Title is the anchor text or seed title, if any.
	Title string

	// Resource is the crawl target.
	Resource Resource

	// SourceType selects the parser.
	SourceType SourceType

	// Depth is the number of link hops from the seed.
	Depth int
}
