package splitter

import "github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"

// Ensure Window implements the interface.
var _ driven.Splitter = (*Window)(nil)

// DefaultChunkSize is the default number of runes per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping runes.
const DefaultChunkOverlap = 200

// Window splits text into fixed-size rune windows.
type Window struct {
	chunkSize int
	overlap   int
}

// Option configures the window splitter.
type Option func(*Window)

// WithChunkSize sets the chunk size in runes.
func WithChunkSize(size int) Option {
	return func(w *Window) {
		if size > 0 {
			w.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in runes.
func WithOverlap(overlap int) Option {
	return func(w *Window) {
		if overlap >= 0 {
			w.overlap = overlap
		}
	}
}

// NewWindow creates a window splitter with the given options.
func NewWindow(opts ...Option) *Window {
	w := &Window{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(w)
	}

	// Overlap must leave room to advance.
	if w.overlap >= w.chunkSize {
		w.overlap = w.chunkSize / 4
	}
	return w
}

// SplitText cuts text into windows of chunkSize runes, each starting
// chunkSize-overlap runes after the previous one. The last window may be
// shorter and is dropped when it lies entirely inside its predecessor.
func (w *Window) SplitText(text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	step := w.chunkSize - w.overlap
	chunks := make([]string, 0, len(runes)/step+1)

	for start := 0; start < len(runes); start += step {
		end := min(start+w.chunkSize, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
