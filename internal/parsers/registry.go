package parsers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ParserRegistry = (*Registry)(nil)

// Registry maps source types to parsers ordered by priority.
// Adding a content type is a Register call.
type Registry struct {
	mu      sync.RWMutex
	parsers map[domain.SourceType][]driven.Parser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		parsers: make(map[domain.SourceType][]driven.Parser),
	}
}

// Register adds a parser under each of its source types. Parsers with
// equal priority keep registration order.
func (r *Registry) Register(p driven.Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, st := range p.SourceTypes() {
		list := append(r.parsers[st], p)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.parsers[st] = list
	}
}

// Resolve returns the highest-priority parser that accepts in.
func (r *Registry) Resolve(in driven.ParseInput) (driven.Parser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.parsers[in.SourceType] {
		if p.Accepts(in) {
			return p, nil
		}
	}
	shape := "url"
	if in.HasBody() {
		shape = "body"
	}
	return nil, fmt.Errorf("%w: no parser for %s (%s)", domain.ErrUnsupportedType, in.SourceType, shape)
}

// SourceTypes returns the types with at least one parser, in the
// canonical order of domain.AllSourceTypes.
func (r *Registry) SourceTypes() []domain.SourceType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var types []domain.SourceType
	for _, st := range domain.AllSourceTypes() {
		if len(r.parsers[st]) > 0 {
			types = append(types, st)
		}
	}
	return types
}

// Parsers returns the parsers registered for a type, highest priority first.
func (r *Registry) Parsers(st domain.SourceType) []driven.Parser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]driven.Parser(nil), r.parsers[st]...)
}
