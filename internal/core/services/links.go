package services

import (
	"net/url"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// admitLinks filters discovered links: non-http(s) schemes, excluded
// suffixes and domains, foreign hosts when SameHostOnly is set, and URLs
// already seen are dropped, then the rest are deduplicated by key.
func (s *crawlState) admitLinks(links []domain.Link) []domain.Link {
	batch := make(map[string]struct{}, len(links))
	admitted := make([]domain.Link, 0, len(links))

	for _, l := range links {
		u, err := url.Parse(l.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		host := strings.ToLower(u.Hostname())
		if s.opts.SameHostOnly && host != s.seedHost {
			continue
		}
		if hasExcludedSuffix(u.Path, s.opts.ExcludeURLTypes) || isExcludedDomain(host, s.opts.ExcludeURLDomains) {
			continue
		}

		key := normalizeURL(l.URL)
		if key == "" || s.isSeen(key) {
			continue
		}
		if _, dup := batch[key]; dup {
			continue
		}
		batch[key] = struct{}{}

		u.Fragment = ""
		admitted = append(admitted, domain.Link{URL: u.String(), Text: strings.TrimSpace(l.Text)})
	}
	return admitted
}

func hasExcludedSuffix(p string, suffixes []string) bool {
	p = strings.ToLower(p)
	for _, suffix := range suffixes {
		suffix = strings.ToLower(strings.TrimSpace(suffix))
		if suffix != "" && strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

// isExcludedDomain matches the host exactly or as a subdomain.
func isExcludedDomain(host string, domains []string) bool {
	for _, d := range domains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), ".")
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
