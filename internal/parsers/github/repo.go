package github

import (
	"fmt"
	"net/url"
	"strings"
)

// RepoRef names a repository and an optional ref and path within it.
type RepoRef struct {
	Owner string
	Repo  string

	// Ref is a branch, tag or SHA. Empty means the default branch.
	Ref string

	// Path restricts the walk to a directory, or to one file when IsFile.
	Path   string
	IsFile bool
}

// ParseRepoURL parses a github.com repository URL.
func ParseRepoURL(raw string) (RepoRef, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return RepoRef{}, fmt.Errorf("%w: %v", ErrNotRepository, err)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host != "github.com" {
		return RepoRef{}, fmt.Errorf("%w: host %q", ErrNotRepository, u.Hostname())
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return RepoRef{}, fmt.Errorf("%w: %s", ErrNotRepository, raw)
	}

	ref := RepoRef{
		Owner: parts[0],
		Repo:  strings.TrimSuffix(parts[1], ".git"),
	}
	if len(parts) >= 4 && (parts[2] == "tree" || parts[2] == "blob") {
		ref.Ref = parts[3]
		ref.Path = strings.Join(parts[4:], "/")
		ref.IsFile = parts[2] == "blob" && ref.Path != ""
	}
	return ref, nil
}

// FileURL returns the browser URL of a file at ref.
func (r RepoRef) FileURL(ref, path string) string {
	return fmt.Sprintf("https://github.com/%s/%s/blob/%s/%s", r.Owner, r.Repo, ref, path)
}
