package github

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/logger"
	"github.com/custodia-labs/sercha-ingest/internal/parsers"
)

// MaxFileSize is the largest blob fetched from a tree.
const MaxFileSize = 1024 * 1024

// DefaultMaxFiles caps the number of files read from one repository.
const DefaultMaxFiles = 500

// Options controls which files of a tree become pages.
type Options struct {
	// MaxFiles caps the files read. Zero means DefaultMaxFiles.
	MaxFiles int

	// Include keeps only paths matching one of the globs. Empty keeps all.
	Include []string

	// Exclude drops paths matching any of the globs.
	Exclude []string
}

func (o Options) maxFiles() int {
	if o.MaxFiles <= 0 {
		return DefaultMaxFiles
	}
	return o.MaxFiles
}

// repoFile is a decoded text blob.
type repoFile struct {
	Path    string
	SHA     string
	Size    int
	Content string
}

// fetchFiles walks the tree at ref and returns the text files under
// prefix, in tree order.
func fetchFiles(ctx context.Context, client *Client, ref RepoRef, branch string, opts Options) ([]repoFile, error) {
	tree, err := client.GetTree(ctx, ref.Owner, ref.Repo, branch)
	if err != nil {
		return nil, err
	}

	prefix := strings.Trim(ref.Path, "/")
	limit := opts.maxFiles()
	files := make([]repoFile, 0, min(len(tree.Entries), limit))
	for _, entry := range tree.Entries {
		if len(files) >= limit {
			logger.Warn("github: %s/%s has more than %d files, stopping", ref.Owner, ref.Repo, limit)
			break
		}
		if entry.GetType() != "blob" {
			continue
		}

		path := entry.GetPath()
		if !underPrefix(path, prefix, ref.IsFile) {
			continue
		}
		if !matchesPatterns(path, opts.Include) || matchesAny(path, opts.Exclude) {
			continue
		}
		if isBinaryExtension(path) || entry.GetSize() > MaxFileSize {
			continue
		}

		data, err := client.GetBlob(ctx, ref.Owner, ref.Repo, entry.GetSHA())
		if err != nil {
			if ctx.Err() != nil {
				return files, ctx.Err()
			}
			if IsRateLimited(err) {
				return files, err
			}
			logger.Warn("github: skipping %s: %v", path, err)
			continue
		}
		if parsers.IsBinary(data) || strings.TrimSpace(string(data)) == "" {
			continue
		}

		files = append(files, repoFile{
			Path:    path,
			SHA:     entry.GetSHA(),
			Size:    entry.GetSize(),
			Content: parsers.NormalizeNewlines(string(data)),
		})
	}
	return files, nil
}

func underPrefix(path, prefix string, exact bool) bool {
	if prefix == "" {
		return true
	}
	if exact {
		return path == prefix
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// matchesPatterns checks if a path matches any of the glob patterns.
// An empty list matches everything.
func matchesPatterns(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	return matchesAny(path, patterns)
}

func matchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
		if matched, err := filepath.Match(pattern, path); err == nil && matched {
			return true
		}
	}
	return false
}

var binaryExts = map[string]bool{
	".exe": true, ".dll": true, ".so": true, ".dylib": true,
	".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".7z": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true, ".webp": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".bin": true, ".dat": true, ".db": true, ".sqlite": true,
	".pyc": true, ".pyo": true, ".class": true, ".o": true, ".a": true,
}

func isBinaryExtension(path string) bool {
	return binaryExts[strings.ToLower(filepath.Ext(path))]
}
