// Package github provides a parser that walks a GitHub repository tree
// and returns one page per text file.
//
// Accepted URLs:
//
//	https://github.com/{owner}/{repo}
//	https://github.com/{owner}/{repo}/tree/{ref}/{dir}
//	https://github.com/{owner}/{repo}/blob/{ref}/{file}
//
// Requests go through go-github with a static token when one is
// configured. A token-bucket limiter throttles requests and the
// X-RateLimit-* headers pause the walk when the quota runs low.
package github
