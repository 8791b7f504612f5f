// Package html provides a parser for web pages and the link extractor
// the crawler uses to discover the next pages.
package html
