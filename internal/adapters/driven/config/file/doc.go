// Package file provides the TOML configuration store.
//
// Keys are dotted paths ("crawler.max_depth"). The file on disk uses
// ordinary TOML tables; the store flattens them on load and nests them
// again on save.
package file
