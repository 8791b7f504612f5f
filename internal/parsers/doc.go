// Package parsers holds the parser registry and helpers shared by the
// content parsers in its subpackages. Each subpackage turns one kind of
// resource into pages; parsers are registered at startup.
package parsers
