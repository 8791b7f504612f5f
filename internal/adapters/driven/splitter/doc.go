// Package splitter provides the text splitters used by the preparer.
//
// The recursive and markdown methods come from langchaingo's textsplitter
// package. The window method cuts fixed rune windows and never looks at
// separators, which keeps its output predictable for tabular text.
package splitter
