package dataset

import "fmt"

// SourceNotFoundError reports that a source path does not resolve to a
// readable file.
type SourceNotFoundError struct {
	Path string
	Err  error
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("source not found: %s: %v", e.Path, e.Err)
}

func (e *SourceNotFoundError) Unwrap() error { return e.Err }

// ParseError reports content that is not well-formed tabular data.
// Line is 1-based; zero means the position is unknown.
type ParseError struct {
	Source string
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s: line %d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
