package workout

import "fmt"

// ParseError reports a source payload that lacks the minimum structure a
// normalizer needs (no tracks, sessions or points). It is never retried.
type ParseError struct {
	Source Source
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError wraps a parser failure for the given source.
func NewParseError(source Source, msg string, err error) *ParseError {
	return &ParseError{Source: source, Msg: msg, Err: err}
}

// ExtractionError reports that the vision/AI service returned no usable JSON
// or is unconfigured. It is surfaced to the caller as-is.
type ExtractionError struct {
	Msg string
	Err error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Msg, e.Err)
	}
	return "extraction failed: " + e.Msg
}

func (e *ExtractionError) Unwrap() error { return e.Err }
