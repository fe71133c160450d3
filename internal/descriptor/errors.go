package descriptor

import "fmt"

// ParseError indicates a document is too malformed to yield a descriptor:
// no title or no numbered sections. Individual malformed bullets never
// produce a ParseError; they degrade to general validation points and are
// reported as warnings.
type ParseError struct {
	Path   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parsing descriptor: %s", e.Reason)
	}
	return fmt.Sprintf("parsing descriptor %s: %s", e.Path, e.Reason)
}

// Warning records a tolerated irregularity found while parsing.
type Warning struct {
	Message string `json:"message"`
	Snippet string `json:"snippet,omitempty"`
}

func (w Warning) String() string {
	if w.Snippet == "" {
		return w.Message
	}
	return fmt.Sprintf("%s: %q", w.Message, w.Snippet)
}
