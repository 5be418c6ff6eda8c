package sparse

import "errors"

var (
	// ErrInvalidPattern is returned when a pattern contains an embedded
	// newline.
	ErrInvalidPattern = errors.New("sparse: invalid pattern")

	// ErrUnsupportedConePattern is the warning logged when a cone-mode
	// pattern file holds a negative pattern outside the canonical
	// "!dir/*/" framing; the matcher then degrades to general matching for
	// that file rather than failing. Wildcard metacharacters in a cone
	// directory line are not detected: such a line is inserted as a literal
	// directory name.
	ErrUnsupportedConePattern = errors.New("sparse: unrecognized negative pattern")
)
