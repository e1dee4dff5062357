package sender

import (
	"errors"
	"fmt"
)

var (
	ErrStreamCorrupted  = errors.New("stream corrupted")
	ErrChunkedSeparator = fmt.Errorf("%w: chunked separator not found", ErrStreamCorrupted)
	ErrChunkSize        = fmt.Errorf("%w: invalid chunk size", ErrStreamCorrupted)
	ErrChunkOverflow    = fmt.Errorf("%w: chunk exceeds remaining data", ErrStreamCorrupted)

	ErrNoHeaderBoundary = errors.New("response header separator not found")
	ErrProtocolConflict = errors.New("pseudo-header found after an HTTP/1.1 request line")
)

// TemplateError reports a required request field the template did not provide.
type TemplateError struct {
	Field  string
	Source string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("%s not present: %s", e.Field, e.Source)
}

// UnsupportedCharsetError is returned when a content-type names a charset
// that has no known decoder.
type UnsupportedCharsetError struct {
	Charset string
}

func (e *UnsupportedCharsetError) Error() string {
	return fmt.Sprintf("unsupported charset: %s", e.Charset)
}
