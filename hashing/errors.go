package hashing

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every *ConfigurationError via errors.Is.
	ErrConfiguration = errors.New("invalid vectorizer configuration")
	// ErrInvalidUTF8 is returned for documents that are not valid UTF-8.
	ErrInvalidUTF8 = errors.New("document is not valid UTF-8")
	// ErrDocumentTooLarge is returned for documents above the configured byte limit.
	ErrDocumentTooLarge = errors.New("document exceeds size limit")
	// ErrShape is returned when a batch transform produces a matrix of the wrong shape.
	ErrShape = errors.New("unexpected feature matrix shape")
	// ErrTransformPanic is returned when a batch transform panics.
	ErrTransformPanic = errors.New("batch transform panicked")
)

// ConfigurationError reports an invalid construction parameter.
type ConfigurationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Is lets errors.Is(err, ErrConfiguration) match any configuration error.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// ExternalTransformError reports that the batch transform failed for one chunk.
type ExternalTransformError struct {
	Chunk  int // index of the chunk in split order
	Offset int // index of the chunk's first document in the input
	Size   int // number of documents in the chunk
	Err    error
}

func (e *ExternalTransformError) Error() string {
	return fmt.Sprintf("transform chunk %d (documents %d-%d): %v", e.Chunk, e.Offset, e.Offset+e.Size-1, e.Err)
}

func (e *ExternalTransformError) Unwrap() error {
	return e.Err
}
