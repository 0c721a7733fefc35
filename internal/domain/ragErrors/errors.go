package ragErrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrStaleSnapshot = errors.New("index snapshot was replaced by a newer version")
)

// ExtractionError is terminal for the document being ingested.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
	}
	return "extraction failed: " + e.Reason
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingError covers a single embed call. Callers skip the text, they never substitute a vector.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string { return fmt.Sprintf("embedding failed: %v", e.Err) }

func (e *EmbeddingError) Unwrap() error { return e.Err }

// IndexCorruptError means the persisted vectors and metadata disagree; rebuild from the catalog.
type IndexCorruptError struct {
	Vectors int
	Records int
	Err     error
}

func (e *IndexCorruptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("index snapshot corrupt: %v", e.Err)
	}
	return fmt.Sprintf("index snapshot corrupt: %d vectors but %d metadata entries", e.Vectors, e.Records)
}

func (e *IndexCorruptError) Unwrap() error { return e.Err }

type RemoteUnavailableError struct {
	Op  string
	Err error
}

func (e *RemoteUnavailableError) Error() string {
	return fmt.Sprintf("remote unavailable during %s: %v", e.Op, e.Err)
}

func (e *RemoteUnavailableError) Unwrap() error { return e.Err }

// ClassificationError is returned when an intent or summary call to the language model fails.
type ClassificationError struct {
	Op  string
	Err error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

func IsIndexCorrupt(err error) bool {
	var target *IndexCorruptError
	return errors.As(err, &target)
}

func IsRemoteUnavailable(err error) bool {
	var target *RemoteUnavailableError
	return errors.As(err, &target)
}

func IsExtraction(err error) bool {
	var target *ExtractionError
	return errors.As(err, &target)
}
