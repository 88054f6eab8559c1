package codec

import (
	"errors"
	"fmt"
)

// ErrEmptyBuffer is returned when there is no data to decode
var ErrEmptyBuffer = errors.New("empty buffer")

// UnknownTagError is returned when the tag byte is not a known record kind.
// Callers probing arbitrary accounts can treat it as "not a SAS record"
// instead of a hard failure; see IsUnrecognized.
type UnknownTagError struct {
	Tag uint8
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("unknown record tag: %d", e.Tag)
}

// TruncatedRecordError reports a field that ran past the end of the buffer
type TruncatedRecordError struct {
	Tag    Tag
	Field  string
	Offset int
	Err    error
}

func (e *TruncatedRecordError) Error() string {
	return fmt.Sprintf("truncated %s record: field %s at offset %d: %v", e.Tag, e.Field, e.Offset, e.Err)
}

func (e *TruncatedRecordError) Unwrap() error {
	return e.Err
}

// InvalidUTF8Error reports a string field holding malformed UTF-8 (strict mode only)
type InvalidUTF8Error struct {
	Tag    Tag
	Field  string
	Offset int
}

func (e *InvalidUTF8Error) Error() string {
	return fmt.Sprintf("%s record: field %s at offset %d: %v", e.Tag, e.Field, e.Offset, ErrInvalidUTF8)
}

func (e *InvalidUTF8Error) Unwrap() error {
	return ErrInvalidUTF8
}

// IsUnrecognized reports whether err means the data is not a known record kind
func IsUnrecognized(err error) bool {
	var tagErr *UnknownTagError
	return errors.As(err, &tagErr)
}
