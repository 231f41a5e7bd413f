package sv20

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Error classes. Every error returned by this package that stems from the
// input bytes carries exactly one of these marks; test with errors.Is from
// github.com/cockroachdb/errors.
var (
	// ErrFormat is attached to failures detected before any instruction is
	// decoded: a bad magic tag or a short header.
	ErrFormat = errors.New("sv20 format error")

	// ErrStructural is attached to failures inside the instruction stream.
	ErrStructural = errors.New("sv20 structural error")
)

var (
	ErrInvalidMagic    = errors.New("invalid Sv20 script magic")
	ErrTruncatedHeader = errors.New("script header is truncated")
	ErrBadInstruction  = errors.New("instruction tag is not 1")
	ErrUnknownOpcode   = errors.New("unknown opcode")
	ErrTruncated       = errors.New("stream ends inside an instruction")
)

// DecodeError locates a structural failure in the stream.
type DecodeError struct {
	Offset int64 // byte offset of the word that could not be decoded
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%08X: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func formatError(err error) error {
	return errors.Mark(err, ErrFormat)
}

func structuralError(offset int64, err error) error {
	return &DecodeError{Offset: offset, Err: errors.Mark(err, ErrStructural)}
}
