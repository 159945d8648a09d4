package binrec

import (
	"errors"
	"fmt"

	"github.com/hupe1980/binrec/internal/resource"
)

var (
	// ErrCorrupt is wrapped by every error reporting a damaged record stream.
	ErrCorrupt = errors.New("corrupt record stream")

	// ErrRecordTooLarge is returned when a record exceeds MaxRecordWords.
	ErrRecordTooLarge = errors.New("record too large")

	// ErrStringTooLong is returned when a string exceeds MaxStringLength
	// UTF-16 code units.
	ErrStringTooLong = errors.New("string too long")

	// ErrFieldOverrun is returned when a field is read past the end of the
	// current record.
	ErrFieldOverrun = errors.New("field read past end of record")

	// ErrInvalidType is returned when a record type or version exceeds MaxType.
	ErrInvalidType = errors.New("record type or version out of range")

	// ErrNoRecord is returned by CopyTo before a record was read.
	ErrNoRecord = errors.New("no record read")

	// ErrTooManyOpen is returned when a registry's open-file cap is reached.
	ErrTooManyOpen = resource.ErrTooManyOpen

	// ErrClosed is returned by operations on a closed file.
	ErrClosed = errors.New("record file closed")

	// ErrNotOpenForWrite is returned by write operations on an input file.
	ErrNotOpenForWrite = errors.New("record file not open for write")

	// ErrNotOpenForRead is returned by read operations on an output file.
	ErrNotOpenForRead = errors.New("record file not open for read")
)

// CorruptionError reports a header word whose eye-catcher does not match.
//
// The sentinel ErrCorrupt can be matched via errors.Is.
type CorruptionError struct {
	Name     string
	Expected uint16
	Actual   uint64
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("%s: record header must start with eye-catcher (%04X) %016X", e.Name, e.Expected, e.Actual)
}

func (e *CorruptionError) Unwrap() error { return ErrCorrupt }

// OpError reports an I/O failure of a record file.
//
// The original underlying error can be accessed via errors.Unwrap.
type OpError struct {
	Op   string
	Name string
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
