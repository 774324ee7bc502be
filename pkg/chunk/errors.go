package chunk

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("chunk not found")
	ErrUnrecognizedNaming = errors.New("unrecognized chunk naming")
	ErrNoChunksFound      = errors.New("no chunks found")
	ErrAmbiguousOrdering  = errors.New("ambiguous chunk ordering")
	ErrIO                 = errors.New("i/o failure")
	ErrDigest             = errors.New("digest failure")
	ErrOutputExists       = errors.New("output already exists")
	ErrOutputIsChunk      = errors.New("output path is one of the chunks")
	ErrAborted            = errors.New("aborted")
	ErrInvalidOptions     = errors.New("invalid options")
)

// Error describes a combine failure and the chunk being processed when it
// happened. Index is -1 when no chunk was involved.
type Error struct {
	Op    string
	Index int
	Name  string
	Kind  error
	Err   error
}

func (e *Error) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s chunk %d (%s): %v: %v", e.Op, e.Index+1, e.Name, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.Kind }

func chunkErr(op string, index int, name string, kind, err error) *Error {
	return &Error{Op: op, Index: index, Name: name, Kind: kind, Err: err}
}

// Code is a coarse error class used for exit statuses and log fields.
type Code string

const (
	CodeUnknown   Code = "unknown"
	CodeNotFound  Code = "not_found"
	CodeNaming    Code = "naming"
	CodeNoChunks  Code = "no_chunks"
	CodeAmbiguous Code = "ambiguous"
	CodeIO        Code = "io"
	CodeDigest    Code = "digest"
	CodeExists    Code = "exists"
	CodeAborted   Code = "aborted"
	CodeCancel    Code = "cancel"
	CodeInvalid   Code = "invalid"
)

// Classify maps err to a Code using sentinels only.
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeUnknown
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancel
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUnrecognizedNaming):
		return CodeNaming
	case errors.Is(err, ErrNoChunksFound):
		return CodeNoChunks
	case errors.Is(err, ErrAmbiguousOrdering):
		return CodeAmbiguous
	case errors.Is(err, ErrDigest):
		return CodeDigest
	case errors.Is(err, ErrIO):
		return CodeIO
	case errors.Is(err, ErrOutputExists), errors.Is(err, ErrOutputIsChunk):
		return CodeExists
	case errors.Is(err, ErrAborted):
		return CodeAborted
	case errors.Is(err, ErrInvalidOptions):
		return CodeInvalid
	default:
		return CodeUnknown
	}
}
