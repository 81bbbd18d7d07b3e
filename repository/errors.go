package repository

import (
	"errors"
	"strings"
)

// ErrConfiguration is wrapped by errors caused by missing or invalid
// repository configuration. They are never logged.
var ErrConfiguration = errors.New("repository: configuration error")

// Operation kinds. Every transport failure is returned as an *OperationError
// whose Kind is one of these.
var (
	ErrReadOperation    = errors.New("read operation failed")
	ErrWriteOperation   = errors.New("write operation failed")
	ErrBulk             = errors.New("bulk operation failed")
	ErrDelete           = errors.New("delete failed")
	ErrUpdate           = errors.New("update failed")
	ErrUpsert           = errors.New("upsert failed")
	ErrDocumentNotFound = errors.New("document not found")
)

// ErrConsumed is yielded when a composite result sequence is ranged over a
// second time.
var ErrConsumed = errors.New("repository: composite results already consumed")

// OperationError carries the context of a failed repository operation. Both
// Kind and the transport error are reachable with errors.Is and errors.As.
type OperationError struct {
	Kind       error
	Operation  string
	Index      string
	ID         string
	Document   map[string]any
	Operations []any
	Query      any
	Err        error
}

func (e *OperationError) Error() string {
	var b strings.Builder
	b.WriteString("repository: ")
	b.WriteString(e.Operation)
	if e.Index != "" {
		b.WriteString(" ")
		b.WriteString(e.Index)
		if e.ID != "" {
			b.WriteString("/")
			b.WriteString(e.ID)
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *OperationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
