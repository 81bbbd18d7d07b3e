package query

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidArgument is wrapped by every error caused by a caller passing a
// value the query builders cannot serialize.
var ErrInvalidArgument = errors.New("invalid argument")

// SortOrder is the direction of a sort clause.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

func (o SortOrder) Valid() bool {
	return o == Asc || o == Desc
}

// ParseSortOrder accepts "asc" or "desc" in any case.
func ParseSortOrder(s string) (SortOrder, error) {
	o := SortOrder(strings.ToLower(strings.TrimSpace(s)))
	if !o.Valid() {
		return "", fmt.Errorf("%w: invalid sort order %q, expected %q or %q", ErrInvalidArgument, s, Asc, Desc)
	}
	return o, nil
}
