package doccache

import (
	"errors"
	"fmt"
)

// ErrInvalidKey is returned for keys that cannot be mapped to a cache path.
var ErrInvalidKey = errors.New("invalid cache key")

// FetchError reports a failed fetch for a key that has no cached copy.
type FetchError struct {
	Key string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// WriteError reports a failure to persist a fetched document. Any previous
// copy is left in place.
type WriteError struct {
	Key  string
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s (%s): %v", e.Key, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
