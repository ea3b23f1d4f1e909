package anidb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shamal/internal/anidb/httpapi"
	"shamal/internal/anidb/identity"
	"shamal/internal/anidb/series"
	"shamal/internal/anidb/titles"
	"shamal/internal/doccache"
)

// DocumentError reports a cached AniDB document that could not be decoded.
type DocumentError struct {
	Kind     string
	SeriesID string
	Path     string
	Err      error
}

func (e *DocumentError) Error() string {
	if e.SeriesID != "" {
		return fmt.Sprintf("anidb %s document for series %s (%s): %v", e.Kind, e.SeriesID, e.Path, e.Err)
	}
	return fmt.Sprintf("anidb %s document (%s): %v", e.Kind, e.Path, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// wrapDocumentError converts package-level parse errors into DocumentError.
func wrapDocumentError(err error) error {
	var titleErr *titles.ParseError
	if errors.As(err, &titleErr) {
		return &DocumentError{Kind: "titles", Path: titleErr.Path, Err: titleErr.Err}
	}
	var seriesErr *series.ParseError
	if errors.As(err, &seriesErr) {
		return &DocumentError{Kind: "series", SeriesID: seriesErr.SeriesID, Path: seriesErr.Path, Err: seriesErr.Err}
	}
	return err
}

// isUnknownSeries reports AniDB's refusal for an id it does not know.
func isUnknownSeries(err error) bool {
	var apiErr *httpapi.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "not found") || strings.Contains(msg, "no such anime")
}

// Hint returns an operator-facing next step for err, or "" when none applies.
func Hint(err error) string {
	var (
		docErr   *DocumentError
		parseErr *identity.ParseError
		fetchErr *doccache.FetchError
		writeErr *doccache.WriteError
		apiErr   *httpapi.APIError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "the request timed out; raise anidb.request_timeout_seconds or retry later"
	case errors.As(err, &parseErr):
		return "episode identities look like 123:5, 123:S2 or 123:5-6"
	case errors.As(err, &docErr):
		return "the cached document is corrupt; run `shamal cache refresh` or delete " + docErr.Path
	case errors.As(err, &apiErr):
		return "AniDB refused the request; check anidb.client_name and slow down requests"
	case errors.As(err, &writeErr):
		return "check free space and permissions of " + writeErr.Path
	case errors.As(err, &fetchErr):
		return "check network access to AniDB; cached documents are used once available"
	case errors.Is(err, doccache.ErrInvalidKey):
		return "series ids are decimal AniDB ids"
	default:
		return ""
	}
}
