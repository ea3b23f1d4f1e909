package testsupport

import (
	"context"
	"errors"
	"sync"
)

// Fetcher is a scripted document source that records every request.
type Fetcher struct {
	mu        sync.Mutex
	responses map[string][]byte
	errs      map[string]error
	calls     map[string]int
}

// NewFetcher creates an empty fetcher. Unknown ids fail with ErrNotScripted.
func NewFetcher() *Fetcher {
	return &Fetcher{
		responses: make(map[string][]byte),
		errs:      make(map[string]error),
		calls:     make(map[string]int),
	}
}

// ErrNotScripted is returned for ids without a scripted response.
var ErrNotScripted = errors.New("testsupport: no scripted response")

// Set scripts the body returned for id.
func (f *Fetcher) Set(id, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[id] = []byte(body)
	delete(f.errs, id)
}

// Fail scripts an error for id.
func (f *Fetcher) Fail(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[id] = err
}

// Fetch implements the series fetcher signature.
func (f *Fetcher) Fetch(_ context.Context, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[id]++
	if err, ok := f.errs[id]; ok {
		return nil, err
	}
	body, ok := f.responses[id]
	if !ok {
		return nil, ErrNotScripted
	}
	return append([]byte(nil), body...), nil
}

// Calls returns how often id was requested.
func (f *Fetcher) Calls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

// TitlesID is the id under which FetchTitles looks up its script.
const TitlesID = "titles"

// FetchTitles returns the response scripted for TitlesID.
func (f *Fetcher) FetchTitles(ctx context.Context) ([]byte, error) {
	return f.Fetch(ctx, TitlesID)
}

// FetchSeries returns the response scripted for seriesID.
func (f *Fetcher) FetchSeries(ctx context.Context, seriesID string) ([]byte, error) {
	return f.Fetch(ctx, seriesID)
}
