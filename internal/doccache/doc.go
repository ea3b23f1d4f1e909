// Package doccache stores remote documents on disk and refetches them once
// they fall outside a freshness window.
//
// A Cache maps slash-separated keys onto files below its base directory. The
// file modification time is the only freshness baseline, so the cache survives
// restarts without a side database. Refreshes for one key are collapsed in
// process with singleflight and serialised across processes with a flock held
// on "<path>.lock". Every outbound fetch first takes a slot from the shared
// ratelimit.Limiter and then waits the configured politeness delay.
//
// When a refetch fails and a previous copy exists, the stale copy is served
// and a warning is logged. Writes go through a temp file in the target
// directory followed by rename, so readers never see partial documents.
package doccache
