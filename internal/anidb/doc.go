// Package anidb answers metadata queries against AniDB.
//
// A Provider ties together the document cache, the title catalog, the
// per-series document cache, and the episode helpers. Callers resolve a
// free-text name to a series id with ResolveSeriesID, then ask for series or
// episode records. Episode ranges such as "23:5-6" are merged into one record.
//
// Every network access goes through one rate limiter shared by all caches of
// a Provider. Construct a single Provider per process and pass it to the code
// that needs it.
package anidb
