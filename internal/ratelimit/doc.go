// Package ratelimit throttles outbound AniDB requests to a single cadence.
//
// AniDB bans clients that exceed its request rate, so every download issued by
// the document cache passes through one shared Limiter. Waiters are served in
// arrival order and a cancelled wait never consumes a slot.
package ratelimit
