// Package main hosts the Shamal CLI entrypoint and command graph.
//
// The Cobra command tree resolves anime names to AniDB series ids, prints
// series and episode metadata, encodes and decodes episode identities, and
// maintains the on-disk AniDB document cache. Configuration, logging and the
// AniDB provider are built once per invocation by commandContext so
// subcommands only deal with presentation.
package main
