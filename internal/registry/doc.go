// Package registry tracks the archives a host has opened, in SQLite.
//
// Each mounted archive gets one row keyed by path, carrying the payload
// digest and the manifest fields staleness checks and directory listings
// need, so hosts can answer "what is mounted and is it current" without
// re-reading every container. Rows are cache entries, not sources of
// truth: the archive file always wins, and the lifecycle controller
// invalidates a row whenever it swaps the file underneath.
//
// SQLite runs in WAL mode so readers never block on a concurrent
// registration.
package registry
