// Package flagstore keeps the current set of flag definitions in memory.
//
// The Store reads a Fetcher (the HTTP transport or a local file source), publishes
// each result as an immutable flags.Snapshot behind an atomic pointer, and refreshes
// it from a background poller. Evaluation never blocks on the network except for the
// cold start, where the first callers of Await share a single fetch.
//
// Refreshes are fail-open: an error keeps the previous snapshot. A not-modified
// answer (matching ETag) keeps the pointer unchanged. An optional Persister stores
// every new snapshot and serves as a fallback when the cold-start fetch fails.
package flagstore
