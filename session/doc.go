// Package session keeps loaded indices warm in memory and answers
// queries against them.
//
// A Session is the single scoring path shared by the daemon and the cold
// CLI path: it validates the query, embeds it once, selects the target
// indices, and delegates ranking to the search package. Reload swaps the
// loaded set atomically so long-running daemons pick up rebuilt indices
// without dropping in-flight searches.
//
// Scoped queries over directories no index covers fall back to a live
// scan when a Scanner is configured, trading latency for freshness.
package session
