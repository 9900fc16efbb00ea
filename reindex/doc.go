// Package reindex re-embeds every stored chunk and rebuilds the vector
// index, typically after switching embedding models.
//
// Chunks are processed in batches. Each embedding call is retried with
// exponential backoff, and a checkpoint is saved after every stored batch so
// an interrupted run can be detected on the next attempt. When the new
// model's vector dimension differs from the index's, the index is cleared
// before the first batch is written; until then the existing index stays
// intact and searchable.
//
// Progress reporting is pluggable through the Progress interface. Tracker
// writes human-readable progress lines to a writer, and NopProgress discards
// updates for callers that do not report.
package reindex
