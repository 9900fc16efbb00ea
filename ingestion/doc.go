// Package ingestion turns raw document text into stored chunks and indexed
// vectors.
//
// The Pipeline type manages the ingestion workflow for documents:
//   - Splitting text into overlapping word windows (Chunker)
//   - Extracting date, author, and location attributes (MetadataExtractor)
//   - Generating embeddings concurrently on a worker pool
//   - Storing the document and chunks, and indexing the vectors
//
// All embeddings complete before the first store or index mutation, so a
// provider failure mid-ingest leaves existing state untouched.
package ingestion
