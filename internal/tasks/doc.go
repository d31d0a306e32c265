// Package tasks runs bulk operations over the saved library with real-time progress reporting.
//
// # Core Operations
//
// [LibraryEngine] provides three operations:
//
//  1. [LibraryEngine.BulkResolve] : Resolve a batch of stubs
//     - Fans the stubs out to a bounded worker pool
//     - Paces job starts with a token bucket (golang.org/x/time/rate)
//     - Returns per-stub results in input order
//
//  2. [LibraryEngine.Check] : Resolve every saved stub
//     - Lists the library through a [StubLister]
//     - Runs [LibraryEngine.BulkResolve] over the listing
//
//  3. [LibraryEngine.Export] : Write the library to disk
//     - csv, markdown, txt or json via the formatter package
//     - Markdown exports can embed the first track's cover
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking; a nil channel disables reporting.
package tasks
