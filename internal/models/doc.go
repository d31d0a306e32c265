// Package models defines the value types shared by the resolver, player and library layers.
//
// The package contains three categories of types:
//
// 1. Track values: what callers hand in and what resolution produces
//   - [TrackStub] : caller-supplied seed (name/artist hint or catalog ids)
//   - [ResolvedTrack] : stub plus stream URL, cover, lyrics and file size
//   - [Source], [Bitrate] : catalog backend and quality tier
//
// 2. Catalog wire types: JSON shapes returned by the remote catalog
//   - [SearchItem] with [FlexString] ids and [Artists] that accept strings or arrays
//   - [StreamInfo], [CoverInfo], [LyricPayload]
//
// 3. Persistent entities: database-backed stubs with lifecycle management
//   - [PersistedStub] : saved stub with sequence, timestamps and soft delete
//
// Persistent entities implement the [Model] interface and are accessed through [Repository].
package models
