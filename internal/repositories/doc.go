// Package repositories implements SQLite persistence for the saved track library.
//
// [StubRepository] stores caller-supplied [models.TrackStub] seeds with soft deletes. Resolved stream URLs,
// covers and lyrics are never persisted. Sequence numbers give a stable listing order independent of the
// UUID primary keys; [NextSequence] increments the per-table counter kept in a dedicated sequence table.
package repositories
