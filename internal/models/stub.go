package models

import (
	"fmt"
	"time"
)

var _ Model = (*PersistedStub)(nil)

// PersistedStub is a [TrackStub] saved in the library.
//
// Only the seed is stored: stream URLs, covers and lyrics are resolved per session and never persisted.
type PersistedStub struct {
	id        string
	sequence  int
	stub      TrackStub
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewPersistedStub creates a PersistedStub with creation timestamps set to now.
func NewPersistedStub(sequence int, stub TrackStub) *PersistedStub {
	now := time.Now()
	return &PersistedStub{
		sequence:  sequence,
		stub:      stub,
		createdAt: now,
		updatedAt: now,
	}
}

func (p *PersistedStub) ID() string                { return p.id }
func (p *PersistedStub) Sequence() int             { return p.sequence }
func (p *PersistedStub) Stub() TrackStub           { return p.stub }
func (p *PersistedStub) CreatedAt() time.Time      { return p.createdAt }
func (p *PersistedStub) UpdatedAt() time.Time      { return p.updatedAt }
func (p *PersistedStub) DeletedAt() *time.Time     { return p.deletedAt }
func (p *PersistedStub) IsDeleted() bool           { return p.deletedAt != nil }
func (p *PersistedStub) SetID(id string)           { p.id = id }
func (p *PersistedStub) SetSequence(seq int)       { p.sequence = seq }
func (p *PersistedStub) SetStub(s TrackStub)       { p.stub = s }
func (p *PersistedStub) SetCreatedAt(t time.Time)  { p.createdAt = t }
func (p *PersistedStub) SetUpdatedAt(t time.Time)  { p.updatedAt = t }
func (p *PersistedStub) SetDeletedAt(t *time.Time) { p.deletedAt = t }

// Validate checks that the stub can be resolved later: it needs a supported source and a name, keyword or track id.
func (p *PersistedStub) Validate() error {
	if !p.stub.Source.Valid() {
		return fmt.Errorf("invalid source %q", p.stub.Source)
	}
	if p.stub.Name == "" && p.stub.Keyword == "" && p.stub.TrackID == "" {
		return fmt.Errorf("stub needs a name, keyword or track id")
	}
	if p.stub.Bitrate != 0 && !p.stub.Bitrate.Valid() {
		return fmt.Errorf("unsupported bitrate %d", p.stub.Bitrate)
	}
	return nil
}
