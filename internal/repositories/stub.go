package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/lyrebird/internal/models"
	"github.com/desertthunder/lyrebird/internal/shared"
)

// ErrStubNotFound is returned when no live row matches.
var ErrStubNotFound = fmt.Errorf("stub not found")

var _ models.Repository[*models.PersistedStub] = (*StubRepository)(nil)

const stubColumns = `id, sequence, name, artist, album, source, keyword, track_id, pic_id, lyric_id, bitrate, created_at, updated_at, deleted_at`

// StubRepository implements models.Repository[*models.PersistedStub] for the saved library.
//
// Rows are soft deleted; a (source, track_id) pair is unique among live rows when the track id is known.
type StubRepository struct {
	db *sql.DB
}

// NewStubRepository creates a new StubRepository with the given database connection
func NewStubRepository(db *sql.DB) *StubRepository {
	return &StubRepository{db: db}
}

// Create inserts stub under its own ID (generated when empty) with the next sequence number
func (r *StubRepository) Create(stub *models.PersistedStub) error {
	if err := stub.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "stubs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	s := stub.Stub()
	id := s.ID
	if id == "" {
		id = shared.GenerateID()
	}

	query := `
		INSERT INTO stubs (id, sequence, name, artist, album, source, keyword, track_id, pic_id, lyric_id, bitrate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		s.Name,
		s.Artist,
		s.Album,
		string(s.Source),
		s.Keyword,
		s.TrackID,
		s.PicID,
		s.LyricID,
		int(s.Bitrate),
		stub.CreatedAt(),
		stub.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert stub: %w", err)
	}

	stub.SetID(id)
	stub.SetSequence(sequence)
	s.ID = id
	stub.SetStub(s)
	return nil
}

// Get retrieves a stub by ID, excluding soft-deleted rows
func (r *StubRepository) Get(id string) (*models.PersistedStub, error) {
	query := `SELECT ` + stubColumns + ` FROM stubs WHERE id = ? AND deleted_at IS NULL`
	return scanStub(r.db.QueryRow(query, id))
}

// GetBySourceTrackID retrieves the live stub saved for a catalog track
func (r *StubRepository) GetBySourceTrackID(src models.Source, trackID string) (*models.PersistedStub, error) {
	query := `SELECT ` + stubColumns + ` FROM stubs WHERE source = ? AND track_id = ? AND deleted_at IS NULL`
	return scanStub(r.db.QueryRow(query, string(src), trackID))
}

// Update rewrites the stub's fields and bumps updated_at
func (r *StubRepository) Update(stub *models.PersistedStub) error {
	if err := stub.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	s := stub.Stub()

	query := `
		UPDATE stubs
		SET name = ?, artist = ?, album = ?, source = ?, keyword = ?, track_id = ?, pic_id = ?, lyric_id = ?, bitrate = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		s.Name,
		s.Artist,
		s.Album,
		string(s.Source),
		s.Keyword,
		s.TrackID,
		s.PicID,
		s.LyricID,
		int(s.Bitrate),
		now,
		stub.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update stub: %w", err)
	}

	if err := expectRow(result, stub.ID()); err != nil {
		return err
	}
	stub.SetUpdatedAt(now)
	return nil
}

// Delete soft-deletes a stub by ID
func (r *StubRepository) Delete(id string) error {
	query := `UPDATE stubs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete stub: %w", err)
	}
	return expectRow(result, id)
}

// List retrieves live stubs in sequence order. Supported criteria: "source" (string or [models.Source]) and
// "name" (case-insensitive substring of name or artist).
func (r *StubRepository) List(criteria map[string]any) ([]*models.PersistedStub, error) {
	query := `SELECT ` + stubColumns + ` FROM stubs WHERE deleted_at IS NULL`
	args := []any{}

	switch src := criteria["source"].(type) {
	case string:
		if src != "" {
			query += " AND source = ?"
			args = append(args, src)
		}
	case models.Source:
		if src != "" {
			query += " AND source = ?"
			args = append(args, string(src))
		}
	}

	if name, ok := criteria["name"].(string); ok && strings.TrimSpace(name) != "" {
		query += " AND (name LIKE ? OR artist LIKE ?)"
		pattern := "%" + strings.TrimSpace(name) + "%"
		args = append(args, pattern, pattern)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stubs: %w", err)
	}
	defer rows.Close()

	var stubs []*models.PersistedStub
	for rows.Next() {
		stub, err := scanStub(rows)
		if err != nil {
			return nil, err
		}
		stubs = append(stubs, stub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return stubs, nil
}

// Save stores stub unless a live row already holds the same catalog track, in which case that row is
// returned. A removed row with the same ID is replaced. created reports whether a row was inserted.
func (r *StubRepository) Save(stub models.TrackStub) (saved *models.PersistedStub, created bool, err error) {
	if stub.TrackID != "" {
		existing, err := r.GetBySourceTrackID(stub.Source, stub.TrackID)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, ErrStubNotFound) {
			return nil, false, err
		}
	}

	if stub.ID != "" {
		if _, err := r.db.Exec(`DELETE FROM stubs WHERE id = ? AND deleted_at IS NOT NULL`, stub.ID); err != nil {
			return nil, false, fmt.Errorf("failed to purge removed stub: %w", err)
		}
	}

	p := models.NewPersistedStub(0, stub)
	if err := r.Create(p); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			existing, getErr := r.GetBySourceTrackID(stub.Source, stub.TrackID)
			if getErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}
	return p, true, nil
}

// scanStub scans one row of [stubColumns] into a [models.PersistedStub]
func scanStub(row scanner) (*models.PersistedStub, error) {
	var (
		id        string
		sequence  int
		s         models.TrackStub
		source    string
		bitrate   int
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &s.Name, &s.Artist, &s.Album, &source, &s.Keyword, &s.TrackID, &s.PicID, &s.LyricID, &bitrate, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStubNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan stub: %w", err)
	}

	s.ID = id
	s.Source = models.Source(source)
	s.Bitrate = models.Bitrate(bitrate)

	stub := models.NewPersistedStub(sequence, s)
	stub.SetID(id)
	stub.SetCreatedAt(createdAt)
	stub.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		stub.SetDeletedAt(&deletedAt.Time)
	}

	return stub, nil
}
