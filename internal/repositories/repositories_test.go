package repositories

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/lyrebird/internal/models"
	"github.com/desertthunder/lyrebird/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func blueBird() models.TrackStub {
	return models.TrackStub{
		Name:    "Blue Bird",
		Artist:  "Ikimono-gakari",
		Album:   "Single",
		Source:  models.Netease,
		TrackID: "100",
		PicID:   "p100",
		LyricID: "100",
		Bitrate: models.Bitrate320,
	}
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "stubs")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for a table without a sequence")
	}
}

func TestStubRepository(t *testing.T) {
	t.Run("Create & Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewStubRepository(db)
		stub := models.NewPersistedStub(0, blueBird())

		if err := repo.Create(stub); err != nil {
			t.Fatalf("failed to create stub: %v", err)
		}
		if stub.ID() == "" || stub.Sequence() != 1 || stub.Stub().ID != stub.ID() {
			t.Errorf("expected id and sequence to be set, got %q #%d", stub.ID(), stub.Sequence())
		}

		retrieved, err := repo.Get(stub.ID())
		if err != nil {
			t.Fatalf("failed to get stub: %v", err)
		}

		want := blueBird()
		want.ID = stub.ID()
		if retrieved.Stub() != want {
			t.Errorf("expected %+v, got %+v", want, retrieved.Stub())
		}
		if retrieved.CreatedAt().IsZero() || retrieved.IsDeleted() {
			t.Errorf("unexpected timestamps %v %v", retrieved.CreatedAt(), retrieved.DeletedAt())
		}
	})

	t.Run("GetBySourceTrackID", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewStubRepository(db)
		if err := repo.Create(models.NewPersistedStub(0, blueBird())); err != nil {
			t.Fatal(err)
		}

		got, err := repo.GetBySourceTrackID(models.Netease, "100")
		if err != nil || got.Stub().Name != "Blue Bird" {
			t.Errorf("expected stub, got %v (%v)", got, err)
		}
		if _, err := repo.GetBySourceTrackID(models.Kuwo, "100"); !errors.Is(err, ErrStubNotFound) {
			t.Errorf("expected ErrStubNotFound, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewStubRepository(db)
		stub := models.NewPersistedStub(0, blueBird())
		if err := repo.Create(stub); err != nil {
			t.Fatal(err)
		}

		s := stub.Stub()
		s.Bitrate = models.Bitrate999
		s.Keyword = "blue bird live"
		stub.SetStub(s)

		if err := repo.Update(stub); err != nil {
			t.Fatalf("failed to update stub: %v", err)
		}

		retrieved, err := repo.Get(stub.ID())
		if err != nil {
			t.Fatal(err)
		}
		if retrieved.Stub().Bitrate != models.Bitrate999 || retrieved.Stub().Keyword != "blue bird live" {
			t.Errorf("expected updated fields, got %+v", retrieved.Stub())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewStubRepository(db)
		stub := models.NewPersistedStub(0, blueBird())
		if err := repo.Create(stub); err != nil {
			t.Fatal(err)
		}

		if err := repo.Delete(stub.ID()); err != nil {
			t.Fatalf("failed to delete stub: %v", err)
		}
		if _, err := repo.Get(stub.ID()); !errors.Is(err, ErrStubNotFound) {
			t.Errorf("expected deleted stub to be hidden, got %v", err)
		}
		if err := repo.Delete(stub.ID()); !errors.Is(err, ErrStubNotFound) {
			t.Errorf("expected second delete to fail, got %v", err)
		}

		again := models.NewPersistedStub(0, blueBird())
		if err := repo.Create(again); err != nil {
			t.Errorf("expected a deleted track to be saveable again, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewStubRepository(db)
		stubs := []models.TrackStub{
			blueBird(),
			{Name: "Haruka", Artist: "YOASOBI", Source: models.Kuwo, TrackID: "7"},
			{Name: "Idol", Artist: "YOASOBI", Source: models.Netease, Keyword: "idol yoasobi"},
		}
		for _, s := range stubs {
			if err := repo.Create(models.NewPersistedStub(0, s)); err != nil {
				t.Fatalf("failed to create stub: %v", err)
			}
		}

		all, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list stubs: %v", err)
		}
		if len(all) != 3 || all[0].Stub().Name != "Blue Bird" || all[2].Sequence() != 3 {
			t.Errorf("expected 3 stubs in sequence order, got %d", len(all))
		}

		tc := []struct {
			name     string
			criteria map[string]any
			want     int
		}{
			{"by source string", map[string]any{"source": "netease"}, 2},
			{"by source value", map[string]any{"source": models.Kuwo}, 1},
			{"by artist", map[string]any{"name": "yoasobi"}, 2},
			{"combined", map[string]any{"source": models.Netease, "name": "idol"}, 1},
			{"no match", map[string]any{"name": "nothing"}, 0},
		}
		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				got, err := repo.List(tt.criteria)
				if err != nil {
					t.Fatal(err)
				}
				if len(got) != tt.want {
					t.Errorf("expected %d stubs, got %d", tt.want, len(got))
				}
			})
		}
	})

	t.Run("Save deduplicates catalog tracks", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewStubRepository(db)
		first, created, err := repo.Save(blueBird())
		if err != nil || !created {
			t.Fatalf("expected insert, got %v (%v)", created, err)
		}

		second, created, err := repo.Save(blueBird())
		if err != nil || created || second.ID() != first.ID() {
			t.Errorf("expected existing row, got %v %v (%v)", second, created, err)
		}

		noID := models.TrackStub{Name: "Untitled", Source: models.Joox}
		if _, created, _ := repo.Save(noID); !created {
			t.Error("expected stub without track id to be inserted")
		}
		if _, created, _ := repo.Save(noID); !created {
			t.Error("expected stubs without track id never to collide")
		}
	})

	t.Run("Save keeps caller IDs and replaces removed rows", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewStubRepository(db)
		stub := blueBird()
		stub.ID = "netease-100"

		saved, _, err := repo.Save(stub)
		if err != nil || saved.ID() != "netease-100" {
			t.Fatalf("expected caller ID to be kept, got %v (%v)", saved, err)
		}
		if err := repo.Delete("netease-100"); err != nil {
			t.Fatal(err)
		}

		again, created, err := repo.Save(stub)
		if err != nil || !created || again.ID() != "netease-100" {
			t.Errorf("expected removed track to be saved again, got %v %v (%v)", again, created, err)
		}
	})
}

func TestStubRepositoryErrors(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repo := NewStubRepository(db)

	tc := []struct {
		name string
		stub models.TrackStub
	}{
		{"invalid source", models.TrackStub{Name: "x", Source: "spotify"}},
		{"nothing to search", models.TrackStub{Source: models.Netease}},
		{"bad bitrate", models.TrackStub{Name: "x", Source: models.Netease, Bitrate: 256}},
	}
	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if err := repo.Create(models.NewPersistedStub(0, tt.stub)); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	t.Run("duplicate catalog track", func(t *testing.T) {
		if err := repo.Create(models.NewPersistedStub(0, blueBird())); err != nil {
			t.Fatal(err)
		}
		if err := repo.Create(models.NewPersistedStub(0, blueBird())); err == nil {
			t.Error("expected unique constraint violation")
		}
	})

	t.Run("update missing", func(t *testing.T) {
		stub := models.NewPersistedStub(0, blueBird())
		stub.SetID("missing")
		if err := repo.Update(stub); !errors.Is(err, ErrStubNotFound) {
			t.Errorf("expected ErrStubNotFound, got %v", err)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		if _, err := repo.Get("missing"); !errors.Is(err, ErrStubNotFound) {
			t.Errorf("expected ErrStubNotFound, got %v", err)
		}
	})
}
