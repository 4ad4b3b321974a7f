package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/promptlist/internal/models"
	"github.com/desertthunder/promptlist/internal/shared"
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

func newRecord(playlistID string, mode models.ProcessingMode) *models.GeneratedPlaylist {
	record := models.NewGeneratedPlaylist(playlistID, "AI Playlist: "+playlistID, "upbeat workout songs", mode)
	record.SetSelectionMethod("ai_features")
	record.SetTrackCount(20)
	record.SetAnalysisJSON(`{"genres":["electronic"]}`)
	return record
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "generated_playlists")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for unknown table")
	}
}

func TestGenerationRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Save", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewGenerationRepository(db)
		record := newRecord("pl1", models.ModeQuick)

		if err := repo.Save(ctx, record); err != nil {
			t.Fatalf("failed to save record: %v", err)
		}
		if record.ID() == "" {
			t.Error("record ID should be set after creation")
		}
		if record.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", record.Sequence())
		}
	})

	t.Run("Save rejects invalid records", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewGenerationRepository(db)
		record := models.NewGeneratedPlaylist("", "name", "", models.ModeQuick)

		err := repo.Save(ctx, record)
		if !errors.Is(err, shared.ErrPersistence) {
			t.Errorf("expected ErrPersistence, got %v", err)
		}
	})

	t.Run("Save wraps database errors", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGenerationRepository(db)
		db.Close()

		if err := repo.Save(ctx, newRecord("pl1", models.ModeQuick)); !errors.Is(err, shared.ErrPersistence) {
			t.Errorf("expected ErrPersistence, got %v", err)
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewGenerationRepository(db)
		record := newRecord("pl1", models.ModeStandard)
		if err := repo.Create(record); err != nil {
			t.Fatalf("failed to create record: %v", err)
		}

		retrieved, err := repo.Get(record.ID())
		if err != nil {
			t.Fatalf("failed to get record: %v", err)
		}

		if retrieved.PlaylistID() != "pl1" || retrieved.Mode() != models.ModeStandard {
			t.Errorf("unexpected record %s/%s", retrieved.PlaylistID(), retrieved.Mode())
		}
		if retrieved.TrackCount() != 20 || retrieved.SelectionMethod() != "ai_features" {
			t.Errorf("unexpected counts %d/%s", retrieved.TrackCount(), retrieved.SelectionMethod())
		}
		if retrieved.AnalysisJSON() != `{"genres":["electronic"]}` {
			t.Errorf("unexpected analysis %s", retrieved.AnalysisJSON())
		}
		if retrieved.CreatedAt().IsZero() {
			t.Error("expected created_at to round trip")
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, err := NewGenerationRepository(db).Get("nope")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("GetByPlaylistID returns the latest", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewGenerationRepository(db)
		first := newRecord("pl1", models.ModeQuick)
		second := newRecord("pl1", models.ModeComplete)
		for _, r := range []*models.GeneratedPlaylist{first, second} {
			if err := repo.Create(r); err != nil {
				t.Fatalf("failed to create record: %v", err)
			}
		}

		got, err := repo.GetByPlaylistID("pl1")
		if err != nil {
			t.Fatalf("failed to get record: %v", err)
		}
		if got.ID() != second.ID() {
			t.Errorf("expected latest record %s, got %s", second.ID(), got.ID())
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewGenerationRepository(db)
		record := newRecord("pl1", models.ModeQuick)
		if err := repo.Create(record); err != nil {
			t.Fatalf("failed to create record: %v", err)
		}

		record.SetName("Renamed")
		record.SetTrackCount(5)
		if err := repo.Update(record); err != nil {
			t.Fatalf("failed to update record: %v", err)
		}

		retrieved, err := repo.Get(record.ID())
		if err != nil {
			t.Fatalf("failed to get record: %v", err)
		}
		if retrieved.Name() != "Renamed" || retrieved.TrackCount() != 5 {
			t.Errorf("update not persisted: %s/%d", retrieved.Name(), retrieved.TrackCount())
		}
	})

	t.Run("Update missing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		record := newRecord("pl1", models.ModeQuick)
		record.SetID("ghost")
		if err := NewGenerationRepository(db).Update(record); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewGenerationRepository(db)
		record := newRecord("pl1", models.ModeQuick)
		if err := repo.Create(record); err != nil {
			t.Fatalf("failed to create record: %v", err)
		}

		if err := repo.Delete(record.ID()); err != nil {
			t.Fatalf("failed to delete record: %v", err)
		}
		if _, err := repo.Get(record.ID()); err == nil {
			t.Error("expected deleted record to be gone")
		}
		if err := repo.Delete(record.ID()); err == nil {
			t.Error("expected error deleting twice")
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewGenerationRepository(db)
		for _, r := range []*models.GeneratedPlaylist{
			newRecord("pl1", models.ModeQuick),
			newRecord("pl2", models.ModeStandard),
			newRecord("pl3", models.ModeQuick),
		} {
			if err := repo.Create(r); err != nil {
				t.Fatalf("failed to create record: %v", err)
			}
		}

		tests := []struct {
			name     string
			criteria map[string]any
			want     []string
		}{
			{"all newest first", map[string]any{}, []string{"pl3", "pl2", "pl1"}},
			{"by mode", map[string]any{"mode": "quick"}, []string{"pl3", "pl1"}},
			{"by playlist", map[string]any{"playlist_id": "pl2"}, []string{"pl2"}},
			{"limited", map[string]any{"limit": 2}, []string{"pl3", "pl2"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				records, err := repo.List(tt.criteria)
				if err != nil {
					t.Fatalf("failed to list records: %v", err)
				}
				if len(records) != len(tt.want) {
					t.Fatalf("expected %d records, got %d", len(tt.want), len(records))
				}
				for i, r := range records {
					if r.PlaylistID() != tt.want[i] {
						t.Errorf("expected %s at %d, got %s", tt.want[i], i, r.PlaylistID())
					}
				}
			})
		}
	})
}

var _ models.Repository[*models.GeneratedPlaylist] = (*GenerationRepository)(nil)
