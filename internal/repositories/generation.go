package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/desertthunder/promptlist/internal/models"
	"github.com/desertthunder/promptlist/internal/shared"
)

const generationsTable = "generated_playlists"

var generationColumns = []string{
	"id", "sequence", "playlist_id", "name", "description", "prompt",
	"mode", "selection_method", "track_count", "analysis_json", "created_at", "updated_at",
}

// GenerationRepository implements models.Repository[*models.GeneratedPlaylist].
type GenerationRepository struct {
	db *sql.DB
}

// NewGenerationRepository creates a new GenerationRepository with the given database connection
func NewGenerationRepository(db *sql.DB) *GenerationRepository {
	return &GenerationRepository{db: db}
}

// Save stores a finished generation. Failures wrap [shared.ErrPersistence].
func (r *GenerationRepository) Save(ctx context.Context, record *models.GeneratedPlaylist) error {
	if err := r.create(ctx, record); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}
	return nil
}

// Create inserts a new record with generated ID and sequence
func (r *GenerationRepository) Create(record *models.GeneratedPlaylist) error {
	return r.create(context.Background(), record)
}

func (r *GenerationRepository) create(ctx context.Context, record *models.GeneratedPlaylist) error {
	record.SetID(shared.GenerateID())
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, generationsTable)
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	record.SetSequence(sequence)

	analysis := record.AnalysisJSON()
	if analysis == "" {
		analysis = "{}"
	}

	query, args, err := sq.Insert(generationsTable).
		Columns(generationColumns...).
		Values(
			record.ID(),
			sequence,
			record.PlaylistID(),
			record.Name(),
			record.Description(),
			record.Prompt(),
			string(record.Mode()),
			record.SelectionMethod(),
			record.TrackCount(),
			analysis,
			record.CreatedAt(),
			record.UpdatedAt(),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert generation: %w", err)
	}
	return nil
}

// Get retrieves a record by ID
func (r *GenerationRepository) Get(id string) (*models.GeneratedPlaylist, error) {
	return r.getBy(sq.Eq{"id": id})
}

// GetByPlaylistID retrieves the most recent record for a catalog playlist
func (r *GenerationRepository) GetByPlaylistID(playlistID string) (*models.GeneratedPlaylist, error) {
	return r.getBy(sq.Eq{"playlist_id": playlistID})
}

func (r *GenerationRepository) getBy(pred sq.Eq) (*models.GeneratedPlaylist, error) {
	query, args, err := sq.Select(generationColumns...).
		From(generationsTable).
		Where(pred).
		OrderBy("sequence DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	record, err := scanGeneration(r.db.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: generation %v", shared.ErrNotFound, pred)
	}
	return record, err
}

// Update modifies the mutable fields of an existing record
func (r *GenerationRepository) Update(record *models.GeneratedPlaylist) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	record.SetUpdatedAt(now)

	query, args, err := sq.Update(generationsTable).
		Set("name", record.Name()).
		Set("description", record.Description()).
		Set("selection_method", record.SelectionMethod()).
		Set("track_count", record.TrackCount()).
		Set("analysis_json", record.AnalysisJSON()).
		Set("updated_at", now).
		Where(sq.Eq{"id": record.ID()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	return r.execOne(query, args, record.ID())
}

// Delete removes a record by ID
func (r *GenerationRepository) Delete(id string) error {
	query, args, err := sq.Delete(generationsTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}
	return r.execOne(query, args, id)
}

func (r *GenerationRepository) execOne(query string, args []any, id string) error {
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to write generation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: generation %s", shared.ErrNotFound, id)
	}
	return nil
}

// List retrieves records newest first.
//
// Supported criteria: "mode" (string), "playlist_id" (string), "limit" (int).
func (r *GenerationRepository) List(criteria map[string]any) ([]*models.GeneratedPlaylist, error) {
	builder := sq.Select(generationColumns...).From(generationsTable).OrderBy("sequence DESC")

	if mode, ok := criteria["mode"].(string); ok && mode != "" {
		builder = builder.Where(sq.Eq{"mode": mode})
	}
	if playlistID, ok := criteria["playlist_id"].(string); ok && playlistID != "" {
		builder = builder.Where(sq.Eq{"playlist_id": playlistID})
	}
	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	defer rows.Close()

	var records []*models.GeneratedPlaylist
	for rows.Next() {
		record, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGeneration(row scanner) (*models.GeneratedPlaylist, error) {
	var (
		id              string
		sequence        int
		playlistID      string
		name            string
		description     string
		prompt          string
		mode            string
		selectionMethod string
		trackCount      int
		analysisJSON    string
		createdAt       time.Time
		updatedAt       time.Time
	)

	err := row.Scan(&id, &sequence, &playlistID, &name, &description, &prompt,
		&mode, &selectionMethod, &trackCount, &analysisJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan generation: %w", err)
	}

	return models.RestoreGeneratedPlaylist(id, sequence, playlistID, name, description, prompt,
		models.ProcessingMode(mode), selectionMethod, trackCount, analysisJSON, createdAt, updatedAt), nil
}
