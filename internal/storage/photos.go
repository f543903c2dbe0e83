package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eivindbakke/merkelapp/internal/common"
	"github.com/eivindbakke/merkelapp/internal/model"
	"github.com/eivindbakke/merkelapp/internal/service"
)

// SavePhoto inserts a photo or updates it in place. The creation timestamp of
// an existing row is preserved.
func (s *SQLiteStorage) SavePhoto(ctx context.Context, photo *model.Photo) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePhoto(photo); err != nil {
		return err
	}
	return s.savePhotoTx(ctx, s.db, photo)
}

func (s *SQLiteStorage) savePhotoTx(ctx context.Context, q queryable, photo *model.Photo) error {
	if photo.CreatedAt.IsZero() {
		photo.CreatedAt = time.Now()
	}

	analyzedAt := sql.NullTime{Time: photo.AnalyzedAt, Valid: !photo.AnalyzedAt.IsZero()}
	analysis := sql.NullString{String: string(photo.Analysis), Valid: len(photo.Analysis) > 0}

	_, err := q.ExecContext(ctx, `
		INSERT INTO photos (id, asset_id, created_at, analyzed, analyzed_at, analysis, thumbnail)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			asset_id = excluded.asset_id,
			analyzed = excluded.analyzed,
			analyzed_at = excluded.analyzed_at,
			analysis = excluded.analysis,
			thumbnail = excluded.thumbnail
	`, photo.ID, photo.AssetID, photo.CreatedAt, photo.Analyzed, analyzedAt, analysis, photo.Thumbnail)

	if err != nil {
		return fmt.Errorf("failed to save photo: %w", err)
	}

	return nil
}

// GetPhotoByID retrieves a photo with its thumbnail and raw analysis.
func (s *SQLiteStorage) GetPhotoByID(ctx context.Context, id string) (*model.Photo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getPhotoByIDTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getPhotoByIDTx(ctx context.Context, q queryable, id string) (*model.Photo, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, asset_id, created_at, analyzed, analyzed_at, analysis, thumbnail
		FROM photos
		WHERE id = ?
	`, id)
	return scanPhoto(row)
}

// GetPhotoByAssetID retrieves a photo by its source asset identifier.
func (s *SQLiteStorage) GetPhotoByAssetID(ctx context.Context, assetID string) (*model.Photo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(assetID, "assetID"); err != nil {
		return nil, err
	}
	return s.getPhotoByAssetIDTx(ctx, s.db, assetID)
}

func (s *SQLiteStorage) getPhotoByAssetIDTx(ctx context.Context, q queryable, assetID string) (*model.Photo, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, asset_id, created_at, analyzed, analyzed_at, analysis, thumbnail
		FROM photos
		WHERE asset_id = ?
	`, assetID)
	return scanPhoto(row)
}

func scanPhoto(row *sql.Row) (*model.Photo, error) {
	var photo model.Photo
	var analyzedAt sql.NullTime
	var analysis sql.NullString

	err := row.Scan(
		&photo.ID,
		&photo.AssetID,
		&photo.CreatedAt,
		&photo.Analyzed,
		&analyzedAt,
		&analysis,
		&photo.Thumbnail,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}

	if analyzedAt.Valid {
		photo.AnalyzedAt = analyzedAt.Time
	}
	if analysis.Valid {
		photo.Analysis = []byte(analysis.String)
	}

	return &photo, nil
}

// GetPhotos lists photos matching the filter. Thumbnails are omitted from
// list results; fetch a single photo to get its thumbnail.
func (s *SQLiteStorage) GetPhotos(ctx context.Context, filter service.PhotoFilter) ([]model.Photo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getPhotosTx(ctx, s.db, filter)
}

func (s *SQLiteStorage) getPhotosTx(ctx context.Context, q queryable, filter service.PhotoFilter) ([]model.Photo, error) {
	query := `
		SELECT p.id, p.asset_id, p.created_at, p.analyzed, p.analyzed_at, p.analysis
		FROM photos p`
	var conditions []string
	var args []any

	if filter.MinScore != nil {
		query += ` JOIN classifications c ON c.photo_id = p.id`
		conditions = append(conditions, "c.score >= ?")
		args = append(args, *filter.MinScore)
	}
	if filter.Analyzed != nil {
		conditions = append(conditions, "p.analyzed = ?")
		args = append(args, *filter.Analyzed)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY p.created_at DESC, p.id"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query photos: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var photos []model.Photo
	for rows.Next() {
		var photo model.Photo
		var analyzedAt sql.NullTime
		var analysis sql.NullString

		err := rows.Scan(
			&photo.ID,
			&photo.AssetID,
			&photo.CreatedAt,
			&photo.Analyzed,
			&analyzedAt,
			&analysis,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}

		if analyzedAt.Valid {
			photo.AnalyzedAt = analyzedAt.Time
		}
		if analysis.Valid {
			photo.Analysis = []byte(analysis.String)
		}

		photos = append(photos, photo)
	}

	return photos, rows.Err()
}

// DeletePhoto removes a photo along with its label links and classification.
func (s *SQLiteStorage) DeletePhoto(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.deletePhotoTx(ctx, tx, id); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) deletePhotoTx(ctx context.Context, q queryable, id string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM photo_labels WHERE photo_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete photo labels: %w", err)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM classifications WHERE photo_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete photo classification: %w", err)
	}

	result, err := q.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return common.ErrNotFound
	}

	return nil
}

// MarkPhotoAnalyzed records a completed analysis run for a photo.
func (s *SQLiteStorage) MarkPhotoAnalyzed(ctx context.Context, id string, analysis []byte, analyzedAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return s.markPhotoAnalyzedTx(ctx, s.db, id, analysis, analyzedAt)
}

func (s *SQLiteStorage) markPhotoAnalyzedTx(ctx context.Context, q queryable, id string, analysis []byte, analyzedAt time.Time) error {
	if analyzedAt.IsZero() {
		analyzedAt = time.Now()
	}

	raw := sql.NullString{String: string(analysis), Valid: len(analysis) > 0}

	result, err := q.ExecContext(ctx, `
		UPDATE photos
		SET analyzed = 1, analyzed_at = ?, analysis = ?
		WHERE id = ?
	`, analyzedAt, raw, id)
	if err != nil {
		return fmt.Errorf("failed to mark photo analyzed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return common.ErrNotFound
	}

	return nil
}

// CountPhotos returns the total number of photos in the library.
func (s *SQLiteStorage) CountPhotos(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return s.countPhotosTx(ctx, s.db)
}

func (s *SQLiteStorage) countPhotosTx(ctx context.Context, q queryable) (int, error) {
	var count int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM photos`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count photos: %w", err)
	}
	return count, nil
}
