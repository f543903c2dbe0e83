package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eivindbakke/merkelapp/internal/model"
)

// AddPhotoLabel links a label to a photo, recording how the label was
// applied. Linking the same pair twice is a no-op.
func (s *SQLiteStorage) AddPhotoLabel(ctx context.Context, photoID string, labelID int64, source model.LabelSource) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(photoID, "photoID"); err != nil {
		return err
	}
	if err := validateID(labelID, "labelID"); err != nil {
		return err
	}
	return s.addPhotoLabelTx(ctx, s.db, photoID, labelID, source)
}

func (s *SQLiteStorage) addPhotoLabelTx(ctx context.Context, q queryable, photoID string, labelID int64, source model.LabelSource) error {
	if source == "" {
		source = model.SourceManual
	}

	_, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO photo_labels (photo_id, label_id, source)
		VALUES (?, ?, ?)
	`, photoID, labelID, string(source))
	if err != nil {
		return fmt.Errorf("failed to add photo label: %w", err)
	}

	return nil
}

// RemovePhotoLabel unlinks a label from a photo. Removing an absent link is a
// no-op.
func (s *SQLiteStorage) RemovePhotoLabel(ctx context.Context, photoID string, labelID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(photoID, "photoID"); err != nil {
		return err
	}
	if err := validateID(labelID, "labelID"); err != nil {
		return err
	}
	return s.removePhotoLabelTx(ctx, s.db, photoID, labelID)
}

func (s *SQLiteStorage) removePhotoLabelTx(ctx context.Context, q queryable, photoID string, labelID int64) error {
	_, err := q.ExecContext(ctx, `
		DELETE FROM photo_labels WHERE photo_id = ? AND label_id = ?
	`, photoID, labelID)
	if err != nil {
		return fmt.Errorf("failed to remove photo label: %w", err)
	}

	return nil
}

// GetPhotoLabels returns a photo's labels in application order, each carrying
// the source it was applied with.
func (s *SQLiteStorage) GetPhotoLabels(ctx context.Context, photoID string) ([]model.Label, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(photoID, "photoID"); err != nil {
		return nil, err
	}
	return s.getPhotoLabelsTx(ctx, s.db, photoID)
}

func (s *SQLiteStorage) getPhotoLabelsTx(ctx context.Context, q queryable, photoID string) ([]model.Label, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT l.id, l.name, l.category, l.color, l.usage_count, l.created_at, pl.source
		FROM photo_labels pl
		JOIN labels l ON l.id = pl.label_id
		WHERE pl.photo_id = ?
		ORDER BY pl.created_at, l.id
	`, photoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query photo labels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var labels []model.Label
	for rows.Next() {
		var label model.Label
		var category, source string
		var color sql.NullString

		err := rows.Scan(
			&label.ID,
			&label.Name,
			&category,
			&color,
			&label.UsageCount,
			&label.CreatedAt,
			&source,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo label: %w", err)
		}

		label.Category = model.LabelCategory(category)
		label.Source = model.LabelSource(source)
		if color.Valid {
			label.Color = color.String
		}

		labels = append(labels, label)
	}

	return labels, rows.Err()
}

// GetPhotoIDsForLabel lists every photo currently linked to the label.
func (s *SQLiteStorage) GetPhotoIDsForLabel(ctx context.Context, labelID int64) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(labelID, "labelID"); err != nil {
		return nil, err
	}
	return s.getPhotoIDsForLabelTx(ctx, s.db, labelID)
}

func (s *SQLiteStorage) getPhotoIDsForLabelTx(ctx context.Context, q queryable, labelID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT photo_id FROM photo_labels WHERE label_id = ? ORDER BY photo_id
	`, labelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query label photos: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var photoIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan photo id: %w", err)
		}
		photoIDs = append(photoIDs, id)
	}

	return photoIDs, rows.Err()
}

// RepointPhotoLabels moves every link from one label to another. Photos that
// already reference the target keep their existing link; the stale one is
// dropped so nothing is double-counted.
func (s *SQLiteStorage) RepointPhotoLabels(ctx context.Context, fromLabelID, toLabelID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(fromLabelID, "fromLabelID"); err != nil {
		return err
	}
	if err := validateID(toLabelID, "toLabelID"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.repointPhotoLabelsTx(ctx, tx, fromLabelID, toLabelID); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) repointPhotoLabelsTx(ctx context.Context, q queryable, fromLabelID, toLabelID int64) error {
	// Links whose photo already references the target collide on the
	// primary key and are skipped, then cleaned up below.
	if _, err := q.ExecContext(ctx, `
		UPDATE OR IGNORE photo_labels SET label_id = ? WHERE label_id = ?
	`, toLabelID, fromLabelID); err != nil {
		return fmt.Errorf("failed to repoint photo labels: %w", err)
	}

	if _, err := q.ExecContext(ctx, `
		DELETE FROM photo_labels WHERE label_id = ?
	`, fromLabelID); err != nil {
		return fmt.Errorf("failed to drop stale photo labels: %w", err)
	}

	s.labelCache.Flush()

	return nil
}
