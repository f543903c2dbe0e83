package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eivindbakke/merkelapp/internal/common"
	"github.com/eivindbakke/merkelapp/internal/model"
)

// SaveClassification upserts the scoring result for a photo. A photo keeps at
// most one result; rescoring overwrites it in place.
func (s *SQLiteStorage) SaveClassification(ctx context.Context, result *model.ClassificationResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateClassification(result); err != nil {
		return err
	}
	return s.saveClassificationTx(ctx, s.db, result)
}

func (s *SQLiteStorage) saveClassificationTx(ctx context.Context, q queryable, result *model.ClassificationResult) error {
	if result.ComputedAt.IsZero() {
		result.ComputedAt = time.Now()
	}

	labelsJSON, err := json.Marshal(result.Labels)
	if err != nil {
		return fmt.Errorf("failed to marshal classification labels: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO classifications (photo_id, asset_id, score, labels, reasoning, computed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(photo_id) DO UPDATE SET
			asset_id = excluded.asset_id,
			score = excluded.score,
			labels = excluded.labels,
			reasoning = excluded.reasoning,
			computed_at = excluded.computed_at
	`,
		result.PhotoID,
		result.AssetID,
		result.Score,
		string(labelsJSON),
		result.Reasoning,
		result.ComputedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save classification: %w", err)
	}

	return nil
}

// GetClassification retrieves the scoring result for a photo.
func (s *SQLiteStorage) GetClassification(ctx context.Context, photoID string) (*model.ClassificationResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(photoID, "photoID"); err != nil {
		return nil, err
	}
	return s.getClassificationTx(ctx, s.db, photoID)
}

func (s *SQLiteStorage) getClassificationTx(ctx context.Context, q queryable, photoID string) (*model.ClassificationResult, error) {
	row := q.QueryRowContext(ctx, `
		SELECT photo_id, asset_id, score, labels, reasoning, computed_at
		FROM classifications
		WHERE photo_id = ?
	`, photoID)

	result, err := scanClassification(row.Scan)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetClassifications retrieves every stored scoring result, newest first.
func (s *SQLiteStorage) GetClassifications(ctx context.Context) ([]model.ClassificationResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getClassificationsTx(ctx, s.db)
}

func (s *SQLiteStorage) getClassificationsTx(ctx context.Context, q queryable) ([]model.ClassificationResult, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT photo_id, asset_id, score, labels, reasoning, computed_at
		FROM classifications
		ORDER BY computed_at DESC, photo_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query classifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []model.ClassificationResult
	for rows.Next() {
		result, err := scanClassification(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}

	return results, rows.Err()
}

func scanClassification(scan func(dest ...any) error) (*model.ClassificationResult, error) {
	var result model.ClassificationResult
	var labelsJSON sql.NullString
	var reasoning sql.NullString

	err := scan(
		&result.PhotoID,
		&result.AssetID,
		&result.Score,
		&labelsJSON,
		&reasoning,
		&result.ComputedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan classification: %w", err)
	}

	if labelsJSON.Valid && labelsJSON.String != "" {
		if err := json.Unmarshal([]byte(labelsJSON.String), &result.Labels); err != nil {
			return nil, fmt.Errorf("failed to unmarshal classification labels: %w", err)
		}
	}
	result.Reasoning = reasoning.String

	return &result, nil
}
