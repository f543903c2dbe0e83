package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eivindbakke/merkelapp/internal/common"
	"github.com/eivindbakke/merkelapp/internal/model"

	cache "github.com/patrickmn/go-cache"
)

// CreateLabel inserts a new label record. Names are stored normalized, and a
// record with the same name may already exist; that is allowed and left for
// the ledger's duplicate handling.
func (s *SQLiteStorage) CreateLabel(ctx context.Context, label *model.Label) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateLabel(label); err != nil {
		return err
	}
	return s.createLabelTx(ctx, s.db, label)
}

func (s *SQLiteStorage) createLabelTx(ctx context.Context, q queryable, label *model.Label) error {
	label.Name = model.NormalizeLabelName(label.Name)
	if label.Category == "" {
		if category, ok := model.CommonLabels[label.Name]; ok {
			label.Category = category
		} else {
			label.Category = model.CategoryOther
		}
	}
	if label.Color == "" {
		label.Color = label.Category.Color()
	}
	if label.CreatedAt.IsZero() {
		label.CreatedAt = time.Now()
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO labels (name, category, color, usage_count, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, label.Name, string(label.Category), label.Color, label.UsageCount, label.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create label: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get label id: %w", err)
	}
	label.ID = id

	return nil
}

// GetOrCreateLabel returns the earliest record with the given name, creating
// one when none exists. This is the quick-add path used by import and
// analysis, so hits are served from the label cache.
func (s *SQLiteStorage) GetOrCreateLabel(ctx context.Context, name string, category model.LabelCategory) (*model.Label, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.getOrCreateLabelTx(ctx, s.db, name, category)
}

func (s *SQLiteStorage) getOrCreateLabelTx(ctx context.Context, q queryable, name string, category model.LabelCategory) (*model.Label, error) {
	normalized := model.NormalizeLabelName(name)
	if normalized == "" {
		return nil, fmt.Errorf("%w: name", ErrEmptyString)
	}

	if cached, found := s.labelCache.Get(normalized); found {
		label := cached.(model.Label)
		return &label, nil
	}

	label, err := s.getFirstLabelByNameTx(ctx, q, normalized)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	if label == nil {
		label = &model.Label{Name: normalized, Category: category}
		if err := s.createLabelTx(ctx, q, label); err != nil {
			return nil, err
		}
	}

	// Cache only outside explicit transactions so a rollback cannot leave
	// a phantom entry behind.
	if _, ok := q.(*sql.DB); ok {
		s.labelCache.Set(normalized, *label, cache.DefaultExpiration)
	}

	return label, nil
}

// getFirstLabelByNameTx returns the oldest record carrying the name.
func (s *SQLiteStorage) getFirstLabelByNameTx(ctx context.Context, q queryable, normalized string) (*model.Label, error) {
	row := q.QueryRowContext(ctx, `
		SELECT l.id, l.name, l.category, l.color, l.usage_count, l.created_at,
		       (SELECT COUNT(*) FROM photo_labels pl WHERE pl.label_id = l.id) AS ref_count
		FROM labels l
		WHERE l.name = ?
		ORDER BY l.created_at, l.id
		LIMIT 1
	`, normalized)

	label, err := scanLabel(row.Scan)
	if err != nil {
		return nil, err
	}
	return label, nil
}

// GetLabelByID retrieves a single label with its current reference count.
func (s *SQLiteStorage) GetLabelByID(ctx context.Context, id int64) (*model.Label, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(id, "id"); err != nil {
		return nil, err
	}
	return s.getLabelByIDTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getLabelByIDTx(ctx context.Context, q queryable, id int64) (*model.Label, error) {
	row := q.QueryRowContext(ctx, `
		SELECT l.id, l.name, l.category, l.color, l.usage_count, l.created_at,
		       (SELECT COUNT(*) FROM photo_labels pl WHERE pl.label_id = l.id) AS ref_count
		FROM labels l
		WHERE l.id = ?
	`, id)

	return scanLabel(row.Scan)
}

// GetLabelsByName returns every record sharing the normalized name, oldest
// first. More than one row means the name has duplicates.
func (s *SQLiteStorage) GetLabelsByName(ctx context.Context, name string) ([]model.Label, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.getLabelsByNameTx(ctx, s.db, name)
}

func (s *SQLiteStorage) getLabelsByNameTx(ctx context.Context, q queryable, name string) ([]model.Label, error) {
	normalized := model.NormalizeLabelName(name)

	rows, err := q.QueryContext(ctx, `
		SELECT l.id, l.name, l.category, l.color, l.usage_count, l.created_at,
		       (SELECT COUNT(*) FROM photo_labels pl WHERE pl.label_id = l.id) AS ref_count
		FROM labels l
		WHERE l.name = ?
		ORDER BY l.created_at, l.id
	`, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectLabels(rows)
}

// GetAllLabels retrieves every label with its current reference count.
func (s *SQLiteStorage) GetAllLabels(ctx context.Context) ([]model.Label, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getAllLabelsTx(ctx, s.db)
}

func (s *SQLiteStorage) getAllLabelsTx(ctx context.Context, q queryable) ([]model.Label, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT l.id, l.name, l.category, l.color, l.usage_count, l.created_at,
		       (SELECT COUNT(*) FROM photo_labels pl WHERE pl.label_id = l.id) AS ref_count
		FROM labels l
		ORDER BY l.name, l.created_at, l.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectLabels(rows)
}

// DeleteLabel removes a label record and any links still pointing at it.
func (s *SQLiteStorage) DeleteLabel(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "id"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.deleteLabelTx(ctx, tx, id); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) deleteLabelTx(ctx context.Context, q queryable, id int64) error {
	var name string
	err := q.QueryRowContext(ctx, `SELECT name FROM labels WHERE id = ?`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up label: %w", err)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM photo_labels WHERE label_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete label links: %w", err)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM labels WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete label: %w", err)
	}

	s.labelCache.Delete(name)

	return nil
}

// AdjustLabelUsage shifts a label's usage count by delta, floored at zero.
func (s *SQLiteStorage) AdjustLabelUsage(ctx context.Context, id int64, delta int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "id"); err != nil {
		return err
	}
	return s.adjustLabelUsageTx(ctx, s.db, id, delta)
}

func (s *SQLiteStorage) adjustLabelUsageTx(ctx context.Context, q queryable, id int64, delta int) error {
	result, err := q.ExecContext(ctx, `
		UPDATE labels SET usage_count = MAX(0, usage_count + ?) WHERE id = ?
	`, delta, id)
	if err != nil {
		return fmt.Errorf("failed to adjust label usage: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return common.ErrNotFound
	}

	s.invalidateLabelByID(ctx, q, id)

	return nil
}

// SetLabelUsage overwrites a label's usage count. Negative values clamp to
// zero.
func (s *SQLiteStorage) SetLabelUsage(ctx context.Context, id int64, usageCount int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "id"); err != nil {
		return err
	}
	return s.setLabelUsageTx(ctx, s.db, id, usageCount)
}

func (s *SQLiteStorage) setLabelUsageTx(ctx context.Context, q queryable, id int64, usageCount int) error {
	result, err := q.ExecContext(ctx, `
		UPDATE labels SET usage_count = MAX(0, ?) WHERE id = ?
	`, usageCount, id)
	if err != nil {
		return fmt.Errorf("failed to set label usage: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return common.ErrNotFound
	}

	s.invalidateLabelByID(ctx, q, id)

	return nil
}

// invalidateLabelByID drops the cache entry for the label's name, if any.
func (s *SQLiteStorage) invalidateLabelByID(ctx context.Context, q queryable, id int64) {
	var name string
	if err := q.QueryRowContext(ctx, `SELECT name FROM labels WHERE id = ?`, id).Scan(&name); err == nil {
		s.labelCache.Delete(name)
	}
}

// scanLabel reads one label row produced by the standard label column list.
func scanLabel(scan func(dest ...any) error) (*model.Label, error) {
	var label model.Label
	var category string
	var color sql.NullString

	err := scan(
		&label.ID,
		&label.Name,
		&category,
		&color,
		&label.UsageCount,
		&label.CreatedAt,
		&label.RefCount,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan label: %w", err)
	}

	label.Category = model.LabelCategory(category)
	if color.Valid {
		label.Color = color.String
	}

	return &label, nil
}

func collectLabels(rows *sql.Rows) ([]model.Label, error) {
	var labels []model.Label
	for rows.Next() {
		label, err := scanLabel(rows.Scan)
		if err != nil {
			return nil, err
		}
		labels = append(labels, *label)
	}

	return labels, rows.Err()
}

// queryable is an interface satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
