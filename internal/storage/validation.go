// Package storage provides the data persistence layer for the merkelapp application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eivindbakke/merkelapp/internal/model"
)

// Validation errors.
var (
	ErrNilContext            = errors.New("context cannot be nil")
	ErrEmptyString           = errors.New("string parameter cannot be empty")
	ErrNilParameter          = errors.New("parameter cannot be nil")
	ErrInvalidPhoto          = errors.New("invalid photo")
	ErrInvalidLabel          = errors.New("invalid label")
	ErrInvalidClassification = errors.New("invalid classification")
	ErrInvalidID             = errors.New("id must be positive")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateID ensures a numeric identifier is usable.
func validateID(id int64, paramName string) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidID, paramName)
	}
	return nil
}

// validatePhoto validates a photo before persistence.
func validatePhoto(photo *model.Photo) error {
	if photo == nil {
		return fmt.Errorf("%w: photo", ErrNilParameter)
	}
	if photo.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidPhoto)
	}
	if photo.AssetID == "" {
		return fmt.Errorf("%w: missing asset ID", ErrInvalidPhoto)
	}
	return nil
}

// validateLabel validates a label before persistence.
func validateLabel(label *model.Label) error {
	if label == nil {
		return fmt.Errorf("%w: label", ErrNilParameter)
	}
	if strings.TrimSpace(label.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidLabel)
	}
	if label.Category != "" && !label.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidLabel, label.Category)
	}
	if label.UsageCount < 0 {
		return fmt.Errorf("%w: negative usage count", ErrInvalidLabel)
	}
	return nil
}

// validateClassification validates a classification result before persistence.
func validateClassification(result *model.ClassificationResult) error {
	if result == nil {
		return fmt.Errorf("%w: classification", ErrNilParameter)
	}
	if result.PhotoID == "" {
		return fmt.Errorf("%w: missing photo ID", ErrInvalidClassification)
	}
	if result.Score < 0 || result.Score > 1 {
		return fmt.Errorf("%w: score must be between 0 and 1", ErrInvalidClassification)
	}
	return nil
}
