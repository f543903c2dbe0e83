package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/eivindbakke/merkelapp/internal/model"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateContext() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateString(t *testing.T) {
	tests := []struct {
		name      string
		str       string
		paramName string
		wantErr   bool
	}{
		{
			name:      "valid string",
			str:       "test",
			paramName: "param",
			wantErr:   false,
		},
		{
			name:      "empty string",
			str:       "",
			paramName: "param",
			wantErr:   true,
		},
		{
			name:      "whitespace only",
			str:       "   ",
			paramName: "param",
			wantErr:   true,
		},
		{
			name:      "string with spaces",
			str:       "  test  ",
			paramName: "param",
			wantErr:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateString(tt.str, tt.paramName)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), tt.paramName) {
				t.Errorf("validateString() error should contain param name %s, got %v", tt.paramName, err)
			}
		})
	}
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		id      int64
		wantErr bool
	}{
		{name: "positive id", id: 1, wantErr: false},
		{name: "zero id", id: 0, wantErr: true},
		{name: "negative id", id: -5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateID(tt.id, "labelID")
			if (err != nil) != tt.wantErr {
				t.Errorf("validateID() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePhoto(t *testing.T) {
	tests := []struct {
		photo   *model.Photo
		name    string
		wantErr bool
	}{
		{
			name:    "valid photo",
			photo:   &model.Photo{ID: "photo-1", AssetID: "asset-1"},
			wantErr: false,
		},
		{
			name:    "nil photo",
			photo:   nil,
			wantErr: true,
		},
		{
			name:    "missing id",
			photo:   &model.Photo{AssetID: "asset-1"},
			wantErr: true,
		},
		{
			name:    "missing asset id",
			photo:   &model.Photo{ID: "photo-1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePhoto(tt.photo)
			if (err != nil) != tt.wantErr {
				t.Errorf("validatePhoto() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateLabel(t *testing.T) {
	tests := []struct {
		label   *model.Label
		name    string
		wantErr bool
	}{
		{
			name:    "valid label",
			label:   &model.Label{Name: "pakke"},
			wantErr: false,
		},
		{
			name:    "valid label with category",
			label:   &model.Label{Name: "pakke", Category: model.CategoryPostal},
			wantErr: false,
		},
		{
			name:    "nil label",
			label:   nil,
			wantErr: true,
		},
		{
			name:    "empty name",
			label:   &model.Label{Name: "  "},
			wantErr: true,
		},
		{
			name:    "invalid category",
			label:   &model.Label{Name: "pakke", Category: "imaginary"},
			wantErr: true,
		},
		{
			name:    "negative usage count",
			label:   &model.Label{Name: "pakke", UsageCount: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateLabel(tt.label)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateLabel() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateClassification(t *testing.T) {
	tests := []struct {
		result  *model.ClassificationResult
		name    string
		wantErr bool
	}{
		{
			name:    "valid result",
			result:  &model.ClassificationResult{PhotoID: "photo-1", Score: 0.5},
			wantErr: false,
		},
		{
			name:    "zero score is valid",
			result:  &model.ClassificationResult{PhotoID: "photo-1", Score: 0.0},
			wantErr: false,
		},
		{
			name:    "full score is valid",
			result:  &model.ClassificationResult{PhotoID: "photo-1", Score: 1.0},
			wantErr: false,
		},
		{
			name:    "nil result",
			result:  nil,
			wantErr: true,
		},
		{
			name:    "missing photo id",
			result:  &model.ClassificationResult{Score: 0.5},
			wantErr: true,
		},
		{
			name:    "score out of range",
			result:  &model.ClassificationResult{PhotoID: "photo-1", Score: 1.01},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateClassification(tt.result)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateClassification() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
