// Package model defines the core domain models used throughout the application.
package model

import (
	"strings"
	"time"
)

// PopularLabelThreshold is the usage count at which a label counts as popular.
const PopularLabelThreshold = 3

// LabelCategory groups labels by the kind of thing they describe.
type LabelCategory string

const (
	// CategoryObject covers generic physical objects.
	CategoryObject LabelCategory = "object"
	// CategoryPerson covers people.
	CategoryPerson LabelCategory = "person"
	// CategoryAnimal covers animals.
	CategoryAnimal LabelCategory = "animal"
	// CategoryFood covers food and drink.
	CategoryFood LabelCategory = "food"
	// CategoryVehicle covers vehicles.
	CategoryVehicle LabelCategory = "vehicle"
	// CategoryBuilding covers buildings and building features.
	CategoryBuilding LabelCategory = "building"
	// CategoryNature covers plants, landscapes, and weather.
	CategoryNature LabelCategory = "nature"
	// CategoryTechnology covers devices and electronics.
	CategoryTechnology LabelCategory = "technology"
	// CategoryPostal covers postal and package-delivery objects.
	CategoryPostal LabelCategory = "postal"
	// CategoryOther covers everything else.
	CategoryOther LabelCategory = "other"
)

// labelCategoryInfo holds the fixed display metadata for a category.
type labelCategoryInfo struct {
	displayName string
	color       string
}

var labelCategories = map[LabelCategory]labelCategoryInfo{
	CategoryObject:     {displayName: "Object", color: "#8E8E93"},
	CategoryPerson:     {displayName: "Person", color: "#FF9500"},
	CategoryAnimal:     {displayName: "Animal", color: "#34C759"},
	CategoryFood:       {displayName: "Food", color: "#FF3B30"},
	CategoryVehicle:    {displayName: "Vehicle", color: "#007AFF"},
	CategoryBuilding:   {displayName: "Building", color: "#A2845E"},
	CategoryNature:     {displayName: "Nature", color: "#30D158"},
	CategoryTechnology: {displayName: "Technology", color: "#5856D6"},
	CategoryPostal:     {displayName: "Postal", color: "#FF6B35"},
	CategoryOther:      {displayName: "Other", color: "#C7C7CC"},
}

// Valid reports whether the category is one of the known values.
func (c LabelCategory) Valid() bool {
	_, ok := labelCategories[c]
	return ok
}

// DisplayName returns the human-readable name for the category.
func (c LabelCategory) DisplayName() string {
	if info, ok := labelCategories[c]; ok {
		return info.displayName
	}
	return labelCategories[CategoryOther].displayName
}

// Color returns the hex color hint associated with the category.
func (c LabelCategory) Color() string {
	if info, ok := labelCategories[c]; ok {
		return info.color
	}
	return labelCategories[CategoryOther].color
}

// ParseLabelCategory converts user input into a LabelCategory,
// falling back to CategoryOther for unknown values.
func ParseLabelCategory(s string) LabelCategory {
	c := LabelCategory(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c
	}
	return CategoryOther
}

// Label represents a named tag attachable to photos.
//
// Names are stored normalized (lowercased, trimmed). Two rows sharing a
// normalized name can coexist; the ledger detects and merges such duplicates
// rather than the store rejecting them at insert time.
type Label struct {
	CreatedAt  time.Time
	Name       string
	Category   LabelCategory
	Color      string
	Source     LabelSource // set when the label is read through a photo link
	ID         int64
	UsageCount int
	RefCount   int // photos currently referencing this label, populated on fetch
}

// NormalizeLabelName canonicalizes a label name for storage and comparison.
func NormalizeLabelName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsUnused reports whether the label has no photo references and no recorded
// usage. Both conditions must hold; a mismatch means the bookkeeping drifted
// and the label is not safe to prune.
func (l *Label) IsUnused() bool {
	return l.RefCount == 0 && l.UsageCount == 0
}

// IsPopular reports whether the label's usage count meets the popularity
// threshold.
func (l *Label) IsPopular() bool {
	return l.UsageCount >= PopularLabelThreshold
}

// LabelStatistics summarizes the state of the label table.
type LabelStatistics struct {
	TotalLabels   int
	UsedLabels    int
	UnusedLabels  int
	PopularLabels int
}

// UnusedPercent returns the share of unused labels, guarding division by zero.
func (s LabelStatistics) UnusedPercent() float64 {
	if s.TotalLabels == 0 {
		return 0
	}
	return float64(s.UnusedLabels) / float64(s.TotalLabels) * 100
}

// PopularPercent returns the share of popular labels, guarding division by zero.
func (s LabelStatistics) PopularPercent() float64 {
	if s.TotalLabels == 0 {
		return 0
	}
	return float64(s.PopularLabels) / float64(s.TotalLabels) * 100
}

// CleanupResult reports the outcome of a full label cleanup run.
type CleanupResult struct {
	MergedLabels  int
	DeletedLabels int
}
