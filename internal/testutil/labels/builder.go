// Package labels provides test infrastructure for seeding label data.
// It offers a fluent, type-safe API for creating test labels, ensuring
// proper cleanup, and maintaining test isolation.
//
// Example usage:
//
//	seeded := labels.NewBuilder(t).
//		WithVocabulary().
//		WithLabel("hund").
//		Build(ctx, store)
package labels

import (
	"context"
	"fmt"
	"testing"

	"github.com/eivindbakke/merkelapp/internal/model"
	"github.com/eivindbakke/merkelapp/internal/service"
)

// Builder provides a fluent interface for constructing test labels.
type Builder interface {
	// WithLabel adds a single label to the builder.
	WithLabel(name LabelName) Builder

	// WithLabels adds multiple labels to the builder.
	WithLabels(names ...LabelName) Builder

	// WithVocabulary adds every label from the recognition vocabulary.
	WithVocabulary() Builder

	// WithUsage adds a label with a preset usage count.
	WithUsage(name LabelName, count int) Builder

	// WithFixture adds labels from a predefined fixture.
	WithFixture(fixture Fixture) Builder

	// Build creates the labels in the provided storage and returns them.
	Build(ctx context.Context, storage service.Storage) (Labels, error)

	// BuildMap creates labels and returns them as a map for easy lookup.
	BuildMap(ctx context.Context, storage service.Storage) (LabelMap, error)
}

// LabelName represents a strongly-typed label name.
// This provides compile-time safety and prevents accidental string usage.
type LabelName string

// String returns the string representation of the label name.
func (n LabelName) String() string {
	return string(n)
}

// Vocabulary label names used across tests.
const (
	LabelNoObjects         LabelName = "ingen objekter"
	LabelPackage           LabelName = "pakke"
	LabelMailbox           LabelName = "postkasse"
	LabelSticker           LabelName = "etikett"
	LabelMailboxSign       LabelName = "postkasseskilt"
	LabelPackageInMailbox  LabelName = "pakke i postkasse"
	LabelPackageAtEntrance LabelName = "pakke ved inngangsparti"
	LabelEntrance          LabelName = "inngangsparti"
)

// Out-of-vocabulary names for tests that exercise unknown detections.
const (
	LabelDog     LabelName = "hund"
	LabelCat     LabelName = "katt"
	LabelCar     LabelName = "bil"
	LabelPerson  LabelName = "person"
	LabelBicycle LabelName = "sykkel"
)

// Labels represents a collection of created test labels.
type Labels []model.Label

// Find returns the label with the given name, or nil if not found.
func (l Labels) Find(name LabelName) *model.Label {
	normalized := model.NormalizeLabelName(name.String())
	for i := range l {
		if l[i].Name == normalized {
			return &l[i]
		}
	}
	return nil
}

// MustFind returns the label with the given name, or fails the test if not found.
func (l Labels) MustFind(t *testing.T, name LabelName) model.Label {
	t.Helper()
	label := l.Find(name)
	if label == nil {
		t.Fatalf("label %q not found in test data", name)
	}
	return *label
}

// Names returns all label names as a slice of strings.
func (l Labels) Names() []string {
	names := make([]string, len(l))
	for i, label := range l {
		names[i] = label.Name
	}
	return names
}

// LabelMap provides O(1) lookup for labels by name.
type LabelMap map[LabelName]model.Label

// Get returns the label for the given name and whether it was found.
func (m LabelMap) Get(name LabelName) (model.Label, bool) {
	label, ok := m[name]
	return label, ok
}

// MustGet returns the label for the given name or fails the test.
func (m LabelMap) MustGet(t *testing.T, name LabelName) model.Label {
	t.Helper()
	label, ok := m.Get(name)
	if !ok {
		t.Fatalf("label %q not found in test data", name)
	}
	return label
}

// labelBuilder implements the Builder interface.
type labelBuilder struct {
	t     *testing.T
	usage map[LabelName]int
	order []LabelName
	seen  map[LabelName]struct{}
}

// NewBuilder creates a new label builder for the given test.
func NewBuilder(t *testing.T) Builder {
	t.Helper()
	return &labelBuilder{
		t:     t,
		usage: make(map[LabelName]int),
		seen:  make(map[LabelName]struct{}),
	}
}

func (b *labelBuilder) add(name LabelName, usage int) {
	if _, ok := b.seen[name]; !ok {
		b.seen[name] = struct{}{}
		b.order = append(b.order, name)
	}
	if usage > 0 {
		b.usage[name] = usage
	}
}

func (b *labelBuilder) WithLabel(name LabelName) Builder {
	b.add(name, 0)
	return b
}

func (b *labelBuilder) WithLabels(names ...LabelName) Builder {
	for _, name := range names {
		b.add(name, 0)
	}
	return b
}

func (b *labelBuilder) WithVocabulary() Builder {
	for _, name := range model.Vocabulary() {
		b.add(LabelName(name), 0)
	}
	return b
}

func (b *labelBuilder) WithUsage(name LabelName, count int) Builder {
	b.add(name, count)
	return b
}

func (b *labelBuilder) WithFixture(fixture Fixture) Builder {
	return b.WithLabels(fixture.Labels()...)
}

func (b *labelBuilder) Build(ctx context.Context, storage service.Storage) (Labels, error) {
	b.t.Helper()

	if len(b.order) == 0 {
		return Labels{}, nil
	}

	result := make(Labels, 0, len(b.order))
	for _, name := range b.order {
		created, err := storage.GetOrCreateLabel(ctx, name.String(), "")
		if err != nil {
			return nil, fmt.Errorf("failed to create label %q: %w", name, err)
		}
		if count, ok := b.usage[name]; ok && count > 0 {
			if err := storage.SetLabelUsage(ctx, created.ID, count); err != nil {
				return nil, fmt.Errorf("failed to set usage for label %q: %w", name, err)
			}
			created.UsageCount = count
		}
		result = append(result, *created)
	}

	return result, nil
}

func (b *labelBuilder) BuildMap(ctx context.Context, storage service.Storage) (LabelMap, error) {
	created, err := b.Build(ctx, storage)
	if err != nil {
		return nil, err
	}

	m := make(LabelMap, len(created))
	for _, label := range created {
		m[LabelName(label.Name)] = label
	}
	return m, nil
}
