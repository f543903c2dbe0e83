package labels

// Fixture represents a predefined set of labels for testing.
// Fixtures provide consistent, reusable label sets for different test scenarios.
type Fixture interface {
	// Name returns the fixture's descriptive name.
	Name() string

	// Description returns a detailed description of the fixture's purpose.
	Description() string

	// Labels returns the label names included in this fixture.
	Labels() []LabelName
}

// fixture implements the Fixture interface.
type fixture struct {
	name        string
	description string
	labels      []LabelName
}

func (f *fixture) Name() string        { return f.name }
func (f *fixture) Description() string { return f.description }
func (f *fixture) Labels() []LabelName { return f.labels }

// Predefined fixtures for common test scenarios.
var (
	// FixtureDelivery provides the labels a complete delivery photo produces.
	FixtureDelivery = &fixture{
		name:        "Delivery",
		description: "Core delivery labels for classification tests",
		labels: []LabelName{
			LabelPackage,
			LabelMailbox,
			LabelSticker,
			LabelMailboxSign,
		},
	}

	// FixtureVocabulary provides every label the detector can report.
	FixtureVocabulary = &fixture{
		name:        "Vocabulary",
		description: "Full recognition vocabulary",
		labels: []LabelName{
			LabelNoObjects,
			LabelPackage,
			LabelMailbox,
			LabelSticker,
			LabelMailboxSign,
			LabelPackageInMailbox,
			LabelPackageAtEntrance,
			LabelEntrance,
		},
	}

	// FixtureNoise provides out-of-vocabulary labels for unknown-detection tests.
	FixtureNoise = &fixture{
		name:        "Noise",
		description: "Labels outside the recognition vocabulary",
		labels: []LabelName{
			LabelDog,
			LabelCat,
			LabelCar,
			LabelPerson,
			LabelBicycle,
		},
	}
)

// NewCompositeFixture creates a fixture that combines multiple fixtures,
// deduplicating label names across them.
func NewCompositeFixture(name, description string, fixtures ...Fixture) Fixture {
	return &compositeFixture{
		name:        name,
		description: description,
		fixtures:    fixtures,
	}
}

type compositeFixture struct {
	name        string
	description string
	fixtures    []Fixture
}

func (c *compositeFixture) Name() string        { return c.name }
func (c *compositeFixture) Description() string { return c.description }

func (c *compositeFixture) Labels() []LabelName {
	seen := make(map[LabelName]struct{})
	var names []LabelName

	for _, f := range c.fixtures {
		for _, name := range f.Labels() {
			if _, exists := seen[name]; !exists {
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
	}

	return names
}
