package classify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/eivindbakke/merkelapp/internal/model"
)

// Result is the outcome of scoring one label-count snapshot.
type Result struct {
	Labels      []string // labels that satisfied the fired rule, in table order
	Reasoning   string
	Description string // English summary of the fired rule
	Score       float64
}

// Classifier evaluates label-count snapshots against the scoring table. It is
// stateless and safe for concurrent use.
type Classifier struct {
	rules []Rule
}

// New creates a classifier backed by the standard scoring table.
func New() *Classifier {
	return &Classifier{rules: ruleTable}
}

// Classify scores the snapshot. The table always ends in a catch-all, so every
// input produces a result; an empty or all-zero snapshot scores 0.0.
func (c *Classifier) Classify(counts map[string]int) Result {
	for _, rule := range c.rules {
		if !rule.matches(counts) {
			continue
		}
		return Result{
			Score:       rule.Score,
			Reasoning:   buildReasoning(counts, rule),
			Description: rule.Description,
			Labels:      append([]string(nil), rule.Requires...),
		}
	}
	// Unreachable while the table keeps its catch-all entry.
	return Result{Reasoning: ruleTable[len(ruleTable)-1].Phrase}
}

// Score is the plain (score, reasoning) view of Classify.
func (c *Classifier) Score(counts map[string]int) (float64, string) {
	result := c.Classify(counts)
	return result.Score, result.Reasoning
}

// buildReasoning renders "name: count" for every present label, vocabulary
// terms first in canonical order and anything else alphabetically after, then
// appends the fired rule's phrase. With nothing present the phrase stands
// alone.
func buildReasoning(counts map[string]int, rule Rule) string {
	parts := make([]string, 0, len(counts))
	listed := make(map[string]bool, len(counts))

	for _, name := range model.Vocabulary() {
		if counts[name] > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", name, counts[name]))
			listed[name] = true
		}
	}

	extras := make([]string, 0, len(counts))
	for name, count := range counts {
		if count > 0 && !listed[name] {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		parts = append(parts, fmt.Sprintf("%s: %d", name, counts[name]))
	}

	if len(parts) == 0 {
		return rule.Phrase
	}
	return strings.Join(parts, ", ") + " → " + rule.Phrase
}
