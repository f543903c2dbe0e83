// Package classify scores a photo's label-count snapshot for evidence of a
// package delivery. The scorer is a fixed table of rules evaluated in order,
// first match wins; ordering is load-bearing because later rules are broader
// versions of earlier ones.
package classify

import "github.com/eivindbakke/merkelapp/internal/model"

// Rule is one entry in the scoring table. A rule fires when every label in
// Requires appears in the snapshot with a count above zero; the terminal rule
// has no requirements and catches everything.
type Rule struct {
	Requires    []string
	Phrase      string // Norwegian justification appended to the reasoning
	Description string // English summary shown in verbose output
	Score       float64
}

// matches reports whether every required label is present in the snapshot.
func (r Rule) matches(counts map[string]int) bool {
	for _, name := range r.Requires {
		if counts[name] <= 0 {
			return false
		}
	}
	return true
}

// ruleTable is evaluated top to bottom. Do not reorder: a snapshot can satisfy
// several rules at once and the earliest one decides the score.
var ruleTable = []Rule{
	{
		Requires:    []string{model.LabelNoObjects},
		Score:       0.0,
		Phrase:      "Ingen relevante objekter oppdaget",
		Description: "no relevant objects detected",
	},
	{
		Requires:    []string{model.LabelPackage, model.LabelMailbox, model.LabelSticker, model.LabelMailboxSign},
		Score:       1.0,
		Phrase:      "Komplett pakkeleveringsoppsett oppdaget",
		Description: "complete package delivery setup",
	},
	{
		Requires:    []string{model.LabelPackageInMailbox, model.LabelSticker, model.LabelMailboxSign},
		Score:       1.0,
		Phrase:      "Pakke i postkasse med riktig identifikasjon",
		Description: "package in mailbox with proper identification",
	},
	{
		Requires:    []string{model.LabelPackageAtEntrance},
		Score:       1.0,
		Phrase:      "Pakke ved inngangsparti oppdaget",
		Description: "package at entrance detected",
	},
	{
		Requires:    []string{model.LabelPackage, model.LabelEntrance},
		Score:       1.0,
		Phrase:      "Pakke nær inngangsparti",
		Description: "package near entrance",
	},
	{
		Requires:    []string{model.LabelSticker, model.LabelMailboxSign},
		Score:       0.8,
		Phrase:      "Etikett og postkasseskilt funnet",
		Description: "label and mailbox nameplate found",
	},
	{
		Requires:    []string{model.LabelPackage, model.LabelMailbox, model.LabelMailboxSign},
		Score:       0.7,
		Phrase:      "Pakke og postkasse med postkasseskilt",
		Description: "package and mailbox with nameplate",
	},
	{
		Requires:    []string{model.LabelPackage, model.LabelMailboxSign},
		Score:       0.6,
		Phrase:      "Pakke med postkasseskilt",
		Description: "package with mailbox nameplate",
	},
	{
		Requires:    []string{model.LabelPackage, model.LabelMailbox, model.LabelSticker},
		Score:       0.5,
		Phrase:      "Pakke og postkasse med etikett",
		Description: "package and mailbox with label",
	},
	{
		Requires:    []string{model.LabelEntrance},
		Score:       0.5,
		Phrase:      "Inngangsparti oppdaget",
		Description: "entrance area detected",
	},
	{
		Requires:    []string{model.LabelPackage, model.LabelMailbox},
		Score:       0.25,
		Phrase:      "Pakke og postkasse oppdaget",
		Description: "package and mailbox detected",
	},
	{
		Requires:    []string{model.LabelMailbox, model.LabelMailboxSign},
		Score:       0.25,
		Phrase:      "Postkasse med postkasseskilt",
		Description: "mailbox with nameplate",
	},
	{
		Requires:    []string{model.LabelMailboxSign},
		Score:       0.2,
		Phrase:      "Kun postkasseskilt oppdaget",
		Description: "mailbox nameplate only",
	},
	{
		Requires:    []string{model.LabelPackage},
		Score:       0.1,
		Phrase:      "Kun pakke oppdaget",
		Description: "package only",
	},
	{
		Requires:    []string{model.LabelMailbox},
		Score:       0.1,
		Phrase:      "Kun postkasse oppdaget",
		Description: "mailbox only",
	},
	{
		Requires:    []string{model.LabelSticker},
		Score:       0.05,
		Phrase:      "Kun etikett oppdaget",
		Description: "label only",
	},
	{
		Requires:    nil,
		Score:       0.0,
		Phrase:      "Ingen relevante postobjekter oppdaget",
		Description: "no relevant postal objects detected",
	},
}

// Rules returns the scoring table in evaluation order. Callers must treat the
// returned slice as read-only.
func Rules() []Rule {
	return ruleTable
}

// Scores returns every score the table can produce, highest first.
func Scores() []float64 {
	return []float64{1.0, 0.8, 0.7, 0.6, 0.5, 0.25, 0.2, 0.1, 0.05, 0.0}
}
