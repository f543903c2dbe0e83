package model

// The detection vocabulary for Norwegian package-delivery photos. Label names
// are the normalized forms used on photos, in the detector alias table, and in
// the scoring rules.
const (
	LabelNoObjects         = "ingen objekter"
	LabelPackage           = "pakke"
	LabelMailbox           = "postkasse"
	LabelSticker           = "etikett"
	LabelMailboxSign       = "postkasseskilt"
	LabelPackageInMailbox  = "pakke i postkasse"
	LabelPackageAtEntrance = "pakke ved inngangsparti"
	LabelEntrance          = "inngangsparti"
)

// Vocabulary lists the detection vocabulary in canonical order. The order is
// used when rendering label-count snapshots so reasoning strings stay stable.
func Vocabulary() []string {
	return []string{
		LabelNoObjects,
		LabelPackage,
		LabelMailbox,
		LabelSticker,
		LabelMailboxSign,
		LabelPackageInMailbox,
		LabelPackageAtEntrance,
		LabelEntrance,
	}
}

// CommonLabels is the seed dictionary for quick-adding vocabulary labels:
// every term maps to the postal category except "ingen objekter" (other) and
// "inngangsparti" (building).
var CommonLabels = map[string]LabelCategory{
	LabelNoObjects:         CategoryOther,
	LabelPackage:           CategoryPostal,
	LabelMailbox:           CategoryPostal,
	LabelSticker:           CategoryPostal,
	LabelMailboxSign:       CategoryPostal,
	LabelPackageInMailbox:  CategoryPostal,
	LabelPackageAtEntrance: CategoryPostal,
	LabelEntrance:          CategoryBuilding,
}

// InVocabulary reports whether the normalized name is a vocabulary term.
func InVocabulary(name string) bool {
	_, ok := CommonLabels[NormalizeLabelName(name)]
	return ok
}
