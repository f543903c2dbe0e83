package detect

import "github.com/eivindbakke/merkelapp/internal/model"

// labelAliases maps object names vision models commonly emit onto the
// Norwegian vocabulary. Every value is a vocabulary term; names without an
// alias pass through unchanged.
var labelAliases = map[string]string{
	// pakke
	"package":       model.LabelPackage,
	"packages":      model.LabelPackage,
	"parcel":        model.LabelPackage,
	"parcels":       model.LabelPackage,
	"box":           model.LabelPackage,
	"boxes":         model.LabelPackage,
	"cardboard box": model.LabelPackage,

	// postkasse
	"mailbox":    model.LabelMailbox,
	"mailboxes":  model.LabelMailbox,
	"mail box":   model.LabelMailbox,
	"postbox":    model.LabelMailbox,
	"post box":   model.LabelMailbox,
	"letterbox":  model.LabelMailbox,
	"letter box": model.LabelMailbox,

	// etikett
	"label":           model.LabelSticker,
	"labels":          model.LabelSticker,
	"sticker":         model.LabelSticker,
	"stickers":        model.LabelSticker,
	"shipping label":  model.LabelSticker,
	"shipping labels": model.LabelSticker,
	"address label":   model.LabelSticker,

	// postkasseskilt
	"mailbox sign":      model.LabelMailboxSign,
	"mailbox nameplate": model.LabelMailboxSign,
	"nameplate":         model.LabelMailboxSign,
	"name plate":        model.LabelMailboxSign,
	"name sign":         model.LabelMailboxSign,

	// pakke i postkasse
	"package in mailbox": model.LabelPackageInMailbox,
	"parcel in mailbox":  model.LabelPackageInMailbox,

	// pakke ved inngangsparti
	"package at entrance": model.LabelPackageAtEntrance,
	"package at door":     model.LabelPackageAtEntrance,
	"package on doorstep": model.LabelPackageAtEntrance,
	"parcel at entrance":  model.LabelPackageAtEntrance,
	"parcel on doorstep":  model.LabelPackageAtEntrance,

	// inngangsparti
	"entrance":   model.LabelEntrance,
	"entryway":   model.LabelEntrance,
	"doorway":    model.LabelEntrance,
	"front door": model.LabelEntrance,
	"doorstep":   model.LabelEntrance,
	"porch":      model.LabelEntrance,

	// ingen objekter
	"no objects":          model.LabelNoObjects,
	"no relevant objects": model.LabelNoObjects,
	"nothing":             model.LabelNoObjects,
	"empty":               model.LabelNoObjects,
}

// CanonicalLabel normalizes a detector-reported object name and resolves it
// through the alias table.
func CanonicalLabel(name string) string {
	normalized := model.NormalizeLabelName(name)
	if mapped, ok := labelAliases[normalized]; ok {
		return mapped
	}
	return normalized
}
