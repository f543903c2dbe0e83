package tui

import "github.com/eivindbakke/merkelapp/internal/model"

// photoEntry bundles a photo with everything the browser shows about it.
type photoEntry struct {
	Result *model.ClassificationResult
	Photo  model.Photo
	Labels []model.Label
}

// Data loading messages.
type photosLoadedMsg struct {
	err     error
	entries []photoEntry
}

// Error handling.
type errorMsg struct {
	err error
}

// filterMode restricts which photos the list shows.
type filterMode int

const (
	filterAll filterMode = iota
	filterAnalyzed
	filterPending
)

func (f filterMode) String() string {
	switch f {
	case filterAnalyzed:
		return "analyzed"
	case filterPending:
		return "pending"
	default:
		return "all"
	}
}

// next cycles to the following filter mode.
func (f filterMode) next() filterMode {
	switch f {
	case filterAll:
		return filterAnalyzed
	case filterAnalyzed:
		return filterPending
	default:
		return filterAll
	}
}
