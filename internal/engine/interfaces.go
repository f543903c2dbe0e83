package engine

import (
	"context"

	"github.com/eivindbakke/merkelapp/internal/model"
	"github.com/eivindbakke/merkelapp/internal/service"
)

// Detector defines the contract for object detection on photo images.
type Detector interface {
	DetectObjects(ctx context.Context, imagePath string) (*model.DetectionResult, error)
}

// Prompter defines the contract for user interaction during analysis review.
type Prompter interface {
	ReviewPhoto(ctx context.Context, pending PendingReview) (ReviewDecision, error)
}

// PendingReview is one photo's detection output awaiting user review.
type PendingReview struct {
	Detection   *model.DetectionResult
	Photo       model.Photo
	Suggestions []service.DetectionSuggestion
	Position    int
	Total       int
}

// ReviewDecision records what the reviewer chose for one photo. Labels holds
// the label names to apply; Skip leaves the photo untouched for a later run;
// Quit ends the whole analysis run.
type ReviewDecision struct {
	Labels []string
	Skip   bool
	Quit   bool
}
