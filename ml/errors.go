package ml

import "fmt"

// UnknownCategoryError is returned when a category was never observed while
// training a dataset's models.
type UnknownCategoryError struct {
	Category string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("category %q was not seen during training", e.Category)
}

func (e *UnknownCategoryError) Kind() string { return "unknown_category" }

// ModelUnavailableError is returned when the requested model was skipped
// during training.
type ModelUnavailableError struct {
	Target string
	Reason string
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("%s model unavailable: %s", e.Target, e.Reason)
}

func (e *ModelUnavailableError) Kind() string { return "model_unavailable" }

// Reasons recorded in Metrics.Unavailable.
const (
	ReasonInsufficientSamples = "insufficient_samples"
	ReasonSingleCategory      = "single_category"
	ReasonTrainingFailed      = "training_failed"
)
