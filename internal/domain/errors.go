package domain

import "errors"

var (
	// ErrNoCandidate is returned when no backend produced any candidate
	ErrNoCandidate = errors.New("no candidate product found")

	// ErrNoUsefulNutrients is returned when every candidate lacks usable nutrient data
	ErrNoUsefulNutrients = errors.New("no candidate with usable nutrients")

	// ErrLowScore is returned when the best candidate does not clear the accept threshold
	ErrLowScore = errors.New("best candidate score below threshold")

	// ErrMissingRequiredTokens is returned when required variant tokens matched no candidate
	ErrMissingRequiredTokens = errors.New("required tokens matched no candidate")

	// ErrSevereBrandMismatch is returned when brand context exists but the candidate brand is unrelated
	ErrSevereBrandMismatch = errors.New("severe brand mismatch")

	// ErrTimeout is returned when a stage exceeded its time budget
	ErrTimeout = errors.New("resolution timed out")

	// ErrBackendError is returned when a backend request failed hard
	ErrBackendError = errors.New("backend request failed")

	// ErrEmptyQuery is returned when a descriptor carries nothing searchable
	ErrEmptyQuery = errors.New("empty search query")

	// ErrCacheMiss is returned when data is not found in a cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidConfig is returned for contract-violating configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UnresolvedReason maps a resolution error to the typed reason string
// carried on ResolutionResult.
func UnresolvedReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingRequiredTokens):
		return "missing_required_tokens"
	case errors.Is(err, ErrSevereBrandMismatch):
		return "severe_brand_mismatch"
	case errors.Is(err, ErrNoUsefulNutrients):
		return "no_useful_nutrients"
	case errors.Is(err, ErrLowScore):
		return "low_score"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrEmptyQuery):
		return "empty_query"
	case errors.Is(err, ErrBackendError):
		return "backend_error"
	default:
		return "no_candidate"
	}
}
