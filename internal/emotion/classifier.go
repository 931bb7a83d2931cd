package emotion

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidScore is returned when a classifier emits a negative or non-finite score.
var ErrInvalidScore = errors.New("invalid classifier score")

// Classifier scores a single chunk of text. Implementations must be safe for
// concurrent use; the analyzer may classify chunks of one document in parallel.
type Classifier interface {
	Classify(ctx context.Context, text string) ([]Score, error)
}

// ClassifierFunc adapts a plain function to Classifier.
type ClassifierFunc func(ctx context.Context, text string) ([]Score, error)

func (f ClassifierFunc) Classify(ctx context.Context, text string) ([]Score, error) {
	return f(ctx, text)
}

// ValidateScores checks the classifier contract: scores are finite and non-negative.
func ValidateScores(scores []Score) error {
	for _, s := range scores {
		if math.IsNaN(s.Score) || math.IsInf(s.Score, 0) || s.Score < 0 {
			return fmt.Errorf("%w: label %q has score %v", ErrInvalidScore, s.Label, s.Score)
		}
	}
	return nil
}
