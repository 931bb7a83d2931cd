package classifier

import (
	"context"
	"time"

	"github.com/chongs12/emotion-analysis/internal/emotion"
	"github.com/chongs12/emotion-analysis/pkg/metrics"
)

// Instrumented records call counts and latency per backend.
type Instrumented struct {
	next    emotion.Classifier
	backend string
	bm      *metrics.BusinessMetrics
}

func NewInstrumented(next emotion.Classifier, backend string, bm *metrics.BusinessMetrics) *Instrumented {
	return &Instrumented{next: next, backend: backend, bm: bm}
}

func (i *Instrumented) Classify(ctx context.Context, text string) ([]emotion.Score, error) {
	start := time.Now()
	scores, err := i.next.Classify(ctx, text)
	if i.bm != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		i.bm.ClassifyTotal.WithLabelValues(i.backend, status).Inc()
		i.bm.ClassifyDuration.WithLabelValues(i.backend, status).Observe(time.Since(start).Seconds())
	}
	return scores, err
}
