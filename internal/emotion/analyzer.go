package emotion

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/chongs12/emotion-analysis/pkg/logger"
	"github.com/chongs12/emotion-analysis/pkg/metrics"
)

var tracer = otel.Tracer("github.com/chongs12/emotion-analysis/internal/emotion")

// Result is the outcome of analyzing one document.
type Result struct {
	Profile Profile
	// Normalized holds every label the classifier emitted, before projection and rounding.
	Normalized map[string]float64
	Total      float64
	Chunks     int
}

// Analyzer runs the chunk → classify → aggregate pipeline.
type Analyzer struct {
	classifier  Classifier
	maxWords    int
	concurrency int
	service     string
	bm          *metrics.BusinessMetrics
}

// NewAnalyzer 创建分析器
// 参数：
// - maxWords：单块最大词数，<=0 时使用 DefaultMaxWords
// - concurrency：单个文档并发分类的块数，<=0 时串行
// - bm：业务指标，可为 nil
func NewAnalyzer(classifier Classifier, maxWords, concurrency int, service string, bm *metrics.BusinessMetrics) *Analyzer {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Analyzer{
		classifier:  classifier,
		maxWords:    maxWords,
		concurrency: concurrency,
		service:     service,
		bm:          bm,
	}
}

// Analyze classifies every chunk of text and merges the scores into a Profile.
// The first classifier error aborts the analysis and is returned as is; no
// partial profile is produced.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*Result, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "emotion.Analyze")
	defer span.End()

	chunks := Split(text, a.maxWords)
	span.SetAttributes(
		attribute.Int("emotion.chunks", len(chunks)),
		attribute.Int("emotion.words", WordCount(text)),
	)

	scores, err := a.classifyChunks(ctx, chunks)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.observe("fail", start, len(chunks))
		return nil, err
	}

	agg := NewAggregate()
	for _, s := range scores {
		agg.Add(s)
	}

	res := &Result{
		Profile:    agg.Profile(),
		Normalized: agg.Normalized(),
		Total:      agg.Total(),
		Chunks:     len(chunks),
	}
	a.observe("success", start, len(chunks))
	logger.Debug(ctx, "Emotion analysis finished", "chunks", len(chunks), "labels", len(res.Normalized), "total", res.Total, "duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

// classifyChunks returns scores indexed by chunk position so accumulation
// happens in chunk order regardless of completion order. A document without
// a single word (empty input, only periods) is not sent to the classifier;
// otherwise every chunk is classified.
func (a *Analyzer) classifyChunks(ctx context.Context, chunks []string) ([][]Score, error) {
	results := make([][]Score, len(chunks))
	if !hasWords(chunks) {
		return results, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			// a sibling already failed
			if err := gctx.Err(); err != nil {
				return err
			}
			scores, err := a.classifier.Classify(gctx, chunk)
			if err != nil {
				return err
			}
			if err := ValidateScores(scores); err != nil {
				return err
			}
			results[i] = scores
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func hasWords(chunks []string) bool {
	for _, c := range chunks {
		if ChunkWordCount(c) > 0 {
			return true
		}
	}
	return false
}

func (a *Analyzer) observe(status string, start time.Time, chunks int) {
	if a.bm == nil {
		return
	}
	a.bm.AnalyzeTotal.WithLabelValues(a.service, status).Inc()
	a.bm.AnalyzeDuration.WithLabelValues(a.service, status).Observe(time.Since(start).Seconds())
	a.bm.ChunksPerDocument.WithLabelValues(a.service).Observe(float64(chunks))
}
