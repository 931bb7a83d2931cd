package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/chongs12/emotion-analysis/internal/emotion"
	"github.com/chongs12/emotion-analysis/pkg/logger"
	"github.com/chongs12/emotion-analysis/pkg/metrics"
	"github.com/chongs12/emotion-analysis/pkg/rabbitmq"
)

var tracer = otel.Tracer("github.com/chongs12/emotion-analysis/internal/jobs")

var ErrMalformedJob = errors.New("malformed job")

// Job is one queued analysis request.
type Job struct {
	ID      string  `json:"id"`
	Content *string `json:"content"`
}

// Reply is published to the job's ReplyTo queue.
type Reply struct {
	ID     string           `json:"id"`
	Result *emotion.Profile `json:"Emotion Analysis Result,omitempty"`
	Detail string           `json:"detail,omitempty"`
}

// Replier publishes RPC replies; *rabbitmq.Client satisfies it.
type Replier interface {
	Reply(ctx context.Context, replyTo, correlationID string, body []byte) error
}

type Worker struct {
	analyzer    *emotion.Analyzer
	replier     Replier
	concurrency int
	timeout     time.Duration
	bm          *metrics.BusinessMetrics
}

// NewWorker 创建任务消费者
// concurrency 限制同时处理的消息数；timeout>0 时为每个任务设置分析超时
func NewWorker(analyzer *emotion.Analyzer, replier Replier, concurrency int, timeout time.Duration, bm *metrics.BusinessMetrics) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Worker{
		analyzer:    analyzer,
		replier:     replier,
		concurrency: concurrency,
		timeout:     timeout,
		bm:          bm,
	}
}

// Run consumes deliveries until the channel closes or ctx is cancelled,
// then waits for in-flight jobs to finish. Cancelling ctx stops intake
// only; jobs already started keep running, bounded by the job timeout.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	g := new(errgroup.Group)
	g.SetLimit(w.concurrency)
	jobCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Worker stopping, draining in-flight jobs")
			return g.Wait()
		case d, ok := <-deliveries:
			if !ok {
				logger.Warn(ctx, "Delivery channel closed")
				return g.Wait()
			}
			g.Go(func() error {
				w.Handle(jobCtx, d)
				return nil
			})
		}
	}
}

// Handle processes one delivery and settles it: ack on success, nack
// without requeue (dead-letter) on malformed input or analysis failure,
// nack with requeue when the reply could not be published or ctx was
// cancelled mid-analysis.
func (w *Worker) Handle(ctx context.Context, d amqp.Delivery) {
	ctx = rabbitmq.ExtractTrace(ctx, d.Headers)
	ctx, span := tracer.Start(ctx, "jobs.Handle", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	job, err := decodeJob(d.Body)
	if job.ID == "" {
		job.ID = d.CorrelationId
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	ctx = context.WithValue(ctx, logger.RequestIDKey, job.ID)
	span.SetAttributes(attribute.String("job.id", job.ID))

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		logger.Warn(ctx, "Rejecting malformed job", "error", err.Error())
		w.reply(ctx, d, Reply{ID: job.ID, Detail: err.Error()})
		w.settle(ctx, d, "malformed", false, false)
		return
	}

	actx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	res, err := w.analyzer.Analyze(actx, *job.Content)
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// interrupted, not failed: hand the job back to the queue
		logger.Warn(ctx, "Job interrupted, requeueing", "error", err.Error())
		w.settle(ctx, d, "requeued", false, true)
		return
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		logger.Error(ctx, "Job analysis failed", "error", err.Error())
		w.reply(ctx, d, Reply{ID: job.ID, Detail: err.Error()})
		w.settle(ctx, d, "failed", false, false)
		return
	}

	if err := w.reply(ctx, d, Reply{ID: job.ID, Result: &res.Profile}); err != nil {
		w.settle(ctx, d, "requeued", false, true)
		return
	}
	logger.Info(ctx, "Job completed", "chunks", res.Chunks)
	w.settle(ctx, d, "success", true, false)
}

func decodeJob(body []byte) (Job, error) {
	var job Job
	if err := sonic.Unmarshal(body, &job); err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}
	if job.Content == nil {
		return job, fmt.Errorf("%w: content is required", ErrMalformedJob)
	}
	return job, nil
}

func (w *Worker) reply(ctx context.Context, d amqp.Delivery, r Reply) error {
	if d.ReplyTo == "" || w.replier == nil {
		return nil
	}
	body, err := sonic.Marshal(r)
	if err != nil {
		return err
	}
	if err := w.replier.Reply(ctx, d.ReplyTo, d.CorrelationId, body); err != nil {
		logger.Error(ctx, "Failed to publish job reply", "reply_to", d.ReplyTo, "error", err.Error())
		return err
	}
	return nil
}

func (w *Worker) settle(ctx context.Context, d amqp.Delivery, status string, ack, requeue bool) {
	var err error
	if ack {
		err = d.Ack(false)
	} else {
		err = d.Nack(false, requeue)
	}
	if err != nil {
		logger.Error(ctx, "Failed to settle delivery", "status", status, "error", err.Error())
	}
	if w.bm != nil {
		w.bm.JobsTotal.WithLabelValues(status).Inc()
	}
}
