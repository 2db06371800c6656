package workflow

import (
	"context"
	"time"

	"github.com/kbukum/hollowfoot/dataset"
	"github.com/kbukum/hollowfoot/errors"
	"github.com/kbukum/hollowfoot/logger"
	"github.com/kbukum/hollowfoot/observability"
)

// Evaluator evaluates the step at index against in.
type Evaluator func(ctx context.Context, index int, step *Step, in *dataset.Dataset) (*dataset.Dataset, error)

// Middleware wraps an Evaluator with cross-cutting behavior.
type Middleware func(Evaluator) Evaluator

// Chain composes middlewares. The first is outermost.
//
// Chain(a, b, c)(eval) is equivalent to a(b(c(eval))).
func Chain(middlewares ...Middleware) Middleware {
	return func(inner Evaluator) Evaluator {
		for i := len(middlewares) - 1; i >= 0; i-- {
			inner = middlewares[i](inner)
		}
		return inner
	}
}

func baseEvaluator(ctx context.Context, _ int, step *Step, in *dataset.Dataset) (*dataset.Dataset, error) {
	return step.Evaluate(ctx, in)
}

// Option configures a Pipeline evaluation.
type Option func(*evalOptions)

type evalOptions struct {
	middlewares []Middleware
	log         *logger.Logger
	metrics     *observability.Metrics
	tracing     bool
}

func newEvalOptions(opts []Option) *evalOptions {
	o := &evalOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithMiddleware adds custom step middleware. Middlewares added by earlier
// options wrap those added later.
func WithMiddleware(mw ...Middleware) Option {
	return func(o *evalOptions) { o.middlewares = append(o.middlewares, mw...) }
}

// WithLogger logs each step evaluation and the pipeline outcome.
func WithLogger(log *logger.Logger) Option {
	return func(o *evalOptions) {
		if log == nil {
			return
		}
		o.log = log.WithComponent("workflow")
		o.middlewares = append(o.middlewares, LoggingMiddleware(o.log))
	}
}

// WithTracing opens a span around the evaluation and one per step named
// "{prefix}.{operation}". An empty prefix uses observability.SpanStepPrefix.
func WithTracing(prefix string) Option {
	return func(o *evalOptions) {
		if prefix == "" {
			prefix = observability.SpanStepPrefix
		}
		o.tracing = true
		o.middlewares = append(o.middlewares, TracingMiddleware(prefix))
	}
}

// WithMetrics records step and pipeline metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *evalOptions) {
		if m == nil {
			return
		}
		o.metrics = m
		o.middlewares = append(o.middlewares, MetricsMiddleware(m))
	}
}

// LoggingMiddleware logs step evaluation at debug level and failures at
// error level.
func LoggingMiddleware(log *logger.Logger) Middleware {
	return func(next Evaluator) Evaluator {
		return func(ctx context.Context, index int, step *Step, in *dataset.Dataset) (*dataset.Dataset, error) {
			memoized := step.Evaluated(in)
			start := time.Now()
			out, err := next(ctx, index, step, in)
			duration := time.Since(start)

			l := log.WithContext(ctx)
			fields := logger.Fields(
				logger.FieldStepIndex, index,
				logger.FieldStep, step.Describe(),
				logger.FieldMemoized, memoized,
			)
			if err != nil {
				l.Error("step failed", logger.MergeWithError(fields, err))
				return nil, err
			}
			fields[logger.FieldDatasetID] = out.ID().String()
			fields[logger.FieldVersion] = out.Version()
			fields[logger.FieldGroups] = out.Len()
			l.Debug("step evaluated", logger.MergeWithDuration(fields, duration))
			return out, nil
		}
	}
}

// TracingMiddleware opens a span per step evaluation.
func TracingMiddleware(prefix string) Middleware {
	return func(next Evaluator) Evaluator {
		return func(ctx context.Context, index int, step *Step, in *dataset.Dataset) (*dataset.Dataset, error) {
			ctx, span := observability.StartSpan(ctx, prefix+"."+step.Name())
			defer span.End()

			observability.SetSpanAttribute(ctx, observability.AttrOperation, step.Name())
			observability.SetSpanAttribute(ctx, observability.AttrStepIndex, index)
			observability.SetSpanAttribute(ctx, observability.AttrStep, step.Describe())
			observability.SetSpanAttribute(ctx, observability.AttrMemoized, step.Evaluated(in))

			out, err := next(ctx, index, step, in)
			if err != nil {
				observability.SetSpanError(ctx, err)
				if appErr, ok := errors.AsAppError(err); ok {
					observability.SetSpanAttribute(ctx, observability.AttrErrorCode, string(appErr.Code))
				}
				return nil, err
			}
			observability.SetSpanAttribute(ctx, observability.AttrDatasetID, out.ID().String())
			observability.SetSpanAttribute(ctx, observability.AttrVersion, out.Version())
			return out, nil
		}
	}
}

// MetricsMiddleware records step counts, durations and memo hits.
func MetricsMiddleware(m *observability.Metrics) Middleware {
	return func(next Evaluator) Evaluator {
		return func(ctx context.Context, index int, step *Step, in *dataset.Dataset) (*dataset.Dataset, error) {
			if step.Evaluated(in) {
				m.RecordMemoHit(ctx, step.Name())
				return next(ctx, index, step, in)
			}
			start := time.Now()
			out, err := next(ctx, index, step, in)
			status := observability.StatusOK
			if err != nil {
				status = observability.StatusError
				code := string(errors.ErrCodeInternal)
				if appErr, ok := errors.AsAppError(err); ok {
					code = string(appErr.Code)
				}
				m.RecordError(ctx, code, step.Name())
			}
			m.RecordStep(ctx, step.Name(), status, time.Since(start))
			return out, err
		}
	}
}
