// Package observability wires OpenTelemetry tracing and metrics for the
// workflow engine.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("hollowfoot"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "hollowfoot.step.merge")
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("hollowfoot"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("hollowfoot"))
//	metrics.RecordStep(ctx, "merge", observability.StatusOK, duration)
//
// Without InitTracer or InitMeter the global providers are no-ops, so the
// helpers here are always safe to call.
package observability
