package observability

import (
	"log/slog"
	"time"
)

// Timer measures a single operation and reports it to a logger and a
// Metrics sink when stopped.
type Timer struct {
	operation string
	start     time.Time
	logger    *slog.Logger
	metrics   Metrics
	tags      []Tag
}

// StartTimer starts timing operation.
func StartTimer(operation string) *Timer {
	return &Timer{operation: operation, start: time.Now()}
}

// WithLogger sets the logger used when the timer stops.
func (t *Timer) WithLogger(logger *slog.Logger) *Timer {
	t.logger = logger
	return t
}

// WithMetrics sets the metrics sink used when the timer stops.
func (t *Timer) WithMetrics(metrics Metrics) *Timer {
	t.metrics = metrics
	return t
}

// WithTags adds labels to every metric the timer records.
func (t *Timer) WithTags(tags ...Tag) *Timer {
	t.tags = append(t.tags, tags...)
	return t
}

// Stop records a successful completion.
func (t *Timer) Stop() time.Duration {
	return t.StopWithError(nil)
}

// StopWithError records the outcome of the operation. Caller errors are
// still errors here; callers that want to separate them pass their own
// outcome tag.
func (t *Timer) StopWithError(err error) time.Duration {
	elapsed := time.Since(t.start)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}

	if t.logger != nil {
		if err != nil {
			t.logger.Debug("operation failed",
				OperationKey, t.operation,
				DurationKey, elapsed.Milliseconds(),
				ErrorKey, err.Error(),
			)
		} else {
			t.logger.Debug("operation completed",
				OperationKey, t.operation,
				DurationKey, elapsed.Milliseconds(),
			)
		}
	}

	if t.metrics != nil {
		tags := make([]Tag, 0, len(t.tags)+2)
		tags = append(tags, t.tags...)
		tags = append(tags, T(OperationKey, t.operation))
		t.metrics.Timing(MetricOperationDuration, elapsed, tags...)
		t.metrics.Counter(MetricOperationTotal, 1, append(tags, T(StatusKey, outcome))...)
		if err != nil {
			t.metrics.Counter(MetricOperationErrors, 1, tags...)
		}
	}

	return elapsed
}

// Elapsed returns the time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
