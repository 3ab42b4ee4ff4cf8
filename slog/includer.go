package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/htmlinclude"
	"github.com/google/uuid"
)

// Ensure LoggingIncluder implements htmlinclude.Includer.
var _ htmlinclude.Includer = (*LoggingIncluder)(nil)

// LoggingIncluder wraps an Includer and logs a summary of every pass.
// Each pass gets a run id, which LoggingFetcher lines of the same pass carry.
type LoggingIncluder struct {
	next   htmlinclude.Includer
	logger *slog.Logger
}

// NewLoggingIncluder creates a new LoggingIncluder.
func NewLoggingIncluder(next htmlinclude.Includer, logger *slog.Logger) *LoggingIncluder {
	return &LoggingIncluder{next: next, logger: logger}
}

// Include delegates to the wrapped includer and logs the outcome counts.
func (i *LoggingIncluder) Include(ctx context.Context, html string) (out string, report *htmlinclude.Report, err error) {
	run := uuid.New().String()
	logger := i.logger.With("run", run)
	defer func(begin time.Time) {
		attrs := []any{"duration", time.Since(begin)}
		if report != nil {
			attrs = append(attrs,
				"placeholders", len(report.Outcomes)+report.Skipped,
				"succeeded", report.Succeeded(),
				"failed", report.Failed(),
				"skipped", report.Skipped,
			)
			for _, o := range report.Outcomes {
				if !o.OK() {
					logger.Debug("fragment cleared", "src", o.Source, "code", htmlinclude.ErrorCode(o.Err), "err", o.Err)
				}
			}
		}
		attrs = append(attrs, "err", err)
		logger.Info("include", attrs...)
	}(time.Now())
	return i.next.Include(withRun(ctx, run), html)
}
