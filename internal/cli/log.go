// Package cli implements the cardforge command-line interface.
//
// Commands render card files through templates, pack the images onto PDF
// sheets, generate artwork and manage templates, caches and configuration.
// The CLI is built with cobra and logs through charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - render: Render a card file to PNG images
//   - export: Render a card file and pack it into a print-ready PDF
//   - pack: Pack existing PNG images into a PDF
//   - backs: Lay out card backs for duplex printing
//   - generate: Generate artwork for a card
//   - template: List, create, validate and show templates
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cardforge/pkg/pipeline"
)

// newLogger returns the CLI logger: timestamps as 15:04:05.00, messages
// below level dropped.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress times one command step for the closing log line.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with keyvals and the elapsed time, e.g.
// "rendered deck cards=12 failed=0 cached=9 took=1.234s".
func (p *progress) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "took", time.Since(p.start).Round(time.Millisecond))
	p.logger.Info(msg, keyvals...)
}

// deckDone logs the closing line of a deck render.
func (p *progress) deckDone(stats pipeline.Stats) {
	p.done("rendered deck",
		"cards", stats.Rendered+stats.Failed,
		"failed", stats.Failed,
		"cached", stats.CacheHits,
		"warnings", stats.Warnings,
	)
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger attaches l to ctx for the command's helpers.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default() when there is none.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
