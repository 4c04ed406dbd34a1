package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/chemlayout/pkg/observability"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// logHooks reports pipeline and cache events at debug level. It is
// registered with --verbose.
type logHooks struct {
	logger *log.Logger
}

var (
	_ observability.PipelineHooks = (*logHooks)(nil)
	_ observability.CacheHooks    = (*logHooks)(nil)
)

func (h *logHooks) OnReadStart(_ context.Context, format, source string) {
	h.logger.Debug("reading", "format", format, "source", source)
}

func (h *logHooks) OnReadComplete(_ context.Context, format, source string, atoms int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("read failed", "source", source, "error", err)
		return
	}
	h.logger.Debug("read", "source", source, "atoms", atoms, "duration", d.Round(time.Microsecond))
}

func (h *logHooks) OnLayoutStart(_ context.Context, molecule string, atoms int) {
	h.logger.Debug("layout started", "molecule", molecule, "atoms", atoms)
}

func (h *logHooks) OnLayoutComplete(_ context.Context, molecule string, degraded bool, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("layout failed", "molecule", molecule, "error", err)
		return
	}
	h.logger.Debug("layout finished", "molecule", molecule, "degraded", degraded, "duration", d.Round(time.Microsecond))
}

func (h *logHooks) OnRenderStart(_ context.Context, formats []string) {
	h.logger.Debug("rendering", "formats", formats)
}

func (h *logHooks) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("render failed", "formats", formats, "error", err)
		return
	}
	h.logger.Debug("rendered", "formats", formats, "duration", d.Round(time.Microsecond))
}

func (h *logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache write", "type", keyType, "bytes", size)
}
