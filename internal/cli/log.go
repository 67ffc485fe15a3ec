package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"brickgrid.ai/internal/sim/grid"
)

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext falls back to log.Default when ctx carries no logger.
func loggerFromContext(ctx context.Context) *log.Logger {
	if ctx == nil {
		return log.Default()
	}
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// logHost stands in for the rendering and physics host when running headless:
// preview and physics switches become debug log lines.
type logHost struct {
	logger *log.Logger
}

func (h logHost) ShowPreview(id uuid.UUID, p grid.Preview) {
	h.logger.Debug("preview", "id", id, "origin", p.Origin, "dir", p.Dir, "anchor", p.Anchor)
}

func (h logHost) HidePreview(id uuid.UUID) {
	h.logger.Debug("preview hidden", "id", id)
}

func (h logHost) SetSimulated(id uuid.UUID, enabled bool) {
	h.logger.Debug("physics", "id", id, "simulated", enabled)
}

var (
	_ grid.PreviewRenderer = logHost{}
	_ grid.PhysicsToggle   = logHost{}
)
