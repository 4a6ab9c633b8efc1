package slogpretty

import (
	"bytes"
	"context"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/slog"
)

func TestHandler(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer

	log := slog.New(New(&buf, Options{SlogOpts: &slog.HandlerOptions{Level: slog.LevelInfo}}))
	log.With("component", "importer").Info("import completed", "synced", 250)

	out := buf.String()
	assert.Contains(t, out, "INFO:")
	assert.Contains(t, out, "import completed")
	assert.Contains(t, out, `"component": "importer"`)
	assert.Contains(t, out, `"synced": 250`)
}

func TestHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	h := New(&buf, Options{SlogOpts: &slog.HandlerOptions{Level: slog.LevelWarn}})

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}
