package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewHandlerJSON(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(newHandler(&buf, "json", slog.LevelInfo))
	l.Info("ticket checked in", "ticket_code", "TKT-ABCDE-FGHJK")
	assert.Contains(t, buf.String(), `"ticket_code":"TKT-ABCDE-FGHJK"`)
}

func TestNewHandlerTextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(newHandler(&buf, "text", slog.LevelWarn))
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
