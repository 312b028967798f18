package progress_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/progress"
)

var fixed = time.Date(2023, time.September, 2, 18, 53, 26, 0, time.Local)

func newLogger(w *bytes.Buffer, level slog.Leveler) *slog.Logger {
	return slog.New(progress.NewHandler(w, &progress.Options{
		Level: level,
		Now:   func() time.Time { return fixed },
	}))
}

// record bypasses slog.Logger so the handler's clock is used.
func handle(t *testing.T, h slog.Handler, level slog.Level, msg string, attrs ...slog.Attr) {
	t.Helper()
	r := slog.NewRecord(time.Time{}, level, msg, 0)
	r.AddAttrs(attrs...)
	require.NoError(t, h.Handle(context.Background(), r))
}

func TestHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	h := progress.NewHandler(&buf, &progress.Options{Now: func() time.Time { return fixed }})

	handle(t, h, slog.LevelInfo, "Preliminaries complete. Initiating ETL process")
	handle(t, h, slog.LevelWarn, "conversion rate missing, column omitted", slog.String("currency", "EUR"))
	handle(t, h, progress.LevelCritical, "ETL process failed", slog.Any("error", errors.New("fetch: http 503")))

	assert.Equal(t,
		"2023-Sep-02-18:53:26 : Preliminaries complete. Initiating ETL process\n"+
			"2023-Sep-02-18:53:26 : WARN: conversion rate missing, column omitted currency=EUR\n"+
			"2023-Sep-02-18:53:26 : CRITICAL: ETL process failed error=\"fetch: http 503\"\n",
		buf.String())
}

func TestHandler_UsesRecordTime(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, nil).Info("Process Complete.")

	line := strings.TrimSuffix(buf.String(), "\n")
	ts, msg, ok := strings.Cut(line, " : ")
	require.True(t, ok)
	assert.Equal(t, "Process Complete.", msg)

	_, err := time.ParseInLocation(progress.TimeLayout, ts, time.Local)
	require.NoError(t, err)
}

func TestHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Debug("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "WARN: shown")
}

func TestHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	h := progress.NewHandler(&buf, &progress.Options{Now: func() time.Time { return fixed }}).
		WithAttrs([]slog.Attr{slog.String("variant", "gdp")}).
		WithGroup("stats")

	handle(t, h, slog.LevelInfo, "Process Complete.",
		slog.Int("loaded", 3),
		slog.Group("stage", slog.String("name", "load")),
	)

	assert.Equal(t,
		"2023-Sep-02-18:53:26 : Process Complete. variant=gdp stats.loaded=3 stats.stage.name=load\n",
		buf.String())
}

func TestOpen_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etl_project_log.txt")

	for _, msg := range []string{"first run", "second run"} {
		f, err := progress.Open(path)
		require.NoError(t, err)
		slog.New(progress.NewHandler(f, nil)).Info(msg)
		require.NoError(t, f.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], " : first run"))
	assert.True(t, strings.HasSuffix(lines[1], " : second run"))
}

func TestFanout(t *testing.T) {
	var file, console bytes.Buffer
	logger := slog.New(progress.Fanout{
		newLogger(&file, slog.LevelInfo).Handler(),
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn, ReplaceAttr: progress.ReplaceLevel}),
	}).With("variant", "banks")

	logger.Info("extracted", "rows", 2)
	logger.Log(context.Background(), progress.LevelCritical, "ETL process failed")

	assert.Contains(t, file.String(), "extracted variant=banks rows=2")
	assert.Contains(t, file.String(), "CRITICAL: ETL process failed variant=banks")
	assert.NotContains(t, console.String(), "extracted")
	assert.Contains(t, console.String(), "level=CRITICAL")
	assert.Contains(t, console.String(), "variant=banks")
}

func TestLevelName(t *testing.T) {
	assert.Equal(t, "INFO", progress.LevelName(slog.LevelInfo))
	assert.Equal(t, "ERROR", progress.LevelName(slog.LevelError))
	assert.Equal(t, "CRITICAL", progress.LevelName(progress.LevelCritical))
}
