package build

import (
	"bytes"
	"context"
	"testing"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("")
	require.NoError(t, err)
	require.Equal(t, btclog.LevelInfo, level)

	level, err = ParseLevel("DEBUG")
	require.NoError(t, err)
	require.Equal(t, btclog.LevelDebug, level)

	_, err = ParseLevel("loud")
	require.Error(t, err)
}

func TestHandlerSetFansOut(t *testing.T) {
	var a, b bytes.Buffer
	set := NewHandlerSet(
		btclogv2.NewDefaultHandler(&a), btclogv2.NewDefaultHandler(&b),
	)
	logger := btclogv2.NewSLogger(set.SubSystem("CNTC"))

	logger.InfoS(context.Background(), "form submitted", "attempt", 1)
	logger.DebugS(context.Background(), "hidden at info level")

	for _, buf := range []*bytes.Buffer{&a, &b} {
		require.Contains(t, buf.String(), "form submitted")
		require.Contains(t, buf.String(), "CNTC")
		require.NotContains(t, buf.String(), "hidden at info level")
	}
}

func TestRootLoggerConsoleOnly(t *testing.T) {
	var out bytes.Buffer
	root, err := NewRootLogger(&LogConfig{Level: "debug", Console: &out})
	require.NoError(t, err)
	defer root.Close()

	root.SubLogger("WEBS").DebugS(context.Background(), "listening")
	require.Contains(t, out.String(), "listening")
	require.Contains(t, out.String(), "WEBS")
}

func TestRootLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultLogRotatorConfig()
	cfg.LogDir = dir

	root, err := NewRootLogger(&LogConfig{Level: "info", File: cfg})
	require.NoError(t, err)

	root.Infof("written to %s", "disk")
	require.NoError(t, root.Close())

	require.FileExists(t, dir+"/"+DefaultLogFilename)
}
