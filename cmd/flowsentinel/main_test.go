package main

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"FlowSentinel/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig(t *testing.T, listen string) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Source.Kind = "synthetic"
	cfg.Source.Tick = 10 * time.Millisecond
	cfg.HTTP.Listen = listen
	cfg.Database.SQLitePath = filepath.Join(t.TempDir(), "journal.db")
	cfg.Telegram.BotToken, cfg.Telegram.ChatID = "", ""
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRun_ListenFailureIsReturned(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- run(context.Background(), testConfig(t, busy.Addr().String()), zaptest.NewLogger(t)) }()

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "address already in use")
	case <-time.After(5 * time.Second):
		t.Fatal("run kept going although the listen address was taken")
	}
}

func TestRun_StopsCleanlyOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx, testConfig(t, "127.0.0.1:0"), zaptest.NewLogger(t)) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}

func TestNewLogger_RejectsUnknownLevel(t *testing.T) {
	_, err := newLogger("chatty", false)
	assert.Error(t, err)

	logger, err := newLogger("debug", true)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
