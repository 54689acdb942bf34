package main

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-des/internal/api/http"
)

func TestServeUntilReportsListenFailure(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	app := httpapi.NewApp("weather-des-test", false)

	done := make(chan error, 1)
	go func() {
		done <- serveUntil(context.Background(), app, taken.Addr().String(), zap.NewNop())
	}()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serveUntil kept running after the listener failed")
	}
}

func TestServeUntilStopsOnCancel(t *testing.T) {
	app := httpapi.NewApp("weather-des-test", false)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() {
		done <- serveUntil(ctx, app, "127.0.0.1:0", zap.NewNop())
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serveUntil did not return after cancel")
	}
}
