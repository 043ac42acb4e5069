package server

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.StoreBackend = config.BackendMemory
	c.HTTPAddr = "127.0.0.1:0"
	c.GRPCHealthAddr = "127.0.0.1:0"
	c.LogFormat = "text"
	c.ShutdownTimeout = time.Second
	return c
}

func TestNewApp_MemoryBackend(t *testing.T) {
	app, err := NewApp(context.Background(), memoryConfig())
	require.NoError(t, err)

	_, ok := app.repomanager.(*repomanager.MemoryRepositoryManager)
	assert.True(t, ok)
	assert.NotNil(t, app.authService)
}

func TestNewApp_Errors(t *testing.T) {
	c := memoryConfig()
	c.LogFormat = "xml"
	_, err := NewApp(context.Background(), c)
	assert.Error(t, err)

	c = memoryConfig()
	c.StoreBackend = "mongo"
	_, err = NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "storage init error")

	c = memoryConfig()
	c.RenewalSecret = c.AccessSecret
	_, err = NewApp(context.Background(), c)
	assert.Error(t, err)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), memoryConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop")
	}
}
