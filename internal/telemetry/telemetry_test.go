package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Disabled(t *testing.T) {
	for _, endpoint := range []string{"", "   ", "http://"} {
		shutdown, err := Init(context.Background(), Config{Endpoint: endpoint, ServiceName: "test"}, nil)
		require.NoError(t, err, endpoint)
		require.NotNil(t, shutdown)
		assert.NoError(t, shutdown(context.Background()))
	}
}

func TestInit_Enabled(t *testing.T) {
	// экспортёр не ходит в сеть при создании, коллектор не нужен
	shutdown, err := Init(context.Background(), Config{Endpoint: "http://127.0.0.1:4318", ServiceName: "test"}, nil)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		raw          string
		wantHost     string
		wantInsecure bool
	}{
		{"http://collector:4318", "collector:4318", true},
		{"https://collector:4318/", "collector:4318", false},
		{"collector:4318", "collector:4318", true},
		{" collector:4318/ ", "collector:4318", true},
		{"", "", false},
	}
	for _, tt := range tests {
		host, insecure := parseEndpoint(tt.raw)
		assert.Equal(t, tt.wantHost, host, tt.raw)
		assert.Equal(t, tt.wantInsecure, insecure, tt.raw)
	}
}
