package metric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/wordstream/pkg/security"
)

func TestNewServer_Defaults(t *testing.T) {
	registry := NewMetricsRegistry()

	srv := NewServer(0, "", registry, security.Config{})
	require.NotNil(t, srv)

	assert.Equal(t, 9090, srv.port)
	assert.Equal(t, "/metrics", srv.path)
}

func TestServer_Address(t *testing.T) {
	registry := NewMetricsRegistry()

	srv := NewServer(9191, "/metrics", registry, security.Config{})
	assert.Equal(t, "http://localhost:9191/metrics", srv.Address())

	tlsCfg := security.Config{}
	tlsCfg.TLS.Server.Enabled = true
	srv = NewServer(9191, "/metrics", registry, tlsCfg)
	assert.Equal(t, "https://localhost:9191/metrics", srv.Address())
}

func TestServer_StartWithoutRegistry(t *testing.T) {
	srv := NewServer(9191, "/metrics", nil, security.Config{})
	err := srv.Start()
	assert.Error(t, err)
}

func TestServer_StopWithoutStart(t *testing.T) {
	registry := NewMetricsRegistry()

	srv := NewServer(9191, "/metrics", registry, security.Config{})
	assert.NoError(t, srv.Stop())
}
