package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	return &Manager{configPath: filepath.Join(dir, "coordinator_config.json"), config: DefaultCoordinatorConfig()}
}

func TestLoadReturnsDefaultsWhenFileMissing(t *testing.T) {
	m := newTestManager(t)
	cfg, err := m.Load()
	require.NoError(t, err)
	require.Equal(t, DefaultCoordinatorConfig().ListenPort, cfg.ListenPort)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	m := newTestManager(t)
	cfg := m.Get()
	cfg.ListenPort = 5001
	cfg.MinNodes = 5
	require.NoError(t, m.Save(cfg))

	reloaded := &Manager{configPath: m.configPath, config: DefaultCoordinatorConfig()}
	loaded, err := reloaded.Load()
	require.NoError(t, err)
	require.Equal(t, 5001, loaded.ListenPort)
	require.Equal(t, 5, loaded.MinNodes)
	require.NotEmpty(t, loaded.LastSavedAt)
}

func TestGetReturnsIndependentCopy(t *testing.T) {
	m := newTestManager(t)
	cfg := m.Get()
	cfg.BootstrapPeers = append(cfg.BootstrapPeers, "/ip4/127.0.0.1/tcp/4001")

	require.Empty(t, m.Get().BootstrapPeers)
}

func TestAddBootstrapPeerDeduplicates(t *testing.T) {
	m := newTestManager(t)
	m.AddBootstrapPeer("/ip4/127.0.0.1/tcp/4001")
	m.AddBootstrapPeer("/ip4/127.0.0.1/tcp/4001")
	require.Len(t, m.Get().BootstrapPeers, 1)
}

func TestRemoveBootstrapPeer(t *testing.T) {
	m := newTestManager(t)
	m.AddBootstrapPeer("/ip4/127.0.0.1/tcp/4001")
	m.AddBootstrapPeer("/ip4/127.0.0.1/tcp/4002")
	m.RemoveBootstrapPeer("/ip4/127.0.0.1/tcp/4001")

	require.Equal(t, []string{"/ip4/127.0.0.1/tcp/4002"}, m.Get().BootstrapPeers)
}
