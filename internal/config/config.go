// Package config loads and persists the coordinator's JSON configuration
// file, adapted from the teacher's go/config.go ConfigManager/NodeConfig:
// same load-or-default-on-missing-file behavior, same copy-on-read
// protection against external mutation, same best-effort home-directory
// resolution with a temp-dir fallback.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CoordinatorConfig is the coordinator process's persistent configuration,
// covering the listen/threshold/timeout keys spec.md §6 names.
type CoordinatorConfig struct {
	ListenHost                string            `json:"listen_host"`
	ListenPort                int               `json:"listen_port"`
	MinNodes                  int               `json:"min_nodes"`
	NodeTimeoutMs             int               `json:"node_timeout_ms"`
	ComputationTimeoutMs      int               `json:"computation_timeout_ms"`
	MaxConcurrentComputations int               `json:"max_concurrent_computations"`
	FaultToleranceEnabled     bool              `json:"fault_tolerance_enabled"`
	BootstrapPeers            []string          `json:"bootstrap_peers"`
	LastSavedAt               string            `json:"last_saved_at"`
	CustomSettings            map[string]string `json:"custom_settings,omitempty"`
}

// DefaultCoordinatorConfig returns the coordinator's out-of-the-box
// configuration, matching spec.md §6's documented defaults.
func DefaultCoordinatorConfig() *CoordinatorConfig {
	return &CoordinatorConfig{
		ListenHost:                "0.0.0.0",
		ListenPort:                4001,
		MinNodes:                  3,
		NodeTimeoutMs:             30_000,
		ComputationTimeoutMs:      300_000,
		MaxConcurrentComputations: 10,
		FaultToleranceEnabled:     true,
		CustomSettings:            make(map[string]string),
	}
}

// Manager handles loading and saving the coordinator's configuration file.
type Manager struct {
	configPath string
	config     *CoordinatorConfig
	mu         sync.RWMutex
}

// NewManager builds a Manager whose config file lives at
// ~/.smpc-core/coordinator_config.json (or the OS temp dir if the home
// directory can't be resolved or created).
func NewManager() *Manager {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Printf("⚠️  [CONFIG] Could not get user home directory: %v", err)
		homeDir = os.TempDir()
	}

	configDir := filepath.Join(homeDir, ".smpc-core")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		log.Printf("⚠️  [CONFIG] Could not create config directory: %v", err)
		configDir = os.TempDir()
	}

	return &Manager{
		configPath: filepath.Join(configDir, "coordinator_config.json"),
		config:     DefaultCoordinatorConfig(),
	}
}

// ConfigPath returns the file path this manager reads from and writes to.
func (m *Manager) ConfigPath() string {
	return m.configPath
}

// Load reads configuration from disk, or returns the default configuration
// unchanged if the file doesn't exist yet.
func (m *Manager) Load() (*CoordinatorConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		log.Printf("📄 [CONFIG] No existing config file found at %s, using defaults", m.configPath)
		return m.config, nil
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, m.config); err != nil {
		return nil, fmt.Errorf("config: failed to parse config file: %w", err)
	}

	log.Printf("✅ [CONFIG] Loaded configuration from %s (last saved: %s)", m.configPath, m.config.LastSavedAt)
	return m.config, nil
}

// Save writes cfg to disk, stamping LastSavedAt.
func (m *Manager) Save(cfg *CoordinatorConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg.LastSavedAt = time.Now().Format(time.RFC3339)

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: failed to marshal config: %w", err)
	}
	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("config: failed to write config file: %w", err)
	}

	m.config = cfg
	log.Printf("✅ [CONFIG] Saved configuration to %s", m.configPath)
	return nil
}

// Get returns a deep copy of the current in-memory configuration, safe for
// a caller to read without racing a concurrent Load/Save.
func (m *Manager) Get() *CoordinatorConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp := *m.config
	if m.config.CustomSettings != nil {
		cp.CustomSettings = make(map[string]string, len(m.config.CustomSettings))
		for k, v := range m.config.CustomSettings {
			cp.CustomSettings[k] = v
		}
	}
	if m.config.BootstrapPeers != nil {
		cp.BootstrapPeers = make([]string, len(m.config.BootstrapPeers))
		copy(cp.BootstrapPeers, m.config.BootstrapPeers)
	}
	return &cp
}

// AddBootstrapPeer appends peerAddr to the bootstrap list, a no-op if it's
// already present.
func (m *Manager) AddBootstrapPeer(peerAddr string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.config.BootstrapPeers {
		if existing == peerAddr {
			return
		}
	}
	m.config.BootstrapPeers = append(m.config.BootstrapPeers, peerAddr)
	log.Printf("➕ [CONFIG] Added bootstrap peer: %s", peerAddr)
}

// RemoveBootstrapPeer drops peerAddr from the bootstrap list if present.
func (m *Manager) RemoveBootstrapPeer(peerAddr string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.config.BootstrapPeers[:0]
	removed := false
	for _, existing := range m.config.BootstrapPeers {
		if existing == peerAddr {
			removed = true
			continue
		}
		out = append(out, existing)
	}
	m.config.BootstrapPeers = out
	if removed {
		log.Printf("➖ [CONFIG] Removed bootstrap peer: %s", peerAddr)
	}
}
