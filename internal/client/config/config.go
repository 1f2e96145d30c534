package config

import "time"

// Config holds runtime settings for the vault CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - VaultPath: SQLite DSN for the local vault database.
//   - KeychainPath: configured keychain file path; nothing reads it, the
//     keychain value is kept in the vault database's metadata table.
//   - SyncInterval: how often the sync controller's timer fires.
//   - HighLatencySyncThreshold: soft timeout after which a running sync
//     emits HighLatencySync without aborting.
//   - HardSyncTimeout: hard deadline that cancels an in-flight outbound
//     sync call and fails the run, rather than just warning about it.
//   - MaxSyncPages: cap on cursor_token pagination pages per sync run.
//
// Units: durations are time.Duration (e.g., 3*time.Second).
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration

	VaultPath                string
	KeychainPath             string
	SyncInterval             time.Duration
	HighLatencySyncThreshold time.Duration
	HardSyncTimeout          time.Duration
	MaxSyncPages             int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second

	c.VaultPath = "vault.db"
	c.KeychainPath = "vault.keychain"
	c.SyncInterval = 30 * time.Second
	c.HighLatencySyncThreshold = 8 * time.Second
	c.HardSyncTimeout = 25 * time.Second
	c.MaxSyncPages = 50
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
