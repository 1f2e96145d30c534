package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/notevault/internal/flagx"
	"github.com/dmitrijs2005/notevault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`

	VaultPath                string         `json:"vault_path"`
	KeychainPath             string         `json:"keychain_path"`
	SyncInterval             timex.Duration `json:"sync_interval"`
	HighLatencySyncThreshold timex.Duration `json:"high_latency_sync_threshold"`
	HardSyncTimeout          timex.Duration `json:"hard_sync_timeout"`
	MaxSyncPages             int            `json:"max_sync_pages"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Behavior:
//   - Reads and unmarshals the JSON into JsonConfig.
//   - Copies known fields into the provided Config.
//   - Panics on read or unmarshal errors (caller should recover if desired).
//
// Populated fields:
//   - ServerEndpointAddr, OnlineCheckInterval (always overwritten)
//   - VaultPath, KeychainPath, SyncInterval, HighLatencySyncThreshold,
//     HardSyncTimeout, MaxSyncPages (only when set to a non-zero value)
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config) {
	// Resolve file path from flags.
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)

	if jc.VaultPath != "" {
		cfg.VaultPath = jc.VaultPath
	}
	if jc.KeychainPath != "" {
		cfg.KeychainPath = jc.KeychainPath
	}
	if jc.SyncInterval.Duration != 0 {
		cfg.SyncInterval = jc.SyncInterval.Duration
	}
	if jc.HighLatencySyncThreshold.Duration != 0 {
		cfg.HighLatencySyncThreshold = jc.HighLatencySyncThreshold.Duration
	}
	if jc.HardSyncTimeout.Duration != 0 {
		cfg.HardSyncTimeout = jc.HardSyncTimeout.Duration
	}
	if jc.MaxSyncPages != 0 {
		cfg.MaxSyncPages = jc.MaxSyncPages
	}
}
