package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/pwvault/internal/flagx"
	"github.com/dmitrijs2005/pwvault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "5m"
// or as integer nanoseconds.
type JsonConfig struct {
	VaultPath    string         `json:"vault_path"`
	IdleTimeout  timex.Duration `json:"idle_timeout"`
	KDFTime      uint32         `json:"kdf_time"`
	KDFMemoryKiB uint32         `json:"kdf_memory_kib"`
	KDFThreads   uint8          `json:"kdf_threads"`
}

// parseJson overlays Config with values loaded from a JSON file named via
// the -c/-config flags. Zero values in the file leave the defaults alone.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.VaultPath != "" {
		cfg.VaultPath = jc.VaultPath
	}
	if jc.IdleTimeout.Duration != 0 {
		cfg.IdleTimeout = jc.IdleTimeout.Duration
	}
	if jc.KDFTime != 0 {
		cfg.KDFTime = jc.KDFTime
	}
	if jc.KDFMemoryKiB != 0 {
		cfg.KDFMemoryKiB = jc.KDFMemoryKiB
	}
	if jc.KDFThreads != 0 {
		cfg.KDFThreads = jc.KDFThreads
	}
}
