// Package config holds runtime settings for the pwvault CLI.
package config

import (
	"time"

	"github.com/dmitrijs2005/pwvault/internal/cryptox"
	"github.com/dmitrijs2005/pwvault/internal/filex"
)

// Config holds runtime settings.
//
// Fields:
//   - VaultPath: location of the vault database file.
//   - IdleTimeout: how long an unlocked session survives without use.
//   - KDFTime/KDFMemoryKiB/KDFThreads: argon2id costs for new vaults.
type Config struct {
	VaultPath    string
	IdleTimeout  time.Duration
	KDFTime      uint32
	KDFMemoryKiB uint32
	KDFThreads   uint8
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	if path, err := filex.DefaultVaultPath(); err == nil {
		c.VaultPath = path
	} else {
		c.VaultPath = "vault.db"
	}
	c.IdleTimeout = 5 * time.Minute
	p := cryptox.DefaultParams()
	c.KDFTime = p.Time
	c.KDFMemoryKiB = p.MemoryKiB
	c.KDFThreads = p.Threads
}

// KDFParams returns the configured argon2id costs.
func (c *Config) KDFParams() cryptox.Params {
	return cryptox.Params{Time: c.KDFTime, MemoryKiB: c.KDFMemoryKiB, Threads: c.KDFThreads}
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from a JSON file when one is named via -c/-config. Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	return cfg
}
