package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

const appDirName = "pwgen"

// DefaultVaultPath returns <data_dir>/pwgen/vault.db under the platform's
// per-user configuration directory, creating the directory if needed.
func DefaultVaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config dir: %w", err)
	}

	dir := filepath.Join(base, appDirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return filepath.Join(dir, "vault.db"), nil
}
