// Package metadata persists the single vault_metadata row: salt, verifier,
// KDF costs, and format version.
package metadata

import (
	"context"
	"time"

	"github.com/dmitrijs2005/pwvault/internal/cryptox"
)

// VaultMetadata is the vault's identity and key-check material. The salt is
// generated once at init and never rotated silently; the verifier is the
// marker ciphertext checked on unlock.
type VaultMetadata struct {
	Id            string
	Name          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	FormatVersion int
	Salt          []byte
	Verifier      []byte
	KDF           cryptox.Params
}

// Repository is the persistence contract for the metadata row.
type Repository interface {
	Save(ctx context.Context, m *VaultMetadata) error
	// Load returns common.ErrNotFound when the vault was never initialized.
	Load(ctx context.Context) (*VaultMetadata, error)
}
