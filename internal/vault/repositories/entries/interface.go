// Package entries persists password entry rows.
package entries

import (
	"context"
	"time"

	"github.com/dmitrijs2005/pwvault/internal/vault/models"
)

// Repository is the persistence contract for password entries. Rows carry
// the encrypted password blob; decryption happens a layer up.
type Repository interface {
	Insert(ctx context.Context, e *models.PasswordEntry) error
	Update(ctx context.Context, e *models.PasswordEntry) error
	GetByID(ctx context.Context, id string) (*models.PasswordEntry, error)
	DeleteByID(ctx context.Context, id string) error

	// Search returns rows matching the query substring (site, username,
	// notes, tags) and the favorite flag, ordered by updated_at descending
	// then id ascending. Tag set filtering happens in the store.
	Search(ctx context.Context, query string, favoriteOnly bool) ([]models.PasswordEntry, error)

	// ListSince returns rows with updated_at strictly after since, in the
	// same order as Search.
	ListSince(ctx context.Context, since time.Time) ([]models.PasswordEntry, error)

	MarkUsed(ctx context.Context, id string, when time.Time) error
	Count(ctx context.Context) (int64, error)
	CountFavorites(ctx context.Context) (int64, error)
}
