// Package secrets persists typed secret rows and their audit log.
package secrets

import (
	"context"
	"time"

	"github.com/dmitrijs2005/pwvault/internal/vault/models"
)

// Repository is the persistence contract for typed secrets. The audit log
// lives here too: rows reference secrets by id, and the cascading delete is
// a secondary query, not a graph traversal.
type Repository interface {
	Insert(ctx context.Context, s *models.SecretEntry) error
	Update(ctx context.Context, s *models.SecretEntry) error
	GetByID(ctx context.Context, id string) (*models.SecretEntry, error)
	DeleteByID(ctx context.Context, id string) error

	// Search returns rows matching the query substring (name, description,
	// tags) plus the exact-match filters, ordered by updated_at descending
	// then id ascending. Tag set filtering happens in the store.
	Search(ctx context.Context, f models.SecretFilter) ([]models.SecretEntry, error)

	ListSince(ctx context.Context, since time.Time) ([]models.SecretEntry, error)
	ExpiringBetween(ctx context.Context, from, to time.Time) ([]models.SecretEntry, error)
	MarkAccessed(ctx context.Context, id string, when time.Time) error

	// Audit operations. AppendAudit adds one row; DeleteAuditFor removes a
	// secret's rows as part of its cascading delete.
	AppendAudit(ctx context.Context, rec *models.AuditRecord) error
	DeleteAuditFor(ctx context.Context, secretID string) error
	AuditFor(ctx context.Context, secretID string) ([]models.AuditRecord, error)

	Count(ctx context.Context) (int64, error)
	CountFavorites(ctx context.Context) (int64, error)
	CountExpiredAt(ctx context.Context, now time.Time) (int64, error)
	CountByType(ctx context.Context) (map[models.SecretType]int64, error)
}
