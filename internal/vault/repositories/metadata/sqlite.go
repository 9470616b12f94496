package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pwvault/internal/common"
	"github.com/dmitrijs2005/pwvault/internal/cryptox"
	"github.com/dmitrijs2005/pwvault/internal/dbx"
	"github.com/dmitrijs2005/pwvault/internal/vault/models"
)

// SQLiteRepository implements Repository over a DBTX.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Save(ctx context.Context, m *VaultMetadata) error {
	query := `INSERT INTO vault_metadata
			(id, name, created_at, updated_at, format_version, salt, verifier,
			 kdf_time, kdf_memory_kib, kdf_threads)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		m.Id, m.Name, models.EncodeTime(m.CreatedAt), models.EncodeTime(m.UpdatedAt),
		m.FormatVersion, m.Salt, m.Verifier,
		m.KDF.Time, m.KDF.MemoryKiB, m.KDF.Threads)
	if err != nil {
		return fmt.Errorf("failed to save vault metadata: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Load(ctx context.Context) (*VaultMetadata, error) {
	query := `SELECT id, name, created_at, updated_at, format_version, salt, verifier,
			kdf_time, kdf_memory_kib, kdf_threads
		FROM vault_metadata LIMIT 1`
	row := r.db.QueryRowContext(ctx, query)

	var (
		m                    VaultMetadata
		createdAt, updatedAt string
		kdfTime, kdfMemory   int64
		kdfThreads           int64
	)
	err := row.Scan(&m.Id, &m.Name, &createdAt, &updatedAt, &m.FormatVersion,
		&m.Salt, &m.Verifier, &kdfTime, &kdfMemory, &kdfThreads)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("vault metadata: %w", common.ErrNotFound)
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}

	if m.CreatedAt, err = models.DecodeTime(createdAt); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = models.DecodeTime(updatedAt); err != nil {
		return nil, err
	}
	m.KDF = cryptox.Params{Time: uint32(kdfTime), MemoryKiB: uint32(kdfMemory), Threads: uint8(kdfThreads)}
	return &m, nil
}
