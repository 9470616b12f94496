package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/pwvault/internal/common"
	"github.com/dmitrijs2005/pwvault/internal/dbx"
	"github.com/dmitrijs2005/pwvault/internal/vault/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or
// *sql.Tx), so the same code serves normal operation and transactional
// restore.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const entryColumns = `id, site, username, encrypted_password, notes, tags, favorite, created_at, updated_at, last_used`

func (r *SQLiteRepository) Insert(ctx context.Context, e *models.PasswordEntry) error {
	tags, err := models.EncodeTags(e.Tags)
	if err != nil {
		return err
	}

	query := `INSERT INTO password_entries (` + entryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		e.Id, e.Site, e.Username, e.EncryptedPassword, e.Notes, tags,
		boolToInt(e.Favorite), models.EncodeTime(e.CreatedAt), models.EncodeTime(e.UpdatedAt),
		models.EncodeTimePtr(e.LastUsed))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("entry %s: %w", e.Id, common.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, e *models.PasswordEntry) error {
	tags, err := models.EncodeTags(e.Tags)
	if err != nil {
		return err
	}

	query := `UPDATE password_entries SET
			site = ?, username = ?, encrypted_password = ?, notes = ?, tags = ?,
			favorite = ?, updated_at = ?, last_used = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		e.Site, e.Username, e.EncryptedPassword, e.Notes, tags,
		boolToInt(e.Favorite), models.EncodeTime(e.UpdatedAt), models.EncodeTimePtr(e.LastUsed),
		e.Id)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}

	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return fmt.Errorf("entry %s: %w", e.Id, common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.PasswordEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM password_entries WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	e, err := scanEntry(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("entry %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM password_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return fmt.Errorf("entry %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) Search(ctx context.Context, query string, favoriteOnly bool) ([]models.PasswordEntry, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + entryColumns + ` FROM password_entries WHERE 1=1`)
	var args []any

	if query != "" {
		sb.WriteString(` AND (site LIKE ? OR username LIKE ? OR notes LIKE ? OR tags LIKE ?)`)
		like := "%" + query + "%"
		args = append(args, like, like, like, like)
	}
	if favoriteOnly {
		sb.WriteString(` AND favorite = 1`)
	}
	sb.WriteString(` ORDER BY updated_at DESC, id ASC`)

	return r.queryEntries(ctx, sb.String(), args...)
}

func (r *SQLiteRepository) ListSince(ctx context.Context, since time.Time) ([]models.PasswordEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM password_entries
		WHERE updated_at > ? ORDER BY updated_at DESC, id ASC`
	return r.queryEntries(ctx, query, models.EncodeTime(since))
}

func (r *SQLiteRepository) MarkUsed(ctx context.Context, id string, when time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE password_entries SET last_used = ? WHERE id = ?`,
		models.EncodeTime(when), id)
	if err != nil {
		return fmt.Errorf("failed to mark entry used: %w", err)
	}

	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return fmt.Errorf("entry %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM password_entries`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountFavorites(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM password_entries WHERE favorite = 1`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count favorite entries: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) queryEntries(ctx context.Context, query string, args ...any) ([]models.PasswordEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	defer rows.Close()

	var result []models.PasswordEntry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanEntry(scan func(dest ...any) error) (*models.PasswordEntry, error) {
	var (
		e         models.PasswordEntry
		tags      string
		favorite  int
		createdAt string
		updatedAt string
		lastUsed  *string
	)

	err := scan(&e.Id, &e.Site, &e.Username, &e.EncryptedPassword, &e.Notes,
		&tags, &favorite, &createdAt, &updatedAt, &lastUsed)
	if err != nil {
		return nil, err
	}

	if e.Tags, err = models.DecodeTags(tags); err != nil {
		return nil, err
	}
	e.Favorite = favorite != 0
	if e.CreatedAt, err = models.DecodeTime(createdAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = models.DecodeTime(updatedAt); err != nil {
		return nil, err
	}
	if e.LastUsed, err = models.DecodeTimePtr(lastUsed); err != nil {
		return nil, err
	}
	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
