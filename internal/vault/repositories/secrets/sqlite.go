package secrets

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
// *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const secretColumns = `id, name, description, secret_type, encrypted_data, tags, environment, project, favorite, created_at, updated_at, last_accessed, expires_at`

func (r *SQLiteRepository) Insert(ctx context.Context, s *models.SecretEntry) error {
	tags, err := models.EncodeTags(s.Tags)
	if err != nil {
		return err
	}

	query := `INSERT INTO secrets (` + secretColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		s.Id, s.Name, s.Description, string(s.Type), s.EncryptedData, tags,
		s.Environment, s.Project, boolToInt(s.Favorite),
		models.EncodeTime(s.CreatedAt), models.EncodeTime(s.UpdatedAt),
		models.EncodeTimePtr(s.LastAccessed), models.EncodeTimePtr(s.ExpiresAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("secret %s: %w", s.Id, common.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert secret: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, s *models.SecretEntry) error {
	tags, err := models.EncodeTags(s.Tags)
	if err != nil {
		return err
	}

	query := `UPDATE secrets SET
			name = ?, description = ?, secret_type = ?, encrypted_data = ?, tags = ?,
			environment = ?, project = ?, favorite = ?, updated_at = ?, expires_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		s.Name, s.Description, string(s.Type), s.EncryptedData, tags,
		s.Environment, s.Project, boolToInt(s.Favorite),
		models.EncodeTime(s.UpdatedAt), models.EncodeTimePtr(s.ExpiresAt),
		s.Id)
	if err != nil {
		return fmt.Errorf("failed to update secret: %w", err)
	}

	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return fmt.Errorf("secret %s: %w", s.Id, common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.SecretEntry, error) {
	query := `SELECT ` + secretColumns + ` FROM secrets WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	s, err := scanSecret(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("secret %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM secrets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}

	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return fmt.Errorf("secret %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) Search(ctx context.Context, f models.SecretFilter) ([]models.SecretEntry, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + secretColumns + ` FROM secrets WHERE 1=1`)
	var args []any

	if f.Query != "" {
		sb.WriteString(` AND (name LIKE ? OR description LIKE ? OR tags LIKE ?)`)
		like := "%" + f.Query + "%"
		args = append(args, like, like, like)
	}
	if f.Type != "" {
		sb.WriteString(` AND secret_type = ?`)
		args = append(args, string(f.Type))
	}
	if f.FavoriteOnly {
		sb.WriteString(` AND favorite = 1`)
	}
	if f.Environment != "" {
		sb.WriteString(` AND environment = ?`)
		args = append(args, f.Environment)
	}
	if f.Project != "" {
		sb.WriteString(` AND project = ?`)
		args = append(args, f.Project)
	}
	sb.WriteString(` ORDER BY updated_at DESC, id ASC`)

	return r.querySecrets(ctx, sb.String(), args...)
}

func (r *SQLiteRepository) ListSince(ctx context.Context, since time.Time) ([]models.SecretEntry, error) {
	query := `SELECT ` + secretColumns + ` FROM secrets
		WHERE updated_at > ? ORDER BY updated_at DESC, id ASC`
	return r.querySecrets(ctx, query, models.EncodeTime(since))
}

func (r *SQLiteRepository) ExpiringBetween(ctx context.Context, from, to time.Time) ([]models.SecretEntry, error) {
	query := `SELECT ` + secretColumns + ` FROM secrets
		WHERE expires_at IS NOT NULL AND expires_at > ? AND expires_at <= ?
		ORDER BY expires_at ASC, id ASC`
	return r.querySecrets(ctx, query, models.EncodeTime(from), models.EncodeTime(to))
}

func (r *SQLiteRepository) MarkAccessed(ctx context.Context, id string, when time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE secrets SET last_accessed = ? WHERE id = ?`,
		models.EncodeTime(when), id)
	if err != nil {
		return fmt.Errorf("failed to mark secret accessed: %w", err)
	}

	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return fmt.Errorf("secret %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) AppendAudit(ctx context.Context, rec *models.AuditRecord) error {
	query := `INSERT INTO secret_audit_log (secret_id, timestamp, action, actor, details)
		VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		rec.SecretId, models.EncodeTime(rec.Timestamp), string(rec.Action),
		nullString(rec.Actor), nullString(rec.Details))
	if err != nil {
		return fmt.Errorf("failed to append audit row: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAuditFor(ctx context.Context, secretID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM secret_audit_log WHERE secret_id = ?`, secretID)
	if err != nil {
		return fmt.Errorf("failed to delete audit rows: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) AuditFor(ctx context.Context, secretID string) ([]models.AuditRecord, error) {
	query := `SELECT id, secret_id, timestamp, action, actor, details
		FROM secret_audit_log WHERE secret_id = ? ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query, secretID)
	if err != nil {
		return nil, fmt.Errorf("failed to select audit rows: %w", err)
	}
	defer rows.Close()

	var result []models.AuditRecord
	for rows.Next() {
		var (
			rec            models.AuditRecord
			ts             string
			action         string
			actor, details *string
		)
		if err := rows.Scan(&rec.Id, &rec.SecretId, &ts, &action, &actor, &details); err != nil {
			return nil, err
		}
		if rec.Timestamp, err = models.DecodeTime(ts); err != nil {
			return nil, err
		}
		rec.Action = models.AuditAction(action)
		if actor != nil {
			rec.Actor = *actor
		}
		if details != nil {
			rec.Details = *details
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM secrets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count secrets: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountFavorites(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM secrets WHERE favorite = 1`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count favorite secrets: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountExpiredAt(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM secrets WHERE expires_at IS NOT NULL AND expires_at < ?`,
		models.EncodeTime(now)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count expired secrets: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountByType(ctx context.Context) (map[models.SecretType]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT secret_type, COUNT(*) FROM secrets GROUP BY secret_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to count secrets by type: %w", err)
	}
	defer rows.Close()

	result := make(map[models.SecretType]int64)
	for rows.Next() {
		var (
			typ string
			n   int64
		)
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		result[models.SecretType(typ)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) querySecrets(ctx context.Context, query string, args ...any) ([]models.SecretEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select secrets: %w", err)
	}
	defer rows.Close()

	var result []models.SecretEntry
	for rows.Next() {
		s, err := scanSecret(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanSecret(scan func(dest ...any) error) (*models.SecretEntry, error) {
	var (
		s            models.SecretEntry
		typ          string
		tags         string
		favorite     int
		createdAt    string
		updatedAt    string
		lastAccessed *string
		expiresAt    *string
	)

	err := scan(&s.Id, &s.Name, &s.Description, &typ, &s.EncryptedData, &tags,
		&s.Environment, &s.Project, &favorite, &createdAt, &updatedAt,
		&lastAccessed, &expiresAt)
	if err != nil {
		return nil, err
	}

	s.Type = models.SecretType(typ)
	if s.Tags, err = models.DecodeTags(tags); err != nil {
		return nil, err
	}
	s.Favorite = favorite != 0
	if s.CreatedAt, err = models.DecodeTime(createdAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = models.DecodeTime(updatedAt); err != nil {
		return nil, err
	}
	if s.LastAccessed, err = models.DecodeTimePtr(lastAccessed); err != nil {
		return nil, err
	}
	if s.ExpiresAt, err = models.DecodeTimePtr(expiresAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
