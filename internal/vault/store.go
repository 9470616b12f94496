package vault

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dmitrijs2005/pwvault/internal/common"
	"github.com/dmitrijs2005/pwvault/internal/cryptox"
	"github.com/dmitrijs2005/pwvault/internal/dbx"
	"github.com/dmitrijs2005/pwvault/internal/logging"
	"github.com/dmitrijs2005/pwvault/internal/vault/models"
	"github.com/dmitrijs2005/pwvault/internal/vault/repositories/entries"
	"github.com/dmitrijs2005/pwvault/internal/vault/repositories/secrets"
	"github.com/google/uuid"
)

// Store exposes the vault's record operations. Operations that decrypt or
// encrypt a record do so through the session key and fail with
// common.ErrLocked while the session is locked. DeleteEntry, DeleteSecret,
// MarkEntryUsed, SecretUpdatedAt, AuditLog, Stats and SecretsStatistics
// touch no encrypted field and do not consult the session, so they also run
// while it is locked.
type Store struct {
	sqlDB   *sql.DB // non-nil only on the root store; nil inside a transaction
	entries entries.Repository
	secrets secrets.Repository
	session *Session
	rng     io.Reader
	now     func() time.Time
	log     logging.Logger
}

func newStore(db *sql.DB, session *Session, rng io.Reader, now func() time.Time, log logging.Logger) *Store {
	return &Store{
		sqlDB:   db,
		entries: entries.NewSQLiteRepository(db),
		secrets: secrets.NewSQLiteRepository(db),
		session: session,
		rng:     rng,
		now:     now,
		log:     log,
	}
}

// bind returns a copy of the store whose repositories run against tx.
func (s *Store) bind(tx dbx.DBTX) *Store {
	return &Store{
		entries: entries.NewSQLiteRepository(tx),
		secrets: secrets.NewSQLiteRepository(tx),
		session: s.session,
		rng:     s.rng,
		now:     s.now,
		log:     s.log,
	}
}

// InTx runs fn with a store bound to a single transaction; everything fn
// writes commits or rolls back together. Restore runs through here. Calling
// InTx on an already-transactional store just reuses the transaction.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, txStore *Store) error) error {
	if s.sqlDB == nil {
		return fn(ctx, s)
	}
	return dbx.WithTx(ctx, s.sqlDB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, s.bind(tx))
	})
}

// NewEntryParams carries the caller-supplied fields of a new password entry.
type NewEntryParams struct {
	Site     string
	Username string
	Password string
	Notes    string
	Tags     []string
	Favorite bool
}

// AddEntry stores a new credential. The id is the fingerprint of
// (site, username); a second entry for the same pair fails with
// common.ErrDuplicate.
func (s *Store) AddEntry(ctx context.Context, p NewEntryParams) (*models.DecryptedPasswordEntry, error) {
	now := s.now().UTC()
	e := &models.DecryptedPasswordEntry{
		Id:        models.NewEntryID(p.Site, p.Username),
		Site:      p.Site,
		Username:  p.Username,
		Password:  p.Password,
		Notes:     p.Notes,
		Tags:      models.NormalizeTags(p.Tags),
		Favorite:  p.Favorite,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.PutEntry(ctx, e); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "entry added", "id", e.Id, "site", e.Site)
	return e, nil
}

// PutEntry inserts an entry preserving all of its fields, including id and
// timestamps. Restore uses this directly.
func (s *Store) PutEntry(ctx context.Context, e *models.DecryptedPasswordEntry) error {
	row, err := s.encryptEntry(e)
	if err != nil {
		return err
	}
	return s.entries.Insert(ctx, row)
}

// GetEntry returns the decrypted entry with the given id.
func (s *Store) GetEntry(ctx context.Context, id string) (*models.DecryptedPasswordEntry, error) {
	row, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.decryptEntry(row)
}

// UpdateEntry re-encrypts and stores the full entry, bumping updated_at.
// The id is preserved; a missing row fails with common.ErrNotFound.
func (s *Store) UpdateEntry(ctx context.Context, e *models.DecryptedPasswordEntry) error {
	e.UpdatedAt = s.now().UTC()
	e.Tags = models.NormalizeTags(e.Tags)
	if err := s.ReplaceEntry(ctx, e); err != nil {
		return err
	}
	s.log.Info(ctx, "entry updated", "id", e.Id)
	return nil
}

// ReplaceEntry writes the entry exactly as given, without touching
// updated_at. Restore uses this to preserve backup timestamps.
func (s *Store) ReplaceEntry(ctx context.Context, e *models.DecryptedPasswordEntry) error {
	row, err := s.encryptEntry(e)
	if err != nil {
		return err
	}
	return s.entries.Update(ctx, row)
}

// DeleteEntry removes the entry with the given id.
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	if err := s.entries.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.log.Info(ctx, "entry deleted", "id", id)
	return nil
}

// MarkEntryUsed sets last_used to the current time.
func (s *Store) MarkEntryUsed(ctx context.Context, id string) error {
	return s.entries.MarkUsed(ctx, id, s.now().UTC())
}

// SearchEntries returns decrypted entries matching the filter, ordered by
// updated_at descending then id ascending.
func (s *Store) SearchEntries(ctx context.Context, f models.SearchFilter) ([]models.DecryptedPasswordEntry, error) {
	rows, err := s.entries.Search(ctx, f.Query, f.FavoriteOnly)
	if err != nil {
		return nil, err
	}

	result := make([]models.DecryptedPasswordEntry, 0, len(rows))
	for i := range rows {
		if !models.HasAllTags(rows[i].Tags, f.Tags) {
			continue
		}
		e, err := s.decryptEntry(&rows[i])
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	return result, nil
}

// NewSecretParams carries the caller-supplied fields of a new typed secret.
type NewSecretParams struct {
	Name        string
	Description string
	Data        models.SecretData
	Tags        []string
	Environment string
	Project     string
	Favorite    bool
	ExpiresAt   *time.Time
}

// AddSecret stores a new typed secret and appends a "created" audit row.
func (s *Store) AddSecret(ctx context.Context, p NewSecretParams) (*models.DecryptedSecretEntry, error) {
	if p.Data == nil {
		return nil, fmt.Errorf("%w: secret payload required", common.ErrInvalidConfig)
	}

	now := s.now().UTC()
	entry := &models.DecryptedSecretEntry{
		Id:          uuid.NewString(),
		Name:        p.Name,
		Description: p.Description,
		Data:        p.Data,
		Tags:        models.NormalizeTags(p.Tags),
		Environment: p.Environment,
		Project:     p.Project,
		Favorite:    p.Favorite,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   p.ExpiresAt,
	}

	err := s.InTx(ctx, func(ctx context.Context, tx *Store) error {
		if err := tx.PutSecret(ctx, entry); err != nil {
			return err
		}
		return tx.appendAudit(ctx, entry.Id, models.AuditCreated, "")
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "secret added", "id", entry.Id, "type", entry.Data.SecretType())
	return entry, nil
}

// PutSecret inserts a secret preserving all of its fields. Restore uses this
// directly.
func (s *Store) PutSecret(ctx context.Context, entry *models.DecryptedSecretEntry) error {
	row, err := s.encryptSecret(entry)
	if err != nil {
		return err
	}
	return s.secrets.Insert(ctx, row)
}

// GetSecret returns the decrypted secret, bumps last_accessed, and appends
// an "accessed" audit row. Failed reads append nothing.
func (s *Store) GetSecret(ctx context.Context, id string) (*models.DecryptedSecretEntry, error) {
	row, err := s.secrets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	entry, err := s.decryptSecret(row)
	if err != nil {
		return nil, err
	}

	err = s.InTx(ctx, func(ctx context.Context, tx *Store) error {
		if err := tx.secrets.MarkAccessed(ctx, id, s.now().UTC()); err != nil {
			return err
		}
		return tx.appendAudit(ctx, id, models.AuditAccessed, "")
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// UpdateSecret re-encrypts and stores the full secret, bumping updated_at
// and appending an "updated" audit row.
func (s *Store) UpdateSecret(ctx context.Context, entry *models.DecryptedSecretEntry) error {
	entry.UpdatedAt = s.now().UTC()
	entry.Tags = models.NormalizeTags(entry.Tags)

	err := s.InTx(ctx, func(ctx context.Context, tx *Store) error {
		if err := tx.ReplaceSecret(ctx, entry); err != nil {
			return err
		}
		return tx.appendAudit(ctx, entry.Id, models.AuditUpdated, "")
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "secret updated", "id", entry.Id)
	return nil
}

// ReplaceSecret writes the secret exactly as given, without touching
// updated_at.
func (s *Store) ReplaceSecret(ctx context.Context, entry *models.DecryptedSecretEntry) error {
	row, err := s.encryptSecret(entry)
	if err != nil {
		return err
	}
	return s.secrets.Update(ctx, row)
}

// DeleteSecret removes the secret and, in the same transaction, its audit
// rows (cascading delete by secondary query).
func (s *Store) DeleteSecret(ctx context.Context, id string) error {
	err := s.InTx(ctx, func(ctx context.Context, tx *Store) error {
		if err := tx.secrets.DeleteByID(ctx, id); err != nil {
			return err
		}
		return tx.secrets.DeleteAuditFor(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "secret deleted", "id", id)
	return nil
}

// SearchSecrets returns decrypted secrets matching the filter, ordered by
// updated_at descending then id ascending.
func (s *Store) SearchSecrets(ctx context.Context, f models.SecretFilter) ([]models.DecryptedSecretEntry, error) {
	rows, err := s.secrets.Search(ctx, f)
	if err != nil {
		return nil, err
	}

	result := make([]models.DecryptedSecretEntry, 0, len(rows))
	for i := range rows {
		if !models.HasAllTags(rows[i].Tags, f.Tags) {
			continue
		}
		entry, err := s.decryptSecret(&rows[i])
		if err != nil {
			return nil, err
		}
		result = append(result, *entry)
	}
	return result, nil
}

// ExpiringSecrets returns secrets whose expiry falls within the next
// withinDays days, soonest first.
func (s *Store) ExpiringSecrets(ctx context.Context, withinDays int) ([]models.DecryptedSecretEntry, error) {
	if withinDays < 0 {
		return nil, fmt.Errorf("%w: within_days must not be negative", common.ErrInvalidConfig)
	}

	now := s.now().UTC()
	rows, err := s.secrets.ExpiringBetween(ctx, now, now.AddDate(0, 0, withinDays))
	if err != nil {
		return nil, err
	}

	result := make([]models.DecryptedSecretEntry, 0, len(rows))
	for i := range rows {
		entry, err := s.decryptSecret(&rows[i])
		if err != nil {
			return nil, err
		}
		result = append(result, *entry)
	}
	return result, nil
}

// SecretUpdatedAt returns the updated_at of a secret row without decrypting
// it or recording an access. Restore uses this for conflict checks.
func (s *Store) SecretUpdatedAt(ctx context.Context, id string) (time.Time, error) {
	row, err := s.secrets.GetByID(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	return row.UpdatedAt, nil
}

// AuditLog returns the audit rows of one secret, oldest first.
func (s *Store) AuditLog(ctx context.Context, secretID string) ([]models.AuditRecord, error) {
	return s.secrets.AuditFor(ctx, secretID)
}

// VaultStats summarizes the store contents.
type VaultStats struct {
	EntryCount      int64
	SecretCount     int64
	FavoriteEntries int64
	FavoriteSecrets int64
}

// Stats returns entry/secret totals.
func (s *Store) Stats(ctx context.Context) (*VaultStats, error) {
	var (
		st  VaultStats
		err error
	)
	if st.EntryCount, err = s.entries.Count(ctx); err != nil {
		return nil, err
	}
	if st.SecretCount, err = s.secrets.Count(ctx); err != nil {
		return nil, err
	}
	if st.FavoriteEntries, err = s.entries.CountFavorites(ctx); err != nil {
		return nil, err
	}
	if st.FavoriteSecrets, err = s.secrets.CountFavorites(ctx); err != nil {
		return nil, err
	}
	return &st, nil
}

// SecretsStats summarizes the typed-secret collection.
type SecretsStats struct {
	Total        int64
	Favorites    int64
	Expired      int64
	ExpiringSoon int64
	ByType       map[models.SecretType]int64
}

// SecretsStatistics returns counts by type plus expiry buckets
// (expiring-soon means within 30 days).
func (s *Store) SecretsStatistics(ctx context.Context) (*SecretsStats, error) {
	now := s.now().UTC()

	var (
		st  SecretsStats
		err error
	)
	if st.Total, err = s.secrets.Count(ctx); err != nil {
		return nil, err
	}
	if st.Favorites, err = s.secrets.CountFavorites(ctx); err != nil {
		return nil, err
	}
	if st.Expired, err = s.secrets.CountExpiredAt(ctx, now); err != nil {
		return nil, err
	}
	if st.ByType, err = s.secrets.CountByType(ctx); err != nil {
		return nil, err
	}

	soon, err := s.secrets.ExpiringBetween(ctx, now, now.AddDate(0, 0, 30))
	if err != nil {
		return nil, err
	}
	st.ExpiringSoon = int64(len(soon))
	return &st, nil
}

// Snapshot is the fully decrypted store content, ordered by id ascending so
// downstream serialization is deterministic.
type Snapshot struct {
	Entries []models.DecryptedPasswordEntry
	Secrets []models.DecryptedSecretEntry
}

// Wipe overwrites every secret field in the snapshot.
func (sn *Snapshot) Wipe() {
	for i := range sn.Entries {
		sn.Entries[i].Wipe()
	}
	for i := range sn.Secrets {
		sn.Secrets[i].Wipe()
	}
}

// SnapshotAll decrypts the whole store. The backup engine consumes this.
func (s *Store) SnapshotAll(ctx context.Context) (*Snapshot, error) {
	return s.snapshot(ctx, nil)
}

// SnapshotSince decrypts records with updated_at strictly after since.
func (s *Store) SnapshotSince(ctx context.Context, since time.Time) (*Snapshot, error) {
	return s.snapshot(ctx, &since)
}

func (s *Store) snapshot(ctx context.Context, since *time.Time) (*Snapshot, error) {
	var (
		entryRows  []models.PasswordEntry
		secretRows []models.SecretEntry
		err        error
	)
	if since == nil {
		entryRows, err = s.entries.Search(ctx, "", false)
	} else {
		entryRows, err = s.entries.ListSince(ctx, *since)
	}
	if err != nil {
		return nil, err
	}
	if since == nil {
		secretRows, err = s.secrets.Search(ctx, models.SecretFilter{})
	} else {
		secretRows, err = s.secrets.ListSince(ctx, *since)
	}
	if err != nil {
		return nil, err
	}

	sn := &Snapshot{
		Entries: make([]models.DecryptedPasswordEntry, 0, len(entryRows)),
		Secrets: make([]models.DecryptedSecretEntry, 0, len(secretRows)),
	}
	for i := range entryRows {
		e, err := s.decryptEntry(&entryRows[i])
		if err != nil {
			return nil, err
		}
		sn.Entries = append(sn.Entries, *e)
	}
	for i := range secretRows {
		sec, err := s.decryptSecret(&secretRows[i])
		if err != nil {
			return nil, err
		}
		sn.Secrets = append(sn.Secrets, *sec)
	}

	sort.Slice(sn.Entries, func(i, j int) bool { return sn.Entries[i].Id < sn.Entries[j].Id })
	sort.Slice(sn.Secrets, func(i, j int) bool { return sn.Secrets[i].Id < sn.Secrets[j].Id })
	return sn, nil
}

func (s *Store) appendAudit(ctx context.Context, secretID string, action models.AuditAction, details string) error {
	return s.secrets.AppendAudit(ctx, &models.AuditRecord{
		SecretId:  secretID,
		Timestamp: s.now().UTC(),
		Action:    action,
		Details:   details,
	})
}

func (s *Store) encryptEntry(e *models.DecryptedPasswordEntry) (*models.PasswordEntry, error) {
	var sealed []byte
	err := s.session.WithKey(func(key *cryptox.Key) error {
		var err error
		sealed, err = key.Seal(s.rng, []byte(e.Password))
		return err
	})
	if err != nil {
		return nil, err
	}

	return &models.PasswordEntry{
		Id:                e.Id,
		Site:              e.Site,
		Username:          e.Username,
		EncryptedPassword: sealed,
		Notes:             e.Notes,
		Tags:              e.Tags,
		Favorite:          e.Favorite,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
		LastUsed:          e.LastUsed,
	}, nil
}

func (s *Store) decryptEntry(row *models.PasswordEntry) (*models.DecryptedPasswordEntry, error) {
	var password []byte
	err := s.session.WithKey(func(key *cryptox.Key) error {
		var err error
		password, err = key.Open(row.EncryptedPassword)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", row.Id, err)
	}

	e := &models.DecryptedPasswordEntry{
		Id:        row.Id,
		Site:      row.Site,
		Username:  row.Username,
		Password:  string(password),
		Notes:     row.Notes,
		Tags:      row.Tags,
		Favorite:  row.Favorite,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		LastUsed:  row.LastUsed,
	}
	cryptox.WipeBytes(password)
	return e, nil
}

func (s *Store) encryptSecret(entry *models.DecryptedSecretEntry) (*models.SecretEntry, error) {
	env, err := models.Wrap(entry.Data)
	if err != nil {
		return nil, err
	}

	var sealed []byte
	err = s.session.WithKey(func(key *cryptox.Key) error {
		var err error
		sealed, err = key.SealJSON(s.rng, env)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &models.SecretEntry{
		Id:            entry.Id,
		Name:          entry.Name,
		Description:   entry.Description,
		Type:          entry.Data.SecretType(),
		EncryptedData: sealed,
		Tags:          entry.Tags,
		Environment:   entry.Environment,
		Project:       entry.Project,
		Favorite:      entry.Favorite,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
		LastAccessed:  entry.LastAccessed,
		ExpiresAt:     entry.ExpiresAt,
	}, nil
}

func (s *Store) decryptSecret(row *models.SecretEntry) (*models.DecryptedSecretEntry, error) {
	var env models.Envelope
	err := s.session.WithKey(func(key *cryptox.Key) error {
		return key.OpenJSON(row.EncryptedData, &env)
	})
	if err != nil {
		return nil, fmt.Errorf("secret %s: %w", row.Id, err)
	}

	data, err := env.Unwrap()
	if err != nil {
		return nil, fmt.Errorf("secret %s: %w", row.Id, err)
	}

	return &models.DecryptedSecretEntry{
		Id:           row.Id,
		Name:         row.Name,
		Description:  row.Description,
		Data:         data,
		Tags:         row.Tags,
		Environment:  row.Environment,
		Project:      row.Project,
		Favorite:     row.Favorite,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		LastAccessed: row.LastAccessed,
		ExpiresAt:    row.ExpiresAt,
	}, nil
}
