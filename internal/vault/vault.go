package vault

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dmitrijs2005/pwvault/internal/common"
	"github.com/dmitrijs2005/pwvault/internal/cryptox"
	"github.com/dmitrijs2005/pwvault/internal/logging"
	"github.com/dmitrijs2005/pwvault/internal/vault/migrations"
	"github.com/dmitrijs2005/pwvault/internal/vault/models"
	"github.com/dmitrijs2005/pwvault/internal/vault/repositories/metadata"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// DefaultIdleTimeout is how long an unlocked session survives without use.
const DefaultIdleTimeout = 5 * time.Minute

// Vault is the session handle over one vault file. It owns the SQLite
// connection, the session key, and the record store. One handle serves one
// vault at a time; callers construct it explicitly rather than going through
// a process-wide singleton, which keeps the clock and RNG injectable.
type Vault struct {
	db      *sql.DB
	store   *Store
	session *Session
	meta    *metadata.VaultMetadata
	mdRepo  metadata.Repository
	kdf     cryptox.Params
	rng     io.Reader
	now     func() time.Time
	log     logging.Logger
}

// Option adjusts a Vault under construction.
type Option func(*Vault)

// WithRNG injects a randomness source; tests use a deterministic one.
func WithRNG(rng io.Reader) Option { return func(v *Vault) { v.rng = rng } }

// WithClock injects a time source.
func WithClock(now func() time.Time) Option { return func(v *Vault) { v.now = now } }

// WithIdleTimeout sets the session idle timeout; 0 disables it.
func WithIdleTimeout(d time.Duration) Option {
	return func(v *Vault) { v.session = NewSession(d) }
}

// WithKDFParams sets the argon2id costs used when initializing a new vault.
// Unlock always uses the costs persisted in the vault metadata.
func WithKDFParams(p cryptox.Params) Option { return func(v *Vault) { v.kdf = p } }

// WithLogger injects the logger.
func WithLogger(l logging.Logger) Option { return func(v *Vault) { v.log = l } }

// Exists reports whether a vault file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Open opens (or creates) the vault file, runs migrations, and loads the
// vault metadata when the vault has been initialized. The returned handle
// starts in the Locked state.
func Open(ctx context.Context, path string, opts ...Option) (*Vault, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening vault db: %w", common.ErrIO, err)
	}
	// One writer at a time; reads share the connection's snapshot.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrating vault db: %w", common.ErrIO, err)
	}

	v := &Vault{
		db:      db,
		session: NewSession(DefaultIdleTimeout),
		mdRepo:  metadata.NewSQLiteRepository(db),
		kdf:     cryptox.DefaultParams(),
		rng:     rand.Reader,
		now:     time.Now,
		log:     logging.NewTextLogger(os.Stderr, slog.LevelWarn),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.store = newStore(db, v.session, v.rng, v.now, v.log)

	meta, err := v.mdRepo.Load(ctx)
	switch {
	case err == nil:
		if meta.FormatVersion > models.CurrentFormatVersion {
			_ = db.Close()
			return nil, fmt.Errorf("vault format %d: %w", meta.FormatVersion, common.ErrVersionTooNew)
		}
		v.meta = meta
	case errors.Is(err, common.ErrNotFound):
		// Not initialized yet; Init will create the metadata row.
	default:
		_ = db.Close()
		return nil, err
	}

	return v, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// Initialized reports whether the vault metadata row exists.
func (v *Vault) Initialized() bool {
	return v.meta != nil
}

// Init creates the vault: generates the master salt, derives the vault key,
// seals the verifier, persists the metadata, and leaves the session
// Unlocked. Initializing twice fails with common.ErrDuplicate.
func (v *Vault) Init(ctx context.Context, password []byte) error {
	if v.meta != nil {
		return fmt.Errorf("vault: %w", common.ErrDuplicate)
	}

	salt, err := cryptox.GenerateSalt(v.rng)
	if err != nil {
		return err
	}

	key := cryptox.DeriveKey(password, salt, v.kdf)
	verifier, err := cryptox.MakeVerifier(v.rng, key)
	if err != nil {
		key.Wipe()
		return err
	}

	now := v.now().UTC()
	meta := &metadata.VaultMetadata{
		Id:            uuid.NewString(),
		Name:          "Personal Vault",
		CreatedAt:     now,
		UpdatedAt:     now,
		FormatVersion: models.CurrentFormatVersion,
		Salt:          salt,
		Verifier:      verifier,
		KDF:           v.kdf,
	}
	if err := v.mdRepo.Save(ctx, meta); err != nil {
		key.Wipe()
		return err
	}

	v.meta = meta
	v.session.Unlock(key)
	v.log.Info(ctx, "vault initialized", "vault_id", meta.Id)
	return nil
}

// Unlock derives the key from the submitted password using the stored salt
// and KDF costs, and checks it against the verifier. Wrong password,
// tampered verifier, and an uninitialized vault all yield
// common.ErrAuthFailed.
func (v *Vault) Unlock(ctx context.Context, password []byte) error {
	if v.meta == nil {
		return common.ErrAuthFailed
	}

	key := cryptox.DeriveKey(password, v.meta.Salt, v.meta.KDF)
	if err := cryptox.CheckVerifier(key, v.meta.Verifier); err != nil {
		key.Wipe()
		return err
	}

	v.session.Unlock(key)
	v.log.Info(ctx, "vault unlocked", "vault_id", v.meta.Id)
	return nil
}

// Lock wipes the session key.
func (v *Vault) Lock() {
	v.session.Lock()
}

// IsUnlocked reports whether the session key is resident.
func (v *Vault) IsUnlocked() bool {
	return v.session.IsUnlocked()
}

// Store returns the record operation surface.
func (v *Vault) Store() *Store {
	return v.store
}

// Session returns the session handle.
func (v *Vault) Session() *Session {
	return v.session
}

// DB exposes the underlying connection for maintenance tooling and tests.
func (v *Vault) DB() *sql.DB {
	return v.db
}

// ID returns the vault id, or "" before initialization.
func (v *Vault) ID() string {
	if v.meta == nil {
		return ""
	}
	return v.meta.Id
}

// Close locks the session and closes the database.
func (v *Vault) Close() error {
	v.session.Lock()
	return v.db.Close()
}
