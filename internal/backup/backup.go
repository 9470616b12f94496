// Package backup produces and restores portable encrypted artifacts of the
// vault. An artifact is a UTF-8 JSON object with cleartext metadata, a
// per-backup KDF salt, and the AEAD ciphertext of the serialized payload
// under a key derived from a separate backup password.
package backup

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dmitrijs2005/pwvault/internal/common"
	"github.com/dmitrijs2005/pwvault/internal/cryptox"
	"github.com/dmitrijs2005/pwvault/internal/logging"
	"github.com/dmitrijs2005/pwvault/internal/vault"
	"github.com/dmitrijs2005/pwvault/internal/vault/models"
	"github.com/google/uuid"
)

// checksumPlaceholder substitutes for the checksum field while the artifact
// digest is computed, so the digest covers every other byte of the final
// text.
const checksumPlaceholder = "0000000000000000000000000000000000000000000000000000000000000000"

// backupKDFParams fixes the argon2id costs for backup keys per format
// version, so any reader can re-derive the key from the stored salt.
var backupKDFParams = cryptox.DefaultParams()

// Mode selects full or incremental backup content.
type Mode struct {
	Incremental bool
	Since       time.Time
}

// Metadata is the cleartext header of an artifact.
type Metadata struct {
	Id            string     `json:"id"`
	CreatedAt     time.Time  `json:"created_at"`
	VaultId       string     `json:"vault_id"`
	EntryCount    int        `json:"entry_count"`
	FileSize      int64      `json:"file_size"`
	Checksum      string     `json:"checksum"`
	FormatVersion int        `json:"format_version"`
	Mode          string     `json:"mode"`
	Since         *time.Time `json:"since,omitempty"`
}

// artifact is the on-disk shape: metadata in the clear, payload encrypted.
type artifact struct {
	Metadata      Metadata `json:"metadata"`
	EncryptedData string   `json:"encrypted_data"`
	Salt          []byte   `json:"salt"`
}

// payload is the canonical serialized vault content, encrypted inside the
// artifact. Entries and secrets are ordered by id ascending.
type payload struct {
	FormatVersion int                             `json:"format_version"`
	VaultId       string                          `json:"vault_id"`
	Entries       []models.DecryptedPasswordEntry `json:"entries"`
	Secrets       []models.DecryptedSecretEntry   `json:"secrets"`
	Info          payloadInfo                     `json:"backup_info"`
}

type payloadInfo struct {
	CreatedAt time.Time  `json:"created_at"`
	CreatedBy string     `json:"created_by"`
	Mode      string     `json:"mode"`
	Since     *time.Time `json:"since,omitempty"`
}

// Policy is the conflict-resolution strategy applied during restore.
type Policy string

const (
	PolicyMerge     Policy = "merge"
	PolicyOverwrite Policy = "overwrite"
	PolicySkip      Policy = "skip"
)

// ParsePolicy validates a policy name; the empty string means merge.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyMerge, PolicyOverwrite, PolicySkip:
		return Policy(s), nil
	case "":
		return PolicyMerge, nil
	default:
		return "", fmt.Errorf("%w: unknown conflict policy %q", common.ErrInvalidConfig, s)
	}
}

// EntryError records one per-record restore failure.
type EntryError struct {
	Id  string
	Err error
}

// Summary is the result of a restore.
type Summary struct {
	Restored int
	Skipped  int
	Failed   []EntryError
}

// Manager drives backup create/verify/restore against one vault.
type Manager struct {
	vault *vault.Vault
	rng   io.Reader
	now   func() time.Time
	log   logging.Logger
}

// Option adjusts a Manager under construction.
type Option func(*Manager)

// WithRNG injects a randomness source.
func WithRNG(rng io.Reader) Option { return func(m *Manager) { m.rng = rng } }

// WithClock injects a time source.
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// WithLogger injects the logger.
func WithLogger(l logging.Logger) Option { return func(m *Manager) { m.log = l } }

// NewManager returns a Manager bound to v.
func NewManager(v *vault.Vault, opts ...Option) *Manager {
	m := &Manager{
		vault: v,
		rng:   rand.Reader,
		now:   time.Now,
		log:   logging.NewTextLogger(os.Stderr, slog.LevelWarn),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create snapshots the vault, encrypts the canonical payload under a key
// derived from password and a fresh salt, and writes the artifact to
// outputPath. The write is the commit point; cancellation before it leaves
// no file behind.
func (m *Manager) Create(ctx context.Context, outputPath string, password []byte, mode Mode) (*Metadata, error) {
	var (
		snap *vault.Snapshot
		err  error
	)
	if mode.Incremental {
		snap, err = m.vault.Store().SnapshotSince(ctx, mode.Since)
	} else {
		snap, err = m.vault.Store().SnapshotAll(ctx)
	}
	if err != nil {
		return nil, err
	}
	defer snap.Wipe()

	createdAt := m.now().UTC()
	modeName := "full"
	var since *time.Time
	if mode.Incremental {
		modeName = "incremental"
		t := mode.Since.UTC()
		since = &t
	}

	p := payload{
		FormatVersion: models.CurrentFormatVersion,
		VaultId:       m.vault.ID(),
		Entries:       snap.Entries,
		Secrets:       snap.Secrets,
		Info: payloadInfo{
			CreatedAt: createdAt,
			CreatedBy: "pwvault",
			Mode:      modeName,
			Since:     since,
		},
	}

	plaintext, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	defer cryptox.WipeBytes(plaintext)

	salt, err := cryptox.GenerateSalt(m.rng)
	if err != nil {
		return nil, err
	}
	key := cryptox.DeriveKey(password, salt, backupKDFParams)
	defer key.Wipe()

	sealed, err := key.Seal(m.rng, plaintext)
	if err != nil {
		return nil, err
	}

	a := artifact{
		Metadata: Metadata{
			Id:            uuid.NewString(),
			CreatedAt:     createdAt,
			VaultId:       p.VaultId,
			EntryCount:    len(p.Entries) + len(p.Secrets),
			FileSize:      int64(len(sealed)),
			Checksum:      checksumPlaceholder,
			FormatVersion: models.CurrentFormatVersion,
			Mode:          modeName,
			Since:         since,
		},
		EncryptedData: base64.StdEncoding.EncodeToString(sealed),
		Salt:          salt,
	}

	withPlaceholder, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	a.Metadata.Checksum = fmt.Sprintf("%x", sha256.Sum256(withPlaceholder))

	text, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}

	// Commit point: cancellation is honored up to here.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.WriteFile(outputPath, text, 0o600); err != nil {
		return nil, fmt.Errorf("%w: writing backup: %w", common.ErrIO, err)
	}

	m.log.Info(ctx, "backup created", "path", outputPath, "mode", modeName,
		"entry_count", a.Metadata.EntryCount)
	md := a.Metadata
	return &md, nil
}

// Verify parses the artifact, recomputes the checksum over the text with the
// checksum field swapped for the placeholder, and compares declared sizes.
// No decryption is attempted. Any mismatch yields common.ErrCorruptBackup;
// a newer format version yields common.ErrVersionTooNew.
func Verify(path string) (*Metadata, error) {
	a, err := readArtifact(path)
	if err != nil {
		return nil, err
	}

	declared := a.Metadata.Checksum
	if len(declared) != len(checksumPlaceholder) {
		return nil, fmt.Errorf("%w: malformed checksum", common.ErrCorruptBackup)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading backup: %w", common.ErrIO, err)
	}
	field := []byte(`"checksum":"` + declared + `"`)
	if bytes.Count(raw, field) != 1 {
		return nil, fmt.Errorf("%w: malformed checksum", common.ErrCorruptBackup)
	}
	text := bytes.Replace(raw, field, []byte(`"checksum":"`+checksumPlaceholder+`"`), 1)
	if computed := fmt.Sprintf("%x", sha256.Sum256(text)); computed != declared {
		return nil, fmt.Errorf("%w: checksum mismatch", common.ErrCorruptBackup)
	}

	sealed, err := base64.StdEncoding.DecodeString(a.EncryptedData)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid encrypted data", common.ErrCorruptBackup)
	}
	if int64(len(sealed)) != a.Metadata.FileSize {
		return nil, fmt.Errorf("%w: file size mismatch", common.ErrCorruptBackup)
	}

	if a.Metadata.FormatVersion > models.CurrentFormatVersion {
		return nil, fmt.Errorf("format %d: %w", a.Metadata.FormatVersion, common.ErrVersionTooNew)
	}

	md := a.Metadata
	return &md, nil
}

// ReadMetadata returns the cleartext header without verifying or decrypting
// anything.
func ReadMetadata(path string) (*Metadata, error) {
	a, err := readArtifact(path)
	if err != nil {
		return nil, err
	}
	md := a.Metadata
	return &md, nil
}

// Restore verifies the artifact, decrypts the payload with the stored salt,
// and applies the conflict policy per incoming record. All writes run in one
// transaction: a write failure rolls everything back. Per-record decode
// failures (unknown variant) are reported in the summary, not fatal.
func (m *Manager) Restore(ctx context.Context, path string, password []byte, policy Policy) (*Summary, error) {
	if _, err := Verify(path); err != nil {
		return nil, err
	}

	a, err := readArtifact(path)
	if err != nil {
		return nil, err
	}

	sealed, err := base64.StdEncoding.DecodeString(a.EncryptedData)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid encrypted data", common.ErrCorruptBackup)
	}

	key := cryptox.DeriveKey(password, a.Salt, backupKDFParams)
	defer key.Wipe()

	plaintext, err := key.Open(sealed)
	if err != nil {
		// Wrong backup password and a corrupted payload are
		// indistinguishable here.
		return nil, common.ErrAuthFailed
	}
	defer cryptox.WipeBytes(plaintext)

	p, failed, err := decodePayload(plaintext)
	if err != nil {
		return nil, err
	}
	if p.FormatVersion > models.CurrentFormatVersion {
		return nil, fmt.Errorf("format %d: %w", p.FormatVersion, common.ErrVersionTooNew)
	}

	summary := &Summary{Failed: failed}
	err = m.vault.Store().InTx(ctx, func(ctx context.Context, tx *vault.Store) error {
		for i := range p.Entries {
			if err := m.restoreEntry(ctx, tx, &p.Entries[i], policy, summary); err != nil {
				return err
			}
		}
		for i := range p.Secrets {
			if err := m.restoreSecret(ctx, tx, &p.Secrets[i], policy, summary); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.log.Info(ctx, "restore finished", "path", path, "policy", string(policy),
		"restored", summary.Restored, "skipped", summary.Skipped, "failed", len(summary.Failed))
	return summary, nil
}

func (m *Manager) restoreEntry(ctx context.Context, tx *vault.Store, incoming *models.DecryptedPasswordEntry, policy Policy, summary *Summary) error {
	live, err := tx.GetEntry(ctx, incoming.Id)
	switch {
	case err == nil:
		switch policy {
		case PolicyOverwrite:
			if err := tx.ReplaceEntry(ctx, incoming); err != nil {
				return err
			}
			summary.Restored++
		case PolicySkip:
			summary.Skipped++
		default: // merge
			if incoming.UpdatedAt.After(live.UpdatedAt) {
				if err := tx.ReplaceEntry(ctx, incoming); err != nil {
					return err
				}
				summary.Restored++
			} else {
				summary.Skipped++
			}
		}
		live.Wipe()
		return nil

	case isNotFound(err):
		if err := tx.PutEntry(ctx, incoming); err != nil {
			return err
		}
		summary.Restored++
		return nil

	case isDecrypt(err):
		// The live row is unreadable under the session key; leave it alone
		// and report the incoming record as failed.
		summary.Failed = append(summary.Failed, EntryError{Id: incoming.Id, Err: common.ErrDecrypt})
		return nil

	default:
		return err
	}
}

func (m *Manager) restoreSecret(ctx context.Context, tx *vault.Store, incoming *models.DecryptedSecretEntry, policy Policy, summary *Summary) error {
	// The conflict check reads updated_at only; it neither decrypts the
	// live row nor records an access.
	liveUpdatedAt, err := tx.SecretUpdatedAt(ctx, incoming.Id)
	switch {
	case err == nil:
		switch policy {
		case PolicyOverwrite:
			if err := tx.ReplaceSecret(ctx, incoming); err != nil {
				return err
			}
			summary.Restored++
		case PolicySkip:
			summary.Skipped++
		default: // merge
			if incoming.UpdatedAt.After(liveUpdatedAt) {
				if err := tx.ReplaceSecret(ctx, incoming); err != nil {
					return err
				}
				summary.Restored++
			} else {
				summary.Skipped++
			}
		}
		return nil

	case isNotFound(err):
		if err := tx.PutSecret(ctx, incoming); err != nil {
			return err
		}
		summary.Restored++
		return nil

	default:
		return err
	}
}

// decodePayload parses the payload while routing unknown secret variants
// into the failure list instead of aborting the whole restore.
func decodePayload(plaintext []byte) (*payload, []EntryError, error) {
	// First pass: structure with raw secrets so one bad variant does not
	// poison the rest.
	var raw struct {
		FormatVersion int                             `json:"format_version"`
		VaultId       string                          `json:"vault_id"`
		Entries       []models.DecryptedPasswordEntry `json:"entries"`
		Secrets       []json.RawMessage               `json:"secrets"`
		Info          payloadInfo                     `json:"backup_info"`
	}
	if err := json.Unmarshal(plaintext, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", common.ErrCorruptBackup, err)
	}

	p := &payload{
		FormatVersion: raw.FormatVersion,
		VaultId:       raw.VaultId,
		Entries:       raw.Entries,
		Info:          raw.Info,
	}

	var failed []EntryError
	for _, rawSecret := range raw.Secrets {
		var s models.DecryptedSecretEntry
		if err := json.Unmarshal(rawSecret, &s); err != nil {
			if errors.Is(err, common.ErrUnknownVariant) {
				failed = append(failed, EntryError{Id: secretID(rawSecret), Err: common.ErrUnknownVariant})
				continue
			}
			return nil, nil, fmt.Errorf("%w: %w", common.ErrCorruptBackup, err)
		}
		p.Secrets = append(p.Secrets, s)
	}
	return p, failed, nil
}

func secretID(raw json.RawMessage) string {
	var probe struct {
		Id string `json:"id"`
	}
	_ = json.Unmarshal(raw, &probe)
	return probe.Id
}

func readArtifact(path string) (*artifact, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading backup: %w", common.ErrIO, err)
	}

	var a artifact
	if err := json.Unmarshal(text, &a); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrCorruptBackup, err)
	}
	return &a, nil
}

func isNotFound(err error) bool { return errors.Is(err, common.ErrNotFound) }
func isDecrypt(err error) bool  { return errors.Is(err, common.ErrDecrypt) }
