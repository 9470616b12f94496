// Package cryptox implements the cryptographic core of pwvault: argon2id key
// derivation, AES-256-GCM sealing of record payloads, the master-password
// verifier, entry fingerprints, and zeroization of key material.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dmitrijs2005/pwvault/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the AEAD key length in bytes (AES-256).
	KeySize = 32
	// NonceSize is the GCM nonce length in bytes.
	NonceSize = 12
	// SaltSize is the length of KDF salts generated by this package.
	SaltSize = 32

	// verifierMarker is the domain-separated plaintext sealed under a fresh
	// vault key at init time. Unlock opens it to confirm the password.
	verifierMarker = "pwvault-key-verifier-v1"
)

// Params holds the argon2id cost settings. Costs are configuration; the same
// settings must be used to re-derive a vault key, so they are persisted in
// the vault metadata (and, for backups, fixed per format version).
type Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// DefaultParams returns the production cost settings: 3 passes over 64 MiB
// with 4 lanes.
func DefaultParams() Params {
	return Params{Time: 3, MemoryKiB: 64 * 1024, Threads: 4}
}

// Key is an in-memory AEAD key. The backing bytes are overwritten by Wipe;
// callers must not copy the slice out.
type Key struct {
	b []byte
}

// NewKey wraps raw key bytes. The Key takes ownership of b.
func NewKey(b []byte) *Key {
	return &Key{b: b}
}

// DeriveKey produces a KeySize-byte key from a password and salt using
// argon2id with the given costs. Vault and backup keys use this same
// function with disjoint salts.
func DeriveKey(password, salt []byte, p Params) *Key {
	return &Key{b: argon2.IDKey(password, salt, p.Time, p.MemoryKiB, p.Threads, KeySize)}
}

// Wipe overwrites the key's backing storage. The key is unusable afterwards.
func (k *Key) Wipe() {
	WipeBytes(k.b)
	k.b = nil
}

// Seal encrypts plaintext with AES-256-GCM under k, drawing a fresh random
// nonce from rng. The result is nonce || ciphertext || tag.
func (k *Key) Seal(rng io.Reader, plaintext []byte) ([]byte, error) {
	aead, err := k.aead()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rng, nonce); err != nil {
		return nil, fmt.Errorf("drawing nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts data produced by Seal. A short buffer, a corrupted
// ciphertext, and a wrong key all surface as common.ErrDecrypt.
func (k *Key) Open(data []byte) ([]byte, error) {
	if len(data) < NonceSize {
		return nil, common.ErrDecrypt
	}

	aead, err := k.aead()
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, data[:NonceSize], data[NonceSize:], nil)
	if err != nil {
		return nil, common.ErrDecrypt
	}
	return plaintext, nil
}

// SealJSON serializes v to JSON and seals the result.
func (k *Key) SealJSON(rng io.Reader, v any) ([]byte, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	defer WipeBytes(plaintext)
	return k.Seal(rng, plaintext)
}

// OpenJSON opens data and unmarshals the plaintext into v.
func (k *Key) OpenJSON(data []byte, v any) error {
	plaintext, err := k.Open(data)
	if err != nil {
		return err
	}
	defer WipeBytes(plaintext)
	return json.Unmarshal(plaintext, v)
}

func (k *Key) aead() (cipher.AEAD, error) {
	if k == nil || k.b == nil {
		return nil, common.ErrInternal
	}
	block, err := aes.NewCipher(k.b)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// MakeVerifier seals the verifier marker under key. The result is stored in
// the vault metadata at init time.
func MakeVerifier(rng io.Reader, key *Key) ([]byte, error) {
	return key.Seal(rng, []byte(verifierMarker))
}

// CheckVerifier opens the stored verifier under key and compares the
// plaintext against the marker. Both a wrong password and a tampered
// verifier return common.ErrAuthFailed; the caller cannot tell them apart.
func CheckVerifier(key *Key, verifier []byte) error {
	plaintext, err := key.Open(verifier)
	if err != nil {
		return common.ErrAuthFailed
	}
	defer WipeBytes(plaintext)
	if string(plaintext) != verifierMarker {
		return common.ErrAuthFailed
	}
	return nil
}

// GenerateSalt draws a fresh SaltSize-byte KDF salt from rng.
func GenerateSalt(rng io.Reader) ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rng, salt); err != nil {
		return nil, fmt.Errorf("drawing salt: %w", err)
	}
	return salt, nil
}

// Fingerprint computes the stable id of a password entry: the hex SHA-256
// over site, a colon, and username. The id is computed once at creation and
// preserved by updates.
func Fingerprint(site, username string) string {
	h := sha256.New()
	h.Write([]byte(site))
	h.Write([]byte(":"))
	h.Write([]byte(username))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// WipeBytes overwrites b in place. Use on any buffer that held secret
// plaintext or key material before releasing it.
func WipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
