// Package models defines the vault's record types: password entries, typed
// secrets, search filters, and their canonical serialized forms.
package models

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/pwvault/internal/cryptox"
)

// PasswordEntry is the at-rest row form of a credential: the password is an
// AEAD ciphertext, everything else is clear-text index data.
type PasswordEntry struct {
	Id                string
	Site              string
	Username          string
	EncryptedPassword []byte
	Notes             string
	Tags              []string
	Favorite          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
	LastUsed          *time.Time
}

// DecryptedPasswordEntry is the in-memory and in-backup form of a credential.
// The password field must be wiped before release.
type DecryptedPasswordEntry struct {
	Id        string     `json:"id"`
	Site      string     `json:"site"`
	Username  string     `json:"username"`
	Password  string     `json:"password"`
	Notes     string     `json:"notes,omitempty"`
	Tags      []string   `json:"tags"`
	Favorite  bool       `json:"favorite"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
}

// Wipe overwrites the secret fields of the entry.
func (e *DecryptedPasswordEntry) Wipe() {
	wipeString(&e.Password)
	wipeString(&e.Notes)
}

// NewEntryID computes the stable id of a (site, username) pair. Updates
// preserve it.
func NewEntryID(site, username string) string {
	return cryptox.Fingerprint(site, username)
}

// NormalizeTags lowercases and trims tags, dropping empties and duplicates
// while preserving first-seen order. Tag search operates on this form.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// HasAllTags reports whether every tag in want appears in have (both sides
// compared in normalized form).
func HasAllTags(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, t := range NormalizeTags(have) {
		set[t] = struct{}{}
	}
	for _, t := range NormalizeTags(want) {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

// wipeString zeroes the bytes of *s via an intermediate buffer and empties
// the string. Go strings are immutable, so the original backing array may
// survive; this shortens the window rather than guaranteeing erasure.
func wipeString(s *string) {
	b := []byte(*s)
	cryptox.WipeBytes(b)
	*s = ""
}
