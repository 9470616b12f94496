package vault

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/pwvault/internal/common"
	"github.com/dmitrijs2005/pwvault/internal/vault/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives timestamps deterministically.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestStore_AddAndGetEntry(t *testing.T) {
	v := newUnlockedVault(t)
	ctx := context.Background()

	entry, err := v.Store().AddEntry(ctx, NewEntryParams{
		Site:     "github.com",
		Username: "alice",
		Password: "hunter2",
		Notes:    "work account",
		Tags:     []string{"Work", "code"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, entry.Id)
	assert.Equal(t, models.NewEntryID("github.com", "alice"), entry.Id)

	got, err := v.Store().GetEntry(ctx, entry.Id)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got.Password)
	assert.Equal(t, "github.com", got.Site)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, []string{"work", "code"}, got.Tags)
	assert.False(t, got.CreatedAt.After(got.UpdatedAt))
}

func TestStore_AddEntryDuplicate(t *testing.T) {
	v := newUnlockedVault(t)
	ctx := context.Background()

	p := NewEntryParams{Site: "github.com", Username: "alice", Password: "pw1"}
	_, err := v.Store().AddEntry(ctx, p)
	require.NoError(t, err)

	_, err = v.Store().AddEntry(ctx, p)
	assert.ErrorIs(t, err, common.ErrDuplicate)
}

func TestStore_GetEntryNotFound(t *testing.T) {
	v := newUnlockedVault(t)

	_, err := v.Store().GetEntry(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestStore_UpdateEntry(t *testing.T) {
	clock := newFakeClock()
	v := newUnlockedVault(t, WithClock(clock.Now))
	ctx := context.Background()

	entry, err := v.Store().AddEntry(ctx, NewEntryParams{
		Site: "example.com", Username: "bob", Password: "old",
	})
	require.NoError(t, err)
	created := entry.UpdatedAt

	clock.Advance(time.Hour)
	entry.Password = "new"
	require.NoError(t, v.Store().UpdateEntry(ctx, entry))

	got, err := v.Store().GetEntry(ctx, entry.Id)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Password)
	assert.Equal(t, entry.Id, got.Id, "id preserved across update")
	assert.True(t, got.UpdatedAt.After(created))
	assert.Equal(t, created, got.CreatedAt)
}

func TestStore_UpdateEntryNotFound(t *testing.T) {
	v := newUnlockedVault(t)

	err := v.Store().UpdateEntry(context.Background(), &models.DecryptedPasswordEntry{
		Id: "missing", Site: "x", Username: "y", Password: "z",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestStore_DeleteEntry(t *testing.T) {
	v := newUnlockedVault(t)
	ctx := context.Background()

	entry, err := v.Store().AddEntry(ctx, NewEntryParams{
		Site: "example.com", Username: "bob", Password: "pw",
	})
	require.NoError(t, err)

	require.NoError(t, v.Store().DeleteEntry(ctx, entry.Id))
	_, err = v.Store().GetEntry(ctx, entry.Id)
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.ErrorIs(t, v.Store().DeleteEntry(ctx, entry.Id), common.ErrNotFound)
}

func TestStore_MarkEntryUsed(t *testing.T) {
	clock := newFakeClock()
	v := newUnlockedVault(t, WithClock(clock.Now))
	ctx := context.Background()

	entry, err := v.Store().AddEntry(ctx, NewEntryParams{
		Site: "example.com", Username: "bob", Password: "pw",
	})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	require.NoError(t, v.Store().MarkEntryUsed(ctx, entry.Id))

	got, err := v.Store().GetEntry(ctx, entry.Id)
	require.NoError(t, err)
	require.NotNil(t, got.LastUsed)
	assert.Equal(t, clock.Now(), *got.LastUsed)
}

func TestStore_TamperDetection(t *testing.T) {
	v := newUnlockedVault(t)
	ctx := context.Background()

	entry, err := v.Store().AddEntry(ctx, NewEntryParams{
		Site: "example.com", Username: "bob", Password: "pw",
	})
	require.NoError(t, err)

	// Corrupt the stored ciphertext behind the store's back: flip one bit
	// of the blob and write it back.
	var blob []byte
	require.NoError(t, v.db.QueryRowContext(ctx,
		`SELECT encrypted_password FROM password_entries WHERE id = ?`, entry.Id).Scan(&blob))
	blob[len(blob)/2] ^= 0x01
	_, err = v.db.ExecContext(ctx,
		`UPDATE password_entries SET encrypted_password = ? WHERE id = ?`, blob, entry.Id)
	require.NoError(t, err)

	_, err = v.Store().GetEntry(ctx, entry.Id)
	assert.ErrorIs(t, err, common.ErrDecrypt)
}

func TestStore_SearchEntriesByTag(t *testing.T) {
	v := newUnlockedVault(t)
	ctx := context.Background()

	add := func(site string, tags ...string) string {
		e, err := v.Store().AddEntry(ctx, NewEntryParams{
			Site: site, Username: "u", Password: "p", Tags: tags,
		})
		require.NoError(t, err)
		return e.Id
	}

	id1 := add("one.com", "work")
	id2 := add("two.com", "work", "email")
	add("three.com", "home")

	result, err := v.Store().SearchEntries(ctx, models.SearchFilter{Tags: []string{"work"}})
	require.NoError(t, err)

	ids := make(map[string]struct{})
	for _, e := range result {
		ids[e.Id] = struct{}{}
	}
	assert.Equal(t, map[string]struct{}{id1: {}, id2: {}}, ids)

	// All supplied tags must match.
	result, err = v.Store().SearchEntries(ctx, models.SearchFilter{Tags: []string{"work", "email"}})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, id2, result[0].Id)
}

func TestStore_SearchEntriesByQuery(t *testing.T) {
	v := newUnlockedVault(t)
	ctx := context.Background()

	_, err := v.Store().AddEntry(ctx, NewEntryParams{
		Site: "github.com", Username: "alice", Password: "p", Notes: "code hosting",
	})
	require.NoError(t, err)
	_, err = v.Store().AddEntry(ctx, NewEntryParams{
		Site: "bank.example", Username: "alice", Password: "p",
	})
	require.NoError(t, err)

	for _, query := range []string{"github", "GITHUB", "hosting"} {
		result, err := v.Store().SearchEntries(ctx, models.SearchFilter{Query: query})
		require.NoError(t, err)
		require.Len(t, result, 1, "query %q", query)
		assert.Equal(t, "github.com", result[0].Site)
	}

	result, err := v.Store().SearchEntries(ctx, models.SearchFilter{Query: "alice"})
	require.NoError(t, err)
	assert.Len(t, result, 2)
}

func TestStore_SearchOrderAndDeterminism(t *testing.T) {
	clock := newFakeClock()
	v := newUnlockedVault(t, WithClock(clock.Now))
	ctx := context.Background()

	for _, site := range []string{"a.com", "b.com", "c.com"} {
		_, err := v.Store().AddEntry(ctx, NewEntryParams{Site: site, Username: "u", Password: "p"})
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	first, err := v.Store().SearchEntries(ctx, models.SearchFilter{})
	require.NoError(t, err)
	require.Len(t, first, 3)

	// Most recently updated first.
	assert.Equal(t, "c.com", first[0].Site)
	assert.Equal(t, "a.com", first[2].Site)

	for i := 0; i < 5; i++ {
		again, err := v.Store().SearchEntries(ctx, models.SearchFilter{})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestStore_AddGetSecretWithAudit(t *testing.T) {
	clock := newFakeClock()
	v := newUnlockedVault(t, WithClock(clock.Now))
	ctx := context.Background()

	secret, err := v.Store().AddSecret(ctx, NewSecretParams{
		Name: "deploy key",
		Data: &models.SSHKeyData{PrivateKey: "PRIVATE", KeyType: "ed25519"},
		Tags: []string{"infra"},
	})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	got, err := v.Store().GetSecret(ctx, secret.Id)
	require.NoError(t, err)

	key, ok := got.Data.(*models.SSHKeyData)
	require.True(t, ok)
	assert.Equal(t, "PRIVATE", key.PrivateKey)

	// get bumps last_accessed.
	reread, err := v.Store().GetSecret(ctx, secret.Id)
	require.NoError(t, err)
	require.NotNil(t, reread.LastAccessed)

	audit, err := v.Store().AuditLog(ctx, secret.Id)
	require.NoError(t, err)
	require.Len(t, audit, 3)
	assert.Equal(t, models.AuditCreated, audit[0].Action)
	assert.Equal(t, models.AuditAccessed, audit[1].Action)
	assert.Equal(t, models.AuditAccessed, audit[2].Action)
}

func TestStore_UpdateSecret(t *testing.T) {
	clock := newFakeClock()
	v := newUnlockedVault(t, WithClock(clock.Now))
	ctx := context.Background()

	secret, err := v.Store().AddSecret(ctx, NewSecretParams{
		Name: "api key",
		Data: &models.APIKeyData{Key: "old"},
	})
	require.NoError(t, err)

	clock.Advance(time.Hour)
	secret.Data = &models.APIKeyData{Key: "new"}
	require.NoError(t, v.Store().UpdateSecret(ctx, secret))

	got, err := v.Store().GetSecret(ctx, secret.Id)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Data.(*models.APIKeyData).Key)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestStore_DeleteSecretCascadesAudit(t *testing.T) {
	v := newUnlockedVault(t)
	ctx := context.Background()

	secret, err := v.Store().AddSecret(ctx, NewSecretParams{
		Name: "doomed",
		Data: &models.SecureNoteData{Content: "x", Format: models.NotePlain},
	})
	require.NoError(t, err)

	_, err = v.Store().GetSecret(ctx, secret.Id)
	require.NoError(t, err)

	require.NoError(t, v.Store().DeleteSecret(ctx, secret.Id))

	_, err = v.Store().GetSecret(ctx, secret.Id)
	assert.ErrorIs(t, err, common.ErrNotFound)

	audit, err := v.Store().AuditLog(ctx, secret.Id)
	require.NoError(t, err)
	assert.Empty(t, audit, "cascading delete removes the audit rows")
}

func TestStore_SearchSecretsFilters(t *testing.T) {
	v := newUnlockedVault(t)
	ctx := context.Background()

	add := func(name, env, project string, typ models.SecretData, tags ...string) string {
		s, err := v.Store().AddSecret(ctx, NewSecretParams{
			Name: name, Data: typ, Environment: env, Project: project, Tags: tags,
		})
		require.NoError(t, err)
		return s.Id
	}

	prodID := add("prod db", "prod", "billing",
		&models.DatabaseConnectionData{Engine: "postgres", ConnectionString: "x"}, "db")
	add("dev db", "dev", "billing",
		&models.DatabaseConnectionData{Engine: "postgres", ConnectionString: "y"}, "db")
	add("token", "prod", "billing", &models.APIKeyData{Key: "k"}, "api")

	result, err := v.Store().SearchSecrets(ctx, models.SecretFilter{
		Type: models.SecretTypeDatabaseConnection, Environment: "prod",
	})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, prodID, result[0].Id)

	result, err = v.Store().SearchSecrets(ctx, models.SecretFilter{Query: "db"})
	require.NoError(t, err)
	assert.Len(t, result, 2)

	result, err = v.Store().SearchSecrets(ctx, models.SecretFilter{Tags: []string{"api"}})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "token", result[0].Name)
}

func TestStore_ExpiringSecrets(t *testing.T) {
	clock := newFakeClock()
	v := newUnlockedVault(t, WithClock(clock.Now))
	ctx := context.Background()

	addWithExpiry := func(name string, expiresIn time.Duration) {
		expiry := clock.Now().Add(expiresIn)
		_, err := v.Store().AddSecret(ctx, NewSecretParams{
			Name: name, Data: &models.APIKeyData{Key: "k"}, ExpiresAt: &expiry,
		})
		require.NoError(t, err)
	}

	addWithExpiry("soon", 24*time.Hour)
	addWithExpiry("later", 90*24*time.Hour)
	addWithExpiry("expired", -time.Hour)
	_, err := v.Store().AddSecret(ctx, NewSecretParams{
		Name: "never", Data: &models.APIKeyData{Key: "k"},
	})
	require.NoError(t, err)

	result, err := v.Store().ExpiringSecrets(ctx, 7)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "soon", result[0].Name)

	_, err = v.Store().ExpiringSecrets(ctx, -1)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestStore_Statistics(t *testing.T) {
	clock := newFakeClock()
	v := newUnlockedVault(t, WithClock(clock.Now))
	ctx := context.Background()

	_, err := v.Store().AddEntry(ctx, NewEntryParams{
		Site: "a.com", Username: "u", Password: "p", Favorite: true,
	})
	require.NoError(t, err)

	expired := clock.Now().Add(-time.Hour)
	_, err = v.Store().AddSecret(ctx, NewSecretParams{
		Name: "old", Data: &models.APIKeyData{Key: "k"}, ExpiresAt: &expired,
	})
	require.NoError(t, err)
	_, err = v.Store().AddSecret(ctx, NewSecretParams{
		Name: "fav", Data: &models.SecureNoteData{Content: "c", Format: models.NotePlain}, Favorite: true,
	})
	require.NoError(t, err)

	stats, err := v.Store().Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.EntryCount)
	assert.Equal(t, int64(2), stats.SecretCount)
	assert.Equal(t, int64(1), stats.FavoriteEntries)
	assert.Equal(t, int64(1), stats.FavoriteSecrets)

	sstats, err := v.Store().SecretsStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sstats.Total)
	assert.Equal(t, int64(1), sstats.Favorites)
	assert.Equal(t, int64(1), sstats.Expired)
	assert.Equal(t, int64(1), sstats.ByType[models.SecretTypeAPIKey])
	assert.Equal(t, int64(1), sstats.ByType[models.SecretTypeSecureNote])
}

func TestStore_SecretRoundTripAllVariants(t *testing.T) {
	v := newUnlockedVault(t)
	ctx := context.Background()

	variants := []models.SecretData{
		&models.PasswordData{Username: "u", Password: "p", URL: "https://x"},
		&models.SSHKeyData{PrivateKey: "priv", KeyType: "rsa"},
		&models.APIKeyData{Key: "k", Scopes: []string{"read"}},
		&models.SecureNoteData{Content: "note", Format: models.NoteMarkdown},
		&models.DocumentData{Bytes: []byte{1, 2, 3}, ContentType: "application/octet-stream", Checksum: "c"},
		&models.ConfigurationData{Format: models.ConfigYAML, Content: "a: b"},
		&models.CertificateData{Certificate: "CERT", Format: "pem"},
		&models.DatabaseConnectionData{Engine: "sqlite", ConnectionString: "file:x.db"},
		&models.CloudCredentialsData{Provider: "gcp", AccessKey: "a", Extra: map[string]string{"p": "q"}},
		&models.CustomData{SchemaName: "s", Fields: map[string]string{"f": "v"}},
	}

	for _, data := range variants {
		secret, err := v.Store().AddSecret(ctx, NewSecretParams{
			Name: string(data.SecretType()), Data: data,
		})
		require.NoError(t, err)

		got, err := v.Store().GetSecret(ctx, secret.Id)
		require.NoError(t, err, "variant %s", data.SecretType())
		assert.Equal(t, data, got.Data, "variant %s", data.SecretType())
	}
}
