package entries

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/pwvault/internal/common"
	"github.com/dmitrijs2005/pwvault/internal/vault/migrations"
	"github.com/dmitrijs2005/pwvault/internal/vault/models"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.UpContext(context.Background(), db, "."))

	return db
}

func sampleEntry(id string, updatedAt time.Time) *models.PasswordEntry {
	return &models.PasswordEntry{
		Id:                id,
		Site:              "example.com",
		Username:          "user-" + id,
		EncryptedPassword: []byte{0x01, 0x02, 0x03},
		Notes:             "note",
		Tags:              []string{"work"},
		CreatedAt:         updatedAt.Add(-time.Hour),
		UpdatedAt:         updatedAt,
	}
}

func TestInsertAndGetByID(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	e := sampleEntry("id1", now)
	require.NoError(t, r.Insert(ctx, e))

	got, err := r.GetByID(ctx, "id1")
	require.NoError(t, err)
	assert.Equal(t, e.Site, got.Site)
	assert.Equal(t, e.EncryptedPassword, got.EncryptedPassword)
	assert.Equal(t, []string{"work"}, got.Tags)
	assert.Equal(t, now, got.UpdatedAt)
	assert.Nil(t, got.LastUsed)
}

func TestInsert_DuplicateID(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, r.Insert(ctx, sampleEntry("dup", now)))
	err := r.Insert(ctx, sampleEntry("dup", now))
	assert.ErrorIs(t, err, common.ErrDuplicate)
}

func TestGetByID_NotFound(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := r.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	e := sampleEntry("u1", now)
	require.NoError(t, r.Insert(ctx, e))

	e.EncryptedPassword = []byte{0xAA}
	e.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, r.Update(ctx, e))

	got, err := r.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA}, got.EncryptedPassword)
	assert.Equal(t, now.Add(time.Minute), got.UpdatedAt)

	err = r.Update(ctx, sampleEntry("missing", now))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteByID(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, sampleEntry("d1", time.Now().UTC())))
	require.NoError(t, r.DeleteByID(ctx, "d1"))

	_, err := r.GetByID(ctx, "d1")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, r.DeleteByID(ctx, "d1"), common.ErrNotFound)
}

func TestSearch_OrderingAndFilters(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	older := sampleEntry("b-older", base)
	newer := sampleEntry("a-newer", base.Add(time.Hour))
	tie := sampleEntry("c-tie", base.Add(time.Hour))
	fav := sampleEntry("z-fav", base.Add(2*time.Hour))
	fav.Favorite = true
	fav.Site = "favorite.example"

	for _, e := range []*models.PasswordEntry{older, newer, tie, fav} {
		require.NoError(t, r.Insert(ctx, e))
	}

	all, err := r.Search(ctx, "", false)
	require.NoError(t, err)
	require.Len(t, all, 4)
	// updated_at descending, id ascending on ties
	assert.Equal(t, "z-fav", all[0].Id)
	assert.Equal(t, "a-newer", all[1].Id)
	assert.Equal(t, "c-tie", all[2].Id)
	assert.Equal(t, "b-older", all[3].Id)

	favs, err := r.Search(ctx, "", true)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, "z-fav", favs[0].Id)

	match, err := r.Search(ctx, "FAVORITE.EX", false)
	require.NoError(t, err)
	require.Len(t, match, 1)
	assert.Equal(t, "z-fav", match[0].Id)
}

func TestListSince(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, r.Insert(ctx, sampleEntry("early", base)))
	require.NoError(t, r.Insert(ctx, sampleEntry("late", base.Add(time.Hour))))

	got, err := r.ListSince(ctx, base)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "late", got[0].Id)

	// The boundary is strict.
	got, err = r.ListSince(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMarkUsedAndCounts(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	e := sampleEntry("m1", time.Now().UTC())
	e.Favorite = true
	require.NoError(t, r.Insert(ctx, e))

	when := time.Date(2026, 8, 2, 8, 30, 0, 0, time.UTC)
	require.NoError(t, r.MarkUsed(ctx, "m1", when))

	got, err := r.GetByID(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, got.LastUsed)
	assert.Equal(t, when, *got.LastUsed)

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	nf, err := r.CountFavorites(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), nf)

	assert.ErrorIs(t, r.MarkUsed(ctx, "missing", when), common.ErrNotFound)
}
