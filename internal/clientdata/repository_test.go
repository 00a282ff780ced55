package clientdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptofolio/internal/database"
)

type payload struct {
	Price  float64
	Change float64
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    t.TempDir() + "/cache.db",
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	return NewRepository(db.Conn())
}

func TestStoreAndGetIfFresh(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store("BTC", payload{Price: 50000, Change: 2.5}, time.Minute))

	var got payload
	ok, err := repo.GetIfFresh("BTC", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 50000, got.Price, 1e-9)
	assert.InDelta(t, 2.5, got.Change, 1e-9)
}

func TestGetIfFresh_ExpiredEntry(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store("BTC", payload{Price: 50000}, -time.Second))

	var got payload
	ok, err := repo.GetIfFresh("BTC", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	// Stale read still works
	ok, err = repo.Get("BTC", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 50000, got.Price, 1e-9)
}

func TestGet_UnknownSymbol(t *testing.T) {
	repo := newTestRepo(t)

	var got payload
	ok, err := repo.Get("NOPE", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Upserts(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store("BTC", payload{Price: 1}, time.Minute))
	require.NoError(t, repo.Store("BTC", payload{Price: 2}, time.Minute))

	var got payload
	ok, err := repo.GetIfFresh("BTC", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 2, got.Price, 1e-9)
}

func TestDeleteExpired(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store("FRESH", payload{Price: 1}, time.Minute))
	require.NoError(t, repo.Store("STALE", payload{Price: 2}, -time.Minute))

	deleted, err := repo.DeleteExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var got payload
	ok, err := repo.Get("STALE", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.GetIfFresh("FRESH", &got)
	require.NoError(t, err)
	assert.True(t, ok)
}
