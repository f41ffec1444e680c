package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alejandrodnm/predictbt/internal/adapters/storage"
	"github.com/alejandrodnm/predictbt/internal/domain"
	"github.com/alejandrodnm/predictbt/internal/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRecord(t *testing.T, epoch int64, bull, bear string) domain.RoundRecord {
	t.Helper()
	b := decimal.RequireFromString(bull)
	r := decimal.RequireFromString(bear)
	rec, err := domain.DeriveRound(domain.RawRound{
		Epoch:               epoch,
		StartTimestamp:      1_620_000_000 + epoch*300,
		LockTimestamp:       1_620_000_300 + epoch*300,
		CloseTimestamp:      1_620_000_600 + epoch*300,
		LockPrice:           decimal.RequireFromString("40000.12345678"),
		ClosePrice:          decimal.RequireFromString("40001.00000001"),
		TotalAmount:         b.Add(r),
		BullAmount:          b,
		BearAmount:          r,
		RewardBaseCalAmount: b,
		RewardAmount:        b.Add(r).Mul(decimal.RequireFromString("0.97")),
	})
	require.NoError(t, err)
	return rec
}

func sampleRounds(t *testing.T) []domain.RoundRecord {
	return []domain.RoundRecord{
		makeRecord(t, 102, "1.5", "2.25"),
		makeRecord(t, 100, "3000000000000000000", "1000000000000000000"),
		makeRecord(t, 101, "0.000000000000000001", "7"),
	}
}

func assertSameRounds(t *testing.T, want, got []domain.RoundRecord) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(got[i]), "epoch %d differs: %+v vs %+v", want[i].Epoch, want[i], got[i])
	}
}

// roundTrip se ejecuta contra cada backend.
func roundTrip(t *testing.T, c ports.RoundCache) {
	t.Helper()
	ctx := context.Background()

	empty, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	rounds := sampleRounds(t)
	require.NoError(t, c.Save(ctx, rounds))

	got, err := c.Load(ctx)
	require.NoError(t, err)
	assertSameRounds(t, []domain.RoundRecord{rounds[1], rounds[2], rounds[0]}, got)

	// Save reemplaza, no acumula
	require.NoError(t, c.Save(ctx, rounds[:1]))
	got, err = c.Load(ctx)
	require.NoError(t, err)
	assertSameRounds(t, rounds[:1], got)
}

func TestSQLiteCache_RoundTrip(t *testing.T) {
	c, err := storage.NewSQLiteCache(":memory:")
	require.NoError(t, err)
	defer c.Close()

	roundTrip(t, c)
}

func TestSQLiteCache_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rounds.db")
	ctx := context.Background()

	c, err := storage.NewSQLiteCache(path)
	require.NoError(t, err)
	rounds := sampleRounds(t)
	require.NoError(t, c.Save(ctx, rounds))
	require.NoError(t, c.Close())

	c, err = storage.NewSQLiteCache(path)
	require.NoError(t, err)
	defer c.Close()

	got, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, int64(100), got[0].Epoch)
}

func TestBadgerCache_RoundTrip(t *testing.T) {
	c, err := storage.NewBadgerCache(t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	roundTrip(t, c)
}

func TestJSONFileCache_RoundTrip(t *testing.T) {
	roundTrip(t, storage.NewJSONFileCache(filepath.Join(t.TempDir(), "nested", "rounds.json")))
}

func TestMemoryCache_RoundTrip(t *testing.T) {
	roundTrip(t, storage.NewMemoryCache())
}

func TestJSONFileCache_CorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rounds.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"epoch": 1, "lockPrice": `), 0o644))

	got, err := storage.NewJSONFileCache(path).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestJSONFileCache_InvalidRoundsAreEmpty(t *testing.T) {
	cases := map[string]string{
		"unknown winner": `[{"epoch": 100, "winner": "bull", "totalAmount": "2", "bullAmount": "1", "bearAmount": "1", "bullPayout": "2", "bearPayout": "2"}]`,
		"bare epoch":     `[{"epoch": 100, "winner": "UP", "totalAmount": "2", "bullAmount": "1", "bearAmount": "1", "bullPayout": "2", "bearPayout": "2"}, {"epoch": 101}]`,
		"zero payout":    `[{"epoch": 100, "winner": "DOWN", "totalAmount": "2", "bullAmount": "1", "bearAmount": "1", "bullPayout": "0", "bearPayout": "2"}]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rounds.json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

			got, err := storage.NewJSONFileCache(path).Load(context.Background())
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestBadgerCache_OverwritePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	rounds := sampleRounds(t)

	c, err := storage.NewBadgerCache(dir)
	require.NoError(t, err)
	require.NoError(t, c.Save(ctx, rounds))
	require.NoError(t, c.Save(ctx, rounds[1:]))
	require.NoError(t, c.Close())

	c, err = storage.NewBadgerCache(dir)
	require.NoError(t, err)
	defer c.Close()

	got, err := c.Load(ctx)
	require.NoError(t, err)
	assertSameRounds(t, []domain.RoundRecord{rounds[1], rounds[2]}, got)

	require.NoError(t, c.Save(ctx, rounds))
	got, err = c.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestJSONFileCache_FieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rounds.json")
	c := storage.NewJSONFileCache(path)
	require.NoError(t, c.Save(context.Background(), sampleRounds(t)[:1]))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"bullPayout": "2.5"`)
	assert.Contains(t, string(data), `"rewardBaseCalAmount"`)
	assert.Contains(t, string(data), `"winner": "UP"`)
}

func TestOpen_Backends(t *testing.T) {
	dir := t.TempDir()

	for _, backend := range []string{"", storage.BackendJSON, storage.BackendSQLite, storage.BackendBadger, storage.BackendMemory} {
		path := filepath.Join(dir, "cache-"+backend)
		c, err := storage.Open(backend, path)
		require.NoError(t, err, backend)
		require.NoError(t, c.Close())
	}

	_, err := storage.Open("redis", filepath.Join(dir, "x"))
	assert.Error(t, err)
}
