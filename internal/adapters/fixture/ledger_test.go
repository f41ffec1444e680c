package fixture_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alejandrodnm/predictbt/internal/adapters/fixture"
	"github.com/alejandrodnm/predictbt/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_Bundled(t *testing.T) {
	l, err := fixture.LoadFile(filepath.Join("..", "..", "..", "testdata", "fixtures", "ledger_rounds.json"))
	require.NoError(t, err)

	ctx := context.Background()
	current, err := l.CurrentEpoch(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(115), current)

	r, err := l.Round(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "3200000000000000000", r.BullAmount.String())

	// 108 tiene el pool UP vacío
	r, err = l.Round(ctx, 108)
	require.NoError(t, err)
	_, err = domain.DeriveRound(r)
	assert.ErrorIs(t, err, domain.ErrEmptyPool)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := fixture.LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"currentEpoch": 0}`), 0o644))
	_, err = fixture.LoadFile(bad)
	assert.Error(t, err)
}

func TestLedger_FailuresAndCalls(t *testing.T) {
	ctx := context.Background()
	l := fixture.NewLedger(10, domain.RawRound{Epoch: 1, BullAmount: decimal.NewFromInt(1)})

	_, err := l.Round(ctx, 1)
	require.NoError(t, err)

	boom := errors.New("boom")
	l.FailRound(1, boom)
	_, err = l.Round(ctx, 1)
	assert.ErrorIs(t, err, boom)

	_, err = l.Round(ctx, 2)
	assert.Error(t, err)

	assert.Equal(t, map[int64]int{1: 2, 2: 1}, l.RoundCalls())
	assert.Equal(t, 3, l.TotalRoundCalls())

	l.FailCurrentEpoch(boom)
	_, err = l.CurrentEpoch(ctx)
	assert.ErrorIs(t, err, boom)
}
