package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/alejandrodnm/predictbt/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func makeRaw(epoch int64, lock, close, bull, bear string) domain.RawRound {
	return domain.RawRound{
		Epoch:               epoch,
		StartTimestamp:      1_700_000_000 + epoch*300,
		LockTimestamp:       1_700_000_300 + epoch*300,
		CloseTimestamp:      1_700_000_600 + epoch*300,
		LockPrice:           dec(lock),
		ClosePrice:          dec(close),
		BullAmount:          dec(bull),
		BearAmount:          dec(bear),
		TotalAmount:         dec(bull).Add(dec(bear)),
		RewardBaseCalAmount: dec(bull),
		RewardAmount:        dec(bull).Add(dec(bear)).Mul(dec("0.97")),
		OracleCalled:        true,
	}
}

func TestWinnerOf(t *testing.T) {
	cases := []struct {
		name        string
		lock, close string
		want        domain.Side
	}{
		{"close above lock", "30000000000", "30000000001", domain.SideUp},
		{"close below lock", "30000000000", "29999999999", domain.SideDown},
		{"tie resolves down", "30000000000", "30000000000", domain.SideDown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.WinnerOf(dec(tc.lock), dec(tc.close)))
		})
	}
}

func TestPayout_RoundsHalfUpToThreeDigits(t *testing.T) {
	// 3 / 2 = 1.5
	assert.Equal(t, "1.5", domain.Payout(dec("3"), dec("2")).String())
	// 10 / 3 = 3.3333…
	assert.Equal(t, "3.333", domain.Payout(dec("10"), dec("3")).String())
	// 20 / 3 = 6.6666…
	assert.Equal(t, "6.667", domain.Payout(dec("20"), dec("3")).String())
	// 1.0005 / 1 sits exactly on the half
	assert.Equal(t, "1.001", domain.Payout(dec("1.0005"), dec("1")).String())
	// 1.00049999 / 1 stays below the half
	assert.Equal(t, "1", domain.Payout(dec("1.00049999"), dec("1")).String())
}

func TestDeriveRound_Success(t *testing.T) {
	raw := makeRaw(120, "100", "101", "3", "1")

	rec, err := domain.DeriveRound(raw)
	require.NoError(t, err)

	assert.Equal(t, int64(120), rec.Epoch)
	assert.Equal(t, domain.SideUp, rec.Winner)
	assert.True(t, dec("1.333").Equal(rec.BullPayout), rec.BullPayout.String())
	assert.True(t, dec("4").Equal(rec.BearPayout), rec.BearPayout.String())
	assert.True(t, raw.TotalAmount.Equal(rec.TotalAmount))
	assert.Equal(t, raw.CloseTimestamp, rec.CloseTimestamp)
}

func TestDeriveRound_ZeroSideIsDropped(t *testing.T) {
	_, err := domain.DeriveRound(makeRaw(121, "100", "101", "0", "5"))
	assert.ErrorIs(t, err, domain.ErrEmptyPool)

	_, err = domain.DeriveRound(makeRaw(122, "100", "101", "5", "0"))
	assert.ErrorIs(t, err, domain.ErrEmptyPool)
}

func TestDeriveRound_Malformed(t *testing.T) {
	raw := makeRaw(123, "100", "101", "5", "5")
	raw.BearAmount = dec("-1")

	_, err := domain.DeriveRound(raw)
	assert.ErrorIs(t, err, domain.ErrMalformedRound)
}

func TestRoundRecord_JSONFieldNames(t *testing.T) {
	rec, err := domain.DeriveRound(makeRaw(130, "100", "99", "2", "2"))
	require.NoError(t, err)

	b, err := json.Marshal(rec)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(b, &fields))
	for _, k := range []string{
		"epoch", "startTimestamp", "lockTimestamp", "closeTimestamp",
		"lockPrice", "closePrice", "totalAmount", "bullAmount", "bearAmount",
		"rewardBaseCalAmount", "rewardAmount", "winner", "bullPayout", "bearPayout",
	} {
		assert.Contains(t, fields, k)
	}
	assert.Len(t, fields, 14)
	assert.Equal(t, "DOWN", fields["winner"])

	var back domain.RoundRecord
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, rec.Equal(back))
}

func TestRoundRecord_PayoutFor(t *testing.T) {
	rec, err := domain.DeriveRound(makeRaw(131, "1", "2", "1", "3"))
	require.NoError(t, err)

	assert.True(t, rec.PayoutFor(domain.SideUp).Equal(rec.BullPayout))
	assert.True(t, rec.PayoutFor(domain.SideDown).Equal(rec.BearPayout))
	assert.True(t, rec.AmountFor(domain.SideDown).Equal(dec("3")))
	assert.Equal(t, domain.SideDown, domain.SideUp.Opposite())
}

func TestRoundRecord_Validate(t *testing.T) {
	good, err := domain.DeriveRound(makeRaw(100, "1", "2", "3", "1"))
	require.NoError(t, err)
	require.NoError(t, good.Validate())

	badWinner := good
	badWinner.Winner = "bull"
	assert.ErrorIs(t, badWinner.Validate(), domain.ErrMalformedRound)

	zeroPayout := good
	zeroPayout.BearPayout = decimal.Zero
	assert.ErrorIs(t, zeroPayout.Validate(), domain.ErrMalformedRound)

	emptyPool := good
	emptyPool.BullAmount = decimal.Zero
	assert.ErrorIs(t, emptyPool.Validate(), domain.ErrEmptyPool)

	assert.ErrorIs(t, domain.ValidateRounds([]domain.RoundRecord{good, {Epoch: 101}}), domain.ErrMalformedRound)
	assert.NoError(t, domain.ValidateRounds(nil))
}
