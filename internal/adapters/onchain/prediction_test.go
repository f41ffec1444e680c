package onchain

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCaller responde a currentEpoch y rounds empaquetando salidas con el mismo ABI.
type fakeCaller struct {
	current int64
	rounds  map[int64][]any
	calls   int
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	id := msg.Data[:4]

	switch {
	case bytes.Equal(id, predictionABI.Methods["currentEpoch"].ID):
		return predictionABI.Methods["currentEpoch"].Outputs.Pack(big.NewInt(f.current))

	case bytes.Equal(id, predictionABI.Methods["rounds"].ID):
		args, err := predictionABI.Methods["rounds"].Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		epoch := args[0].(*big.Int).Int64()
		out, ok := f.rounds[epoch]
		if !ok {
			return nil, errors.New("execution reverted")
		}
		return predictionABI.Methods["rounds"].Outputs.Pack(out...)
	}
	return nil, errors.New("unknown method")
}

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return v
}

func roundOutputs(epoch int64, lock, close int64, bull, bear string) []any {
	total := new(big.Int).Add(wei(bull), wei(bear))
	return []any{
		big.NewInt(epoch),
		big.NewInt(1_650_000_000),
		big.NewInt(1_650_000_300),
		big.NewInt(1_650_000_600),
		big.NewInt(lock),
		big.NewInt(close),
		big.NewInt(7),
		big.NewInt(8),
		total,
		wei(bull),
		wei(bear),
		wei(bull),
		total,
		true,
	}
}

func newTestClient(t *testing.T, f *fakeCaller) *PredictionClient {
	t.Helper()
	pc, err := NewPredictionClient(f, "", Options{RequestsPerSecond: 1000, Burst: 100})
	require.NoError(t, err)
	return pc
}

func TestPredictionClient_CurrentEpoch(t *testing.T) {
	f := &fakeCaller{current: 123456}
	pc := newTestClient(t, f)

	epoch, err := pc.CurrentEpoch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(123456), epoch)
}

func TestPredictionClient_Round(t *testing.T) {
	f := &fakeCaller{rounds: map[int64][]any{
		100: roundOutputs(100, 30_000_000_000, 30_100_000_000, "3000000000000000000", "1000000000000000000"),
	}}
	pc := newTestClient(t, f)

	raw, err := pc.Round(context.Background(), 100)
	require.NoError(t, err)

	assert.Equal(t, int64(100), raw.Epoch)
	assert.Equal(t, int64(1_650_000_600), raw.CloseTimestamp)
	assert.Equal(t, "30000000000", raw.LockPrice.String())
	assert.Equal(t, "30100000000", raw.ClosePrice.String())
	assert.Equal(t, "4000000000000000000", raw.TotalAmount.String())
	assert.Equal(t, "3000000000000000000", raw.BullAmount.String())
	assert.True(t, raw.OracleCalled)
}

func TestPredictionClient_NegativePrice(t *testing.T) {
	f := &fakeCaller{rounds: map[int64][]any{
		5: roundOutputs(5, -10, -5, "1", "1"),
	}}
	pc := newTestClient(t, f)

	raw, err := pc.Round(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "-10", raw.LockPrice.String())
}

func TestPredictionClient_RoundCallError(t *testing.T) {
	pc := newTestClient(t, &fakeCaller{rounds: map[int64][]any{}})

	_, err := pc.Round(context.Background(), 999)
	assert.ErrorContains(t, err, "execution reverted")
}

func TestPredictionClient_CancelledContext(t *testing.T) {
	f := &fakeCaller{current: 1}
	pc, err := NewPredictionClient(f, "", Options{RequestsPerSecond: 0.001, Burst: 1})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = pc.CurrentEpoch(ctx) // consume el único token
	require.NoError(t, err)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = pc.CurrentEpoch(cctx)
	assert.Error(t, err)
	assert.Equal(t, 1, f.calls)
}

func TestNewPredictionClient_InvalidAddress(t *testing.T) {
	_, err := NewPredictionClient(&fakeCaller{}, "not-an-address", Options{})
	assert.Error(t, err)
}
