package onchain

// prediction.go: lectura del contrato PancakeSwap Prediction V2 en BSC.
//
// Solo se usan dos vistas del contrato:
//   - currentEpoch() → ronda abierta actual
//   - rounds(epoch)  → struct Round completo
//
// Los importes se mantienen en unidades crudas del contrato (wei para los
// pools, unidades del oráculo para los precios). El payout es un cociente y
// el ganador una comparación, así que la escala no afecta al resultado.

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/alejandrodnm/predictbt/internal/domain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	// DefaultRPCURL es el dataseed público de BSC.
	DefaultRPCURL = "https://bsc-dataseed.binance.org/"
	// DefaultContract es PancakePredictionV2 (BNB/USD).
	DefaultContract = "0x18b2a687610328590bc8f2e5fedde3b582a49cda"

	defaultRatePerSec = 50
	defaultBurst      = 25

	roundsOutputs = 14
)

var predictionABI abi.ABI

func init() {
	var err error
	predictionABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "currentEpoch",
			"type": "function",
			"stateMutability": "view",
			"inputs": [],
			"outputs": [{"name": "", "type": "uint256"}]
		},
		{
			"name": "rounds",
			"type": "function",
			"stateMutability": "view",
			"inputs": [{"name": "", "type": "uint256"}],
			"outputs": [
				{"name": "epoch", "type": "uint256"},
				{"name": "startTimestamp", "type": "uint256"},
				{"name": "lockTimestamp", "type": "uint256"},
				{"name": "closeTimestamp", "type": "uint256"},
				{"name": "lockPrice", "type": "int256"},
				{"name": "closePrice", "type": "int256"},
				{"name": "lockOracleId", "type": "uint256"},
				{"name": "closeOracleId", "type": "uint256"},
				{"name": "totalAmount", "type": "uint256"},
				{"name": "bullAmount", "type": "uint256"},
				{"name": "bearAmount", "type": "uint256"},
				{"name": "rewardBaseCalAmount", "type": "uint256"},
				{"name": "rewardAmount", "type": "uint256"},
				{"name": "oracleCalled", "type": "bool"}
			]
		}
	]`))
	if err != nil {
		panic("prediction abi parse: " + err.Error())
	}
}

// ContractCaller es el subconjunto de ethclient.Client que se necesita.
// Permite sustituir el RPC por un fake en tests.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// PredictionClient implementa ports.LedgerQuery sobre el contrato de predicción.
type PredictionClient struct {
	caller   ContractCaller
	contract common.Address
	limiter  *rate.Limiter
	closer   func()
}

// Options ajusta el rate limiting del cliente. Valores cero usan los defaults.
type Options struct {
	RequestsPerSecond float64
	Burst             int
}

// Dial conecta al RPC dado y devuelve un cliente listo para consultar el contrato.
func Dial(ctx context.Context, rpcURL, contract string, opts Options) (*PredictionClient, error) {
	if rpcURL == "" {
		rpcURL = DefaultRPCURL
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("onchain.Dial: dial rpc %s: %w", rpcURL, err)
	}
	pc, err := NewPredictionClient(client, contract, opts)
	if err != nil {
		client.Close()
		return nil, err
	}
	pc.closer = client.Close
	return pc, nil
}

// NewPredictionClient envuelve un ContractCaller ya conectado.
func NewPredictionClient(caller ContractCaller, contract string, opts Options) (*PredictionClient, error) {
	if contract == "" {
		contract = DefaultContract
	}
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("onchain.NewPredictionClient: invalid contract address %q", contract)
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRatePerSec
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	return &PredictionClient{
		caller:   caller,
		contract: common.HexToAddress(contract),
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
	}, nil
}

// Close cierra la conexión RPC si el cliente la abrió.
func (pc *PredictionClient) Close() {
	if pc.closer != nil {
		pc.closer()
	}
}

// CurrentEpoch devuelve el epoch de la ronda abierta.
func (pc *PredictionClient) CurrentEpoch(ctx context.Context) (int64, error) {
	vals, err := pc.call(ctx, "currentEpoch")
	if err != nil {
		return 0, fmt.Errorf("onchain.CurrentEpoch: %w", err)
	}
	if len(vals) != 1 {
		return 0, fmt.Errorf("onchain.CurrentEpoch: unexpected output count %d", len(vals))
	}
	epoch, ok := vals[0].(*big.Int)
	if !ok || !epoch.IsInt64() {
		return 0, fmt.Errorf("onchain.CurrentEpoch: unexpected output %v", vals[0])
	}
	return epoch.Int64(), nil
}

// Round lee el struct Round del epoch dado.
func (pc *PredictionClient) Round(ctx context.Context, epoch int64) (domain.RawRound, error) {
	vals, err := pc.call(ctx, "rounds", big.NewInt(epoch))
	if err != nil {
		return domain.RawRound{}, fmt.Errorf("onchain.Round: epoch %d: %w", epoch, err)
	}
	raw, err := decodeRound(vals)
	if err != nil {
		return domain.RawRound{}, fmt.Errorf("onchain.Round: epoch %d: %w", epoch, err)
	}
	return raw, nil
}

// call empaqueta, espera al limiter, llama y desempaqueta.
func (pc *PredictionClient) call(ctx context.Context, method string, args ...any) ([]any, error) {
	callData, err := predictionABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	if err := pc.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	result, err := pc.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &pc.contract,
		Data: callData,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	vals, err := predictionABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return vals, nil
}

// decodeRound convierte la salida de rounds(uint256) en un RawRound.
// El orden sigue el struct Round del contrato.
func decodeRound(vals []any) (domain.RawRound, error) {
	if len(vals) != roundsOutputs {
		return domain.RawRound{}, fmt.Errorf("unexpected output count %d", len(vals))
	}
	ints := make([]*big.Int, roundsOutputs-1)
	for i := range ints {
		v, ok := vals[i].(*big.Int)
		if !ok {
			return domain.RawRound{}, fmt.Errorf("output %d: unexpected type %T", i, vals[i])
		}
		ints[i] = v
	}
	oracleCalled, ok := vals[roundsOutputs-1].(bool)
	if !ok {
		return domain.RawRound{}, fmt.Errorf("oracleCalled: unexpected type %T", vals[roundsOutputs-1])
	}

	// ints[6] y ints[7] son los oracle ids, no se usan.
	return domain.RawRound{
		Epoch:               ints[0].Int64(),
		StartTimestamp:      ints[1].Int64(),
		LockTimestamp:       ints[2].Int64(),
		CloseTimestamp:      ints[3].Int64(),
		LockPrice:           decimal.NewFromBigInt(ints[4], 0),
		ClosePrice:          decimal.NewFromBigInt(ints[5], 0),
		TotalAmount:         decimal.NewFromBigInt(ints[8], 0),
		BullAmount:          decimal.NewFromBigInt(ints[9], 0),
		BearAmount:          decimal.NewFromBigInt(ints[10], 0),
		RewardBaseCalAmount: decimal.NewFromBigInt(ints[11], 0),
		RewardAmount:        decimal.NewFromBigInt(ints[12], 0),
		OracleCalled:        oracleCalled,
	}, nil
}
