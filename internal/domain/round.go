package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Side is one of the two outcomes of a round.
type Side string

const (
	SideUp   Side = "UP"
	SideDown Side = "DOWN"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideUp {
		return SideDown
	}
	return SideUp
}

// Valid reports whether s is UP or DOWN.
func (s Side) Valid() bool {
	return s == SideUp || s == SideDown
}

// PayoutPrecision is the number of fractional digits kept on derived payouts.
const PayoutPrecision int32 = 3

var (
	ErrEmptyPool      = errors.New("round has an empty pool side")
	ErrMalformedRound = errors.New("malformed round data")
)

// RawRound is a round exactly as the ledger reports it, before derivation.
// Amounts and prices stay in raw contract units.
type RawRound struct {
	Epoch               int64           `json:"epoch"`
	StartTimestamp      int64           `json:"startTimestamp"`
	LockTimestamp       int64           `json:"lockTimestamp"`
	CloseTimestamp      int64           `json:"closeTimestamp"`
	LockPrice           decimal.Decimal `json:"lockPrice"`
	ClosePrice          decimal.Decimal `json:"closePrice"`
	TotalAmount         decimal.Decimal `json:"totalAmount"`
	BullAmount          decimal.Decimal `json:"bullAmount"`
	BearAmount          decimal.Decimal `json:"bearAmount"`
	RewardBaseCalAmount decimal.Decimal `json:"rewardBaseCalAmount"`
	RewardAmount        decimal.Decimal `json:"rewardAmount"`
	OracleCalled        bool            `json:"oracleCalled"`
}

// RoundRecord is one resolved round with its derived winner and payouts.
// Records are created once when fetched and never mutated.
type RoundRecord struct {
	Epoch               int64           `json:"epoch"`
	StartTimestamp      int64           `json:"startTimestamp"`
	LockTimestamp       int64           `json:"lockTimestamp"`
	CloseTimestamp      int64           `json:"closeTimestamp"`
	LockPrice           decimal.Decimal `json:"lockPrice"`
	ClosePrice          decimal.Decimal `json:"closePrice"`
	TotalAmount         decimal.Decimal `json:"totalAmount"`
	BullAmount          decimal.Decimal `json:"bullAmount"`
	BearAmount          decimal.Decimal `json:"bearAmount"`
	RewardBaseCalAmount decimal.Decimal `json:"rewardBaseCalAmount"`
	RewardAmount        decimal.Decimal `json:"rewardAmount"`
	Winner              Side            `json:"winner"`
	BullPayout          decimal.Decimal `json:"bullPayout"`
	BearPayout          decimal.Decimal `json:"bearPayout"`
}

// DeriveRound computes winner and payouts from a raw round (the payout
// calculator). A zero side amount or a non-positive total yields an error and
// the round is dropped by the caller.
func DeriveRound(raw RawRound) (RoundRecord, error) {
	if raw.Epoch < 0 || raw.TotalAmount.IsNegative() || raw.BullAmount.IsNegative() || raw.BearAmount.IsNegative() {
		return RoundRecord{}, fmt.Errorf("domain.DeriveRound: epoch %d: %w", raw.Epoch, ErrMalformedRound)
	}
	if raw.BullAmount.IsZero() || raw.BearAmount.IsZero() || raw.TotalAmount.IsZero() {
		return RoundRecord{}, fmt.Errorf("domain.DeriveRound: epoch %d: %w", raw.Epoch, ErrEmptyPool)
	}

	return RoundRecord{
		Epoch:               raw.Epoch,
		StartTimestamp:      raw.StartTimestamp,
		LockTimestamp:       raw.LockTimestamp,
		CloseTimestamp:      raw.CloseTimestamp,
		LockPrice:           raw.LockPrice,
		ClosePrice:          raw.ClosePrice,
		TotalAmount:         raw.TotalAmount,
		BullAmount:          raw.BullAmount,
		BearAmount:          raw.BearAmount,
		RewardBaseCalAmount: raw.RewardBaseCalAmount,
		RewardAmount:        raw.RewardAmount,
		Winner:              WinnerOf(raw.LockPrice, raw.ClosePrice),
		BullPayout:          Payout(raw.TotalAmount, raw.BullAmount),
		BearPayout:          Payout(raw.TotalAmount, raw.BearAmount),
	}, nil
}

// WinnerOf returns UP only when the close price is strictly above the lock
// price. A tie resolves DOWN.
func WinnerOf(lockPrice, closePrice decimal.Decimal) Side {
	if closePrice.GreaterThan(lockPrice) {
		return SideUp
	}
	return SideDown
}

// Payout is total/side rounded half-up to PayoutPrecision digits.
// side must be non-zero.
func Payout(total, side decimal.Decimal) decimal.Decimal {
	return total.DivRound(side, PayoutPrecision)
}

// PayoutFor returns the payout multiplier of the given side.
func (r RoundRecord) PayoutFor(s Side) decimal.Decimal {
	if s == SideUp {
		return r.BullPayout
	}
	return r.BearPayout
}

// AmountFor returns the pooled stake on the given side.
func (r RoundRecord) AmountFor(s Side) decimal.Decimal {
	if s == SideUp {
		return r.BullAmount
	}
	return r.BearAmount
}

// Validate checks the invariants DeriveRound guarantees, for records read
// back from a persisted cache.
func (r RoundRecord) Validate() error {
	switch {
	case r.Epoch < 0:
		return fmt.Errorf("epoch %d: %w", r.Epoch, ErrMalformedRound)
	case !r.Winner.Valid():
		return fmt.Errorf("epoch %d: winner %q: %w", r.Epoch, r.Winner, ErrMalformedRound)
	case !r.BullPayout.IsPositive() || !r.BearPayout.IsPositive():
		return fmt.Errorf("epoch %d: non-positive payout: %w", r.Epoch, ErrMalformedRound)
	case !r.BullAmount.IsPositive() || !r.BearAmount.IsPositive() || !r.TotalAmount.IsPositive():
		return fmt.Errorf("epoch %d: %w", r.Epoch, ErrEmptyPool)
	}
	return nil
}

// ValidateRounds returns the first invalid record's error, if any.
func ValidateRounds(rounds []RoundRecord) error {
	for _, r := range rounds {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Equal compares two records field by field, decimals by value.
func (r RoundRecord) Equal(o RoundRecord) bool {
	return r.Epoch == o.Epoch &&
		r.StartTimestamp == o.StartTimestamp &&
		r.LockTimestamp == o.LockTimestamp &&
		r.CloseTimestamp == o.CloseTimestamp &&
		r.LockPrice.Equal(o.LockPrice) &&
		r.ClosePrice.Equal(o.ClosePrice) &&
		r.TotalAmount.Equal(o.TotalAmount) &&
		r.BullAmount.Equal(o.BullAmount) &&
		r.BearAmount.Equal(o.BearAmount) &&
		r.RewardBaseCalAmount.Equal(o.RewardBaseCalAmount) &&
		r.RewardAmount.Equal(o.RewardAmount) &&
		r.Winner == o.Winner &&
		r.BullPayout.Equal(o.BullPayout) &&
		r.BearPayout.Equal(o.BearPayout)
}
