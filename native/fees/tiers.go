package fees

import (
	"errors"
	"fmt"
	"math"
)

// BpsDenominator is the number of basis points in a whole.
const BpsDenominator = 10_000

var (
	ErrEmptyLadder       = errors.New("fees: empty tier ladder")
	ErrLadderNotAnchored = errors.New("fees: first tier must start at zero balance")
	ErrLadderUnordered   = errors.New("fees: tiers must be strictly ascending by min balance")
	ErrLadderFeeIncrease = errors.New("fees: fee must not increase with balance")
	ErrInvalidTier       = errors.New("fees: invalid tier")
)

// FeeTier is one rung of a balance-gated fee ladder.
type FeeTier struct {
	Level      int     `json:"level" toml:"level"`
	Name       string  `json:"name" toml:"name"`
	MinBalance float64 `json:"minBalance" toml:"min_balance"`
	FeeBps     int     `json:"feeBps" toml:"fee_bps"`
	Icon       string  `json:"icon" toml:"icon"`
}

// ValidateLadder checks the ordering invariants of a ladder. Ladders are
// configuration, so a failure here is meant to stop the process at startup.
func ValidateLadder(tiers []FeeTier) error {
	if len(tiers) == 0 {
		return ErrEmptyLadder
	}
	if tiers[0].MinBalance != 0 {
		return ErrLadderNotAnchored
	}
	for i, tier := range tiers {
		if tier.Level <= 0 {
			return fmt.Errorf("%w: tier %d level must be positive", ErrInvalidTier, i)
		}
		if tier.FeeBps < 0 || tier.FeeBps > BpsDenominator {
			return fmt.Errorf("%w: tier %d fee %d bps out of range", ErrInvalidTier, i, tier.FeeBps)
		}
		if math.IsNaN(tier.MinBalance) || math.IsInf(tier.MinBalance, 0) || tier.MinBalance < 0 {
			return fmt.Errorf("%w: tier %d min balance must be finite and non-negative", ErrInvalidTier, i)
		}
		if i == 0 {
			continue
		}
		prev := tiers[i-1]
		if tier.MinBalance <= prev.MinBalance {
			return fmt.Errorf("%w: tier %d (%s)", ErrLadderUnordered, i, tier.Name)
		}
		if tier.FeeBps > prev.FeeBps {
			return fmt.Errorf("%w: tier %d (%s)", ErrLadderFeeIncrease, i, tier.Name)
		}
	}
	return nil
}

// tierIndex returns the position of the tier that applies to balance. NaN and
// anything below the first threshold resolve to the first tier.
func tierIndex(tiers []FeeTier, balance float64) int {
	for i := len(tiers) - 1; i >= 0; i-- {
		if balance >= tiers[i].MinBalance {
			return i
		}
	}
	return 0
}

// TierForBalance returns the highest tier whose threshold is at or below the
// balance. It never fails for a non-empty ladder: bad input lands on the first
// (most expensive) tier. An empty ladder yields the zero FeeTier.
func TierForBalance(tiers []FeeTier, balance float64) FeeTier {
	if len(tiers) == 0 {
		return FeeTier{}
	}
	return tiers[tierIndex(tiers, balance)]
}

// NextTier returns the tier directly above the one the balance qualifies for.
// The boolean is false when the balance already sits on the last tier.
func NextTier(tiers []FeeTier, balance float64) (FeeTier, bool) {
	if len(tiers) == 0 {
		return FeeTier{}, false
	}
	idx := tierIndex(tiers, balance)
	if idx >= len(tiers)-1 {
		return FeeTier{}, false
	}
	return tiers[idx+1], true
}

// ProgressToNextTier reports how far the balance has travelled between the
// current tier threshold and the next one, as a percentage in [0, 100].
func ProgressToNextTier(tiers []FeeTier, balance float64) float64 {
	next, ok := NextTier(tiers, balance)
	if !ok {
		return 100
	}
	if math.IsNaN(balance) {
		return 0
	}
	current := TierForBalance(tiers, balance)
	span := next.MinBalance - current.MinBalance
	if span <= 0 {
		return 100
	}
	progress := (balance - current.MinBalance) / span * 100
	return math.Max(0, math.Min(100, progress))
}

// AmountToNextTier returns the additional balance required to reach the next
// tier, or zero when there is none.
func AmountToNextTier(tiers []FeeTier, balance float64) float64 {
	next, ok := NextTier(tiers, balance)
	if !ok {
		return 0
	}
	if math.IsNaN(balance) || balance < 0 {
		return next.MinBalance
	}
	return math.Max(0, next.MinBalance-balance)
}

// FormatFee renders a fee for display, e.g. "0.25%" or "FREE".
func FormatFee(feeBps int) string {
	if feeBps <= 0 {
		return "FREE"
	}
	return fmt.Sprintf("%.2f%%", float64(feeBps)/100)
}

// Savings is the fee avoided on amount when paying feeBps instead of baseBps.
func Savings(amount float64, feeBps, baseBps int) float64 {
	base := amount * float64(baseBps) / BpsDenominator
	actual := amount * float64(feeBps) / BpsDenominator
	return base - actual
}
