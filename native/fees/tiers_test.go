package fees

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func skrLadder() []FeeTier {
	return []FeeTier{
		{Level: 1, Name: "Explorer", MinBalance: 0, FeeBps: 25},
		{Level: 2, Name: "Initiate", MinBalance: 1_000, FeeBps: 23},
		{Level: 3, Name: "Seeker", MinBalance: 5_000, FeeBps: 21},
		{Level: 4, Name: "Holder", MinBalance: 10_000, FeeBps: 19},
		{Level: 5, Name: "Believer", MinBalance: 25_000, FeeBps: 17},
		{Level: 6, Name: "Supporter", MinBalance: 50_000, FeeBps: 15},
		{Level: 7, Name: "Advocate", MinBalance: 100_000, FeeBps: 13},
		{Level: 8, Name: "Guardian", MinBalance: 150_000, FeeBps: 11},
		{Level: 9, Name: "Champion", MinBalance: 250_000, FeeBps: 9},
		{Level: 10, Name: "Elite", MinBalance: 400_000, FeeBps: 7},
		{Level: 11, Name: "Master", MinBalance: 550_000, FeeBps: 5},
		{Level: 12, Name: "Legend", MinBalance: 750_000, FeeBps: 3},
		{Level: 13, Name: "Titan", MinBalance: 1_000_000, FeeBps: 2},
		{Level: 14, Name: "Immortal", MinBalance: 1_500_000, FeeBps: 1},
		{Level: 15, Name: "Mythic", MinBalance: 2_000_000, FeeBps: 0},
	}
}

func TestTierForBalanceThresholds(t *testing.T) {
	ladder := skrLadder()
	cases := []struct {
		name    string
		balance float64
		fee     int
	}{
		{"zero", 0, 25},
		{"just below second", 999, 25},
		{"second threshold", 1000, 23},
		{"between", 7_500, 21},
		{"top", 2_000_000, 0},
		{"beyond top", 9_000_000, 0},
		{"negative", -5, 25},
		{"nan", math.NaN(), 25},
		{"positive infinity", math.Inf(1), 0},
		{"negative infinity", math.Inf(-1), 25},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TierForBalance(ladder, tc.balance).FeeBps; got != tc.fee {
				t.Fatalf("balance %v: expected fee %d, got %d", tc.balance, tc.fee, got)
			}
		})
	}
}

func TestTierForBalanceInclusiveLowerBound(t *testing.T) {
	ladder := skrLadder()
	for i, tier := range ladder {
		if got := TierForBalance(ladder, tier.MinBalance); got != tier {
			t.Fatalf("threshold of tier %d resolved to %+v", i, got)
		}
		if i == 0 {
			continue
		}
		if got := TierForBalance(ladder, tier.MinBalance-1); got != ladder[i-1] {
			t.Fatalf("one below tier %d resolved to %+v", i, got)
		}
	}
}

func TestTierForBalanceMonotonicAndMembership(t *testing.T) {
	ladder := skrLadder()
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2_000; i++ {
		a := rng.Float64() * 3_000_000
		b := a + rng.Float64()*500_000
		ta := TierForBalance(ladder, a)
		tb := TierForBalance(ladder, b)
		if tb.FeeBps > ta.FeeBps {
			t.Fatalf("fee increased from %d to %d between %v and %v", ta.FeeBps, tb.FeeBps, a, b)
		}
		found := false
		for _, tier := range ladder {
			if tier == ta {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("tier %+v is not part of the ladder", ta)
		}
	}
}

func TestTierForBalanceEmptyLadder(t *testing.T) {
	if got := TierForBalance(nil, 100); got != (FeeTier{}) {
		t.Fatalf("expected zero tier, got %+v", got)
	}
	if _, ok := NextTier(nil, 100); ok {
		t.Fatalf("expected no next tier for empty ladder")
	}
}

func TestNextTier(t *testing.T) {
	ladder := skrLadder()
	next, ok := NextTier(ladder, 0)
	if !ok || next.Level != 2 {
		t.Fatalf("expected level 2 after zero balance, got %+v (ok=%v)", next, ok)
	}
	next, ok = NextTier(ladder, 1_999_999)
	if !ok || next.Level != 15 {
		t.Fatalf("expected level 15, got %+v (ok=%v)", next, ok)
	}
	if _, ok := NextTier(ladder, 2_000_000); ok {
		t.Fatalf("expected no tier above the top")
	}
	next, ok = NextTier(ladder, math.NaN())
	if !ok || next.Level != 2 {
		t.Fatalf("NaN balance should look at level 2, got %+v", next)
	}
}

func TestProgressToNextTier(t *testing.T) {
	ladder := skrLadder()
	cases := []struct {
		balance float64
		want    float64
	}{
		{0, 0},
		{500, 50},
		{1_000, 0},
		{3_000, 50},
		{2_000_000, 100},
		{50_000_000, 100},
		{-100, 0},
		{math.NaN(), 0},
		{math.Inf(1), 100},
	}
	for _, tc := range cases {
		got := ProgressToNextTier(ladder, tc.balance)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("balance %v: expected progress %v, got %v", tc.balance, tc.want, got)
		}
		if got < 0 || got > 100 {
			t.Fatalf("progress %v out of range", got)
		}
	}
}

func TestAmountToNextTier(t *testing.T) {
	ladder := skrLadder()
	if got := AmountToNextTier(ladder, 400); got != 600 {
		t.Fatalf("expected 600, got %v", got)
	}
	if got := AmountToNextTier(ladder, 2_500_000); got != 0 {
		t.Fatalf("expected 0 at top tier, got %v", got)
	}
	if got := AmountToNextTier(ladder, -10); got != 1_000 {
		t.Fatalf("expected full threshold for negative balance, got %v", got)
	}
}

func TestValidateLadder(t *testing.T) {
	if err := ValidateLadder(skrLadder()); err != nil {
		t.Fatalf("expected valid ladder, got %v", err)
	}
	cases := []struct {
		name  string
		tiers []FeeTier
		want  error
	}{
		{"empty", nil, ErrEmptyLadder},
		{"not anchored", []FeeTier{{Level: 1, MinBalance: 10, FeeBps: 5}}, ErrLadderNotAnchored},
		{"unordered", []FeeTier{{Level: 1, FeeBps: 5}, {Level: 2, MinBalance: 10, FeeBps: 4}, {Level: 3, MinBalance: 10, FeeBps: 3}}, ErrLadderUnordered},
		{"fee increase", []FeeTier{{Level: 1, FeeBps: 5}, {Level: 2, MinBalance: 10, FeeBps: 6}}, ErrLadderFeeIncrease},
		{"negative fee", []FeeTier{{Level: 1, FeeBps: -1}}, ErrInvalidTier},
		{"zero level", []FeeTier{{Level: 0, FeeBps: 1}}, ErrInvalidTier},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateLadder(tc.tiers)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestFormatFee(t *testing.T) {
	if got := FormatFee(0); got != "FREE" {
		t.Fatalf("unexpected format: %q", got)
	}
	if got := FormatFee(25); got != "0.25%" {
		t.Fatalf("unexpected format: %q", got)
	}
	if got := FormatFee(5); got != "0.05%" {
		t.Fatalf("unexpected format: %q", got)
	}
}

func TestSavings(t *testing.T) {
	if got := Savings(10_000, 5, 25); math.Abs(got-20) > 1e-9 {
		t.Fatalf("expected 20, got %v", got)
	}
}
