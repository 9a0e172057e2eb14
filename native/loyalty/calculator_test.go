package loyalty

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEffectiveFeeScenarios(t *testing.T) {
	c := SKRSeason1("")

	require.Equal(t, 25, EffectiveFee(c, 0, NoBonus))
	require.Equal(t, 20, EffectiveFee(c, 0, func(b BonusCondition) bool { return b.ID == SeekerGenesisBonusID }))
	require.Equal(t, 0, EffectiveFee(c, 2_000_000, func(BonusCondition) bool { return true }))
	require.Equal(t, 0, c.EffectiveFee(1_500_000, BonusSet(SeekerGenesisBonusID)))
	require.Equal(t, 23, c.EffectiveFee(1_000, nil))
	require.Equal(t, 25, EffectiveFee(c, math.NaN(), NoBonus))
}

func TestEffectiveFeeBonusesStack(t *testing.T) {
	c := SKRSeason1("")
	c.Bonuses = append(c.Bonuses, BonusCondition{ID: "early", BonusBps: 3, CheckType: CheckActivity, CheckValue: "early-adopter"})

	require.Equal(t, 8, TotalBonus(c, func(BonusCondition) bool { return true }))
	require.Equal(t, 17, EffectiveFee(c, 0, func(BonusCondition) bool { return true }))
	require.Equal(t, 22, EffectiveFee(c, 0, BonusSet("early")))
}

func TestEffectiveFeeClampInvariant(t *testing.T) {
	c := SKRSeason1("")
	c.Bonuses = append(c.Bonuses, BonusCondition{ID: "huge", BonusBps: 40, CheckType: CheckToken, CheckValue: "x"})
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 5_000; i++ {
		balance := rng.Float64()*4_000_000 - 1_000
		mask := rng.Intn(4)
		pred := func(b BonusCondition) bool {
			if b.ID == SeekerGenesisBonusID {
				return mask&1 != 0
			}
			return mask&2 != 0
		}
		fee := EffectiveFee(c, balance, pred)
		base := c.Tier(balance).FeeBps
		if fee < 0 || fee > base {
			t.Fatalf("balance %v mask %d: fee %d outside [0, %d]", balance, mask, fee, base)
		}
	}
}

func TestNilCampaignIsSafe(t *testing.T) {
	var c *Campaign
	require.Equal(t, 0, EffectiveFee(c, 100, NoBonus))
	require.Equal(t, 100.0, c.Progress(5))
	_, ok := c.NextTier(5)
	require.False(t, ok)
}

func TestSummarize(t *testing.T) {
	c := SKRSeason1("")
	s := Summarize(c, 3_000, BonusSet(SeekerGenesisBonusID))

	require.Equal(t, "skr-season-1", s.CampaignID)
	require.Equal(t, 2, s.Tier.Level)
	require.NotNil(t, s.NextTier)
	require.Equal(t, 3, s.NextTier.Level)
	require.InDelta(t, 50.0, s.Progress, 1e-9)
	require.InDelta(t, 2_000.0, s.AmountToNextTier, 1e-9)
	require.Equal(t, 5, s.BonusBps)
	require.Equal(t, []string{SeekerGenesisBonusID}, s.GrantedBonuses)
	require.Equal(t, 18, s.EffectiveFeeBps)
	require.Equal(t, "0.18%", s.Display)
	require.Equal(t, EffectiveFee(c, 3_000, BonusSet(SeekerGenesisBonusID)), s.EffectiveFeeBps)

	top := Summarize(c, 5_000_000, NoBonus)
	require.Nil(t, top.NextTier)
	require.Equal(t, 100.0, top.Progress)
	require.Equal(t, "FREE", top.Display)
}
