package loyalty

import "smartswap/native/fees"

// Tier returns the ladder tier for balance.
func (c *Campaign) Tier(balance float64) fees.FeeTier {
	if c == nil {
		return fees.FeeTier{}
	}
	return fees.TierForBalance(c.Tiers, balance)
}

// NextTier returns the tier above the balance's current tier, if any.
func (c *Campaign) NextTier(balance float64) (fees.FeeTier, bool) {
	if c == nil {
		return fees.FeeTier{}, false
	}
	return fees.NextTier(c.Tiers, balance)
}

// Progress returns the percentage travelled toward the next tier.
func (c *Campaign) Progress(balance float64) float64 {
	if c == nil {
		return 100
	}
	return fees.ProgressToNextTier(c.Tiers, balance)
}

// BaseFee is the fee charged by the first tier, before any discount.
func (c *Campaign) BaseFee() int {
	if c == nil || len(c.Tiers) == 0 {
		return 0
	}
	return c.Tiers[0].FeeBps
}

// TotalBonus sums the bonus reductions granted by pred.
func TotalBonus(c *Campaign, pred BonusPredicate) int {
	if c == nil || pred == nil {
		return 0
	}
	total := 0
	for _, bonus := range c.Bonuses {
		if pred(bonus) {
			total += bonus.BonusBps
		}
	}
	return total
}

// EffectiveFee is the fee in basis points a user with balance pays under c,
// after granted bonuses, clamped at zero. This is the figure handed to the
// quote provider and recorded as the expected fee in the audit log.
func EffectiveFee(c *Campaign, balance float64, pred BonusPredicate) int {
	if c == nil {
		return 0
	}
	fee := c.Tier(balance).FeeBps - TotalBonus(c, pred)
	if fee < 0 {
		return 0
	}
	return fee
}

// EffectiveFee is a method form of the package-level EffectiveFee.
func (c *Campaign) EffectiveFee(balance float64, pred BonusPredicate) int {
	return EffectiveFee(c, balance, pred)
}

// Summary is everything a client needs to render a user's standing in a
// campaign.
type Summary struct {
	CampaignID       string        `json:"campaignId"`
	Tier             fees.FeeTier  `json:"tier"`
	NextTier         *fees.FeeTier `json:"nextTier"`
	Progress         float64       `json:"progress"`
	AmountToNextTier float64       `json:"amountToNextTier"`
	BonusBps         int           `json:"bonusBps"`
	GrantedBonuses   []string      `json:"grantedBonuses"`
	EffectiveFeeBps  int           `json:"effectiveFeeBps"`
	Display          string        `json:"display"`
}

// Summarize evaluates the calculator for balance and pred in one pass.
func Summarize(c *Campaign, balance float64, pred BonusPredicate) Summary {
	if c == nil {
		return Summary{GrantedBonuses: []string{}, Display: fees.FormatFee(0)}
	}
	summary := Summary{
		CampaignID:       c.ID,
		Tier:             c.Tier(balance),
		Progress:         c.Progress(balance),
		AmountToNextTier: fees.AmountToNextTier(c.Tiers, balance),
		GrantedBonuses:   []string{},
	}
	if next, ok := c.NextTier(balance); ok {
		summary.NextTier = &next
	}
	if pred != nil {
		for _, bonus := range c.Bonuses {
			if pred(bonus) {
				summary.BonusBps += bonus.BonusBps
				summary.GrantedBonuses = append(summary.GrantedBonuses, bonus.ID)
			}
		}
	}
	summary.EffectiveFeeBps = summary.Tier.FeeBps - summary.BonusBps
	if summary.EffectiveFeeBps < 0 {
		summary.EffectiveFeeBps = 0
	}
	summary.Display = fees.FormatFee(summary.EffectiveFeeBps)
	return summary
}
