package loyalty

import (
	"time"

	"smartswap/native/fees"
)

// Status is derived from a campaign's validity window and the current time.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusActive   Status = "active"
	StatusEnded    Status = "ended"
)

// CheckType names the collaborator that evaluates a bonus condition.
type CheckType string

const (
	CheckNFT      CheckType = "nft"
	CheckToken    CheckType = "token"
	CheckActivity CheckType = "activity"
)

// Valid reports whether the check type is one of the known kinds.
func (c CheckType) Valid() bool {
	switch c {
	case CheckNFT, CheckToken, CheckActivity:
		return true
	}
	return false
}

// RewardType enumerates the perks a campaign can advertise.
type RewardType string

const (
	RewardFeeDiscount RewardType = "fee_discount"
	RewardAirdrop     RewardType = "airdrop"
	RewardNFT         RewardType = "nft"
	RewardMultiplier  RewardType = "multiplier"
)

// Reward is display metadata; it has no effect on fee math.
type Reward struct {
	Type        RewardType `json:"type" toml:"type"`
	Name        string     `json:"name" toml:"name"`
	Description string     `json:"description" toml:"description"`
	Requirement string     `json:"requirement,omitempty" toml:"requirement"`
	Value       string     `json:"value,omitempty" toml:"value"`
}

// BonusCondition is a flat fee reduction granted when an externally evaluated
// predicate holds, for example ownership of an NFT collection.
type BonusCondition struct {
	ID          string    `json:"id" toml:"id"`
	Name        string    `json:"name" toml:"name"`
	Description string    `json:"description" toml:"description"`
	BonusBps    int       `json:"bonusBps" toml:"bonus_bps"`
	CheckType   CheckType `json:"checkType" toml:"check_type"`
	CheckValue  string    `json:"checkValue" toml:"check_value"`
}

// BonusPredicate decides whether a bonus applies to the current user. The
// calculator never performs the eligibility check itself.
type BonusPredicate func(BonusCondition) bool

// NoBonus is a predicate that never grants a bonus.
func NoBonus(BonusCondition) bool { return false }

// BonusSet returns a predicate granting exactly the listed bonus ids.
func BonusSet(ids ...string) BonusPredicate {
	granted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		granted[id] = struct{}{}
	}
	return func(b BonusCondition) bool {
		_, ok := granted[b.ID]
		return ok
	}
}

// ColorScheme carries the campaign's brand colours for clients.
type ColorScheme struct {
	Primary   string `json:"primary" toml:"primary"`
	Secondary string `json:"secondary" toml:"secondary"`
}

// Campaign bundles a fee ladder, bonus rules and a validity window for one
// loyalty token. Campaigns are static configuration.
type Campaign struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	SponsorName   string           `json:"sponsorName"`
	SponsorLogo   string           `json:"sponsorLogo,omitempty"`
	TokenMint     string           `json:"tokenMint"`
	TokenSymbol   string           `json:"tokenSymbol"`
	TokenDecimals int              `json:"tokenDecimals"`
	Tiers         []fees.FeeTier   `json:"tiers"`
	StartDate     time.Time        `json:"startDate"`
	EndDate       *time.Time       `json:"endDate,omitempty"`
	Rewards       []Reward         `json:"rewards"`
	Bonuses       []BonusCondition `json:"bonuses"`
	Colors        ColorScheme      `json:"colors"`
}

// Perpetual reports whether the campaign has no end date.
func (c *Campaign) Perpetual() bool {
	return c == nil || c.EndDate == nil
}

// Bonus looks up a bonus condition by id.
func (c *Campaign) Bonus(id string) (BonusCondition, bool) {
	if c == nil {
		return BonusCondition{}, false
	}
	for _, bonus := range c.Bonuses {
		if bonus.ID == id {
			return bonus, true
		}
	}
	return BonusCondition{}, false
}

// TimeLeft is the whole-unit breakdown of the time until a campaign ends.
type TimeLeft struct {
	Days    int64         `json:"days"`
	Hours   int64         `json:"hours"`
	Minutes int64         `json:"minutes"`
	Total   time.Duration `json:"total"`
}
