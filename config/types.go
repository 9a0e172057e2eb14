package config

import (
	"time"

	"smartswap/native/fees"
	"smartswap/native/loyalty"
)

// CampaignFile is the on-disk TOML layout for campaign definitions.
type CampaignFile struct {
	// IncludeDefaults registers the built-in campaigns ahead of the ones in
	// this file.
	IncludeDefaults bool             `toml:"include_defaults"`
	SKRMint         string           `toml:"skr_mint"`
	OTDMint         string           `toml:"otd_mint"`
	Campaigns       []CampaignConfig `toml:"campaign"`
}

// CampaignConfig mirrors loyalty.Campaign with TOML-friendly types. A zero
// End means the campaign is perpetual.
type CampaignConfig struct {
	ID            string                   `toml:"id"`
	Name          string                   `toml:"name"`
	Description   string                   `toml:"description"`
	SponsorName   string                   `toml:"sponsor_name"`
	SponsorLogo   string                   `toml:"sponsor_logo"`
	TokenMint     string                   `toml:"token_mint"`
	TokenSymbol   string                   `toml:"token_symbol"`
	TokenDecimals int                      `toml:"token_decimals"`
	Start         time.Time                `toml:"start"`
	End           time.Time                `toml:"end"`
	Tiers         []fees.FeeTier           `toml:"tier"`
	Bonuses       []loyalty.BonusCondition `toml:"bonus"`
	Rewards       []loyalty.Reward         `toml:"reward"`
	Colors        loyalty.ColorScheme      `toml:"colors"`
}

// Campaign converts the file representation into a domain campaign.
func (c CampaignConfig) Campaign() *loyalty.Campaign {
	out := &loyalty.Campaign{
		ID:            c.ID,
		Name:          c.Name,
		Description:   c.Description,
		SponsorName:   c.SponsorName,
		SponsorLogo:   c.SponsorLogo,
		TokenMint:     c.TokenMint,
		TokenSymbol:   c.TokenSymbol,
		TokenDecimals: c.TokenDecimals,
		Tiers:         append([]fees.FeeTier(nil), c.Tiers...),
		StartDate:     c.Start.UTC(),
		Rewards:       append([]loyalty.Reward(nil), c.Rewards...),
		Bonuses:       append([]loyalty.BonusCondition(nil), c.Bonuses...),
		Colors:        c.Colors,
	}
	if !c.End.IsZero() {
		end := c.End.UTC()
		out.EndDate = &end
	}
	return out
}
