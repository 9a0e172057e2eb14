package loyalty

import (
	"time"

	"smartswap/native/fees"
)

const (
	// SeekerGenesisBonusID identifies the Seeker Genesis Token holder bonus.
	SeekerGenesisBonusID = "sgt-holder"
	// SeekerGenesisGroup is the SGT collection the bonus is checked against.
	SeekerGenesisGroup = "GT22s89nU4iWFkNXj1Bw6uYhJJWDRPpShHt4Bk8f99Te"

	DefaultSKRMint = "ExQRYF7ha2C7dgJ9f1keMXwHpnJWub1A7jNJTQKDpump"
	DefaultOTDMint = "OTDTokenMint111111111111111111111111111111"
)

func utc(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func until(value string) *time.Time {
	t := utc(value)
	return &t
}

// SeekerGenesisBonus is the 5 bps discount for Seeker device owners.
func SeekerGenesisBonus() BonusCondition {
	return BonusCondition{
		ID:          SeekerGenesisBonusID,
		Name:        "Seeker Genesis",
		Description: "Seeker device owners get an extra discount",
		BonusBps:    5,
		CheckType:   CheckNFT,
		CheckValue:  SeekerGenesisGroup,
	}
}

// SKRSeason1 is the launch campaign, tiered on SKR holdings.
func SKRSeason1(mint string) *Campaign {
	if mint == "" {
		mint = DefaultSKRMint
	}
	return &Campaign{
		ID:            "skr-season-1",
		Name:          "SKR Season 1",
		Description:   "Hold SKR tokens to unlock lower trading fees. The more you hold, the less you pay.",
		SponsorName:   "Seeker Community",
		TokenMint:     mint,
		TokenSymbol:   "SKR",
		TokenDecimals: 6,
		Tiers: []fees.FeeTier{
			{Level: 1, Name: "Explorer", MinBalance: 0, FeeBps: 25, Icon: "compass"},
			{Level: 2, Name: "Initiate", MinBalance: 1_000, FeeBps: 23, Icon: "sprout"},
			{Level: 3, Name: "Seeker", MinBalance: 5_000, FeeBps: 21, Icon: "target"},
			{Level: 4, Name: "Holder", MinBalance: 10_000, FeeBps: 19, Icon: "gem"},
			{Level: 5, Name: "Believer", MinBalance: 25_000, FeeBps: 17, Icon: "glowing-star"},
			{Level: 6, Name: "Supporter", MinBalance: 50_000, FeeBps: 15, Icon: "star"},
			{Level: 7, Name: "Advocate", MinBalance: 100_000, FeeBps: 13, Icon: "rocket"},
			{Level: 8, Name: "Guardian", MinBalance: 150_000, FeeBps: 11, Icon: "shield"},
			{Level: 9, Name: "Champion", MinBalance: 250_000, FeeBps: 9, Icon: "trophy"},
			{Level: 10, Name: "Elite", MinBalance: 400_000, FeeBps: 7, Icon: "dizzy"},
			{Level: 11, Name: "Master", MinBalance: 550_000, FeeBps: 5, Icon: "medal"},
			{Level: 12, Name: "Legend", MinBalance: 750_000, FeeBps: 3, Icon: "crown"},
			{Level: 13, Name: "Titan", MinBalance: 1_000_000, FeeBps: 2, Icon: "zap"},
			{Level: 14, Name: "Immortal", MinBalance: 1_500_000, FeeBps: 1, Icon: "trident"},
			{Level: 15, Name: "Mythic", MinBalance: 2_000_000, FeeBps: 0, Icon: "rainbow"},
		},
		StartDate: utc("2026-01-01T00:00:00Z"),
		Rewards: []Reward{
			{Type: RewardFeeDiscount, Name: "Reduced Fees", Description: "Lower platform fees on every swap"},
			{
				Type:        RewardAirdrop,
				Name:        "Season 1 Airdrop",
				Description: "Top traders eligible for SKR airdrops",
				Requirement: "Top 100 volume traders",
				Value:       "Share of 1M SKR pool",
			},
		},
		Bonuses: []BonusCondition{SeekerGenesisBonus()},
		Colors:  ColorScheme{Primary: "#9945FF", Secondary: "#14F195"},
	}
}

// OTDPerpetual is the platform token's permanent campaign.
func OTDPerpetual(mint string) *Campaign {
	if mint == "" {
		mint = DefaultOTDMint
	}
	return &Campaign{
		ID:            "otd-perpetual",
		Name:          "OTD Rewards",
		Description:   "Hold OTD tokens for permanent fee discounts. The more you hold, the less you pay - forever.",
		SponsorName:   "Smart Swap",
		TokenMint:     mint,
		TokenSymbol:   "OTD",
		TokenDecimals: 9,
		Tiers: []fees.FeeTier{
			{Level: 1, Name: "Tapper", MinBalance: 0, FeeBps: 25, Icon: "point-up"},
			{Level: 2, Name: "Swapper", MinBalance: 100, FeeBps: 20, Icon: "arrows"},
			{Level: 3, Name: "Trader", MinBalance: 1_000, FeeBps: 15, Icon: "chart"},
			{Level: 4, Name: "Pro", MinBalance: 10_000, FeeBps: 10, Icon: "gem"},
			{Level: 5, Name: "Whale", MinBalance: 100_000, FeeBps: 5, Icon: "whale"},
			{Level: 6, Name: "Legend", MinBalance: 1_000_000, FeeBps: 0, Icon: "crown"},
		},
		StartDate: utc("2026-01-01T00:00:00Z"),
		Rewards: []Reward{
			{Type: RewardFeeDiscount, Name: "Permanent Discounts", Description: "Lower fees for life"},
			{Type: RewardAirdrop, Name: "OTD Staking Rewards", Description: "Earn more OTD by staking", Requirement: "Stake OTD tokens"},
			{Type: RewardMultiplier, Name: "Governance Power", Description: "Vote on platform decisions", Requirement: "Hold 1000+ OTD"},
		},
		Bonuses: []BonusCondition{SeekerGenesisBonus()},
		Colors:  ColorScheme{Primary: "#9945FF", Secondary: "#14F195"},
	}
}

// SampleCampaigns are partner campaign templates. They are valid
// definitions but are not registered by default.
func SampleCampaigns() []*Campaign {
	return []*Campaign{
		{
			ID:            "bonk-summer-2026",
			Name:          "BONK Summer",
			Description:   "Hold BONK to unlock trading fee discounts. Trade more, earn more BONK airdrops!",
			SponsorName:   "BONK Community",
			TokenMint:     "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
			TokenSymbol:   "BONK",
			TokenDecimals: 5,
			Tiers: []fees.FeeTier{
				{Level: 1, Name: "Pup", MinBalance: 0, FeeBps: 20, Icon: "dog"},
				{Level: 2, Name: "Good Boy", MinBalance: 1_000_000, FeeBps: 15, Icon: "bone"},
				{Level: 3, Name: "Alpha", MinBalance: 10_000_000, FeeBps: 10, Icon: "wolf"},
				{Level: 4, Name: "Doge Lord", MinBalance: 100_000_000, FeeBps: 5, Icon: "crown"},
				{Level: 5, Name: "BONK King", MinBalance: 1_000_000_000, FeeBps: 0, Icon: "fire"},
			},
			StartDate: utc("2026-06-01T00:00:00Z"),
			EndDate:   until("2026-08-31T23:59:59Z"),
			Rewards: []Reward{
				{Type: RewardFeeDiscount, Name: "Fee Reduction", Description: "Up to 100% fee reduction"},
				{Type: RewardAirdrop, Name: "BONK Airdrop", Description: "Weekly BONK airdrops to top traders", Requirement: "Top 500 by volume", Value: "Share of 10B BONK pool"},
				{Type: RewardNFT, Name: "BONK Summer NFT", Description: "Limited edition commemorative NFT", Requirement: "Trade $500+ during campaign"},
			},
			Colors: ColorScheme{Primary: "#F9A825", Secondary: "#FF6F00"},
		},
		{
			ID:            "jupiter-rewards",
			Name:          "Jupiter Rewards",
			Description:   "Hold JUP tokens for exclusive fee discounts on Jupiter-powered swaps.",
			SponsorName:   "Jupiter Exchange",
			TokenMint:     "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN",
			TokenSymbol:   "JUP",
			TokenDecimals: 6,
			Tiers: []fees.FeeTier{
				{Level: 1, Name: "Astronaut", MinBalance: 0, FeeBps: 20, Icon: "rocket"},
				{Level: 2, Name: "Pilot", MinBalance: 100, FeeBps: 15, Icon: "pilot"},
				{Level: 3, Name: "Captain", MinBalance: 1_000, FeeBps: 10, Icon: "medal"},
				{Level: 4, Name: "Commander", MinBalance: 10_000, FeeBps: 5, Icon: "star"},
				{Level: 5, Name: "Jupiter Elite", MinBalance: 50_000, FeeBps: 0, Icon: "planet"},
			},
			StartDate: utc("2026-07-01T00:00:00Z"),
			EndDate:   until("2026-09-30T23:59:59Z"),
			Rewards: []Reward{
				{Type: RewardFeeDiscount, Name: "Priority Routing", Description: "Best Jupiter routes with reduced fees"},
				{Type: RewardAirdrop, Name: "JUP Rewards", Description: "Monthly JUP distribution to active traders", Requirement: "Minimum 50 swaps/month"},
				{Type: RewardMultiplier, Name: "2x Points", Description: "Double points in Jupiter rewards program", Requirement: "Hold 1000+ JUP"},
			},
			Colors: ColorScheme{Primary: "#1E90FF", Secondary: "#00CED1"},
		},
		{
			ID:            "usdc-adoption",
			Name:          "USDC Adoption Month",
			Description:   "Trade with USDC for zero fees! Plus earn bonus rewards.",
			SponsorName:   "Circle",
			TokenMint:     "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
			TokenSymbol:   "USDC",
			TokenDecimals: 6,
			Tiers: []fees.FeeTier{
				{Level: 1, Name: "Starter", MinBalance: 0, FeeBps: 15, Icon: "dollar"},
				{Level: 2, Name: "Holder", MinBalance: 100, FeeBps: 10, Icon: "moneybag"},
				{Level: 3, Name: "Whale", MinBalance: 10_000, FeeBps: 5, Icon: "whale"},
				{Level: 4, Name: "Mega", MinBalance: 100_000, FeeBps: 0, Icon: "bank"},
			},
			StartDate: utc("2026-09-01T00:00:00Z"),
			EndDate:   until("2026-09-30T23:59:59Z"),
			Rewards: []Reward{
				{Type: RewardFeeDiscount, Name: "USDC Zero Fees", Description: "Zero fees on all USDC swaps"},
				{Type: RewardAirdrop, Name: "USDC Cashback", Description: "0.1% cashback on all USDC swaps", Requirement: "Minimum $100 daily volume"},
			},
			Colors: ColorScheme{Primary: "#2775CA", Secondary: "#00D4AA"},
		},
		{
			ID:            "star-atlas-season",
			Name:          "Star Atlas Trading Season",
			Description:   "Hold ATLAS for galactic trading discounts. Trade tokens, earn POLIS rewards!",
			SponsorName:   "Star Atlas",
			TokenMint:     "ATLASXmbPQxBUYbxPsV97usA3fPQYEqzQBUHgiFCUsXx",
			TokenSymbol:   "ATLAS",
			TokenDecimals: 8,
			Tiers: []fees.FeeTier{
				{Level: 1, Name: "Cadet", MinBalance: 0, FeeBps: 20, Icon: "glowing-star"},
				{Level: 2, Name: "Ensign", MinBalance: 1_000, FeeBps: 15, Icon: "rocket"},
				{Level: 3, Name: "Lieutenant", MinBalance: 10_000, FeeBps: 10, Icon: "medal"},
				{Level: 4, Name: "Captain", MinBalance: 100_000, FeeBps: 5, Icon: "anchor"},
				{Level: 5, Name: "Admiral", MinBalance: 500_000, FeeBps: 0, Icon: "crown"},
			},
			StartDate: utc("2026-10-01T00:00:00Z"),
			EndDate:   until("2026-12-31T23:59:59Z"),
			Rewards: []Reward{
				{Type: RewardFeeDiscount, Name: "Galactic Discount", Description: "Reduced fees for all trades"},
				{Type: RewardAirdrop, Name: "POLIS Rewards", Description: "Earn POLIS governance tokens", Requirement: "Trade ATLAS pairs"},
				{Type: RewardNFT, Name: "Ship NFT Raffle", Description: "Entry into exclusive ship NFT raffle", Requirement: "Complete 100 swaps"},
			},
			Colors: ColorScheme{Primary: "#6B4EFF", Secondary: "#00D4FF"},
		},
		{
			ID:            "meme-madness",
			Name:          "Meme Madness",
			Description:   "Hold any supported meme token for fee discounts. The dankest traders win!",
			SponsorName:   "Meme DAO",
			TokenMint:     "MEMETokenMint11111111111111111111111111111",
			TokenSymbol:   "MEME",
			TokenDecimals: 9,
			Tiers: []fees.FeeTier{
				{Level: 1, Name: "Normie", MinBalance: 0, FeeBps: 25, Icon: "neutral"},
				{Level: 2, Name: "Degen", MinBalance: 100, FeeBps: 15, Icon: "zany"},
				{Level: 3, Name: "Chad", MinBalance: 10_000, FeeBps: 5, Icon: "flex"},
				{Level: 4, Name: "Gigachad", MinBalance: 1_000_000, FeeBps: 0, Icon: "moai"},
			},
			StartDate: utc("2026-04-01T00:00:00Z"),
			EndDate:   until("2026-04-30T23:59:59Z"),
			Rewards: []Reward{
				{Type: RewardFeeDiscount, Name: "Degen Discount", Description: "Trade memes for less"},
				{Type: RewardAirdrop, Name: "Meme Airdrop", Description: "Random meme token airdrops", Requirement: "Trade any meme token"},
				{Type: RewardNFT, Name: "Rare Pepe", Description: "Ultra rare Pepe NFT", Requirement: "Top 100 traders"},
			},
			Colors: ColorScheme{Primary: "#FF4500", Secondary: "#00FF00"},
		},
	}
}

// DefaultCampaigns is the built-in registry content: SKR Season 1 first,
// then the OTD perpetual campaign.
func DefaultCampaigns(skrMint, otdMint string) []*Campaign {
	return []*Campaign{SKRSeason1(skrMint), OTDPerpetual(otdMint)}
}

// DefaultRegistry builds the registry used when no campaign file is
// configured.
func DefaultRegistry() *Registry {
	return MustRegistry(DefaultCampaigns("", "")...)
}
