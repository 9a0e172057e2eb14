package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"smartswap/native/fees"
	"smartswap/native/loyalty"
)

const summerCampaign = `
include_defaults = true

[[campaign]]
id = "bonk-summer"
name = "BONK Summer"
token_mint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
token_symbol = "BONK"
token_decimals = 5
start = 2026-06-01T00:00:00Z
end = 2026-08-31T23:59:59Z

  [[campaign.tier]]
  level = 1
  name = "Pup"
  min_balance = 0
  fee_bps = 30

  [[campaign.tier]]
  level = 2
  name = "Dog"
  min_balance = 1000000
  fee_bps = 15

  [[campaign.bonus]]
  id = "bonk-nft"
  name = "BONK NFT"
  bonus_bps = 5
  check_type = "nft"
  check_value = "bonk-collection"

  [campaign.colors]
  primary = "#F7931A"
  secondary = "#1A1A1A"
`

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "campaigns.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write campaigns: %v", err)
	}
	return path
}

func TestLoadCampaignsFromFile(t *testing.T) {
	registry, err := LoadCampaigns(writeFile(t, summerCampaign))
	if err != nil {
		t.Fatalf("load campaigns: %v", err)
	}
	if registry.Len() != 3 {
		t.Fatalf("expected defaults plus one campaign, got %d", registry.Len())
	}
	summer, err := registry.Get("bonk-summer")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if summer.Perpetual() {
		t.Fatalf("expected bounded campaign")
	}
	if !summer.EndDate.Equal(time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("unexpected end date %v", summer.EndDate)
	}
	if len(summer.Tiers) != 2 || summer.Tiers[1].MinBalance != 1_000_000 || summer.Tiers[1].FeeBps != 15 {
		t.Fatalf("unexpected tiers %+v", summer.Tiers)
	}
	if bonus, ok := summer.Bonus("bonk-nft"); !ok || bonus.BonusBps != 5 || bonus.CheckType != loyalty.CheckNFT {
		t.Fatalf("unexpected bonus %+v", bonus)
	}
	if summer.Colors.Primary != "#F7931A" {
		t.Fatalf("unexpected colors %+v", summer.Colors)
	}

	mid := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	if got := registry.Active(mid); got == nil || got.ID != loyalty.DefaultCampaigns("", "")[0].ID {
		t.Fatalf("expected first registered perpetual campaign to win, got %+v", got)
	}
}

func TestLoadCampaignsEmptyPathUsesDefaults(t *testing.T) {
	registry, err := LoadCampaigns("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if registry.Len() != len(loyalty.DefaultCampaigns("", "")) {
		t.Fatalf("unexpected default registry size %d", registry.Len())
	}
}

func TestLoadCampaignsRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, summerCampaign+"\nsurprise = true\n")
	if _, err := LoadCampaigns(path); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestLoadCampaignsMissingFile(t *testing.T) {
	if _, err := LoadCampaigns(filepath.Join(t.TempDir(), "absent.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestParseCampaignsValidatesLadder(t *testing.T) {
	_, err := ParseCampaigns(`
[[campaign]]
id = "broken"
token_symbol = "BRK"
token_decimals = 6
start = 2026-01-01T00:00:00Z

  [[campaign.tier]]
  level = 1
  min_balance = 100
  fee_bps = 20
`)
	if !errors.Is(err, loyalty.ErrInvalidCampaign) || !errors.Is(err, fees.ErrLadderNotAnchored) {
		t.Fatalf("expected unanchored ladder error, got %v", err)
	}
}

func TestParseCampaignsRequiresPerpetual(t *testing.T) {
	_, err := ParseCampaigns(`
[[campaign]]
id = "seasonal"
token_symbol = "SZN"
token_decimals = 6
start = 2026-01-01T00:00:00Z
end = 2026-02-01T00:00:00Z

  [[campaign.tier]]
  level = 1
  min_balance = 0
  fee_bps = 20
`)
	if !errors.Is(err, loyalty.ErrNoPerpetual) {
		t.Fatalf("expected ErrNoPerpetual, got %v", err)
	}
}
