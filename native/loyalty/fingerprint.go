package loyalty

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"lukechampine.com/blake3"

	"smartswap/native/fees"
)

// fingerprintView is the subset of a campaign that affects what a user is
// charged. Display metadata is left out so cosmetic edits keep the digest.
type fingerprintView struct {
	ID        string           `json:"id"`
	TokenMint string           `json:"tokenMint"`
	Tiers     []fees.FeeTier   `json:"tiers"`
	Bonuses   []BonusCondition `json:"bonuses"`
	Start     int64            `json:"start"`
	End       *int64           `json:"end"`
}

// Fingerprint returns a hex blake3 digest of the campaign's fee-relevant
// configuration. Two processes charging the same fees produce the same
// fingerprint.
func Fingerprint(c *Campaign) string {
	if c == nil {
		return ""
	}
	view := fingerprintView{
		ID:        c.ID,
		TokenMint: c.TokenMint,
		Tiers:     c.Tiers,
		Bonuses:   c.Bonuses,
		Start:     c.StartDate.UTC().UnixMilli(),
	}
	if c.EndDate != nil {
		end := c.EndDate.UTC().UnixMilli()
		view.End = &end
	}
	if view.Tiers == nil {
		view.Tiers = []fees.FeeTier{}
	}
	if view.Bonuses == nil {
		view.Bonuses = []BonusCondition{}
	}
	blob, err := json.Marshal(view)
	if err != nil {
		return ""
	}
	sum := blake3.Sum256(blob)
	return hex.EncodeToString(sum[:])
}

// View is the JSON shape served to clients for one campaign.
type View struct {
	*Campaign
	Status        Status    `json:"status"`
	TimeRemaining *TimeLeft `json:"timeRemaining"`
	Countdown     string    `json:"countdown"`
	Fingerprint   string    `json:"fingerprint"`
}

// NewView decorates c with its derived state at now.
func NewView(c *Campaign, now time.Time) View {
	return View{
		Campaign:      c,
		Status:        StatusAt(c, now),
		TimeRemaining: TimeRemaining(c, now),
		Countdown:     FormatTimeRemaining(c, now),
		Fingerprint:   Fingerprint(c),
	}
}
