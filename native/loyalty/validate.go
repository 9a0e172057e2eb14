package loyalty

import (
	"fmt"
	"strings"

	"smartswap/native/fees"
)

// Validate checks a campaign definition. Any error here is a configuration
// error and should stop the process before a campaign is ever resolved.
func Validate(c *Campaign) error {
	if c == nil {
		return ErrNilCampaign
	}
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: id required", ErrInvalidCampaign)
	}
	if strings.TrimSpace(c.TokenSymbol) == "" {
		return fmt.Errorf("%w: %s: token symbol required", ErrInvalidCampaign, c.ID)
	}
	if c.TokenDecimals < 0 {
		return fmt.Errorf("%w: %s: token decimals must not be negative", ErrInvalidCampaign, c.ID)
	}
	if c.StartDate.IsZero() {
		return fmt.Errorf("%w: %s: start date required", ErrInvalidCampaign, c.ID)
	}
	if c.EndDate != nil && c.EndDate.Before(c.StartDate) {
		return fmt.Errorf("%w: %s", ErrInvalidTimeWindow, c.ID)
	}
	if err := fees.ValidateLadder(c.Tiers); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidCampaign, c.ID, err)
	}
	seen := make(map[string]struct{}, len(c.Bonuses))
	for _, bonus := range c.Bonuses {
		id := strings.TrimSpace(bonus.ID)
		if id == "" {
			return fmt.Errorf("%w: %s: bonus id required", ErrInvalidBonus, c.ID)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s: %s", ErrDuplicateBonus, c.ID, id)
		}
		seen[id] = struct{}{}
		if bonus.BonusBps < 0 {
			return fmt.Errorf("%w: %s: %s bonus must not be negative", ErrInvalidBonus, c.ID, id)
		}
		if !bonus.CheckType.Valid() {
			return fmt.Errorf("%w: %s: %s unknown check type %q", ErrInvalidBonus, c.ID, id, bonus.CheckType)
		}
	}
	return nil
}
