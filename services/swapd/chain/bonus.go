package chain

import (
	"context"
	"log/slog"

	"smartswap/native/loyalty"
	"smartswap/observability/logging"
)

// SeekerMintAuthority is the mint authority of Seeker Genesis Tokens.
const SeekerMintAuthority = "GT2zuHVaZQYZSyQMgJPLzvkmyztfyXg2NJunqFp4p3A4"

// BonusChecker evaluates campaign bonus conditions against chain state.
type BonusChecker struct {
	Client *Client
	Logger *slog.Logger
}

// Eligible reports whether wallet qualifies for bonus. Activity checks have
// no chain source and never qualify. Lookup failures deny the bonus.
func (b *BonusChecker) Eligible(ctx context.Context, wallet string, bonus loyalty.BonusCondition) bool {
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var (
		ok  bool
		err error
	)
	switch bonus.CheckType {
	case loyalty.CheckNFT:
		authority := ""
		if bonus.ID == loyalty.SeekerGenesisBonusID {
			authority = SeekerMintAuthority
		}
		ok, err = b.Client.HoldsCollection(ctx, wallet, bonus.CheckValue, authority)
	case loyalty.CheckToken:
		var balance float64
		balance, err = b.Client.TokenBalance(ctx, wallet, bonus.CheckValue)
		ok = balance > 0
	default:
		return false
	}
	if err != nil {
		logger.Warn("bonus check failed", slog.String("bonus", bonus.ID), logging.Wallet(wallet), slog.Any("error", err))
		return false
	}
	return ok
}

// Granted evaluates every bonus of c and returns the ids that apply.
func (b *BonusChecker) Granted(ctx context.Context, wallet string, c *loyalty.Campaign) []string {
	if c == nil {
		return nil
	}
	granted := make([]string, 0, len(c.Bonuses))
	for _, bonus := range c.Bonuses {
		if b.Eligible(ctx, wallet, bonus) {
			granted = append(granted, bonus.ID)
		}
	}
	return granted
}
