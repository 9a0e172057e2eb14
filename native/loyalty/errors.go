package loyalty

import "errors"

var (
	ErrNilCampaign       = errors.New("loyalty: nil campaign")
	ErrInvalidCampaign   = errors.New("loyalty: invalid campaign")
	ErrCampaignExists    = errors.New("loyalty: campaign already exists")
	ErrCampaignNotFound  = errors.New("loyalty: campaign not found")
	ErrNoActiveCampaign  = errors.New("loyalty: no active campaign")
	ErrNoPerpetual       = errors.New("loyalty: registry has no perpetual campaign")
	ErrInvalidBonus      = errors.New("loyalty: invalid bonus condition")
	ErrDuplicateBonus    = errors.New("loyalty: duplicate bonus condition")
	ErrInvalidTimeWindow = errors.New("loyalty: end date precedes start date")
)
