package loyalty

import (
	"fmt"
	"time"
)

// StatusAt derives the campaign status at now. The end date is inclusive: a
// campaign is still active at exactly its end instant and ended strictly
// after it. Campaigns without an end date never end.
func StatusAt(c *Campaign, now time.Time) Status {
	if c == nil {
		return StatusEnded
	}
	if now.Before(c.StartDate) {
		return StatusUpcoming
	}
	if c.EndDate != nil && now.After(*c.EndDate) {
		return StatusEnded
	}
	return StatusActive
}

// ActiveCampaign returns the first campaign in list order that is active at
// now, or nil when none is.
func ActiveCampaign(list []*Campaign, now time.Time) *Campaign {
	for _, c := range list {
		if StatusAt(c, now) == StatusActive {
			return c
		}
	}
	return nil
}

// TimeRemaining breaks the time until the campaign ends into whole days,
// hours and minutes, truncating at each unit. It returns nil for perpetual
// campaigns and an all-zero value once the end date has been reached.
func TimeRemaining(c *Campaign, now time.Time) *TimeLeft {
	if c == nil || c.EndDate == nil {
		return nil
	}
	total := c.EndDate.Sub(now)
	if total <= 0 {
		return &TimeLeft{}
	}
	const day = 24 * time.Hour
	return &TimeLeft{
		Days:    int64(total / day),
		Hours:   int64((total % day) / time.Hour),
		Minutes: int64((total % time.Hour) / time.Minute),
		Total:   total,
	}
}

// FormatTimeRemaining renders the countdown shown next to a campaign.
func FormatTimeRemaining(c *Campaign, now time.Time) string {
	left := TimeRemaining(c, now)
	switch {
	case left == nil:
		return "Ongoing"
	case left.Total == 0:
		return "Ended"
	case left.Days > 0:
		return fmt.Sprintf("%dd %dh remaining", left.Days, left.Hours)
	case left.Hours > 0:
		return fmt.Sprintf("%dh %dm remaining", left.Hours, left.Minutes)
	default:
		return fmt.Sprintf("%dm remaining", left.Minutes)
	}
}
