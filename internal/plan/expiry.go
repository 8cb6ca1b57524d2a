package plan

import "time"

// NewExpiry computes the expiry granted by a key worth days.
func NewExpiry(policy RedeemPolicy, current *time.Time, now time.Time, days int) time.Time {
	base := now
	if policy == PolicyExtend && current != nil && current.After(now) {
		base = *current
	}
	return base.Add(time.Duration(days) * 24 * time.Hour)
}
