package leveling

import (
	"time"

	cache "github.com/patrickmn/go-cache"
)

// GrantCooldown is the minimum interval between two experience grants for
// the same user in the same guild.
const GrantCooldown = 60 * time.Second

// Cooldowns gates experience grants to at most one per interval for each
// (guild, user) pair. Entries expire on their own, so the table does not
// grow for the lifetime of the process.
type Cooldowns struct {
	interval time.Duration
	entries  *cache.Cache
}

// NewCooldowns creates a tracker with the given grant interval.
func NewCooldowns(interval time.Duration) *Cooldowns {
	return &Cooldowns{
		interval: interval,
		entries:  cache.New(interval, 2*interval),
	}
}

// Eligible reports whether the given user may receive a grant now.
func (c *Cooldowns) Eligible(guildID, userID string) bool {
	_, onCooldown := c.entries.Get(cooldownKey(guildID, userID))
	return !onCooldown
}

// Mark records a grant, making the user ineligible until the interval has
// elapsed.
func (c *Cooldowns) Mark(guildID, userID string) {
	c.entries.Set(cooldownKey(guildID, userID), struct{}{}, cache.DefaultExpiration)
}

// Remaining returns how long until the given user becomes eligible again, or
// zero when the user is already eligible.
func (c *Cooldowns) Remaining(guildID, userID string) time.Duration {
	_, expiration, onCooldown := c.entries.GetWithExpiration(cooldownKey(guildID, userID))
	if !onCooldown {
		return 0
	}
	remaining := time.Until(expiration)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func cooldownKey(guildID, userID string) string {
	return guildID + "_" + userID
}
