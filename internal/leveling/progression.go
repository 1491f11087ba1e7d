// Package leveling implements the experience progression rule and the
// per-user grant cooldown for the guild leveling feature.
package leveling

import (
	"math/rand"
	"strings"

	"github.com/guildtools/levelbot/internal/ledger"
)

const (
	// GrantMin is the smallest experience amount a single message can earn.
	GrantMin = 15

	// GrantMax is the largest experience amount a single message can earn.
	GrantMax = 25

	// progress bar rendering
	barSegments = 20
	barFilled   = "✅"
	barEmpty    = "⬜"
)

// Threshold returns the cumulative experience required to advance from the
// given level to the next one: 5*level^2 + 50*level + 100.
func Threshold(level int) int {
	return 5*level*level + 50*level + 100
}

// RandomGrant returns an experience amount drawn uniformly from
// [GrantMin, GrantMax].
func RandomGrant() int {
	return GrantMin + rand.Intn(GrantMax-GrantMin+1)
}

// ApplyGrant adds the given amount of experience to the record and evaluates
// the level-up condition once. On level-up the level advances by one and the
// threshold for the old level is consumed, carrying the remainder forward.
// It returns true when the record leveled up.
//
// The condition is evaluated at most once per grant. A single grant can never
// cross two thresholds because GrantMax is far below Threshold(0).
func ApplyGrant(rec *ledger.Record, amount int) bool {
	rec.XP += amount

	needed := Threshold(rec.Level)
	if rec.XP < needed {
		return false
	}

	rec.XP -= needed
	rec.Level++
	return true
}

// ProgressBar renders a 20-segment progress bar for the given experience
// within the current level. The number of filled segments is
// floor(20*xp/threshold), clamped to [0, 20].
func ProgressBar(xp, level int) string {
	needed := Threshold(level)

	filled := 0
	if needed > 0 {
		filled = barSegments * xp / needed
	}
	if filled < 0 {
		filled = 0
	}
	if filled > barSegments {
		filled = barSegments
	}

	return strings.Repeat(barFilled, filled) + strings.Repeat(barEmpty, barSegments-filled)
}
