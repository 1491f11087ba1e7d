package leveling

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/guildtools/levelbot/internal/ledger"
)

func TestThreshold(t *testing.T) {
	assert.Equal(t, 100, Threshold(0))
	assert.Equal(t, 155, Threshold(1))
	assert.Equal(t, 220, Threshold(2))
	assert.Equal(t, 1100, Threshold(10))
}

func TestThreshold_StrictlyIncreasing(t *testing.T) {
	for level := 0; level < 200; level++ {
		assert.Greater(t, Threshold(level+1), Threshold(level), "threshold must grow at level %d", level)
	}
}

func TestThreshold_AlwaysExceedsMaxGrant(t *testing.T) {
	// A single grant may only ever trigger one level-up. That holds as long
	// as every threshold is larger than the largest possible grant.
	for level := 0; level < 200; level++ {
		assert.Greater(t, Threshold(level), GrantMax)
	}
}

func TestApplyGrant_NoLevelUp(t *testing.T) {
	rec := ledger.Record{XP: 10, Level: 0}

	leveledUp := ApplyGrant(&rec, 20)

	assert.False(t, leveledUp)
	assert.Equal(t, 30, rec.XP)
	assert.Equal(t, 0, rec.Level)
}

func TestApplyGrant_LevelUpCarriesRemainder(t *testing.T) {
	// xp 90 at level 0, grant of 15: crosses Threshold(0)=100, leaving 5.
	rec := ledger.Record{XP: 90, Level: 0}

	leveledUp := ApplyGrant(&rec, 15)

	assert.True(t, leveledUp)
	assert.Equal(t, 1, rec.Level)
	assert.Equal(t, 5, rec.XP)
}

func TestApplyGrant_ExactThreshold(t *testing.T) {
	rec := ledger.Record{XP: 85, Level: 0}

	leveledUp := ApplyGrant(&rec, 15)

	assert.True(t, leveledUp)
	assert.Equal(t, 1, rec.Level)
	assert.Equal(t, 0, rec.XP)
}

func TestApplyGrant_RemainderStaysBelowNextThreshold(t *testing.T) {
	for level := 0; level < 50; level++ {
		rec := ledger.Record{XP: Threshold(level) - 1, Level: level}

		leveledUp := ApplyGrant(&rec, GrantMax)

		assert.True(t, leveledUp)
		assert.Equal(t, level+1, rec.Level)
		assert.GreaterOrEqual(t, rec.XP, 0)
		assert.Less(t, rec.XP, Threshold(rec.Level))
	}
}

func TestRandomGrant_Bounds(t *testing.T) {
	for i := 0; i < 1000; i++ {
		amount := RandomGrant()
		assert.GreaterOrEqual(t, amount, GrantMin)
		assert.LessOrEqual(t, amount, GrantMax)
	}
}

func TestProgressBar(t *testing.T) {
	t.Run("empty at level start", func(t *testing.T) {
		bar := ProgressBar(0, 0)
		assert.Equal(t, 0, strings.Count(bar, barFilled))
		assert.Equal(t, barSegments, strings.Count(bar, barEmpty))
	})

	t.Run("low progress rounds down to zero", func(t *testing.T) {
		// floor(20*5/155) = 0
		bar := ProgressBar(5, 1)
		assert.Equal(t, 0, strings.Count(bar, barFilled))
	})

	t.Run("half way", func(t *testing.T) {
		// floor(20*50/100) = 10
		bar := ProgressBar(50, 0)
		assert.Equal(t, 10, strings.Count(bar, barFilled))
		assert.Equal(t, 10, strings.Count(bar, barEmpty))
	})

	t.Run("clamped above threshold", func(t *testing.T) {
		bar := ProgressBar(1000, 0)
		assert.Equal(t, barSegments, strings.Count(bar, barFilled))
	})

	t.Run("clamped below zero", func(t *testing.T) {
		bar := ProgressBar(-5, 0)
		assert.Equal(t, barSegments, strings.Count(bar, barEmpty))
	})
}
