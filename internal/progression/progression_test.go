package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurve_Level(t *testing.T) {
	c := DefaultCurve()

	l := c.Level(0)
	assert.Equal(t, Level{Level: 1, EPInLevel: 0, EPRequired: 100, TotalEP: 0}, l)

	l = c.Level(99)
	assert.Equal(t, 1, l.Level)
	assert.Equal(t, int64(99), l.EPInLevel)

	l = c.Level(100)
	assert.Equal(t, 2, l.Level)
	assert.Equal(t, int64(0), l.EPInLevel)
	assert.Equal(t, int64(150), l.EPRequired)

	l = c.Level(260)
	assert.Equal(t, 3, l.Level)
	assert.Equal(t, int64(10), l.EPInLevel)
	assert.Equal(t, int64(200), l.EPRequired)

	assert.Equal(t, 1, c.Level(-5).Level)
}

func TestCurve_RequirementIsNonDecreasing(t *testing.T) {
	c := DefaultCurve()
	for l := 1; l < 200; l++ {
		assert.LessOrEqual(t, c.Required(l), c.Required(l+1))
	}
}

func TestCurve_ApplyCrossingTwoLevels(t *testing.T) {
	c := DefaultCurve()
	res := c.Apply(90, 270)

	assert.Equal(t, 1, res.Before.Level)
	assert.Equal(t, 3, res.After.Level)
	assert.Equal(t, []int{2, 3}, res.LevelsGained)
	assert.Equal(t, c.Bonus(2)+c.Bonus(3), res.DiamondsDelta)
	assert.Equal(t, int64(20), res.DiamondsDelta)

	var crossed int64
	for l := 1; l < res.After.Level; l++ {
		crossed += c.Required(l)
	}
	assert.Equal(t, res.After.TotalEP, res.After.EPInLevel+crossed)
	assert.Equal(t, c.Threshold(3), crossed)
}

func TestCurve_ApplyWithoutLevelUp(t *testing.T) {
	res := DefaultCurve().Apply(10, 11)
	assert.Empty(t, res.LevelsGained)
	assert.Zero(t, res.DiamondsDelta)
}

func TestCurve_LevelScaledBonus(t *testing.T) {
	c := Curve{BaseEP: 10, StepEP: 0, Diamonds: 5, DiamondStep: 2}
	res := c.Apply(0, 35)
	require.Equal(t, []int{2, 3, 4}, res.LevelsGained)
	assert.Equal(t, int64(5+7+9), res.DiamondsDelta)
	assert.Equal(t, int64(5), res.After.EPInLevel)
}

func TestCurve_ReconcilesForAnyTotal(t *testing.T) {
	c := Curve{BaseEP: 30, StepEP: 7}
	for total := int64(0); total < 5000; total += 37 {
		l := c.Level(total)
		assert.Equal(t, total, c.Threshold(l.Level)+l.EPInLevel)
		assert.Less(t, l.EPInLevel, l.EPRequired)
	}
}
