// Package progression derives levels and level-up rewards from lifetime EP.
package progression

// Curve describes the leveling requirements and level-up rewards.
//
// Reaching level n+1 from level n costs BaseEP + StepEP*(n-1) EP.
// Reaching level n grants Diamonds + DiamondStep*(n-2) diamonds.
type Curve struct {
	BaseEP      int64
	StepEP      int64
	Diamonds    int64
	DiamondStep int64
}

func DefaultCurve() Curve {
	return Curve{BaseEP: 100, StepEP: 50, Diamonds: 10, DiamondStep: 0}
}

// Level is the progress view of a cumulative EP total.
type Level struct {
	Level      int   `json:"level"`
	EPInLevel  int64 `json:"ep_in_level"`
	EPRequired int64 `json:"ep_required"`
	TotalEP    int64 `json:"total_ep"`
}

// Result describes one EP update.
type Result struct {
	Before        Level `json:"before"`
	After         Level `json:"after"`
	LevelsGained  []int `json:"levels_gained"`
	DiamondsDelta int64 `json:"diamonds_delta"`
}

// Required returns the EP needed to go from level to level+1.
func (c Curve) Required(level int) int64 {
	if level < 1 {
		level = 1
	}
	req := c.BaseEP + c.StepEP*int64(level-1)
	if req < 1 {
		return 1
	}
	return req
}

// Bonus returns the diamonds granted for reaching level.
func (c Curve) Bonus(level int) int64 {
	if level < 2 {
		return 0
	}
	b := c.Diamonds + c.DiamondStep*int64(level-2)
	if b < 0 {
		return 0
	}
	return b
}

// Threshold returns the cumulative EP at which level is reached.
func (c Curve) Threshold(level int) int64 {
	var sum int64
	for l := 1; l < level; l++ {
		sum += c.Required(l)
	}
	return sum
}

// Level computes the level for a lifetime EP total.
func (c Curve) Level(total int64) Level {
	if total < 0 {
		total = 0
	}
	lvl, rest := 1, total
	for rest >= c.Required(lvl) {
		rest -= c.Required(lvl)
		lvl++
	}
	return Level{Level: lvl, EPInLevel: rest, EPRequired: c.Required(lvl), TotalEP: total}
}

// Apply compares the levels before and after an EP change and grants the
// bonus of every level crossed, once each.
func (c Curve) Apply(before, after int64) Result {
	res := Result{Before: c.Level(before), After: c.Level(after)}
	for l := res.Before.Level + 1; l <= res.After.Level; l++ {
		res.LevelsGained = append(res.LevelsGained, l)
		res.DiamondsDelta += c.Bonus(l)
	}
	return res
}
