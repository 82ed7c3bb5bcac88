package aggregate

import "saldo/internal/core"

// GoalView pairs a goal with its display percentage.
type GoalView struct {
	core.Goal
	Percent int `json:"percentage"`
}

// GoalProgress returns min(100, round(current/target*100)).
func GoalProgress(g core.Goal) int {
	return Percent(g.Current, g.Target)
}

// ApplyContribution adds v to the goal and recomputes completion in the same step.
// Non-positive contributions leave the goal unchanged.
func ApplyContribution(g core.Goal, v core.Money) core.Goal {
	if v.Cents <= 0 {
		return g
	}
	g.Current = g.Current.Add(v)
	g.IsCompleted = g.Current.Cents >= g.Target.Cents
	return g
}

// GoalViews attaches progress to each goal, preserving order.
func GoalViews(goals []core.Goal) []GoalView {
	views := make([]GoalView, 0, len(goals))
	for _, g := range goals {
		views = append(views, GoalView{Goal: g, Percent: GoalProgress(g)})
	}
	return views
}
