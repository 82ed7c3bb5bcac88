package aggregate

import (
	"fmt"
	"time"

	"saldo/internal/core"
)

type NotificationType string

const (
	NotificationWarning NotificationType = "warning"
	NotificationAlert   NotificationType = "alert"
)

// DueSoonDays is how close a target date must be for an open goal to warn.
const DueSoonDays = 7

// Notification is a derived alert. Nothing is stored; the list is rebuilt on
// every read.
type Notification struct {
	ID      string           `json:"id"`
	GoalID  string           `json:"goalId"`
	Type    NotificationType `json:"type"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
}

// GoalAlerts warns about open goals whose target date is 0 to DueSoonDays
// calendar days after asOf and alerts about open goals already past it.
// Completed goals and goals without a target date never notify. Order follows goals.
func GoalAlerts(goals []core.Goal, asOf time.Time) []Notification {
	today := core.DateOf(asOf)
	out := make([]Notification, 0)
	for _, g := range goals {
		if g.IsCompleted || g.TargetDate.IsEmpty() {
			continue
		}
		days := daysBetween(today, core.DateOf(g.TargetDate.Time))
		switch {
		case days < 0:
			out = append(out, Notification{
				ID:      "goal-overdue-" + g.ID,
				GoalID:  g.ID,
				Type:    NotificationAlert,
				Title:   "Goal overdue",
				Message: fmt.Sprintf("The target date of %q passed on %s.", g.Title, g.TargetDate),
			})
		case days <= DueSoonDays:
			out = append(out, Notification{
				ID:      "goal-" + g.ID,
				GoalID:  g.ID,
				Type:    NotificationWarning,
				Title:   "Goal due soon",
				Message: fmt.Sprintf("%q is due in %d days.", g.Title, days),
			})
		}
	}
	return out
}

// daysBetween counts calendar days from a to b; both are UTC midnights.
func daysBetween(a, b core.Date) int {
	return int(b.Sub(a.Time).Hours() / 24)
}
