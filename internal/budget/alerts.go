package budget

import (
	"fmt"

	"github.com/dvloznov/finance-ingest/internal/domain"
)

// Thresholds are alert levels in percent of a budget's limit.
type Thresholds struct {
	Warning  float64
	Exceeded float64
}

// DefaultThresholds warn at 80% and report overspend at 100%.
var DefaultThresholds = Thresholds{Warning: 80, Exceeded: 100}

// Alert reports a budget at or beyond a threshold.
type Alert struct {
	Type    string // domain.EventBudgetWarning or domain.EventBudgetExceeded
	Budget  *domain.Budget
	Percent float64
}

// Message renders a human-readable summary naming the category.
func (a Alert) Message(categoryName string) string {
	if a.Type == domain.EventBudgetExceeded {
		return fmt.Sprintf("%s budget for %s exceeded: spent %s of %s (%.0f%%)",
			categoryName, a.Budget.Period, a.Budget.Spent.StringFixed(2), a.Budget.Limit.StringFixed(2), a.Percent)
	}
	return fmt.Sprintf("%s budget for %s at %.0f%%: spent %s of %s",
		categoryName, a.Budget.Period, a.Percent, a.Budget.Spent.StringFixed(2), a.Budget.Limit.StringFixed(2))
}

// Evaluate returns the alerts for budgets at or beyond the thresholds.
// Budgets without a positive limit never alert.
func (t Thresholds) Evaluate(budgets []*domain.Budget) []Alert {
	var alerts []Alert
	for _, b := range budgets {
		if b == nil || !b.Limit.IsPositive() {
			continue
		}
		pct := b.UsedPercent()
		switch {
		case pct >= t.Exceeded:
			alerts = append(alerts, Alert{Type: domain.EventBudgetExceeded, Budget: b, Percent: pct})
		case pct >= t.Warning:
			alerts = append(alerts, Alert{Type: domain.EventBudgetWarning, Budget: b, Percent: pct})
		}
	}
	return alerts
}

// Alerts evaluates budgets against the synchronizer's thresholds.
func (s *Synchronizer) Alerts(budgets []*domain.Budget) []Alert {
	return s.thresholds.Evaluate(budgets)
}
