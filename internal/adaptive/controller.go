// Package adaptive adjusts the fetch concurrency cap from observed resident
// memory. It is a two-threshold hysteresis loop, not a PID controller: above
// the high-water mark the cap steps down, below the low-water mark it steps
// up, and between them it stays put.
package adaptive

// Controller holds the tunable bounds for the concurrency loop.
type Controller struct {
	Min  int
	Max  int
	Step int
	// MemoryBudget is the byte budget the watermark fractions apply to.
	MemoryBudget uint64
	HighWater    float64
	LowWater     float64
}

// Defaults matching the service configuration.
const (
	DefaultMin       = 5
	DefaultMax       = 50
	DefaultStep      = 5
	DefaultStart     = 20
	DefaultHighWater = 0.85
	DefaultLowWater  = 0.50
	DefaultBudgetCap = 4 << 30 // 4 GiB ceiling on the derived budget
	budgetTotalShare = 0.5
)

// NewController builds a Controller with the given memory budget and default
// bounds.
func NewController(budget uint64) *Controller {
	return &Controller{
		Min:          DefaultMin,
		Max:          DefaultMax,
		Step:         DefaultStep,
		MemoryBudget: budget,
		HighWater:    DefaultHighWater,
		LowWater:     DefaultLowWater,
	}
}

// BudgetFromTotal derives the memory budget from total system memory:
// half of it, capped at 4 GiB.
func BudgetFromTotal(totalBytes uint64) uint64 {
	budget := uint64(float64(totalBytes) * budgetTotalShare)
	if budget > DefaultBudgetCap || budget == 0 {
		budget = DefaultBudgetCap
	}
	return budget
}

// NextCap returns the concurrency cap for the next round given the cap used
// this round and the observed resident memory in bytes.
func (c *Controller) NextCap(cur int, rssBytes uint64) int {
	if cur < c.Min {
		cur = c.Min
	}
	if cur > c.Max {
		cur = c.Max
	}
	observed := float64(rssBytes)
	budget := float64(c.MemoryBudget)
	switch {
	case observed > c.HighWater*budget:
		cur -= c.Step
		if cur < c.Min {
			cur = c.Min
		}
	case observed < c.LowWater*budget:
		cur += c.Step
		if cur > c.Max {
			cur = c.Max
		}
	}
	return cur
}
