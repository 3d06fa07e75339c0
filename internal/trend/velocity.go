package trend

import (
	"math"

	"github.com/tyhouch/openroles.dev/internal/model"
)

// HistoryWindow is how many prior weekly summaries feed the velocity baseline.
const HistoryWindow = 4

// WeekCounts is one historical week's added/removed pair.
type WeekCounts struct {
	Added   int
	Removed int
}

// Velocity classifies this week's net posting change against the recent
// historical baseline. The result is deterministic: same inputs, same answer,
// with no model call involved.
//
// With no history, absolute thresholds apply: net >= +5 is up, net <= -5 is
// down. Otherwise this week's net is compared to the historical mean with a
// noise floor of 3 on the standard deviation.
func Velocity(added, removed int, history []WeekCounts) model.Velocity {
	net := added - removed

	if len(history) == 0 {
		switch {
		case net >= 5:
			return model.VelocityUp
		case net <= -5:
			return model.VelocityDown
		default:
			return model.VelocityStable
		}
	}

	nets := make([]float64, len(history))
	var sum float64
	for i, w := range history {
		nets[i] = float64(w.Added - w.Removed)
		sum += nets[i]
	}
	mean := sum / float64(len(nets))

	// Population standard deviation with a minimum of 3 to avoid flagging
	// ordinary week-to-week noise.
	stdDev := 3.0
	if len(nets) > 1 {
		var variance float64
		for _, n := range nets {
			variance += (n - mean) * (n - mean)
		}
		variance /= float64(len(nets))
		stdDev = math.Max(3, math.Sqrt(variance))
	}

	switch {
	case float64(net) > mean+stdDev:
		return model.VelocityUp
	case float64(net) < mean-stdDev:
		return model.VelocityDown
	default:
		return model.VelocityStable
	}
}

// HistoryFromSummaries converts prior weekly summaries into the counts
// Velocity consumes, newest first as the store returns them.
func HistoryFromSummaries(summaries []model.WeeklySummary) []WeekCounts {
	history := make([]WeekCounts, 0, len(summaries))
	for _, s := range summaries {
		history = append(history, WeekCounts{Added: s.AddedCount, Removed: s.RemovedCount})
	}
	return history
}
