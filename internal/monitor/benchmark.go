package monitor

import (
	"math"

	"github.com/shopspring/decimal"
)

// Reference distribution of peer savings rates, in percent.
const (
	PeerAverageRate = 12.5
	PeerRateSpread  = 5.0
)

// Benchmark compares a user's savings rate with their peers.
type Benchmark struct {
	Message         string  `json:"message,omitempty"`
	YourSavingsRate float64 `json:"your_savings_rate"`
	PeerAverageRate float64 `json:"peer_avg_savings_rate"`
	Percentile      int     `json:"savings_rate_percentile"`
	OptedIn         bool    `json:"opted_in"`
	Suppressed      bool    `json:"suppressed"`
}

// PeerBenchmark places rate (in percent) within the peer distribution,
// treated as normal with mean PeerAverageRate and deviation PeerRateSpread.
// A user who has not opted in gets only a prompt. A suppressed benchmark
// keeps the opt-in but hides the comparison.
func PeerBenchmark(rate float64, optedIn, suppressed bool) Benchmark {
	if !optedIn {
		return Benchmark{Message: "Opt in to see peer benchmarks"}
	}
	if suppressed {
		return Benchmark{
			OptedIn:    true,
			Suppressed: true,
			Message:    "Peer benchmarks are paused during a gamification holiday",
		}
	}

	z := (rate - PeerAverageRate) / (PeerRateSpread * math.Sqrt2)
	percentile := int(math.Round(50 * (1 + math.Erf(z))))
	percentile = min(max(percentile, 1), 99)

	return Benchmark{
		OptedIn:         true,
		YourSavingsRate: decimal.NewFromFloat(rate).Round(1).InexactFloat64(),
		PeerAverageRate: PeerAverageRate,
		Percentile:      percentile,
	}
}
