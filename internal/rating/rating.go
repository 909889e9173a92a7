package rating

import "math"

// DefaultKFactor is the K used for all league matches.
const DefaultKFactor = 32

// ComputeEloUpdate returns the rating deltas for the winner and loser of a
// match. Each side's new rating is rounded independently, so the two deltas
// may not sum to exactly zero; downstream code relies on this behavior and it
// must not be "fixed" by rounding jointly.
func ComputeEloUpdate(winnerRating, loserRating, k int) (winnerDelta, loserDelta int) {
	winnerExpected := 1.0 / (1.0 + math.Pow(10, float64(loserRating-winnerRating)/400.0))
	loserExpected := 1.0 / (1.0 + math.Pow(10, float64(winnerRating-loserRating)/400.0))

	winnerNew := int(math.Round(float64(winnerRating) + float64(k)*(1.0-winnerExpected)))
	loserNew := int(math.Round(float64(loserRating) + float64(k)*(0.0-loserExpected)))

	return winnerNew - winnerRating, loserNew - loserRating
}
