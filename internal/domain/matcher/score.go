package matcher

import (
	"math"

	"github.com/shopspring/decimal"
)

// Scoring constants. An exact amount gets no penalty; any difference at all
// takes a visible base hit (an off-by-a-penny match usually signals a
// rounding or tax-allocation discrepancy, not a true match) and grows with
// the cent difference, saturating at one dollar. Date penalty accrues per
// day of lag, capped at the expected 0-2 day processing window.
const (
	amountPenaltyBase     = 0.10
	amountPenaltyPerCent  = 0.004
	amountPenaltyCapCents = 100
	datePenaltyPerDay     = 0.05
	datePenaltyCapDays    = 2
)

// Score computes a confidence in [0,1] from the amount delta and the date
// delta in days. It is pure: no state, no clock, same inputs same output.
// The result is rounded to two decimals for stable comparison.
//
// Properties relied on by the engine and its tests:
//   - Score(x, x, 0) == 1.0 for any amount x
//   - monotonically non-increasing in |amount delta| and in date delta
func Score(txnAmount, groupAmount decimal.Decimal, dateDeltaDays int) float64 {
	score := 1.0

	diffCents := txnAmount.Abs().Sub(groupAmount.Abs()).Abs().
		Mul(decimal.NewFromInt(100)).IntPart()
	if diffCents > 0 {
		capped := diffCents
		if capped > amountPenaltyCapCents {
			capped = amountPenaltyCapCents
		}
		score -= amountPenaltyBase + float64(capped)*amountPenaltyPerCent
	}

	days := dateDeltaDays
	if days < 0 {
		days = -days
	}
	if days > datePenaltyCapDays {
		days = datePenaltyCapDays
	}
	score -= float64(days) * datePenaltyPerDay

	return clampScore(score)
}

func clampScore(score float64) float64 {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return math.Round(score*100) / 100
}
