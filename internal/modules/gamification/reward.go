package gamification

import (
	"fmt"
	"math"
)

// RewardTier pays Numerator/Denominator of the base reward when the score
// reaches MinPercent of the maximum.
type RewardTier struct {
	MinPercent  int
	Numerator   int
	Denominator int
}

// RewardTiers is ordered from the highest MinPercent down.
type RewardTiers []RewardTier

func QuizRewardTiers() RewardTiers {
	return RewardTiers{
		{MinPercent: 90, Numerator: 1, Denominator: 1},
		{MinPercent: 70, Numerator: 4, Denominator: 5},
		{MinPercent: 50, Numerator: 1, Denominator: 2},
	}
}

func CourseCompletionTiers() RewardTiers {
	return RewardTiers{
		{MinPercent: 100, Numerator: 1, Denominator: 1},
		{MinPercent: 80, Numerator: 1, Denominator: 2},
	}
}

func (t RewardTiers) Validate() error {
	prev := math.MaxInt
	for i, tier := range t {
		if tier.Denominator <= 0 || tier.Numerator < 0 {
			return fmt.Errorf("tier %d: invalid fraction %d/%d", i, tier.Numerator, tier.Denominator)
		}
		if tier.MinPercent < 0 || tier.MinPercent > 100 {
			return fmt.Errorf("tier %d: min percent %d out of range", i, tier.MinPercent)
		}
		if tier.MinPercent >= prev {
			return fmt.Errorf("tier %d: tiers must be ordered by descending min percent", i)
		}
		prev = tier.MinPercent
	}
	return nil
}

// Reward returns the floored share of base for the first tier the score
// reaches. maxScore == 0 yields 0.
func Reward(score, maxScore, base int, tiers RewardTiers) int {
	if maxScore <= 0 || base <= 0 {
		return 0
	}
	for _, tier := range tiers {
		// integer comparison avoids float rounding at tier boundaries
		if int64(score)*100 >= int64(tier.MinPercent)*int64(maxScore) {
			if tier.Denominator <= 0 {
				return 0
			}
			return int(int64(base) * int64(tier.Numerator) / int64(tier.Denominator))
		}
	}
	return 0
}

// Percentage is rounded to two decimals; maxScore == 0 yields 0.
func Percentage(score, maxScore int) float64 {
	if maxScore <= 0 {
		return 0
	}
	return math.Round(float64(score)*10000/float64(maxScore)) / 100
}
