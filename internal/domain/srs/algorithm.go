package srs

import (
	"math"
	"time"
)

// decay returns the forgetting-curve exponent, -w[20].
func decay(params *Params) float64 {
	return -params.Weights[20]
}

// factor returns the curve constant chosen so that retrievability is 0.9 when
// elapsed time equals stability: 0.9^(1/decay) - 1.
func factor(params *Params) float64 {
	return math.Pow(0.9, 1.0/decay(params)) - 1.0
}

// retrievability computes the probability of recall after elapsedDays for a
// memory of the given stability.
//
//	R(t, S) = (1 + factor * t / S) ^ decay
func retrievability(elapsedDays, stability float64, params *Params) float64 {
	return math.Pow(1+factor(params)*elapsedDays/stability, decay(params))
}

// initStability returns the stability after the first review, w[G-1].
func initStability(rating Rating, params *Params) float64 {
	return clampStability(params.Weights[rating-1])
}

// initDifficulty returns the difficulty after the first review.
//
//	D0(G) = w[4] - e^(w[5] * (G - 1)) + 1
//
// The clamped form is stored on cards; the unclamped form is the target of
// mean reversion in calculateNextDifficulty.
func initDifficulty(rating Rating, clamp bool, params *Params) float64 {
	d := params.Weights[4] - math.Exp(params.Weights[5]*float64(rating-1)) + 1
	if clamp {
		return clampDifficulty(d)
	}
	return d
}

// calculateNextInterval converts stability into a whole number of days at
// which retrievability will have dropped to the desired retention.
//
//	I(r, S) = round(S / factor * (r^(1/decay) - 1)), clamped to [1, maximum]
func calculateNextInterval(stability float64, params *Params) int {
	ivl := stability / factor(params) * (math.Pow(params.DesiredRetention, 1.0/decay(params)) - 1)
	days := int(math.Round(ivl))
	if days < 1 {
		days = 1
	}
	if days > params.MaximumInterval {
		days = params.MaximumInterval
	}
	return days
}

// calculateShortTermStability handles a second review on the same day.
// Good and Easy never reduce stability.
func calculateShortTermStability(stability float64, rating Rating, params *Params) float64 {
	w := params.Weights
	inc := math.Exp(w[17]*(float64(rating)-3+w[18])) * math.Pow(stability, -w[19])
	if rating == Good || rating == Easy {
		inc = math.Max(inc, 1.0)
	}
	return clampStability(stability * inc)
}

// calculateNextDifficulty applies a linearly damped change towards the rating,
// then reverts slightly towards the initial difficulty of an Easy rating.
func calculateNextDifficulty(difficulty float64, rating Rating, params *Params) float64 {
	w := params.Weights
	delta := -w[6] * (float64(rating) - 3)
	damped := difficulty + (10-difficulty)*delta/9
	reverted := w[7]*initDifficulty(Easy, false, params) + (1-w[7])*damped
	return clampDifficulty(reverted)
}

// calculateNextStability returns the stability after a review on a later day
// at the given retrievability.
func calculateNextStability(difficulty, stability, r float64, rating Rating, params *Params) float64 {
	w := params.Weights
	if rating == Again {
		long := w[11] *
			math.Pow(difficulty, -w[12]) *
			(math.Pow(stability+1, w[13]) - 1) *
			math.Exp((1-r)*w[14])
		short := stability / math.Exp(w[17]*w[18])
		return clampStability(math.Min(long, short))
	}

	hardPenalty := 1.0
	if rating == Hard {
		hardPenalty = w[15]
	}
	easyBonus := 1.0
	if rating == Easy {
		easyBonus = w[16]
	}
	return clampStability(stability * (1 + math.Exp(w[8])*
		(11-difficulty)*
		math.Pow(stability, -w[9])*
		(math.Exp((1-r)*w[10])-1)*
		hardPenalty*easyBonus))
}

// calculateNextState is the pure review function: it updates the memory
// model, moves the card through its learning stages and sets the next due
// date. The input state is not modified.
func calculateNextState(state State, rating Rating, now time.Time, params *Params) State {
	next := state

	if state.IsNew() || state.State == New {
		next.Stability = initStability(rating, params)
		next.Difficulty = initDifficulty(rating, true, params)
		next.State = Learning
		next.Step = 0
	} else {
		elapsedDays := now.Sub(*state.LastReview).Hours() / 24.0
		if elapsedDays < 1 {
			next.Stability = calculateShortTermStability(state.Stability, rating, params)
		} else {
			r := retrievability(elapsedDays, state.Stability, params)
			next.Stability = calculateNextStability(state.Difficulty, state.Stability, r, rating, params)
		}
		next.Difficulty = calculateNextDifficulty(state.Difficulty, rating, params)
	}

	var interval time.Duration
	switch next.State {
	case Learning:
		interval = transitionSteps(&next, rating, params.LearningSteps, params)
	case Relearning:
		interval = transitionSteps(&next, rating, params.RelearningSteps, params)
	default:
		interval = transitionReview(&next, rating, params)
	}

	reviewedAt := now
	next.Due = now.Add(interval)
	next.LastReview = &reviewedAt
	next.Reps = state.Reps + 1
	return next
}

// transitionSteps advances a learning or relearning card through its steps
// and graduates it to review after the last one.
func transitionSteps(s *State, rating Rating, steps []time.Duration, params *Params) time.Duration {
	if len(steps) == 0 || (s.Step >= len(steps) && rating != Again) {
		return graduate(s, params)
	}

	switch rating {
	case Again:
		s.Step = 0
		return steps[0]
	case Hard:
		if s.Step == 0 && len(steps) == 1 {
			return time.Duration(float64(steps[0]) * 1.5)
		}
		if s.Step == 0 {
			return (steps[0] + steps[1]) / 2
		}
		return steps[s.Step]
	case Good:
		if s.Step+1 >= len(steps) {
			return graduate(s, params)
		}
		s.Step++
		return steps[s.Step]
	default:
		return graduate(s, params)
	}
}

// transitionReview handles a card on long-term intervals. Forgetting it
// counts a lapse and sends it to relearning when relearning steps exist.
func transitionReview(s *State, rating Rating, params *Params) time.Duration {
	if rating == Again {
		s.Lapses++
		if len(params.RelearningSteps) > 0 {
			s.State = Relearning
			s.Step = 0
			return params.RelearningSteps[0]
		}
	}
	s.Step = 0
	return days(calculateNextInterval(s.Stability, params))
}

func graduate(s *State, params *Params) time.Duration {
	s.State = Review
	s.Step = 0
	return days(calculateNextInterval(s.Stability, params))
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

func clampStability(s float64) float64 {
	return math.Max(s, 0.001)
}

func clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, 1), 10)
}
