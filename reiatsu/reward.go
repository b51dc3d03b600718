package reiatsu

import "math/rand"

const (
	BaseGain           int64 = 1
	SuperGain          int64 = 100
	SuperChancePercent       = 1
	AbsorbeurBonus     int64 = 5
	TravailleurBoost   int64 = 6
	TravailleurEvery         = 5
	GamblerMin         int64 = 5
	GamblerMax         int64 = 12
	DecoyGain          int64 = 10
)

// Roll holds the random draws for one claim.
type Roll struct {
	Percent int   // 1..100, super check
	Coin    int   // 1..100, Parieur coin flip
	Amount  int64 // Parieur payout when the coin wins
}

// Result is the outcome of Calculate.
type Result struct {
	Gain    int64
	Super   bool
	Counter int
}

// NewRoll draws a Roll from rng.
func NewRoll(rng *rand.Rand) Roll {
	return Roll{
		Percent: rng.Intn(100) + 1,
		Coin:    rng.Intn(100) + 1,
		Amount:  GamblerMin + rng.Int63n(GamblerMax-GamblerMin+1),
	}
}

// Calculate maps a class, a roll and the current bonus counter to a gain.
// It has no side effects.
func Calculate(class Class, roll Roll, counter int) Result {
	if roll.Percent <= SuperChancePercent {
		return Result{Gain: SuperGain, Super: true, Counter: 0}
	}

	switch class {
	case ClassAbsorbeur:
		return Result{Gain: BaseGain + AbsorbeurBonus, Counter: counter}
	case ClassParieur:
		if roll.Coin <= 50 {
			return Result{Gain: 0, Counter: counter}
		}
		return Result{Gain: clamp(roll.Amount, GamblerMin, GamblerMax), Counter: counter}
	case ClassTravailleur:
		next := counter + 1
		if next >= TravailleurEvery {
			return Result{Gain: TravailleurBoost, Counter: 0}
		}
		return Result{Gain: BaseGain, Counter: next}
	case ClassIllusionniste, ClassVoleur, ClassNone:
		return Result{Gain: BaseGain, Counter: counter}
	default:
		return Result{Gain: BaseGain, Counter: counter}
	}
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
