package reiatsu

import (
	"math/rand"
	"time"
)

// Speed は出現速度の区分で、次の出現までのランダムな待ち時間の範囲を決めます。
type Speed struct {
	Key   string
	Label string
	Min   int // seconds
	Max   int // seconds
}

const DefaultSpeedKey = "normal"

var speeds = []Speed{
	{Key: "tres_rapide", Label: "Très rapide", Min: 30, Max: 60},
	{Key: "rapide", Label: "Rapide", Min: 300, Max: 900},
	{Key: "normal", Label: "Normal", Min: 1800, Max: 3600},
	{Key: "lent", Label: "Lent", Min: 3600, Max: 7200},
}

// Speeds returns every tier, fastest first.
func Speeds() []Speed {
	out := make([]Speed, len(speeds))
	copy(out, speeds)
	return out
}

// IsSpeed reports whether key names a known tier.
func IsSpeed(key string) bool {
	for _, s := range speeds {
		if s.Key == key {
			return true
		}
	}
	return false
}

// LookupSpeed は区分を返します。不明なキーの場合はnormalになります。
func LookupSpeed(key string) Speed {
	for _, s := range speeds {
		if s.Key == key {
			return s
		}
	}
	for _, s := range speeds {
		if s.Key == DefaultSpeedKey {
			return s
		}
	}
	return speeds[0]
}

// RandomDelay draws a delay in seconds, uniformly in [Min, Max].
func (s Speed) RandomDelay(rng *rand.Rand) int {
	if s.Max <= s.Min {
		return s.Min
	}
	return s.Min + rng.Intn(s.Max-s.Min+1)
}

// Contains reports whether delay lies within the tier bounds.
func (s Speed) Contains(delay int) bool {
	return delay >= s.Min && delay <= s.Max
}

// Due reports whether a spawn is due. A guild that never spawned is always due.
func Due(lastSpawn *time.Time, delay int, now time.Time) bool {
	if lastSpawn == nil {
		return true
	}
	return now.Sub(*lastSpawn) >= time.Duration(delay)*time.Second
}
