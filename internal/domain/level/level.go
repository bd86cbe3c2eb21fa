// Package level defines the three-value rating scale and its ordering.
package level

import "strings"

// Level is one of the three ratings a requirement, category, or station
// can hold. The zero value is not meaningful; use Parse to normalize input.
type Level string

// The three ratings, lowest to highest.
const (
	Developing Level = "developing"
	Proficient Level = "proficient"
	Mastery    Level = "mastery"
)

// rank maps each known level to its position in the total order.
var rank = map[Level]int{
	Developing: 0,
	Proficient: 1,
	Mastery:    2,
}

// Parse normalizes arbitrary input to a Level. Anything that is not one of
// the three known labels (wrong case, empty, garbage) comes back as
// Developing: malformed input must never grant a higher-than-earned level.
func Parse(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case Mastery:
		return Mastery
	case Proficient:
		return Proficient
	default:
		return Developing
	}
}

// Rank returns the numeric position of l in the order. Unknown values rank
// as Developing.
func Rank(l Level) int {
	if r, ok := rank[l]; ok {
		return r
	}
	return 0
}

// Min returns the lower-ranked of a and b.
func Min(a, b Level) Level {
	if Rank(a) <= Rank(b) {
		return normalize(a)
	}
	return normalize(b)
}

// AtLeast reports whether have meets or exceeds need.
func AtLeast(have, need Level) bool {
	return Rank(have) >= Rank(need)
}

// normalize collapses unknown values to Developing so Min never returns a
// label outside the scale.
func normalize(l Level) Level {
	if _, ok := rank[l]; ok {
		return l
	}
	return Developing
}
