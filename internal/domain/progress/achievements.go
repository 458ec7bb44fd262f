package progress

// Threshold is a named score band whose lower bound, once crossed, triggers
// a one-time notification. Achievement state is derived from the total score
// on every scoring event, never stored per learner.
type Threshold struct {
	// Name identifies the badge, e.g. "cloud-warrior".
	Name string

	// Min is the inclusive lower bound of the band.
	Min int

	// Max is the exclusive upper bound; 0 means unbounded.
	Max int
}

// Contains reports whether the total score falls inside the band.
func (t Threshold) Contains(total int) bool {
	if total < t.Min {
		return false
	}
	return t.Max == 0 || total < t.Max
}

// Thresholds returns the fixed, ordered achievement table.
func Thresholds() []Threshold {
	return []Threshold{
		{Name: "cloud-warrior", Min: 10, Max: 50},
		{Name: "cloud-sorcerer", Min: 50},
	}
}

// Crossed returns the thresholds newly crossed when a learner's total moves
// from priorTotal to newTotal within a single scoring transaction: those with
// priorTotal < Min <= newTotal. A single large award can cross several; all
// are reported. A learner sitting above a threshold does not re-cross it.
func Crossed(priorTotal, newTotal int) []Threshold {
	var crossed []Threshold
	for _, t := range Thresholds() {
		if priorTotal < t.Min && t.Min <= newTotal {
			crossed = append(crossed, t)
		}
	}
	return crossed
}
