package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func names(ts []Threshold) []string {
	if len(ts) == 0 {
		return nil
	}
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Name)
	}
	return out
}

func TestCrossed(t *testing.T) {
	tests := []struct {
		name       string
		priorTotal int
		newTotal   int
		want       []string
	}{
		{"below first band", 0, 8, nil},
		{"crosses warrior at boundary", 8, 18, []string{"cloud-warrior"}},
		{"exactly reaches minimum", 0, 10, []string{"cloud-warrior"}},
		{"stays inside warrior band", 18, 28, nil},
		{"crosses sorcerer", 45, 55, []string{"cloud-sorcerer"}},
		{"single award crosses both", 5, 60, []string{"cloud-warrior", "cloud-sorcerer"}},
		{"already above everything", 60, 70, nil},
		{"zero-point award", 15, 15, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(Crossed(tt.priorTotal, tt.newTotal)))
		})
	}
}

func TestCrossed_FiresOncePerBoundary(t *testing.T) {
	// A learner at 8 who earns 10 points crosses cloud-warrior.
	first := Crossed(8, 18)
	assert.Equal(t, []string{"cloud-warrior"}, names(first))

	// The next completion inside the same band reports nothing.
	second := Crossed(18, 28)
	assert.Empty(t, second)
}

func TestThreshold_Contains(t *testing.T) {
	warrior := Threshold{Name: "cloud-warrior", Min: 10, Max: 50}
	assert.False(t, warrior.Contains(9))
	assert.True(t, warrior.Contains(10))
	assert.True(t, warrior.Contains(49))
	assert.False(t, warrior.Contains(50))

	sorcerer := Threshold{Name: "cloud-sorcerer", Min: 50}
	assert.True(t, sorcerer.Contains(50))
	assert.True(t, sorcerer.Contains(10000))
}
