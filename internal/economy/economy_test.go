package economy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSpawnCost(t *testing.T) {
	tests := []struct {
		name    string
		bet     uint64
		divisor uint64
		want    uint64
	}{
		{"quarter of entry bet", 1000, 4, 250},
		{"half of entry bet", 1000, 2, 500},
		{"zero divisor charges full bet", 1000, 0, 1000},
		{"integer division floors", 999, 4, 249},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SpawnCost(tt.bet, tt.divisor))
		})
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name   string
		kills  uint32
		spawns uint32
		w      Weights
		want   uint64
	}{
		{"skill only", 7, 3, Weights{Kill: 1, Spawn: 0}, 7},
		{"both signals", 7, 3, Weights{Kill: 2, Spawn: 1}, 17},
		{"spawns only", 7, 3, Weights{Kill: 0, Spawn: 5}, 15},
		{"zero weights", 7, 3, Weights{}, 0},
		{"saturates instead of wrapping", math.MaxUint32, 0, Weights{Kill: math.MaxUint64}, math.MaxUint64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.kills, tt.spawns, tt.w))
		})
	}
}

func TestFee(t *testing.T) {
	assert.Equal(t, uint64(0), Fee(1000, 0))
	assert.Equal(t, uint64(10), Fee(1000, 100)) // 1%
	assert.Equal(t, uint64(1000), Fee(1000, 10000))
	// 128-bit intermediate: no overflow on large balances
	assert.Equal(t, uint64(math.MaxUint64/100), Fee(math.MaxUint64, 100))
}

func TestEvenSplit(t *testing.T) {
	t.Run("1v1 winner takes the doubled bet", func(t *testing.T) {
		d := EvenSplit(200, 1, 0, false)
		assert.Equal(t, []uint64{200}, d.Shares)
		assert.Equal(t, uint64(0), d.Treasury)
	})

	t.Run("remainder to first winner without treasury", func(t *testing.T) {
		d := EvenSplit(1000, 3, 0, false)
		assert.Equal(t, []uint64{334, 333, 333}, d.Shares)
		assert.Equal(t, uint64(1000), d.Total())
	})

	t.Run("remainder to treasury when configured", func(t *testing.T) {
		d := EvenSplit(1000, 3, 0, true)
		assert.Equal(t, []uint64{333, 333, 333}, d.Shares)
		assert.Equal(t, uint64(1), d.Treasury)
	})

	t.Run("fee taken before the split", func(t *testing.T) {
		d := EvenSplit(1000, 2, 100, true) // 1% fee
		assert.Equal(t, []uint64{495, 495}, d.Shares)
		assert.Equal(t, uint64(10), d.Treasury)
		assert.Equal(t, uint64(1000), d.Total())
	})
}

func TestWeightedSplit(t *testing.T) {
	t.Run("skill weighted drains exactly", func(t *testing.T) {
		// Entry pool 200 plus 300 of pay-to-spawn surplus, spawn weight 0.
		scores := []uint64{3, 1, 0, 1} // kills with Kill weight 1
		d, ok := WeightedSplit(500, scores, 0, false)
		require.True(t, ok)
		assert.Equal(t, uint64(500), d.Total())
		assert.Equal(t, []uint64{300, 100, 0, 100}, d.Shares)
	})

	t.Run("zero-score players receive nothing", func(t *testing.T) {
		d, ok := WeightedSplit(500, []uint64{5, 0}, 0, false)
		require.True(t, ok)
		assert.Equal(t, uint64(0), d.Shares[1])
		assert.Equal(t, uint64(500), d.Shares[0])
	})

	t.Run("all scores zero reports no distribution", func(t *testing.T) {
		_, ok := WeightedSplit(500, []uint64{0, 0, 0}, 0, false)
		assert.False(t, ok)
	})

	t.Run("remainder to first scored recipient", func(t *testing.T) {
		d, ok := WeightedSplit(100, []uint64{0, 3, 3, 3}, 0, false)
		require.True(t, ok)
		// 100/9*3 = 33 each, remainder 1 to the first non-zero score.
		assert.Equal(t, []uint64{0, 34, 33, 33}, d.Shares)
		assert.Equal(t, uint64(100), d.Total())
	})
}

// Every split accounts for the full balance: no value minted, none
// stranded.
func TestEvenSplit_ConservationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		balance := rapid.Uint64Range(0, math.MaxUint64/2).Draw(t, "balance")
		n := rapid.IntRange(1, 10).Draw(t, "n")
		feeBps := rapid.Uint64Range(0, 10000).Draw(t, "feeBps")
		hasTreasury := rapid.Bool().Draw(t, "hasTreasury")
		if feeBps > 0 {
			hasTreasury = true
		}

		d := EvenSplit(balance, n, feeBps, hasTreasury)
		if d.Total() != balance {
			t.Fatalf("even split not conservative: balance=%d, distributed=%d", balance, d.Total())
		}
	})
}

func TestWeightedSplit_ConservationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		balance := rapid.Uint64Range(0, math.MaxUint64/2).Draw(t, "balance")
		n := rapid.IntRange(1, 10).Draw(t, "n")
		feeBps := rapid.Uint64Range(0, 10000).Draw(t, "feeBps")
		hasTreasury := rapid.Bool().Draw(t, "hasTreasury")
		if feeBps > 0 {
			hasTreasury = true
		}

		scores := make([]uint64, n)
		anyScore := false
		for i := range scores {
			scores[i] = rapid.Uint64Range(0, 1_000_000).Draw(t, "score")
			if scores[i] > 0 {
				anyScore = true
			}
		}

		d, ok := WeightedSplit(balance, scores, feeBps, hasTreasury)
		if ok != anyScore {
			t.Fatalf("ok=%v but anyScore=%v", ok, anyScore)
		}
		if !ok {
			return
		}
		if d.Total() != balance {
			t.Fatalf("weighted split not conservative: balance=%d, distributed=%d", balance, d.Total())
		}
	})
}

// Higher score never earns a smaller share.
func TestWeightedSplit_MonotonicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		balance := rapid.Uint64Range(1, 1_000_000_000).Draw(t, "balance")
		n := rapid.IntRange(2, 8).Draw(t, "n")

		scores := make([]uint64, n)
		for i := range scores {
			scores[i] = rapid.Uint64Range(0, 10_000).Draw(t, "score")
		}

		d, ok := WeightedSplit(balance, scores, 0, true)
		if !ok {
			return
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if scores[i] > scores[j] && d.Shares[i] < d.Shares[j] {
					t.Fatalf("share ordering violated: score[%d]=%d got %d, score[%d]=%d got %d",
						i, scores[i], d.Shares[i], j, scores[j], d.Shares[j])
				}
			}
		}
	})
}
