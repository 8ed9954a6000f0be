// Package economy implements the pricing and payout arithmetic of the
// wager protocol. Everything here is a pure function of the actual vault
// balance, the configured weights, and the roster-derived recipients, and
// every split is exact: shares plus the treasury cut always sum to the
// balance being distributed, so no value is ever stranded in the vault.
package economy

import "math/bits"

// Weights are the two independent payout signals. Kill weights a player's
// kill count, Spawn weights their remaining spawns. A spawn weight of zero
// yields a pure skill-based payout.
type Weights struct {
	Kill  uint64
	Spawn uint64
}

// Score computes a player's performance score. Saturates instead of
// wrapping under extreme weight configurations.
func Score(kills, spawns uint32, w Weights) uint64 {
	return satAdd(satMul(uint64(kills), w.Kill), satMul(uint64(spawns), w.Spawn))
}

// SpawnCost prices one spawn purchase relative to the session's entry bet.
// A zero divisor charges the full entry bet.
func SpawnCost(bet, divisor uint64) uint64 {
	if divisor == 0 {
		return bet
	}
	return bet / divisor
}

// Fee returns the protocol fee on a balance, in basis points.
func Fee(balance, bps uint64) uint64 {
	return mulDiv(balance, bps, 10000)
}

// Distribution is an exact split of a vault balance: Shares is
// index-aligned with the recipients the caller derived from the roster,
// Treasury carries the protocol fee plus any integer-division remainder
// when a treasury is configured. sum(Shares) + Treasury equals the balance
// passed in.
type Distribution struct {
	Shares   []uint64
	Treasury uint64
}

// Total returns the full distributed amount including the treasury cut.
func (d Distribution) Total() uint64 {
	total := d.Treasury
	for _, s := range d.Shares {
		total += s
	}
	return total
}

// EvenSplit divides the balance evenly among n recipients after the fee.
// The remainder goes to the treasury when one is configured, otherwise to
// the first recipient, a fixed tie-break.
func EvenSplit(balance uint64, n int, feeBps uint64, hasTreasury bool) Distribution {
	if n <= 0 {
		return Distribution{Treasury: balance}
	}

	fee := Fee(balance, feeBps)
	distributable := balance - fee

	shares := make([]uint64, n)
	base := distributable / uint64(n)
	rem := distributable % uint64(n)
	for i := range shares {
		shares[i] = base
	}

	d := Distribution{Shares: shares, Treasury: fee}
	if hasTreasury {
		d.Treasury += rem
	} else {
		d.Shares[0] += rem
	}
	return d
}

// WeightedSplit divides the balance among recipients proportionally to
// their scores after the fee. Returns ok=false when every score is zero;
// the caller decides the fallback rule. The remainder goes to the treasury
// when configured, otherwise to the first recipient with a non-zero score.
func WeightedSplit(balance uint64, scores []uint64, feeBps uint64, hasTreasury bool) (Distribution, bool) {
	var total uint64
	for _, s := range scores {
		total = satAdd(total, s)
	}
	if total == 0 {
		return Distribution{}, false
	}

	fee := Fee(balance, feeBps)
	distributable := balance - fee

	shares := make([]uint64, len(scores))
	var distributed uint64
	for i, s := range scores {
		share := mulDiv(distributable, s, total)
		// A saturated score total can over-assign; never hand out more
		// than remains.
		if share > distributable-distributed {
			share = distributable - distributed
		}
		shares[i] = share
		distributed += share
	}

	d := Distribution{Shares: shares, Treasury: fee}
	rem := distributable - distributed
	if hasTreasury {
		d.Treasury += rem
	} else {
		for i, s := range scores {
			if s > 0 {
				d.Shares[i] += rem
				break
			}
		}
	}
	return d, true
}

// mulDiv computes a*b/d with a 128-bit intermediate. Callers guarantee
// b <= d, so the quotient fits in 64 bits.
func mulDiv(a, b, d uint64) uint64 {
	if d == 0 {
		return 0
	}
	hi, lo := bits.Mul64(a, b)
	q, _ := bits.Div64(hi, lo, d)
	return q
}

func satAdd(a, b uint64) uint64 {
	if s := a + b; s >= a {
		return s
	}
	return ^uint64(0)
}

func satMul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return ^uint64(0)
	}
	return lo
}
