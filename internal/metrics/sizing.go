// Package metrics holds pure-math helpers for sizing and estimating
// the Bloom filter family's behavior before a CBF or IBLT accumulator
// is stood up, independent of any particular table instance.
package metrics

import "math"

// EstimateFalsePositiveRate returns the approximate probability that a
// random element not in the table appears to be present, for a table
// with numBits bits, numHashes hash functions, holding numItems
// entries: p ≈ (1 - e^(-k*n/m))^k.
func EstimateFalsePositiveRate(numBits uint64, numHashes uint32, numItems uint32) float64 {
	if numBits == 0 || numHashes == 0 {
		return 1.0
	}
	m := float64(numBits)
	k := float64(numHashes)
	n := float64(numItems)
	inner := 1.0 - math.Exp(-k*n/m)
	return math.Pow(inner, k)
}

// ExpectedCounterValue returns the expected value of a single counting
// Bloom filter cell after numItems insertions of a k-hash filter with
// numBits cells: each of the k*n hash touches lands in one of m cells
// uniformly, so a cell's expected count is k*n/m.
func ExpectedCounterValue(numBits uint64, numHashes uint32, numItems uint32) float64 {
	if numBits == 0 {
		return 0
	}
	return float64(numHashes) * float64(numItems) / float64(numBits)
}

// MaxSafeItemsForCounterWidth returns the largest numItems for which
// ExpectedCounterValue does not exceed maxCounter, the largest value a
// counter of the filter's bit width can hold — a sizing check against
// counter overflow rather than against false positives.
func MaxSafeItemsForCounterWidth(numBits uint64, numHashes uint32, maxCounter uint32) uint32 {
	if numHashes == 0 {
		return 0
	}
	n := float64(maxCounter) * float64(numBits) / float64(numHashes)
	if n < 0 {
		return 0
	}
	return uint32(n)
}

// RecommendedIBLTCells returns the number of IBLT cells recommended to
// decode nDropped elements at a given safety margin (e.g. 1.5 for the
// commonly cited 50% headroom over the raw count), returning
// ceil(margin*nDropped) as a total cell count, not as the per-item
// cellsMultiplier that NewIBLTWithParams takes.
func RecommendedIBLTCells(nDropped int, margin float64) uint32 {
	if nDropped <= 0 {
		return 0
	}
	if margin < 1.0 {
		margin = 1.0
	}
	return uint32(math.Ceil(margin * float64(nDropped)))
}
