package breakout

import "github.com/Sumatoshi-tech/spikefang/pkg/alg/stats"

// histBuckets fixes the resolution of the median histograms. Values are
// normalized to [0, 1] before insertion, so the quantization error is
// bounded by 1/histBuckets of the value range.
const histBuckets = 512

// medianHist is a fixed-resolution counting histogram over [0, 1] with
// amortized O(1) median maintenance under inserts and removals. The median
// is the center of the bucket holding rank ceil(total/2).
type medianHist struct {
	counts [histBuckets]int32
	total  int
	medIdx int // bucket holding the median rank
	below  int // items in buckets strictly before medIdx
}

func bucketOf(v float64) int {
	return stats.Clamp(int(v*histBuckets), 0, histBuckets-1)
}

// Add inserts a normalized value.
func (h *medianHist) Add(v float64) {
	b := bucketOf(v)
	h.counts[b]++
	h.total++

	if b < h.medIdx {
		h.below++
	}

	h.rebalance()
}

// Remove deletes one occurrence of a previously added value.
func (h *medianHist) Remove(v float64) {
	b := bucketOf(v)
	h.counts[b]--
	h.total--

	if b < h.medIdx {
		h.below--
	}

	h.rebalance()
}

// rebalance moves medIdx until below < rank <= below+counts[medIdx].
func (h *medianHist) rebalance() {
	if h.total == 0 {
		h.medIdx = 0
		h.below = 0

		return
	}

	rank := (h.total + 1) / 2

	for h.below >= rank {
		h.medIdx--
		h.below -= int(h.counts[h.medIdx])
	}

	for h.below+int(h.counts[h.medIdx]) < rank {
		h.below += int(h.counts[h.medIdx])
		h.medIdx++
	}
}

// Median returns the tracked median bucket center, 0 for an empty histogram.
func (h *medianHist) Median() float64 {
	if h.total == 0 {
		return 0
	}

	return (float64(h.medIdx) + 0.5) / histBuckets
}
