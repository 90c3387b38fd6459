package skipgram

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscardP(t *testing.T) {
	// ids 1 and 2 make up 90% and 10% of the corpus.
	corpus := [][]int{make([]int, 100)}
	for i := range corpus[0] {
		corpus[0][i] = 1
		if i < 10 {
			corpus[0][i] = 2
		}
	}
	s := NewSubsampler(corpus, 3, 0.05)
	assert.InDelta(t, 1-math.Sqrt(0.05/0.9), s.DiscardP(1), 1e-12)
	assert.InDelta(t, 1-math.Sqrt(0.05/0.1), s.DiscardP(2), 1e-12)
	assert.InDelta(t, math.Sqrt(0.05/0.9), s.KeepP(1), 1e-12)

	rare := NewSubsampler(corpus, 3, 0.5)
	assert.Zero(t, rare.DiscardP(2), "relative frequency below t is never discarded")

	off := NewSubsampler(corpus, 3, 0)
	assert.Zero(t, off.DiscardP(1))
}

func TestSubsampleStructure(t *testing.T) {
	corpus := [][]int{{0, 1, 2, 0}, {}, {3}, {0}}
	out, freq := Subsample(corpus, 4, 0, NewRand(1, 0))
	require.Len(t, out, len(corpus))
	assert.Equal(t, []int{1, 2}, out[0])
	assert.Empty(t, out[1])
	assert.Equal(t, []int{3}, out[2])
	assert.Empty(t, out[3])
	assert.Equal(t, uint64(3), freq.Total())
}

func TestSubsampleMonotonicity(t *testing.T) {
	// Relative frequencies 0.6, 0.3, 0.1, all above t.
	counts := map[int]int{1: 60000, 2: 30000, 3: 10000}
	var sentence []int
	for id := 1; id <= 3; id++ {
		for i := 0; i < counts[id]; i++ {
			sentence = append(sentence, id)
		}
	}
	corpus := make([][]int, 0, len(sentence)/100)
	for i := 0; i < len(sentence); i += 100 {
		corpus = append(corpus, sentence[i:i+100])
	}

	out, _ := Subsample(corpus, 4, 0.01, NewRand(7, 0))
	kept := CountCorpus(out, 4)
	rate := func(id int) float64 { return float64(kept.Count(id)) / float64(counts[id]) }

	assert.Less(t, rate(1), rate(2))
	assert.Less(t, rate(2), rate(3))
	assert.InDelta(t, math.Sqrt(0.01/0.6), rate(1), 0.01)
}

func TestSubsampleDeterministic(t *testing.T) {
	corpus := [][]int{{1, 1, 1, 2, 1, 3, 1, 1}, {1, 2, 2, 1}}
	a, _ := Subsample(corpus, 4, 0.1, NewRand(3, 0))
	b, _ := Subsample(corpus, 4, 0.1, NewRand(3, 0))
	assert.Equal(t, a, b)
}
