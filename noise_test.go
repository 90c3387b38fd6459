package skipgram

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// freqOf builds a table whose id i+1 occurs counts[i] times.
func freqOf(counts ...int) FreqTable {
	var sentence []int
	for i, n := range counts {
		for j := 0; j < n; j++ {
			sentence = append(sentence, i+1)
		}
	}
	return CountCorpus([][]int{sentence}, len(counts)+1)
}

type fixedDist int

func (d fixedDist) sample() int { return int(d) }

func TestNoiseGeneratorDistribution(t *testing.T) {
	freq := freqOf(1000, 100, 10, 0)
	for _, tableSize := range []int{0, 1e6} {
		gen, err := NewNoiseGenerator(freq, 1000, tableSize, NewRand(11, 0))
		require.NoError(t, err)
		assert.Equal(t, 3, gen.Support())
		assert.Zero(t, gen.Weight(4))

		const draws = 200000
		seen := make([]int, 5)
		for i := 0; i < draws; i++ {
			id, err := gen.Draw()
			require.NoError(t, err)
			seen[id]++
		}
		total := math.Pow(1000, NoisePower) + math.Pow(100, NoisePower) + math.Pow(10, NoisePower)
		for id, count := range []int{1000, 100, 10} {
			want := math.Pow(float64(count), NoisePower) / total
			assert.InDelta(t, want, float64(seen[id+1])/draws, 0.01, "id %d table %d", id+1, tableSize)
		}
		assert.Zero(t, seen[0], "unknown id drawn")
		assert.Zero(t, seen[4], "zero-weight id drawn")
		assert.Equal(t, uint64(draws/1000), gen.Refills())
	}
}

func TestNoiseGeneratorErrors(t *testing.T) {
	_, err := NewNoiseGenerator(freqOf(), 10, 0, NewRand(1, 0))
	assert.ErrorIs(t, err, ErrNoNoiseMass)

	_, err = NewNoiseGenerator(freqOf(0, 0), 10, 0, NewRand(1, 0))
	assert.ErrorIs(t, err, ErrNoNoiseMass)

	_, err = NewNoiseGenerator(freqOf(1), 0, 0, NewRand(1, 0))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNoiseGeneratorOutOfRange(t *testing.T) {
	gen, err := NewNoiseGenerator(freqOf(3, 3), 4, 0, NewRand(1, 0))
	require.NoError(t, err)
	gen.dist = fixedDist(7)
	_, err = gen.Draw()
	assert.ErrorIs(t, err, ErrSampleOutOfRange)

	_, err = SampleNegatives([]Pair{{Center: 1, Contexts: []int{2}}}, 1, gen)
	assert.ErrorIs(t, err, ErrSampleOutOfRange)
}

func TestNegativesDisjointFromContexts(t *testing.T) {
	gen, err := NewNoiseGenerator(freqOf(50, 40, 30, 20, 10), 64, 0, NewRand(2, 0))
	require.NoError(t, err)
	pairs := []Pair{
		{Center: 1, Contexts: []int{2, 3}},
		{Center: 2, Contexts: []int{1, 3, 4}},
		{Center: 5, Contexts: []int{1}},
	}
	const k = 5
	examples, err := SampleNegatives(pairs, k, gen)
	require.NoError(t, err)
	require.Len(t, examples, len(pairs))
	for i, ex := range examples {
		assert.Equal(t, pairs[i].Center, ex.Center)
		assert.Equal(t, pairs[i].Contexts, ex.Contexts)
		assert.Len(t, ex.Negatives, k*len(ex.Contexts))
		for _, n := range ex.Negatives {
			assert.NotContains(t, ex.Contexts, n)
			assert.GreaterOrEqual(t, n, 1)
			assert.LessOrEqual(t, n, 5)
		}
	}
	assert.NotZero(t, gen.Rejected())
}

func TestNegativeSamplingExhausted(t *testing.T) {
	gen, err := NewNoiseGenerator(freqOf(5, 5, 0), 16, 0, NewRand(1, 0))
	require.NoError(t, err)

	// Id 3 cannot be drawn, so a context of {1, 2} leaves nothing.
	_, err = SampleNegatives([]Pair{{Center: 3, Contexts: []int{1, 2}}}, 1, gen)
	assert.ErrorIs(t, err, ErrNegativeSamplingExhausted)

	examples, err := SampleNegatives([]Pair{{Center: 3, Contexts: []int{1, 3}}}, 2, gen)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 2, 2}, examples[0].Negatives)
}

func TestNegativeSamplingRejectionBound(t *testing.T) {
	// Id 2 can be drawn but is so rare that the rejection bound is hit first.
	freq := FreqTable{counts: []uint64{0, 1 << 50, 1}, total: 1<<50 + 1}
	gen, err := NewNoiseGenerator(freq, 1024, 0, NewRand(3, 0))
	require.NoError(t, err)
	require.Equal(t, 2, gen.Support())

	_, err = SampleNegatives([]Pair{{Center: 2, Contexts: []int{1}}}, 1, gen)
	assert.ErrorIs(t, err, ErrNegativeSamplingExhausted)
	assert.Equal(t, uint64(maxRejections+1), gen.Rejected())
}

func TestShardBounds(t *testing.T) {
	tests := []struct {
		n, workers int
		want       [][2]int
	}{
		{10, 3, [][2]int{{0, 4}, {4, 8}, {8, 10}}},
		{2, 4, [][2]int{{0, 1}, {1, 2}, {2, 2}, {2, 2}}},
		{0, 2, [][2]int{{0, 0}, {0, 0}}},
	}
	for _, tt := range tests {
		for w, want := range tt.want {
			start, end := shardBounds(tt.n, tt.workers, w)
			assert.Equal(t, want, [2]int{start, end}, "n=%d workers=%d w=%d", tt.n, tt.workers, w)
		}
	}
}

func TestSampleNegativesInvalidK(t *testing.T) {
	gen, err := NewNoiseGenerator(freqOf(1, 1), 4, 0, NewRand(1, 0))
	require.NoError(t, err)
	_, err = SampleNegatives(nil, 0, gen)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSampleNegativesParallel(t *testing.T) {
	freq := freqOf(90, 70, 50, 30, 20, 10, 5)
	var pairs []Pair
	for i := 0; i < 101; i++ {
		c := 1 + i%7
		pairs = append(pairs, Pair{Center: c, Contexts: []int{1 + (c % 7), 1 + ((c + 1) % 7)}})
	}
	newGen := func(w int) (*NoiseGenerator, error) {
		return NewNoiseGenerator(freq, 32, 0, NewRand(9, noiseStream+uint64(w)))
	}

	a, gens, err := SampleNegativesParallel(pairs, 3, 4, newGen)
	require.NoError(t, err)
	require.Len(t, gens, 4)
	b, _, err := SampleNegativesParallel(pairs, 3, 4, newGen)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	for i, ex := range a {
		assert.Equal(t, pairs[i].Center, ex.Center)
		assert.Len(t, ex.Negatives, 6)
	}

	// A single worker matches the sequential path with the same generator.
	single, _, err := SampleNegativesParallel(pairs, 3, 1, newGen)
	require.NoError(t, err)
	gen, err := newGen(0)
	require.NoError(t, err)
	seq, err := SampleNegatives(pairs, 3, gen)
	require.NoError(t, err)
	assert.Equal(t, seq, single)

	// More workers than pairs leaves some idle.
	few, _, err := SampleNegativesParallel(pairs[:2], 3, 8, newGen)
	require.NoError(t, err)
	assert.Len(t, few, 2)

	_, _, err = SampleNegativesParallel(pairs, 3, 0, newGen)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestUnigramTableSkipsZeroWeights(t *testing.T) {
	table := newUnigramTable([]float64{0, 5, 0, 5, 0}, 1000, NewRand(1, 0))
	for i := 0; i < 10000; i++ {
		idx := table.sample()
		assert.Contains(t, []int{1, 3}, idx)
	}
}
