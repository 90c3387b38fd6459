/*
 * Copyright (c) 2016 Salle, Alexandre <alex@alexsalle.com>
 * Author: Salle, Alexandre <alex@alexsalle.com>
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of
 * this software and associated documentation files (the "Software"), to deal in
 * the Software without restriction, including without limitation the rights to
 * use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
 * the Software, and to permit persons to whom the Software is furnished to do so,
 * subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
 * FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
 * COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
 * IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
 * CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 */

package skipgram

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// NoisePower smooths the unigram distribution before negative sampling.
	NoisePower = 0.75

	defaultCacheSize = 10000
	maxRejections    = 1 << 20
)

// distribution draws an index into the noise weights.
type distribution interface {
	sample() int
}

type categoricalDist struct {
	c distuv.Categorical
}

func (d categoricalDist) sample() int {
	return int(d.c.Rand())
}

// unigramTable approximates the weights with a table of tableSize slots, each
// holding an index, as word2vec does. Draws are O(1) but the probabilities are
// quantized to 1/tableSize.
type unigramTable struct {
	table []int
	rng   *rand.Rand
}

func newUnigramTable(weights []float64, tableSize int, rng *rand.Rand) *unigramTable {
	var total float64
	last := 0
	for i, w := range weights {
		total += w
		if w > 0 {
			last = i
		}
	}
	next := func(i int) int {
		for i < last && weights[i] == 0 {
			i++
		}
		return i
	}
	table := make([]int, tableSize)
	i := next(0)
	d1 := weights[i] / total
	for a := 0; a < tableSize; a++ {
		table[a] = i
		if float64(a)/float64(tableSize) > d1 && i < last {
			i = next(i + 1)
			d1 += weights[i] / total
		}
	}
	return &unigramTable{table: table, rng: rng}
}

func (d *unigramTable) sample() int {
	return d.table[d.rng.IntN(len(d.table))]
}

// NoiseGenerator draws noise ids in [1, V) with probability proportional to
// count^NoisePower. Candidates are drawn cacheSize at a time and served in
// order; each one is an independent draw, so the cache does not change the
// distribution.
type NoiseGenerator struct {
	dist       distribution
	weights    []float64
	support    int
	candidates []int
	i          int
	refills    uint64
	rejected   uint64
}

// NewNoiseGenerator weights every id of freq by count^NoisePower. tableSize
// > 0 selects the quantized unigram table instead of exact categorical draws.
func NewNoiseGenerator(freq FreqTable, cacheSize, tableSize int, rng *rand.Rand) (*NoiseGenerator, error) {
	if cacheSize < 1 {
		return nil, fmt.Errorf("%w: cache size %d < 1", ErrInvalidConfig, cacheSize)
	}
	var weights []float64
	if freq.Len() > 1 {
		weights = make([]float64, freq.Len()-1)
	}
	var support int
	for i := range weights {
		c := freq.Count(i + 1)
		if c == 0 {
			continue
		}
		weights[i] = math.Pow(float64(c), NoisePower)
		support++
	}
	if support == 0 {
		return nil, ErrNoNoiseMass
	}
	return newNoiseGenerator(weights, support, cacheSize, tableSize, rng), nil
}

func newNoiseGenerator(weights []float64, support, cacheSize, tableSize int, rng *rand.Rand) *NoiseGenerator {
	g := &NoiseGenerator{
		weights:    weights,
		support:    support,
		candidates: make([]int, cacheSize),
	}
	if tableSize > 0 {
		g.dist = newUnigramTable(weights, tableSize, rng)
	} else {
		g.dist = categoricalDist{distuv.NewCategorical(weights, rng)}
	}
	g.i = len(g.candidates)
	return g
}

// Refill replaces the candidate cache with fresh draws.
func (g *NoiseGenerator) Refill() {
	for k := range g.candidates {
		g.candidates[k] = g.dist.sample() + 1
	}
	g.i = 0
	g.refills++
}

// Draw returns the next candidate, refilling the cache when it runs out.
func (g *NoiseGenerator) Draw() (int, error) {
	if g.i == len(g.candidates) {
		g.Refill()
	}
	id := g.candidates[g.i]
	g.i++
	if id < 1 || id > len(g.weights) {
		return 0, fmt.Errorf("%w: noise id %d not in [1, %d)", ErrSampleOutOfRange, id, len(g.weights)+1)
	}
	return id, nil
}

// Weight is the unnormalized noise weight of id.
func (g *NoiseGenerator) Weight(id int) float64 {
	if id < 1 || id > len(g.weights) {
		return 0
	}
	return g.weights[id-1]
}

// Support is the number of ids that can be drawn.
func (g *NoiseGenerator) Support() int { return g.support }

func (g *NoiseGenerator) Refills() uint64 { return g.refills }

// Rejected counts draws discarded because they hit a context id.
func (g *NoiseGenerator) Rejected() uint64 { return g.rejected }

// Negatives draws n noise ids none of which is in contexts. Ids may repeat.
func (g *NoiseGenerator) Negatives(contexts []int, n int) ([]int, error) {
	if n == 0 {
		return []int{}, nil
	}
	blocked := make(map[int]struct{}, len(contexts))
	for _, c := range contexts {
		if g.Weight(c) > 0 {
			blocked[c] = struct{}{}
		}
	}
	if len(blocked) >= g.support {
		return nil, fmt.Errorf("%w: all %d noise ids are contexts", ErrNegativeSamplingExhausted, g.support)
	}

	negatives := make([]int, 0, n)
	var rejections int
	for len(negatives) < n {
		id, err := g.Draw()
		if err != nil {
			return nil, err
		}
		if _, ok := blocked[id]; ok {
			g.rejected++
			rejections++
			if rejections > maxRejections {
				return nil, fmt.Errorf("%w: %d rejections for %d contexts", ErrNegativeSamplingExhausted, rejections, len(contexts))
			}
			continue
		}
		negatives = append(negatives, id)
	}
	return negatives, nil
}

// SampleNegatives attaches k negatives per context id to every pair.
func SampleNegatives(pairs []Pair, k int, gen *NoiseGenerator) ([]Example, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: negative %d < 1", ErrInvalidConfig, k)
	}
	examples := make([]Example, len(pairs))
	for i, p := range pairs {
		negatives, err := gen.Negatives(p.Contexts, k*len(p.Contexts))
		if err != nil {
			return nil, fmt.Errorf("pair %d (center %d): %w", i, p.Center, err)
		}
		examples[i] = Example{Center: p.Center, Contexts: p.Contexts, Negatives: negatives}
	}
	return examples, nil
}

// shardBounds is the contiguous range [start, end) of n items handled by
// worker w. Trailing workers may get an empty range.
func shardBounds(n, workers, w int) (start, end int) {
	shard := (n + workers - 1) / workers
	start = w * shard
	end = start + shard
	if end > n {
		end = n
	}
	if start > n {
		start = n
	}
	return start, end
}

func newGenerators(workers int, newGen func(worker int) (*NoiseGenerator, error)) ([]*NoiseGenerator, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: workers %d < 1", ErrInvalidConfig, workers)
	}
	gens := make([]*NoiseGenerator, workers)
	for w := range gens {
		gen, err := newGen(w)
		if err != nil {
			return nil, err
		}
		gens[w] = gen
	}
	return gens, nil
}

// SampleNegativesParallel splits pairs into contiguous shards, one per
// worker. Each worker owns the generator newGen returns for it, so nothing
// is shared; the output keeps pair order and only depends on the generators.
func SampleNegativesParallel(pairs []Pair, k, workers int, newGen func(worker int) (*NoiseGenerator, error)) ([]Example, []*NoiseGenerator, error) {
	gens, err := newGenerators(workers, newGen)
	if err != nil {
		return nil, nil, err
	}

	examples := make([]Example, len(pairs))
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start, end := shardBounds(len(pairs), workers, w)
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			out, err := SampleNegatives(pairs[start:end], k, gens[w])
			if err != nil {
				errs[w] = err
				return
			}
			copy(examples[start:end], out)
		}(w, start, end)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, gens, err
		}
	}
	return examples, gens, nil
}
