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
	"math"
	"math/rand/v2"
)

// NewRand returns the random source used by every stage. Stages never share
// hidden state: callers pass the source explicitly.
func NewRand(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// Subsampler discards frequent tokens following Mikolov et al.
type Subsampler struct {
	T    float64
	Freq FreqTable
}

// NewSubsampler counts the known ids of corpus; size is the vocabulary size.
func NewSubsampler(corpus [][]int, size int, t float64) *Subsampler {
	return &Subsampler{T: t, Freq: CountCorpus(corpus, size)}
}

// DiscardP is max(0, 1 - sqrt(t / f(id))).
func (s *Subsampler) DiscardP(id int) float64 {
	rel := s.Freq.Relative(id)
	if s.T == 0 || rel == 0 {
		return 0
	}
	p := 1 - math.Sqrt(s.T/rel)
	if p < 0 {
		p = 0
	}
	return p
}

func (s *Subsampler) KeepP(id int) float64 {
	return 1 - s.DiscardP(id)
}

// Subsample returns a new corpus with the same sentences, unknown ids removed
// and every other occurrence kept independently with probability KeepP.
func (s *Subsampler) Subsample(corpus [][]int, rng *rand.Rand) [][]int {
	out := make([][]int, len(corpus))
	for i, sentence := range corpus {
		kept := make([]int, 0, len(sentence))
		for _, id := range sentence {
			if id <= 0 || id >= s.Freq.Len() {
				continue
			}
			if p := s.DiscardP(id); p > 0 && rng.Float64() < p {
				continue
			}
			kept = append(kept, id)
		}
		out[i] = kept
	}
	return out
}

// Subsample is NewSubsampler followed by Subsample. It returns the counts the
// discard probabilities were computed from.
func Subsample(corpus [][]int, size int, t float64, rng *rand.Rand) ([][]int, FreqTable) {
	s := NewSubsampler(corpus, size, t)
	return s.Subsample(corpus, rng), s.Freq
}
