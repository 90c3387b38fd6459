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
	"io"
	"math/rand/v2"
)

// Example is a center word with its true contexts and the noise words drawn
// for them.
type Example struct {
	Center    int
	Contexts  []int
	Negatives []int
}

// Batch is a padded minibatch. ContextsNegatives, Masks and Labels are
// row-major Size x MaxLen; Centers is Size x 1.
type Batch struct {
	Size              int
	MaxLen            int
	Centers           []int32
	ContextsNegatives []int32
	Masks             []float32
	Labels            []float32
}

// Batchify pads examples to the longest contexts+negatives row. Rows hold
// contexts then negatives then zeros; masks mark the real entries and labels
// mark the contexts.
func Batchify(examples []Example) (*Batch, error) {
	if len(examples) == 0 {
		return nil, ErrEmptyBatch
	}
	var maxLen int
	for _, ex := range examples {
		if l := len(ex.Contexts) + len(ex.Negatives); l > maxLen {
			maxLen = l
		}
	}
	n := len(examples)
	b := &Batch{
		Size:              n,
		MaxLen:            maxLen,
		Centers:           make([]int32, n),
		ContextsNegatives: make([]int32, n*maxLen),
		Masks:             make([]float32, n*maxLen),
		Labels:            make([]float32, n*maxLen),
	}
	for i, ex := range examples {
		b.Centers[i] = int32(ex.Center)
		row := b.ContextsNegatives[i*maxLen : (i+1)*maxLen]
		masks := b.Masks[i*maxLen : (i+1)*maxLen]
		labels := b.Labels[i*maxLen : (i+1)*maxLen]
		for j, c := range ex.Contexts {
			row[j] = int32(c)
			masks[j] = 1
			labels[j] = 1
		}
		offset := len(ex.Contexts)
		for j, neg := range ex.Negatives {
			row[offset+j] = int32(neg)
			masks[offset+j] = 1
		}
	}
	return b, nil
}

func (b *Batch) ContextsNegativesRow(i int) []int32 {
	return b.ContextsNegatives[i*b.MaxLen : (i+1)*b.MaxLen]
}

func (b *Batch) MaskRow(i int) []float32 {
	return b.Masks[i*b.MaxLen : (i+1)*b.MaxLen]
}

func (b *Batch) LabelRow(i int) []float32 {
	return b.Labels[i*b.MaxLen : (i+1)*b.MaxLen]
}

// ExampleSource gives random access to training examples.
type ExampleSource interface {
	Len() int
	Example(i int) (Example, error)
}

// Examples is an in-memory ExampleSource.
type Examples []Example

func (e Examples) Len() int { return len(e) }

func (e Examples) Example(i int) (Example, error) {
	if i < 0 || i >= len(e) {
		return Example{}, fmt.Errorf("example %d out of range [0, %d)", i, len(e))
	}
	return e[i], nil
}

// Loader iterates an ExampleSource in minibatches. With a non-nil rng the
// order is reshuffled on every Reset. The last batch of an epoch may be
// smaller than batchSize.
type Loader struct {
	src       ExampleSource
	batchSize int
	rng       *rand.Rand
	order     []int
	pos       int
}

func NewLoader(src ExampleSource, batchSize int, rng *rand.Rand) (*Loader, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("%w: batch size %d < 1", ErrInvalidConfig, batchSize)
	}
	l := &Loader{src: src, batchSize: batchSize, rng: rng, order: make([]int, src.Len())}
	l.Reset()
	return l, nil
}

// Reset starts a new epoch.
func (l *Loader) Reset() {
	for i := range l.order {
		l.order[i] = i
	}
	if l.rng != nil {
		l.rng.Shuffle(len(l.order), func(i, j int) {
			l.order[i], l.order[j] = l.order[j], l.order[i]
		})
	}
	l.pos = 0
}

// NumBatches is the number of batches in one epoch.
func (l *Loader) NumBatches() int {
	return (len(l.order) + l.batchSize - 1) / l.batchSize
}

// Next returns the next batch, or io.EOF when the epoch is done.
func (l *Loader) Next() (*Batch, error) {
	if l.pos >= len(l.order) {
		return nil, io.EOF
	}
	end := l.pos + l.batchSize
	if end > len(l.order) {
		end = len(l.order)
	}
	examples := make([]Example, 0, end-l.pos)
	for _, idx := range l.order[l.pos:end] {
		ex, err := l.src.Example(idx)
		if err != nil {
			return nil, err
		}
		examples = append(examples, ex)
	}
	l.pos = end
	return Batchify(examples)
}
