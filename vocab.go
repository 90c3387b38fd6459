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
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
)

const unknownToken = "<unk>"

type word struct {
	w    string
	idx  int
	freq uint64
}

// byFreq sorts words by descending frequency, ties broken lexicographically
// so that the same corpus always yields the same ids.
type byFreq []*word

func (a byFreq) Len() int      { return len(a) }
func (a byFreq) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a byFreq) Less(i, j int) bool {
	if a[i].freq != a[j].freq {
		return a[i].freq > a[j].freq
	}
	return a[i].w < a[j].w
}

// Vocab maps tokens to dense ids. Id 0 is always the unknown token.
type Vocab struct {
	list  []*word
	index map[string]*word
}

// BuildVocab counts every token in sentences and keeps those occurring at
// least minFreq times, most frequent first. maxVocab > 0 caps the number of
// kept tokens (the unknown token not included).
func BuildVocab(sentences [][]string, minFreq, maxVocab int) *Vocab {
	tmpVocab := make(map[string]*word)
	var list []*word
	var unknownFreq uint64
	for _, sentence := range sentences {
		for _, tok := range sentence {
			if tok == unknownToken {
				unknownFreq++
				continue
			}
			w, ok := tmpVocab[tok]
			if !ok {
				w = &word{w: tok}
				list = append(list, w)
				tmpVocab[tok] = w
			}
			w.freq++
		}
	}

	sort.Sort(byFreq(list))
	var cut int
	for ; cut < len(list) && (minFreq <= 0 || list[cut].freq >= uint64(minFreq)); cut++ {
	}
	if maxVocab > 0 && maxVocab < cut {
		cut = maxVocab
	}
	for _, w := range list[cut:] {
		unknownFreq += w.freq
	}

	v := &Vocab{
		list:  make([]*word, 0, cut+1),
		index: make(map[string]*word, cut+1),
	}
	v.add(&word{w: unknownToken, freq: unknownFreq})
	for _, w := range list[:cut] {
		v.add(w)
	}
	return v
}

func (v *Vocab) add(w *word) {
	w.idx = len(v.list)
	v.list = append(v.list, w)
	v.index[w.w] = w
}

// Len is the number of ids, unknown token included.
func (v *Vocab) Len() int { return len(v.list) }

// Unknown returns the id every out-of-vocabulary token maps to.
func (v *Vocab) Unknown() int { return 0 }

func (v *Vocab) ID(token string) int {
	if w, ok := v.index[token]; ok {
		return w.idx
	}
	return v.Unknown()
}

func (v *Vocab) IDs(tokens []string) []int {
	ids := make([]int, len(tokens))
	for i, tok := range tokens {
		ids[i] = v.ID(tok)
	}
	return ids
}

// Token returns the token for id, or the unknown token if id is out of range.
func (v *Vocab) Token(id int) string {
	if id < 0 || id >= len(v.list) {
		return unknownToken
	}
	return v.list[id].w
}

func (v *Vocab) Tokens(ids []int) []string {
	tokens := make([]string, len(ids))
	for i, id := range ids {
		tokens[i] = v.Token(id)
	}
	return tokens
}

// Count is the raw corpus count of id. For the unknown id it is the number of
// occurrences that were mapped to it.
func (v *Vocab) Count(id int) uint64 {
	if id < 0 || id >= len(v.list) {
		return 0
	}
	return v.list[id].freq
}

// Encode maps every sentence to ids.
func (v *Vocab) Encode(sentences [][]string) [][]int {
	corpus := make([][]int, len(sentences))
	for i, s := range sentences {
		corpus[i] = v.IDs(s)
	}
	return corpus
}

// SaveVocab writes one "token count" line per id, in id order.
func (v *Vocab) SaveVocab(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, word := range v.list {
		if _, err := fmt.Fprintf(bw, "%s %d\n", word.w, word.freq); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadVocab reads a file written by SaveVocab. Ids are line numbers.
func ReadVocab(r io.Reader) (*Vocab, error) {
	s := bufio.NewScanner(r)
	s.Split(bufio.ScanWords)
	v := &Vocab{index: make(map[string]*word)}
	for s.Scan() {
		tok := s.Text()
		if !s.Scan() {
			return nil, fmt.Errorf("vocab: missing count for %q", tok)
		}
		freq, err := strconv.ParseUint(s.Text(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("vocab: bad count for %q: %w", tok, err)
		}
		if _, dup := v.index[tok]; dup {
			return nil, fmt.Errorf("vocab: duplicate token %q", tok)
		}
		v.add(&word{w: tok, freq: freq})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if len(v.list) == 0 || v.list[0].w != unknownToken {
		return nil, fmt.Errorf("vocab: first entry must be %s", unknownToken)
	}
	return v, nil
}

// FreqTable holds occurrence counts per id. The unknown id is never counted.
type FreqTable struct {
	counts []uint64
	total  uint64
}

// CountCorpus counts ids in [1, size) across corpus.
func CountCorpus(corpus [][]int, size int) FreqTable {
	f := FreqTable{counts: make([]uint64, size)}
	for _, sentence := range corpus {
		for _, id := range sentence {
			if id <= 0 || id >= size {
				continue
			}
			f.counts[id]++
			f.total++
		}
	}
	return f
}

func (f FreqTable) Len() int { return len(f.counts) }

func (f FreqTable) Count(id int) uint64 {
	if id < 0 || id >= len(f.counts) {
		return 0
	}
	return f.counts[id]
}

func (f FreqTable) Total() uint64 { return f.total }

// Relative is count(id) / total, 0 for an empty table.
func (f FreqTable) Relative(id int) float64 {
	if f.total == 0 {
		return 0
	}
	return float64(f.Count(id)) / float64(f.total)
}
