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
	"math/rand/v2"
	"strings"
)

const maxLineBytes = 16 << 20

// Tokenizer splits one corpus line (one sentence) into tokens.
type Tokenizer interface {
	Tokenize(line string) []string
}

// WhitespaceTokenizer splits on unicode whitespace after optional lowercasing.
type WhitespaceTokenizer struct {
	Lowercase          bool
	PeriodIsWhitespace bool
}

func (t WhitespaceTokenizer) Tokenize(line string) []string {
	if t.Lowercase {
		line = strings.ToLower(line)
	}
	return strings.FieldsFunc(line, func(r rune) bool {
		return isSpace(r, t.PeriodIsWhitespace)
	})
}

// NewTokenizer builds the tokenizer selected by cfg.
func NewTokenizer(cfg Config) (Tokenizer, error) {
	switch cfg.Tokenizer {
	case "", whitespaceTokenizer:
		return WhitespaceTokenizer{Lowercase: cfg.Lowercase, PeriodIsWhitespace: cfg.PeriodIsWhitespace}, nil
	case tiktokenTokenizer:
		return NewBPETokenizer(cfg.Encoding, cfg.Lowercase)
	}
	return nil, fmt.Errorf("%w: unknown tokenizer %q", ErrInvalidConfig, cfg.Tokenizer)
}

// ReadSentences reads one sentence per line. Empty lines give empty sentences.
func ReadSentences(r io.Reader, tok Tokenizer) ([][]string, error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), maxLineBytes)
	var sentences [][]string
	for s.Scan() {
		sentences = append(sentences, tok.Tokenize(s.Text()))
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return sentences, nil
}

// Identical to stdlib but allows treating periods as whitespace
func isSpace(r rune, periodIsWhitespace bool) bool {
	if r <= '\u00FF' {
		// Obvious ASCII ones: \t through \r plus space. Plus two Latin-1 oddballs.
		if periodIsWhitespace && r == '.' {
			return true
		}
		switch r {
		case ' ', '\t', '\n', '\v', '\f', '\r':
			return true
		case '\u0085', '\u00A0':
			return true
		}
		return false
	}
	// High-valued ones.
	if '\u2000' <= r && r <= '\u200A' {
		return true
	}
	switch r {
	case '\u1680', '\u2028', '\u2029', '\u202F', '\u205F', '\u3000':
		return true
	}
	return false
}

// Pair is a center word and the words around it.
type Pair struct {
	Center   int
	Contexts []int
}

type windowerCallback func(p Pair) bool

// Windower walks every center position of every sentence with at least two
// tokens. The window size is drawn uniformly from [1, maxWindow] for each
// center and clipped at the sentence bounds. It stops when callback returns
// false.
func Windower(corpus [][]int, maxWindow int, rng *rand.Rand, callback windowerCallback) error {
	if maxWindow < 1 {
		return fmt.Errorf("%w: window %d < 1", ErrInvalidConfig, maxWindow)
	}
	for _, sentence := range corpus {
		if len(sentence) < 2 {
			continue
		}
		// j is the position of the center word within the sentence.
		for j, target := range sentence {
			win := 1 + rng.IntN(maxWindow)
			start := j - win
			if start < 0 {
				start = 0
			}
			end := j + win + 1
			if end > len(sentence) {
				end = len(sentence)
			}
			contexts := make([]int, 0, end-start-1)
			for i := start; i < end; i++ {
				if i == j {
					continue
				}
				contexts = append(contexts, sentence[i])
			}
			if !callback(Pair{Center: target, Contexts: contexts}) {
				return nil
			}
		}
	}
	return nil
}

// ExtractContexts collects every pair produced by Windower.
func ExtractContexts(corpus [][]int, maxWindow int, rng *rand.Rand) ([]Pair, error) {
	var pairs []Pair
	err := Windower(corpus, maxWindow, rng, func(p Pair) bool {
		pairs = append(pairs, p)
		return true
	})
	return pairs, err
}
