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
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// BPETokenizer splits lines into byte-pair pieces of an OpenAI encoding
// (cl100k_base, p50k_base, r50k_base). Leading spaces are trimmed from each
// piece so that " the" and "the" share an id. Pieces that split a character
// are merged back.
type BPETokenizer struct {
	encoding  *tiktoken.Tiktoken
	lowercase bool
}

func NewBPETokenizer(encodingName string, lowercase bool) (*BPETokenizer, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingName, err)
	}
	return &BPETokenizer{encoding: encoding, lowercase: lowercase}, nil
}

func (t *BPETokenizer) Tokenize(line string) []string {
	if t.lowercase {
		line = strings.ToLower(line)
	}
	return bpePieces(t.encoding.EncodeOrdinary(line), t.encoding.Decode)
}

// bpePieces decodes ids into tokens. A byte-level piece can hold part of a
// multi-byte character, so pieces are joined until they decode to valid
// UTF-8. After utf8.UTFMax pieces, or at the end of the line, invalid bytes
// become U+FFFD.
func bpePieces(ids []int, decode func(ids []int) string) []string {
	tokens := make([]string, 0, len(ids))
	emit := func(piece string) {
		piece = strings.TrimSpace(strings.ToValidUTF8(piece, string(utf8.RuneError)))
		if piece != "" {
			tokens = append(tokens, piece)
		}
	}
	var pending []int
	for _, id := range ids {
		pending = append(pending, id)
		piece := decode(pending)
		if !utf8.ValidString(piece) && len(pending) < utf8.UTFMax {
			continue
		}
		emit(piece)
		pending = pending[:0]
	}
	if len(pending) > 0 {
		emit(decode(pending))
	}
	return tokens
}
