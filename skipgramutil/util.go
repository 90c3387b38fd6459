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

// Package skipgramutil reads directories written by skipgram's Dataset.Export.
package skipgramutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kshedden/gonpy"
	"gopkg.in/yaml.v3"

	"github.com/inaciobr/skipgram"
)

type Dataset struct {
	dir      string
	manifest *skipgram.Manifest
	vocab    *skipgram.Vocab
}

func LoadDataset(dir string) (*Dataset, error) {
	raw, err := os.ReadFile(filepath.Join(dir, skipgram.ManifestFile))
	if err != nil {
		return nil, err
	}
	out := &Dataset{dir: dir, manifest: &skipgram.Manifest{}}
	if err := yaml.Unmarshal(raw, out.manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	f, err := os.Open(filepath.Join(dir, out.manifest.VocabFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if out.vocab, err = skipgram.ReadVocab(f); err != nil {
		return nil, err
	}
	if out.vocab.Len() != out.manifest.VocabSize {
		return nil, fmt.Errorf("vocab size %d doesn't match manifest %d", out.vocab.Len(), out.manifest.VocabSize)
	}
	return out, nil
}

func (d *Dataset) Manifest() *skipgram.Manifest { return d.manifest }

func (d *Dataset) Vocab() *skipgram.Vocab { return d.vocab }

func (d *Dataset) NumBatches() int { return d.manifest.Batches }

func (d *Dataset) open(index int, array string) (*gonpy.NpyReader, func() error, error) {
	f, err := os.Open(filepath.Join(d.dir, skipgram.BatchFileName(index, array)))
	if err != nil {
		return nil, nil, err
	}
	r, err := gonpy.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%s: %w", skipgram.BatchFileName(index, array), err)
	}
	return r, f.Close, nil
}

func readInt32(d *Dataset, index int, array string) ([]int32, []int, error) {
	r, closeFn, err := d.open(index, array)
	if err != nil {
		return nil, nil, err
	}
	defer closeFn()
	data, err := r.GetInt32()
	return data, r.Shape, err
}

func readFloat32(d *Dataset, index int, array string) ([]float32, []int, error) {
	r, closeFn, err := d.open(index, array)
	if err != nil {
		return nil, nil, err
	}
	defer closeFn()
	data, err := r.GetFloat32()
	return data, r.Shape, err
}

// Batch loads the four arrays of batch index.
func (d *Dataset) Batch(index int) (*skipgram.Batch, error) {
	if index < 0 || index >= d.manifest.Batches {
		return nil, fmt.Errorf("batch %d out of range [0, %d)", index, d.manifest.Batches)
	}
	centers, shape, err := readInt32(d, index, skipgram.CentersArray)
	if err != nil {
		return nil, err
	}
	if len(shape) != 2 || shape[1] != 1 {
		return nil, fmt.Errorf("centers: unexpected shape %v", shape)
	}
	b := &skipgram.Batch{Size: shape[0], Centers: centers}

	if b.ContextsNegatives, shape, err = readInt32(d, index, skipgram.ContextsNegativesArray); err != nil {
		return nil, err
	}
	if len(shape) != 2 || shape[0] != b.Size {
		return nil, fmt.Errorf("contexts_negatives: unexpected shape %v", shape)
	}
	b.MaxLen = shape[1]

	var maskShape, labelShape []int
	if b.Masks, maskShape, err = readFloat32(d, index, skipgram.MasksArray); err != nil {
		return nil, err
	}
	if b.Labels, labelShape, err = readFloat32(d, index, skipgram.LabelsArray); err != nil {
		return nil, err
	}
	for _, s := range [][]int{maskShape, labelShape} {
		if len(s) != 2 || s[0] != b.Size || s[1] != b.MaxLen {
			return nil, fmt.Errorf("masks/labels: unexpected shape %v, want [%d %d]", s, b.Size, b.MaxLen)
		}
	}
	return b, nil
}

// Row is one batch row mapped back to tokens.
type Row struct {
	Center    string
	Contexts  []string
	Negatives []string
}

// Rows decodes every row of b with the dataset vocabulary, dropping padding.
func (d *Dataset) Rows(b *skipgram.Batch) []Row {
	rows := make([]Row, b.Size)
	for i := range rows {
		rows[i].Center = d.vocab.Token(int(b.Centers[i]))
		ids, masks, labels := b.ContextsNegativesRow(i), b.MaskRow(i), b.LabelRow(i)
		for j, id := range ids {
			if masks[j] == 0 {
				continue
			}
			tok := d.vocab.Token(int(id))
			if labels[j] == 1 {
				rows[i].Contexts = append(rows[i].Contexts, tok)
			} else {
				rows[i].Negatives = append(rows[i].Negatives, tok)
			}
		}
	}
	return rows
}
