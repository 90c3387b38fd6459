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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kshedden/gonpy"
	"gopkg.in/yaml.v3"
)

const (
	ManifestFile = "manifest.yaml"
	VocabFile    = "vocab.txt"

	CentersArray           = "centers"
	ContextsNegativesArray = "contexts_negatives"
	MasksArray             = "masks"
	LabelsArray            = "labels"
)

// Manifest describes an exported dataset directory.
type Manifest struct {
	RunID     string    `yaml:"run_id"`
	Created   time.Time `yaml:"created"`
	Config    Config    `yaml:"config"`
	VocabSize int       `yaml:"vocab_size"`
	Examples  int       `yaml:"examples"`
	Batches   int       `yaml:"batches"`
	VocabFile string    `yaml:"vocab_file"`
}

// BatchFileName is the name of one array of one exported batch.
func BatchFileName(index int, array string) string {
	return fmt.Sprintf("batch_%06d_%s.npy", index, array)
}

// WriteBatchNpy writes the four arrays of b as .npy files in dir. A file
// that fails to write is removed.
func WriteBatchNpy(dir string, index int, b *Batch) error {
	write := func(array string, shape []int, f func(w *gonpy.NpyWriter) error) error {
		path := filepath.Join(dir, BatchFileName(index, array))
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := writeNpy(file, shape, f); err != nil {
			_ = os.Remove(path)
			return fmt.Errorf("write %s: %w", BatchFileName(index, array), err)
		}
		return nil
	}
	rows := []int{b.Size, b.MaxLen}
	if err := write(CentersArray, []int{b.Size, 1}, func(w *gonpy.NpyWriter) error { return w.WriteInt32(b.Centers) }); err != nil {
		return err
	}
	if err := write(ContextsNegativesArray, rows, func(w *gonpy.NpyWriter) error { return w.WriteInt32(b.ContextsNegatives) }); err != nil {
		return err
	}
	if err := write(MasksArray, rows, func(w *gonpy.NpyWriter) error { return w.WriteFloat32(b.Masks) }); err != nil {
		return err
	}
	return write(LabelsArray, rows, func(w *gonpy.NpyWriter) error { return w.WriteFloat32(b.Labels) })
}

// writeNpy writes one array to wc. gonpy closes wc after a successful write;
// on failure wc is closed here.
func writeNpy(wc io.WriteCloser, shape []int, f func(w *gonpy.NpyWriter) error) error {
	w, err := gonpy.NewWriter(wc)
	if err != nil {
		_ = wc.Close()
		return err
	}
	w.Shape = shape
	if err := f(w); err != nil {
		_ = wc.Close()
		return err
	}
	return nil
}

// Export writes the vocabulary, every batch of one epoch and a manifest to
// dir. Batches are written as .npy files so any tensor library can load them.
func (d *Dataset) Export(dir string, shuffle bool, metrics *Metrics) (*Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	vf, err := os.Create(filepath.Join(dir, VocabFile))
	if err != nil {
		return nil, err
	}
	if err := d.Vocab.SaveVocab(vf); err != nil {
		vf.Close()
		return nil, err
	}
	if err := vf.Close(); err != nil {
		return nil, err
	}

	var n int
	writeBatch := func(b *Batch) error {
		if err := WriteBatchNpy(dir, n, b); err != nil {
			return err
		}
		metrics.incBatches()
		n++
		return nil
	}
	if shuffle || d.store == nil {
		err = d.exportLoader(shuffle, writeBatch)
	} else {
		err = d.exportStore(writeBatch)
	}
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		RunID:     uuid.NewString(),
		Created:   time.Now().UTC(),
		Config:    d.config,
		VocabSize: d.Vocab.Len(),
		Examples:  d.Examples.Len(),
		Batches:   n,
		VocabFile: VocabFile,
	}
	out, err := yaml.Marshal(m)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), out, 0o644); err != nil {
		return nil, err
	}
	return m, nil
}

func (d *Dataset) exportLoader(shuffle bool, f func(*Batch) error) error {
	loader, err := d.Loader(shuffle)
	if err != nil {
		return err
	}
	for {
		b, err := loader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := f(b); err != nil {
			return err
		}
	}
}

// exportStore batches the example store in index order with one sequential
// scan instead of a lookup per example. It yields the same batches as an
// unshuffled Loader.
func (d *Dataset) exportStore(f func(*Batch) error) error {
	buf := make([]Example, 0, d.config.BatchSize)
	flush := func() error {
		b, err := Batchify(buf)
		if err != nil {
			return err
		}
		buf = buf[:0]
		return f(b)
	}
	err := d.store.Iterate(func(_ int, ex Example) error {
		buf = append(buf, ex)
		if len(buf) == d.config.BatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(buf) > 0 {
		return flush()
	}
	return nil
}
