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
	"sync"

	"github.com/sirupsen/logrus"
)

// Random streams derived from Config.Seed. Noise workers use
// noiseStream+worker.
const (
	subsampleStream = 1
	windowStream    = 2
	shuffleStream   = 3
	noiseStream     = 16
)

// Pipeline turns a corpus into skip-gram training examples:
// tokens -> vocab -> subsampled ids -> (center, contexts) -> negatives.
type Pipeline struct {
	Config  Config
	Logger  logrus.FieldLogger
	Metrics *Metrics
}

func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{Config: cfg, Logger: logrus.StandardLogger()}
}

// Dataset is the output of a pipeline run.
type Dataset struct {
	Vocab *Vocab
	// Freq holds the counts subsampling was computed from.
	Freq FreqTable
	// NoiseFreq holds the counts of the subsampled corpus; noise weights
	// come from it.
	NoiseFreq FreqTable
	Corpus    [][]int
	Pairs     int
	Examples  ExampleSource

	config Config
	store  *ExampleStore
}

// Run reads one sentence per line from r and builds the dataset.
func (p *Pipeline) Run(r io.Reader) (*Dataset, error) {
	sentences, err := p.ReadCorpus(r)
	if err != nil {
		return nil, err
	}
	vocab := p.BuildVocab(sentences)
	return p.Build(sentences, vocab)
}

// ReadCorpus tokenizes r with the configured tokenizer.
func (p *Pipeline) ReadCorpus(r io.Reader) ([][]string, error) {
	if err := p.Config.Validate(); err != nil {
		return nil, err
	}
	tok, err := NewTokenizer(p.Config)
	if err != nil {
		return nil, err
	}
	p.Logger.WithField("tokenizer", p.Config.Tokenizer).Info("reading corpus")
	sentences, err := ReadSentences(r, tok)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	var n uint64
	for _, s := range sentences {
		n += uint64(len(s))
	}
	p.Metrics.addTokens("read", n)
	p.Logger.Infof("read %d sentences, %d tokens", len(sentences), n)
	return sentences, nil
}

func (p *Pipeline) BuildVocab(sentences [][]string) *Vocab {
	p.Logger.WithField("min_freq", p.Config.MinFreq).Info("building vocab")
	vocab := BuildVocab(sentences, p.Config.MinFreq, p.Config.MaxVocab)
	p.Logger.Infof("vocab size: %d", vocab.Len())
	return vocab
}

// Build runs every stage after vocabulary construction.
func (p *Pipeline) Build(sentences [][]string, vocab *Vocab) (*Dataset, error) {
	cfg := p.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p.Metrics.setVocabSize(vocab.Len())
	corpus := vocab.Encode(sentences)

	p.Logger.WithField("t", cfg.Subsample).Info("subsampling")
	subsampler := NewSubsampler(corpus, vocab.Len(), cfg.Subsample)
	subsampled := subsampler.Subsample(corpus, NewRand(cfg.Seed, subsampleStream))
	noiseFreq := CountCorpus(subsampled, vocab.Len())
	var read uint64
	for _, s := range corpus {
		read += uint64(len(s))
	}
	p.Metrics.addTokens("unknown", read-subsampler.Freq.Total())
	p.Metrics.addTokens("discarded", subsampler.Freq.Total()-noiseFreq.Total())
	p.Metrics.addTokens("kept", noiseFreq.Total())
	p.Logger.Infof("kept %d of %d known tokens", noiseFreq.Total(), subsampler.Freq.Total())

	d := &Dataset{
		Vocab:     vocab,
		Freq:      subsampler.Freq,
		NoiseFreq: noiseFreq,
		Corpus:    subsampled,
		config:    cfg,
	}
	newGen := func(w int) (*NoiseGenerator, error) {
		return NewNoiseGenerator(noiseFreq, cfg.CacheSize, cfg.NoiseTable, NewRand(cfg.Seed, noiseStream+uint64(w)))
	}
	p.Logger.WithField("window", cfg.Window).Info("extracting contexts")
	var err error
	if cfg.StoreDir != "" {
		err = p.streamToStore(d, newGen)
	} else {
		err = p.sampleInMemory(d, newGen)
	}
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	p.Metrics.addPairs(d.Pairs)
	p.Metrics.addExamples(d.Examples.Len())
	return d, nil
}

func (p *Pipeline) sampleInMemory(d *Dataset, newGen func(int) (*NoiseGenerator, error)) error {
	cfg := p.Config
	pairs, err := ExtractContexts(d.Corpus, cfg.Window, NewRand(cfg.Seed, windowStream))
	if err != nil {
		return err
	}
	d.Pairs = len(pairs)
	p.Logger.Infof("%d center/context pairs", len(pairs))

	examples := []Example{}
	if len(pairs) > 0 {
		p.Logger.WithFields(logrus.Fields{"negative": cfg.Negative, "workers": cfg.Workers}).Info("sampling negatives")
		var gens []*NoiseGenerator
		examples, gens, err = SampleNegativesParallel(pairs, cfg.Negative, cfg.Workers, newGen)
		p.Metrics.addNoise(gens)
		if err != nil {
			return err
		}
	}
	d.Examples = Examples(examples)
	return nil
}

// streamToStore draws negatives pair by pair straight into a LevelDB store
// under StoreDir, so neither the pairs nor the examples are held in memory.
// Every worker replays the window stream from the start and keeps only its
// shard; the store ends up with the same examples, in the same order, as
// sampleInMemory produces.
func (p *Pipeline) streamToStore(d *Dataset, newGen func(int) (*NoiseGenerator, error)) error {
	cfg := p.Config
	var n int
	err := Windower(d.Corpus, cfg.Window, NewRand(cfg.Seed, windowStream), func(Pair) bool {
		n++
		return true
	})
	if err != nil {
		return err
	}
	d.Pairs = n
	p.Logger.Infof("%d center/context pairs", n)

	ldb, err := NewLevelDBStore(cfg.StoreDir)
	if err != nil {
		return err
	}
	store := NewExampleStore(ldb)
	d.store, d.Examples = store, store
	if n == 0 {
		return nil
	}

	p.Logger.WithFields(logrus.Fields{
		"negative": cfg.Negative,
		"workers":  cfg.Workers,
		"path":     ldb.Path(),
	}).Info("sampling negatives into store")
	gens, err := newGenerators(cfg.Workers, newGen)
	if err != nil {
		return err
	}
	errs := make([]error, cfg.Workers)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		start, end := shardBounds(n, cfg.Workers, w)
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			pp := newProgressPrinter(p.Logger.WithField("worker", w), "store", defaultProgressInterval)
			var pairErr error
			i := 0
			err := Windower(d.Corpus, cfg.Window, NewRand(cfg.Seed, windowStream), func(pair Pair) bool {
				idx := i
				i++
				if idx < start {
					return true
				}
				if idx >= end {
					return false
				}
				negatives, err := gens[w].Negatives(pair.Contexts, cfg.Negative*len(pair.Contexts))
				if err == nil {
					err = store.Put(idx, Example{Center: pair.Center, Contexts: pair.Contexts, Negatives: negatives})
				}
				if err != nil {
					pairErr = fmt.Errorf("pair %d (center %d): %w", idx, pair.Center, err)
					return false
				}
				pp.inc()
				return true
			})
			if pairErr == nil {
				pairErr = err
			}
			errs[w] = pairErr
		}(w, start, end)
	}
	wg.Wait()
	p.Metrics.addNoise(gens)
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Loader batches the examples with the configured batch size. Shuffling uses
// a stream derived from the seed, so epochs are reproducible.
func (d *Dataset) Loader(shuffle bool) (*Loader, error) {
	if !shuffle {
		return NewLoader(d.Examples, d.config.BatchSize, nil)
	}
	return NewLoader(d.Examples, d.config.BatchSize, NewRand(d.config.Seed, shuffleStream))
}

// Close removes the example store, if any.
func (d *Dataset) Close() error {
	if d.store == nil {
		return nil
	}
	return d.store.Cleanup()
}
