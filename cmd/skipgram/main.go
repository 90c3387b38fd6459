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

package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/inaciobr/skipgram"
	"github.com/inaciobr/skipgram/skipgramutil"
)

const (
	vocabCommand   = "vocab"
	batchesCommand = "batches"
	inspectCommand = "inspect"
)

var log *logrus.Logger

// Helper for aborting on error.
func check(e error) {
	if e != nil {
		log.Fatalf("%v", e)
	}
}

func main() {
	cfg := skipgram.DefaultConfig()
	flags := flag.NewFlagSet("default", flag.ExitOnError)
	var (
		corpusPath = flags.String("corpus", "", "path to corpus, one sentence per line")
		vocabPath  = flags.String("vocab", "", "path where to output/load vocab")
		outputDir  = flags.String("output", "", "directory for exported batches")
		configPath = flags.String("config", "", "YAML config file; flags given explicitly override it")
		verbose    = flags.Int("verbose", 1, "verboseness (0 = errors only, 1 = info, 2 = debug)")
		shuffle    = flags.Bool("shuffle", true, "shuffle examples before batching")
		batchIndex = flags.Int("batch", 0, "batch to print with inspect")
		rows       = flags.Int("rows", 5, "rows to print with inspect")
		metricsAdr = flags.String("metrics", "", "serve prometheus metrics on this address while running")
		cpuprofile = flags.String("cpuprofile", "", "write cpu profile to file")
	)
	flags.IntVar(&cfg.MinFreq, "minfreq", cfg.MinFreq, "remove from vocab words that occur less than this number of times")
	flags.IntVar(&cfg.MaxVocab, "maxvocab", cfg.MaxVocab, "max vocab size, 0 for no limit")
	flags.Float64Var(&cfg.Subsample, "subsample", cfg.Subsample, "subsampling threshold, 0 disables subsampling")
	flags.IntVar(&cfg.Window, "window", cfg.Window, "max window; each center draws its window from uniform(1, window)")
	flags.IntVar(&cfg.Negative, "negative", cfg.Negative, "number of negative samples per context word")
	flags.IntVar(&cfg.BatchSize, "batchsize", cfg.BatchSize, "examples per minibatch")
	flags.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	flags.IntVar(&cfg.CacheSize, "cache", cfg.CacheSize, "noise candidates drawn per refill")
	flags.IntVar(&cfg.NoiseTable, "noisetable", cfg.NoiseTable, "use a unigram table of this size instead of exact noise draws, 0 = exact")
	flags.IntVar(&cfg.Workers, "workers", cfg.Workers, "negative sampling workers")
	flags.StringVar(&cfg.Tokenizer, "tokenizer", cfg.Tokenizer, "whitespace or tiktoken")
	flags.StringVar(&cfg.Encoding, "encoding", cfg.Encoding, "tiktoken encoding")
	flags.BoolVar(&cfg.Lowercase, "lower", cfg.Lowercase, "lowercase the corpus")
	flags.BoolVar(&cfg.PeriodIsWhitespace, "periodiswhitespace", cfg.PeriodIsWhitespace, "treat period as whitespace")
	flags.StringVar(&cfg.StoreDir, "store", cfg.StoreDir, "keep examples in a LevelDB store under this directory")

	flags.Usage = func() {
		fmt.Printf("Usage: skipgram [command] [options]\n" +
			"Commands: vocab, batches, inspect\n" +
			"Options:\n")
		flags.PrintDefaults()
	}

	if len(os.Args) < 2 {
		flags.Usage()
		os.Exit(1)
	}
	command := os.Args[1]

	flags.Parse(os.Args[2:])
	log = skipgram.NewLogger(*verbose)

	if *configPath != "" {
		fileCfg, err := skipgram.LoadConfig(*configPath)
		check(err)
		cfg = mergeFlags(flags, fileCfg, cfg)
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		check(err)
		check(pprof.StartCPUProfile(f))
		defer pprof.StopCPUProfile()
		logrus.RegisterExitHandler(pprof.StopCPUProfile)
	}

	p := skipgram.NewPipeline(cfg)
	p.Logger = log
	if *metricsAdr != "" {
		reg := prometheus.NewRegistry()
		m, err := skipgram.NewMetrics(reg)
		check(err)
		p.Metrics = m
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			log.Error(http.ListenAndServe(*metricsAdr, mux))
		}()
	}

	var err error
	switch command {
	case vocabCommand:
		err = buildVocab(p, *corpusPath, *vocabPath)
	case batchesCommand:
		err = buildBatches(p, *corpusPath, *vocabPath, *outputDir, *shuffle)
	case inspectCommand:
		err = inspect(*outputDir, *batchIndex, *rows)
	default:
		flags.Usage()
		os.Exit(1)
	}
	check(err)

	log.Info("finished!")
}

// mergeFlags starts from the file config and applies every flag that was set
// on the command line.
func mergeFlags(flags *flag.FlagSet, fileCfg, flagCfg skipgram.Config) skipgram.Config {
	cfg := fileCfg
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "minfreq":
			cfg.MinFreq = flagCfg.MinFreq
		case "maxvocab":
			cfg.MaxVocab = flagCfg.MaxVocab
		case "subsample":
			cfg.Subsample = flagCfg.Subsample
		case "window":
			cfg.Window = flagCfg.Window
		case "negative":
			cfg.Negative = flagCfg.Negative
		case "batchsize":
			cfg.BatchSize = flagCfg.BatchSize
		case "seed":
			cfg.Seed = flagCfg.Seed
		case "cache":
			cfg.CacheSize = flagCfg.CacheSize
		case "noisetable":
			cfg.NoiseTable = flagCfg.NoiseTable
		case "workers":
			cfg.Workers = flagCfg.Workers
		case "tokenizer":
			cfg.Tokenizer = flagCfg.Tokenizer
		case "encoding":
			cfg.Encoding = flagCfg.Encoding
		case "lower":
			cfg.Lowercase = flagCfg.Lowercase
		case "periodiswhitespace":
			cfg.PeriodIsWhitespace = flagCfg.PeriodIsWhitespace
		case "store":
			cfg.StoreDir = flagCfg.StoreDir
		}
	})
	return cfg
}

func readCorpus(p *skipgram.Pipeline, corpusPath string) ([][]string, error) {
	if len(corpusPath) == 0 {
		return nil, errors.New("corpus is a required argument")
	}
	corpus, err := os.Open(corpusPath)
	if err != nil {
		return nil, err
	}
	defer corpus.Close()
	return p.ReadCorpus(corpus)
}

func buildVocab(p *skipgram.Pipeline, corpusPath, vocabPath string) error {
	if vocabPath == "" {
		return errors.New("no vocab path given")
	}
	sentences, err := readCorpus(p, corpusPath)
	if err != nil {
		return err
	}
	vocab := p.BuildVocab(sentences)
	log.Info("saving vocab")
	f, err := os.Create(vocabPath)
	if err != nil {
		return err
	}
	if err := vocab.SaveVocab(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// buildBatches always removes the dataset's example store before returning.
func buildBatches(p *skipgram.Pipeline, corpusPath, vocabPath, outputDir string, shuffle bool) (err error) {
	if outputDir == "" {
		return errors.New("output (where to save batches) is a required argument")
	}
	sentences, err := readCorpus(p, corpusPath)
	if err != nil {
		return err
	}

	var vocab *skipgram.Vocab
	if vocabPath != "" {
		log.WithField("path", vocabPath).Info("reading vocab")
		f, err := os.Open(vocabPath)
		if err != nil {
			return err
		}
		vocab, err = skipgram.ReadVocab(f)
		f.Close()
		if err != nil {
			return err
		}
	} else {
		vocab = p.BuildVocab(sentences)
	}

	dataset, err := p.Build(sentences, vocab)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := dataset.Close(); err == nil {
			err = cerr
		}
	}()

	log.WithField("output", outputDir).Info("exporting batches")
	m, err := dataset.Export(outputDir, shuffle, p.Metrics)
	if err != nil {
		return err
	}
	log.Infof("run %s: %d examples in %d batches", m.RunID, m.Examples, m.Batches)
	return nil
}

func inspect(outputDir string, index, rows int) error {
	d, err := skipgramutil.LoadDataset(outputDir)
	if err != nil {
		return err
	}
	b, err := d.Batch(index)
	if err != nil {
		return err
	}
	fmt.Printf("batch %d/%d: %d rows, max_len %d\n", index, d.NumBatches(), b.Size, b.MaxLen)
	for i, row := range d.Rows(b) {
		if i >= rows {
			break
		}
		fmt.Printf("%s\tcontexts: %s\tnegatives: %s\n", row.Center,
			strings.Join(row.Contexts, " "), strings.Join(row.Negatives, " "))
	}
	return nil
}
