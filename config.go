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
	"os"

	"gopkg.in/yaml.v3"
)

const (
	whitespaceTokenizer = "whitespace"
	tiktokenTokenizer   = "tiktoken"
)

// Config holds every knob of the pipeline. Nothing is read from the
// environment; zero values are rejected by Validate where they make no sense.
type Config struct {
	MinFreq            int     `yaml:"min_freq"`
	MaxVocab           int     `yaml:"max_vocab"`
	Subsample          float64 `yaml:"subsample"`
	Window             int     `yaml:"window"`
	Negative           int     `yaml:"negative"`
	BatchSize          int     `yaml:"batch_size"`
	Seed               uint64  `yaml:"seed"`
	CacheSize          int     `yaml:"cache_size"`
	NoiseTable         int     `yaml:"noise_table"`
	Workers            int     `yaml:"workers"`
	Tokenizer          string  `yaml:"tokenizer"`
	Encoding           string  `yaml:"encoding"`
	Lowercase          bool    `yaml:"lowercase"`
	PeriodIsWhitespace bool    `yaml:"period_is_whitespace"`
	StoreDir           string  `yaml:"store_dir"`
}

// DefaultConfig returns the settings used for the PTB skip-gram chapter.
func DefaultConfig() Config {
	return Config{
		MinFreq:   10,
		Subsample: 1e-4,
		Window:    5,
		Negative:  5,
		BatchSize: 512,
		CacheSize: defaultCacheSize,
		Workers:   1,
		Tokenizer: whitespaceTokenizer,
		Encoding:  "cl100k_base",
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch {
	case c.MaxVocab < 0:
		return fmt.Errorf("%w: max_vocab %d < 0", ErrInvalidConfig, c.MaxVocab)
	case c.Subsample < 0:
		return fmt.Errorf("%w: subsample %g < 0", ErrInvalidConfig, c.Subsample)
	case c.Window < 1:
		return fmt.Errorf("%w: window %d < 1", ErrInvalidConfig, c.Window)
	case c.Negative < 1:
		return fmt.Errorf("%w: negative %d < 1", ErrInvalidConfig, c.Negative)
	case c.BatchSize < 1:
		return fmt.Errorf("%w: batch_size %d < 1", ErrInvalidConfig, c.BatchSize)
	case c.CacheSize < 1:
		return fmt.Errorf("%w: cache_size %d < 1", ErrInvalidConfig, c.CacheSize)
	case c.NoiseTable < 0:
		return fmt.Errorf("%w: noise_table %d < 0", ErrInvalidConfig, c.NoiseTable)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers %d < 1", ErrInvalidConfig, c.Workers)
	}
	switch c.Tokenizer {
	case whitespaceTokenizer, tiktokenTokenizer:
	default:
		return fmt.Errorf("%w: unknown tokenizer %q", ErrInvalidConfig, c.Tokenizer)
	}
	return nil
}
