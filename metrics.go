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
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what the pipeline produced. A nil *Metrics records nothing.
type Metrics struct {
	tokens    *prometheus.CounterVec
	pairs     prometheus.Counter
	examples  prometheus.Counter
	rejected  prometheus.Counter
	refills   prometheus.Counter
	batches   prometheus.Counter
	vocabSize prometheus.Gauge
}

// NewMetrics registers the pipeline collectors with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skipgram",
			Name:      "tokens_total",
			Help:      "Corpus tokens by outcome (read, unknown, discarded, kept).",
		}, []string{"outcome"}),
		pairs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skipgram",
			Name:      "pairs_total",
			Help:      "Center/context pairs extracted.",
		}),
		examples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skipgram",
			Name:      "examples_total",
			Help:      "Training examples with negatives attached.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skipgram",
			Name:      "negatives_rejected_total",
			Help:      "Noise draws rejected because they were context words.",
		}),
		refills: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skipgram",
			Name:      "noise_refills_total",
			Help:      "Noise candidate cache refills.",
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skipgram",
			Name:      "batches_total",
			Help:      "Minibatches written.",
		}),
		vocabSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "skipgram",
			Name:      "vocab_size",
			Help:      "Number of ids in the vocabulary, unknown token included.",
		}),
	}
	for _, c := range []prometheus.Collector{m.tokens, m.pairs, m.examples, m.rejected, m.refills, m.batches, m.vocabSize} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) addTokens(outcome string, n uint64) {
	if m == nil {
		return
	}
	m.tokens.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) addPairs(n int) {
	if m == nil {
		return
	}
	m.pairs.Add(float64(n))
}

func (m *Metrics) addExamples(n int) {
	if m == nil {
		return
	}
	m.examples.Add(float64(n))
}

func (m *Metrics) addNoise(gens []*NoiseGenerator) {
	if m == nil {
		return
	}
	for _, g := range gens {
		m.rejected.Add(float64(g.Rejected()))
		m.refills.Add(float64(g.Refills()))
	}
}

func (m *Metrics) incBatches() {
	if m == nil {
		return
	}
	m.batches.Inc()
}

func (m *Metrics) setVocabSize(n int) {
	if m == nil {
		return
	}
	m.vocabSize.Set(float64(n))
}
