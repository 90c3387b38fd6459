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

	"github.com/sirupsen/logrus"
)

const (
	errorLogLevel = 0
	infoLogLevel  = 1
	debugLogLevel = 2

	defaultProgressInterval = 10000
)

var (
	// ErrInvalidConfig is returned when a configuration value is out of range.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrEmptyBatch is returned when batching zero examples.
	ErrEmptyBatch = errors.New("empty batch")
	// ErrNegativeSamplingExhausted is returned when no id outside a context
	// set can be drawn from the noise distribution.
	ErrNegativeSamplingExhausted = errors.New("negative sampling exhausted")
	// ErrSampleOutOfRange is returned when a noise distribution yields an id
	// outside the vocabulary.
	ErrSampleOutOfRange = errors.New("sample out of range")
	// ErrNoNoiseMass is returned when every noise weight is zero.
	ErrNoNoiseMass = errors.New("noise distribution has no mass")
)

// NewLogger returns a logger at the given verbosity
// (0 = errors only, 1 = info, 2 = debug).
func NewLogger(verbose int) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(verbosityLevel(verbose))
	return l
}

func verbosityLevel(verbose int) logrus.Level {
	switch {
	case verbose <= errorLogLevel:
		return logrus.ErrorLevel
	case verbose == infoLogLevel:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}

type progressPrinter struct {
	log   logrus.FieldLogger
	stage string
	n     uint64
	mod   uint64
}

func newProgressPrinter(log logrus.FieldLogger, stage string, mod uint64) *progressPrinter {
	return &progressPrinter{log: log, stage: stage, mod: mod}
}

func (p *progressPrinter) inc() {
	p.n++
	if p.n%p.mod == 0 {
		p.log.WithField("stage", p.stage).Debugf("%dK", p.n/1000)
	}
}
