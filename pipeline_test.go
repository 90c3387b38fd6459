package skipgram

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCorpus returns lines drawn from a skewed vocabulary of 40 words.
func testCorpus(lines int) string {
	rng := NewRand(123, 0)
	var sb strings.Builder
	for i := 0; i < lines; i++ {
		n := 3 + rng.IntN(12)
		for j := 0; j < n; j++ {
			// Squaring a uniform draw favours low word numbers.
			u := rng.Float64()
			fmt.Fprintf(&sb, "w%d ", int(u*u*40))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MinFreq = 2
	cfg.Subsample = 1e-2
	cfg.Window = 3
	cfg.Negative = 4
	cfg.BatchSize = 64
	cfg.Seed = 42
	cfg.CacheSize = 100
	cfg.Workers = 2
	return cfg
}

func testPipeline(cfg Config) *Pipeline {
	p := NewPipeline(cfg)
	l := NewLogger(0)
	l.SetOutput(io.Discard)
	p.Logger = l
	return p
}

func allExamples(t *testing.T, src ExampleSource) []Example {
	out := make([]Example, src.Len())
	for i := range out {
		ex, err := src.Example(i)
		require.NoError(t, err)
		out[i] = ex
	}
	return out
}

func TestPipelineRun(t *testing.T) {
	cfg := testConfig()
	d, err := testPipeline(cfg).Run(strings.NewReader(testCorpus(300)))
	require.NoError(t, err)
	defer d.Close()

	assert.Greater(t, d.Vocab.Len(), 1)
	assert.Less(t, d.NoiseFreq.Total(), d.Freq.Total(), "subsampling drops tokens")
	require.Equal(t, d.Pairs, d.Examples.Len())
	require.NotZero(t, d.Pairs)

	for _, ex := range allExamples(t, d.Examples) {
		assert.GreaterOrEqual(t, ex.Center, 1)
		assert.Less(t, ex.Center, d.Vocab.Len())
		assert.NotEmpty(t, ex.Contexts)
		assert.LessOrEqual(t, len(ex.Contexts), 2*cfg.Window)
		assert.Len(t, ex.Negatives, cfg.Negative*len(ex.Contexts))
		for _, n := range ex.Negatives {
			assert.NotContains(t, ex.Contexts, n)
			assert.NotZero(t, d.NoiseFreq.Count(n), "negative drawn with zero weight")
		}
	}

	l, err := d.Loader(true)
	require.NoError(t, err)
	var rows int
	for {
		b, err := l.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		assert.LessOrEqual(t, b.Size, cfg.BatchSize)
		rows += b.Size
	}
	assert.Equal(t, d.Examples.Len(), rows)
}

func TestPipelineDeterministic(t *testing.T) {
	corpus := testCorpus(200)
	export := func() string {
		d, err := testPipeline(testConfig()).Run(strings.NewReader(corpus))
		require.NoError(t, err)
		dir := t.TempDir()
		_, err = d.Export(dir, true, nil)
		require.NoError(t, err)
		return dir
	}
	a, b := export(), export()

	files, err := filepath.Glob(filepath.Join(a, "*.npy"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range append(files, filepath.Join(a, VocabFile)) {
		want, err := os.ReadFile(f)
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(b, filepath.Base(f)))
		require.NoError(t, err)
		assert.Equal(t, want, got, filepath.Base(f))
	}
}

func TestPipelineSeedMatters(t *testing.T) {
	corpus := testCorpus(100)
	cfg := testConfig()
	a, err := testPipeline(cfg).Run(strings.NewReader(corpus))
	require.NoError(t, err)
	cfg.Seed++
	b, err := testPipeline(cfg).Run(strings.NewReader(corpus))
	require.NoError(t, err)
	assert.NotEqual(t, allExamples(t, a.Examples), allExamples(t, b.Examples))
}

func TestPipelineStore(t *testing.T) {
	corpus := testCorpus(100)
	for _, workers := range []int{1, 2, 3} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			cfg := testConfig()
			cfg.Workers = workers
			mem, err := testPipeline(cfg).Run(strings.NewReader(corpus))
			require.NoError(t, err)

			cfg.StoreDir = t.TempDir()
			disk, err := testPipeline(cfg).Run(strings.NewReader(corpus))
			require.NoError(t, err)
			defer disk.Close()

			assert.IsType(t, &ExampleStore{}, disk.Examples)
			assert.Equal(t, mem.Pairs, disk.Pairs)
			assert.Equal(t, allExamples(t, mem.Examples), allExamples(t, disk.Examples))

			// The store is scanned sequentially when not shuffling.
			memDir, diskDir := t.TempDir(), t.TempDir()
			_, err = mem.Export(memDir, false, nil)
			require.NoError(t, err)
			m, err := disk.Export(diskDir, false, nil)
			require.NoError(t, err)
			assert.Equal(t, (disk.Examples.Len()+cfg.BatchSize-1)/cfg.BatchSize, m.Batches)
			assertSameNpy(t, memDir, diskDir)
		})
	}
}

func TestPipelineStoreCleanup(t *testing.T) {
	cfg := testConfig()
	cfg.StoreDir = t.TempDir()
	d, err := testPipeline(cfg).Run(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, d.Examples.Len())
	entries, err := os.ReadDir(cfg.StoreDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	require.NoError(t, d.Close())
	entries, err = os.ReadDir(cfg.StoreDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// With window 2, "a" at either end of a line sometimes has {a, b} as
	// contexts, which leaves no noise id to draw.
	cfg.MinFreq = 1
	cfg.Subsample = 0
	cfg.Window = 2
	exhausted := strings.Repeat("a b a\n", 20)
	_, err = testPipeline(cfg).Run(strings.NewReader(exhausted))
	assert.ErrorIs(t, err, ErrNegativeSamplingExhausted)
	entries, err = os.ReadDir(cfg.StoreDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "store left behind after a failed build")

	cfg.StoreDir = ""
	_, err = testPipeline(cfg).Run(strings.NewReader(exhausted))
	assert.ErrorIs(t, err, ErrNegativeSamplingExhausted)
}

func assertSameNpy(t *testing.T, want, got string) {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(want, "*.npy"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	gotFiles, err := filepath.Glob(filepath.Join(got, "*.npy"))
	require.NoError(t, err)
	require.Len(t, gotFiles, len(files))
	for _, f := range files {
		a, err := os.ReadFile(f)
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(got, filepath.Base(f)))
		require.NoError(t, err)
		assert.Equal(t, a, b, filepath.Base(f))
	}
}

func TestPipelineEmptyCorpus(t *testing.T) {
	d, err := testPipeline(testConfig()).Run(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 1, d.Vocab.Len())
	assert.Zero(t, d.Examples.Len())

	l, err := d.Loader(false)
	require.NoError(t, err)
	_, err = l.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestPipelineInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Negative = 0
	_, err := testPipeline(cfg).Run(strings.NewReader("a b c\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestPipelineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	p := testPipeline(testConfig())
	p.Metrics = m

	corpus := "a b c d e f x\na b c d e f y\n"
	p.Config.MinFreq = 2
	p.Config.Subsample = 0
	p.Config.Window = 1
	d, err := p.Run(strings.NewReader(corpus))
	require.NoError(t, err)

	assert.Equal(t, float64(14), testutil.ToFloat64(m.tokens.WithLabelValues("read")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.tokens.WithLabelValues("unknown")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.tokens.WithLabelValues("discarded")))
	assert.Equal(t, float64(12), testutil.ToFloat64(m.tokens.WithLabelValues("kept")))
	assert.Equal(t, float64(d.Pairs), testutil.ToFloat64(m.pairs))
	assert.Equal(t, float64(d.Examples.Len()), testutil.ToFloat64(m.examples))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.vocabSize))
	assert.NotZero(t, testutil.ToFloat64(m.refills))

	_, err = d.Export(t.TempDir(), false, m)
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.batches))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "collectors register once per registry")
}
