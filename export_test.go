package skipgram

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kshedden/gonpy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingFile struct {
	closed bool
}

func (f *failingFile) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func (f *failingFile) Close() error {
	f.closed = true
	return nil
}

func TestWriteNpyClosesOnError(t *testing.T) {
	f := &failingFile{}
	err := writeNpy(f, []int{2}, func(w *gonpy.NpyWriter) error { return w.WriteInt32([]int32{1, 2}) })
	assert.Error(t, err)
	assert.True(t, f.closed)
}

func TestWriteBatchNpy(t *testing.T) {
	b, err := Batchify([]Example{
		{Center: 1, Contexts: []int{2, 3}, Negatives: []int{4}},
		{Center: 2, Contexts: []int{1}, Negatives: []int{3, 4, 4}},
	})
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, WriteBatchNpy(dir, 3, b))

	for _, array := range []string{CentersArray, ContextsNegativesArray, MasksArray, LabelsArray} {
		_, err := os.Stat(filepath.Join(dir, BatchFileName(3, array)))
		assert.NoError(t, err, array)
	}

	f, err := os.Open(filepath.Join(dir, BatchFileName(3, LabelsArray)))
	require.NoError(t, err)
	defer f.Close()
	r, err := gonpy.NewReader(f)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, r.Shape)
	labels, err := r.GetFloat32()
	require.NoError(t, err)
	assert.Equal(t, b.Labels, labels)
}

func TestWriteBatchNpyMissingDir(t *testing.T) {
	b, err := Batchify([]Example{{Center: 1, Contexts: []int{2}, Negatives: []int{3}}})
	require.NoError(t, err)
	assert.Error(t, WriteBatchNpy(filepath.Join(t.TempDir(), "missing"), 0, b))
}
