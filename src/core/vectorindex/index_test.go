package vectorindex_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragbot/src/core/vectorindex"
)

func writeFixture(t *testing.T, dir string) {
	t.Helper()
	chunks := []vectorindex.Chunk{
		{ID: "a", Text: "alpha"},
		{ID: "b", Text: "beta"},
		{ID: "c", Text: "gamma"},
		{ID: "d", Text: "delta"},
		{ID: "e", Text: "epsilon"},
		{ID: "f", Text: "zeta"},
		{ID: "g", Text: "eta", Metadata: map[string]string{"source": "g.txt"}},
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
		{0.5, 0.5, 0},
		{0, 0, 1},
		{0.7, 0.3, 0.1},
		{-1, 0, 0},
	}
	require.NoError(t, vectorindex.WriteSnapshot(dir, "my_faiss", chunks, vectors))
}

func TestSearchReturnsAtMostKOrdered(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)

	idx, err := vectorindex.Load("my_faiss", dir)
	require.NoError(t, err)
	assert.Equal(t, 7, idx.Len())
	assert.Equal(t, 3, idx.Dimension())

	tests := []struct {
		name  string
		k     int
		want  int
		first string
	}{
		{name: "top five", k: 5, want: 5, first: "alpha"},
		{name: "k larger than index", k: 10, want: 7, first: "alpha"},
		{name: "single", k: 1, want: 1, first: "alpha"},
		{name: "zero", k: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.Search([]float32{1, 0, 0}, tt.k)
			require.NoError(t, err)
			require.Len(t, got, tt.want)
			for i := 1; i < len(got); i++ {
				if got[i].Score > got[i-1].Score {
					t.Errorf("result %d score %f > previous %f", i, got[i].Score, got[i-1].Score)
				}
			}
			if tt.want > 0 {
				assert.Equal(t, tt.first, got[0].Text)
				assert.InDelta(t, 1.0, got[0].Score, 1e-5)
			}
		})
	}
}

func TestSearchScoresAreCosineSimilarity(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)

	idx, err := vectorindex.Load("my_faiss", dir)
	require.NoError(t, err)

	got, err := idx.Search([]float32{2, 0, 0}, 7)
	require.NoError(t, err)
	require.Len(t, got, 7)

	want := map[string]float64{
		"alpha":   1,
		"beta":    0.9 / math.Sqrt(0.82),
		"gamma":   0,
		"delta":   0.5 / math.Sqrt(0.5),
		"epsilon": 0,
		"zeta":    0.7 / math.Sqrt(0.59),
		"eta":     -1,
	}
	for _, r := range got {
		assert.InDelta(t, want[r.Text], r.Score, 1e-5, r.Text)
	}
	assert.Equal(t, "eta", got[6].Text)
}

func TestSearchSkipsZeroVectors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, vectorindex.WriteSnapshot(dir, "z",
		[]vectorindex.Chunk{{Text: "zero"}, {Text: "unit"}},
		[][]float32{{0, 0}, {0, 1}}))

	idx, err := vectorindex.Load("z", dir)
	require.NoError(t, err)

	got, err := idx.Search([]float32{0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "unit", got[0].Text)

	got, err = idx.Search([]float32{0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchKeepsMetadata(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)

	idx, err := vectorindex.Load("my_faiss", dir)
	require.NoError(t, err)

	got, err := idx.Search([]float32{-1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "g", got[0].ID)
	assert.Equal(t, "g.txt", got[0].Metadata["source"])
}

func TestSearchDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)

	idx, err := vectorindex.Load("my_faiss", dir)
	require.NoError(t, err)

	_, err = idx.Search([]float32{1, 0}, 5)
	assert.Error(t, err)
}

func TestLoadMissingArtifact(t *testing.T) {
	tests := []struct {
		name   string
		remove string
	}{
		{name: "geometry missing", remove: vectorindex.GeometryFile("my_faiss")},
		{name: "metadata missing", remove: vectorindex.MetadataFile("my_faiss")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFixture(t, dir)
			require.NoError(t, os.Remove(filepath.Join(dir, tt.remove)))

			idx, err := vectorindex.Load("my_faiss", dir)
			assert.Nil(t, idx)

			var loadErr *vectorindex.IndexLoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, filepath.Join(dir, tt.remove), loadErr.Path)
			assert.True(t, errors.Is(err, os.ErrNotExist))
		})
	}
}

func TestLoadCorruptArtifacts(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content []byte
	}{
		{name: "bad geometry magic", file: vectorindex.GeometryFile("my_faiss"), content: []byte("not an index at all")},
		{name: "truncated geometry", file: vectorindex.GeometryFile("my_faiss"), content: []byte{'R', 'B', 'I', 'X', 1, 0, 0, 0, 3, 0, 0, 0, 2, 0, 0, 0, 1}},
		{name: "oversized geometry header", file: vectorindex.GeometryFile("my_faiss"), content: []byte{'R', 'B', 'I', 'X', 1, 0, 0, 0, 0xF0, 0xFF, 0xFF, 0xFF, 1, 0, 0, 0, 0, 0, 0, 0}},
		{name: "huge vector count", file: vectorindex.GeometryFile("my_faiss"), content: []byte{'R', 'B', 'I', 'X', 1, 0, 0, 0, 3, 0, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF}},
		{name: "bad metadata", file: vectorindex.MetadataFile("my_faiss"), content: []byte("{")},
		{name: "dangling vector id", file: vectorindex.MetadataFile("my_faiss"), content: []byte(`{"index_name":"my_faiss","count":0,"documents":{}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFixture(t, dir)
			require.NoError(t, os.WriteFile(filepath.Join(dir, tt.file), tt.content, 0644))

			_, err := vectorindex.Load("my_faiss", dir)
			var loadErr *vectorindex.IndexLoadError
			assert.True(t, errors.As(err, &loadErr), "got %v", err)
		})
	}
}

func TestEmptySnapshot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, vectorindex.WriteSnapshot(dir, "empty", nil, nil))

	idx, err := vectorindex.Load("empty", dir)
	require.NoError(t, err)

	got, err := idx.Search([]float32{1, 2, 3}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteSnapshotRejectsMismatch(t *testing.T) {
	err := vectorindex.WriteSnapshot(t.TempDir(), "x", []vectorindex.Chunk{{Text: "a"}}, nil)
	assert.Error(t, err)

	err = vectorindex.WriteSnapshot(t.TempDir(), "x",
		[]vectorindex.Chunk{{Text: "a"}, {Text: "b"}},
		[][]float32{{1, 2}, {1}})
	assert.Error(t, err)
}
