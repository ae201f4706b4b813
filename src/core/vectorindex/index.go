package vectorindex

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/viant/vec/search"
)

const (
	// GeometryExt holds the vector geometry of a snapshot
	GeometryExt = ".faiss"
	// MetadataExt holds the chunk texts and metadata of a snapshot
	MetadataExt = ".pkl"

	DefaultName = "my_faiss"
)

// Chunk is a retrievable unit of text stored in the index
type Chunk struct {
	ID       string            `json:"-"`
	Text     string            `json:"page_content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ScoredChunk is a chunk returned by Search, Score is cosine similarity
type ScoredChunk struct {
	Chunk
	Score float64
}

// IndexLoadError reports a missing or unparsable index artifact
type IndexLoadError struct {
	Path string
	Err  error
}

func (e *IndexLoadError) Error() string {
	return fmt.Sprintf("failed to load index %s: %v", e.Path, e.Err)
}

func (e *IndexLoadError) Unwrap() error {
	return e.Err
}

// Index is an in-memory brute-force cosine index loaded from a snapshot pair
type Index struct {
	name   string
	dim    int
	ids    []string
	vecs   []search.Float32s
	mags   []float32
	chunks map[string]Chunk
}

func GeometryFile(indexName string) string { return indexName + GeometryExt }

func MetadataFile(indexName string) string { return indexName + MetadataExt }

// Load reads {localDir}/{indexName}.faiss and {localDir}/{indexName}.pkl.
// Both must exist and every vector id must resolve to a metadata document.
func Load(indexName, localDir string) (*Index, error) {
	geomPath := filepath.Join(localDir, GeometryFile(indexName))
	metaPath := filepath.Join(localDir, MetadataFile(indexName))

	for _, p := range []string{geomPath, metaPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, &IndexLoadError{Path: p, Err: err}
		}
	}

	geom, err := os.ReadFile(geomPath)
	if err != nil {
		return nil, &IndexLoadError{Path: geomPath, Err: err}
	}
	dim, ids, vecs, err := decodeGeometry(geom)
	if err != nil {
		return nil, &IndexLoadError{Path: geomPath, Err: err}
	}

	meta, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, &IndexLoadError{Path: metaPath, Err: err}
	}
	chunks, err := decodeMetadata(meta)
	if err != nil {
		return nil, &IndexLoadError{Path: metaPath, Err: err}
	}

	for _, id := range ids {
		if _, ok := chunks[id]; !ok {
			return nil, &IndexLoadError{Path: metaPath, Err: fmt.Errorf("no document for vector id %q", id)}
		}
	}

	idx := &Index{
		name:   indexName,
		dim:    dim,
		ids:    ids,
		vecs:   make([]search.Float32s, len(vecs)),
		mags:   make([]float32, len(vecs)),
		chunks: chunks,
	}
	for i, v := range vecs {
		idx.vecs[i] = search.Float32s(v)
		idx.mags[i] = idx.vecs[i].Magnitude()
	}

	return idx, nil
}

func (x *Index) Name() string { return x.name }

func (x *Index) Len() int { return len(x.ids) }

func (x *Index) Dimension() int { return x.dim }

// Search returns up to k chunks ordered by non-increasing cosine similarity.
// Ties keep snapshot order.
func (x *Index) Search(query []float32, k int) ([]ScoredChunk, error) {
	if k <= 0 || len(x.ids) == 0 {
		return []ScoredChunk{}, nil
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), x.dim)
	}

	q := search.Float32s(query)
	qm := q.Magnitude()
	if qm == 0 {
		return []ScoredChunk{}, nil
	}

	type scored struct {
		pos   int
		score float64
	}
	scores := make([]scored, 0, len(x.vecs))
	for i, v := range x.vecs {
		if x.mags[i] == 0 {
			continue
		}
		dist := q.CosineDistance(v)
		scores = append(scores, scored{pos: i, score: 1 - float64(dist)})
	}
	sort.SliceStable(scores, func(a, b int) bool { return scores[a].score > scores[b].score })

	if k > len(scores) {
		k = len(scores)
	}
	out := make([]ScoredChunk, k)
	for i := 0; i < k; i++ {
		chunk := x.chunks[x.ids[scores[i].pos]]
		out[i] = ScoredChunk{Chunk: chunk, Score: scores[i].score}
	}
	return out, nil
}
