package publish

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"ragbot/src/core/provider"
	"ragbot/src/core/vectorindex"
	"ragbot/src/fsutil"
	"ragbot/src/log"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

// Store is satisfied by *objectstore.Client
type Store interface {
	List(ctx context.Context) ([]string, error)
	Download(ctx context.Context, key, destinationPath string) error
	PutArtifact(ctx context.Context, key, localPath string) error
}

// Progress receives one tick per embedded chunk. *progressbar.ProgressBar satisfies it.
type Progress interface {
	Add(num int) error
}

type noProgress struct{}

func (noProgress) Add(int) error { return nil }

// Publisher builds an index pair from source documents and uploads it
type Publisher struct {
	store      Store
	embedder   provider.Embedder
	fs         fsutil.FileStore
	scratchDir string
	indexName  string
	splitter   textsplitter.TextSplitter
}

type Option func(*Publisher)

func WithChunking(size, overlap int) Option {
	return func(p *Publisher) {
		p.splitter = textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		)
	}
}

func NewPublisher(store Store, embedder provider.Embedder, fs fsutil.FileStore, scratchDir, indexName string, opts ...Option) *Publisher {
	if indexName == "" {
		indexName = vectorindex.DefaultName
	}
	p := &Publisher{
		store:      store,
		embedder:   embedder,
		fs:         fs,
		scratchDir: scratchDir,
		indexName:  indexName,
	}
	WithChunking(DefaultChunkSize, DefaultChunkOverlap)(p)
	for _, o := range opts {
		o(p)
	}
	return p
}

// Summary describes a published snapshot
type Summary struct {
	IndexName string
	Documents int
	Chunks    int
}

// SourceKeys returns the bucket keys the publisher can index, skipping the
// index artifacts themselves and unsupported types.
func (p *Publisher) SourceKeys(ctx context.Context) ([]string, error) {
	keys, err := p.store.List(ctx)
	if err != nil {
		return nil, err
	}

	artifacts := map[string]bool{
		vectorindex.GeometryFile(p.indexName): true,
		vectorindex.MetadataFile(p.indexName): true,
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if artifacts[k] {
			continue
		}
		switch strings.ToLower(filepath.Ext(k)) {
		case ".txt", ".csv", ".pdf":
			out = append(out, k)
		}
	}
	return out, nil
}

// Chunks downloads the given bucket keys and local paths, extracts and splits them
func (p *Publisher) Chunks(ctx context.Context, keys, localPaths []string) ([]vectorindex.Chunk, int, error) {
	dir, err := p.fs.MakeTempDirectory(p.scratchDir, "publish-*")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer func() {
		if err := p.fs.RemoveAll(dir); err != nil {
			log.Error(err, "failed to remove publish scratch directory", "dir", dir)
		}
	}()

	type source struct{ name, path string }
	sources := make([]source, 0, len(keys)+len(localPaths))
	for i, key := range keys {
		// keys come from the bucket; only the base name may reach the scratch path
		dest := filepath.Join(dir, fmt.Sprintf("%d_%s", i, filepath.Base(key)))
		if err := p.store.Download(ctx, key, dest); err != nil {
			return nil, 0, err
		}
		sources = append(sources, source{name: key, path: dest})
	}
	for _, lp := range localPaths {
		sources = append(sources, source{name: filepath.Base(lp), path: lp})
	}

	if count, size, err := p.fs.GetFileStats(dir); err == nil {
		log.Info("downloaded source documents", "files", count, "bytes", size)
	}

	var chunks []vectorindex.Chunk
	documents := 0
	for _, src := range sources {
		data, err := p.fs.ReadFile(src.path)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read %s: %w", src.path, err)
		}
		docs, err := Extract(src.name, data)
		if err != nil {
			return nil, 0, err
		}
		for _, d := range docs {
			documents++
			parts, err := p.splitter.SplitText(d.Text)
			if err != nil {
				return nil, 0, fmt.Errorf("failed to split %s: %w", src.name, err)
			}
			for _, part := range parts {
				if strings.TrimSpace(part) == "" {
					continue
				}
				chunks = append(chunks, vectorindex.Chunk{
					ID:       fmt.Sprintf("%s#%d", src.name, len(chunks)),
					Text:     part,
					Metadata: map[string]string{"source": src.name},
				})
			}
		}
	}
	return chunks, documents, nil
}

// Publish embeds every chunk, writes the index pair and uploads the
// geometry followed by the metadata.
func (p *Publisher) Publish(ctx context.Context, keys, localPaths []string, progress Progress) (*Summary, error) {
	if progress == nil {
		progress = noProgress{}
	}

	chunks, documents, err := p.Chunks(ctx, keys, localPaths)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no text found in %d source documents", documents)
	}

	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		vec, err := p.embedder.Embed(ctx, c.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunk %s: %w", c.ID, err)
		}
		vectors[i] = vec
		_ = progress.Add(1)
	}

	outDir, err := p.fs.MakeTempDirectory(p.scratchDir, "snapshot-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	defer func() {
		if err := p.fs.RemoveAll(outDir); err != nil {
			log.Error(err, "failed to remove snapshot directory", "dir", outDir)
		}
	}()

	if err := vectorindex.WriteSnapshot(outDir, p.indexName, chunks, vectors); err != nil {
		return nil, err
	}

	// geometry first, then metadata
	for _, name := range []string{vectorindex.GeometryFile(p.indexName), vectorindex.MetadataFile(p.indexName)} {
		if err := p.store.PutArtifact(ctx, name, filepath.Join(outDir, name)); err != nil {
			return nil, err
		}
	}

	log.Info("published index", "name", p.indexName, "documents", documents, "chunks", len(chunks))
	return &Summary{IndexName: p.indexName, Documents: documents, Chunks: len(chunks)}, nil
}
