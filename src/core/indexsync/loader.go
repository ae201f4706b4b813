package indexsync

import (
	"context"
	"errors"
	"path/filepath"

	"ragbot/src/core/objectstore"
	"ragbot/src/core/vectorindex"
	"ragbot/src/fsutil"
	"ragbot/src/log"
)

// Policy decides when the index pair is fetched from the bucket
type Policy int

const (
	// AlwaysFresh downloads and parses the pair on every call
	AlwaysFresh Policy = iota
)

// Downloader is satisfied by *objectstore.Client
type Downloader interface {
	Download(ctx context.Context, key, destinationPath string) error
}

// Loader fetches the current index snapshot from object storage
type Loader struct {
	store      Downloader
	fs         fsutil.FileStore
	scratchDir string
	indexName  string
	policy     Policy
}

func NewLoader(store Downloader, fs fsutil.FileStore, scratchDir, indexName string) *Loader {
	if indexName == "" {
		indexName = vectorindex.DefaultName
	}
	return &Loader{
		store:      store,
		fs:         fs,
		scratchDir: scratchDir,
		indexName:  indexName,
		policy:     AlwaysFresh,
	}
}

func (l *Loader) IndexName() string { return l.indexName }

func (l *Loader) Policy() Policy { return l.policy }

// Load downloads both artifacts into a private scratch directory and parses
// them. A missing artifact is reported as *vectorindex.IndexLoadError; other
// storage failures are returned as *objectstore.StorageError.
func (l *Loader) Load(ctx context.Context) (*vectorindex.Index, error) {
	dir, err := l.fs.MakeTempDirectory(l.scratchDir, "index-*")
	if err != nil {
		return nil, &vectorindex.IndexLoadError{Path: l.scratchDir, Err: err}
	}
	defer func() {
		if err := l.fs.RemoveAll(dir); err != nil {
			log.Error(err, "failed to remove index scratch directory", "dir", dir)
		}
	}()

	for _, key := range []string{vectorindex.GeometryFile(l.indexName), vectorindex.MetadataFile(l.indexName)} {
		dest := filepath.Join(dir, key)
		if err := l.store.Download(ctx, key, dest); err != nil {
			if errors.Is(err, objectstore.ErrObjectNotFound) {
				return nil, &vectorindex.IndexLoadError{Path: key, Err: err}
			}
			return nil, err
		}
	}

	idx, err := vectorindex.Load(l.indexName, dir)
	if err != nil {
		return nil, err
	}
	log.Debug("loaded index", "name", l.indexName, "chunks", idx.Len())
	return idx, nil
}
