package objectstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"ragbot/src/fsutil"
	"ragbot/src/log"
)

// ErrObjectNotFound is returned by buckets when the requested key does not exist
var ErrObjectNotFound = errors.New("object not found")

// Bucket is a flat key/blob store. Implementations live under src/storage.
type Bucket interface {
	// PutFile transfers the local file at filePath to the bucket under key
	PutFile(ctx context.Context, key, filePath string) error
	// List returns every key in the bucket in store-native order
	List(ctx context.Context) ([]string, error)
	// GetFile downloads key to filePath. Missing keys wrap ErrObjectNotFound.
	GetFile(ctx context.Context, key, filePath string) error
	// Ping checks that the bucket is reachable
	Ping(ctx context.Context) error
}

// StorageError reports a failed object store operation
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// StoredDocument is a source document persisted in the bucket
type StoredDocument struct {
	Key          string `json:"key"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
}

// Client stages files through the local scratch directory and moves them
// to and from the bucket.
type Client struct {
	bucket     Bucket
	fs         fsutil.FileStore
	scratchDir string
	newID      func() string
}

func NewClient(bucket Bucket, fs fsutil.FileStore, scratchDir string) *Client {
	return &Client{
		bucket:     bucket,
		fs:         fs,
		scratchDir: scratchDir,
		newID:      uuid.NewString,
	}
}

// StoredKey builds the bucket key for an uploaded file
func StoredKey(id, originalName string) string {
	return fmt.Sprintf("%s_%s", id, originalName)
}

// Upload stores data under "{uuid}_{originalName}". The bytes are written to
// the scratch directory first and then transferred to the bucket.
func (c *Client) Upload(ctx context.Context, data []byte, originalName string) (*StoredDocument, error) {
	name := filepath.Base(strings.TrimSpace(originalName))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, &StorageError{Op: "upload", Err: fmt.Errorf("invalid file name %q", originalName)}
	}

	key := StoredKey(c.newID(), name)
	scratchPath := filepath.Join(c.scratchDir, key)
	if err := c.fs.WriteFile(scratchPath, data); err != nil {
		return nil, &StorageError{Op: "upload", Key: key, Err: fmt.Errorf("failed to stage file: %w", err)}
	}
	defer func() {
		if err := c.fs.RemoveAll(scratchPath); err != nil {
			log.Error(err, "failed to remove staged upload", "path", scratchPath)
		}
	}()

	if err := c.bucket.PutFile(ctx, key, scratchPath); err != nil {
		return nil, &StorageError{Op: "upload", Key: key, Err: err}
	}

	log.Info("uploaded document", "key", key, "size", len(data))
	return &StoredDocument{
		Key:          key,
		OriginalName: name,
		Size:         int64(len(data)),
	}, nil
}

// PutArtifact stores a local file under an exact key. Only the index
// publisher uses it; document uploads go through Upload.
func (c *Client) PutArtifact(ctx context.Context, key, localPath string) error {
	if err := c.bucket.PutFile(ctx, key, localPath); err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// List returns all keys currently in the bucket
func (c *Client) List(ctx context.Context) ([]string, error) {
	keys, err := c.bucket.List(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	return keys, nil
}

// Download fetches key into destinationPath
func (c *Client) Download(ctx context.Context, key, destinationPath string) error {
	if err := c.fs.MakeDirectory(filepath.Dir(destinationPath)); err != nil {
		return &StorageError{Op: "download", Key: key, Err: fmt.Errorf("failed to prepare scratch directory: %w", err)}
	}
	if err := c.bucket.GetFile(ctx, key, destinationPath); err != nil {
		return &StorageError{Op: "download", Key: key, Err: err}
	}
	return nil
}

// Ping checks bucket connectivity
func (c *Client) Ping(ctx context.Context) error {
	if err := c.bucket.Ping(ctx); err != nil {
		return &StorageError{Op: "ping", Err: err}
	}
	return nil
}
