package admin

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"

	"ragbot/src/core/objectstore"
	"ragbot/src/core/querylog"
	"ragbot/src/core/vectorindex"
	"ragbot/src/log"
)

// Outcome tags the result of an index control
type Outcome string

const (
	OutcomeSucceeded      Outcome = "succeeded"
	OutcomeFailed         Outcome = "failed"
	OutcomeNotImplemented Outcome = "not_implemented"
)

const RebuildPlaceholderMessage = "Rebuilding the index... (This is a placeholder)"

var ErrUnsupportedFileType = errors.New("unsupported file type")

// AllowedExtensions lists the upload types accepted by the console
var AllowedExtensions = []string{".pdf", ".txt", ".csv"}

// Result is shown as a notice on the console
type Result struct {
	Outcome Outcome `json:"status"`
	Message string  `json:"message"`
}

// DocumentStore is satisfied by *objectstore.Client
type DocumentStore interface {
	Upload(ctx context.Context, data []byte, originalName string) (*objectstore.StoredDocument, error)
	List(ctx context.Context) ([]string, error)
}

// IndexLoader is satisfied by *indexsync.Loader
type IndexLoader interface {
	Load(ctx context.Context) (*vectorindex.Index, error)
}

type Service struct {
	docs   DocumentStore
	index  IndexLoader
	logs   querylog.Store
	logger logr.Logger
}

func NewService(docs DocumentStore, index IndexLoader, logs querylog.Store) *Service {
	return &Service{
		docs:   docs,
		index:  index,
		logs:   logs,
		logger: log.WithName("admin"),
	}
}

// Upload stores a source document if its extension is allowed
func (s *Service) Upload(ctx context.Context, data []byte, originalName string) (*objectstore.StoredDocument, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	allowed := false
	for _, a := range AllowedExtensions {
		if ext == a {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, ext)
	}

	doc, err := s.docs.Upload(ctx, data, originalName)
	if err != nil {
		return nil, err
	}
	s.logger.Info("document uploaded", "key", doc.Key)
	return doc, nil
}

func (s *Service) ListFiles(ctx context.Context) ([]string, error) {
	return s.docs.List(ctx)
}

// ReloadIndex re-runs the download and load step and reports the outcome
func (s *Service) ReloadIndex(ctx context.Context) Result {
	idx, err := s.index.Load(ctx)
	if err != nil {
		s.logger.Error(err, "index reload failed")
		return Result{Outcome: OutcomeFailed, Message: fmt.Sprintf("Failed to reload index: %v", err)}
	}
	return Result{
		Outcome: OutcomeSucceeded,
		Message: fmt.Sprintf("Index reloaded successfully (%d chunks).", idx.Len()),
	}
}

// RebuildIndex is a placeholder. It never fails and never touches the
// stored index artifacts.
func (s *Service) RebuildIndex(ctx context.Context) Result {
	s.logger.Info("index rebuild requested")
	return Result{Outcome: OutcomeNotImplemented, Message: RebuildPlaceholderMessage}
}

func (s *Service) QueryLogs(ctx context.Context) ([]querylog.Entry, error) {
	return s.logs.List(ctx)
}
