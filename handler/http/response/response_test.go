package response_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"ragbot/handler/http/response"
	"ragbot/src/core/admin"
	"ragbot/src/core/answer"
	"ragbot/src/core/objectstore"
	"ragbot/src/core/provider"
	"ragbot/src/core/vectorindex"
)

func TestClassify(t *testing.T) {
	notFound := &objectstore.StorageError{Op: "download", Key: "my_faiss.pkl", Err: objectstore.ErrObjectNotFound}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "index load wrapping storage", err: &vectorindex.IndexLoadError{Path: "my_faiss.pkl", Err: notFound}, wantStatus: http.StatusServiceUnavailable, wantCode: response.CodeIndexUnavailable},
		{name: "storage", err: &objectstore.StorageError{Op: "list", Err: errors.New("refused")}, wantStatus: http.StatusBadGateway, wantCode: response.CodeStorageError},
		{name: "wrapped provider", err: fmt.Errorf("failed to embed question: %w", &provider.ProviderError{Provider: "bedrock", Op: "embed", Err: errors.New("x")}), wantStatus: http.StatusBadGateway, wantCode: response.CodeProviderError},
		{name: "empty question", err: answer.ErrEmptyQuestion, wantStatus: http.StatusBadRequest, wantCode: response.CodeBadRequest},
		{name: "unsupported upload", err: fmt.Errorf("%w: \".exe\"", admin.ErrUnsupportedFileType), wantStatus: http.StatusBadRequest, wantCode: response.CodeBadRequest},
		{name: "other", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: response.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := response.Classify(tt.err)
			if status != tt.wantStatus || code != tt.wantCode {
				t.Errorf("Classify() = (%d, %s), want (%d, %s)", status, code, tt.wantStatus, tt.wantCode)
			}
		})
	}
}
