package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ragbot/src/core/admin"
	"ragbot/src/core/answer"
	"ragbot/src/core/objectstore"
	"ragbot/src/core/provider"
	"ragbot/src/core/vectorindex"
)

const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeStorageError     = "STORAGE_ERROR"
	CodeProviderError    = "PROVIDER_ERROR"
	CodeIndexUnavailable = "INDEX_UNAVAILABLE"
	CodeInternalError    = "INTERNAL_ERROR"
)

// Common error response structure
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Classify maps an error to its HTTP status and response code
func Classify(err error) (int, string) {
	var (
		loadErr     *vectorindex.IndexLoadError
		storageErr  *objectstore.StorageError
		providerErr *provider.ProviderError
	)
	switch {
	case errors.As(err, &loadErr):
		return http.StatusServiceUnavailable, CodeIndexUnavailable
	case errors.As(err, &providerErr):
		return http.StatusBadGateway, CodeProviderError
	case errors.As(err, &storageErr):
		return http.StatusBadGateway, CodeStorageError
	case errors.Is(err, answer.ErrEmptyQuestion), errors.Is(err, admin.ErrUnsupportedFileType):
		return http.StatusBadRequest, CodeBadRequest
	default:
		return http.StatusInternalServerError, CodeInternalError
	}
}

func SendError(c *gin.Context, err error) {
	status, code := Classify(err)
	_ = c.Error(err)
	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}

func SendBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: CodeBadRequest, Message: message})
}

func SendUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, ErrorResponse{Code: CodeUnauthorized, Message: "admin login required"})
}

func SendJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// Message renders err as the inline notice shown on HTML pages
func Message(err error) string {
	_, code := Classify(err)
	switch code {
	case CodeIndexUnavailable:
		return "The index is currently unavailable. Please try again later."
	case CodeProviderError:
		return "The language model service failed to respond: " + err.Error()
	case CodeStorageError:
		return "Object storage is unreachable: " + err.Error()
	default:
		return err.Error()
	}
}

const (
	StatusUp   = "up"
	StatusDown = "down"
)

type ComponentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type HealthStatus struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
}

// Pinger is anything whose reachability can be checked
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports every component as up or down; any down component makes
// the whole service unhealthy with status 503.
func Health(components map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := HealthStatus{Status: "healthy", Components: make(map[string]ComponentStatus, len(components))}
		for name, p := range components {
			if err := p.Ping(c.Request.Context()); err != nil {
				status.Status = "unhealthy"
				status.Components[name] = ComponentStatus{Status: StatusDown, Message: err.Error()}
				continue
			}
			status.Components[name] = ComponentStatus{Status: StatusUp}
		}

		code := http.StatusOK
		if status.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		SendJSON(c, code, status)
	}
}
