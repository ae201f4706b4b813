package admin

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ragbot/handler/http/middleware"
	"ragbot/handler/http/response"
	"ragbot/handler/http/web"
	coreadmin "ragbot/src/core/admin"
	"ragbot/src/core/objectstore"
	"ragbot/src/core/querylog"
	"ragbot/src/log"
)

// Console is satisfied by *admin.Service
type Console interface {
	Upload(ctx context.Context, data []byte, originalName string) (*objectstore.StoredDocument, error)
	ListFiles(ctx context.Context) ([]string, error)
	ReloadIndex(ctx context.Context) coreadmin.Result
	RebuildIndex(ctx context.Context) coreadmin.Result
	QueryLogs(ctx context.Context) ([]querylog.Entry, error)
}

// TokenVerifier is satisfied by *auth.Handoff
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type Handler struct {
	console Console
	handoff TokenVerifier
	userURL string
	health  map[string]response.Pinger
}

func NewHandler(console Console, handoff TokenVerifier, userURL string, health map[string]response.Pinger) *Handler {
	return &Handler{
		console: console,
		handoff: handoff,
		userURL: userURL,
		health:  health,
	}
}

// RegisterRoutes registers the console pages and JSON API
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/auth/handoff", h.Handoff)
	r.GET("/health", response.Health(h.health))

	pages := r.Group("/", middleware.RequireAdmin(h.denied))
	pages.GET("/", h.Dashboard)
	pages.POST("/files", h.UploadFile)
	pages.POST("/index/reload", h.ReloadIndex)
	pages.POST("/index/rebuild", h.RebuildIndex)

	v1 := r.Group("/api/v1", middleware.RequireAdmin(response.SendUnauthorized))
	v1.GET("/files", h.ListFilesJSON)
	v1.POST("/files", h.UploadFileJSON)
	v1.POST("/index/reload", h.ReloadIndexJSON)
	v1.POST("/index/rebuild", h.RebuildIndexJSON)
	v1.GET("/logs", h.QueryLogsJSON)
}

type dashboardPage struct {
	Title      string
	UserURL    string
	Notices    []web.Notice
	Files      []string
	FilesError string
	Logs       []querylog.Entry
}

func (h *Handler) denied(c *gin.Context) {
	c.HTML(http.StatusForbidden, "denied.html", dashboardPage{
		Title:   "Admin Login Required",
		UserURL: h.userURL,
		Notices: []web.Notice{web.Error("You are not logged in as admin.")},
	})
}

// Handoff accepts the token issued by the user host after a successful login
func (h *Handler) Handoff(c *gin.Context) {
	username, err := h.handoff.Verify(c.Query("token"))
	if err != nil {
		log.Error(err, "rejected hand-off token")
		h.denied(c)
		return
	}

	middleware.CurrentSession(c).IsAdmin = true
	log.Info("admin session opened", "user", username)
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) Dashboard(c *gin.Context) {
	h.render(c, http.StatusOK)
}

func (h *Handler) render(c *gin.Context, status int, notices ...web.Notice) {
	ctx := c.Request.Context()
	page := dashboardPage{
		Title:   "Admin Dashboard",
		UserURL: h.userURL,
		Notices: notices,
	}

	files, err := h.console.ListFiles(ctx)
	if err != nil {
		_ = c.Error(err)
		page.FilesError = response.Message(err)
	}
	page.Files = files

	logs, err := h.console.QueryLogs(ctx)
	if err != nil {
		_ = c.Error(err)
		page.Notices = append(page.Notices, web.Error("Failed to load query logs: "+err.Error()))
	}
	page.Logs = logs

	c.HTML(status, "admin.html", page)
}

func (h *Handler) readUpload(c *gin.Context) (*objectstore.StoredDocument, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("missing file: %w", err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return h.console.Upload(c.Request.Context(), data, fh.Filename)
}

func (h *Handler) UploadFile(c *gin.Context) {
	doc, err := h.readUpload(c)
	if err != nil {
		status, _ := response.Classify(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		_ = c.Error(err)
		h.render(c, status, web.Error(response.Message(err)))
		return
	}
	h.render(c, http.StatusOK, web.Success(fmt.Sprintf("File `%s` uploaded successfully!", doc.Key)))
}

func (h *Handler) ReloadIndex(c *gin.Context) {
	res := h.console.ReloadIndex(c.Request.Context())
	if res.Outcome == coreadmin.OutcomeFailed {
		h.render(c, http.StatusOK, web.Error(res.Message))
		return
	}
	h.render(c, http.StatusOK, web.Success(res.Message))
}

func (h *Handler) RebuildIndex(c *gin.Context) {
	res := h.console.RebuildIndex(c.Request.Context())
	h.render(c, http.StatusOK, web.Info(res.Message))
}

func (h *Handler) ListFilesJSON(c *gin.Context) {
	files, err := h.console.ListFiles(c.Request.Context())
	if err != nil {
		response.SendError(c, err)
		return
	}
	response.SendJSON(c, http.StatusOK, gin.H{"files": files})
}

func (h *Handler) UploadFileJSON(c *gin.Context) {
	doc, err := h.readUpload(c)
	if err != nil {
		if status, _ := response.Classify(err); status == http.StatusInternalServerError {
			response.SendBadRequest(c, err.Error())
			return
		}
		response.SendError(c, err)
		return
	}
	response.SendJSON(c, http.StatusCreated, doc)
}

func (h *Handler) ReloadIndexJSON(c *gin.Context) {
	res := h.console.ReloadIndex(c.Request.Context())
	status := http.StatusOK
	if res.Outcome == coreadmin.OutcomeFailed {
		status = http.StatusServiceUnavailable
	}
	response.SendJSON(c, status, res)
}

func (h *Handler) RebuildIndexJSON(c *gin.Context) {
	response.SendJSON(c, http.StatusAccepted, h.console.RebuildIndex(c.Request.Context()))
}

func (h *Handler) QueryLogsJSON(c *gin.Context) {
	logs, err := h.console.QueryLogs(c.Request.Context())
	if err != nil {
		response.SendError(c, err)
		return
	}
	response.SendJSON(c, http.StatusOK, gin.H{"logs": logs})
}
