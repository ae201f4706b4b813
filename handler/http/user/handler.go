package user

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ragbot/handler/http/middleware"
	"ragbot/handler/http/response"
	"ragbot/handler/http/web"
	"ragbot/src/core/answer"
	"ragbot/src/core/auth"
	"ragbot/src/core/querylog"
	"ragbot/src/core/session"
	"ragbot/src/core/vectorindex"
	"ragbot/src/log"
)

const loginFailedMessage = "Incorrect username or password."

// IndexLoader is satisfied by *indexsync.Loader
type IndexLoader interface {
	Load(ctx context.Context) (*vectorindex.Index, error)
}

// Answerer is satisfied by *answer.Pipeline
type Answerer interface {
	Answer(ctx context.Context, question string, index answer.Retriever) (string, error)
}

// TokenIssuer is satisfied by *auth.Handoff
type TokenIssuer interface {
	Issue(username string) (string, error)
}

type Handler struct {
	index    IndexLoader
	pipeline Answerer
	verifier auth.Verifier
	handoff  TokenIssuer
	logs     querylog.Store
	adminURL string
	health   map[string]response.Pinger
}

func NewHandler(index IndexLoader, pipeline Answerer, verifier auth.Verifier, handoff TokenIssuer, logs querylog.Store, adminURL string, health map[string]response.Pinger) *Handler {
	return &Handler{
		index:    index,
		pipeline: pipeline,
		verifier: verifier,
		handoff:  handoff,
		logs:     logs,
		adminURL: adminURL,
		health:   health,
	}
}

// RegisterRoutes registers the chatbot pages and JSON API
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.Home)
	r.POST("/ask", h.Ask)
	r.POST("/nav/admin", h.navigate(session.PageAdmin))
	r.POST("/nav/chatbot", h.navigate(session.PageChatbot))
	r.POST("/login", h.Login)
	r.GET("/health", response.Health(h.health))

	v1 := r.Group("/api/v1")
	v1.POST("/ask", h.AskJSON)
}

type chatbotPage struct {
	Title      string
	IndexReady bool
	Question   string
	Answer     string
	Notices    []web.Notice
}

type loginPage struct {
	Title   string
	Notices []web.Notice
}

func (h *Handler) Home(c *gin.Context) {
	if middleware.CurrentSession(c).Page == session.PageAdmin {
		c.HTML(http.StatusOK, "login.html", loginPage{Title: "Admin Login"})
		return
	}

	page := chatbotPage{Title: "AI-Powered Chatbot"}
	if _, err := h.index.Load(c.Request.Context()); err != nil {
		status, _ := response.Classify(err)
		_ = c.Error(err)
		page.Notices = append(page.Notices, web.Error(response.Message(err)))
		c.HTML(status, "chatbot.html", page)
		return
	}
	page.IndexReady = true
	c.HTML(http.StatusOK, "chatbot.html", page)
}

// Ask re-downloads the index and answers the submitted question
func (h *Handler) Ask(c *gin.Context) {
	question := strings.TrimSpace(c.PostForm("question"))
	page := chatbotPage{Title: "AI-Powered Chatbot", Question: question}

	idx, err := h.index.Load(c.Request.Context())
	if err != nil {
		status, _ := response.Classify(err)
		_ = c.Error(err)
		page.Notices = append(page.Notices, web.Error(response.Message(err)))
		c.HTML(status, "chatbot.html", page)
		return
	}
	page.IndexReady = true

	text, err := h.answer(c.Request.Context(), question, idx)
	if err != nil {
		status, _ := response.Classify(err)
		_ = c.Error(err)
		page.Notices = append(page.Notices, web.Error(response.Message(err)))
		c.HTML(status, "chatbot.html", page)
		return
	}

	page.Answer = text
	c.HTML(http.StatusOK, "chatbot.html", page)
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

func (h *Handler) AskJSON(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendBadRequest(c, err.Error())
		return
	}

	idx, err := h.index.Load(c.Request.Context())
	if err != nil {
		response.SendError(c, err)
		return
	}

	text, err := h.answer(c.Request.Context(), req.Question, idx)
	if err != nil {
		response.SendError(c, err)
		return
	}
	response.SendJSON(c, http.StatusOK, askResponse{Answer: text})
}

func (h *Handler) answer(ctx context.Context, question string, idx *vectorindex.Index) (string, error) {
	text, err := h.pipeline.Answer(ctx, question, idx)

	status := querylog.StatusSuccess
	if err != nil {
		status = querylog.StatusError
	}
	if question != "" {
		entry := querylog.Entry{Timestamp: time.Now(), Question: question, Status: status}
		if rerr := h.logs.Record(ctx, entry); rerr != nil {
			log.Error(rerr, "failed to record query")
		}
	}
	return text, err
}

func (h *Handler) navigate(page string) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.CurrentSession(c).Page = page
		c.Redirect(http.StatusSeeOther, "/")
	}
}

// Login authorizes the session and hands the browser over to the admin host
func (h *Handler) Login(c *gin.Context) {
	s := middleware.CurrentSession(c)
	result, err := h.verifier.VerifyCredentials(c.PostForm("username"), c.PostForm("password"))
	if err != nil || !result.Authorized {
		s.IsAdmin = false
		c.HTML(http.StatusUnauthorized, "login.html", loginPage{
			Title:   "Admin Login",
			Notices: []web.Notice{web.Error(loginFailedMessage)},
		})
		return
	}

	s.IsAdmin = true
	token, err := h.handoff.Issue(result.Username)
	if err != nil {
		log.Error(err, "failed to issue hand-off token")
		c.HTML(http.StatusInternalServerError, "login.html", loginPage{
			Title:   "Admin Login",
			Notices: []web.Notice{web.Error("Login succeeded but the admin console could not be opened.")},
		})
		return
	}

	log.Info("admin logged in", "user", result.Username)
	c.Redirect(http.StatusSeeOther, handoffURL(h.adminURL, token))
}

func handoffURL(adminURL, token string) string {
	return strings.TrimRight(adminURL, "/") + "/auth/handoff?token=" + url.QueryEscape(token)
}
