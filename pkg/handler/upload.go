package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/devsapp/ripeness-uploader/pkg/config"
	"github.com/devsapp/ripeness-uploader/pkg/log"
	"github.com/devsapp/ripeness-uploader/pkg/module"
	"github.com/devsapp/ripeness-uploader/pkg/preview"
	"github.com/devsapp/ripeness-uploader/pkg/upload"
	"github.com/gin-gonic/gin"
)

const defaultHistoryLimit = 20

type UploadHandler struct {
	sessions *SessionManager
	previews *preview.Store
	// nil when history is disabled
	history       *module.HistoryManager
	metrics       *Metrics
	modelSelector bool
}

func NewUploadHandler(sessions *SessionManager, previews *preview.Store, history *module.HistoryManager,
	metrics *Metrics) *UploadHandler {
	return &UploadHandler{
		sessions:      sessions,
		previews:      previews,
		history:       history,
		metrics:       metrics,
		modelSelector: config.ConfigGlobal.ModelSelectorEnabled(),
	}
}

// RegisterHandlers bind the page, form and api routes
func RegisterHandlers(router *gin.Engine, h *UploadHandler) {
	router.GET("/", h.Index)
	router.POST("/select", h.SelectForm)
	router.POST("/upload", h.UploadForm)
	router.POST("/model", h.ModelForm)

	api := router.Group("/api")
	api.GET("/state", h.GetState)
	api.POST("/file", h.SelectFile)
	api.POST("/upload", h.Upload)
	api.PUT("/model", h.SetModel)
	api.DELETE("/session", h.DeleteSession)
	api.GET("/history", h.ListHistory)
	api.GET("/history/:id", h.GetHistory)

	router.GET(preview.URLPrefix+":id", h.GetPreview)
	router.GET("/health", h.Health)
	if h.metrics != nil {
		router.GET("/metrics", h.metrics.Handler())
	}
}

type pageData struct {
	State         upload.State
	ModelSelector bool
	Models        []string
}

type modelRequest struct {
	Model string `json:"model" form:"model" binding:"required"`
}

// Index render the upload page of the session
func (h *UploadHandler) Index(c *gin.Context) {
	s := h.sessions.Get(c)
	c.HTML(http.StatusOK, indexTemplate, &pageData{
		State:         s.ctrl.State(),
		ModelSelector: h.modelSelector,
		Models:        config.Models,
	})
}

// SelectForm select the posted file then back to the page
func (h *UploadHandler) SelectForm(c *gin.Context) {
	s := h.sessions.Get(c)
	h.selectFile(c, s)
	c.Redirect(http.StatusSeeOther, "/")
}

// UploadForm send the selected file and wait for the result, then back to the page
func (h *UploadHandler) UploadForm(c *gin.Context) {
	s := h.sessions.Get(c)
	if _, err := s.ctrl.Upload(detach(c)); err != nil {
		log.WithRequest(c).WithField("session", s.id).Infof("upload ignored: %s", err.Error())
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// ModelForm switch the model then back to the page
func (h *UploadHandler) ModelForm(c *gin.Context) {
	s := h.sessions.Get(c)
	request := new(modelRequest)
	if err := c.ShouldBind(request); err == nil {
		if _, err := s.ctrl.SetModel(request.Model); err != nil {
			log.WithRequest(c).WithField("session", s.id).Warnf("set model %s err=%s", request.Model, err.Error())
		}
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *UploadHandler) GetState(c *gin.Context) {
	s := h.sessions.Get(c)
	c.JSON(http.StatusOK, s.ctrl.State())
}

func (h *UploadHandler) SelectFile(c *gin.Context) {
	s := h.sessions.Get(c)
	state, err := h.selectFile(c, s)
	if err != nil {
		h.controllerError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *UploadHandler) Upload(c *gin.Context) {
	s := h.sessions.Get(c)
	state, err := s.ctrl.Upload(detach(c))
	if err != nil {
		h.controllerError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *UploadHandler) SetModel(c *gin.Context) {
	s := h.sessions.Get(c)
	request := new(modelRequest)
	if err := c.ShouldBindJSON(request); err != nil {
		handleError(c, http.StatusBadRequest, config.BADREQUEST)
		return
	}
	state, err := s.ctrl.SetModel(request.Model)
	if err != nil {
		h.controllerError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *UploadHandler) DeleteSession(c *gin.Context) {
	if id, err := c.Cookie(config.SESSION_COOKIE); err == nil {
		h.sessions.Delete(id)
	}
	c.SetCookie(config.SESSION_COOKIE, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

func (h *UploadHandler) ListHistory(c *gin.Context) {
	if h.history == nil {
		handleError(c, http.StatusNotFound, "history disabled")
		return
	}
	limit := defaultHistoryLimit
	if val := c.Query("limit"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			handleError(c, http.StatusBadRequest, config.BADREQUEST)
			return
		}
		limit = n
	}
	attempts, err := h.history.List(limit)
	if err != nil {
		log.WithRequest(c).Errorf("list history err=%s", err.Error())
		handleError(c, http.StatusInternalServerError, config.INTERNALERROR)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}

func (h *UploadHandler) GetHistory(c *gin.Context) {
	if h.history == nil {
		handleError(c, http.StatusNotFound, "history disabled")
		return
	}
	attempt, err := h.history.Get(c.Param("id"))
	if err != nil {
		log.WithRequest(c).Errorf("get history err=%s", err.Error())
		handleError(c, http.StatusInternalServerError, config.INTERNALERROR)
		return
	}
	if attempt == nil {
		handleError(c, http.StatusNotFound, config.NOTFOUND)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

// GetPreview serve a live preview, revoked ones are gone
func (h *UploadHandler) GetPreview(c *gin.Context) {
	item, ok := h.previews.Get(c.Param("id"))
	if !ok {
		handleError(c, http.StatusNotFound, config.NOTFOUND)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, item.ContentType, item.Data)
}

func (h *UploadHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.sessions.Len()})
}

// selectFile a missing or unreadable file part counts as an invalid selection
func (h *UploadHandler) selectFile(c *gin.Context, s *session) (upload.State, error) {
	file, err := readFormFile(c)
	if err != nil {
		log.WithRequest(c).WithField("session", s.id).Warnf("read form file err=%s", err.Error())
		file = nil
	}
	return s.ctrl.Select(file)
}

func (h *UploadHandler) controllerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, upload.ErrBusy):
		handleError(c, http.StatusConflict, config.BUSY)
	case errors.Is(err, upload.ErrUnknownModel):
		handleError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, upload.ErrClosed):
		handleError(c, http.StatusGone, err.Error())
	default:
		handleError(c, http.StatusInternalServerError, config.INTERNALERROR)
	}
}

// detach the upload outlive the browser request, it always runs to completion
func detach(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}
