package handlers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"

	"luckydraw/internal/models"
	"luckydraw/internal/scene"
	"luckydraw/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

// SceneView is the part of the particle scene the HTTP layer talks to.
type SceneView interface {
	Status() scene.Status
	PointerMove(x, y float64)
	Resize(width, height int)
}

// FrameWriter exports the latest rendered frame.
type FrameWriter interface {
	WritePNG(w io.Writer) error
}

// HTTPHandler holds the dependencies for the HTTP handlers.
type HTTPHandler struct {
	controller *services.SessionController
	scene      SceneView
	frames     FrameWriter
	templates  *template.Template
}

// NewHTTPHandler creates a new HTTPHandler. scene, frames and templates may be nil.
func NewHTTPHandler(controller *services.SessionController, scene SceneView, frames FrameWriter, templates *template.Template) *HTTPHandler {
	return &HTTPHandler{
		controller: controller,
		scene:      scene,
		frames:     frames,
		templates:  templates,
	}
}

// renderPage is a helper to perform a two-step template rendering.
// It first executes the content template into a buffer, then executes the main
// layout template, passing the rendered content as a variable.
func (h *HTTPHandler) renderPage(c *gin.Context, pageData gin.H, contentTmpl string) {
	if h.templates == nil {
		c.String(http.StatusNotFound, "No templates loaded")
		return
	}
	buf := new(bytes.Buffer)
	if err := h.templates.ExecuteTemplate(buf, contentTmpl, pageData); err != nil {
		logger.Infof("Error executing content template %s: %v", contentTmpl, err)
		c.String(http.StatusInternalServerError, "Template rendering error")
		return
	}

	pageData["PageContent"] = template.HTML(buf.String())

	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(c.Writer, "layout.html", pageData); err != nil {
		logger.Infof("Error executing layout template: %v", err)
		c.String(http.StatusInternalServerError, "Template rendering error")
	}
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/", h.ShowLotteryPage)

	api := router.Group("/api")
	api.GET("/state", h.GetState)
	api.GET("/prizes", h.GetPrizes)
	api.GET("/winners", h.GetWinners)
	api.GET("/participants", h.GetParticipants)
	api.POST("/start", h.Start)
	api.POST("/stop", h.Stop)
	api.POST("/continue", h.Continue)
	api.POST("/reset", h.Reset)
	api.POST("/prize", h.SelectPrize)
	api.POST("/locale", h.SelectLocale)
	api.GET("/export-results-csv", h.ExportResultsCSV)

	api.GET("/scene", h.GetScene)
	api.POST("/scene/pointer", h.PointerMove)
	api.POST("/scene/resize", h.Resize)
	api.GET("/scene/frame.png", h.GetFrame)

	// Same contract as the remote backend, so another instance can use
	// this one as its participant source.
	api.GET("/lottery/users", h.GetParticipants)
}

// ShowLotteryPage handles the request for the main lottery page.
func (h *HTTPHandler) ShowLotteryPage(c *gin.Context) {
	state := h.controller.State()
	tag, _ := models.ParseLocale(state.Locale)
	type prizeOption struct {
		Key, Label string
		Selected   bool
	}
	var prizes []prizeOption
	for _, p := range h.controller.Prizes() {
		prizes = append(prizes, prizeOption{Key: p.Key, Label: p.Label(tag), Selected: p.Key == state.SelectedPrize})
	}
	data := gin.H{
		"title":  "Lucky Draw",
		"State":  state,
		"Prizes": prizes,
	}
	h.renderPage(c, data, "lottery_interface.html")
}

// GetState returns the session state.
func (h *HTTPHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller.State())
}

// GetPrizes returns the prize table with labels in the session locale.
func (h *HTTPHandler) GetPrizes(c *gin.Context) {
	state := h.controller.State()
	tag, _ := models.ParseLocale(state.Locale)
	out := make([]gin.H, 0)
	for _, p := range h.controller.Prizes() {
		out = append(out, gin.H{"key": p.Key, "count": p.Count, "label": p.Label(tag), "selected": p.Key == state.SelectedPrize})
	}
	c.JSON(http.StatusOK, out)
}

// GetWinners returns the winner history.
func (h *HTTPHandler) GetWinners(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller.State().AllWinners)
}

// GetParticipants returns the participant list.
func (h *HTTPHandler) GetParticipants(c *gin.Context) {
	participants := h.controller.Participants()
	if participants == nil {
		participants = []models.Participant{}
	}
	c.JSON(http.StatusOK, participants)
}

// Start begins rolling.
func (h *HTTPHandler) Start(c *gin.Context) {
	h.respond(c, h.controller.Start())
}

// Stop draws the winners.
func (h *HTTPHandler) Stop(c *gin.Context) {
	winners, err := h.controller.Stop(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"winners": winners, "state": h.controller.State()})
}

// Continue returns to idle after a draw.
func (h *HTTPHandler) Continue(c *gin.Context) {
	h.respond(c, h.controller.Continue())
}

// Reset clears the whole session.
func (h *HTTPHandler) Reset(c *gin.Context) {
	h.respond(c, h.controller.Reset(c.Request.Context()))
}

type prizeRequest struct {
	Key string `json:"key" form:"key" binding:"required"`
}

// SelectPrize changes the prize level.
func (h *HTTPHandler) SelectPrize(c *gin.Context) {
	var req prizeRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respond(c, h.controller.SelectPrize(req.Key))
}

type localeRequest struct {
	Locale string `json:"locale" form:"locale"`
}

// SelectLocale changes the display language. Without a body the
// Accept-Language header is used.
func (h *HTTPHandler) SelectLocale(c *gin.Context) {
	var req localeRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	value := strings.TrimSpace(req.Locale)
	if value == "" {
		value = c.GetHeader("Accept-Language")
	}
	_, err := h.controller.SelectLocale(value)
	h.respond(c, err)
}

// ExportResultsCSV handles the request to download the lottery results as a CSV file.
func (h *HTTPHandler) ExportResultsCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment;filename=lottery_results.csv")

	// Add BOM to ensure UTF-8 compatibility in Excel
	c.Writer.Write([]byte("\xef\xbb\xbf"))

	w := csv.NewWriter(c.Writer)
	if err := w.Write([]string{"Round", "Prize", "ID", "Name", "Department"}); err != nil {
		logger.Infof("Error writing CSV header: %v", err)
		return
	}
	for i, record := range h.controller.State().AllWinners {
		for _, p := range record.Winners {
			row := []string{strconv.Itoa(i + 1), record.Prize, p.ID, p.Name, p.Department}
			if err := w.Write(row); err != nil {
				logger.Infof("Error writing CSV row: %v", err)
				return
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		logger.Infof("Error flushing CSV writer: %v", err)
	}
}

// GetScene returns the scene status.
func (h *HTTPHandler) GetScene(c *gin.Context) {
	if h.scene == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "scene not running"})
		return
	}
	c.JSON(http.StatusOK, h.scene.Status())
}

type pointerRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PointerMove feeds the pointer position to the scene.
func (h *HTTPHandler) PointerMove(c *gin.Context) {
	var req pointerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.scene != nil {
		h.scene.PointerMove(req.X, req.Y)
	}
	c.Status(http.StatusNoContent)
}

type resizeRequest struct {
	Width  int `json:"width" binding:"required,gt=0"`
	Height int `json:"height" binding:"required,gt=0"`
}

// Resize feeds the viewport size to the scene.
func (h *HTTPHandler) Resize(c *gin.Context) {
	var req resizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.scene != nil {
		h.scene.Resize(req.Width, req.Height)
	}
	c.Status(http.StatusNoContent)
}

// GetFrame returns the latest rendered frame as PNG.
func (h *HTTPHandler) GetFrame(c *gin.Context) {
	if h.frames == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "renderer not running"})
		return
	}
	buf := new(bytes.Buffer)
	if err := h.frames.WritePNG(buf); err != nil {
		logger.Errorf("Encoding frame failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "frame encoding failed"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (h *HTTPHandler) respond(c *gin.Context, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.controller.State())
}

// fail maps controller errors to status codes.
func (h *HTTPHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "state": h.controller.State()})
	case errors.Is(err, services.ErrUnknownPrize), errors.Is(err, services.ErrUnknownLocale):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Errorf("Request %s failed: %v", c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
