package handlers

import (
	"errors"
	"mime"
	"net/http"
	"time"

	"kiosk-lottery/internal/assets"
	"kiosk-lottery/internal/config"
	"kiosk-lottery/internal/middleware"
	"kiosk-lottery/internal/models"
	"kiosk-lottery/internal/repositories"
	"kiosk-lottery/internal/roster"
	"kiosk-lottery/internal/services"
	"kiosk-lottery/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

// Dependencies are the collaborators the HTTP API is built on.
type Dependencies struct {
	Settings    *config.Settings
	Roster      *roster.Roster
	Controller  *services.DrawController
	Sequencer   *services.Sequencer
	Store       repositories.DrawRecordRepository
	Hub         *ws.Hub
	Media       *assets.Cache
	Auth        *middleware.OperatorAuth
	MaxPerRound int
}

// HTTPHandler holds the dependencies for the HTTP handlers.
type HTTPHandler struct {
	settings    *config.Settings
	roster      *roster.Roster
	ctrl        *services.DrawController
	seq         *services.Sequencer
	store       repositories.DrawRecordRepository
	hub         *ws.Hub
	media       *assets.Cache
	auth        *middleware.OperatorAuth
	maxPerRound int
	now         func() time.Time
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(deps Dependencies) *HTTPHandler {
	if deps.Settings == nil || deps.Roster == nil || deps.Controller == nil || deps.Store == nil || deps.Auth == nil {
		panic("handlers: NewHTTPHandler requires settings, roster, controller, store and auth")
	}
	if deps.Hub == nil {
		deps.Hub = ws.NewHub()
	}
	maxPerRound := deps.MaxPerRound
	if maxPerRound <= 0 {
		maxPerRound = 10
	}
	return &HTTPHandler{
		settings:    deps.Settings,
		roster:      deps.Roster,
		ctrl:        deps.Controller,
		seq:         deps.Sequencer,
		store:       deps.Store,
		hub:         deps.Hub,
		media:       deps.Media,
		auth:        deps.Auth,
		maxPerRound: maxPerRound,
		now:         time.Now,
	}
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	operator := h.auth.RequireOperator()

	api := router.Group("/api")
	{
		api.POST("/operator/login", h.Login)

		api.GET("/pools", h.ListPools)
		api.PUT("/pools/:id", operator, h.UpdatePool)
		api.PUT("/event-date", operator, h.SetEventDate)

		api.GET("/participants", h.ListParticipants)
		api.POST("/participants/csv", operator, h.UploadParticipantsCSV)

		draw := api.Group("/draw")
		draw.GET("", h.GetDrawState)
		draw.POST("/start", h.StartDraw)
		draw.POST("/confirm", h.ConfirmDraw)
		draw.POST("/next-phase", h.NextPhase)
		draw.POST("/reveal", h.RevealNext)
		draw.POST("/skip", h.SkipAnimation)
		draw.POST("/complete", h.CompleteDraw)
		draw.POST("/reset", h.ResetDraw)

		api.POST("/kiosk/exit", h.ExitKiosk)
		api.PUT("/kiosk/motion", h.SetMotion)

		history := api.Group("/history")
		history.GET("", h.ListHistory)
		history.GET("/export.csv", h.ExportHistoryCSV)
		history.GET("/pools/:id", h.ListPoolHistory)
		history.GET("/pools/:id/export", h.ExportPool)
		history.GET("/:id/export", h.ExportRound)
		history.DELETE("", operator, h.ClearHistory)
	}

	router.GET("/ws/kiosk", h.HandleWebSocket)
	router.GET("/media/*name", h.ServeMedia)
}

// BroadcastState is a services.Observer pushing every draw state to the displays.
func (h *HTTPHandler) BroadcastState(state models.DrawState) {
	h.hub.Broadcast(ws.WSMessage{Type: ws.TypeDrawState, Data: state})
}

type loginRequest struct {
	PIN string `json:"pin" binding:"required"`
}

// Login exchanges the operator PIN for a bearer token.
func (h *HTTPHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请输入 PIN"})
		return
	}
	token, expires, err := h.auth.Login(req.PIN)
	switch {
	case errors.Is(err, middleware.ErrAuthDisabled):
		c.JSON(http.StatusOK, gin.H{"token": "", "required": false})
	case errors.Is(err, middleware.ErrInvalidPIN):
		logger.Infof("operator login failed from %s", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case err != nil:
		logger.Infof("Error signing operator token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "登录失败"})
	default:
		c.JSON(http.StatusOK, gin.H{"token": token, "expiresAt": expires, "required": true})
	}
}

// ListPools returns the pools and the event date.
func (h *HTTPHandler) ListPools(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Config())
}

type updatePoolRequest struct {
	Name       string `json:"name"`
	MaxWinners int    `json:"maxWinners"`
	Color      string `json:"color"`
}

// UpdatePool edits the name, per-round count and color of a pool.
func (h *HTTPHandler) UpdatePool(c *gin.Context) {
	var req updatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}
	pool, err := h.settings.UpdatePool(models.PrizePool{
		ID:         models.PoolID(c.Param("id")),
		Name:       req.Name,
		MaxWinners: req.MaxWinners,
		Color:      req.Color,
	})
	switch {
	case errors.Is(err, config.ErrUnknownPool):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, config.ErrInvalidWinners):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		logger.Infof("Error saving pool %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存奖项失败"})
	default:
		c.JSON(http.StatusOK, pool)
	}
}

type eventDateRequest struct {
	EventDate string `json:"eventDate" binding:"required"`
}

// SetEventDate sets the date stamped on new records and exports.
func (h *HTTPHandler) SetEventDate(c *gin.Context) {
	var req eventDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": config.ErrInvalidDate.Error()})
		return
	}
	err := h.settings.SetEventDate(req.EventDate)
	switch {
	case errors.Is(err, config.ErrInvalidDate):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		logger.Infof("Error saving event date: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存活动日期失败"})
	default:
		c.JSON(http.StatusOK, h.settings.Config())
	}
}

// ListParticipants returns the current roster.
func (h *HTTPHandler) ListParticipants(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"participants": h.roster.Participants(), "count": h.roster.Len()})
}

// UploadParticipantsCSV replaces the roster with an uploaded id,name[,dept] file.
func (h *HTTPHandler) UploadParticipantsCSV(c *gin.Context) {
	file, _, err := c.Request.FormFile("participantCSV")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请上传 CSV 文件"})
		return
	}
	defer file.Close()

	participants, err := roster.ParseCSV(file)
	if err != nil {
		logger.Infof("Error reading participant CSV: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "CSV 文件无法解析"})
		return
	}
	if len(participants) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "CSV 文件中没有有效人员"})
		return
	}

	h.roster.Replace(participants)
	logger.Infof("roster replaced from upload: %d participants", h.roster.Len())
	c.JSON(http.StatusOK, gin.H{"participants": h.roster.Participants(), "count": h.roster.Len()})
}

// ServeMedia serves a preloaded decorative asset.
func (h *HTTPHandler) ServeMedia(c *gin.Context) {
	if h.media == nil {
		c.Status(http.StatusNotFound)
		return
	}
	asset, ok := h.media.Get(c.Param("name")[1:])
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, asset.ContentType, asset.Data)
}

// attachment marks the response as a download named filename.
func attachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
}

// eventDate returns the configured date, or today's when none is set.
func (h *HTTPHandler) eventDate() string {
	if date := h.settings.EventDate(); date != "" {
		return date
	}
	return h.now().Format(time.DateOnly)
}
