package handlers

import (
	"errors"
	"net/http"

	"kiosk-lottery/internal/models"
	"kiosk-lottery/internal/services"
	"kiosk-lottery/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

type startDrawRequest struct {
	PoolID models.PoolID `json:"poolId" binding:"required"`
	// Count defaults to the pool's per-round count, capped by the kiosk maximum.
	Count *int `json:"count"`
}

// GetDrawState returns the current kiosk draw.
func (h *HTTPHandler) GetDrawState(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.State())
}

// StartDraw selects winners for a pool. A draw already on screen is returned unchanged.
func (h *HTTPHandler) StartDraw(c *gin.Context) {
	var req startDrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请选择奖项"})
		return
	}
	pool, ok := h.settings.Pool(req.PoolID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": services.ErrUnknownPool.Error()})
		return
	}
	count := min(pool.MaxWinners, h.maxPerRound)
	if req.Count != nil {
		count = *req.Count
	}

	state, err := h.ctrl.StartDraw(c.Request.Context(), req.PoolID, count, h.roster.Participants())
	if err != nil {
		h.drawError(c, state, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// ConfirmDraw accepts a reduced winner count and starts the animation.
func (h *HTTPHandler) ConfirmDraw(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.ConfirmReducedCount())
}

// NextPhase advances the animation by one phase.
func (h *HTTPHandler) NextPhase(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.NextPhase())
}

// RevealNext reveals the next winner card.
func (h *HTTPHandler) RevealNext(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.RevealNextCard())
}

// SkipAnimation jumps to the result with every card revealed.
func (h *HTTPHandler) SkipAnimation(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.SkipAnimation())
}

// CompleteDraw saves the finished round. Calling it again returns the saved record.
func (h *HTTPHandler) CompleteDraw(c *gin.Context) {
	record, err := h.ctrl.CompleteDraw(c.Request.Context())
	state := h.ctrl.State()
	if err != nil {
		h.drawError(c, state, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": record, "state": state})
}

// ResetDraw clears the kiosk back to idle.
func (h *HTTPHandler) ResetDraw(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.ResetDraw())
}

// ExitKiosk resets the draw and tells the displays to leave kiosk mode.
func (h *HTTPHandler) ExitKiosk(c *gin.Context) {
	state := h.ctrl.ResetDraw()
	h.hub.Broadcast(ws.WSMessage{Type: ws.TypeKioskExit, Data: state})
	c.JSON(http.StatusOK, state)
}

type motionRequest struct {
	Reduced bool `json:"reduced"`
}

// SetMotion switches between the standard and the reduced-motion pacing.
func (h *HTTPHandler) SetMotion(c *gin.Context) {
	var req motionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}
	if h.seq == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "动画调度未启用"})
		return
	}
	h.seq.SetPacing(services.PacingFor(req.Reduced))
	c.JSON(http.StatusOK, gin.H{"reduced": req.Reduced, "pacing": h.seq.Pacing()})
}

func (h *HTTPHandler) drawError(c *gin.Context, state models.DrawState, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrUnknownPool):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInvalidCount):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrDrawInFlight), errors.Is(err, services.ErrDrawNotFinished):
		status = http.StatusConflict
	default:
		logger.Infof("Error in draw request %s: %v", c.FullPath(), err)
	}
	msg := err.Error()
	if errors.Is(err, services.ErrPersistFailed) {
		msg = services.ErrPersistFailed.Error()
	}
	c.JSON(status, gin.H{"error": msg, "state": state})
}
