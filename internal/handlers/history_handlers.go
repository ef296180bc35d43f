package handlers

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"kiosk-lottery/internal/export"
	"kiosk-lottery/internal/models"
	"kiosk-lottery/internal/repositories"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

// clearConfirmWord must be typed by the operator to wipe the history.
const clearConfirmWord = "RESET"

// ListHistory returns every record, newest first.
func (h *HTTPHandler) ListHistory(c *gin.Context) {
	records, err := h.store.ListRecords(c.Request.Context())
	if err != nil {
		logger.Infof("Error listing history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取历史记录失败"})
		return
	}
	sortNewestFirst(records)
	c.JSON(http.StatusOK, records)
}

// ListPoolHistory returns the rounds of one pool in round order.
func (h *HTTPHandler) ListPoolHistory(c *gin.Context) {
	records, ok := h.poolRecords(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, records)
}

// ExportRound downloads one round as JSON.
func (h *HTTPHandler) ExportRound(c *gin.Context) {
	record, err := h.store.FindByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repositories.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "记录不存在"})
		return
	}
	if err != nil {
		logger.Infof("Error loading record %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取记录失败"})
		return
	}

	attachment(c, export.RoundFilename(*record))
	c.Header("Content-Type", "application/json; charset=utf-8")
	if err := export.WriteJSON(c.Writer, record); err != nil {
		logger.Infof("Error writing round export: %v", err)
	}
}

// ExportPool downloads every round of a pool as one JSON array.
func (h *HTTPHandler) ExportPool(c *gin.Context) {
	records, ok := h.poolRecords(c)
	if !ok {
		return
	}
	poolName := c.Param("id")
	if len(records) > 0 {
		poolName = records[0].PoolName
	} else if pool, found := h.settings.Pool(models.PoolID(c.Param("id"))); found {
		poolName = pool.Name
	}

	attachment(c, export.PoolFilename(h.now().Format(time.DateOnly), poolName))
	c.Header("Content-Type", "application/json; charset=utf-8")
	if err := export.WriteJSON(c.Writer, records); err != nil {
		logger.Infof("Error writing pool export: %v", err)
	}
}

// ExportHistoryCSV downloads every winner of every round as CSV.
func (h *HTTPHandler) ExportHistoryCSV(c *gin.Context) {
	records, err := h.store.ListRecords(c.Request.Context())
	if err != nil {
		logger.Infof("Error listing history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取历史记录失败"})
		return
	}
	slices.SortStableFunc(records, func(a, b models.DrawRecord) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	attachment(c, export.HistoryCSVFilename(h.eventDate()))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	if err := export.WriteCSV(c.Writer, records); err != nil {
		logger.Infof("Error writing CSV: %v", err)
	}
}

type clearHistoryRequest struct {
	Confirm string `json:"confirm"`
}

// ClearHistory deletes all records once the confirmation word is given.
func (h *HTTPHandler) ClearHistory(c *gin.Context) {
	var req clearHistoryRequest
	_ = c.ShouldBindJSON(&req)
	if !strings.EqualFold(strings.TrimSpace(req.Confirm), clearConfirmWord) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请输入 RESET 确认清空"})
		return
	}
	if err := h.store.ClearAll(c.Request.Context()); err != nil {
		logger.Infof("Error clearing history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "清空历史记录失败"})
		return
	}
	logger.Info("draw history cleared by operator")
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) poolRecords(c *gin.Context) ([]models.DrawRecord, bool) {
	poolID := models.PoolID(c.Param("id"))
	if !poolID.Valid() {
		c.JSON(http.StatusNotFound, gin.H{"error": "指定的奖项不存在"})
		return nil, false
	}
	records, err := h.store.ListRecordsByPool(c.Request.Context(), poolID)
	if err != nil {
		logger.Infof("Error listing history of %s: %v", poolID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取历史记录失败"})
		return nil, false
	}
	return records, true
}

func sortNewestFirst(records []models.DrawRecord) {
	slices.SortStableFunc(records, func(a, b models.DrawRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
