package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"deadline-tracker/internal/domain"
	"deadline-tracker/internal/service"
)

// DeadlineHandler mantiene dependencias para endpoints de deadlines.
type DeadlineHandler struct {
	logger       *zap.Logger
	deadlineServ *service.DeadlineService
}

// NewDeadlineHandler crea una instancia de DeadlineHandler.
func NewDeadlineHandler(logger *zap.Logger, deadlineServ *service.DeadlineService) *DeadlineHandler {
	return &DeadlineHandler{
		logger:       logger,
		deadlineServ: deadlineServ,
	}
}

type deadlineView struct {
	domain.Deadline
	Status domain.DeadlineStatus `json:"status"`
}

func viewOf(d domain.Deadline, now time.Time) deadlineView {
	return deadlineView{Deadline: d, Status: d.StatusAt(now)}
}

// Create maneja POST /deadlines.
func (h *DeadlineHandler) Create(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	var req struct {
		Category          string    `json:"category"`
		Title             string    `json:"title" binding:"required"`
		DueAt             time.Time `json:"due_at" binding:"required"`
		NotifyBeforeHours int       `json:"notify_before_hours"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create deadline request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	d, err := h.deadlineServ.Create(c.Request.Context(), service.CreateDeadlineInput{
		Username:          claims.Username,
		Category:          req.Category,
		Title:             req.Title,
		DueAt:             req.DueAt,
		NotifyBeforeHours: req.NotifyBeforeHours,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDeadline):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deadline"})
			return
		case errors.Is(err, service.ErrOwnerNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		default:
			h.logger.Error("create deadline failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create deadline"})
			return
		}
	}

	c.JSON(http.StatusCreated, gin.H{"deadline": viewOf(d, time.Now().UTC())})
}

// List maneja GET /deadlines: la vista de dashboard.
func (h *DeadlineHandler) List(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	list, err := h.deadlineServ.ListByUser(c.Request.Context(), claims.Username)
	if err != nil {
		h.logger.Error("list deadlines failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list deadlines"})
		return
	}

	now := time.Now().UTC()
	views := make([]deadlineView, 0, len(list))
	for _, d := range list {
		views = append(views, viewOf(d, now))
	}
	c.JSON(http.StatusOK, gin.H{"deadlines": views})
}

// Calendar maneja GET /deadlines/calendar: deadlines agrupados por dia.
func (h *DeadlineHandler) Calendar(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	byDay, err := h.deadlineServ.Calendar(c.Request.Context(), claims.Username)
	if err != nil {
		h.logger.Error("calendar failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build calendar"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"calendar": byDay})
}

// Projects maneja GET /deadlines/projects: deadlines agrupados por categoria.
func (h *DeadlineHandler) Projects(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	byCategory, err := h.deadlineServ.Projects(c.Request.Context(), claims.Username)
	if err != nil {
		h.logger.Error("projects failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build projects"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": byCategory})
}

// Complete maneja POST /deadlines/:id/complete.
func (h *DeadlineHandler) Complete(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	id := c.Param("id")
	if err := h.deadlineServ.Complete(c.Request.Context(), claims.Username, id); err != nil {
		if errors.Is(err, service.ErrDeadlineNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "deadline not found"})
			return
		}
		h.logger.Error("complete deadline failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not complete deadline"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

// Delete maneja DELETE /deadlines/:id.
func (h *DeadlineHandler) Delete(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	id := c.Param("id")
	if err := h.deadlineServ.Delete(c.Request.Context(), claims.Username, id); err != nil {
		if errors.Is(err, service.ErrDeadlineNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "deadline not found"})
			return
		}
		h.logger.Error("delete deadline failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete deadline"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
