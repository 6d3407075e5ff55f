package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/platewise/resolver/internal/domain"
	"github.com/platewise/resolver/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	resolver     *usecase.Resolver
	orchestrator *usecase.Orchestrator
}

// NewHandler creates a new HTTP handler
func NewHandler(resolver *usecase.Resolver, orchestrator *usecase.Orchestrator) *Handler {
	return &Handler{resolver: resolver, orchestrator: orchestrator}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "platewise-resolver",
		"version": "1.0.0",
	})
}

// ResolveItem resolves a single item descriptor. Unresolved items are a
// normal outcome and still return 200 with a typed reason; only malformed
// requests are client errors.
func (h *Handler) ResolveItem(c *gin.Context) {
	var item domain.ItemDescriptor
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	result := h.resolver.ResolveOne(c.Request.Context(), &item)
	c.JSON(http.StatusOK, result)
}

type batchRequest struct {
	Items []domain.ItemDescriptor `json:"items" binding:"required"`
}

// ResolveBatch resolves all items of one user turn.
func (h *Handler) ResolveBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	result := h.orchestrator.ResolveBatch(c.Request.Context(), req.Items)
	c.JSON(http.StatusOK, result)
}
