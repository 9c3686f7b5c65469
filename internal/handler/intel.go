package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetIntelReport godoc
// @Summary      Run the chat-intelligence pipeline
// @Description  Fetches the configured channels, extracts transactions and posts, and returns the summarized report. Per-channel failures appear in the report's errors field.
// @Tags         intel
// @Produce      json
// @Success      200  {object}  domain.IntelReport
// @Failure      500  {object}  map[string]string
// @Router       /api/intel/report [get]
func (h *Handler) GetIntelReport(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-intel-report")
	defer span.End()

	report, err := h.intel.Run(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}
