package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"marketfeed/internal/domain"
	"marketfeed/internal/ta"
)

// annotatedTick is a canonical tick plus the derived trend label.
type annotatedTick struct {
	domain.CanonicalTick
	Trend string `json:"trend"`
}

// GetTicks godoc
// @Summary      Resolve current ticks for a set of instruments
// @Description  Resolves each instrument through the venue fallback chain and returns ticks plus a per-instrument error manifest
// @Tags         ticks
// @Produce      json
// @Param        instruments  query  string  true   "Comma-separated instruments (e.g., BTC-USD,ETH-USD)"
// @Param        venues       query  string  false  "Comma-separated venue override (orderly, dexscreener, coindesk)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/ticks [get]
func (h *Handler) GetTicks(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-ticks")
	defer span.End()

	instruments := splitParam(c.Query("instruments"))
	if len(instruments) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "instruments query parameter is required"})
		return
	}
	span.SetAttributes(attribute.Int("instrument_count", len(instruments)))

	var venueOrder []domain.VenueName
	for _, v := range splitParam(c.Query("venues")) {
		venueOrder = append(venueOrder, domain.VenueName(strings.ToLower(v)))
	}

	result := h.resolver.Resolve(ctx, instruments, venueOrder)

	ticks := make([]annotatedTick, 0, len(result.Ticks))
	for _, tick := range result.Ticks {
		at := annotatedTick{CanonicalTick: tick}
		if tick.DayChangePct != nil {
			at.Trend = ta.TrendLabel(*tick.DayChangePct)
		} else {
			at.Trend = ta.TrendLabel(0)
		}
		ticks = append(ticks, at)
	}

	c.JSON(http.StatusOK, gin.H{
		"ticks":       ticks,
		"errors":      result.Errors,
		"venues_used": result.VenuesUsed,
	})
}

func splitParam(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
