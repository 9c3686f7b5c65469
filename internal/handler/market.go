package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"marketfeed/internal/quota"
)

// GetTrending godoc
// @Summary      Top gainers and losers
// @Description  Returns trending movers derived from the latest listings page. Served stale with a quota notice once the daily credit cap is reached.
// @Tags         market
// @Produce      json
// @Success      200  {object}  quota.TrendingResult
// @Failure      429  {object}  map[string]string
// @Router       /api/market/trending [get]
func (h *Handler) GetTrending(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-trending")
	defer span.End()

	result, err := h.market.Trending(ctx)
	h.respondMarket(c, result, err)
}

// GetGlobalMetrics godoc
// @Summary      Global market metrics
// @Description  Returns total market cap, volume, and dominance figures
// @Tags         market
// @Produce      json
// @Success      200  {object}  quota.GlobalMetrics
// @Failure      429  {object}  map[string]string
// @Router       /api/market/global [get]
func (h *Handler) GetGlobalMetrics(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-global-metrics")
	defer span.End()

	metrics, err := h.market.GlobalMetrics(ctx)
	h.respondMarket(c, metrics, err)
}

// GetQuotes godoc
// @Summary      Quotes for specific symbols
// @Description  Returns current quotes for up to a few hundred symbols in one metered call
// @Tags         market
// @Produce      json
// @Param        symbols  query  string  true  "Comma-separated symbols (e.g., BTC,ETH,SOL)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      429  {object}  map[string]string
// @Router       /api/market/quotes [get]
func (h *Handler) GetQuotes(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-quotes")
	defer span.End()

	symbols := splitParam(c.Query("symbols"))
	if len(symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols query parameter is required"})
		return
	}
	span.SetAttributes(attribute.Int("symbol_count", len(symbols)))

	quotes, err := h.market.Quotes(ctx, symbols)
	if err != nil {
		if errors.Is(err, quota.ErrQuotaExceeded) {
			if quotes != nil {
				c.JSON(http.StatusOK, gin.H{"quotes": quotes, "stale": true})
				return
			}
			c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"quotes": quotes})
}

// GetCreditUsage godoc
// @Summary      Today's credit spend
// @Description  Returns the per-endpoint credit ledger for the current UTC day
// @Tags         market
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/market/credits [get]
func (h *Handler) GetCreditUsage(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-credit-usage")
	defer span.End()

	if h.credits == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "credit ledger unavailable"})
		return
	}

	today := time.Now().UTC()
	total, err := h.credits.SumForDate(ctx, today)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	entries, err := h.credits.EntriesForDate(ctx, today)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":    today.Format("2006-01-02"),
		"total":   total,
		"entries": entries,
	})
}

// respondMarket maps the quota-aware error contract onto HTTP: fresh and
// stale payloads are 200 (stale flagged), a capped call with no stale
// copy is 429.
func (h *Handler) respondMarket(c *gin.Context, payload any, err error) {
	if err != nil {
		if errors.Is(err, quota.ErrQuotaExceeded) {
			if payload != nil && !isNilPointer(payload) {
				c.JSON(http.StatusOK, gin.H{"data": payload, "stale": true})
				return
			}
			c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payload})
}

func isNilPointer(v any) bool {
	switch p := v.(type) {
	case *quota.TrendingResult:
		return p == nil
	case *quota.GlobalMetrics:
		return p == nil
	default:
		return v == nil
	}
}
