package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/marketledger/internal/marketdata/application"
	"github.com/wyfcoding/marketledger/internal/marketdata/domain"
	"github.com/wyfcoding/marketledger/pkg/response"
)

// MarketDataHandler 资产报价、历史与技术指标接口
type MarketDataHandler struct {
	quotes     *application.QuoteService
	indicators *application.IndicatorService
}

func NewMarketDataHandler(quotes *application.QuoteService, indicators *application.IndicatorService) *MarketDataHandler {
	return &MarketDataHandler{quotes: quotes, indicators: indicators}
}

func (h *MarketDataHandler) RegisterRoutes(r *gin.RouterGroup) {
	assets := r.Group("/assets")
	{
		assets.GET("", h.ListAssets)
		assets.GET("/categories", h.ListCategories)
		assets.GET("/:ticker/quote", h.GetQuote)
		assets.GET("/:ticker/history", h.GetHistory)
	}

	indicators := r.Group("/indicators")
	{
		indicators.GET("/rsi", h.indicator(domain.IndicatorRSI, domain.DefaultRSIPeriods))
		indicators.GET("/sma", h.indicator(domain.IndicatorSMA, domain.DefaultSMAPeriods))
		indicators.GET("/volatility", h.indicator(domain.IndicatorVolatility, domain.DefaultVolatilityPeriods))
	}
}

func (h *MarketDataHandler) GetQuote(c *gin.Context) {
	quote, err := h.quotes.GetQuote(c.Request.Context(), c.Param("ticker"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *MarketDataHandler) GetHistory(c *gin.Context) {
	rng := c.DefaultQuery("range", "30d")
	bars, err := h.quotes.GetHistory(c.Request.Context(), c.Param("ticker"), rng)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, bars)
}

func (h *MarketDataHandler) ListAssets(c *gin.Context) {
	assets, err := h.quotes.ListAssets(c.Request.Context(), c.Query("category"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, assets)
}

func (h *MarketDataHandler) ListCategories(c *gin.Context) {
	cats, err := h.quotes.Categories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, cats)
}

func (h *MarketDataHandler) indicator(kind domain.IndicatorKind, defaultPeriods int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ticker := strings.TrimSpace(c.Query("ticker"))
		if ticker == "" {
			response.Abort(c, http.StatusBadRequest, "ticker is required")
			return
		}

		periods := defaultPeriods
		if raw := c.Query("periods"); raw != "" {
			p, err := strconv.Atoi(raw)
			if err != nil || p < 1 || p > application.MaxIndicatorPeriods {
				response.Abort(c, http.StatusBadRequest, "periods must be an integer between 1 and "+strconv.Itoa(application.MaxIndicatorPeriods))
				return
			}
			periods = p
		}

		res, err := h.indicators.Get(c.Request.Context(), kind, ticker, periods)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
