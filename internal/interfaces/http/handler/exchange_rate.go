package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/interfaces/http/dto"
)

// defaultRateValidityDays applies when a manual rate omits valid_days
const defaultRateValidityDays = 30

// RateManager is the exchange rate surface
type RateManager interface {
	SetManualRate(ctx context.Context, rate decimal.Decimal, reason string, validDays int) (*integration.ExchangeRate, error)
	CurrentRate(ctx context.Context) (*integration.ExchangeRate, error)
	History(ctx context.Context, limit int) ([]integration.ExchangeRate, error)
}

// ExchangeRateHandler handles KRW to USD rate endpoints
type ExchangeRateHandler struct {
	BaseHandler
	rates RateManager
}

// NewExchangeRateHandler creates a new ExchangeRateHandler
func NewExchangeRateHandler(rates RateManager) *ExchangeRateHandler {
	return &ExchangeRateHandler{rates: rates}
}

// RegisterRoutes mounts /exchange-rates
func (h *ExchangeRateHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/exchange-rates")
	g.POST("/manual", h.SetManual)
	g.GET("/current", h.Current)
	g.GET("/history", h.History)
}

// SetManual godoc
// @Summary      Set the active manual rate
// @Description  Deactivates every active rate and activates the new one for valid_days.
// @Tags         exchange-rates
// @Accept       json
// @Produce      json
// @Param        request  body      dto.ManualRateRequest  true  "Rate"
// @Success      201      {object}  dto.Response{data=dto.ExchangeRateResponse}
// @Failure      400      {object}  dto.Response
// @Router       /exchange-rates/manual [post]
func (h *ExchangeRateHandler) SetManual(c *gin.Context) {
	var req dto.ManualRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	days := req.ValidDays
	if days == 0 {
		days = defaultRateValidityDays
	}

	r, err := h.rates.SetManualRate(c.Request.Context(), req.Rate, req.Reason, days)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, dto.NewExchangeRateResponse(r))
}

// Current godoc
// @Summary      The rate a price sync would use now
// @Description  The active manual rate while valid, otherwise a cached live quote.
// @Tags         exchange-rates
// @Produce      json
// @Success      200  {object}  dto.Response{data=dto.ExchangeRateResponse}
// @Failure      404  {object}  dto.Response
// @Router       /exchange-rates/current [get]
func (h *ExchangeRateHandler) Current(c *gin.Context) {
	r, err := h.rates.CurrentRate(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.NewExchangeRateResponse(r))
}

// History returns rate records, newest first
func (h *ExchangeRateHandler) History(c *gin.Context) {
	rates, err := h.rates.History(c.Request.Context(), queryInt(c, "limit", 20))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	out := make([]dto.ExchangeRateResponse, 0, len(rates))
	for i := range rates {
		out = append(out, dto.NewExchangeRateResponse(&rates[i]))
	}
	h.Success(c, out)
}
