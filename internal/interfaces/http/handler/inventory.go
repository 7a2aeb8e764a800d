package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/YKLee98/naver-sub003/internal/application/reconciliation"
	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/inventory"
	"github.com/YKLee98/naver-sub003/internal/interfaces/http/dto"
)

// Adjuster applies manual deltas
type Adjuster interface {
	Adjust(ctx context.Context, p reconciliation.AdjustParams) (*inventory.InventoryTransaction, error)
}

// LedgerReader serves per-SKU history
type LedgerReader interface {
	History(ctx context.Context, sku string, platform *integration.PlatformCode, limit int) ([]inventory.InventoryTransaction, error)
}

// InventoryHandler handles manual adjustments and ledger reads
type InventoryHandler struct {
	BaseHandler
	engine  Adjuster
	history LedgerReader
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(engine Adjuster, history LedgerReader) *InventoryHandler {
	return &InventoryHandler{engine: engine, history: history}
}

// RegisterRoutes mounts /inventory
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/inventory")
	g.POST("/:sku/adjust", h.Adjust)
	g.GET("/:sku/history", h.History)
}

// Adjust godoc
// @Summary      Adjust a SKU's quantity on one platform
// @Description  Records a reason-tagged delta in the ledger. With push the new level is written to the platform first.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        sku      path      string                      true  "SKU"
// @Param        request  body      dto.AdjustInventoryRequest  true  "Delta and reason"
// @Success      200      {object}  dto.Response{data=dto.LedgerEntryResponse}
// @Failure      400      {object}  dto.Response
// @Failure      404      {object}  dto.Response
// @Router       /inventory/{sku}/adjust [post]
func (h *InventoryHandler) Adjust(c *gin.Context) {
	var req dto.AdjustInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	platform, err := integration.ParsePlatformCode(req.Platform)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	tx, err := h.engine.Adjust(c.Request.Context(), reconciliation.AdjustParams{
		SKU:         c.Param("sku"),
		Platform:    platform,
		Delta:       req.Delta,
		Reason:      req.Reason,
		InitiatedBy: "api",
		Push:        req.Push,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.NewLedgerEntryResponse(tx))
}

// History godoc
// @Summary      Ledger entries for a SKU, newest first
// @Tags         inventory
// @Produce      json
// @Param        sku       path      string  true   "SKU"
// @Param        platform  query     string  false  "naver or shopify"
// @Param        limit     query     int     false  "Max entries"
// @Success      200       {object}  dto.Response{data=[]dto.LedgerEntryResponse}
// @Router       /inventory/{sku}/history [get]
func (h *InventoryHandler) History(c *gin.Context) {
	var req dto.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	var platform *integration.PlatformCode
	if req.Platform != "" {
		p := integration.PlatformCode(req.Platform)
		platform = &p
	}

	entries, err := h.history.History(c.Request.Context(), c.Param("sku"), platform, req.Limit)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	out := make([]dto.LedgerEntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, dto.NewLedgerEntryResponse(&entries[i]))
	}
	h.Success(c, out)
}
