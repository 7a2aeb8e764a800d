package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/YKLee98/naver-sub003/internal/application/reconciliation"
	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
	"github.com/YKLee98/naver-sub003/internal/interfaces/http/dto"
)

// MappingManager is the mapping administration surface
type MappingManager interface {
	CreateMapping(ctx context.Context, in reconciliation.CreateMappingInput) (*integration.Mapping, error)
	GetMapping(ctx context.Context, sku string) (*integration.Mapping, error)
	ListMappings(ctx context.Context, filter integration.MappingFilter) (shared.Paginated[integration.Mapping], error)
	DeactivateMapping(ctx context.Context, sku string) (*integration.Mapping, error)
	ActivateMapping(ctx context.Context, sku string) (*integration.Mapping, error)
}

// MappingHandler handles SKU mapping endpoints
type MappingHandler struct {
	BaseHandler
	mappings MappingManager
}

// NewMappingHandler creates a new MappingHandler
func NewMappingHandler(mappings MappingManager) *MappingHandler {
	return &MappingHandler{mappings: mappings}
}

// RegisterRoutes mounts /mappings
func (h *MappingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/mappings")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:sku", h.Get)
	g.POST("/:sku/activate", h.Activate)
	g.POST("/:sku/deactivate", h.Deactivate)
}

// Create godoc
// @Summary      Register a SKU mapping
// @Tags         mappings
// @Accept       json
// @Produce      json
// @Param        request  body      dto.CreateMappingRequest  true  "Mapping"
// @Success      201      {object}  dto.Response{data=dto.MappingResponse}
// @Failure      409      {object}  dto.Response
// @Router       /mappings [post]
func (h *MappingHandler) Create(c *gin.Context) {
	var req dto.CreateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	in := reconciliation.CreateMappingInput{
		SKU:                    req.SKU,
		ProductName:            req.ProductName,
		Vendor:                 req.Vendor,
		Category:               req.Category,
		Brand:                  req.Brand,
		NaverProductID:         req.NaverProductID,
		ShopifyProductID:       req.ShopifyProductID,
		ShopifyVariantID:       req.ShopifyVariantID,
		ShopifyInventoryItemID: req.ShopifyInventoryItemID,
		ShopifyLocationID:      req.ShopifyLocationID,
		Activate:               req.Activate,
	}
	if req.Margin != nil {
		in.Margin = *req.Margin
	}

	m, err := h.mappings.CreateMapping(c.Request.Context(), in)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, dto.NewMappingResponse(m))
}

// Get godoc
// @Summary      Get a mapping by SKU
// @Tags         mappings
// @Produce      json
// @Param        sku  path      string  true  "SKU"
// @Success      200  {object}  dto.Response{data=dto.MappingResponse}
// @Failure      404  {object}  dto.Response
// @Router       /mappings/{sku} [get]
func (h *MappingHandler) Get(c *gin.Context) {
	m, err := h.mappings.GetMapping(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.NewMappingResponse(m))
}

// List godoc
// @Summary      List mappings
// @Tags         mappings
// @Produce      json
// @Param        active       query     bool    false  "Active flag"
// @Param        sync_status  query     string  false  "synced, pending or error"
// @Param        vendor       query     string  false  "Vendor"
// @Param        search       query     string  false  "SKU or product name"
// @Success      200          {object}  dto.Response{data=[]dto.MappingResponse}
// @Router       /mappings [get]
func (h *MappingHandler) List(c *gin.Context) {
	var req dto.ListMappingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.Normalize()

	filter := integration.MappingFilter{
		Filter:   shared.Filter{Page: req.Page, PageSize: req.PageSize, OrderBy: "sku", OrderDir: "asc"},
		IsActive: req.Active,
		Vendor:   req.Vendor,
		Search:   req.Search,
	}
	if req.SyncStatus != "" {
		s := integration.SyncStatus(req.SyncStatus)
		filter.SyncStatus = &s
	}

	page, err := h.mappings.ListMappings(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	items := make([]dto.MappingResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, dto.NewMappingResponse(&page.Items[i]))
	}
	h.SuccessWithMeta(c, items, page.Total, page.Page, page.PageSize, page.TotalPages)
}

// Activate includes the SKU in fleet runs again
func (h *MappingHandler) Activate(c *gin.Context) {
	m, err := h.mappings.ActivateMapping(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.NewMappingResponse(m))
}

// Deactivate excludes the SKU from fleet runs; mappings are never deleted
func (h *MappingHandler) Deactivate(c *gin.Context) {
	m, err := h.mappings.DeactivateMapping(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.NewMappingResponse(m))
}
