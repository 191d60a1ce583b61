package handler

import (
	cartapp "github.com/dronestore/storefront/internal/application/cart"
	"github.com/dronestore/storefront/internal/domain/shared"
	"github.com/dronestore/storefront/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// ProductHandler exposes the catalog read endpoints
type ProductHandler struct {
	BaseHandler
	productService *cartapp.ProductService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService *cartapp.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// List godoc. Data is a bare array, paging goes in meta.
// @Summary      List products
// @Tags         products
// @Produce      json
// @Param        page      query int    false "Page number"
// @Param        page_size query int    false "Page size (max 100)"
// @Param        order_by  query string false "Sort key: name, price, stock, newest"
// @Param        order_dir query string false "asc or desc"
// @Param        search    query string false "Name search"
// @Success      200 {object} dto.Response{data=[]cartapp.ProductView,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products [get]
func (h *ProductHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.productService.List(c.Request.Context(), shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
		Search:   req.Search,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writePage(c, page)
}

// Get godoc
// @Summary      Get a product
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} dto.Response{data=cartapp.ProductView}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.productService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}
