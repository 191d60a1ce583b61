package handler

import (
	"context"

	cartapp "github.com/dronestore/storefront/internal/application/cart"
	"github.com/dronestore/storefront/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// CartHandler handles the authenticated user's cart. Every route answers with
// the full cart so clients can adopt the server's view after each mutation.
type CartHandler struct {
	BaseHandler
	cartService *cartapp.Service
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService *cartapp.Service) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

type cartOp func(ctx context.Context, userID string) (*cartapp.CartView, error)

// serve runs op for the authenticated user and answers with the resulting
// cart. A non-nil req is bound from the JSON body before op runs.
func (h *CartHandler) serve(c *gin.Context, req any, op cartOp) {
	user, ok := userID(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}
	if req != nil {
		if err := c.ShouldBindJSON(req); err != nil {
			h.BindError(c, err)
			return
		}
	}
	view, err := op(c.Request.Context(), user)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Get godoc
// @Summary      Get the caller's cart
// @Tags         cart
// @Produce      json
// @Success      200 {object} dto.Response{data=cartapp.CartView}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	h.serve(c, nil, h.cartService.Get)
}

// AddItem godoc. A missing quantity adds one unit.
// @Summary      Add units of a product
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        request body dto.AddItemRequest true "Item to add"
// @Success      200 {object} dto.Response{data=cartapp.CartView}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddItemRequest
	h.serve(c, &req, func(ctx context.Context, userID string) (*cartapp.CartView, error) {
		quantity := 1
		if req.Quantity != nil {
			quantity = *req.Quantity
		}
		return h.cartService.AddItem(ctx, cartapp.AddItemInput{
			UserID:    userID,
			ProductID: req.ProductID,
			Quantity:  quantity,
		})
	})
}

// SetQuantity godoc
// @Summary      Set the quantity of a line
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID"
// @Param        request body dto.SetQuantityRequest true "New quantity, zero removes"
// @Success      200 {object} dto.Response{data=cartapp.CartView}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /cart/items/{id} [patch]
func (h *CartHandler) SetQuantity(c *gin.Context) {
	var req dto.SetQuantityRequest
	h.serve(c, &req, func(ctx context.Context, userID string) (*cartapp.CartView, error) {
		return h.cartService.SetQuantity(ctx, cartapp.SetQuantityInput{
			UserID:    userID,
			ProductID: c.Param("id"),
			Quantity:  *req.Quantity,
		})
	})
}

// RemoveItem godoc
// @Summary      Remove a line
// @Tags         cart
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} dto.Response{data=cartapp.CartView}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /cart/items/{id} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	h.serve(c, nil, func(ctx context.Context, userID string) (*cartapp.CartView, error) {
		return h.cartService.RemoveItem(ctx, userID, c.Param("id"))
	})
}

// Clear godoc
// @Summary      Empty the caller's cart
// @Tags         cart
// @Produce      json
// @Success      200 {object} dto.Response{data=cartapp.CartView}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /cart [delete]
func (h *CartHandler) Clear(c *gin.Context) {
	h.serve(c, nil, h.cartService.Clear)
}
