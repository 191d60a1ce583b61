package handler

import (
	"errors"
	"net/http"

	"github.com/dronestore/storefront/internal/domain/shared"
	"github.com/dronestore/storefront/internal/interfaces/http/dto"
	"github.com/dronestore/storefront/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// BaseHandler writes responses in the API envelope
type BaseHandler struct{}

// requestID prefers the ID assigned by the middleware over the raw header
func requestID(c *gin.Context) string {
	if id := middleware.GetRequestID(c); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// userID returns the subject of the verified JWT
func userID(c *gin.Context) (string, bool) {
	id := middleware.GetJWTUserID(c)
	return id, id != ""
}

func (BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Fail answers with an error envelope tagged with the request ID
func (BaseHandler) Fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.NewErrorResponseWithRequestID(code, message, requestID(c)))
}

func (h BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Fail(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// BindError answers a failed ShouldBind* call
func (BaseHandler) BindError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

// HandleError answers err. Domain errors keep their full text, wrapping
// included, so callers see which product was refused. Anything else is
// recorded on the gin context and answered as an opaque 500.
func (h BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		if code, status := dto.FromDomain(domainErr.Code); status != http.StatusInternalServerError {
			h.Fail(c, status, code, err.Error())
			return
		}
	}

	_ = c.Error(err)
	h.Fail(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}

// writePage answers with one page of items and its paging meta
func writePage[T any](c *gin.Context, page shared.Paginated[T]) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(page.Items, page.Total, page.Page, page.PageSize))
}

// RouteNotFound answers requests no route matched
func RouteNotFound(c *gin.Context) {
	BaseHandler{}.Fail(c, http.StatusNotFound, dto.ErrCodeNotFound, "Route not found")
}
