package router

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/datx24/storefront/pkg/browser"
	"github.com/datx24/storefront/pkg/checkout"
	"github.com/datx24/storefront/pkg/global"
	"github.com/datx24/storefront/pkg/models"
)

func (h *Handler) GetCart(c *gin.Context) {
	summary, err := h.carts.Summary(c.Request.Context(), sessionID(c))
	if err != nil {
		respondError(c, err, "Failed to load cart")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(summary))
}

// AddToCart snapshots the product's current name, price and image into the cart
func (h *Handler) AddToCart(c *gin.Context) {
	var req models.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	product, err := h.catalog.Product(ctx, req.ProductID)
	if err != nil {
		respondError(c, err, "Failed to fetch product")
		return
	}

	lines, err := h.carts.AddOrIncrement(ctx, sessionID(c), *product, req.Quantity)
	if err != nil {
		respondError(c, err, "Failed to update cart")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(h.carts.Summarize(lines)))
}

func (h *Handler) UpdateCartItem(c *gin.Context) {
	productID, ok := idParam(c, "productId")
	if !ok {
		return
	}
	var req models.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	lines, err := h.carts.SetQuantity(c.Request.Context(), sessionID(c), productID, *req.Quantity)
	if err != nil {
		respondError(c, err, "Failed to update cart")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(h.carts.Summarize(lines)))
}

func (h *Handler) RemoveFromCart(c *gin.Context) {
	productID, ok := idParam(c, "productId")
	if !ok {
		return
	}

	lines, err := h.carts.Remove(c.Request.Context(), sessionID(c), productID)
	if err != nil {
		respondError(c, err, "Failed to update cart")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(h.carts.Summarize(lines)))
}

func (h *Handler) ClearCart(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), sessionID(c)); err != nil {
		respondError(c, err, "Failed to clear cart")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(h.carts.Summarize(nil)))
}

func (h *Handler) GetWishlist(c *gin.Context) {
	ids, err := h.wishlists.IDs(c.Request.Context(), sessionID(c))
	if err != nil {
		respondError(c, err, "Failed to load wishlist")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(gin.H{"product_ids": ids}))
}

func (h *Handler) ToggleWishlist(c *gin.Context) {
	productID, ok := idParam(c, "productId")
	if !ok {
		return
	}

	ids, saved, err := h.wishlists.Toggle(c.Request.Context(), sessionID(c), productID)
	if err != nil {
		respondError(c, err, "Failed to update wishlist")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(gin.H{"product_ids": ids, "saved": saved}))
}

func (h *Handler) GetCategories(c *gin.Context) {
	categories, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to get categories")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(categories))
}

func (h *Handler) GetProductBySlug(c *gin.Context) {
	slug := c.Param("slug")
	ctx := c.Request.Context()

	if cached, ok := h.catalog.(cacheReporter); ok {
		product, hit, err := cached.ProductBySlugWithStatus(ctx, slug)
		if err != nil {
			respondError(c, err, "Failed to fetch product")
			return
		}
		if hit {
			c.Header("X-Cache", "HIT")
		} else {
			c.Header("X-Cache", "MISS")
		}
		c.JSON(http.StatusOK, global.SuccessResponse(productView(product)))
		return
	}

	product, err := h.catalog.ProductBySlug(ctx, slug)
	if err != nil {
		respondError(c, err, "Failed to fetch product")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(productView(product)))
}

func productView(p *models.Product) gin.H {
	return gin.H{
		"product":          p,
		"in_stock":         p.IsInStock(),
		"discount_percent": p.DiscountPercent(),
	}
}

func (h *Handler) browserFor(c *gin.Context) (*browser.Browser, bool) {
	b, err := h.browsers.Get(c.Request.Context(), sessionID(c), c.Param("slug"))
	if err != nil {
		respondError(c, err, "Failed to load price range")
		return nil, false
	}
	return b, true
}

func (h *Handler) GetBrowser(c *gin.Context) {
	b, ok := h.browserFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(b.Snapshot()))
}

type dragRequest struct {
	Value *int64 `json:"value" binding:"required"`
}

func (h *Handler) DragMin(c *gin.Context) {
	h.drag(c, (*browser.Browser).DragMin)
}

func (h *Handler) DragMax(c *gin.Context) {
	h.drag(c, (*browser.Browser).DragMax)
}

func (h *Handler) drag(c *gin.Context, move func(*browser.Browser, int64) (browser.Window, error)) {
	var req dragRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	b, ok := h.browserFor(c)
	if !ok {
		return
	}

	if _, err := move(b, *req.Value); err != nil {
		respondError(c, err, "Failed to move price handle")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(b.Snapshot()))
}

// ApplyPriceFilter answers with the view even when the listing fetch failed; the
// view carries the error message and an empty product list.
func (h *Handler) ApplyPriceFilter(c *gin.Context) {
	b, ok := h.browserFor(c)
	if !ok {
		return
	}

	if err := b.Apply(c.Request.Context()); err != nil && !isFetchFailure(b) {
		respondError(c, err, "Failed to apply price filter")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(b.Snapshot()))
}

func (h *Handler) ResetPriceFilter(c *gin.Context) {
	b, ok := h.browserFor(c)
	if !ok {
		return
	}

	if _, err := b.Reset(); err != nil {
		respondError(c, err, "Failed to reset price filter")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(b.Snapshot()))
}

func (h *Handler) GoToPage(c *gin.Context) {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		c.JSON(http.StatusBadRequest, global.ErrorResponse("Invalid page", global.FieldError("page", "page must be an integer", global.CodeInvalidFormat)))
		return
	}
	b, ok := h.browserFor(c)
	if !ok {
		return
	}

	changed, err := b.GoToPage(c.Request.Context(), page)
	if err != nil && !isFetchFailure(b) {
		respondError(c, err, "Failed to change page")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(gin.H{"changed": changed, "view": b.Snapshot()}))
}

func isFetchFailure(b *browser.Browser) bool {
	return b.Snapshot().Error != ""
}

func (h *Handler) GetQuote(c *gin.Context) {
	summary, err := h.checkout.Quote(c.Request.Context(), sessionID(c))
	if err != nil {
		respondError(c, err, "Failed to load cart")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(summary))
}

func (h *Handler) SubmitOrder(c *gin.Context) {
	var form checkout.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.checkout.Submit(c.Request.Context(), sessionID(c), form)
	if err != nil {
		respondError(c, err, "Failed to place order")
		return
	}
	c.JSON(http.StatusCreated, global.SuccessResponse(result))
}
