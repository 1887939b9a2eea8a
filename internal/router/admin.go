package router

import (
	"context"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/datx24/storefront/pkg/admin"
	"github.com/datx24/storefront/pkg/backend"
	"github.com/datx24/storefront/pkg/global"
	"github.com/datx24/storefront/pkg/models"
)

const maxUploadMemory = 32 << 20

func (h *Handler) CreateCategory(c *gin.Context) {
	var in backend.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}

	category, err := h.admin.CreateCategory(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, "Failed to create category")
		return
	}
	c.JSON(http.StatusCreated, global.SuccessResponse(category))
}

func (h *Handler) UpdateCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in backend.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}

	category, err := h.admin.UpdateCategory(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err, "Failed to update category")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(category))
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.admin.DeleteCategory(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete category")
		return
	}
	h.invalidatePriceRanges(c.Request.Context())
	c.JSON(http.StatusOK, global.SuccessResponse(gin.H{"deleted": id}))
}

func (h *Handler) GetAttributes(c *gin.Context) {
	attributes, err := h.admin.Attributes(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to get attributes")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(attributes))
}

func (h *Handler) CreateAttribute(c *gin.Context) {
	var in backend.AttributeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}

	attribute, err := h.admin.CreateAttribute(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, "Failed to create attribute")
		return
	}
	c.JSON(http.StatusCreated, global.SuccessResponse(attribute))
}

func (h *Handler) UpdateAttribute(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in backend.AttributeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}

	attribute, err := h.admin.UpdateAttribute(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err, "Failed to update attribute")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(attribute))
}

func (h *Handler) DeleteAttribute(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.admin.DeleteAttribute(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete attribute")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(gin.H{"deleted": id}))
}

func (h *Handler) CreateProduct(c *gin.Context) {
	form, ok := productForm(c)
	if !ok {
		return
	}

	product, err := h.admin.CreateProduct(c.Request.Context(), form)
	if err != nil {
		respondError(c, err, "Failed to create product")
		return
	}
	h.invalidatePriceRanges(c.Request.Context())
	c.JSON(http.StatusCreated, global.SuccessResponse(product))
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	form, ok := productForm(c)
	if !ok {
		return
	}

	product, err := h.admin.UpdateProduct(c.Request.Context(), id, form)
	if err != nil {
		respondError(c, err, "Failed to update product")
		return
	}
	h.invalidateProduct(c.Request.Context(), id)
	c.JSON(http.StatusOK, global.SuccessResponse(product))
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.admin.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete product")
		return
	}
	h.invalidateProduct(c.Request.Context(), id)
	c.JSON(http.StatusOK, global.SuccessResponse(gin.H{"deleted": id}))
}

// productForm forwards the multipart fields as-is and every uploaded file
func productForm(c *gin.Context) (*backend.ProductForm, bool) {
	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		c.JSON(http.StatusBadRequest, global.ErrorResponse("Invalid multipart form", global.FieldError("body", err.Error(), global.CodeMultipartParse)))
		return nil, false
	}

	mf := c.Request.MultipartForm
	form := &backend.ProductForm{Fields: make(map[string][]string, len(mf.Value))}
	for key, values := range mf.Value {
		form.Fields[key] = values
	}
	for field, headers := range mf.File {
		for _, fh := range headers {
			form.Files = append(form.Files, backend.FormFile{
				Field:       field,
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Open:        openUpload(fh),
			})
		}
	}
	return form, true
}

func openUpload(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return fh.Open()
	}
}

func (h *Handler) GetOrders(c *gin.Context) {
	q := models.OrderQuery{
		Status:    c.Query("status"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
		Search:    c.Query("search"),
		Page:      1,
	}
	if q.Status != "" && !admin.IsKnownStatus(q.Status) {
		c.JSON(http.StatusBadRequest, global.ErrorResponse("Unknown order status", global.FieldError("status", q.Status+" is not an order status", global.CodeInvalidStatus)))
		return
	}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			c.JSON(http.StatusBadRequest, global.ErrorResponse("Invalid page", global.FieldError("page", "page must be a positive integer", global.CodeInvalidFormat)))
			return
		}
		q.Page = page
	}

	orders, err := h.admin.ListOrders(c.Request.Context(), q)
	if err != nil {
		respondError(c, err, "Failed to get orders")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(orders))
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := h.admin.UpdateOrderStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err, "Failed to update order status")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(gin.H{
		"order":         order,
		"next_statuses": admin.NextStatuses(order.Status),
	}))
}

func (h *Handler) GetStatistics(c *gin.Context) {
	st, err := h.admin.Statistics(c.Request.Context(), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		respondError(c, err, "Failed to compute statistics")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(st))
}

func (h *Handler) GetStatisticsInsights(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.admin.Statistics(ctx, c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		respondError(c, err, "Failed to compute statistics")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(h.ai.GenerateStatisticsReport(ctx, st)))
}

func (h *Handler) GetCategoryInsights(c *gin.Context) {
	ctx := c.Request.Context()
	slug := c.Param("slug")

	priceRange, err := h.catalog.PriceRange(ctx, slug)
	if err != nil {
		respondError(c, err, "Failed to load price range")
		return
	}
	listing, err := h.catalog.CategoryProducts(ctx, models.CategoryProductsQuery{
		Slug:     slug,
		Page:     1,
		MinPrice: priceRange.Min.Int64(),
		MaxPrice: priceRange.Max.Int64(),
	})
	if err != nil {
		respondError(c, err, "Failed to load products")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(h.ai.GenerateCategoryReport(ctx, listing, priceRange)))
}

// GetSessionActivity is only available on storage drivers that can aggregate
func (h *Handler) GetSessionActivity(c *gin.Context) {
	reporter, ok := h.store.(activityReporter)
	if !ok {
		c.JSON(http.StatusNotImplemented, global.ErrorResponse("Session activity requires the mongo storage driver", nil))
		return
	}

	hours := 24
	if raw := c.Query("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, global.ErrorResponse("Invalid hours", global.FieldError("hours", "hours must be a positive integer", global.CodeInvalidFormat)))
			return
		}
		hours = n
	}

	activity, err := reporter.Activity(c.Request.Context(), time.Now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		respondError(c, err, "Failed to aggregate session activity")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(activity))
}

func (h *Handler) invalidateProduct(ctx context.Context, id int64) {
	cache, ok := h.catalog.(cacheInvalidator)
	if !ok {
		return
	}
	if err := cache.InvalidateProduct(ctx, id); err != nil {
		log.Printf("Warning: %v", err)
	}
	h.invalidatePriceRanges(ctx)
}

func (h *Handler) invalidatePriceRanges(ctx context.Context) {
	cache, ok := h.catalog.(cacheInvalidator)
	if !ok {
		return
	}
	if err := cache.InvalidatePriceRanges(ctx); err != nil {
		log.Printf("Warning: %v", err)
	}
}
