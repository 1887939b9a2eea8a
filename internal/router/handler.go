package router

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/datx24/storefront/pkg/admin"
	"github.com/datx24/storefront/pkg/ai"
	"github.com/datx24/storefront/pkg/backend"
	"github.com/datx24/storefront/pkg/browser"
	"github.com/datx24/storefront/pkg/cart"
	"github.com/datx24/storefront/pkg/checkout"
	"github.com/datx24/storefront/pkg/global"
	"github.com/datx24/storefront/pkg/models"
	mongostore "github.com/datx24/storefront/pkg/mongo"
	"github.com/datx24/storefront/pkg/storage"
	"github.com/datx24/storefront/pkg/wishlist"
)

// Catalog is the read side of the backend, possibly behind the Redis cache
type Catalog interface {
	browser.Catalog
	Categories(ctx context.Context) ([]models.Category, error)
	Product(ctx context.Context, id int64) (*models.Product, error)
	ProductBySlug(ctx context.Context, slug string) (*models.Product, error)
}

type cacheReporter interface {
	ProductBySlugWithStatus(ctx context.Context, slug string) (*models.Product, bool, error)
}

type cacheInvalidator interface {
	InvalidateProduct(ctx context.Context, id int64) error
	InvalidatePriceRanges(ctx context.Context) error
}

type activityReporter interface {
	Activity(ctx context.Context, since time.Time) (*mongostore.SessionActivity, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Config   global.Config
	Store    storage.Store
	Backend  *backend.Client
	Catalog  Catalog // defaults to Backend
	Browsers *browser.Registry
	AI       *ai.Service
}

type Handler struct {
	store     storage.Store
	catalog   Catalog
	carts     *cart.Service
	wishlists *wishlist.Service
	browsers  *browser.Registry
	checkout  *checkout.Service
	admin     *admin.Service
	ai        *ai.Service
	driver    string
}

func NewHandler(deps Dependencies) *Handler {
	catalog := deps.Catalog
	if catalog == nil {
		catalog = deps.Backend
	}
	browsers := deps.Browsers
	if browsers == nil {
		browsers = browser.NewRegistry(catalog, time.Hour)
	}
	aiService := deps.AI
	if aiService == nil {
		aiService = &ai.Service{}
	}
	carts := cart.NewService(deps.Store, deps.Config.ShippingFee)

	return &Handler{
		store:     deps.Store,
		catalog:   catalog,
		carts:     carts,
		wishlists: wishlist.NewService(deps.Store),
		browsers:  browsers,
		checkout:  checkout.NewService(carts, deps.Backend),
		admin:     admin.NewService(deps.Backend, deps.Config.Location),
		ai:        aiService,
		driver:    deps.Config.StorageDriver,
	}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	status := map[string]string{"status": "OK", "storage": h.driver}

	if p, ok := h.store.(pinger); ok {
		if err := p.Ping(c.Request.Context()); err != nil {
			log.Printf("Health check: storage ping failed: %v", err)
			c.JSON(http.StatusServiceUnavailable, global.ErrorResponse("Storage connection failed", nil))
			return
		}
		status["connection"] = "Connected"
	}
	c.JSON(http.StatusOK, global.SuccessResponse(status))
}

func (h *Handler) CreateSession(c *gin.Context) {
	c.JSON(http.StatusCreated, global.SuccessResponse(gin.H{"session_id": uuid.NewString()}))
}

type saveTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *Handler) SaveToken(c *gin.Context) {
	var req saveTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.store.Set(c.Request.Context(), sessionID(c), storage.KeyToken, []byte(req.Token)); err != nil {
		respondError(c, err, "Failed to save token")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(gin.H{"saved": true}))
}

func (h *Handler) ClearToken(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), sessionID(c), storage.KeyToken); err != nil {
		respondError(c, err, "Failed to clear token")
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(gin.H{"saved": false}))
}

// respondError maps service and backend errors onto the response envelope
func respondError(c *gin.Context, err error, message string) {
	var (
		formErr       *checkout.ValidationError
		rejected      *checkout.RejectedError
		transitionErr *admin.TransitionError
		rangeErr      *admin.RangeError
		apiErr        *backend.APIError
	)

	switch {
	case errors.As(err, &formErr):
		details := make([]global.ValidationError, len(formErr.Fields))
		for i, f := range formErr.Fields {
			details[i] = global.ValidationError{Field: f.Field, Message: f.Field + " failed rule " + f.Rule, Code: f.Rule}
		}
		c.JSON(http.StatusBadRequest, global.ErrorResponse("Invalid checkout form", details))

	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, global.ErrorResponse("Cart is empty", global.FieldError("cart", "add at least one product before checking out", global.CodeEmptyCart)))

	case errors.As(err, &rejected):
		c.JSON(http.StatusUnprocessableEntity, global.ErrorResponse(rejected.Error(), nil))

	case errors.Is(err, admin.ErrNameRequired):
		c.JSON(http.StatusBadRequest, global.ErrorResponse("Name is required", global.FieldError("name", "name must not be empty", global.CodeRequired)))

	case errors.As(err, &transitionErr):
		if transitionErr.From == "" {
			c.JSON(http.StatusBadRequest, global.ErrorResponse("Unknown order status", global.FieldError("status", transitionErr.To+" is not an order status", global.CodeInvalidStatus)))
			return
		}
		c.JSON(http.StatusConflict, global.ErrorResponse(transitionErr.Error(), global.FieldError("status", "allowed: "+joinStatuses(admin.NextStatuses(transitionErr.From)), global.CodeInvalidTransition)))

	case errors.As(err, &rangeErr):
		c.JSON(http.StatusBadRequest, global.ErrorResponse("Invalid date range", global.FieldError("start_date", rangeErr.Error(), global.CodeInvalidRange)))

	case errors.Is(err, browser.ErrNotReady):
		c.JSON(http.StatusConflict, global.ErrorResponse("Price range not loaded", nil))

	case errors.Is(err, storage.ErrConflict):
		c.JSON(http.StatusConflict, global.ErrorResponse("Concurrent update, please retry", nil))

	case errors.As(err, &apiErr):
		switch {
		case apiErr.NotFound():
			c.JSON(http.StatusNotFound, global.ErrorResponse("Not found", nil))
		case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden:
			c.JSON(apiErr.Status, global.ErrorResponse("Not authorized", nil))
		case apiErr.Status == http.StatusUnprocessableEntity:
			c.JSON(http.StatusUnprocessableEntity, global.ErrorResponse(apiErr.Message, nil))
		default:
			log.Printf("%s: %v", message, err)
			c.JSON(http.StatusBadGateway, global.ErrorResponse(message, nil))
		}

	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, global.ErrorResponse(message, nil))

	default:
		log.Printf("%s: %v", message, err)
		c.JSON(http.StatusInternalServerError, global.ErrorResponse(message, nil))
	}
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, global.ErrorResponse("Invalid JSON format", global.FieldError("body", err.Error(), global.CodeJSONParse)))
}

func sessionID(c *gin.Context) string {
	return c.GetString("sessionID")
}

// idParam parses a positive integer path parameter, answering 400 otherwise
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, global.ErrorResponse("Invalid "+name, global.FieldError(name, name+" must be a positive integer", global.CodeInvalidFormat)))
		return 0, false
	}
	return id, true
}

func joinStatuses(statuses []string) string {
	if len(statuses) == 0 {
		return "none"
	}
	return strings.Join(statuses, ", ")
}
