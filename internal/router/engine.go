package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/datx24/storefront/pkg/global"
)

var Router *gin.Engine

func NewEngine(cfg global.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.Default()

	engine.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", SessionHeader},
		ExposeHeaders:    []string{"Content-Length", "X-Cache"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	return engine
}

func InitEngine(cfg global.Config) {
	Router = NewEngine(cfg)
}

func InitializeRoutes(h *Handler) {
	RegisterRoutes(Router, h)
}

func RegisterRoutes(engine *gin.Engine, h *Handler) {
	api := engine.Group("/api")
	{
		api.GET("/health", h.HealthCheck)
		api.POST("/sessions", h.CreateSession)

		sessions := api.Group("/sessions/:sessionId", RequireSession())
		{
			sessions.PUT("/token", h.SaveToken)
			sessions.DELETE("/token", h.ClearToken)
		}

		cart := api.Group("/cart/:sessionId", RequireSession())
		{
			cart.GET("", h.GetCart)
			cart.POST("/items", h.AddToCart)
			cart.PUT("/items/:productId", h.UpdateCartItem)
			cart.DELETE("/items/:productId", h.RemoveFromCart)
			cart.DELETE("/clear", h.ClearCart)
		}

		wishlist := api.Group("/wishlist/:sessionId", RequireSession())
		{
			wishlist.GET("", h.GetWishlist)
			wishlist.POST("/:productId/toggle", h.ToggleWishlist)
		}

		catalog := api.Group("/catalog")
		{
			catalog.GET("/categories", h.GetCategories)
			catalog.GET("/products/:slug", h.GetProductBySlug)
		}

		browse := api.Group("/browse/:sessionId/:slug", RequireSession())
		{
			browse.GET("", h.GetBrowser)
			browse.PUT("/min", h.DragMin)
			browse.PUT("/max", h.DragMax)
			browse.POST("/apply", h.ApplyPriceFilter)
			browse.POST("/reset", h.ResetPriceFilter)
			browse.POST("/page/:page", h.GoToPage)
		}

		checkout := api.Group("/checkout/:sessionId", RequireSession())
		{
			checkout.GET("/quote", h.GetQuote)
			checkout.POST("", h.SubmitOrder)
		}

		admin := api.Group("/admin", AdminAuth(h.store))
		{
			admin.POST("/categories", h.CreateCategory)
			admin.PUT("/categories/:id", h.UpdateCategory)
			admin.DELETE("/categories/:id", h.DeleteCategory)

			admin.GET("/attributes", h.GetAttributes)
			admin.POST("/attributes", h.CreateAttribute)
			admin.PUT("/attributes/:id", h.UpdateAttribute)
			admin.DELETE("/attributes/:id", h.DeleteAttribute)

			admin.POST("/products", h.CreateProduct)
			admin.PUT("/products/:id", h.UpdateProduct)
			admin.DELETE("/products/:id", h.DeleteProduct)

			admin.GET("/orders", h.GetOrders)
			admin.PUT("/orders/:id/status", h.UpdateOrderStatus)

			admin.GET("/statistics", h.GetStatistics)
			admin.GET("/statistics/insights", h.GetStatisticsInsights)
			admin.GET("/insights/categories/:slug", h.GetCategoryInsights)
			admin.GET("/sessions/activity", h.GetSessionActivity)
		}
	}
}
