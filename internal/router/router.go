package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sokocart/sokocart-backend/config"
	"github.com/sokocart/sokocart-backend/internal/app/controller"
	"github.com/sokocart/sokocart-backend/internal/middleware"
)

type Router struct {
	authController    *controller.AuthController
	productController *controller.ProductController
	cartController    *controller.CartController
	couponController  *controller.CouponController
	orderController   *controller.OrderController
	reportController  *controller.ReportController
	authMiddleware    *middleware.AuthMiddleware
	config            *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	productController *controller.ProductController,
	cartController *controller.CartController,
	couponController *controller.CouponController,
	orderController *controller.OrderController,
	reportController *controller.ReportController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:    authController,
		productController: productController,
		cartController:    cartController,
		couponController:  couponController,
		orderController:   orderController,
		reportController:  reportController,
		authMiddleware:    authMiddleware,
		config:            cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "SOKOCART API is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/logout", r.authMiddleware.Authenticate(), r.authController.Logout)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetMe)
		}

		products := v1.Group("/products")
		{
			products.GET("", r.productController.GetProducts)
			products.GET("/:id", r.productController.GetProductByID)

			products.POST("",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole("admin"),
				r.productController.CreateProduct,
			)
			products.PUT("/:id",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole("admin"),
				r.productController.UpdateProduct,
			)
			products.DELETE("/:id",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole("admin"),
				r.productController.DeleteProduct,
			)
		}

		// Cart endpoints accept either a logged-in user or a guest
		// identified by the X-Session-Key header.
		cart := v1.Group("/cart")
		cart.Use(r.authMiddleware.OptionalAuthenticate())
		{
			cart.GET("", r.cartController.GetCart)
			cart.DELETE("", r.cartController.Clear)
			cart.POST("/items", r.cartController.AddItem)
			cart.PUT("/items/:id", r.cartController.UpdateItem)
			cart.DELETE("/items/:id", r.cartController.RemoveItem)
			cart.POST("/checkout", r.cartController.Checkout)

			cart.POST("/coupon", r.couponController.Apply)
			cart.DELETE("/coupon", r.couponController.Remove)
			cart.GET("/coupon/preview", r.couponController.Preview)
		}

		orders := v1.Group("/orders")
		orders.Use(r.authMiddleware.Authenticate())
		{
			orders.GET("", r.orderController.GetOrders)
			orders.GET("/:id", r.orderController.GetOrderByID)

			orders.PUT("/:id/status",
				r.authMiddleware.RequireRole("admin"),
				r.orderController.UpdateOrderStatus,
			)
		}

		admin := v1.Group("/admin")
		admin.Use(r.authMiddleware.Authenticate(), r.authMiddleware.RequireRole("admin"))
		{
			admin.GET("/coupons", r.couponController.ListCoupons)
			admin.POST("/coupons", r.couponController.CreateCoupon)
			admin.PUT("/coupons/:id", r.couponController.UpdateCoupon)
			admin.DELETE("/coupons/:id", r.couponController.DeactivateCoupon)
			admin.GET("/coupons/:id/usages", r.couponController.GetUsageHistory)

			admin.GET("/reports/coupon-usage", r.reportController.DownloadCouponUsage)
			admin.POST("/reports/coupon-usage", r.reportController.ExportCouponUsage)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Session-Key")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
