package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qrmenu/caching"
	"github.com/yeremiapane/qrmenu/config"
	"github.com/yeremiapane/qrmenu/controllers"
	"github.com/yeremiapane/qrmenu/metrics"
	"github.com/yeremiapane/qrmenu/middlewares"
	"github.com/yeremiapane/qrmenu/models"
	"github.com/yeremiapane/qrmenu/realtime"
	"github.com/yeremiapane/qrmenu/services"
	"gorm.io/gorm"
)

// Services bundles the per-entity services shared by the HTTP layer and the
// background jobs.
type Services struct {
	Auth           *services.AuthService
	Establishments *services.EstablishmentService
	Categories     *services.CategoryService
	Products       *services.ProductService
	Menus          *services.MenuService
	Tables         *services.TableService
	Orders         *services.OrderService
	Dashboard      *services.DashboardService
	Subscriptions  *services.SubscriptionService
}

// NewServices wires the services. storage may be nil.
func NewServices(db *gorm.DB, cfg *config.Config, cache caching.CacheService, publisher realtime.Publisher, storage services.ImageStorage) *Services {
	subscriptions := services.NewSubscriptionService(db, cfg.SubscriptionGrace)
	establishments := services.NewEstablishmentService(db, cache, subscriptions)
	return &Services{
		Auth:           services.NewAuthService(db, cfg.PublicBaseURL),
		Establishments: establishments,
		Categories:     services.NewCategoryService(db, cache),
		Products:       services.NewProductService(db, cache, storage),
		Menus:          services.NewMenuService(db, cache, establishments),
		Tables:         services.NewTableService(db, cache, publisher, cfg.PublicBaseURL),
		Orders:         services.NewOrderService(db, cache, publisher),
		Dashboard:      services.NewDashboardService(db, cache),
		Subscriptions:  subscriptions,
	}
}

type Deps struct {
	DB       *gorm.DB
	Config   *config.Config
	Services *Services
	Hub      *realtime.Hub
}

func SetupRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	cfg := deps.Config
	svc := deps.Services

	rateLimiter := middlewares.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	strictLimiter := middlewares.NewStrictRateLimiter()

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(cfg.CORSOrigins))
	r.Use(middlewares.LoggerMiddleware())
	r.Use(metrics.Middleware())
	r.Use(rateLimiter.RateLimit())

	// Inisialisasi controller
	userCtrl := controllers.NewUserController(svc.Auth)
	estCtrl := controllers.NewEstablishmentController(svc.Establishments)
	categoryCtrl := controllers.NewCategoryController(svc.Categories)
	menuCtrl := controllers.NewMenuController(svc.Products, svc.Menus)
	tableCtrl := controllers.NewTableController(svc.Tables)
	orderCtrl := controllers.NewOrderController(svc.Orders)
	adminCtrl := controllers.NewAdminController(svc.Dashboard, svc.Subscriptions)
	paymentCtrl := controllers.NewPaymentController(svc.Subscriptions, cfg.BillingWebhookSecret)
	realtimeCtrl := controllers.NewRealtimeController(deps.Hub, svc.Tables)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	public := r.Group("/")
	public.Use(strictLimiter.RateLimit())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
		public.POST("/auth/login-link", userCtrl.LoginLink)
	}
	r.GET("/auth/confirm", userCtrl.ConfirmEmail)
	r.GET("/auth/callback", userCtrl.AuthCallback)
	r.POST("/webhooks/billing", paymentCtrl.BillingWebhook)

	// -- CUSTOMER (no login) --
	r.GET("/menu/:slug", menuCtrl.PublicMenu)
	r.GET("/tables/:table_id/scan", tableCtrl.Scan)
	r.POST("/tables/:table_id/orders", orderCtrl.CreateOrder)
	r.GET("/tables/:table_id/sessions/:session_id/orders", orderCtrl.SessionOrders)

	// -- WEBSOCKETS --
	r.GET("/ws/tables/:table_id/sessions/:session_id", realtimeCtrl.SessionSocket)
	r.GET("/ws/establishments/:establishment_id",
		middlewares.WebSocketAuthMiddleware(deps.DB),
		middlewares.EstablishmentAccess(deps.DB),
		realtimeCtrl.EstablishmentSocket)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/api")
	auth.Use(middlewares.AuthMiddleware(deps.DB))

	auth.GET("/profile", userCtrl.Profile)
	auth.GET("/subscription", middlewares.RequireRole(models.RoleOwner), adminCtrl.GetSubscription)
	auth.GET("/subscription/invoices", middlewares.RequireRole(models.RoleOwner), adminCtrl.GetInvoices)

	auth.GET("/establishments", estCtrl.ListEstablishments)
	auth.POST("/establishments", middlewares.RequireRole(models.RoleOwner), estCtrl.CreateEstablishment)

	est := auth.Group("/establishments/:establishment_id")
	est.Use(middlewares.EstablishmentAccess(deps.DB))
	manage := middlewares.RequireManage()

	est.GET("", estCtrl.GetEstablishment)
	est.PATCH("", manage, estCtrl.UpdateEstablishment)
	est.DELETE("", manage, estCtrl.DeleteEstablishment)
	est.GET("/dashboard", adminCtrl.GetDashboardStats)

	// STAFF (owner)
	est.GET("/staff", manage, userCtrl.ListStaff)
	est.POST("/staff", manage, userCtrl.CreateStaff)

	// CATEGORIES
	est.GET("/categories", categoryCtrl.ListCategories)
	est.POST("/categories", manage, categoryCtrl.CreateCategory)
	est.PATCH("/categories/:category_id", manage, categoryCtrl.UpdateCategory)
	est.DELETE("/categories/:category_id", manage, categoryCtrl.DeleteCategory)

	// PRODUCTS
	est.GET("/products", menuCtrl.ListProducts)
	est.POST("/products", manage, menuCtrl.CreateProduct)
	est.GET("/products/:product_id", menuCtrl.GetProduct)
	est.PATCH("/products/:product_id", manage, menuCtrl.UpdateProduct)
	est.DELETE("/products/:product_id", manage, menuCtrl.DeleteProduct)
	est.PATCH("/products/:product_id/availability", menuCtrl.SetAvailability)
	est.POST("/products/:product_id/image-upload", manage, menuCtrl.ImageUpload)

	// TABLES
	est.GET("/tables", tableCtrl.GetAllTables)
	est.POST("/tables", manage, tableCtrl.CreateTable)
	est.GET("/tables/:table_id", tableCtrl.GetTable)
	est.PATCH("/tables/:table_id", manage, tableCtrl.UpdateTable)
	est.DELETE("/tables/:table_id", manage, tableCtrl.DeleteTable)
	est.POST("/tables/:table_id/open", tableCtrl.OpenSession)
	est.POST("/tables/:table_id/close", tableCtrl.CloseSession)
	est.GET("/tables/:table_id/qr", tableCtrl.QRCode)

	// ORDERS
	est.GET("/orders", orderCtrl.GetAllOrders)
	est.GET("/orders/:order_id", orderCtrl.GetOrderByID)
	est.PATCH("/orders/:order_id/status", orderCtrl.UpdateOrderStatus)
	est.DELETE("/orders/:order_id", manage, orderCtrl.DeleteOrder)

	return r
}
