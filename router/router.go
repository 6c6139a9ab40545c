package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qrdine/table-order-app/cache"
	"github.com/qrdine/table-order-app/config"
	"github.com/qrdine/table-order-app/controllers"
	"github.com/qrdine/table-order-app/middlewares"
	"github.com/qrdine/table-order-app/realtime"
	"github.com/qrdine/table-order-app/services"
)

// SetupRouter wires services, controllers and routes. The hub doubles as the
// Publisher every service emits through.
func SetupRouter(db *gorm.DB, sessionCache cache.SessionCache, hub *realtime.Hub, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())

	// 50 requests per second per IP across the whole API.
	rateLimiter := middlewares.NewRateLimiter(50, 1)
	r.Use(rateLimiter.RateLimit())

	opts := services.SessionOptions{GeofenceBypass: cfg.GeofenceBypass}
	sessionSvc := services.NewSessionService(db, sessionCache, opts)
	orderSvc := services.NewOrderService(db, sessionSvc, hub, opts)
	treatSvc := services.NewTreatService(db, hub)

	userCtrl := controllers.NewUserController(db)
	sessionCtrl := controllers.NewSessionController(sessionSvc)
	orderCtrl := controllers.NewOrderController(db, orderSvc)
	treatCtrl := controllers.NewTreatController(treatSvc)
	tableCtrl := controllers.NewTableController(db, sessionSvc, cfg.ScanBaseURL)
	menuCtrl := controllers.NewMenuController(db, hub)
	categoryCtrl := controllers.NewMenuCategoryController(db)
	wsCtrl := controllers.NewWSController(hub)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	// Customer flow, no staff auth: a valid session token is the credential.
	r.POST("/sessions/start", sessionCtrl.StartSession)
	r.GET("/sessions/verify", sessionCtrl.VerifySession)
	r.POST("/sessions/extend", sessionCtrl.ExtendSession)
	r.POST("/sessions/end", sessionCtrl.EndSession)

	r.GET("/categories", categoryCtrl.GetAllCategories)
	r.GET("/menus", menuCtrl.GetAllMenus)

	r.POST("/orders", orderCtrl.CreateOrder)
	r.GET("/orders/:order_id", orderCtrl.GetOrderByID)

	r.POST("/treats", treatCtrl.CreateTreat)
	r.GET("/treats", treatCtrl.ListTreats)

	// Kitchen/admin displays subscribe per restaurant.
	r.GET("/ws/:restaurant_id", wsCtrl.Subscribe)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/admin")
	auth.Use(middlewares.AuthMiddleware())

	auth.GET("/tables", tableCtrl.GetAllTables)
	auth.POST("/tables", tableCtrl.CreateTable)
	auth.PATCH("/tables/:table_id", tableCtrl.UpdateTable)
	auth.DELETE("/tables/:table_id", tableCtrl.DeleteTable)
	auth.POST("/tables/:table_id/regenerate-qr", tableCtrl.RegenerateQRCode)
	auth.GET("/tables/:table_id/qrcode.png", tableCtrl.GetQRCodePNG)

	auth.POST("/categories", categoryCtrl.CreateCategory)
	auth.PATCH("/categories/:cat_id", categoryCtrl.UpdateCategory)
	auth.DELETE("/categories/:cat_id", categoryCtrl.DeleteCategory)

	auth.POST("/menus", menuCtrl.CreateMenu)
	auth.PATCH("/menus/:menu_id", menuCtrl.UpdateMenu)
	auth.DELETE("/menus/:menu_id", menuCtrl.DeleteMenu)

	auth.GET("/orders", orderCtrl.GetAllOrders)
	auth.GET("/orders/:order_id", orderCtrl.GetOrderByID)
	auth.PATCH("/orders/:order_id/status", orderCtrl.UpdateOrderStatus)
	auth.POST("/orders/:order_id/cancel", orderCtrl.CancelOrder)
	auth.GET("/kitchen/display", orderCtrl.GetKitchenDisplay)

	auth.PATCH("/treats/:treat_id/status", treatCtrl.UpdateTreatStatus)

	return r
}
