package handlers

import (
	"time"

	"github.com/chachabrian/foodbridge-backend/internal/config"
	"github.com/chachabrian/foodbridge-backend/internal/middleware"
	"github.com/chachabrian/foodbridge-backend/internal/models"
	"github.com/chachabrian/foodbridge-backend/internal/services"
	"github.com/chachabrian/foodbridge-backend/pkg/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies is everything the router needs.
type Dependencies struct {
	Config   *config.Config
	DB       *gorm.DB
	Store    *services.Store
	Hub      *services.Hub
	Services *services.Services
	Log      *zap.Logger
	// UploadDir is served at /uploads when images are stored locally.
	UploadDir string
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := utils.RegisterValidations(v); err != nil {
			return nil, err
		}
	}

	cfg := deps.Config
	r := gin.New()
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(middleware.Recovery(deps.Log))

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.FrontendOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.CSRFHeaderName, middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.MaxAge = 12 * time.Hour
	r.Use(cors.New(corsConfig))

	if deps.UploadDir != "" {
		r.Static("/uploads", deps.UploadDir)
	}

	svc := deps.Services
	auth := func(roles ...string) gin.HandlerFunc {
		return middleware.AuthMiddleware(cfg.JWTSecret, deps.Store, roles...)
	}
	csrf := middleware.CSRF(cfg.CSRFEnabled)

	r.GET("/health", Health(deps.DB, deps.Store))
	r.GET("/csrf-token", CSRFToken(cfg))
	r.GET("/ws", middleware.WebSocketAuth(cfg.JWTSecret, deps.Store), WebSocketHandler(deps.Hub))

	user := r.Group("/user")
	{
		user.GET("/csrf-token", CSRFToken(cfg))
		user.POST("/register", RegisterUser(svc.Accounts))
		user.POST("/login", Login(svc.Accounts, cfg, models.RoleUser))

		protected := user.Group("", auth(models.RoleUser), csrf)
		protected.POST("/logout", Logout(svc.Accounts, cfg, models.RoleUser))
		protected.GET("/home", GetUserHome(svc.Users))
		protected.GET("/profile", GetUserProfile(svc.Users))
		protected.POST("/sendRequest", SendRequest(svc.Users))
		protected.PUT("/:userId", UpdateUser(svc.Users))
	}

	donor := r.Group("/donor")
	{
		donor.POST("/register", RegisterDonor(svc.Accounts))
		donor.POST("/login", Login(svc.Accounts, cfg, models.RoleDonor))

		protected := donor.Group("", auth(models.RoleDonor), csrf)
		protected.POST("/logout", Logout(svc.Accounts, cfg, models.RoleDonor))
		protected.GET("/home", GetDonorHome(svc.Donors))
		protected.GET("/profile", GetDonorProfile(svc.Donors))
	}

	post := r.Group("/post")
	{
		post.GET("/getPosts", GetPosts(svc.Posts))
		post.GET("/getPost/:id", GetPost(svc.Posts))

		protected := post.Group("", auth(models.RoleDonor), csrf)
		protected.POST("/addPost", AddPost(svc.Posts))
		protected.GET("/myPosts", GetMyPosts(svc.Posts))
		protected.DELETE("/deletePost/:id", DeletePost(svc.Posts))
	}

	request := r.Group("/request", csrf)
	{
		forUser := request.Group("", auth(models.RoleUser))
		forUser.POST("/addRequest", AddRequest(svc.Requests))
		forUser.GET("/getUserRequests", GetUserRequests(svc.Requests))
		forUser.GET("/getAcceptedRequests", GetAcceptedRequests(svc.Requests))

		forDonor := request.Group("", auth(models.RoleDonor))
		forDonor.GET("/getRequests", GetRequests(svc.Requests))
		forDonor.PATCH("/acceptRequest/:id", AcceptRequest(svc.Requests))
		forDonor.DELETE("/rejectRequest/:id", RejectRequest(svc.Requests))
	}

	deliveryBoy := r.Group("/deliveryboy")
	{
		deliveryBoy.POST("/login", Login(svc.Accounts, cfg, models.RoleDeliveryBoy))

		owner := deliveryBoy.Group("", auth(models.RoleUser), csrf)
		owner.POST("/register", RegisterDeliveryBoy(svc.Accounts))
		owner.GET("/getAllDeliveryBoys", GetAllDeliveryBoys(svc.DeliveryBoys))
		owner.GET("/findNearbyPosts", FindNearbyDeliveryBoys(svc.DeliveryBoys))

		deliveryBoy.PATCH("/toggle-status/:id", auth(models.RoleDeliveryBoy, models.RoleUser), csrf, ToggleDeliveryBoyStatus(svc.DeliveryBoys))

		self := deliveryBoy.Group("", auth(models.RoleDeliveryBoy), csrf)
		self.POST("/logout", Logout(svc.Accounts, cfg, models.RoleDeliveryBoy))
		self.POST("/location", UpdateDeliveryBoyLocation(svc.DeliveryBoys))
		self.GET("/status", GetDeliveryBoyStatus(svc.DeliveryBoys))
		self.GET("/orders", GetDeliveryBoyOrders(svc.DeliveryBoys))
	}

	order := r.Group("/order", csrf)
	{
		order.POST("/assignOrder", auth(models.RoleUser), AssignOrder(svc.Orders))
		order.GET("/getOrders", auth(models.RoleUser), GetOrders(svc.Orders))
		order.GET("/getOrder/:id", auth(), GetOrder(svc.Orders))
		order.PATCH("/updateStatus/:id", auth(models.RoleDeliveryBoy), UpdateOrderStatus(svc.Orders))
		order.POST("/rate/:id", auth(models.RoleDonor), RateOrder(svc.Orders))
	}

	notifications := r.Group("/notifications", auth(), csrf)
	{
		notifications.POST("/register-token", RegisterFCMToken(svc.Accounts))
		notifications.DELETE("/remove-token", RemoveFCMToken(svc.Accounts))
	}

	return r, nil
}
