package handler

import (
	"chitpay/internal/config"
	"chitpay/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, publisher service.EventPublisher, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	h := NewHandler(db, rdb, publisher, cfg)

	authRequired := AuthMiddleware(cfg.Auth.JWTSecret, h.authService)
	adminOnly := AdminOnlyMiddleware()

	api := r.Group("/api")
	{
		// 认证相关
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
			auth.GET("/users/count", h.UserCount)
		}

		// 缴款相关
		payments := api.Group("/payments")
		payments.Use(authRequired)
		{
			payments.GET("", adminOnly, h.ListPayments)
			payments.GET("/my-payments", h.MyPayments)
			payments.POST("", h.CreatePayment)
			payments.DELETE("/:id", h.DeletePayment)
			payments.POST("/user-info", h.SaveUserInfo)
			payments.GET("/search-user", h.SearchUser)
			payments.GET("/admin-search-user", adminOnly, h.AdminSearchUser)
			payments.GET("/stats", adminOnly, h.PaymentStats)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
