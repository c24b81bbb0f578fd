package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/facturas/config"
	"github.com/yourusername/facturas/middleware"
	"github.com/yourusername/facturas/models"
	"gorm.io/gorm"
)

// SetupRouter wires every endpoint under /api/v1. Viewers are read-only.
func SetupRouter(cfg *config.Config, db *gorm.DB, invoices InvoiceService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "facturas",
		})
	})

	authHandler := NewAuthHandler(db, cfg)
	userHandler := NewUserHandler(db)
	companyHandler := NewCompanyHandler(db, invoices, cfg.DefaultSoftwareID)
	articleHandler := NewArticleHandler(db)
	invoiceHandler := NewInvoiceHandler(invoices, cfg.FinalizeRetries)

	api := r.Group("/api/v1")
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/refresh", authHandler.Refresh)

		authed := api.Group("/")
		authed.Use(middleware.JwtAuthMiddleware(cfg))
		writers := middleware.RequireRole(models.RoleAdmin, models.RoleUser)

		authed.GET("/auth/me", authHandler.Me)
		authed.POST("/auth/change-password", authHandler.ChangePassword)

		users := authed.Group("/users")
		users.Use(middleware.RequireRole(models.RoleAdmin))
		{
			users.GET("", userHandler.ListUsers)
			users.POST("", userHandler.CreateUser)
			users.PUT("/:id", userHandler.UpdateUser)
			users.DELETE("/:id", userHandler.DeleteUser)
		}

		authed.GET("/companies", companyHandler.ListCompanies)
		authed.GET("/companies/:id", companyHandler.GetCompany)
		authed.GET("/companies/:id/chain-status", companyHandler.ChainStatus)
		authed.POST("/companies", writers, companyHandler.CreateCompany)
		authed.PUT("/companies/:id", writers, companyHandler.UpdateCompany)
		authed.PUT("/companies/:id/verifactu", middleware.RequireRole(models.RoleAdmin), companyHandler.UpdateVerifactu)
		authed.DELETE("/companies/:id", middleware.RequireRole(models.RoleAdmin), companyHandler.DeleteCompany)

		authed.GET("/articles", articleHandler.ListArticles)
		authed.GET("/articles/:id", articleHandler.GetArticle)
		authed.POST("/articles", writers, articleHandler.CreateArticle)
		authed.PUT("/articles/:id", writers, articleHandler.UpdateArticle)
		authed.DELETE("/articles/:id", writers, articleHandler.DeleteArticle)

		authed.GET("/invoices", invoiceHandler.ListInvoices)
		authed.GET("/invoices/:id", invoiceHandler.GetInvoice)
		authed.GET("/invoices/:id/verify", invoiceHandler.VerifyInvoice)
		authed.GET("/invoices/:id/qr", invoiceHandler.InvoiceQR)
		authed.GET("/invoices/:id/audit", invoiceHandler.InvoiceAudit)
		authed.POST("/invoices", writers, invoiceHandler.CreateInvoice)
		authed.PUT("/invoices/:id", writers, invoiceHandler.UpdateInvoice)
		authed.DELETE("/invoices/:id", writers, invoiceHandler.DeleteInvoice)
		authed.POST("/invoices/:id/finalize", writers, invoiceHandler.FinalizeInvoice)
		authed.POST("/invoices/:id/cancel", writers, invoiceHandler.CancelInvoice)
	}

	return r
}
