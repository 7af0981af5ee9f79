package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vyjcapital/vyj_backend/controllers"
	"github.com/vyjcapital/vyj_backend/middleware"
	"github.com/vyjcapital/vyj_backend/repositories"
)

// RegisterClientRoutes sets up the expediente and referrer routes
func RegisterClientRoutes(e *echo.Echo, db *mongo.Client, repo *repositories.LoanRepository) {
	clientController := controllers.NewClientController(db, repo)
	referrerController := controllers.NewReferrerController(db)

	// Protected routes group
	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	// Client intake and expediente routes
	r.POST("/clients", clientController.CreateClient)
	r.GET("/clients/search", clientController.SearchClients)
	r.GET("/clients/:id", clientController.GetClient)
	r.POST("/clients/:id/documents", clientController.AddDocument)
	r.GET("/clients/:id/documents", clientController.ListDocuments)
	r.DELETE("/clients/:id/documents/:docId", clientController.DeleteDocument)
	r.POST("/clients/:id/profiles", clientController.LinkProfile)

	// Referrer routes
	r.POST("/referrers", referrerController.CreateReferrer)
	r.GET("/referrers", referrerController.ListReferrers)
	r.GET("/referrers/:id", referrerController.GetReferrer)
	r.GET("/referrers/:id/commissions", referrerController.ListCommissions)
	r.PUT("/referrers/commissions/:commissionId/paid", referrerController.MarkCommissionPaid)
}
