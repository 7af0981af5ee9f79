package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vyjcapital/vyj_backend/controllers"
	"github.com/vyjcapital/vyj_backend/middleware"
	"github.com/vyjcapital/vyj_backend/services"
)

// RegisterKYCRoutes sets up document extraction, risk audits and
// username-presence searches
func RegisterKYCRoutes(e *echo.Echo, db *mongo.Client) {
	kycController := controllers.NewKYCController(db,
		services.NewOCRService(),
		services.NewRiskService(),
		services.NewUsernameSearchService(),
	)

	// Protected routes group
	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	r.POST("/kyc/scan-document", kycController.ScanDocument)
	r.POST("/kyc/risk-audit", kycController.RiskAudit)
	r.POST("/kyc/username-search", kycController.UsernameSearch)
	r.POST("/clients/:id/digital-audit", kycController.DigitalAudit)
}
