package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vyjcapital/vyj_backend/ledger"
	"github.com/vyjcapital/vyj_backend/repositories"
	"github.com/vyjcapital/vyj_backend/services"
	"github.com/vyjcapital/vyj_backend/websocket"
)

// SetupRoutes configures all API routes by calling individual route registration functions
func SetupRoutes(e *echo.Echo, db *mongo.Client, hub *websocket.Hub, engine *ledger.Engine, repo *repositories.LoanRepository, mailer *services.Mailer) {
	// Health check for the container orchestrator
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Dashboard event stream
	e.GET("/ws", func(c echo.Context) error {
		return websocket.HandleWebSocket(c, hub)
	})

	// Register all route groups
	RegisterClientRoutes(e, db, repo)
	RegisterLoanRoutes(e, db, engine, repo, hub, mailer)
	RegisterKYCRoutes(e, db)
}
