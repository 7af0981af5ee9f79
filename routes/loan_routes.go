package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vyjcapital/vyj_backend/controllers"
	"github.com/vyjcapital/vyj_backend/ledger"
	"github.com/vyjcapital/vyj_backend/middleware"
	"github.com/vyjcapital/vyj_backend/repositories"
	"github.com/vyjcapital/vyj_backend/services"
	"github.com/vyjcapital/vyj_backend/websocket"
)

// RegisterLoanRoutes sets up origination, payments, statements and the
// dashboard
func RegisterLoanRoutes(e *echo.Echo, db *mongo.Client, engine *ledger.Engine, repo *repositories.LoanRepository, hub *websocket.Hub, mailer *services.Mailer) {
	loanController := controllers.NewLoanController(db, repo, mailer)
	paymentController := controllers.NewPaymentController(engine, repo, hub)

	// Protected routes group
	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	// Loan lifecycle routes
	r.POST("/loans", loanController.CreateLoan)
	r.GET("/loans/:id", loanController.GetLoan)
	r.PUT("/loans/:id/arrears", loanController.UpdateArrears)
	r.GET("/loans/:id/transactions", loanController.GetTransactions)
	r.GET("/loans/:id/statement", loanController.GetStatement)
	r.POST("/loans/:id/statement/email", loanController.EmailStatement)
	r.GET("/clients/:id/loans", loanController.ListClientLoans)

	// Payment routes
	r.POST("/loans/:id/payments", paymentController.ProcessPayment)
	r.GET("/receipts/:receiptNo", paymentController.GetReceipt)
	r.GET("/receipts/:receiptNo/qr", paymentController.GetReceiptQR)

	// Dashboard
	r.GET("/dashboard", loanController.Dashboard)
}
