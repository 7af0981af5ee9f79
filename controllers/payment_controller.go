package controllers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vyjcapital/vyj_backend/ledger"
	"github.com/vyjcapital/vyj_backend/models"
	"github.com/vyjcapital/vyj_backend/repositories"
	"github.com/vyjcapital/vyj_backend/utils"
	"github.com/vyjcapital/vyj_backend/websocket"
)

type PaymentController struct {
	engine *ledger.Engine
	repo   *repositories.LoanRepository
	hub    *websocket.Hub
}

func NewPaymentController(engine *ledger.Engine, repo *repositories.LoanRepository, hub *websocket.Hub) *PaymentController {
	return &PaymentController{engine: engine, repo: repo, hub: hub}
}

// ProcessPayment runs a payment through the allocation waterfall. The
// referral commission and the push notifications run after the response;
// their failures are logged and never affect the recorded payment.
func (pc *PaymentController) ProcessPayment(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	loanID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid loan ID format",
		})
	}

	var req models.PaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
			Data:    err.Error(),
		})
	}
	if err := validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}

	result, err := pc.engine.ApplyPayment(ctx, loanID, req.Amount, req.ApplySurplus, req.PaymentType)
	if err == ledger.ErrLoanNotFound {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Loan not found",
		})
	}
	if err == ledger.ErrInvalidAmount {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Payment amount must be positive",
		})
	}
	if err != nil {
		log.Printf("payment on loan %s failed: %v", loanID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to process payment",
		})
	}

	go pc.afterPayment(loanID, &req, result)

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payment processed successfully",
		Data:    result,
	})
}

// afterPayment handles the best-effort side effects of a committed payment
func (pc *PaymentController) afterPayment(loanID primitive.ObjectID, req *models.PaymentRequest, result *models.PaymentResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := pc.engine.ProcessReferralCommission(ctx, loanID, result.InterestPaid); err != nil {
		log.Printf("referral commission for loan %s failed: %v", loanID.Hex(), err)
	}

	if pc.hub != nil {
		pc.hub.NotifyPaymentProcessed(result)
	}

	if len(req.NotifyDeviceTokens) > 0 {
		loan, err := pc.repo.GetLoan(ctx, loanID)
		if err != nil {
			log.Printf("payment push lookup of loan %s failed: %v", loanID.Hex(), err)
			return
		}
		utils.NotifyPaymentReceived(req.NotifyDeviceTokens, loan.ClientName, req.Amount, result.NewBalance, result.ReceiptNo)
	}
}

// GetReceipt looks a ledger entry up by receipt number
func (pc *PaymentController) GetReceipt(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	receiptNo := c.Param("receiptNo")
	entry, err := pc.repo.GetTransactionByReceipt(ctx, receiptNo)
	if err == mongo.ErrNoDocuments {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Receipt not found",
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch receipt",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Receipt retrieved successfully",
		Data:    entry,
	})
}

// GetReceiptQR renders the verification QR code for a receipt as PNG
func (pc *PaymentController) GetReceiptQR(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	receiptNo := c.Param("receiptNo")
	if _, err := pc.repo.GetTransactionByReceipt(ctx, receiptNo); err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Receipt not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch receipt",
		})
	}

	size := 0
	if s := c.QueryParam("size"); s != "" {
		size, _ = strconv.Atoi(s)
	}

	png, err := utils.ReceiptQR(receiptNo, size)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate QR code",
		})
	}

	return c.Blob(http.StatusOK, "image/png", png)
}
