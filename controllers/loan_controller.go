package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vyjcapital/vyj_backend/config"
	"github.com/vyjcapital/vyj_backend/ledger"
	"github.com/vyjcapital/vyj_backend/models"
	"github.com/vyjcapital/vyj_backend/repositories"
	"github.com/vyjcapital/vyj_backend/services"
)

type LoanController struct {
	db     *mongo.Client
	repo   *repositories.LoanRepository
	mailer *services.Mailer
}

func NewLoanController(db *mongo.Client, repo *repositories.LoanRepository, mailer *services.Mailer) *LoanController {
	return &LoanController{db: db, repo: repo, mailer: mailer}
}

// normalizeMonthlyRate converts the quoted rate into the monthly fraction
// the accrual sweep charges. Annual quotes divide by 1200, monthly quotes
// by 100.
func normalizeMonthlyRate(rate float64, ratePeriod string) float64 {
	if ratePeriod == "annual" {
		return rate / 1200
	}
	return rate / 100
}

// firstDueDate places the first collection one payment period after
// origination
func firstDueDate(frequency string, from time.Time) time.Time {
	switch frequency {
	case models.FrequencyBiweekly:
		return from.AddDate(0, 0, 15)
	case models.FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// buildLoan turns an origination request into a loan record with balances
// opened at the principal and the first due date set by frequency
func buildLoan(req *models.CreateLoanRequest, clientID primitive.ObjectID, clientName string) (*models.Loan, error) {
	frequency := req.PaymentFrequency
	if frequency == "" {
		frequency = models.FrequencyMonthly
	}

	now := time.Now()
	due := firstDueDate(frequency, now)

	loan := &models.Loan{
		ID:               primitive.NewObjectID(),
		ClientID:         clientID,
		ClientName:       clientName,
		Principal:        req.Amount,
		InterestPending:  0,
		Arrears:          0,
		Method:           req.Method,
		MonthlyRate:      normalizeMonthlyRate(req.Rate, req.RatePeriod),
		PaymentFrequency: frequency,
		TermMonths:       req.TermMonths,
		NextDueDate:      &due,
		Status:           models.LoanStatusActive,
		GuarantorName:    req.GuarantorName,
		CreatedAt:        now,
	}
	if req.Guarantee != "" {
		loan.Guarantee = &models.Guarantee{Type: "declared", Description: req.Guarantee}
	}
	if req.ReferrerID != "" {
		referrerID, err := primitive.ObjectIDFromHex(req.ReferrerID)
		if err != nil {
			return nil, fmt.Errorf("invalid referrer ID: %w", err)
		}
		loan.ReferrerID = &referrerID
	}
	return loan, nil
}

// CreateLoan originates a loan for an existing client
func (lc *LoanController) CreateLoan(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.CreateLoanRequest
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

	clientID, err := primitive.ObjectIDFromHex(req.ClientID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid client ID format",
		})
	}

	var client models.Client
	err = config.GetCollection(lc.db, "clients").FindOne(ctx, bson.M{"_id": clientID}).Decode(&client)
	if err == mongo.ErrNoDocuments {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Client not found",
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch client",
		})
	}

	loan, err := buildLoan(&req, client.ID, client.FullName)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid loan request",
			Data:    err.Error(),
		})
	}

	if err := lc.repo.CreateLoan(ctx, loan); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create loan",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Loan created successfully",
		Data:    loan,
	})
}

// GetLoan returns one loan by id
func (lc *LoanController) GetLoan(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid loan ID format",
		})
	}

	loan, err := lc.repo.GetLoan(ctx, id)
	if err == ledger.ErrLoanNotFound {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Loan not found",
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch loan",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Loan retrieved successfully",
		Data:    loan,
	})
}

// ListClientLoans returns all loans for one client
func (lc *LoanController) ListClientLoans(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid client ID format",
		})
	}

	loans, err := lc.repo.ListLoansByClient(ctx, clientID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to list loans",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Loans retrieved successfully",
		Data:    loans,
	})
}

// UpdateArrears is the operator adjustment of an arrears balance. Only
// loans the daily sweep flagged as editable accept it.
func (lc *LoanController) UpdateArrears(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid loan ID format",
		})
	}

	var req models.UpdateArrearsRequest
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

	err = lc.repo.UpdateArrears(ctx, id, req.Arrears)
	if err == ledger.ErrLoanNotFound {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Loan not found",
		})
	}
	if err == ledger.ErrConflict {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "Loan was modified concurrently, retry the adjustment",
		})
	}
	if err != nil {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Arrears updated successfully",
	})
}

// GetTransactions returns a loan's ledger entries
func (lc *LoanController) GetTransactions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid loan ID format",
		})
	}

	entries, err := lc.repo.GetTransactions(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to list transactions",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Transactions retrieved successfully",
		Data:    entries,
	})
}

// buildStatement assembles the current account statement for a loan
func (lc *LoanController) buildStatement(ctx context.Context, id primitive.ObjectID) (*models.Statement, error) {
	loan, err := lc.repo.GetLoan(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.Statement{
		LoanID:          loan.ID.Hex(),
		ClientName:      loan.ClientName,
		Method:          loan.Method,
		Principal:       loan.Principal,
		InterestPending: loan.InterestPending,
		Arrears:         loan.Arrears,
		TotalDueToday:   loan.TotalDue(),
		NextDueDate:     loan.NextDueDate,
		Status:          loan.Status,
		GeneratedAt:     time.Now(),
	}, nil
}

// GetStatement returns the structured account statement for a loan
func (lc *LoanController) GetStatement(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid loan ID format",
		})
	}

	statement, err := lc.buildStatement(ctx, id)
	if err == ledger.ErrLoanNotFound {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Loan not found",
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to build statement",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Statement generated successfully",
		Data:    statement,
	})
}

// EmailStatement generates the statement and mails it to the given address
func (lc *LoanController) EmailStatement(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid loan ID format",
		})
	}

	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
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
			Message: "A valid email address is required",
		})
	}

	if lc.mailer == nil || !lc.mailer.Enabled() {
		return c.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Email delivery is not configured",
		})
	}

	statement, err := lc.buildStatement(ctx, id)
	if err == ledger.ErrLoanNotFound {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Loan not found",
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to build statement",
		})
	}

	if err := lc.mailer.SendStatement(req.Email, statement); err != nil {
		log.Printf("statement email to %s failed: %v", req.Email, err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to send statement email",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Statement emailed successfully",
	})
}

// Dashboard returns the portfolio summary cards plus the loans currently
// in arrears
func (lc *LoanController) Dashboard(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	summary, arrearsLoans, err := lc.repo.PortfolioSummary(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to build portfolio summary",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Dashboard retrieved successfully",
		Data: bson.M{
			"summary":      summary,
			"arrearsLoans": arrearsLoans,
		},
	})
}
