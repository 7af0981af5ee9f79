package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vyjcapital/vyj_backend/config"
	"github.com/vyjcapital/vyj_backend/models"
)

type ReferrerController struct {
	db *mongo.Client
}

func NewReferrerController(db *mongo.Client) *ReferrerController {
	return &ReferrerController{db: db}
}

// CreateReferrer registers a commission earner. The commission policy is
// fixed at registration; PERCENTAGE values are fractions of interest paid,
// FLAT_ONE_TIME values are absolute amounts.
func (rc *ReferrerController) CreateReferrer(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.CreateReferrerRequest
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

	referrer := models.Referrer{
		ID:              primitive.NewObjectID(),
		FullName:        req.FullName,
		Phone:           req.Phone,
		CommissionType:  req.CommissionType,
		CommissionValue: req.CommissionValue,
		CreatedAt:       time.Now(),
	}

	if _, err := config.GetCollection(rc.db, "referrers").InsertOne(ctx, referrer); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create referrer",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Referrer created successfully",
		Data:    referrer,
	})
}

// GetReferrer returns one referrer by id
func (rc *ReferrerController) GetReferrer(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid referrer ID format",
		})
	}

	var referrer models.Referrer
	err = config.GetCollection(rc.db, "referrers").FindOne(ctx, bson.M{"_id": id}).Decode(&referrer)
	if err == mongo.ErrNoDocuments {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Referrer not found",
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch referrer",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Referrer retrieved successfully",
		Data:    referrer,
	})
}

// ListReferrers returns all registered referrers
func (rc *ReferrerController) ListReferrers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := config.GetCollection(rc.db, "referrers").Find(ctx, bson.M{}, opts)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to list referrers",
		})
	}
	defer cursor.Close(ctx)

	var referrers []models.Referrer
	if err := cursor.All(ctx, &referrers); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to decode referrers",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Referrers retrieved successfully",
		Data:    referrers,
	})
}

// ListCommissions returns a referrer's commission ledger with the accrued
// totals by status
func (rc *ReferrerController) ListCommissions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid referrer ID format",
		})
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := config.GetCollection(rc.db, "referrerCommissions").Find(ctx, bson.M{"referrerId": id}, opts)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to list commissions",
		})
	}
	defer cursor.Close(ctx)

	var commissions []models.Commission
	if err := cursor.All(ctx, &commissions); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to decode commissions",
		})
	}

	var totalPending, totalPaid float64
	for _, commission := range commissions {
		if commission.Status == models.CommissionStatusPaid {
			totalPaid += commission.Amount
		} else {
			totalPending += commission.Amount
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commissions retrieved successfully",
		Data: bson.M{
			"commissions":  commissions,
			"totalPending": totalPending,
			"totalPaid":    totalPaid,
		},
	})
}

// MarkCommissionPaid settles one pending commission entry
func (rc *ReferrerController) MarkCommissionPaid(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("commissionId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid commission ID format",
		})
	}

	now := time.Now()
	res, err := config.GetCollection(rc.db, "referrerCommissions").UpdateOne(ctx,
		bson.M{"_id": id, "status": models.CommissionStatusPending},
		bson.M{"$set": bson.M{"status": models.CommissionStatusPaid, "paidAt": now}},
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update commission",
		})
	}
	if res.ModifiedCount == 0 {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Commission not found or already paid",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission marked as paid",
	})
}
