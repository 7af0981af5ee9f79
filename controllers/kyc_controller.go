package controllers

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vyjcapital/vyj_backend/config"
	"github.com/vyjcapital/vyj_backend/models"
	"github.com/vyjcapital/vyj_backend/services"
)

type KYCController struct {
	db        *mongo.Client
	ocr       *services.OCRService
	risk      *services.RiskService
	usernames *services.UsernameSearchService
}

func NewKYCController(db *mongo.Client, ocr *services.OCRService, risk *services.RiskService, usernames *services.UsernameSearchService) *KYCController {
	return &KYCController{db: db, ocr: ocr, risk: risk, usernames: usernames}
}

// ScanDocument extracts the intake fields from a document photo. A reply
// the model produced but that did not parse comes back as 422 with the raw
// text so the operator can transcribe manually.
func (kc *KYCController) ScanDocument(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var req models.ScanDocumentRequest
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

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Image must be base64 encoded",
		})
	}

	result, err := kc.ocr.ScanDocument(ctx, image, req.DocType, req.MimeType)
	var parseErr *services.ModelParseError
	if errors.As(err, &parseErr) {
		return c.JSON(http.StatusUnprocessableEntity, models.Response{
			Status:  http.StatusUnprocessableEntity,
			Message: "Extraction did not produce structured fields",
			Data:    bson.M{"raw": parseErr.Raw},
		})
	}
	if err != nil {
		log.Printf("document scan failed: %v", err)
		return c.JSON(http.StatusBadGateway, models.Response{
			Status:  http.StatusBadGateway,
			Message: "Document extraction is unavailable",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Document scanned successfully",
		Data:    result,
	})
}

// RiskAudit generates a risk profile for a person. The service degrades
// internally, so this always answers 200 with at worst an INDETERMINATE
// profile.
func (kc *KYCController) RiskAudit(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	var req models.RiskAuditRequest
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

	profile := kc.risk.GenerateProfile(ctx, req.FullName, req.NationalID)

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Risk profile generated",
		Data:    profile,
	})
}

// UsernameSearch runs a username-presence sweep without persisting it
func (kc *KYCController) UsernameSearch(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var req models.UsernameSearchRequest
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

	result, err := kc.usernames.Search(ctx, req.Username)
	if err != nil {
		log.Printf("username search for %q failed: %v", req.Username, err)
		return c.JSON(http.StatusBadGateway, models.Response{
			Status:  http.StatusBadGateway,
			Message: "Username search is unavailable",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Username search completed",
		Data:    result,
	})
}

// DigitalAudit runs a username-presence sweep and stores the outcome on
// the client's expediente as its latest digital audit
func (kc *KYCController) DigitalAudit(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	clientID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid client ID format",
		})
	}

	var req models.UsernameSearchRequest
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

	result, err := kc.usernames.Search(ctx, req.Username)
	if err != nil {
		log.Printf("digital audit for client %s failed: %v", clientID.Hex(), err)
		return c.JSON(http.StatusBadGateway, models.Response{
			Status:  http.StatusBadGateway,
			Message: "Username search is unavailable",
		})
	}

	audit := models.DigitalAudit{
		Username: result.Username,
		Date:     time.Now(),
		Total:    result.Total,
		Profiles: result.Profiles,
	}

	res, err := config.GetCollection(kc.db, "clients").UpdateByID(ctx, clientID,
		bson.M{"$set": bson.M{"digitalAudit": audit}})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to save digital audit",
		})
	}
	if res.MatchedCount == 0 {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Client not found",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Digital audit completed",
		Data:    audit,
	})
}
