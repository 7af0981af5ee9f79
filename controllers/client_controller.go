package controllers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vyjcapital/vyj_backend/config"
	"github.com/vyjcapital/vyj_backend/models"
	"github.com/vyjcapital/vyj_backend/repositories"
)

var validate = validator.New()

type ClientController struct {
	db       *mongo.Client
	loanRepo *repositories.LoanRepository
}

func NewClientController(db *mongo.Client, loanRepo *repositories.LoanRepository) *ClientController {
	return &ClientController{db: db, loanRepo: loanRepo}
}

// CreateClient registers a new expediente. When the payload carries an
// initial loan it is originated in the same request, linked to the new
// client.
func (cc *ClientController) CreateClient(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.CreateClientRequest
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

	clientsCollection := config.GetCollection(cc.db, "clients")

	// National ID is the natural key of an expediente
	count, err := clientsCollection.CountDocuments(ctx, bson.M{"nationalId": req.NationalID})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to check existing clients",
		})
	}
	if count > 0 {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "A client with this national ID already exists",
		})
	}

	client := models.Client{
		ID:           primitive.NewObjectID(),
		FullName:     req.FullName,
		NationalID:   req.NationalID,
		BirthDate:    req.BirthDate,
		BirthPlace:   req.BirthPlace,
		Gender:       req.Gender,
		CivilStatus:  req.CivilStatus,
		Phone:        req.Phone,
		Email:        req.Email,
		Address:      req.Address,
		Nationality:  req.Nationality,
		Work:         req.Work,
		CoSigner:     req.CoSigner,
		References:   req.References,
		Guarantee:    req.Guarantee,
		RegisteredAt: time.Now(),
	}

	if _, err := clientsCollection.InsertOne(ctx, client); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create client",
		})
	}

	response := bson.M{"client": client}

	if req.InitialLoan != nil {
		loan, err := buildLoan(&models.CreateLoanRequest{
			ClientID:         client.ID.Hex(),
			Amount:           req.InitialLoan.Amount,
			Rate:             req.InitialLoan.Rate,
			RatePeriod:       req.InitialLoan.RatePeriod,
			Method:           req.InitialLoan.Method,
			PaymentFrequency: req.InitialLoan.PaymentFrequency,
			Guarantee:        req.InitialLoan.Guarantee,
			ReferrerID:       req.InitialLoan.ReferrerID,
		}, client.ID, client.FullName)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Client created but initial loan is invalid",
				Data:    err.Error(),
			})
		}
		if err := cc.loanRepo.CreateLoan(ctx, loan); err != nil {
			log.Printf("initial loan for client %s failed: %v", client.ID.Hex(), err)
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Client created but initial loan failed",
				Data:    bson.M{"client": client},
			})
		}
		response["loan"] = loan
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Client created successfully",
		Data:    response,
	})
}

// GetClient returns one expediente by id
func (cc *ClientController) GetClient(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid client ID format",
		})
	}

	var client models.Client
	err = config.GetCollection(cc.db, "clients").FindOne(ctx, bson.M{"_id": id}).Decode(&client)
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

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Client retrieved successfully",
		Data:    client,
	})
}

// SearchClients looks clients up by national ID or name fragment
func (cc *ClientController) SearchClients(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if nationalID := c.QueryParam("nationalId"); nationalID != "" {
		filter["nationalId"] = nationalID
	} else if name := c.QueryParam("name"); name != "" {
		filter["fullName"] = bson.M{"$regex": name, "$options": "i"}
	} else {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Provide nationalId or name to search",
		})
	}

	opts := options.Find().SetLimit(50).SetSort(bson.D{{Key: "registeredAt", Value: -1}})
	cursor, err := config.GetCollection(cc.db, "clients").Find(ctx, filter, opts)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to search clients",
		})
	}
	defer cursor.Close(ctx)

	var clients []models.Client
	if err := cursor.All(ctx, &clients); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to decode clients",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Clients retrieved successfully",
		Data:    clients,
	})
}

// AddDocument attaches document metadata to an expediente. The binary
// itself lives in external storage; only its reference is recorded here.
func (cc *ClientController) AddDocument(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid client ID format",
		})
	}

	var doc models.ClientDocument
	if err := c.Bind(&doc); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
			Data:    err.Error(),
		})
	}
	if doc.Name == "" || doc.Type == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Document name and type are required",
		})
	}

	doc.ID = primitive.NewObjectID()
	doc.ClientID = clientID
	doc.UploadedAt = time.Now()

	if _, err := config.GetCollection(cc.db, "clientDocuments").InsertOne(ctx, doc); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to save document",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Document saved successfully",
		Data:    doc,
	})
}

// ListDocuments returns the document metadata attached to an expediente
func (cc *ClientController) ListDocuments(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid client ID format",
		})
	}

	opts := options.Find().SetSort(bson.D{{Key: "uploadedAt", Value: -1}})
	cursor, err := config.GetCollection(cc.db, "clientDocuments").Find(ctx, bson.M{"clientId": clientID}, opts)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to list documents",
		})
	}
	defer cursor.Close(ctx)

	var docs []models.ClientDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to decode documents",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Documents retrieved successfully",
		Data:    docs,
	})
}

// DeleteDocument removes one document reference from an expediente
func (cc *ClientController) DeleteDocument(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	docID, err := primitive.ObjectIDFromHex(c.Param("docId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid document ID format",
		})
	}

	res, err := config.GetCollection(cc.db, "clientDocuments").DeleteOne(ctx, bson.M{"_id": docID})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to delete document",
		})
	}
	if res.DeletedCount == 0 {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Document not found",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Document deleted successfully",
	})
}

// LinkProfile attaches a verified social profile to an expediente
func (cc *ClientController) LinkProfile(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid client ID format",
		})
	}

	var req models.LinkProfileRequest
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

	profile := models.LinkedProfile{
		Platform: req.Platform,
		URL:      req.URL,
		LinkedAt: time.Now(),
	}

	res, err := config.GetCollection(cc.db, "clients").UpdateByID(ctx, clientID,
		bson.M{"$push": bson.M{"profiles": profile}})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to link profile",
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
		Message: "Profile linked successfully",
		Data:    profile,
	})
}
