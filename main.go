package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/vyjcapital/vyj_backend/config"
	"github.com/vyjcapital/vyj_backend/jobs"
	"github.com/vyjcapital/vyj_backend/ledger"
	"github.com/vyjcapital/vyj_backend/middleware"
	"github.com/vyjcapital/vyj_backend/repositories"
	"github.com/vyjcapital/vyj_backend/routes"
	"github.com/vyjcapital/vyj_backend/services"
	"github.com/vyjcapital/vyj_backend/websocket"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// Initialize Firebase
	config.InitFirebase()

	// Connect to Redis
	config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()

	// Create WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Wire the ledger over its Mongo store
	loanRepo := repositories.NewLoanRepository(client)
	engine := ledger.NewEngine(loanRepo)
	mailer := services.NewMailer()

	// Start the accrual sweeps and the collections digest
	scheduler := jobs.NewScheduler(engine, loanRepo, config.RedisClient, services.NewTelegramService(), wsHub)
	scheduler.Start()

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	customValidator := &CustomValidator{validator: validator.New()}
	e.Validator = customValidator

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.GlobalCORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeadersWithConfig(middleware.SecurityConfig{
		AllowedDomains: []string{"https://app.vyjcapital.com", "https://www.vyjcapital.com"},
		AllowInlineJS:  false,
		AllowEval:      false,
	}))

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "VYJ Capital Backend is running",
			"version": "1.0",
		})
	})

	e.Use(httpsRedirect())

	// Setup routes
	routes.SetupRoutes(e, client, wsHub, engine, loanRepo, mailer)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}

func httpsRedirect() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("X-Forwarded-Proto") == "http" {
				return c.Redirect(301, "https://"+c.Request().Host+c.Request().RequestURI)
			}
			return next(c)
		}
	}
}
