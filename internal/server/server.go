package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"realestate/internal/handlers"
	"realestate/internal/middleware"
	"realestate/internal/observability"
	"realestate/internal/services"
	"realestate/pkg/logger"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	AppName     string
	Properties  *services.PropertyService
	Auth        *services.AuthService
	CORSOrigins string
	// RequestLog enables per-request access logging.
	RequestLog bool
}

// New builds the Fiber application with every route mounted.
func New(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      deps.AppName,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: deps.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	if deps.RequestLog {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Output: logger.Log.Writer(),
		}))
	}
	app.Use(middleware.Metrics())

	app.Get("/health", handlers.HandleHealth)
	app.Get("/metrics", observability.Handler())

	apiV1 := app.Group("/api/v1")

	handlers.NewPropertyHandler(deps.Properties).RegisterRoutes(apiV1)
	handlers.NewAuthHandler(deps.Auth).RegisterRoutes(apiV1)

	adminRoutes := apiV1.Group("/admin", middleware.AuthRequired(deps.Auth))
	handlers.NewAdminHandler(deps.Properties).RegisterRoutes(adminRoutes)

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		logger.Log.WithError(err).WithField("path", c.Path()).Error("unhandled error")
	}

	return c.Status(code).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}
