package handlers

import (
	"github.com/formdesk/server/internal/config"
	"github.com/formdesk/server/internal/export"
	"github.com/formdesk/server/internal/middleware"
	"github.com/formdesk/server/internal/services"
	"github.com/formdesk/server/pkg/logger"
	"github.com/formdesk/server/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

// NewApp wires services, middleware and routes onto a fiber app. store may be
// nil, in which case image uploads are not routed.
func NewApp(cfg *config.Config, db *gorm.DB, store ImageStore) *fiber.App {
	accessService := services.NewAccessService(db, cfg.Forms.LockPolicy)
	questionService := services.NewQuestionService(db)
	responseService := services.NewResponseService(db, accessService)
	formService := services.NewFormService(db, accessService, questionService, responseService)
	collaboratorService := services.NewCollaboratorService(db, accessService)
	authService := services.NewAuthService(db)

	authHandler := NewAuthHandler(authService)
	formsHandler := NewFormsHandler(formService)
	collaboratorsHandler := NewCollaboratorsHandler(collaboratorService)
	responsesHandler := NewResponsesHandler(responseService, export.NewFormatter(cfg.Forms.ExportLocation()))

	authMiddleware := middleware.NewAuthMiddleware(db)

	bodyLimit := cfg.Server.BodyLimitMB * 1024 * 1024
	if bodyLimit <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}

	app := fiber.New(fiber.Config{BodyLimit: bodyLimit})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.FrontendURL))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", Health)

	api := app.Group("/api")
	if cfg.RateLimit.Max > 0 {
		api.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit.Max,
			Expiration: cfg.RateLimit.Window,
			LimitReached: func(c *fiber.Ctx) error {
				logger.Warn("rate_limit_exceeded", map[string]interface{}{
					"ip":   c.IP(),
					"path": c.Path(),
				})
				return utils.Error(c, fiber.StatusTooManyRequests, "Too many requests, please try again later")
			},
		}))
	}
	api.Get("/version", GetVersion)

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/profile", authMiddleware.RequireAuth, authHandler.Profile)
	authRoutes.Put("/profile", authMiddleware.RequireAuth, authHandler.UpdateProfile)

	// Reading a form and submitting to it are open to anonymous callers when
	// the form allows it, so those two routes only attach a user.
	api.Get("/forms/:id", authMiddleware.OptionalAuth, formsHandler.Get)
	api.Post("/forms/:id/responses", authMiddleware.OptionalAuth, responsesHandler.Submit)

	formRoutes := api.Group("/forms", authMiddleware.RequireAuth)
	formRoutes.Get("/", formsHandler.List)
	formRoutes.Post("/", formsHandler.Create)
	formRoutes.Put("/:id", formsHandler.Update)
	formRoutes.Delete("/:id", formsHandler.Delete)
	formRoutes.Patch("/:id/lock", formsHandler.SetLock)
	formRoutes.Put("/:id/questions/order", formsHandler.ReorderQuestions)

	formRoutes.Get("/:id/collaborators", collaboratorsHandler.List)
	formRoutes.Post("/:id/collaborators", collaboratorsHandler.Add)
	formRoutes.Delete("/:id/collaborators/:collaboratorId", collaboratorsHandler.Remove)

	formRoutes.Get("/:id/responses", responsesHandler.List)
	formRoutes.Get("/:id/responses/stats", responsesHandler.Stats)
	formRoutes.Get("/:id/responses/export", responsesHandler.Export)
	formRoutes.Get("/:id/responses/:responseId", responsesHandler.Get)

	if store != nil {
		uploadsHandler := NewUploadsHandler(store)
		api.Post("/uploads", authMiddleware.RequireAuth, uploadsHandler.UploadImage)
	}

	return app
}
