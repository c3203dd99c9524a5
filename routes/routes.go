package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"

	controller "kairos/controllers"
	"kairos/middleware"
	"kairos/models"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	// Initialize logger
	authLogger := log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Auth routes group with logging middleware
	auth := app.Group("/api/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", middleware.LoginRateLimiter(), controller.Register)
	auth.Post("/login", middleware.LoginRateLimiter(), controller.Login)
	auth.Post("/refresh", controller.RefreshToken)

	// Google OAuth routes
	auth.Get("/google", controller.GoogleOAuth)
	auth.Get("/google/callback", controller.GoogleOAuthCallback)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Post("/logout", controller.Logout)
	protectedAuth.Post("/change-password", controller.ChangePassword)
	protectedAuth.Get("/me", controller.GetCurrentUser)

	// Log initialization
	authLogger.Println("Authentication routes initialized successfully")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB) {
	// Initialize controllers with their respective loggers
	teamController := controller.NewTeamController(db, log.New(os.Stdout, "TEAM: ", log.LstdFlags))
	projectController := controller.NewProjectController(db, log.New(os.Stdout, "PROJECT: ", log.LstdFlags))
	exportController := controller.NewExportController(db, log.New(os.Stdout, "EXPORT: ", log.LstdFlags))
	dashboardController := controller.NewDashboardController(db, log.New(os.Stdout, "DASHBOARD: ", log.LstdFlags))

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Dashboard routes
	dashboard := api.Group("/dashboard")
	dashboard.Get("/stats", dashboardController.GetDashboardStats)

	// Team routes
	api.Post("/teams", teamController.CreateTeam)
	api.Get("/teams", teamController.GetTeams)
	api.Get("/teams/:teamID", middleware.RequireMember(), teamController.GetTeam)
	api.Put("/teams/:teamID", middleware.RequirePermission(models.ActionManageTeamSettings), teamController.UpdateTeam)
	api.Delete("/teams/:teamID", middleware.RequireMember(), teamController.DeleteTeam)
	api.Get("/teams/:teamID/activities", middleware.RequireMember(), teamController.GetActivities)

	// Membership routes
	members := api.Group("/teams/:teamID/members", middleware.RequirePermission(models.ActionManageMembers))
	members.Post("/", teamController.AddMember)
	members.Put("/:memberID", teamController.UpdateMember)
	members.Delete("/:memberID", teamController.RemoveMember)

	// Invitation routes
	invitations := api.Group("/teams/:teamID/invitations", middleware.RequirePermission(models.ActionInviteMembers))
	invitations.Post("/", teamController.InviteMember)
	invitations.Get("/", teamController.ListInvitations)
	invitations.Delete("/:invitationID", teamController.RevokeInvitation)

	// Accepting an invitation needs only a valid session and token
	api.Post("/invitations/accept", teamController.AcceptInvitation)

	// Project routes
	api.Post("/teams/:teamID/projects", middleware.RequirePermission(models.ActionCreateProjects), projectController.CreateProject)
	api.Get("/teams/:teamID/projects", middleware.RequireMember(), projectController.GetProjects)
	api.Get("/teams/:teamID/projects/:projectID", middleware.RequireMember(), projectController.GetProject)
	api.Put("/teams/:teamID/projects/:projectID", middleware.RequirePermission(models.ActionEditProjects), projectController.UpdateProject)
	api.Delete("/teams/:teamID/projects/:projectID", middleware.RequirePermission(models.ActionDeleteProjects), projectController.DeleteProject)

	// Document routes
	api.Post("/teams/:teamID/projects/:projectID/documents", middleware.RequirePermission(models.ActionEditProjects), projectController.CreateDocument)
	api.Get("/teams/:teamID/projects/:projectID/documents", middleware.RequireMember(), projectController.GetDocuments)
	api.Put("/teams/:teamID/projects/:projectID/documents/:documentID", middleware.RequirePermission(models.ActionEditProjects), projectController.UpdateDocument)
	api.Delete("/teams/:teamID/projects/:projectID/documents/:documentID", middleware.RequirePermission(models.ActionEditProjects), projectController.DeleteDocument)
	api.Post("/teams/:teamID/projects/:projectID/documents/generate", middleware.RequirePermission(models.ActionGenerateDocuments), projectController.GenerateDocument)

	// Diagram routes
	api.Post("/teams/:teamID/projects/:projectID/diagrams", middleware.RequirePermission(models.ActionEditProjects), projectController.CreateDiagram)
	api.Get("/teams/:teamID/projects/:projectID/diagrams", middleware.RequireMember(), projectController.GetDiagrams)
	api.Delete("/teams/:teamID/projects/:projectID/diagrams/:diagramID", middleware.RequirePermission(models.ActionEditProjects), projectController.DeleteDiagram)

	// Export routes
	api.Post("/teams/:teamID/exports", middleware.RequirePermission(models.ActionExportDocuments), exportController.CreateExport)
	api.Get("/teams/:teamID/exports", middleware.RequireMember(), exportController.ListExports)
	api.Get("/teams/:teamID/exports/:jobID", middleware.RequireMember(), exportController.GetExport)

	// WebSocket route for the live activity feed
	app.Get("/api/v1/activity/ws", websocket.New(controller.HandleActivityFeedWS(db)))

	// Log initialization
	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Setup auth routes
	SetupAuthRoutes(app, db)

	// Setup API routes
	SetupAPIRoutes(app, db)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
