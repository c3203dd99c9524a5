package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"kairos/models"
	"kairos/utils"
)

type ExportController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewExportController(db *gorm.DB, logger *log.Logger) *ExportController {
	return &ExportController{
		DB:     db,
		Logger: logger,
	}
}

type CreateExportRequest struct {
	DocumentID  uint   `json:"document_id" validate:"required"`
	Target      string `json:"target" validate:"required,oneof=sharepoint confluence"`
	SiteURL     string `json:"site_url" validate:"required,url"`
	SpaceKey    string `json:"space_key" validate:"omitempty,max=100"`
	AccessToken string `json:"access_token" validate:"omitempty,max=4096"`
}

// CreateExport queues a document for delivery to SharePoint or Confluence.
// The job is processed asynchronously by the export worker.
func (ec *ExportController) CreateExport(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	team := c.Locals("team").(*models.Team)

	var req CreateExportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	// The document must belong to a project in this team
	var doc models.Document
	err := ec.DB.Joins("JOIN projects ON projects.id = documents.project_id").
		Where("documents.id = ? AND projects.team_id = ?", req.DocumentID, team.ID).
		First(&doc).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Document not found",
		})
	}

	if err := utils.VerifyExportDestination(req.SiteURL); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	tokenEnc, err := utils.Encrypt(req.AccessToken)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to protect access token",
		})
	}

	job := models.ExportJob{
		DocumentID:     doc.ID,
		RequestedBy:    user.ID,
		TeamID:         &team.ID,
		Target:         req.Target,
		SiteURL:        req.SiteURL,
		SpaceKey:       req.SpaceKey,
		AccessTokenEnc: tokenEnc,
		Status:         models.ExportStatusPending,
	}
	if err := ec.DB.Create(&job).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create export job",
		})
	}

	utils.LogEvent("export_queued", map[string]interface{}{
		"job_id":      job.ID,
		"document_id": doc.ID,
		"target":      job.Target,
	})

	return c.Status(fiber.StatusAccepted).JSON(job)
}

func (ec *ExportController) GetExport(c *fiber.Ctx) error {
	team := c.Locals("team").(*models.Team)

	jobID, err := c.ParamsInt("jobID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid job id",
		})
	}

	var job models.ExportJob
	if err := ec.DB.Where("team_id = ?", team.ID).First(&job, jobID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Export job not found",
		})
	}
	return c.JSON(job)
}

func (ec *ExportController) ListExports(c *fiber.Ctx) error {
	team := c.Locals("team").(*models.Team)

	var jobs []models.ExportJob
	if err := ec.DB.Where("team_id = ?", team.ID).
		Order("created_at DESC").Limit(50).Find(&jobs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch export jobs",
		})
	}
	return c.JSON(jobs)
}
