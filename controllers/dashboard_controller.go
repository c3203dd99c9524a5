package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"kairos/models"
)

type DashboardController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewDashboardController(db *gorm.DB, logger *log.Logger) *DashboardController {
	return &DashboardController{
		DB:     db,
		Logger: logger,
	}
}

type DashboardStats struct {
	Teams              int64 `json:"teams"`
	Projects           int64 `json:"projects"`
	Documents          int64 `json:"documents"`
	GeneratedDocuments int64 `json:"generated_documents"`
	PendingExports     int64 `json:"pending_exports"`
}

// GetDashboardStats summarizes the authenticated user's workspace
func (dc *DashboardController) GetDashboardStats(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var stats DashboardStats

	memberTeams := dc.DB.Model(&models.TeamMember{}).
		Select("team_id").
		Where("user_id = ? AND status = ?", user.ID, models.MemberStatusActive)

	if err := dc.DB.Model(&models.Team{}).
		Where("owner_id = ?", user.ID).
		Or("id IN (?)", memberTeams).
		Count(&stats.Teams).Error; err != nil {
		dc.Logger.Printf("Failed to count teams for user %d: %v", user.ID, err)
	}

	if err := dc.DB.Model(&models.Project{}).
		Where("owner_id = ?", user.ID).
		Count(&stats.Projects).Error; err != nil {
		dc.Logger.Printf("Failed to count projects for user %d: %v", user.ID, err)
	}

	if err := dc.DB.Model(&models.Document{}).
		Where("author_id = ?", user.ID).
		Count(&stats.Documents).Error; err != nil {
		dc.Logger.Printf("Failed to count documents for user %d: %v", user.ID, err)
	}

	if err := dc.DB.Model(&models.Document{}).
		Where("author_id = ? AND generated_by <> ''", user.ID).
		Count(&stats.GeneratedDocuments).Error; err != nil {
		dc.Logger.Printf("Failed to count generated documents for user %d: %v", user.ID, err)
	}

	if err := dc.DB.Model(&models.ExportJob{}).
		Where("requested_by = ? AND status IN ?", user.ID,
			[]string{models.ExportStatusPending, models.ExportStatusRunning}).
		Count(&stats.PendingExports).Error; err != nil {
		dc.Logger.Printf("Failed to count exports for user %d: %v", user.ID, err)
	}

	return c.JSON(stats)
}
