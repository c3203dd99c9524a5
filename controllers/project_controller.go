package controller

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"kairos/config"
	"kairos/models"
	"kairos/utils"
)

type ProjectController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewProjectController(db *gorm.DB, logger *log.Logger) *ProjectController {
	return &ProjectController{
		DB:     db,
		Logger: logger,
	}
}

type CreateProjectRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"omitempty,max=2000"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Status      *string `json:"status" validate:"omitempty,oneof=planning active completed archived"`
}

type CreateDocumentRequest struct {
	Title   string `json:"title" validate:"required,max=300"`
	Kind    string `json:"kind" validate:"omitempty,oneof=prd roadmap risk_register summary"`
	Format  string `json:"format" validate:"omitempty,oneof=markdown html"`
	Content string `json:"content"`
}

type GenerateDocumentRequest struct {
	Title  string `json:"title" validate:"required,max=300"`
	Kind   string `json:"kind" validate:"required,oneof=prd roadmap risk_register summary"`
	Prompt string `json:"prompt" validate:"required,max=4000"`
}

type CreateDiagramRequest struct {
	Title  string `json:"title" validate:"required,max=300"`
	Kind   string `json:"kind" validate:"omitempty,oneof=gantt flowchart org_chart"`
	Source string `json:"source" validate:"required"`
}

func (pc *ProjectController) CreateProject(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	team := c.Locals("team").(*models.Team)

	var req CreateProjectRequest
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

	project := models.Project{
		Name:        req.Name,
		Description: req.Description,
		Status:      models.ProjectStatusPlanning,
		OwnerID:     user.ID,
		TeamID:      &team.ID,
	}
	if err := pc.DB.Create(&project).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create project",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(project)
}

func (pc *ProjectController) GetProjects(c *fiber.Ctx) error {
	team := c.Locals("team").(*models.Team)

	var projects []models.Project
	if err := pc.DB.Where("team_id = ?", team.ID).
		Order("updated_at DESC").Find(&projects).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch projects",
		})
	}
	return c.JSON(projects)
}

// findTeamProject resolves the :projectID param within the current team
func (pc *ProjectController) findTeamProject(c *fiber.Ctx) (*models.Project, error) {
	team := c.Locals("team").(*models.Team)

	projectID, err := c.ParamsInt("projectID")
	if err != nil {
		return nil, fmt.Errorf("invalid project id")
	}

	var project models.Project
	if err := pc.DB.Where("team_id = ?", team.ID).First(&project, projectID).Error; err != nil {
		return nil, fmt.Errorf("project not found")
	}
	return &project, nil
}

func (pc *ProjectController) GetProject(c *fiber.Ctx) error {
	project, err := pc.findTeamProject(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var full models.Project
	if err := pc.DB.Preload("Documents").Preload("Diagrams").First(&full, project.ID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch project",
		})
	}
	return c.JSON(full)
}

func (pc *ProjectController) UpdateProject(c *fiber.Ctx) error {
	project, err := pc.findTeamProject(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var req UpdateProjectRequest
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

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if len(updates) > 0 {
		if err := pc.DB.Model(project).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to update project",
			})
		}
	}

	return c.JSON(project)
}

func (pc *ProjectController) DeleteProject(c *fiber.Ctx) error {
	project, err := pc.findTeamProject(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := pc.DB.Delete(project).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete project",
		})
	}
	return c.SendStatus(fiber.StatusOK)
}

func (pc *ProjectController) CreateDocument(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	project, err := pc.findTeamProject(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var req CreateDocumentRequest
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

	format := req.Format
	if format == "" {
		format = models.DocumentFormatMarkdown
	}

	doc := models.Document{
		ProjectID: project.ID,
		AuthorID:  user.ID,
		Title:     req.Title,
		Kind:      req.Kind,
		Format:    format,
		Content:   req.Content,
	}
	if err := pc.DB.Create(&doc).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create document",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(doc)
}

func (pc *ProjectController) GetDocuments(c *fiber.Ctx) error {
	project, err := pc.findTeamProject(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var docs []models.Document
	if err := pc.DB.Where("project_id = ?", project.ID).
		Order("updated_at DESC").Find(&docs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch documents",
		})
	}
	return c.JSON(docs)
}

func (pc *ProjectController) UpdateDocument(c *fiber.Ctx) error {
	project, err := pc.findTeamProject(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	docID, err := c.ParamsInt("documentID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document id",
		})
	}

	var doc models.Document
	if err := pc.DB.Where("project_id = ?", project.ID).First(&doc, docID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Document not found",
		})
	}

	var req CreateDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Title != "" {
		doc.Title = req.Title
	}
	if req.Content != "" {
		doc.Content = req.Content
	}
	if err := pc.DB.Save(&doc).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update document",
		})
	}
	return c.JSON(doc)
}

func (pc *ProjectController) DeleteDocument(c *fiber.Ctx) error {
	project, err := pc.findTeamProject(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	docID, err := c.ParamsInt("documentID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document id",
		})
	}

	if err := pc.DB.Where("project_id = ?", project.ID).
		Delete(&models.Document{}, docID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete document",
		})
	}
	return c.SendStatus(fiber.StatusOK)
}

// GenerateDocument produces a planning document draft attributed to the
// configured open-source model. The generation pipeline itself lives in a
// separate service; this endpoint records the result skeleton the SPA
// fills in as the model streams.
func (pc *ProjectController) GenerateDocument(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	project, err := pc.findTeamProject(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var req GenerateDocumentRequest
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

	model := config.AppConfig.GenerationModel

	doc := models.Document{
		ProjectID:   project.ID,
		AuthorID:    user.ID,
		Title:       req.Title,
		Kind:        req.Kind,
		Format:      models.DocumentFormatMarkdown,
		Content:     fmt.Sprintf("# %s\n\n_Draft generated by %s at %s._\n", req.Title, model, time.Now().Format(time.RFC3339)),
		GeneratedBy: model,
	}
	if err := pc.DB.Create(&doc).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create document",
		})
	}

	utils.LogEvent("document_generated", map[string]interface{}{
		"project_id": project.ID,
		"model":      model,
		"kind":       req.Kind,
	})

	return c.Status(fiber.StatusCreated).JSON(doc)
}

func (pc *ProjectController) CreateDiagram(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	project, err := pc.findTeamProject(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var req CreateDiagramRequest
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

	diagram := models.Diagram{
		ProjectID: project.ID,
		AuthorID:  user.ID,
		Title:     req.Title,
		Kind:      req.Kind,
		Source:    req.Source,
	}
	if err := pc.DB.Create(&diagram).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create diagram",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(diagram)
}

func (pc *ProjectController) GetDiagrams(c *fiber.Ctx) error {
	project, err := pc.findTeamProject(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var diagrams []models.Diagram
	if err := pc.DB.Where("project_id = ?", project.ID).Find(&diagrams).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch diagrams",
		})
	}
	return c.JSON(diagrams)
}

func (pc *ProjectController) DeleteDiagram(c *fiber.Ctx) error {
	project, err := pc.findTeamProject(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	diagramID, err := c.ParamsInt("diagramID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid diagram id",
		})
	}

	if err := pc.DB.Where("project_id = ?", project.ID).
		Delete(&models.Diagram{}, diagramID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete diagram",
		})
	}
	return c.SendStatus(fiber.StatusOK)
}
