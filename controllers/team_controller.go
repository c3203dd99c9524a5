package controller

import (
	"log"
	"time"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"kairos/config"
	"kairos/models"
	"kairos/utils"
)

func invitationTTL() time.Duration {
	if config.AppConfig.InvitationTTL > 0 {
		return config.AppConfig.InvitationTTL
	}
	return 7 * 24 * time.Hour
}

// activityLogCap bounds each team's activity log; the oldest entries are
// evicted first
const activityLogCap = 100

type TeamController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewTeamController(db *gorm.DB, logger *log.Logger) *TeamController {
	return &TeamController{
		DB:     db,
		Logger: logger,
	}
}

type CreateTeamRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

type UpdateTeamRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

type AddMemberRequest struct {
	UserID uint   `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required,oneof=admin member viewer"`
}

type UpdateMemberRequest struct {
	Role        *string                 `json:"role" validate:"omitempty,oneof=admin member viewer"`
	Status      *string                 `json:"status" validate:"omitempty,oneof=active inactive removed"`
	Permissions *models.TeamPermissions `json:"permissions"`
}

type InviteMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=admin member viewer"`
}

// recordActivity appends to a team's activity log and evicts entries past
// the cap
func (tc *TeamController) recordActivity(teamID, actorID uint, action, detail string) {
	activity := models.TeamActivity{
		TeamID:  teamID,
		ActorID: actorID,
		Action:  action,
		Detail:  detail,
	}
	if err := tc.DB.Create(&activity).Error; err != nil {
		tc.Logger.Printf("Failed to record activity for team %d: %v", teamID, err)
		return
	}

	err := tc.DB.Exec(`
		DELETE FROM team_activities
		WHERE team_id = ? AND id NOT IN (
			SELECT id FROM team_activities
			WHERE team_id = ? AND deleted_at IS NULL
			ORDER BY id DESC LIMIT ?
		)`, teamID, teamID, activityLogCap).Error
	if err != nil {
		tc.Logger.Printf("Failed to prune activity log for team %d: %v", teamID, err)
	}
}

func (tc *TeamController) CreateTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateTeamRequest
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

	team := models.Team{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     user.ID,
	}
	if err := tc.DB.Create(&team).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create team",
		})
	}

	tc.recordActivity(team.ID, user.ID, "team_created", team.Name)

	return c.Status(fiber.StatusCreated).JSON(team)
}

func (tc *TeamController) GetTeams(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var teams []models.Team
	err := tc.DB.
		Where("owner_id = ?", user.ID).
		Or("id IN (?)", tc.DB.Model(&models.TeamMember{}).
			Select("team_id").
			Where("user_id = ? AND status = ?", user.ID, models.MemberStatusActive)).
		Find(&teams).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch teams",
		})
	}

	return c.JSON(teams)
}

func (tc *TeamController) GetTeam(c *fiber.Ctx) error {
	team := c.Locals("team").(*models.Team)

	var full models.Team
	if err := tc.DB.Preload("Members").First(&full, team.ID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Team not found",
		})
	}
	return c.JSON(full)
}

func (tc *TeamController) UpdateTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	team := c.Locals("team").(*models.Team)

	var req UpdateTeamRequest
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
	if len(updates) > 0 {
		if err := tc.DB.Model(team).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to update team",
			})
		}
		tc.recordActivity(team.ID, user.ID, "team_updated", team.Name)
	}

	return c.JSON(team)
}

func (tc *TeamController) DeleteTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	team := c.Locals("team").(*models.Team)

	// Only the owner may delete a team, regardless of granted permissions
	if team.OwnerID != user.ID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only the team owner can delete the team",
		})
	}

	if err := tc.DB.Delete(team).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete team",
		})
	}
	return c.SendStatus(fiber.StatusOK)
}

func (tc *TeamController) AddMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	team := c.Locals("team").(*models.Team)

	var req AddMemberRequest
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

	var target models.User
	if err := tc.DB.First(&target, req.UserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	var existing models.TeamMember
	if err := tc.DB.Where("team_id = ? AND user_id = ?", team.ID, target.ID).
		First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "User is already a team member",
		})
	}

	member := models.TeamMember{
		TeamID: team.ID,
		UserID: target.ID,
		Role:   req.Role,
		Status: models.MemberStatusActive,
	}
	if err := tc.DB.Create(&member).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to add member",
		})
	}

	tc.recordActivity(team.ID, user.ID, "member_added", target.Email)

	return c.Status(fiber.StatusCreated).JSON(member)
}

func (tc *TeamController) UpdateMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	team := c.Locals("team").(*models.Team)

	memberID, err := c.ParamsInt("memberID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid member id",
		})
	}

	var req UpdateMemberRequest
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

	var member models.TeamMember
	if err := tc.DB.Where("team_id = ?", team.ID).First(&member, memberID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Member not found",
		})
	}

	if req.Role != nil {
		member.Role = *req.Role
	}
	if req.Status != nil {
		member.Status = *req.Status
	}
	if req.Permissions != nil {
		// Explicit grant replaces the role defaults wholesale
		member.Permissions = req.Permissions
	}

	if err := tc.DB.Save(&member).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update member",
		})
	}

	tc.recordActivity(team.ID, user.ID, "member_updated", member.Role)

	return c.JSON(member)
}

func (tc *TeamController) RemoveMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	team := c.Locals("team").(*models.Team)

	memberID, err := c.ParamsInt("memberID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid member id",
		})
	}

	var member models.TeamMember
	if err := tc.DB.Where("team_id = ?", team.ID).First(&member, memberID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Member not found",
		})
	}

	// Soft removal keeps the row for the audit trail but drops the member
	// out of every permission check
	if err := tc.DB.Model(&member).Update("status", models.MemberStatusRemoved).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to remove member",
		})
	}

	tc.recordActivity(team.ID, user.ID, "member_removed", "")

	return c.SendStatus(fiber.StatusOK)
}

func (tc *TeamController) InviteMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	team := c.Locals("team").(*models.Team)

	var req InviteMemberRequest
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

	// Validate the address syntax before creating anything
	if err := checkmail.ValidateFormat(req.Email); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid email address",
		})
	}

	var pending models.TeamInvitation
	err := tc.DB.Where("team_id = ? AND email = ? AND status = ?",
		team.ID, req.Email, models.InvitationStatusPending).First(&pending).Error
	if err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "An invitation for this email is already pending",
		})
	}

	invitation := models.TeamInvitation{
		TeamID:    team.ID,
		InviterID: user.ID,
		Email:     req.Email,
		Role:      req.Role,
		Status:    models.InvitationStatusPending,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(invitationTTL()),
	}
	if err := tc.DB.Create(&invitation).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create invitation",
		})
	}

	inviterName := utils.EmailLocalPart(user.Email)
	if user.Name != nil && *user.Name != "" {
		inviterName = *user.Name
	}

	// Deliver the invitation email; log the failure but keep the invitation
	if err := utils.SendInvitationEmail(req.Email, inviterName, team.Name,
		invitation.Role, invitation.Token, invitation.ExpiresAt); err != nil {
		tc.Logger.Printf("Failed to send invitation email to %s: %v", req.Email, err)
	}

	tc.recordActivity(team.ID, user.ID, "member_invited", req.Email)

	return c.Status(fiber.StatusCreated).JSON(invitation)
}

func (tc *TeamController) ListInvitations(c *fiber.Ctx) error {
	team := c.Locals("team").(*models.Team)

	var invitations []models.TeamInvitation
	if err := tc.DB.Where("team_id = ?", team.ID).
		Order("created_at DESC").Find(&invitations).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch invitations",
		})
	}
	return c.JSON(invitations)
}

func (tc *TeamController) RevokeInvitation(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	team := c.Locals("team").(*models.Team)

	invitationID, err := c.ParamsInt("invitationID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid invitation id",
		})
	}

	var invitation models.TeamInvitation
	if err := tc.DB.Where("team_id = ? AND status = ?",
		team.ID, models.InvitationStatusPending).First(&invitation, invitationID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Invitation not found",
		})
	}

	if err := tc.DB.Model(&invitation).Update("status", models.InvitationStatusRevoked).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to revoke invitation",
		})
	}

	tc.recordActivity(team.ID, user.ID, "invitation_revoked", invitation.Email)

	return c.SendStatus(fiber.StatusOK)
}

// AcceptInvitation turns a pending invitation into an active membership for
// the authenticated user
func (tc *TeamController) AcceptInvitation(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	token := c.Query("token")
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invitation token is required",
		})
	}

	var invitation models.TeamInvitation
	if err := tc.DB.Where("token = ? AND status = ?",
		token, models.InvitationStatusPending).First(&invitation).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Invitation not found or no longer valid",
		})
	}

	if time.Now().After(invitation.ExpiresAt) {
		_ = tc.DB.Model(&invitation).Update("status", models.InvitationStatusExpired).Error
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"error": "Invitation has expired",
		})
	}

	member := models.TeamMember{
		TeamID: invitation.TeamID,
		UserID: user.ID,
		Role:   invitation.Role,
		Status: models.MemberStatusActive,
	}
	if err := tc.DB.Create(&member).Error; err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "You are already a member of this team",
		})
	}

	if err := tc.DB.Model(&invitation).Update("status", models.InvitationStatusAccepted).Error; err != nil {
		tc.Logger.Printf("Failed to mark invitation %d accepted: %v", invitation.ID, err)
	}

	tc.recordActivity(invitation.TeamID, user.ID, "invitation_accepted", user.Email)

	return c.Status(fiber.StatusCreated).JSON(member)
}

func (tc *TeamController) GetActivities(c *fiber.Ctx) error {
	team := c.Locals("team").(*models.Team)

	var activities []models.TeamActivity
	if err := tc.DB.Where("team_id = ?", team.ID).
		Order("id DESC").Limit(activityLogCap).Find(&activities).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch activities",
		})
	}
	return c.JSON(activities)
}
