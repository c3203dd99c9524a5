package middleware

import (
	"github.com/gofiber/fiber/v2"

	"kairos/config"
	"kairos/models"
)

// RequirePermission gates a team-scoped route on the permission matrix.
// Expects the route to carry a :teamID parameter and Protected() to have
// run first. The team owner passes every check. Owner identity is a
// property of the team record, not the membership table, so an owner
// without a membership row is still allowed through.
func RequirePermission(action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals("user").(*models.User)

		teamID, err := c.ParamsInt("teamID")
		if err != nil || teamID <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid team id",
			})
		}

		var team models.Team
		if err := config.DB.First(&team, teamID).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Team not found",
			})
		}
		c.Locals("team", &team)

		if team.OwnerID == user.ID {
			return c.Next()
		}

		var member models.TeamMember
		err = config.DB.Where("team_id = ? AND user_id = ? AND status = ?",
			team.ID, user.ID, models.MemberStatusActive).First(&member).Error
		if err != nil || !member.Allows(action) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "You don't have permission to perform this action",
			})
		}

		c.Locals("member", &member)
		return c.Next()
	}
}

// RequireMember admits the owner or any active member without checking a
// specific action. Read-only team routes use this; the permission matrix
// has no read capability and visibility comes with membership.
func RequireMember() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals("user").(*models.User)

		teamID, err := c.ParamsInt("teamID")
		if err != nil || teamID <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid team id",
			})
		}

		var team models.Team
		if err := config.DB.First(&team, teamID).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Team not found",
			})
		}
		c.Locals("team", &team)

		if team.OwnerID == user.ID {
			return c.Next()
		}

		var member models.TeamMember
		err = config.DB.Where("team_id = ? AND user_id = ? AND status = ?",
			team.ID, user.ID, models.MemberStatusActive).First(&member).Error
		if err != nil {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "You are not a member of this team",
			})
		}

		c.Locals("member", &member)
		return c.Next()
	}
}
