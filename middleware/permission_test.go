package middleware

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"kairos/config"
	"kairos/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "kairos.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamMember{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, uid string) *models.User {
	t.Helper()
	user := models.User{UID: uid, Email: uid + "@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

// permissionApp wires a gated route that injects the given user, the way
// Protected() would after a token check.
func permissionApp(user *models.User, handler fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Put("/teams/:teamID", func(c *fiber.Ctx) error {
		c.Locals("user", user)
		return c.Next()
	}, handler, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func putTeam(t *testing.T, app *fiber.App, teamID string) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodPut, "/teams/"+teamID, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestRequirePermissionDeniesViewerMutations(t *testing.T) {
	db := newTestDB(t)
	config.DB = db

	owner := createUser(t, db, "owner")
	viewer := createUser(t, db, "viewer")
	team := models.Team{Name: "Planning", OwnerID: owner.ID}
	require.NoError(t, db.Create(&team).Error)
	require.NoError(t, db.Create(&models.TeamMember{
		TeamID: team.ID, UserID: viewer.ID,
		Role: models.RoleViewer, Status: models.MemberStatusActive,
	}).Error)

	for _, action := range []string{
		models.ActionCreateProjects,
		models.ActionEditProjects,
		models.ActionManageTeamSettings,
	} {
		app := permissionApp(viewer, RequirePermission(action))
		assert.Equal(t, fiber.StatusForbidden, putTeam(t, app, "1"), action)
	}
}

func TestRequirePermissionOwnerWithoutMembershipRow(t *testing.T) {
	db := newTestDB(t)
	config.DB = db

	owner := createUser(t, db, "owner")
	team := models.Team{Name: "Planning", OwnerID: owner.ID}
	require.NoError(t, db.Create(&team).Error)

	// No membership row at all: ownership on the team record is enough.
	app := permissionApp(owner, RequirePermission(models.ActionManageTeamSettings))
	assert.Equal(t, fiber.StatusOK, putTeam(t, app, "1"))
}

func TestRequirePermissionAdminBoundary(t *testing.T) {
	db := newTestDB(t)
	config.DB = db

	owner := createUser(t, db, "owner")
	admin := createUser(t, db, "admin")
	team := models.Team{Name: "Planning", OwnerID: owner.ID}
	require.NoError(t, db.Create(&team).Error)
	require.NoError(t, db.Create(&models.TeamMember{
		TeamID: team.ID, UserID: admin.ID,
		Role: models.RoleAdmin, Status: models.MemberStatusActive,
	}).Error)

	app := permissionApp(admin, RequirePermission(models.ActionManageMembers))
	assert.Equal(t, fiber.StatusOK, putTeam(t, app, "1"))

	app = permissionApp(admin, RequirePermission(models.ActionManageTeamSettings))
	assert.Equal(t, fiber.StatusForbidden, putTeam(t, app, "1"))
}

func TestRequirePermissionInactiveMemberDenied(t *testing.T) {
	db := newTestDB(t)
	config.DB = db

	owner := createUser(t, db, "owner")
	former := createUser(t, db, "former")
	team := models.Team{Name: "Planning", OwnerID: owner.ID}
	require.NoError(t, db.Create(&team).Error)
	require.NoError(t, db.Create(&models.TeamMember{
		TeamID: team.ID, UserID: former.ID,
		Role: models.RoleAdmin, Status: models.MemberStatusRemoved,
	}).Error)

	app := permissionApp(former, RequirePermission(models.ActionCreateProjects))
	assert.Equal(t, fiber.StatusForbidden, putTeam(t, app, "1"))
}

func TestRequireMember(t *testing.T) {
	db := newTestDB(t)
	config.DB = db

	owner := createUser(t, db, "owner")
	viewer := createUser(t, db, "viewer")
	outsider := createUser(t, db, "outsider")
	team := models.Team{Name: "Planning", OwnerID: owner.ID}
	require.NoError(t, db.Create(&team).Error)
	require.NoError(t, db.Create(&models.TeamMember{
		TeamID: team.ID, UserID: viewer.ID,
		Role: models.RoleViewer, Status: models.MemberStatusActive,
	}).Error)

	// Any active member may read, regardless of role.
	app := permissionApp(viewer, RequireMember())
	assert.Equal(t, fiber.StatusOK, putTeam(t, app, "1"))

	app = permissionApp(outsider, RequireMember())
	assert.Equal(t, fiber.StatusForbidden, putTeam(t, app, "1"))

	app = permissionApp(owner, RequireMember())
	assert.Equal(t, fiber.StatusNotFound, putTeam(t, app, "99"))
}
