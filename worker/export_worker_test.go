package worker

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"kairos/config"
	"kairos/models"
	"kairos/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "kairos.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Document{},
		&models.ExportJob{},
		&models.TeamActivity{},
		&models.TeamInvitation{},
	))
	return db
}

func newQuietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func encryptedToken(t *testing.T, token string) string {
	t.Helper()
	config.AppConfig.EncryptionKey = "0123456789abcdef0123456789abcdef"
	enc, err := utils.Encrypt(token)
	require.NoError(t, err)
	return enc
}

func TestExportJobCompletes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/api/content", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer conf-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"_links": map[string]string{
				"base":  "https://wiki.example.com",
				"webui": "/pages/42",
			},
		})
	}))
	defer server.Close()

	db := newTestDB(t)
	doc := models.Document{ProjectID: 1, AuthorID: 3, Title: "Q3 Roadmap", Content: "# Plan"}
	require.NoError(t, db.Create(&doc).Error)

	teamID := uint(7)
	job := models.ExportJob{
		DocumentID:     doc.ID,
		RequestedBy:    3,
		TeamID:         &teamID,
		Target:         models.ExportTargetConfluence,
		SiteURL:        server.URL,
		SpaceKey:       "KAI",
		AccessTokenEnc: encryptedToken(t, "conf-token"),
		Status:         models.ExportStatusPending,
	}
	require.NoError(t, db.Create(&job).Error)

	ew := NewExportWorker(db, newQuietLogger())
	ew.processPendingExports()

	var got models.ExportJob
	require.NoError(t, db.First(&got, job.ID).Error)
	assert.Equal(t, models.ExportStatusCompleted, got.Status)
	assert.Equal(t, "https://wiki.example.com/pages/42", got.ExternalURL)
	assert.Equal(t, 1, got.Attempts)
	assert.Empty(t, got.LastError)
	require.NotNil(t, got.CompletedAt)

	var activities []models.TeamActivity
	require.NoError(t, db.Where("team_id = ?", teamID).Find(&activities).Error)
	require.Len(t, activities, 1)
	assert.Equal(t, "document_exported", activities[0].Action)
	assert.Equal(t, "Q3 Roadmap", activities[0].Detail)
	assert.Equal(t, uint(3), activities[0].ActorID)
}

func TestExportJobRetriesThenFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	db := newTestDB(t)
	doc := models.Document{ProjectID: 1, AuthorID: 3, Title: "Risk Register", Content: "risks"}
	require.NoError(t, db.Create(&doc).Error)

	teamID := uint(7)
	job := models.ExportJob{
		DocumentID:     doc.ID,
		RequestedBy:    3,
		TeamID:         &teamID,
		Target:         models.ExportTargetConfluence,
		SiteURL:        server.URL,
		AccessTokenEnc: encryptedToken(t, "conf-token"),
		Status:         models.ExportStatusPending,
	}
	require.NoError(t, db.Create(&job).Error)

	ew := NewExportWorker(db, newQuietLogger())

	// First attempt fails and the job goes back to pending for a retry.
	ew.processPendingExports()

	var got models.ExportJob
	require.NoError(t, db.First(&got, job.ID).Error)
	assert.Equal(t, models.ExportStatusPending, got.Status)
	assert.Equal(t, 1, got.Attempts)
	assert.NotEmpty(t, got.LastError)

	var count int64
	db.Model(&models.TeamActivity{}).Count(&count)
	assert.Zero(t, count)

	// At the attempt cap the job is marked failed and the team notified.
	require.NoError(t, db.Model(&got).Update("attempts", maxExportAttempts-1).Error)
	ew.processPendingExports()

	require.NoError(t, db.First(&got, job.ID).Error)
	assert.Equal(t, models.ExportStatusFailed, got.Status)
	assert.Equal(t, maxExportAttempts, got.Attempts)
	assert.NotEmpty(t, got.LastError)

	var activities []models.TeamActivity
	require.NoError(t, db.Where("team_id = ?", teamID).Find(&activities).Error)
	require.Len(t, activities, 1)
	assert.Equal(t, "export_failed", activities[0].Action)
}

func TestExportJobMissingDocumentFails(t *testing.T) {
	db := newTestDB(t)

	job := models.ExportJob{
		DocumentID:     999,
		RequestedBy:    3,
		Target:         models.ExportTargetConfluence,
		SiteURL:        "https://wiki.example.com",
		AccessTokenEnc: encryptedToken(t, "conf-token"),
		Status:         models.ExportStatusPending,
	}
	require.NoError(t, db.Create(&job).Error)

	ew := NewExportWorker(db, newQuietLogger())
	ew.processPendingExports()

	var got models.ExportJob
	require.NoError(t, db.First(&got, job.ID).Error)
	assert.Equal(t, models.ExportStatusFailed, got.Status)
	assert.Equal(t, "document no longer exists", got.LastError)
}
