package worker

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"kairos/models"
	"kairos/utils"
)

// maxExportAttempts bounds retries before a job is marked failed for good
const maxExportAttempts = 3

type ExportWorker struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewExportWorker(db *gorm.DB, logger *log.Logger) *ExportWorker {
	return &ExportWorker{
		DB:     db,
		Logger: logger,
	}
}

func (ew *ExportWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(5 * time.Second)

	ew.Logger.Println("Export worker started")

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ew.Logger.Println("Export worker shutting down...")
			return
		case <-ticker.C:
			ew.processPendingExports()
		}
	}
}

func (ew *ExportWorker) processPendingExports() {
	var jobs []models.ExportJob
	if err := ew.DB.Where("status = ?", models.ExportStatusPending).
		Order("id").Limit(20).Find(&jobs).Error; err != nil {
		ew.Logger.Printf("Error fetching pending exports: %v", err)
		return
	}

	for i := range jobs {
		if err := ew.processJob(&jobs[i]); err != nil {
			ew.Logger.Printf("Error processing export job %d: %v", jobs[i].ID, err)
		}
	}
}

func (ew *ExportWorker) processJob(job *models.ExportJob) error {
	if err := ew.DB.Model(job).Updates(map[string]interface{}{
		"status":   models.ExportStatusRunning,
		"attempts": job.Attempts + 1,
	}).Error; err != nil {
		return err
	}
	job.Attempts++

	var doc models.Document
	if err := ew.DB.First(&doc, job.DocumentID).Error; err != nil {
		return ew.failJob(job, "document no longer exists")
	}

	externalURL, err := utils.ExportDocument(job, &doc)
	if err != nil {
		if job.Attempts >= maxExportAttempts {
			return ew.failJob(job, err.Error())
		}
		// Back to pending for another attempt on a later tick
		return ew.DB.Model(job).Updates(map[string]interface{}{
			"status":     models.ExportStatusPending,
			"last_error": err.Error(),
		}).Error
	}

	now := time.Now()
	if err := ew.DB.Model(job).Updates(map[string]interface{}{
		"status":       models.ExportStatusCompleted,
		"external_url": externalURL,
		"last_error":   "",
		"completed_at": now,
	}).Error; err != nil {
		return err
	}

	ew.recordActivity(job, "document_exported", doc.Title)
	utils.LogEvent("export_completed", map[string]interface{}{
		"job_id": job.ID,
		"target": job.Target,
	})
	return nil
}

func (ew *ExportWorker) failJob(job *models.ExportJob, reason string) error {
	if err := ew.DB.Model(job).Updates(map[string]interface{}{
		"status":     models.ExportStatusFailed,
		"last_error": reason,
	}).Error; err != nil {
		return err
	}
	ew.recordActivity(job, "export_failed", reason)
	return nil
}

func (ew *ExportWorker) recordActivity(job *models.ExportJob, action, detail string) {
	if job.TeamID == nil {
		return
	}
	activity := models.TeamActivity{
		TeamID:  *job.TeamID,
		ActorID: job.RequestedBy,
		Action:  action,
		Detail:  detail,
	}
	if err := ew.DB.Create(&activity).Error; err != nil {
		ew.Logger.Printf("Failed to record export activity for team %d: %v", *job.TeamID, err)
	}
}
