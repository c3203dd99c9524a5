package worker

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"kairos/models"
)

// InvitationWorker expires pending team invitations once their
// expiry passes, so accept attempts fail fast instead of leaking
// stale tokens.
type InvitationWorker struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewInvitationWorker(db *gorm.DB, logger *log.Logger) *InvitationWorker {
	return &InvitationWorker{
		DB:     db,
		Logger: logger,
	}
}

func (iw *InvitationWorker) Start(ctx context.Context) {
	time.Sleep(10 * time.Second)

	iw.Logger.Println("Invitation worker started")

	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			iw.Logger.Println("Invitation worker shutting down...")
			return
		case <-ticker.C:
			iw.expireInvitations()
		}
	}
}

func (iw *InvitationWorker) expireInvitations() {
	result := iw.DB.Model(&models.TeamInvitation{}).
		Where("status = ? AND expires_at < ?", models.InvitationStatusPending, time.Now()).
		Update("status", models.InvitationStatusExpired)
	if result.Error != nil {
		iw.Logger.Printf("Error expiring invitations: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		iw.Logger.Printf("Expired %d stale invitations", result.RowsAffected)
	}
}
