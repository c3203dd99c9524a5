package controller

import (
	"log"
	"time"

	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"

	"kairos/models"
)

const (
	activityPollInterval = 3 * time.Second
	activityWriteWait    = 10 * time.Second
)

// activityConn is the slice of the websocket connection the feed loop
// needs. Tests substitute a fake.
type activityConn interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
}

// HandleActivityFeedWS streams a team's activity log over a websocket. The
// client sends {"team_id": N, "action": "watch"} and receives new entries
// as they appear, newest first on the initial frame.
func HandleActivityFeedWS(db *gorm.DB) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		var input struct {
			TeamID uint   `json:"team_id"`
			Action string `json:"action"`
		}

		if err := c.ReadJSON(&input); err != nil {
			log.Printf("Error reading JSON: %v", err)
			return
		}
		if input.Action != "watch" || input.TeamID == 0 {
			return
		}

		// Read pump: the client sends nothing further, but reading is the
		// only way to notice it went away.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		streamActivities(db, c, input.TeamID, done, activityPollInterval)
	}
}

// streamActivities sends the current log, then polls for newer entries
// until the connection drops or done closes. Idle ticks send a ping so a
// dead client is detected even when no activity arrives.
func streamActivities(db *gorm.DB, conn activityConn, teamID uint, done <-chan struct{}, interval time.Duration) {
	var activities []models.TeamActivity
	if err := db.Where("team_id = ?", teamID).
		Order("id DESC").Limit(100).Find(&activities).Error; err != nil {
		log.Printf("Error fetching activities: %v", err)
		return
	}
	conn.SetWriteDeadline(time.Now().Add(activityWriteWait))
	if err := conn.WriteJSON(activities); err != nil {
		return
	}

	lastID := uint(0)
	if len(activities) > 0 {
		lastID = activities[0].ID
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			var fresh []models.TeamActivity
			if err := db.Where("team_id = ? AND id > ?", teamID, lastID).
				Order("id DESC").Find(&fresh).Error; err != nil {
				log.Printf("Error polling activities: %v", err)
				return
			}
			conn.SetWriteDeadline(time.Now().Add(activityWriteWait))
			if len(fresh) == 0 {
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
				continue
			}
			lastID = fresh[0].ID
			if err := conn.WriteJSON(fresh); err != nil {
				return
			}
		}
	}
}
