// Package archive persists retention-swept alerts to SQLite so history
// survives the in-memory stores.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/forestguard/internal/models"
)

// ArchivedAlert is the persisted form of a swept alert.
type ArchivedAlert struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	PredictionID   string    `gorm:"index" json:"prediction_id"`
	PestID         string    `json:"pest_id"`
	TargetArea     string    `gorm:"index" json:"target_area"`
	Level          string    `json:"level"`
	Type           string    `json:"type"`
	Status         string    `json:"status"`
	Message        string    `json:"message"`
	ResolutionNote string    `json:"resolution_note"`
	HandledBy      string    `json:"handled_by"`
	CreatedAt      time.Time `json:"created_at"`
	ArchivedAt     time.Time `json:"archived_at"`
}

// Archive wraps the SQLite store for swept alerts.
type Archive struct {
	db *gorm.DB
}

// Open creates the database file (and its directory) if needed and
// migrates the schema.
func Open(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %v", err)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %v", err)
	}
	if err := db.AutoMigrate(&ArchivedAlert{}); err != nil {
		return nil, fmt.Errorf("failed to migrate archive schema: %v", err)
	}
	return &Archive{db: db}, nil
}

// ArchiveAlerts stores the swept alerts. Re-archiving an id is a no-op.
func (a *Archive) ArchiveAlerts(alerts []models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]ArchivedAlert, 0, len(alerts))
	for _, al := range alerts {
		rows = append(rows, ArchivedAlert{
			ID:             al.ID,
			PredictionID:   al.PredictionID,
			PestID:         al.PestID,
			TargetArea:     al.TargetArea,
			Level:          string(al.Level),
			Type:           string(al.Type),
			Status:         string(al.Status),
			Message:        al.Message,
			ResolutionNote: al.ResolutionNote,
			HandledBy:      al.HandledBy,
			CreatedAt:      al.CreatedAt,
			ArchivedAt:     now,
		})
	}
	return a.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// Recent returns the most recently archived alerts, newest first.
func (a *Archive) Recent(limit int) ([]ArchivedAlert, error) {
	var rows []ArchivedAlert
	err := a.db.Order("archived_at desc, id desc").Limit(limit).Find(&rows).Error
	return rows, err
}

// ByArea returns archived alerts for one target area, newest first.
func (a *Archive) ByArea(area string) ([]ArchivedAlert, error) {
	var rows []ArchivedAlert
	err := a.db.Where("target_area = ?", area).Order("archived_at desc, id desc").Find(&rows).Error
	return rows, err
}

func (a *Archive) Count() (int64, error) {
	var n int64
	err := a.db.Model(&ArchivedAlert{}).Count(&n).Error
	return n, err
}

// Close releases the underlying connection.
func (a *Archive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying *sql.DB: %v", err)
	}
	return sqlDB.Close()
}
