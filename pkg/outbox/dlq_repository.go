package outbox

import (
	"errors"

	"github.com/angelmondragon/carrental-backend/pkg/db/models"
	"gorm.io/gorm"
)

type DLQRepository struct{}

func NewDLQRepository() *DLQRepository {
	return &DLQRepository{}
}

// InsertTx records a dead-lettered event. A second insert for the same event is ignored.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ErrorMessage != nil && len(*entry.ErrorMessage) > maxLastErrorLen {
		msg := (*entry.ErrorMessage)[:maxLastErrorLen]
		entry.ErrorMessage = &msg
	}
	var existing int64
	if err := tx.Model(&models.OutboxDLQ{}).Where("event_id = ?", entry.EventID).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}
	return tx.Create(&entry).Error
}
