package migrations

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DataMigration is one row per data fix already applied to the database,
// keyed by the fix's id. Schema changes go through AutoMigrate instead.
type DataMigration struct {
	ID        string    `gorm:"primaryKey;size:200;column:id"`
	AppliedAt time.Time `gorm:"not null;column:applied_at"`
}

func (DataMigration) TableName() string { return "data_migrations" }

// Migration is a data fix applied at most once.
type Migration struct {
	ID    string
	Apply func(*gorm.DB) error
}

// registry is applied in order. Ids are permanent: append, never rename.
var registry = []Migration{
	{ID: "00001_normalize_daily_trade_date", Apply: normalizeDailyTradeDate},
	{ID: "00002_clear_blank_rebuy_orders", Apply: clearBlankRebuyOrders},
}

// RunOnce applies fn under migrationID unless that id is already recorded.
// fn and its bookkeeping row commit in one transaction, so a failed fn
// leaves nothing recorded and is retried on the next start.
func RunOnce(db *gorm.DB, migrationID string, fn func(*gorm.DB) error) error {
	if db == nil {
		return nil
	}
	if migrationID == "" {
		return fmt.Errorf("migration id is empty")
	}
	if fn == nil {
		return fmt.Errorf("migration %q has nil fn", migrationID)
	}
	if err := db.AutoMigrate(&DataMigration{}); err != nil {
		return fmt.Errorf("ensure data_migrations table: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var done DataMigration
		switch err := tx.First(&done, "id = ?", migrationID).Error; {
		case err == nil:
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("look up migration %q: %w", migrationID, err)
		}

		if err := fn(tx); err != nil {
			return fmt.Errorf("apply migration %q: %w", migrationID, err)
		}
		if err := tx.Create(&DataMigration{ID: migrationID, AppliedAt: time.Now().UTC()}).Error; err != nil {
			return fmt.Errorf("record migration %q: %w", migrationID, err)
		}

		logrus.WithField("migration", migrationID).Info("[database] data migration applied")
		return nil
	})
}

// Run applies every registered data migration that is still pending.
func Run(db *gorm.DB) error {
	for _, m := range registry {
		if err := RunOnce(db, m.ID, m.Apply); err != nil {
			return err
		}
	}
	return nil
}
