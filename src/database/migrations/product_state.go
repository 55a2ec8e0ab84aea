package migrations

import (
	"fmt"
	"time"

	"bullshark/src/utils"

	"gorm.io/gorm"
)

type productStateDay struct {
	ProductID      string
	DailyTradeDate string
}

// normalizeDailyTradeDate resets counters whose day key is not a UTC
// YYYY-MM-DD date (older rows stored local timestamps). The counter restarts
// on the next trade.
func normalizeDailyTradeDate(db *gorm.DB) error {
	var rows []productStateDay
	if err := db.Table("product_state").
		Select("product_id, daily_trade_date").
		Where("daily_trade_date IS NOT NULL AND daily_trade_date <> ''").
		Scan(&rows).Error; err != nil {
		return fmt.Errorf("load product_state day keys: %w", err)
	}

	for _, row := range rows {
		if _, err := time.Parse(utils.DayKeyLayout, row.DailyTradeDate); err == nil && len(row.DailyTradeDate) == len(utils.DayKeyLayout) {
			continue
		}
		if err := db.Table("product_state").
			Where("product_id = ?", row.ProductID).
			Updates(map[string]interface{}{
				"daily_trade_date":  "",
				"daily_trade_count": 0,
			}).Error; err != nil {
			return fmt.Errorf("reset day key for %s: %w", row.ProductID, err)
		}
	}
	return nil
}

// clearBlankRebuyOrders nulls re-buy columns left behind with an empty order
// id, so they are not treated as outstanding orders.
func clearBlankRebuyOrders(db *gorm.DB) error {
	return db.Table("product_state").
		Where("rebuy_order_id = ?", "").
		Updates(map[string]interface{}{
			"rebuy_order_id":  nil,
			"rebuy_price":     nil,
			"rebuy_size":      nil,
			"rebuy_placed_at": nil,
		}).Error
}
