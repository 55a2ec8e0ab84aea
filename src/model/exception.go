package model

import "time"

// Exception is a failure captured during a pair iteration or reconciliation,
// persisted for later inspection alongside the trade ledger.
type Exception struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Where the error happened
	Service   string `gorm:"size:100;index" json:"service"` // e.g. "runner"
	Module    string `gorm:"size:100;index" json:"module"`  // e.g. "controller"
	Method    string `gorm:"size:100" json:"method"`        // e.g. "ProcessProduct"
	ProductID string `gorm:"size:32;index" json:"product_id,omitempty"`

	Message string `gorm:"type:text" json:"message"`
	Stack   string `gorm:"type:text" json:"stack"`

	// debug | info | warn | error | fatal
	Level string `gorm:"size:20;index" json:"level"`

	// Extra context as a JSON document
	Context string `gorm:"type:text" json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Exception) TableName() string {
	return "exceptions"
}
