package controller

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"time"

	"bullshark/src/model"
	"bullshark/src/repository"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// RoundSize truncates a base size toward zero to the given number of
// fractional digits. Orders are never rounded up past the balance.
func RoundSize(size decimal.Decimal, places int32) decimal.Decimal {
	return size.RoundDown(places)
}

// RoundPrice truncates a limit price toward zero so a resting buy never
// rounds above its target.
func RoundPrice(price decimal.Decimal, places int32) decimal.Decimal {
	return price.RoundDown(places)
}

// Capture records a system exception, logs it locally, and optionally
// persists it in the database.
func Capture(
	ctx context.Context,
	repo *repository.ExceptionRepository,
	service string,
	module string,
	method string,
	level string,
	err error,
	contextData map[string]interface{},
) {

	if err == nil {
		return
	}

	var ctxJSON string
	if contextData != nil {
		if b, e := json.Marshal(contextData); e == nil {
			ctxJSON = string(b)
		}
	}

	productID, _ := contextData["product_id"].(string)

	exc := &model.Exception{
		Service:   service,
		Module:    module,
		Method:    method,
		ProductID: productID,
		Message:   err.Error(),
		Stack:     string(debug.Stack()),
		Level:     level,
		Context:   ctxJSON,
		CreatedAt: time.Now(),
	}

	// Local log
	logger.WithFields(map[string]interface{}{
		"service":    service,
		"module":     module,
		"method":     method,
		"level":      level,
		"product_id": productID,
	}).WithError(err).Error("System exception captured")

	// Persist in database
	if repo != nil {
		// a cancelled loop context must not drop the record
		if e := repo.Create(context.WithoutCancel(ctx), exc); e != nil {
			logger.WithError(e).Error("Failed to persist exception")
		}
	}
}
