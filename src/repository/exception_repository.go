package repository

import (
	"context"

	"bullshark/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ExceptionRepository handles persistence of captured failures.
type ExceptionRepository struct {
	db *gorm.DB
}

func (r *ExceptionRepository) WithDB(db *gorm.DB) *ExceptionRepository {
	return &ExceptionRepository{db: db}
}

// Create persists a new exception in the database.
func (r *ExceptionRepository) Create(
	ctx context.Context,
	exc *model.Exception,
) error {

	logger.WithFields(map[string]interface{}{
		"service":    exc.Service,
		"module":     exc.Module,
		"method":     exc.Method,
		"level":      exc.Level,
		"product_id": exc.ProductID,
	}).Error("Persisting system exception")

	return r.db.WithContext(ctx).Create(exc).Error
}

// FindRecent returns the latest exceptions, newest first.
func (r *ExceptionRepository) FindRecent(ctx context.Context, limit int) ([]model.Exception, error) {
	var out []model.Exception
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
