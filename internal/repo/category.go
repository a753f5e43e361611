package repo

import (
	"context"

	"github.com/Skotchmaster/inventory/internal/models"
)

func (r *GormRepo) CreateCategory(ctx context.Context, c *models.Category) error {
	return classify(r.DB.WithContext(ctx).Create(c).Error)
}

func (r *GormRepo) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := r.DB.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *GormRepo) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *GormRepo) CategoryFieldTaken(ctx context.Context, field, value string, excludeID uint) (bool, error) {
	return r.fieldTaken(ctx, &models.Category{}, nameUniqueColumns, field, value, excludeID)
}
