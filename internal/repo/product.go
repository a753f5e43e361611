package repo

import (
	"context"

	"github.com/Skotchmaster/inventory/internal/models"
)

var productUniqueColumns = map[string]string{"barcode": "barcode"}

func (r *GormRepo) CreateProduct(ctx context.Context, prod *models.Product) error {
	return classify(r.DB.WithContext(ctx).Create(prod).Error)
}

func (r *GormRepo) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.DB.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormRepo) GetProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Product, 0, limit)
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}

	return total, items, nil
}

func (r *GormRepo) SaveProduct(ctx context.Context, prod *models.Product) error {
	return r.updateRow(ctx, prod)
}

func (r *GormRepo) DeleteProduct(ctx context.Context, id uint) error {
	return r.deleteByID(ctx, &models.Product{}, id)
}

func (r *GormRepo) ProductFieldTaken(ctx context.Context, field, value string, excludeID uint) (bool, error) {
	return r.fieldTaken(ctx, &models.Product{}, productUniqueColumns, field, value, excludeID)
}
