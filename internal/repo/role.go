package repo

import (
	"context"

	"github.com/Skotchmaster/inventory/internal/models"
)

var nameUniqueColumns = map[string]string{"name": "name"}

func (r *GormRepo) CreateRole(ctx context.Context, role *models.Role) error {
	return classify(r.DB.WithContext(ctx).Create(role).Error)
}

func (r *GormRepo) GetRole(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role
	if err := r.DB.WithContext(ctx).First(&role, id).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *GormRepo) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// RoleNames maps each found id to its role name. Missing ids are absent.
func (r *GormRepo) RoleNames(ctx context.Context, ids []uint) (map[uint]string, error) {
	out := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var roles []models.Role
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&roles).Error; err != nil {
		return nil, err
	}
	for _, role := range roles {
		out[role.ID] = role.Name
	}
	return out, nil
}

func (r *GormRepo) RoleFieldTaken(ctx context.Context, field, value string, excludeID uint) (bool, error) {
	return r.fieldTaken(ctx, &models.Role{}, nameUniqueColumns, field, value, excludeID)
}
