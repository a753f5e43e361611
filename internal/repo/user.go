package repo

import (
	"context"

	"github.com/Skotchmaster/inventory/internal/models"
)

var userUniqueColumns = map[string]string{
	"username": "username",
	"email":    "email",
}

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	return classify(r.DB.WithContext(ctx).Create(u).Error)
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByLogin matches identifier against both username and email.
func (r *GormRepo) FindUserByLogin(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, identifier).
		Order("id ASC").
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *GormRepo) SaveUser(ctx context.Context, u *models.User) error {
	return r.updateRow(ctx, u)
}

func (r *GormRepo) DeleteUser(ctx context.Context, id uint) error {
	return r.deleteByID(ctx, &models.User{}, id)
}

func (r *GormRepo) UserFieldTaken(ctx context.Context, field, value string, excludeID uint) (bool, error) {
	return r.fieldTaken(ctx, &models.User{}, userUniqueColumns, field, value, excludeID)
}
