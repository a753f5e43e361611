package service

import (
	"context"

	"github.com/Skotchmaster/inventory/internal/logging"
	"github.com/Skotchmaster/inventory/internal/models"
	"github.com/Skotchmaster/inventory/internal/uniqueness"
)

type CatalogRepo interface {
	CreateRole(ctx context.Context, role *models.Role) error
	GetRole(ctx context.Context, id uint) (*models.Role, error)
	ListRoles(ctx context.Context) ([]models.Role, error)
	RoleFieldTaken(ctx context.Context, field, value string, excludeID uint) (bool, error)

	CreateCategory(ctx context.Context, c *models.Category) error
	GetCategory(ctx context.Context, id uint) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	CategoryFieldTaken(ctx context.Context, field, value string, excludeID uint) (bool, error)
}

// CatalogService administers the reference data users and products point at.
type CatalogService struct {
	Repo CatalogRepo

	roles      *uniqueness.Validator
	categories *uniqueness.Validator
}

func NewCatalogService(r CatalogRepo) *CatalogService {
	return &CatalogService{
		Repo:       r,
		roles:      uniqueness.New(uniqueness.ProberFunc(r.RoleFieldTaken)),
		categories: uniqueness.New(uniqueness.ProberFunc(r.CategoryFieldTaken)),
	}
}

func (s *CatalogService) CreateRole(ctx context.Context, name string) (*models.Role, error) {
	if err := s.roles.Check(ctx, 0, uniqueness.Field("name", name)); err != nil {
		return nil, err
	}

	role := models.Role{Name: name}
	if err := s.Repo.CreateRole(ctx, &role); err != nil {
		return nil, asDuplicate(err, map[string]string{"name": name})
	}

	logging.FromContext(ctx).Info("role_created", "svc", "catalog.roles", "role_id", role.ID)
	return &role, nil
}

func (s *CatalogService) GetRole(ctx context.Context, id uint) (*models.Role, error) {
	role, err := s.Repo.GetRole(ctx, id)
	if err != nil {
		return nil, notFound(err, "role", "Role not found")
	}
	return role, nil
}

func (s *CatalogService) ListRoles(ctx context.Context) ([]models.Role, error) {
	return s.Repo.ListRoles(ctx)
}

func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	if err := s.categories.Check(ctx, 0, uniqueness.Field("name", name)); err != nil {
		return nil, err
	}

	category := models.Category{Name: name}
	if err := s.Repo.CreateCategory(ctx, &category); err != nil {
		return nil, asDuplicate(err, map[string]string{"name": name})
	}

	logging.FromContext(ctx).Info("category_created", "svc", "catalog.categories", "category_id", category.ID)
	return &category, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	category, err := s.Repo.GetCategory(ctx, id)
	if err != nil {
		return nil, notFound(err, "category", "category not found")
	}
	return category, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.Repo.ListCategories(ctx)
}
